package decider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AnuragDani/gateway-decider/internal/cache"
	"github.com/AnuragDani/gateway-decider/internal/config"
	"github.com/AnuragDani/gateway-decider/internal/eligibility"
	"github.com/AnuragDani/gateway-decider/internal/models"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeStorage struct {
	accounts    []models.MerchantGatewayAccount
	accountsErr error
	cardInfo    []models.GatewayCardInfo
	cardInfoErr error
	emi         []models.GatewayBankEmiSupport
	emiV2       []models.GatewayBankEmiSupportV2
	outages     []models.ScheduledOutage

	cardInfoQueries []models.CardInfoQuery
	emiQueries      []models.EmiSupportQuery
}

func (f *fakeStorage) MerchantGatewayAccounts(_ context.Context, merchantID string) ([]models.MerchantGatewayAccount, error) {
	if f.accountsErr != nil {
		return nil, f.accountsErr
	}
	var out []models.MerchantGatewayAccount
	for _, mga := range f.accounts {
		if mga.MerchantID == "" || mga.MerchantID == merchantID {
			out = append(out, mga)
		}
	}
	return out, nil
}

func (f *fakeStorage) GatewayCardInfo(_ context.Context, q models.CardInfoQuery) ([]models.GatewayCardInfo, error) {
	f.cardInfoQueries = append(f.cardInfoQueries, q)
	if f.cardInfoErr != nil {
		return nil, f.cardInfoErr
	}
	allowed := gatewaySet(q.Gateways)
	var out []models.GatewayCardInfo
	for _, r := range f.cardInfo {
		if r.ISIN != q.ISIN || !allowed[r.Gateway] || r.ValidationType != q.ValidationType {
			continue
		}
		if q.AuthType != "" && r.AuthType != "" && r.AuthType != q.AuthType {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStorage) GatewayBankEmiSupport(_ context.Context, q models.EmiSupportQuery) ([]models.GatewayBankEmiSupport, error) {
	f.emiQueries = append(f.emiQueries, q)
	allowed := gatewaySet(q.Gateways)
	var out []models.GatewayBankEmiSupport
	for _, r := range f.emi {
		if r.EmiBank == q.Bank && allowed[r.Gateway] && r.Tenure == q.Tenure && r.Scope == q.Scope {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStorage) GatewayBankEmiSupportV2(_ context.Context, q models.EmiSupportQuery) ([]models.GatewayBankEmiSupportV2, error) {
	f.emiQueries = append(f.emiQueries, q)
	allowed := gatewaySet(q.Gateways)
	var out []models.GatewayBankEmiSupportV2
	for _, r := range f.emiV2 {
		if r.EmiBank == q.Bank && allowed[r.Gateway] && r.Tenure == q.Tenure && r.Scope == q.Scope && r.CardType == q.CardType {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStorage) ScheduledOutages(_ context.Context, _, _ time.Time) ([]models.ScheduledOutage, error) {
	return f.outages, nil
}

// fakeRandom replays floats in order and returns fixed distribution draws
type fakeRandom struct {
	floats   []float64
	next     int
	binomial float64
	beta     float64
}

func (f *fakeRandom) Float64() float64 {
	if len(f.floats) == 0 {
		return 0.999
	}
	v := f.floats[f.next%len(f.floats)]
	f.next++
	return v
}

func (f *fakeRandom) Binomial(int, float64) float64 { return f.binomial }

func (f *fakeRandom) Beta(float64, float64) float64 { return f.beta }

type testEnv struct {
	decider *Decider
	storage *fakeStorage
	store   *cache.MemoryStore
	static  *eligibility.Static
	rand    *fakeRandom
	cfg     *config.DeciderConfig
}

func newTestEnv(t *testing.T, storage *fakeStorage, elig config.EligibilityConfig) *testEnv {
	t.Helper()
	if storage == nil {
		storage = &fakeStorage{}
	}
	cfg := config.DefaultDeciderConfig()
	static := eligibility.NewStatic(elig)
	store := cache.NewMemoryStore()
	rnd := &fakeRandom{}
	d := New(storage, eligibility.NewLookup(static, static, nil), store, cfg,
		WithRandom(rnd),
		WithClock(func() time.Time { return testNow }),
	)
	return &testEnv{decider: d, storage: storage, store: store, static: static, rand: rnd, cfg: cfg}
}

func mga(gw string) models.MerchantGatewayAccount {
	return models.MerchantGatewayAccount{
		ID:         "mga_" + gw,
		MerchantID: "m1",
		Gateway:    models.Gateway(gw),
	}
}

func gateways(names ...string) []models.Gateway {
	out := make([]models.Gateway, 0, len(names))
	for _, n := range names {
		out = append(out, models.Gateway(n))
	}
	return out
}

// newContext seeds a decision context with a merchant, an INR order and a
// non-card transaction
func newContext(accounts ...models.MerchantGatewayAccount) *DecisionContext {
	dc := &DecisionContext{
		ID:       "dec_1",
		Merchant: models.MerchantAccount{MerchantID: "m1"},
		Order:    models.Order{OrderID: "ord_1", MerchantID: "m1", Currency: "INR", Amount: 100},
		Txn:      models.TxnDetail{TxnID: "txn_1", TxnUUID: "uuid_1", MerchantID: "m1"},
		Card:     models.TxnCardInfo{PaymentMethodType: models.PaymentMethodTypeNB, PaymentMethod: "NB_HDFC"},
	}
	dc.Attributes, _ = ResolveAttributes(dc.Order, dc.Txn, dc.Card)
	dc.Functional.SetGatewaysAndAccounts(accounts)
	return dc
}

// refresh recomputes attributes after a test edits the raw records
func (dc *DecisionContext) refresh() *DecisionContext {
	dc.Attributes, _ = ResolveAttributes(dc.Order, dc.Txn, dc.Card)
	return dc
}

var errStorage = errors.New("storage down")

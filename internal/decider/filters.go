package decider

import (
	"context"
	"strings"

	"github.com/AnuragDani/gateway-decider/internal/eligibility"
	"github.com/AnuragDani/gateway-decider/internal/models"
)

// Feature flags consulted by the filter pipeline
const (
	FlagDisableAuthTypeBinCheck = "DISABLE_AUTH_TYPE_BIN_CHECK"
	FlagDisableEmiBinCheck      = "DISABLE_EMI_BIN_CHECK"
	FlagEnableGbesV2            = "ENABLE_GBES_V2"
	FlagEnableUpiV2Integration  = "ENABLE_UPI_V2_INTEGRATION"
	FlagEnableMgaSelectionCheck = "ENABLE_MGA_SELECTION_CHECK"
)

// absentPolicy is what a list filter does when the named list does not exist
type absentPolicy int

const (
	absentEmpty absentPolicy = iota
	absentAll
)

type filterStage struct {
	name string
	run  func(ctx context.Context, dc *DecisionContext)
}

func (d *Decider) filterStages() []filterStage {
	return []filterStage{
		{"filterFunctionalGatewaysForCurrency", d.filterFunctionalGatewaysForCurrency},
		{"filterForReversePennyDrop", d.filterForReversePennyDrop},
		{"filterForSeamless", d.filterForSeamless},
		{"filterForMandate", d.filterForMandate},
		{"filterForEmandate", d.filterForEmandate},
		{"filterForCvvLessTxns", d.filterForCvvLessTxns},
		{"filterForTokenRepeat", d.filterForTokenRepeat},
		{"filterForMoto", d.filterForMoto},
		{"filterForAmexBta", d.filterForAmexBta},
		{"filterForMerchantContainer", d.filterForMerchantContainer},
		{"filterForCardBrand", d.filterForCardBrand},
		{"filterForAuthType", d.filterForAuthType},
		{"filterForValidationType", d.filterForValidationType},
		{"filterForEmi", d.filterForEmi},
		{"filterForPaymentMethod", d.filterForPaymentMethod},
		{"filterForTokenProvider", d.filterForTokenProvider},
		{"filterForWallet", d.typeFilter(models.PaymentMethodTypeWallet, "WALLET")},
		{"filterForNbOnly", d.typeFilter(models.PaymentMethodTypeNB, "NB")},
		{"filterForConsumerFinance", d.typeFilter(models.PaymentMethodTypeConsumerFinance, "CONSUMER_FINANCE")},
		{"filterForUpi", d.typeFilter(models.PaymentMethodTypeUPI, "UPI")},
		{"filterForReward", d.typeFilter(models.PaymentMethodTypeReward, "REWARD")},
		{"filterForCash", d.typeFilter(models.PaymentMethodTypeCash, "CASH")},
		{"filterForTxnType", d.filterForTxnType},
		{"filterForTxnDetailType", d.filterForTxnDetailType},
		{"filterForMerchantRequiredFlow", d.filterForMerchantRequiredFlow},
		{"filterForSplitSettlement", d.filterForSplitSettlement},
		{"filterForMgaSelection", d.filterForMgaSelection},
	}
}

// runFilters applies every stage in order, recording the set after each
func (d *Decider) runFilters(ctx context.Context, dc *DecisionContext) {
	for _, stage := range d.filterStages() {
		before := dc.Functional.Len()
		stage.run(ctx, dc)
		dc.Trail.addFilter(stage.name, dc.Functional.Gateways())
		if after := dc.Functional.Len(); after != before {
			d.log.Debug("Filter narrowed gateways",
				"decision_id", dc.ID, "stage", stage.name, "before", before, "after", after)
		}
	}
}

// keepListed narrows to the named list
func (d *Decider) keepListed(ctx context.Context, dc *DecisionContext, name string, absent absentPolicy) {
	gws, status := d.lookup.GatewayList(ctx, name)
	switch status {
	case eligibility.Found:
		dc.Functional.Keep(gws)
	case eligibility.Absent:
		if absent == absentEmpty {
			dc.Functional.Keep(nil)
		}
	}
}

// removeListed drops the gateways of the named list; a missing list removes nothing
func (d *Decider) removeListed(ctx context.Context, dc *DecisionContext, name string) {
	if gws, status := d.lookup.GatewayList(ctx, name); status == eligibility.Found {
		dc.Functional.Remove(gws)
	}
}

// keepListedOrRevert narrows to the named list but restores the previous
// set when the narrowing would empty it
func (d *Decider) keepListedOrRevert(ctx context.Context, dc *DecisionContext, name string) {
	gws, status := d.lookup.GatewayList(ctx, name)
	if status != eligibility.Found {
		return
	}
	prev := dc.Functional.snapshot()
	dc.Functional.Keep(gws)
	if dc.Functional.Len() == 0 {
		d.log.Info("Narrowing would empty gateways, keeping previous set", "decision_id", dc.ID, "list", name)
		dc.Functional.restore(prev)
	}
}

func (d *Decider) filterFunctionalGatewaysForCurrency(_ context.Context, dc *DecisionContext) {
	if dc.Merchant.GatewayReferenceIDRoutingEnabled {
		dc.Functional.NarrowByAccount(func(mga models.MerchantGatewayAccount) bool {
			return mga.ReferenceID == expectedReferenceID(dc, mga.Gateway)
		})
	} else {
		plain := make(map[models.Gateway]bool)
		for _, mga := range dc.Functional.Accounts() {
			if mga.ReferenceID == "" {
				plain[mga.Gateway] = true
			}
		}
		dc.Functional.NarrowByAccount(func(mga models.MerchantGatewayAccount) bool {
			return mga.ReferenceID == "" || !plain[mga.Gateway]
		})
	}

	currency := firstNonEmpty(dc.Order.Currency, dc.Txn.Currency, models.CurrencyINR)
	dc.Functional.NarrowByAccount(func(mga models.MerchantGatewayAccount) bool {
		supported := mga.SupportedCurrencies
		if len(supported) == 0 {
			supported = []string{models.CurrencyINR}
		}
		return containsFold(supported, currency)
	})
}

// expectedReferenceID is the gateway reference id an MGA must carry when
// reference-id routing is enabled
func expectedReferenceID(dc *DecisionContext, gw models.Gateway) string {
	if id, ok := dc.PriorityLogic.GatewayReferenceIDs[gw]; ok {
		return id
	}
	return metaString(dc.Attributes.OrderMetadata, string(gw)+":gateway_reference_id")
}

func (d *Decider) filterForReversePennyDrop(_ context.Context, dc *DecisionContext) {
	if dc.Attributes.IsReversePennyDrop {
		dc.Functional.NarrowByAccount(func(mga models.MerchantGatewayAccount) bool { return mga.SupportsReversePennyDrop })
	}
}

func (d *Decider) filterForSeamless(_ context.Context, dc *DecisionContext) {
	if dc.Attributes.IsSeamless {
		dc.Functional.NarrowByAccount(func(mga models.MerchantGatewayAccount) bool { return mga.SupportsSeamless })
	}
}

func (d *Decider) filterForMandate(_ context.Context, dc *DecisionContext) {
	if dc.Attributes.IsMandate {
		dc.Functional.NarrowByAccount(func(mga models.MerchantGatewayAccount) bool { return mga.SupportsSubscription })
	}
}

func (d *Decider) filterForEmandate(_ context.Context, dc *DecisionContext) {
	if dc.Attributes.IsEmandate {
		dc.Functional.NarrowByAccount(func(mga models.MerchantGatewayAccount) bool { return mga.SupportsEmandate })
	}
}

func (d *Decider) filterForCvvLessTxns(ctx context.Context, dc *DecisionContext) {
	a := dc.Attributes
	if !a.IsCard || !a.IsCvvLess {
		return
	}
	if a.TokenRepeat != models.TokenRepeatNone {
		d.keepListed(ctx, dc, "TOKEN_REPEAT_CVV_LESS_SUPPORTED_GATEWAYS_"+a.CardBrand, absentEmpty)
		return
	}
	d.keepListed(ctx, dc, "CVV_LESS_SUPPORTED_GATEWAYS", absentEmpty)
}

func (d *Decider) filterForTokenRepeat(ctx context.Context, dc *DecisionContext) {
	a := dc.Attributes
	if a.TokenRepeat == models.TokenRepeatNone || a.IsCvvLess {
		return
	}
	d.keepListed(ctx, dc, "TOKEN_REPEAT_SUPPORTED_GATEWAYS_"+string(a.TokenRepeat)+"_"+a.CardBrand, absentAll)
}

// filterForMoto narrows MOTO transactions to the configured list. Without a
// list the MGA capability check in filterForAuthType is the only gate.
func (d *Decider) filterForMoto(ctx context.Context, dc *DecisionContext) {
	if dc.Attributes.AuthType == models.AuthTypeMOTO {
		d.keepListed(ctx, dc, "MOTO_SUPPORTED_GATEWAYS", absentAll)
	}
}

func (d *Decider) filterForAmexBta(ctx context.Context, dc *DecisionContext) {
	if dc.Attributes.IsAmexBta {
		d.keepListed(ctx, dc, "AMEX_BTA_SUPPORTED_GATEWAYS", absentEmpty)
	}
}

func (d *Decider) filterForMerchantContainer(ctx context.Context, dc *DecisionContext) {
	if dc.Attributes.PaymentMethodType == models.PaymentMethodTypeMerchantContainer {
		d.keepListed(ctx, dc, "MERCHANT_CONTAINER_SUPPORTED_GATEWAYS", absentEmpty)
		return
	}
	d.removeListed(ctx, dc, "MERCHANT_CONTAINER_SUPPORTED_GATEWAYS")
}

func (d *Decider) filterForCardBrand(ctx context.Context, dc *DecisionContext) {
	a := dc.Attributes
	if !a.IsCard {
		return
	}
	switch a.CardBrand {
	case models.CardBrandAmex:
		d.keepListed(ctx, dc, "AMEX_SUPPORTED_GATEWAYS", absentEmpty)
	case models.CardBrandSodexo:
		d.keepListed(ctx, dc, "SODEXO_SUPPORTED_GATEWAYS", absentEmpty)
	default:
		d.removeListed(ctx, dc, "SODEXO_ONLY_GATEWAYS")
	}
}

func (d *Decider) filterForAuthType(ctx context.Context, dc *DecisionContext) {
	a := dc.Attributes
	var capable func(models.MerchantGatewayAccount) bool
	switch a.AuthType {
	case models.AuthTypeOTP:
		capable = func(mga models.MerchantGatewayAccount) bool { return mga.SupportsOTP }
	case models.AuthTypeMOTO:
		capable = func(mga models.MerchantGatewayAccount) bool { return mga.SupportsMOTO }
	case models.AuthTypeNoThreeDS:
		capable = func(mga models.MerchantGatewayAccount) bool { return mga.SupportsNoThreeDS }
	case models.AuthTypeVIES:
		capable = func(mga models.MerchantGatewayAccount) bool { return mga.SupportsVIES }
	default:
		return
	}
	dc.Functional.NarrowByAccount(capable)

	if !a.IsCard || dc.Card.CardISIN == "" || dc.Functional.Len() == 0 {
		return
	}
	if d.lookup.Enabled(ctx, FlagDisableAuthTypeBinCheck, dc.Merchant.MerchantID) {
		return
	}
	eligible := d.cardInfoGateways(ctx, dc, models.CardInfoQuery{
		ISIN:     dc.Card.CardISIN,
		Gateways: dc.Functional.Gateways(),
		AuthType: a.AuthType,
	})
	dc.Functional.Keep(eligible)
}

func (d *Decider) filterForValidationType(ctx context.Context, dc *DecisionContext) {
	a := dc.Attributes
	if vt := a.ValidationType; vt != models.ValidationTypeNone {
		isin := dc.Card.CardISIN
		if !a.IsCard {
			isin = a.BankCode
		}
		if isin != "" {
			eligible := d.cardInfoGateways(ctx, dc, models.CardInfoQuery{
				ISIN:           isin,
				Gateways:       dc.Functional.Gateways(),
				ValidationType: vt,
				AuthType:       a.AuthType,
			})
			if excluded, status := d.lookup.GatewayList(ctx, "BIN_FILTER_EXCLUDED_GATEWAYS"); status == eligibility.Found {
				eligible = append(eligible, excluded...)
			}
			dc.Functional.Keep(eligible)
		}
	}

	if !a.IsMandate {
		return
	}
	switch {
	case a.TokenRepeat != models.TokenRepeatNone:
		d.keepListedOrRevert(ctx, dc, "TOKEN_REPEAT_MANDATE_SUPPORTED_GATEWAYS")
	case a.IsGuestCheckout && !a.ExpressCheckout:
		d.keepListedOrRevert(ctx, dc, "GUEST_CHECKOUT_MANDATE_SUPPORTED_GATEWAYS")
	}
}

// cardInfoGateways returns the gateways with an enabled card info record.
// A storage failure yields no gateways.
func (d *Decider) cardInfoGateways(ctx context.Context, dc *DecisionContext, q models.CardInfoQuery) []models.Gateway {
	records, err := d.storage.GatewayCardInfo(ctx, q)
	if err != nil {
		d.log.Error("Failed to load gateway card info", "decision_id", dc.ID, "error", err)
		return nil
	}
	var gws []models.Gateway
	for _, r := range records {
		if !r.Disabled {
			gws = append(gws, r.Gateway)
		}
	}
	return gws
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}

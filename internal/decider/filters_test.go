package decider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnuragDani/gateway-decider/internal/config"
	"github.com/AnuragDani/gateway-decider/internal/models"
)

type stageFunc func(d *Decider) func(context.Context, *DecisionContext)

type filterCase struct {
	name     string
	accounts []models.MerchantGatewayAccount
	elig     config.EligibilityConfig
	storage  *fakeStorage
	setup    func(dc *DecisionContext)
	expected []models.Gateway
}

func runFilterCases(t *testing.T, stage stageFunc, cases []filterCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, tc.storage, tc.elig)
			dc := newContext(tc.accounts...)
			if tc.setup != nil {
				tc.setup(dc)
			}
			dc.refresh()
			before := dc.Functional.Gateways()

			stage(env.decider)(context.Background(), dc)

			assert.Equal(t, tc.expected, dc.Functional.Gateways())
			assert.Subset(t, before, dc.Functional.Gateways())
			for _, a := range dc.Functional.Accounts() {
				assert.True(t, dc.Functional.Contains(a.Gateway), "account %s without gateway", a.ID)
			}
		})
	}
}

func with(base models.MerchantGatewayAccount, edit func(*models.MerchantGatewayAccount)) models.MerchantGatewayAccount {
	edit(&base)
	return base
}

func lists(kv map[string][]string) config.EligibilityConfig {
	return config.EligibilityConfig{GatewayLists: kv}
}

func asCard(brand string) func(dc *DecisionContext) {
	return func(dc *DecisionContext) {
		dc.Card = models.TxnCardInfo{
			PaymentMethodType: models.PaymentMethodTypeCard,
			CardBrand:         brand,
			CardISIN:          "411111",
			CardType:          "CREDIT",
			AuthType:          models.AuthTypeThreeDS,
		}
	}
}

func TestFilterForCurrency(t *testing.T) {
	stage := func(d *Decider) func(context.Context, *DecisionContext) { return d.filterFunctionalGatewaysForCurrency }

	runFilterCases(t, stage, []filterCase{
		{
			name: "missing declaration means INR only",
			accounts: []models.MerchantGatewayAccount{
				with(mga("GW1"), func(m *models.MerchantGatewayAccount) { m.SupportedCurrencies = []string{"USD", "EUR"} }),
				mga("GW2"),
			},
			setup:    func(dc *DecisionContext) { dc.Order.Currency = "USD" },
			expected: gateways("GW1"),
		},
		{
			name: "INR accepted by default",
			accounts: []models.MerchantGatewayAccount{
				with(mga("GW1"), func(m *models.MerchantGatewayAccount) { m.SupportedCurrencies = []string{"USD"} }),
				mga("GW2"),
			},
			expected: gateways("GW2"),
		},
		{
			name: "reference ids disabled prefer plain accounts",
			accounts: []models.MerchantGatewayAccount{
				mga("GW1"),
				with(mga("GW1"), func(m *models.MerchantGatewayAccount) { m.ID = "ref"; m.ReferenceID = "R1" }),
				with(mga("GW2"), func(m *models.MerchantGatewayAccount) { m.ReferenceID = "R2" }),
			},
			expected: gateways("GW1", "GW2"),
		},
		{
			name: "reference ids enabled match priority logic then order metadata",
			accounts: []models.MerchantGatewayAccount{
				with(mga("GW1"), func(m *models.MerchantGatewayAccount) { m.ReferenceID = "R1" }),
				with(mga("GW1"), func(m *models.MerchantGatewayAccount) { m.ID = "plain" }),
				with(mga("GW2"), func(m *models.MerchantGatewayAccount) { m.ReferenceID = "R3" }),
				mga("GW3"),
			},
			setup: func(dc *DecisionContext) {
				dc.Merchant.GatewayReferenceIDRoutingEnabled = true
				dc.PriorityLogic.GatewayReferenceIDs = map[models.Gateway]string{"GW1": "R1"}
				dc.Order.Metadata = `{"GW2:gateway_reference_id": "R2"}`
			},
			expected: gateways("GW1", "GW3"),
		},
	})
}

func TestFilterForReferenceID_KeepsOnlyMatchingAccount(t *testing.T) {
	env := newTestEnv(t, nil, config.EligibilityConfig{})
	dc := newContext(
		with(mga("GW1"), func(m *models.MerchantGatewayAccount) { m.ReferenceID = "R1" }),
		with(mga("GW1"), func(m *models.MerchantGatewayAccount) { m.ID = "plain" }),
	)
	dc.Merchant.GatewayReferenceIDRoutingEnabled = true
	dc.PriorityLogic.GatewayReferenceIDs = map[models.Gateway]string{"GW1": "R1"}

	env.decider.filterFunctionalGatewaysForCurrency(context.Background(), dc)

	require.Len(t, dc.Functional.Accounts(), 1)
	assert.Equal(t, "R1", dc.Functional.Accounts()[0].ReferenceID)
}

func TestCapabilityFilters(t *testing.T) {
	accounts := []models.MerchantGatewayAccount{
		with(mga("GW1"), func(m *models.MerchantGatewayAccount) {
			m.SupportsSeamless = true
			m.SupportsReversePennyDrop = true
		}),
		with(mga("GW2"), func(m *models.MerchantGatewayAccount) {
			m.SupportsSubscription = true
			m.SupportsEmandate = true
		}),
	}

	tests := []struct {
		name     string
		stage    stageFunc
		setup    func(dc *DecisionContext)
		expected []models.Gateway
	}{
		{
			name:     "seamless",
			stage:    func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForSeamless },
			setup:    func(dc *DecisionContext) { dc.Txn.Seamless = true },
			expected: gateways("GW1"),
		},
		{
			name:     "not seamless",
			stage:    func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForSeamless },
			expected: gateways("GW1", "GW2"),
		},
		{
			name:     "reverse penny drop",
			stage:    func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForReversePennyDrop },
			setup:    func(dc *DecisionContext) { dc.Txn.TxnObjectType = models.TxnObjectReversePennyDrop },
			expected: gateways("GW1"),
		},
		{
			name:     "mandate",
			stage:    func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForMandate },
			setup:    func(dc *DecisionContext) { dc.Txn.TxnObjectType = models.TxnObjectMandatePayment },
			expected: gateways("GW2"),
		},
		{
			name:     "emandate",
			stage:    func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForEmandate },
			setup:    func(dc *DecisionContext) { dc.Txn.TxnObjectType = models.TxnObjectEmandateRegister },
			expected: gateways("GW2"),
		},
	}

	for _, tt := range tests {
		runFilterCases(t, tt.stage, []filterCase{{
			name:     tt.name,
			accounts: accounts,
			setup:    tt.setup,
			expected: tt.expected,
		}})
	}
}

func TestFilterForCvvLessAndTokenRepeat(t *testing.T) {
	accounts := []models.MerchantGatewayAccount{mga("GW1"), mga("GW2")}
	cvvLess := func(internal string) func(dc *DecisionContext) {
		return func(dc *DecisionContext) {
			asCard("VISA")(dc)
			dc.Txn.InternalMetadata = internal
		}
	}

	runFilterCases(t, func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForCvvLessTxns }, []filterCase{
		{
			name:     "cvv-less list",
			accounts: accounts,
			elig:     lists(map[string][]string{"CVV_LESS_SUPPORTED_GATEWAYS": {"GW2"}}),
			setup:    cvvLess(`{"isCvvLessTxn": true}`),
			expected: gateways("GW2"),
		},
		{
			name:     "cvv-less list absent empties",
			accounts: accounts,
			setup:    cvvLess(`{"isCvvLessTxn": true}`),
			expected: gateways(),
		},
		{
			name:     "cvv-less token repeat uses brand list",
			accounts: accounts,
			elig: lists(map[string][]string{
				"CVV_LESS_SUPPORTED_GATEWAYS":                  {"GW2"},
				"TOKEN_REPEAT_CVV_LESS_SUPPORTED_GATEWAYS_VISA": {"GW1"},
			}),
			setup:    cvvLess(`{"isCvvLessTxn": true, "tokenRepeatKind": "NETWORK_TOKEN"}`),
			expected: gateways("GW1"),
		},
		{
			name:     "malformed list is ignored",
			accounts: accounts,
			elig:     config.EligibilityConfig{Configs: map[string]string{"CVV_LESS_SUPPORTED_GATEWAYS": `["GW2"`}},
			setup:    cvvLess(`{"isCvvLessTxn": true}`),
			expected: gateways("GW1", "GW2"),
		},
	})

	runFilterCases(t, func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForTokenRepeat }, []filterCase{
		{
			name:     "token repeat list",
			accounts: accounts,
			elig:     lists(map[string][]string{"TOKEN_REPEAT_SUPPORTED_GATEWAYS_NETWORK_TOKEN_VISA": {"GW1"}}),
			setup:    cvvLess(`{"tokenRepeatKind": "NETWORK_TOKEN"}`),
			expected: gateways("GW1"),
		},
		{
			name:     "token repeat list absent keeps all",
			accounts: accounts,
			setup:    cvvLess(`{"tokenRepeatKind": "ISSUER_TOKEN"}`),
			expected: gateways("GW1", "GW2"),
		},
		{
			name:     "cvv-less token repeat handled by the cvv-less stage",
			accounts: accounts,
			elig:     lists(map[string][]string{"TOKEN_REPEAT_SUPPORTED_GATEWAYS_NETWORK_TOKEN_VISA": {"GW1"}}),
			setup:    cvvLess(`{"tokenRepeatKind": "NETWORK_TOKEN", "isCvvLessTxn": true}`),
			expected: gateways("GW1", "GW2"),
		},
	})
}

func TestFilterForMotoAmexBtaAndContainer(t *testing.T) {
	accounts := []models.MerchantGatewayAccount{mga("GW1"), mga("GW2")}

	runFilterCases(t, func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForMoto }, []filterCase{
		{
			name:     "moto list absent keeps all",
			accounts: accounts,
			setup:    func(dc *DecisionContext) { asCard("VISA")(dc); dc.Card.AuthType = models.AuthTypeMOTO },
			expected: gateways("GW1", "GW2"),
		},
		{
			name:     "moto list",
			accounts: accounts,
			elig:     lists(map[string][]string{"MOTO_SUPPORTED_GATEWAYS": {"GW2"}}),
			setup:    func(dc *DecisionContext) { asCard("VISA")(dc); dc.Card.AuthType = models.AuthTypeMOTO },
			expected: gateways("GW2"),
		},
	})

	runFilterCases(t, func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForAmexBta }, []filterCase{
		{
			name:     "amex bta list",
			accounts: accounts,
			elig:     lists(map[string][]string{"AMEX_BTA_SUPPORTED_GATEWAYS": {"GW1"}}),
			setup:    func(dc *DecisionContext) { asCard("AMEX")(dc); dc.Txn.InternalMetadata = `{"isAmexBtaTxn": true}` },
			expected: gateways("GW1"),
		},
	})

	runFilterCases(t, func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForMerchantContainer }, []filterCase{
		{
			name:     "container txn keeps container gateways",
			accounts: accounts,
			elig:     lists(map[string][]string{"MERCHANT_CONTAINER_SUPPORTED_GATEWAYS": {"GW1"}}),
			setup: func(dc *DecisionContext) {
				dc.Card.PaymentMethodType = models.PaymentMethodTypeMerchantContainer
			},
			expected: gateways("GW1"),
		},
		{
			name:     "other txn drops container gateways",
			accounts: accounts,
			elig:     lists(map[string][]string{"MERCHANT_CONTAINER_SUPPORTED_GATEWAYS": {"GW1"}}),
			expected: gateways("GW2"),
		},
		{
			name:     "other txn without list keeps all",
			accounts: accounts,
			expected: gateways("GW1", "GW2"),
		},
	})
}

func TestFilterForCardBrand(t *testing.T) {
	accounts := []models.MerchantGatewayAccount{mga("GW1"), mga("GW2"), mga("GW3")}
	elig := lists(map[string][]string{
		"AMEX_SUPPORTED_GATEWAYS": {"GW1"},
		"SODEXO_ONLY_GATEWAYS":    {"GW3"},
	})

	runFilterCases(t, func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForCardBrand }, []filterCase{
		{name: "amex", accounts: accounts, elig: elig, setup: asCard("amex"), expected: gateways("GW1")},
		{name: "sodexo list absent", accounts: accounts, elig: elig, setup: asCard("SODEXO"), expected: gateways()},
		{name: "other brand drops sodexo-only", accounts: accounts, elig: elig, setup: asCard("VISA"), expected: gateways("GW1", "GW2")},
		{name: "non-card untouched", accounts: accounts, elig: elig, expected: gateways("GW1", "GW2", "GW3")},
	})
}

func TestFilterForAuthType(t *testing.T) {
	otp := func(m *models.MerchantGatewayAccount) { m.SupportsOTP = true }
	accounts := []models.MerchantGatewayAccount{with(mga("GW1"), otp), with(mga("GW2"), otp), mga("GW3")}
	cardInfo := []models.GatewayCardInfo{
		{Gateway: "GW1", ISIN: "411111", AuthType: models.AuthTypeOTP},
		{Gateway: "GW2", ISIN: "411111", AuthType: models.AuthTypeOTP, Disabled: true},
	}
	otpCard := func(dc *DecisionContext) { asCard("VISA")(dc); dc.Card.AuthType = models.AuthTypeOTP }

	runFilterCases(t, func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForAuthType }, []filterCase{
		{
			name:     "capability then bin check",
			accounts: accounts,
			storage:  &fakeStorage{cardInfo: cardInfo},
			setup:    otpCard,
			expected: gateways("GW1"),
		},
		{
			name:     "bin check disabled by flag",
			accounts: accounts,
			storage:  &fakeStorage{cardInfo: cardInfo},
			elig:     config.EligibilityConfig{FeatureFlags: map[string][]string{FlagDisableAuthTypeBinCheck: {"m1"}}},
			setup:    otpCard,
			expected: gateways("GW1", "GW2"),
		},
		{
			name:     "card info failure fails closed",
			accounts: accounts,
			storage:  &fakeStorage{cardInfoErr: errStorage},
			setup:    otpCard,
			expected: gateways(),
		},
		{
			name:     "three ds untouched",
			accounts: accounts,
			setup:    asCard("VISA"),
			expected: gateways("GW1", "GW2", "GW3"),
		},
	})
}

func TestFilterForValidationType(t *testing.T) {
	accounts := []models.MerchantGatewayAccount{mga("GW1"), mga("GW2"), mga("GW3")}
	cardInfo := []models.GatewayCardInfo{
		{Gateway: "GW1", ISIN: "411111", ValidationType: models.ValidationTypeCardMandate},
		{Gateway: "GW2", ISIN: "411111", ValidationType: models.ValidationTypeCardMandate},
	}
	cardMandate := func(dc *DecisionContext) {
		asCard("VISA")(dc)
		dc.Txn.TxnObjectType = models.TxnObjectMandateRegister
	}

	runFilterCases(t, func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForValidationType }, []filterCase{
		{
			name:     "card info union bin filter exclusions",
			accounts: accounts,
			storage:  &fakeStorage{cardInfo: cardInfo[:1]},
			elig:     lists(map[string][]string{"BIN_FILTER_EXCLUDED_GATEWAYS": {"GW3"}}),
			setup:    cardMandate,
			expected: gateways("GW1", "GW3"),
		},
		{
			name:     "guest checkout list narrows",
			accounts: accounts,
			storage:  &fakeStorage{cardInfo: cardInfo},
			elig:     lists(map[string][]string{"GUEST_CHECKOUT_MANDATE_SUPPORTED_GATEWAYS": {"GW2"}}),
			setup:    cardMandate,
			expected: gateways("GW2"),
		},
		{
			name:     "guest checkout list falls back when it would empty the set",
			accounts: accounts,
			storage:  &fakeStorage{cardInfo: cardInfo},
			elig:     lists(map[string][]string{"GUEST_CHECKOUT_MANDATE_SUPPORTED_GATEWAYS": {"GW9"}}),
			setup:    cardMandate,
			expected: gateways("GW1", "GW2"),
		},
		{
			name:     "express checkout skips guest checkout list",
			accounts: accounts,
			storage:  &fakeStorage{cardInfo: cardInfo},
			elig:     lists(map[string][]string{"GUEST_CHECKOUT_MANDATE_SUPPORTED_GATEWAYS": {"GW2"}}),
			setup:    func(dc *DecisionContext) { cardMandate(dc); dc.Txn.ExpressCheckout = true },
			expected: gateways("GW1", "GW2"),
		},
		{
			name:     "token repeat mandate list",
			accounts: accounts,
			storage:  &fakeStorage{cardInfo: cardInfo},
			elig:     lists(map[string][]string{"TOKEN_REPEAT_MANDATE_SUPPORTED_GATEWAYS": {"GW1"}}),
			setup: func(dc *DecisionContext) {
				cardMandate(dc)
				dc.Txn.InternalMetadata = `{"tokenRepeatKind": "ALT_ID"}`
			},
			expected: gateways("GW1"),
		},
		{
			name:     "no validation type",
			accounts: accounts,
			setup:    asCard("VISA"),
			expected: gateways("GW1", "GW2", "GW3"),
		},
	})
}

func TestFilterForEmi(t *testing.T) {
	accounts := []models.MerchantGatewayAccount{mga("GW1"), mga("GW2"), mga("GW3")}
	cardInfo := []models.GatewayCardInfo{
		{Gateway: "GW1", ISIN: "411111", ValidationType: models.ValidationTypeEmi},
		{Gateway: "GW2", ISIN: "411111", ValidationType: models.ValidationTypeEmi},
	}
	emiCard := func(emiType models.EmiType) func(dc *DecisionContext) {
		return func(dc *DecisionContext) {
			asCard("VISA")(dc)
			dc.Txn.IsEmi = true
			dc.Txn.EmiBank = "HDFC"
			dc.Txn.EmiTenure = 6
			dc.Txn.EmiType = emiType
		}
	}

	runFilterCases(t, func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForEmi }, []filterCase{
		{
			name:     "bin eligibility then v1 support",
			accounts: accounts,
			storage: &fakeStorage{
				cardInfo: cardInfo,
				emi:      []models.GatewayBankEmiSupport{{Gateway: "GW1", EmiBank: "HDFC", Tenure: 6, Scope: models.EmiScopeCard}},
			},
			setup:    emiCard(models.EmiTypeStandard),
			expected: gateways("GW1"),
		},
		{
			name:     "v2 support by card type",
			accounts: accounts,
			storage: &fakeStorage{
				cardInfo: cardInfo,
				emiV2: []models.GatewayBankEmiSupportV2{
					{Gateway: "GW1", EmiBank: "HDFC", Tenure: 6, Scope: models.EmiScopeCard, CardType: "CREDIT", Disabled: true},
					{Gateway: "GW2", EmiBank: "HDFC", Tenure: 6, Scope: models.EmiScopeCard, CardType: "CREDIT"},
				},
			},
			elig:     config.EligibilityConfig{FeatureFlags: map[string][]string{FlagEnableGbesV2: {"*"}}},
			setup:    emiCard(models.EmiTypeStandard),
			expected: gateways("GW2"),
		},
		{
			name:     "no cost list absent empties",
			accounts: accounts,
			setup:    emiCard(models.EmiTypeNoCost),
			expected: gateways(),
		},
		{
			name:     "brand exclusion",
			accounts: accounts,
			storage: &fakeStorage{
				cardInfo: cardInfo,
				emi: []models.GatewayBankEmiSupport{
					{Gateway: "GW1", EmiBank: "HDFC", Tenure: 6, Scope: models.EmiScopeCard},
					{Gateway: "GW2", EmiBank: "HDFC", Tenure: 6, Scope: models.EmiScopeCard},
				},
			},
			elig:     lists(map[string][]string{"EMI_NOT_SUPPORTED_GATEWAYS_VISA": {"GW1"}}),
			setup:    emiCard(models.EmiTypeStandard),
			expected: gateways("GW2"),
		},
		{
			name:     "not emi",
			accounts: accounts,
			setup:    asCard("VISA"),
			expected: gateways("GW1", "GW2", "GW3"),
		},
	})
}

func TestFilterForPaymentMethod(t *testing.T) {
	runFilterCases(t, func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForPaymentMethod }, []filterCase{
		{
			name: "card brand against declared methods",
			accounts: []models.MerchantGatewayAccount{
				with(mga("GW1"), func(m *models.MerchantGatewayAccount) { m.PaymentMethods = []string{"MASTERCARD"} }),
				mga("GW2"),
			},
			setup:    asCard("VISA"),
			expected: gateways("GW2"),
		},
		{
			name: "empty result is terminal",
			accounts: []models.MerchantGatewayAccount{
				with(mga("GW1"), func(m *models.MerchantGatewayAccount) { m.PaymentMethods = []string{"NB_SBI"} }),
			},
			expected: gateways(),
		},
		{
			name: "upi intent",
			accounts: []models.MerchantGatewayAccount{
				with(mga("GW1"), func(m *models.MerchantGatewayAccount) { m.SupportsUpiIntent = true }),
				mga("GW2"),
			},
			setup: func(dc *DecisionContext) {
				dc.Card = models.TxnCardInfo{PaymentMethodType: models.PaymentMethodTypeUPI, PaymentMethod: "UPI", PaymentSource: models.PaymentSourceUpiIntent}
			},
			expected: gateways("GW1"),
		},
		{
			name:     "upi v2 integration list",
			accounts: []models.MerchantGatewayAccount{mga("GW1"), mga("GW2")},
			elig: config.EligibilityConfig{
				GatewayLists: map[string][]string{"UPI_V2_INTEGRATED_GATEWAYS": {"GW2"}},
				FeatureFlags: map[string][]string{FlagEnableUpiV2Integration: {"m1"}},
			},
			setup: func(dc *DecisionContext) {
				dc.Card = models.TxnCardInfo{PaymentMethodType: models.PaymentMethodTypeUPI, PaymentMethod: "UPI"}
			},
			expected: gateways("GW2"),
		},
	})
}

func TestTypeFilters(t *testing.T) {
	accounts := []models.MerchantGatewayAccount{mga("GW1"), mga("GW2")}
	wallet := func(dc *DecisionContext) {
		dc.Card = models.TxnCardInfo{PaymentMethodType: models.PaymentMethodTypeWallet, PaymentMethod: "PAYTM"}
	}
	stage := func(d *Decider) func(context.Context, *DecisionContext) {
		return d.typeFilter(models.PaymentMethodTypeWallet, "WALLET")
	}

	runFilterCases(t, stage, []filterCase{
		{
			name:     "wallet txn keeps supported",
			accounts: accounts,
			elig:     lists(map[string][]string{"WALLET_SUPPORTED_GATEWAYS": {"GW1"}}),
			setup:    wallet,
			expected: gateways("GW1"),
		},
		{
			name:     "wallet txn without list keeps all",
			accounts: accounts,
			setup:    wallet,
			expected: gateways("GW1", "GW2"),
		},
		{
			name:     "other txn drops wallet-only",
			accounts: accounts,
			elig:     lists(map[string][]string{"WALLET_ONLY_GATEWAYS": {"GW2"}}),
			expected: gateways("GW1"),
		},
	})

	runFilterCases(t, func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForTxnType }, []filterCase{
		{
			name:     "txn type list",
			accounts: accounts,
			elig:     lists(map[string][]string{"TXN_TYPE_SUPPORTED_GATEWAYS_AUTH_ONLY": {"GW2"}}),
			setup:    func(dc *DecisionContext) { dc.Txn.TxnType = "AUTH_ONLY" },
			expected: gateways("GW2"),
		},
	})

	runFilterCases(t, func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForTxnDetailType }, []filterCase{
		{
			name:     "source object list",
			accounts: accounts,
			elig:     lists(map[string][]string{"TXN_DETAIL_TYPE_SUPPORTED_GATEWAYS_PAYMENT_LINK": {"GW1"}}),
			setup:    func(dc *DecisionContext) { dc.Txn.SourceObject = "PAYMENT_LINK" },
			expected: gateways("GW1"),
		},
	})
}

func TestFilterForRequiredFlowAndSplitSettlement(t *testing.T) {
	sub := func(ids ...string) func(*models.MerchantGatewayAccount) {
		return func(m *models.MerchantGatewayAccount) {
			for _, id := range ids {
				m.SubAccounts = append(m.SubAccounts, models.SubAccount{SubMerchantID: id, VendorID: "v_" + id})
			}
		}
	}
	accounts := []models.MerchantGatewayAccount{
		with(mga("GW1"), sub("SM1", "SM2")),
		with(mga("GW2"), sub("SM9")),
		mga("GW3"),
	}

	runFilterCases(t, func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForMerchantRequiredFlow }, []filterCase{
		{
			name:     "mutual fund needs list and sub-merchants",
			accounts: accounts,
			elig:     lists(map[string][]string{"MUTUAL_FUND_FLOW_SUPPORTED_GATEWAYS": {"GW1", "GW2"}}),
			setup: func(dc *DecisionContext) {
				dc.Order.Metadata = `{"isMutualFund": true, "vendorSubMerchantIds": ["SM1"]}`
			},
			expected: gateways("GW1"),
		},
		{
			name:     "sbmd list absent empties",
			accounts: accounts,
			setup:    func(dc *DecisionContext) { dc.Order.Metadata = `{"isSbmd": true}` },
			expected: gateways(),
		},
	})

	runFilterCases(t, func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForSplitSettlement }, []filterCase{
		{
			name:     "split sub-merchants",
			accounts: accounts,
			setup:    func(dc *DecisionContext) { dc.Order.SplitSettlement = `{"vendors": [{"sub_mid": "SM9", "amount": 50}]}` },
			expected: gateways("GW2"),
		},
		{
			name:     "split list intersects",
			accounts: accounts,
			elig:     lists(map[string][]string{"SPLIT_SETTLEMENT_SUPPORTED_GATEWAYS": {"GW1"}}),
			setup:    func(dc *DecisionContext) { dc.Order.SplitSettlement = `{"vendors": [{"sub_mid": "SM2"}]}` },
			expected: gateways("GW1"),
		},
	})
}

func TestFilterForMgaSelection(t *testing.T) {
	tenures := func(id string, ts ...int) func(*models.MerchantGatewayAccount) {
		return func(m *models.MerchantGatewayAccount) { m.ID = id; m.EmiTenures = ts }
	}
	accounts := []models.MerchantGatewayAccount{
		with(mga("GW1"), tenures("a", 3)),
		with(mga("GW1"), tenures("b", 6, 9)),
		mga("GW2"),
	}

	runFilterCases(t, func(d *Decider) func(context.Context, *DecisionContext) { return d.filterForMgaSelection }, []filterCase{
		{
			name:     "ambiguous gateway dropped",
			accounts: accounts,
			setup:    func(dc *DecisionContext) { dc.Merchant.HasAmbiguousMGAConfig = true },
			expected: gateways("GW2"),
		},
		{
			name:     "emi tenure disambiguates",
			accounts: accounts,
			setup: func(dc *DecisionContext) {
				dc.Merchant.HasAmbiguousMGAConfig = true
				dc.Txn.IsEmi = true
				dc.Txn.EmiTenure = 6
			},
			expected: gateways("GW1", "GW2"),
		},
		{
			name:     "flag enables the check",
			accounts: accounts,
			elig:     config.EligibilityConfig{FeatureFlags: map[string][]string{FlagEnableMgaSelectionCheck: {"m1"}}},
			expected: gateways("GW2"),
		},
		{
			name:     "check off",
			accounts: accounts,
			expected: gateways("GW1", "GW2"),
		},
	})
}

func TestRunFilters_NeverGrowsAndRecordsEveryStage(t *testing.T) {
	accounts := []models.MerchantGatewayAccount{
		with(mga("GW1"), func(m *models.MerchantGatewayAccount) { m.SupportsOTP = true; m.SupportsSeamless = true }),
		with(mga("GW2"), func(m *models.MerchantGatewayAccount) { m.SupportsOTP = true }),
		mga("GW3"),
		mga("GW4"),
	}
	env := newTestEnv(t, &fakeStorage{cardInfo: []models.GatewayCardInfo{
		{Gateway: "GW1", ISIN: "411111", AuthType: models.AuthTypeOTP},
		{Gateway: "GW2", ISIN: "411111", AuthType: models.AuthTypeOTP},
	}}, lists(map[string][]string{
		"SODEXO_ONLY_GATEWAYS":  {"GW4"},
		"WALLET_ONLY_GATEWAYS":  {"GW3"},
		"NB_SUPPORTED_GATEWAYS": {"GW1"},
	}))
	dc := newContext(accounts...)
	asCard("VISA")(dc)
	dc.Card.AuthType = models.AuthTypeOTP
	dc.refresh()

	env.decider.runFilters(context.Background(), dc)

	require.Len(t, dc.Trail.Filters, len(env.decider.filterStages()))
	assert.Equal(t, "filterFunctionalGatewaysForCurrency", dc.Trail.Filters[0].Stage)
	assert.Equal(t, "filterForMgaSelection", dc.Trail.Filters[len(dc.Trail.Filters)-1].Stage)

	prev := gateways("GW1", "GW2", "GW3", "GW4")
	for _, entry := range dc.Trail.Filters {
		assert.Subset(t, prev, entry.Gateways, "stage %s grew the set", entry.Stage)
		prev = entry.Gateways
	}
	assert.Equal(t, gateways("GW1", "GW2"), dc.Functional.Gateways())
}

package decider

import (
	"context"

	"github.com/AnuragDani/gateway-decider/internal/models"
)

func (d *Decider) filterForEmi(ctx context.Context, dc *DecisionContext) {
	a := dc.Attributes
	if !a.IsEmi {
		return
	}
	if a.IsMandate {
		d.keepListed(ctx, dc, "SI_ON_EMI_SUPPORTED_GATEWAYS", absentEmpty)
	}
	if a.CardBrand != "" {
		d.removeListed(ctx, dc, "EMI_NOT_SUPPORTED_GATEWAYS_"+a.CardBrand)
	}
	switch dc.Txn.EmiType {
	case models.EmiTypeNoCost:
		d.keepListed(ctx, dc, "NO_COST_EMI_SUPPORTED_GATEWAYS", absentEmpty)
	case models.EmiTypeLowCost:
		d.keepListed(ctx, dc, "LOW_COST_EMI_SUPPORTED_GATEWAYS", absentEmpty)
	}
	if dc.Functional.Len() == 0 {
		return
	}

	mid := dc.Merchant.MerchantID
	if a.IsCard && dc.Card.CardISIN != "" && !d.lookup.Enabled(ctx, FlagDisableEmiBinCheck, mid) {
		eligible := d.cardInfoGateways(ctx, dc, models.CardInfoQuery{
			ISIN:           dc.Card.CardISIN,
			Gateways:       dc.Functional.Gateways(),
			ValidationType: models.ValidationTypeEmi,
		})
		dc.Functional.Keep(eligible)
	}

	bank := firstNonEmpty(dc.Txn.EmiBank, a.BankCode)
	if bank == "" || dc.Functional.Len() == 0 {
		return
	}
	q := models.EmiSupportQuery{
		Bank:     bank,
		Gateways: dc.Functional.Gateways(),
		Scope:    a.EmiScope,
		Tenure:   dc.Txn.EmiTenure,
		CardType: a.CardType,
	}
	var supported []models.Gateway
	if d.lookup.Enabled(ctx, FlagEnableGbesV2, mid) {
		rows, err := d.storage.GatewayBankEmiSupportV2(ctx, q)
		if err != nil {
			d.log.Error("Failed to load EMI support", "decision_id", dc.ID, "version", 2, "error", err)
		}
		for _, r := range rows {
			if !r.Disabled {
				supported = append(supported, r.Gateway)
			}
		}
	} else {
		rows, err := d.storage.GatewayBankEmiSupport(ctx, q)
		if err != nil {
			d.log.Error("Failed to load EMI support", "decision_id", dc.ID, "version", 1, "error", err)
		}
		for _, r := range rows {
			supported = append(supported, r.Gateway)
		}
	}
	dc.Functional.Keep(supported)
}

// filterForPaymentMethod has no fallback: an empty result is terminal
func (d *Decider) filterForPaymentMethod(ctx context.Context, dc *DecisionContext) {
	a := dc.Attributes
	method := a.PaymentMethod
	if a.IsCard {
		method = a.CardBrand
	}
	if method != "" {
		dc.Functional.NarrowByAccount(func(mga models.MerchantGatewayAccount) bool {
			return len(mga.PaymentMethods) == 0 || containsFold(mga.PaymentMethods, method)
		})
	}

	if a.PaymentMethodType != models.PaymentMethodTypeUPI {
		return
	}
	if a.PaymentSource == models.PaymentSourceUpiIntent {
		dc.Functional.NarrowByAccount(func(mga models.MerchantGatewayAccount) bool { return mga.SupportsUpiIntent })
	}
	if d.lookup.Enabled(ctx, FlagEnableUpiV2Integration, dc.Merchant.MerchantID) {
		d.keepListed(ctx, dc, "UPI_V2_INTEGRATED_GATEWAYS", absentAll)
	}
}

func (d *Decider) filterForTokenProvider(ctx context.Context, dc *DecisionContext) {
	a := dc.Attributes
	if a.TokenRepeat == models.TokenRepeatNone || a.TokenProvider == "" {
		return
	}
	d.keepListed(ctx, dc, "TOKEN_PROVIDER_SUPPORTED_GATEWAYS_"+a.TokenProvider, absentAll)
}

// typeFilter builds the include/exclude stage of one payment method type:
// txns of the type keep <PREFIX>_SUPPORTED_GATEWAYS, every other txn drops
// <PREFIX>_ONLY_GATEWAYS
func (d *Decider) typeFilter(pmt models.PaymentMethodType, prefix string) func(context.Context, *DecisionContext) {
	return func(ctx context.Context, dc *DecisionContext) {
		if dc.Attributes.PaymentMethodType == pmt {
			d.keepListed(ctx, dc, prefix+"_SUPPORTED_GATEWAYS", absentAll)
			return
		}
		d.removeListed(ctx, dc, prefix+"_ONLY_GATEWAYS")
	}
}

func (d *Decider) filterForTxnType(ctx context.Context, dc *DecisionContext) {
	if t := dc.Txn.TxnType; t != "" {
		d.keepListed(ctx, dc, "TXN_TYPE_SUPPORTED_GATEWAYS_"+t, absentAll)
	}
}

func (d *Decider) filterForTxnDetailType(ctx context.Context, dc *DecisionContext) {
	if src := dc.Txn.SourceObject; src != "" {
		d.keepListed(ctx, dc, "TXN_DETAIL_TYPE_SUPPORTED_GATEWAYS_"+src, absentAll)
	}
}

func (d *Decider) filterForMerchantRequiredFlow(ctx context.Context, dc *DecisionContext) {
	a := dc.Attributes
	if a.MutualFund {
		d.keepListed(ctx, dc, "MUTUAL_FUND_FLOW_SUPPORTED_GATEWAYS", absentEmpty)
		requireSubMerchants(dc, a.FlowSubMerchantIDs)
	}
	if a.CrossBorder {
		d.keepListed(ctx, dc, "CROSS_BORDER_FLOW_SUPPORTED_GATEWAYS", absentEmpty)
		requireSubMerchants(dc, a.FlowSubMerchantIDs)
	}
	if a.Sbmd {
		d.keepListed(ctx, dc, "SBMD_SUPPORTED_GATEWAYS", absentEmpty)
	}
}

func (d *Decider) filterForSplitSettlement(ctx context.Context, dc *DecisionContext) {
	ids := dc.Attributes.SplitSubMerchantIDs
	if len(ids) == 0 {
		return
	}
	requireSubMerchants(dc, ids)
	d.keepListed(ctx, dc, "SPLIT_SETTLEMENT_SUPPORTED_GATEWAYS", absentAll)
}

// requireSubMerchants keeps the MGAs registering every sub-merchant id
func requireSubMerchants(dc *DecisionContext, ids []string) {
	if len(ids) == 0 {
		return
	}
	dc.Functional.NarrowByAccount(func(mga models.MerchantGatewayAccount) bool {
		registered := make(map[string]bool, len(mga.SubAccounts))
		for _, sub := range mga.SubAccounts {
			registered[sub.SubMerchantID] = true
		}
		for _, id := range ids {
			if !registered[id] {
				return false
			}
		}
		return true
	})
}

func (d *Decider) filterForMgaSelection(ctx context.Context, dc *DecisionContext) {
	if !dc.Merchant.HasAmbiguousMGAConfig && !d.lookup.Enabled(ctx, FlagEnableMgaSelectionCheck, dc.Merchant.MerchantID) {
		return
	}

	if tenure := dc.Txn.EmiTenure; dc.Attributes.IsEmi && tenure > 0 {
		listing := make(map[models.Gateway]bool)
		for _, mga := range dc.Functional.Accounts() {
			if containsInt(mga.EmiTenures, tenure) {
				listing[mga.Gateway] = true
			}
		}
		dc.Functional.NarrowByAccount(func(mga models.MerchantGatewayAccount) bool {
			return !listing[mga.Gateway] || containsInt(mga.EmiTenures, tenure)
		})
	}

	counts := make(map[models.Gateway]int)
	for _, mga := range dc.Functional.Accounts() {
		counts[mga.Gateway]++
	}
	for _, gw := range dc.Functional.Gateways() {
		if counts[gw] > 1 {
			d.log.Error("mga_configuration_error",
				"decision_id", dc.ID,
				"merchant_id", dc.Merchant.MerchantID,
				"gateway", gw,
				"accounts", counts[gw])
		}
	}
	dc.Functional.NarrowByGateway(func(gw models.Gateway) bool { return counts[gw] == 1 })
}

func containsInt(values []int, want int) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

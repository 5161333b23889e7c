package decider

import (
	"context"
	"strings"
	"time"

	"github.com/AnuragDani/gateway-decider/internal/models"
	"github.com/AnuragDani/gateway-decider/internal/telemetry"
)

// applyOutages divides the score of every gateway hit by a potential outage
// by 10. Potential outages are those whose window intersects the lookback
// window ending now.
func (d *Decider) applyOutages(ctx context.Context, st *scoringState) {
	from := st.now.Add(-st.cfg.Outage.Lookback)
	outages, err := d.storage.ScheduledOutages(ctx, from, st.now)
	if err != nil {
		d.log.Error("Failed to load scheduled outages", "decision_id", st.dc.ID, "error", err)
		outages = nil
	}

	matched := make(map[models.Gateway][]string)
	for _, gw := range st.gateways {
		for _, o := range outages {
			if !outageActive(o, from, st.now) || !OutageMatches(o, st.dc, gw) {
				continue
			}
			if !st.outageHits[gw] {
				st.scores[gw] = st.scores[gw] / outagePenalty
				st.outageHits[gw] = true
			}
			matched[gw] = append(matched[gw], o.ID)
		}
	}

	st.dc.Trail.addScoring(stageOutage, st.scores)
	d.emit(ctx, st.dc, telemetry.StageOutageEvaluation, map[string]interface{}{
		"potential_outages": len(outages),
		"matched":           matched,
		"scores":            st.scores,
	})
}

func outageActive(o models.ScheduledOutage, from, to time.Time) bool {
	return !o.StartTime.After(to) && !o.EndTime.Before(from)
}

// OutageMatches reports whether the outage applies to gw for this
// transaction. Empty outage fields match everything.
func OutageMatches(o models.ScheduledOutage, dc *DecisionContext, gw models.Gateway) bool {
	a := dc.Attributes
	if o.MerchantID != "" && o.MerchantID != dc.Merchant.MerchantID {
		return false
	}
	if o.Gateway != "" && o.Gateway != gw {
		return false
	}
	if o.PaymentMethodType != "" && o.PaymentMethodType != a.PaymentMethodType {
		return false
	}
	if !matchField(o.PaymentMethod, firstNonEmpty(a.PaymentMethod, a.CardBrand)) {
		return false
	}
	if o.BankCode != "" || o.BankName != "" {
		byCode := o.BankCode != "" && strings.EqualFold(o.BankCode, a.BankCode)
		byName := o.BankName != "" && strings.EqualFold(o.BankName, a.BankName)
		if !byCode && !byName {
			return false
		}
	}

	m := o.Metadata
	if m.TxnObjectType != "" && m.TxnObjectType != dc.Txn.TxnObjectType {
		return false
	}
	return matchField(m.SourceObject, dc.Txn.SourceObject) &&
		matchField(m.CardType, a.CardType) &&
		matchField(m.UpiApp, a.UpiApp) &&
		matchField(m.UpiHandle, a.UpiHandle)
}

func matchField(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}

package decider

import (
	"context"
	"math"
	"time"

	"github.com/AnuragDani/gateway-decider/internal/config"
	"github.com/AnuragDani/gateway-decider/internal/models"
	"github.com/AnuragDani/gateway-decider/internal/telemetry"
)

// Feature flags consulted by the scoring engine
const (
	FlagEnableSrV3Routing             = "ENABLE_SR_V3_ROUTING"
	FlagEnableSrV3Elimination         = "ENABLE_SR_V3_ELIMINATION"
	FlagEnableGatewayLevelElimination = "ENABLE_GATEWAY_LEVEL_SR_ELIMINATION"
	FlagEnableUnifiedSrKey            = "ENABLE_UNIFIED_SR_KEY"
	FlagEnableExploreAndExploit       = "ENABLE_EXPLORE_AND_EXPLOIT_ON_SRV3"
)

// Scoring stage names recorded in the debug trail
const (
	stageInitial             = "initialScores"
	stagePriority            = "priorityLogic"
	stageSrV3Routing         = "srV3Routing"
	stageOutage              = "outageAdjusted"
	stageGlobalElimination   = "globalElimination"
	stageMerchantElimination = "merchantElimination"
	stageGatewayLevel        = "gatewayLevelElimination"
	stageHedging             = "hedging"
	stageExploreExploit      = "exploreExploit"
	stageFinal               = "finalScores"
)

const (
	outagePenalty      = 10.0
	eliminationPenalty = 5.0
	priorityStep       = 0.1
	hedgedTopScore     = 0.5
)

// scoringState is the in-flight state of one scoring run
type scoringState struct {
	dc       *DecisionContext
	cfg      *config.DeciderConfig
	keys     KeyBuilder
	gateways []models.Gateway
	scores   models.GatewayScoreMap
	now      time.Time

	srConfig  *merchantSrConfig
	v3        SrV3Params
	v3Routing bool
	v3Buckets map[models.Gateway]bucket
	v3Scores  models.GatewayScoreMap
	inputs    map[models.Gateway]GatewayWiseSuccessRateInput

	outageHits map[models.Gateway]bool
	globalHits map[models.Gateway]bool

	hedged    bool
	explored  bool
	srv2Reset bool
	srv3Reset bool
	elimReset bool
}

type scoreResult struct {
	scores        models.GatewayScoreMap
	approach      models.GatewayDeciderApproach
	resetApproach ResetApproach
	downTime      DownTime
}

func (d *Decider) newScoringState(ctx context.Context, dc *DecisionContext) *scoringState {
	cfg := d.Config()
	st := &scoringState{
		dc:         dc,
		cfg:        cfg,
		keys:       d.newKeyBuilder(ctx, dc.Merchant.MerchantID, dc.Order, dc.Txn, dc.Card, dc.Attributes),
		gateways:   dc.Functional.Gateways(),
		scores:     models.GatewayScoreMap{},
		now:        d.now(),
		srConfig:   d.decodeMerchantSrConfig(dc.Merchant),
		outageHits: map[models.Gateway]bool{},
		globalHits: map[models.Gateway]bool{},
	}
	v3cfg, ok := d.decodeSrV3Config(dc.Merchant)
	st.v3Routing = ok && d.lookup.Enabled(ctx, FlagEnableSrV3Routing, dc.Merchant.MerchantID)
	st.v3 = resolveSrV3Params(cfg, v3cfg, st.keys.PaymentMethodType, st.keys.PaymentMethod)
	return st
}

// score runs Initial, Priority, OutageAdjusted, SR elimination,
// Exploration/Hedging and Final in that order
func (d *Decider) score(ctx context.Context, dc *DecisionContext) scoreResult {
	st := d.newScoringState(ctx, dc)

	switch len(st.gateways) {
	case 0:
		dc.Trail.addScoring(stageFinal, st.scores)
		return scoreResult{
			scores:        st.scores,
			approach:      models.ApproachNone,
			resetApproach: NoReset,
			downTime:      NoDownTime,
		}
	case 1:
		return d.scoreSingle(ctx, st)
	}

	if st.v3Routing {
		st.scores = d.srV3Scores(ctx, st).Clone()
		dc.Trail.addScoring(stageSrV3Routing, st.scores)
	} else {
		st.scores = PriorityScores(st.gateways, d.priorityList(dc))
		dc.Trail.addScoring(stagePriority, st.scores)
	}

	d.applyOutages(ctx, st)
	d.eliminate(ctx, st)

	if st.v3Routing {
		if d.lookup.Enabled(ctx, FlagEnableExploreAndExploit, dc.Merchant.MerchantID) {
			d.exploreOrExploit(st)
			dc.Trail.addScoring(stageExploreExploit, st.scores)
		} else {
			d.hedge(st)
			dc.Trail.addScoring(stageHedging, st.scores)
		}
	}

	for gw, s := range st.scores {
		st.scores[gw] = clamp01(s)
	}
	dc.Trail.addScoring(stageFinal, st.scores)

	result := scoreResult{
		scores:        st.scores,
		approach:      st.approach(),
		resetApproach: st.resetApproach(),
		downTime:      st.downTime(),
	}
	d.emitFinal(ctx, st, result)
	return result
}

// scoreSingle returns {gw: 1.0}. Elimination still runs, on a scratch map,
// for its cache side effects.
func (d *Decider) scoreSingle(ctx context.Context, st *scoringState) scoreResult {
	gw := st.gateways[0]
	final := models.GatewayScoreMap{gw: 1.0}
	st.dc.Trail.addScoring(stageInitial, final)

	st.scores = final.Clone()
	d.eliminate(ctx, st)
	st.dc.Trail.addScoring(stageFinal, final)

	result := scoreResult{
		scores:        final,
		approach:      models.ApproachDefault,
		resetApproach: st.resetApproach(),
		downTime:      st.downTime(),
	}
	d.emitFinal(ctx, st, result)
	return result
}

func (d *Decider) emitFinal(ctx context.Context, st *scoringState, result scoreResult) {
	d.emit(ctx, st.dc, telemetry.StageFinalScoring, map[string]interface{}{
		"scores":         result.scores,
		"approach":       result.approach,
		"reset_approach": result.resetApproach,
		"downtime":       result.downTime,
	})
}

// priorityList is the priority logic output, else the merchant default
func (d *Decider) priorityList(dc *DecisionContext) []models.Gateway {
	if len(dc.PriorityLogic.Gateways) > 0 {
		return dc.PriorityLogic.Gateways
	}
	return dc.Merchant.PriorityList
}

// PriorityScores assigns 1.0, 0.9, 0.8, ... to the listed functional
// gateways in list order, then continues the sequence over the rest in
// functional order. Scores never go below 0.
func PriorityScores(functional, priority []models.Gateway) models.GatewayScoreMap {
	ordered := make([]models.Gateway, 0, len(functional))
	placed := make(map[models.Gateway]bool, len(functional))
	isFunctional := gatewaySet(functional)
	for _, gw := range priority {
		if isFunctional[gw] && !placed[gw] {
			ordered = append(ordered, gw)
			placed[gw] = true
		}
	}
	for _, gw := range functional {
		if !placed[gw] {
			ordered = append(ordered, gw)
			placed[gw] = true
		}
	}

	scores := make(models.GatewayScoreMap, len(ordered))
	for i, gw := range ordered {
		scores[gw] = priorityScore(i)
	}
	return scores
}

// priorityScore steps down by priorityStep from 1 while that stays positive,
// then keeps shrinking as priorityStep/k so later ranks never tie
func priorityScore(rank int) float64 {
	linearRanks := int(math.Round(1 / priorityStep))
	if rank < linearRanks {
		return roundScore(1.0 - priorityStep*float64(rank))
	}
	return roundScore(priorityStep / float64(rank-linearRanks+2))
}

// hedge sends some traffic away from the top gateway: with probability
// hedgingPercent*(n-1) percent the top gateway gets 0.5 and the rest 1.0
func (d *Decider) hedge(st *scoringState) {
	n := len(st.scores)
	if n < 2 {
		return
	}
	u := d.rand.Float64() * 100
	if u >= st.v3.HedgingPercent*float64(n-1) {
		return
	}
	top, _, _ := st.scores.Top()
	for gw := range st.scores {
		st.scores[gw] = 1.0
	}
	st.scores[top] = hedgedTopScore
	st.hedged = true
}

// exploreOrExploit either replaces every score with a fresh uniform draw in
// (0,1] or keeps the cached scores. The per-gateway draw stands in for
// resetting all gateways to a unitary 1.0, so ties between them are broken
// at random instead of by map order.
func (d *Decider) exploreOrExploit(st *scoringState) {
	u := d.rand.Float64() * 100
	if u >= st.v3.ExplorePercent {
		return
	}
	for _, gw := range st.scores.Gateways() {
		st.scores[gw] = 1.0 - d.rand.Float64()
	}
	st.explored = true
}

func (st *scoringState) downTime() DownTime {
	n := len(st.gateways)
	if n == 0 {
		return NoDownTime
	}
	outages, globals := 0, 0
	for _, gw := range st.gateways {
		if st.outageHits[gw] {
			outages++
		}
		if st.globalHits[gw] {
			globals++
		}
	}
	switch {
	case outages == n:
		return AllDowntime
	case globals == n:
		return GlobalDowntime
	case outages > 0 || globals > 0:
		return Downtime
	}
	return NoDownTime
}

func (st *scoringState) approach() models.GatewayDeciderApproach {
	dt := st.downTime()
	if !st.v3Routing {
		switch dt {
		case Downtime:
			return models.ApproachPLDowntimeRouting
		case GlobalDowntime:
			return models.ApproachPLGlobalDowntimeRouting
		case AllDowntime:
			return models.ApproachPLAllDowntimeRouting
		}
		return models.ApproachPriorityLogic
	}
	if st.explored {
		return models.ApproachSrV3Explore
	}
	if st.hedged {
		switch dt {
		case Downtime:
			return models.ApproachSrV3DowntimeHedging
		case GlobalDowntime:
			return models.ApproachSrV3GlobalDowntimeHedging
		case AllDowntime:
			return models.ApproachSrV3AllDowntimeHedging
		}
		return models.ApproachSrV3Hedging
	}
	switch dt {
	case Downtime:
		return models.ApproachSrV3DowntimeRouting
	case GlobalDowntime:
		return models.ApproachSrV3GlobalDowntimeRouting
	case AllDowntime:
		return models.ApproachSrV3AllDowntimeRouting
	}
	return models.ApproachSrV3Routing
}

func (st *scoringState) resetApproach() ResetApproach {
	switch {
	case st.srv3Reset && st.elimReset:
		return SrV3EliminationReset
	case st.srv2Reset && st.elimReset:
		return SrV2EliminationReset
	case st.srv3Reset:
		return SrV3Reset
	case st.srv2Reset:
		return SrV2Reset
	case st.elimReset:
		return EliminationReset
	}
	return NoReset
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// roundScore trims float noise from step arithmetic
func roundScore(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

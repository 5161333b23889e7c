package decider

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/AnuragDani/gateway-decider/internal/cache"
	"github.com/AnuragDani/gateway-decider/internal/models"
	"github.com/AnuragDani/gateway-decider/internal/telemetry"
)

// globalRelaxation is subtracted from the global threshold when the bottom
// of the ranked list is entirely below it
const globalRelaxation = 0.1

// eliminate runs global, merchant and gateway-level elimination in order
func (d *Decider) eliminate(ctx context.Context, st *scoringState) {
	st.inputs = make(map[models.Gateway]GatewayWiseSuccessRateInput, len(st.gateways))
	for _, gw := range st.gateways {
		st.inputs[gw] = d.resolveSrInput(ctx, st.cfg, st.srConfig, gw)
	}

	d.eliminateGlobal(ctx, st)
	st.dc.Trail.addScoring(stageGlobalElimination, st.scores)

	d.eliminateMerchant(ctx, st)
	st.dc.Trail.addScoring(stageMerchantElimination, st.scores)

	mid := st.dc.Merchant.MerchantID
	if d.lookup.Enabled(ctx, FlagEnableGatewayLevelElimination, mid) && !d.lookup.Enabled(ctx, FlagEnableUnifiedSrKey, mid) {
		d.eliminateGatewayLevel(ctx, st)
		st.dc.Trail.addScoring(stageGatewayLevel, st.scores)
	}
}

// eliminateGlobal compares each gateway's cross-merchant score with its
// global threshold
func (d *Decider) eliminateGlobal(ctx context.Context, st *scoringState) {
	type evaluation struct {
		Key       string  `json:"key"`
		Score     float64 `json:"score"`
		Threshold float64 `json:"threshold"`
		Relaxed   bool    `json:"relaxed"`
		Ranked    int     `json:"ranked"`
	}
	evals := make(map[models.Gateway]evaluation)

	for _, gw := range st.gateways {
		in := d.resolveGlobalSrInput(ctx, st.cfg, st.srConfig, gw)
		if in.EliminationLevel == models.EliminationLevelNone {
			continue
		}
		key := st.keys.Key(EliminationGlobalKey, gw, in.EliminationLevel)
		ranked := d.rankedGlobalScores(ctx, key, st.dc.Merchant.MerchantID)

		threshold := in.EliminationThreshold
		relaxed := BottomBelow(ranked, in.EliminationMaxCount, threshold)
		if relaxed {
			threshold -= globalRelaxation
		}

		current := 1.0
		if gs, ok := d.readGatewayScore(ctx, key); ok {
			current = gs.Score
		}
		if current < threshold {
			st.scores[gw] = st.scores[gw] / eliminationPenalty
			st.globalHits[gw] = true
		}
		evals[gw] = evaluation{Key: key, Score: current, Threshold: threshold, Relaxed: relaxed, Ranked: len(ranked)}
	}

	d.emit(ctx, st.dc, telemetry.StageGlobalElimination, map[string]interface{}{
		"gateways":   evals,
		"eliminated": st.globalHits,
	})
}

// BottomBelow reports whether the n lowest of the ascending ranked scores
// all fall below threshold. Fewer than n scores never qualify.
func BottomBelow(ranked []float64, n int, threshold float64) bool {
	if n <= 0 || len(ranked) < n {
		return false
	}
	for _, s := range ranked[:n] {
		if s >= threshold {
			return false
		}
	}
	return true
}

// rankedGlobalScores returns the other merchants' scores for a global key,
// ascending
func (d *Decider) rankedGlobalScores(ctx context.Context, key, merchantID string) []float64 {
	entries, err := d.cache.HGetAll(ctx, key+":merchants")
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			d.log.Error("Failed to read global ranking", "key", key, "error", err)
		}
		return nil
	}
	ranked := make([]float64, 0, len(entries))
	for mid, raw := range entries {
		if mid == merchantID {
			continue
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			ranked = append(ranked, v)
		}
	}
	sort.Float64s(ranked)
	return ranked
}

// eliminateMerchant runs SR-V3 elimination when enabled or when SR-V3
// routing is engaged, SR-V2 otherwise. Stale cached elimination scores are
// reset along the way.
func (d *Decider) eliminateMerchant(ctx context.Context, st *scoringState) {
	if st.v3Routing || d.lookup.Enabled(ctx, FlagEnableSrV3Elimination, st.dc.Merchant.MerchantID) {
		d.eliminateSrV3(ctx, st)
	} else {
		d.eliminateSrV2(ctx, st)
	}

	keys := st.keys.BuildKeys(EliminationMerchantKey, st.gateways, func(gw models.Gateway) models.EliminationLevel {
		return st.inputs[gw].EliminationLevel
	})
	for _, gw := range st.gateways {
		in := st.inputs[gw]
		if in.EliminationLevel == models.EliminationLevelNone {
			continue
		}
		key := keys[gw]
		gs, ok := d.readGatewayScore(ctx, key)
		if !ok {
			continue
		}
		in.CurrentScore = gs.Score
		in.LastResetTimestamp = gs.LastResetTimestamp
		st.inputs[gw] = in
		if d.resetGatewayScore(ctx, st, key, gs, in.EliminationThreshold, in.EliminationLevel) {
			st.elimReset = true
		}
	}
}

// eliminateGatewayLevel compares the merchant's gateway-wide score with the
// gateway-level threshold
func (d *Decider) eliminateGatewayLevel(ctx context.Context, st *scoringState) {
	evals := make(map[models.Gateway]float64)
	keys := st.keys.BuildKeys(GatewayLevelKey, st.gateways, nil)
	for _, gw := range st.gateways {
		in := st.inputs[gw]
		key := keys[gw]
		gs, ok := d.readGatewayScore(ctx, key)
		if !ok {
			continue
		}
		evals[gw] = gs.Score
		if gs.Score < in.GatewayLevelThreshold {
			st.scores[gw] = st.scores[gw] / eliminationPenalty
		}
		if d.resetGatewayScore(ctx, st, key, gs, in.GatewayLevelThreshold, models.EliminationLevelGateway) {
			st.elimReset = true
		}
	}
	d.emit(ctx, st.dc, telemetry.StageGatewayLevelElimination, map[string]interface{}{
		"scores": evals,
	})
}

// readGatewayScore reports false when the key is missing or unreadable
func (d *Decider) readGatewayScore(ctx context.Context, key string) (models.GatewayScore, bool) {
	raw, err := d.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			d.log.Error("Failed to read gateway score", "key", key, "error", err)
		}
		return models.GatewayScore{}, false
	}
	var gs models.GatewayScore
	if err := json.Unmarshal([]byte(raw), &gs); err != nil {
		d.log.Warn("Malformed gateway score", "key", key, "error", err)
		return models.GatewayScore{}, false
	}
	return gs, true
}

func (d *Decider) writeGatewayScore(ctx context.Context, key string, gs models.GatewayScore, ttl time.Duration) error {
	raw, err := json.Marshal(gs)
	if err != nil {
		return err
	}
	return d.cache.Set(ctx, key, string(raw), ttl)
}

func (d *Decider) logReset(ctx context.Context, st *scoringState, kind, key string, score float64) {
	d.log.Info("Score reset", "decision_id", st.dc.ID, "kind", kind, "key", key, "reset_score", score)
	d.emit(ctx, st.dc, telemetry.StageScoreReset, map[string]interface{}{
		"kind":        kind,
		"key":         key,
		"reset_score": score,
	})
}

package decider

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"github.com/AnuragDani/gateway-decider/internal/cache"
	"github.com/AnuragDani/gateway-decider/internal/config"
	"github.com/AnuragDani/gateway-decider/internal/models"
	"github.com/AnuragDani/gateway-decider/internal/telemetry"
)

// SrV2Block aggregates the outcomes of consecutive transactions
type SrV2Block struct {
	Total   int `json:"total"`
	Success int `json:"success"`
}

// SrV2Record is the value stored for one gateway under the shared SR-V2
// key. Blocks are newest first.
type SrV2Record struct {
	Blocks             []SrV2Block `json:"blocks"`
	LastResetTimestamp int64       `json:"last_reset_timestamp"`
}

// SrV2Score is the weighted mean of the block scores. A block scores 1.0
// when it is too small or too insignificant against the total volume;
// block weights decay geometrically with age when weighting is enabled.
func SrV2Score(blocks []SrV2Block, cfg config.SrV2Config) float64 {
	if len(blocks) == 0 {
		return 1.0
	}
	total := 0
	for _, b := range blocks {
		total += b.Total
	}
	var weighted, weights float64
	for i, b := range blocks {
		w := 1.0
		if cfg.WeightingEnabled {
			w = math.Pow(cfg.DecayFactor, float64(i))
		}
		s := 1.0
		insignificant := float64(b.Total) < cfg.VolumeThresholdPercent/100*float64(total)
		if b.Total >= cfg.MinBlockTxns && !insignificant && b.Total > 0 {
			s = math.Min(1.0, float64(b.Success)/float64(b.Total))
		}
		weighted += w * s
		weights += w
	}
	if weights == 0 {
		return 1.0
	}
	return clamp01(weighted / weights)
}

func (d *Decider) readSrV2Records(ctx context.Context, key string) map[models.Gateway]SrV2Record {
	out := make(map[models.Gateway]SrV2Record)
	fields, err := d.cache.HGetAll(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			d.log.Error("Failed to read SR-V2 blocks", "key", key, "error", err)
		}
		return out
	}
	for field, raw := range fields {
		var rec SrV2Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			d.log.Warn("Malformed SR-V2 record", "key", key, "gateway", field, "error", err)
			continue
		}
		out[models.Gateway(field)] = rec
	}
	return out
}

// readSrV2Record reads one gateway's blocks; missing or malformed records
// start empty
func (d *Decider) readSrV2Record(ctx context.Context, key string, gw models.Gateway) SrV2Record {
	var rec SrV2Record
	raw, err := d.cache.HGet(ctx, key, string(gw))
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			d.log.Error("Failed to read SR-V2 blocks", "key", key, "gateway", gw, "error", err)
		}
		return rec
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		d.log.Warn("Malformed SR-V2 record", "key", key, "gateway", gw, "error", err)
		return SrV2Record{}
	}
	return rec
}

func (d *Decider) writeSrV2Record(ctx context.Context, key string, gw models.Gateway, rec SrV2Record, cfg *config.DeciderConfig) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := d.cache.HSet(ctx, key, string(gw), string(raw)); err != nil {
		return err
	}
	return d.cache.Expire(ctx, key, cfg.Cache.ScoreTTL)
}

// eliminateSrV2 penalizes gateways whose block score is below threshold and
// resets the stale ones to a single soft block
func (d *Decider) eliminateSrV2(ctx context.Context, st *scoringState) {
	key := st.keys.Key(SrV2Key, "", "")
	records := d.readSrV2Records(ctx, key)

	type evaluation struct {
		Blocks    int     `json:"blocks"`
		Score     float64 `json:"score"`
		Threshold float64 `json:"threshold"`
	}
	evals := make(map[models.Gateway]evaluation, len(st.gateways))
	for _, gw := range st.gateways {
		in := st.inputs[gw]
		if in.EliminationLevel == models.EliminationLevelNone {
			continue
		}
		rec := records[gw]
		s := SrV2Score(rec.Blocks, st.cfg.SrV2)
		evals[gw] = evaluation{Blocks: len(rec.Blocks), Score: s, Threshold: in.EliminationThreshold}
		if s >= in.EliminationThreshold {
			continue
		}
		st.scores[gw] = st.scores[gw] / eliminationPenalty

		if !resetDue(st.now, rec.LastResetTimestamp, ResetTTL(st.cfg.ResetTTL, in.EliminationLevel)) {
			continue
		}
		rs := GetResetScore(in.EliminationThreshold, st.cfg.Elimination.PenaltyFactor, st.cfg.Elimination.MaxAllowedFailures)
		count := in.SoftTxnResetCount
		reset := SrV2Record{
			Blocks:             []SrV2Block{{Total: count, Success: int(math.Round(rs * float64(count)))}},
			LastResetTimestamp: st.now.UnixMilli(),
		}
		if err := d.writeSrV2Record(ctx, key, gw, reset, st.cfg); err != nil {
			d.log.Error("Failed to reset SR-V2 blocks", "decision_id", st.dc.ID, "key", key, "gateway", gw, "error", err)
			continue
		}
		st.srv2Reset = true
		d.logReset(ctx, st, "srv2", key+"#"+string(gw), rs)
	}

	d.emit(ctx, st.dc, telemetry.StageSrV2Evaluation, map[string]interface{}{
		"key":      key,
		"gateways": evals,
	})
}

package decider

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/AnuragDani/gateway-decider/internal/cache"
	"github.com/AnuragDani/gateway-decider/internal/config"
	"github.com/AnuragDani/gateway-decider/internal/models"
)

// GetResetScore is the score a suppressed dimension is reset to: the
// threshold inflated by the penalty the next maxAllowedFailures-1 failures
// would apply, capped at 1
func GetResetScore(threshold, penaltyFactor float64, maxAllowedFailures int) float64 {
	if penaltyFactor >= 100 {
		return 1.0
	}
	exp := maxAllowedFailures - 1
	if exp < 0 {
		exp = 0
	}
	score := threshold / math.Pow(1-penaltyFactor/100, float64(exp))
	return math.Min(1.0, score)
}

// ResetTTL is the cooldown between two resets of one dimension
func ResetTTL(cfg config.ResetTTLConfig, level models.EliminationLevel) time.Duration {
	switch level {
	case models.EliminationLevelPaymentMethodType:
		return cfg.PaymentMethodType
	case models.EliminationLevelPaymentMethod, models.EliminationLevelForcedPaymentMethod:
		return cfg.PaymentMethod
	}
	return cfg.Gateway
}

// resetDue reports whether the last reset is older than ttl
func resetDue(now time.Time, lastResetMs int64, ttl time.Duration) bool {
	return now.UnixMilli()-lastResetMs >= ttl.Milliseconds()
}

// ResetWindow builds a bucket of n outcomes with zeros failures spread at
// floor(k*n/zeros), newest first
func ResetWindow(n, zeros int) []string {
	if zeros < 0 {
		zeros = 0
	}
	if zeros > n {
		zeros = n
	}
	window := make([]string, n)
	for i := range window {
		window[i] = "1"
	}
	for k := 0; k < zeros; k++ {
		window[k*n/zeros] = "0"
	}
	return window
}

// zerosFor is the number of failures that gives a bucket of n the score s
func zerosFor(n int, s float64) int {
	zeros := int(math.Round(float64(n) * (1 - clamp01(s))))
	if zeros > n {
		return n
	}
	return zeros
}

// rewriteBucket replaces an SR-V3 bucket in one atomic batch
func (d *Decider) rewriteBucket(ctx context.Context, key string, n, zeros int, ttl time.Duration, now time.Time) error {
	window := ResetWindow(n, zeros)
	keys := bucketKeys(key)
	batch := cache.NewBatch().
		Delete(keys.queue).
		RPush(keys.queue, window...).
		Set(keys.score, strconv.Itoa(n-zeros), ttl).
		Set(keys.resetTS, strconv.FormatInt(now.UnixMilli(), 10), ttl).
		Expire(keys.queue, ttl)
	return d.cache.Exec(ctx, batch)
}

// resetBucket resets a suppressed SR-V3 bucket toward the reset score
func (d *Decider) resetBucket(ctx context.Context, st *scoringState, gw models.Gateway, in GatewayWiseSuccessRateInput) bool {
	b := st.v3Buckets[gw]
	n := st.v3.BucketSize
	if !resetDue(st.now, b.lastReset, ResetTTL(st.cfg.ResetTTL, in.EliminationLevel)) {
		return false
	}
	rs := GetResetScore(in.EliminationThreshold, st.cfg.Elimination.PenaltyFactor, st.cfg.Elimination.MaxAllowedFailures)
	zeros := zerosFor(n, rs)
	key := st.keys.Key(SrV3Key, gw, "")
	if err := d.rewriteBucket(ctx, key, n, zeros, st.cfg.Cache.ScoreTTL, st.now); err != nil {
		d.log.Error("Failed to reset SR-V3 bucket", "decision_id", st.dc.ID, "key", key, "error", err)
		return false
	}
	d.logReset(ctx, st, "srv3", key, rs)
	return true
}

// fullBucketReset pulls every stale bucket far below the best gateway back
// to max - upperResetFactor*sigma
func (d *Decider) fullBucketReset(ctx context.Context, st *scoringState, done map[models.Gateway]bool) {
	n := st.v3.BucketSize
	var best float64
	for _, gw := range st.gateways {
		best = math.Max(best, st.v3Buckets[gw].point(n))
	}
	sigma := math.Sqrt(best * (1 - best) / float64(n))
	if sigma == 0 {
		return
	}
	lower := best - st.v3.LowerResetFactor*sigma
	target := best - st.v3.UpperResetFactor*sigma

	for _, gw := range st.gateways {
		in := st.inputs[gw]
		b := st.v3Buckets[gw]
		if done[gw] || in.EliminationLevel == models.EliminationLevelNone || b.point(n) >= lower {
			continue
		}
		if !resetDue(st.now, b.lastReset, ResetTTL(st.cfg.ResetTTL, in.EliminationLevel)) {
			continue
		}
		key := st.keys.Key(SrV3Key, gw, "")
		zeros := zerosFor(n, target)
		if err := d.rewriteBucket(ctx, key, n, zeros, st.cfg.Cache.ScoreTTL, st.now); err != nil {
			d.log.Error("Failed to reset SR-V3 bucket", "decision_id", st.dc.ID, "key", key, "error", err)
			continue
		}
		done[gw] = true
		st.srv3Reset = true
		d.logReset(ctx, st, "srv3_full_bucket", key, float64(n-zeros)/float64(n))
	}
}

// resetGatewayScore resets a suppressed cached elimination score
func (d *Decider) resetGatewayScore(ctx context.Context, st *scoringState, key string, gs models.GatewayScore, threshold float64, level models.EliminationLevel) bool {
	if gs.Score >= threshold || !resetDue(st.now, gs.LastResetTimestamp, ResetTTL(st.cfg.ResetTTL, level)) {
		return false
	}
	gs.Score = GetResetScore(threshold, st.cfg.Elimination.PenaltyFactor, st.cfg.Elimination.MaxAllowedFailures)
	gs.LastResetTimestamp = st.now.UnixMilli()
	gs.Timestamp = gs.LastResetTimestamp
	if err := d.writeGatewayScore(ctx, key, gs, st.cfg.Cache.ScoreTTL); err != nil {
		d.log.Error("Failed to reset elimination score", "decision_id", st.dc.ID, "key", key, "error", err)
		return false
	}
	d.logReset(ctx, st, "elimination", key, gs.Score)
	return true
}

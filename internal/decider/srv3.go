package decider

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/AnuragDani/gateway-decider/internal/cache"
	"github.com/AnuragDani/gateway-decider/internal/models"
	"github.com/AnuragDani/gateway-decider/internal/telemetry"
)

// Sampling modes for the SR-V3 point estimate
const (
	SamplingNone     = "none"
	SamplingBinomial = "binomial"
	SamplingBeta     = "beta"
)

type srV3Keys struct {
	queue   string
	score   string
	resetTS string
}

// bucketKeys derives the three cache keys of one bucket: the 0/1 outcome
// list (newest at the head), the success count and the last reset time
func bucketKeys(key string) srV3Keys {
	return srV3Keys{queue: key + ":queue", score: key + ":score", resetTS: key + ":reset_ts"}
}

// bucket is the cached state of one SR-V3 window
type bucket struct {
	successes int
	lastReset int64
	cached    bool
}

func (b bucket) point(n int) float64 {
	return clamp01(float64(b.successes) / float64(n))
}

// readBucket loads a bucket; a missing bucket counts as all successes
func (d *Decider) readBucket(ctx context.Context, key string, n int) bucket {
	keys := bucketKeys(key)
	b := bucket{successes: n}

	raw, err := d.cache.Get(ctx, keys.score)
	switch {
	case err == nil:
		if v, perr := strconv.Atoi(raw); perr == nil {
			b.successes = min(max(v, 0), n)
			b.cached = true
		} else {
			d.log.Warn("Malformed SR-V3 score", "key", keys.score, "value", raw)
		}
	case !errors.Is(err, cache.ErrNotFound):
		d.log.Error("Failed to read SR-V3 score", "key", keys.score, "error", err)
	}

	if raw, err := d.cache.Get(ctx, keys.resetTS); err == nil {
		b.lastReset, _ = strconv.ParseInt(raw, 10, 64)
	}
	return b
}

// BucketScore turns a success count into the routing score: the point
// estimate, optionally replaced by a binomial or beta draw, plus
// sigma*sigmaFactor, clamped to [0,1]
func BucketScore(r RandomSource, sampling string, successes, n int, sigmaFactor float64) float64 {
	if n <= 0 {
		return 1.0
	}
	p := clamp01(float64(successes) / float64(n))
	sigma := math.Sqrt(p * (1 - p) / float64(n))

	s := p
	switch sampling {
	case SamplingBinomial:
		s = r.Binomial(n, p) / float64(n)
	case SamplingBeta:
		if p > 0 && p < 1 {
			s = r.Beta(float64(n)*p, float64(n)*(1-p))
		}
	}
	return clamp01(s + sigma*sigmaFactor)
}

// srV3Scores reads every gateway's bucket once per decision
func (d *Decider) srV3Scores(ctx context.Context, st *scoringState) models.GatewayScoreMap {
	if st.v3Scores != nil {
		return st.v3Scores
	}
	n := st.v3.BucketSize
	st.v3Buckets = make(map[models.Gateway]bucket, len(st.gateways))
	st.v3Scores = make(models.GatewayScoreMap, len(st.gateways))

	type evaluation struct {
		Key       string  `json:"key"`
		Successes int     `json:"successes"`
		Cached    bool    `json:"cached"`
		Score     float64 `json:"score"`
	}
	evals := make(map[models.Gateway]evaluation, len(st.gateways))
	keys := st.keys.BuildKeys(SrV3Key, st.gateways, nil)
	for _, gw := range st.gateways {
		key := keys[gw]
		b := d.readBucket(ctx, key, n)
		st.v3Buckets[gw] = b
		st.v3Scores[gw] = BucketScore(d.rand, st.cfg.SrV3.Sampling, b.successes, n, st.v3.SigmaFactor(gw))
		evals[gw] = evaluation{Key: key, Successes: b.successes, Cached: b.cached, Score: st.v3Scores[gw]}
	}

	d.emit(ctx, st.dc, telemetry.StageSrV3Evaluation, map[string]interface{}{
		"bucket_size": n,
		"gateways":    evals,
	})
	return st.v3Scores
}

// eliminateSrV3 penalizes gateways whose bucket score is below threshold and
// schedules resets for the stale ones
func (d *Decider) eliminateSrV3(ctx context.Context, st *scoringState) {
	v3 := d.srV3Scores(ctx, st)
	done := make(map[models.Gateway]bool)
	for _, gw := range st.gateways {
		in := st.inputs[gw]
		if in.EliminationLevel == models.EliminationLevelNone {
			continue
		}
		if v3[gw] >= in.EliminationThreshold {
			continue
		}
		st.scores[gw] = st.scores[gw] / eliminationPenalty
		if d.resetBucket(ctx, st, gw, in) {
			done[gw] = true
			st.srv3Reset = true
		}
	}
	d.fullBucketReset(ctx, st, done)
}

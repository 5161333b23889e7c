package decider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/AnuragDani/gateway-decider/internal/cache"
	"github.com/AnuragDani/gateway-decider/internal/models"
)

// OutcomeInput reports how a routed transaction ended
type OutcomeInput struct {
	Merchant models.MerchantAccount `json:"merchant"`
	Order    models.Order           `json:"order"`
	Txn      models.TxnDetail       `json:"txn"`
	Card     models.TxnCardInfo     `json:"card"`
	Gateway  models.Gateway         `json:"gateway"`
	Success  bool                   `json:"success"`
}

// RecordOutcome feeds an outcome back into every counter the scoring engine
// reads. Concurrent updates of one key may lose writes. All updates are
// attempted; the returned error joins the ones that failed.
func (d *Decider) RecordOutcome(ctx context.Context, in OutcomeInput) error {
	if in.Gateway == "" {
		return fmt.Errorf("outcome has no gateway")
	}
	cfg := d.Config()
	now := d.now()
	attrs, err := ResolveAttributes(in.Order, in.Txn, in.Card)
	if err != nil {
		d.log.Warn("Malformed transaction metadata, treating as absent", "merchant_id", in.Merchant.MerchantID, "error", err)
	}
	kb := d.newKeyBuilder(ctx, in.Merchant.MerchantID, in.Order, in.Txn, in.Card, attrs)
	v3cfg, _ := d.decodeSrV3Config(in.Merchant)
	params := resolveSrV3Params(cfg, v3cfg, kb.PaymentMethodType, kb.PaymentMethod)
	mc := d.decodeMerchantSrConfig(in.Merchant)
	srIn := d.resolveSrInput(ctx, cfg, mc, in.Gateway)
	globalIn := d.resolveGlobalSrInput(ctx, cfg, mc, in.Gateway)

	var errs []error
	if err := d.recordBucket(ctx, kb.Key(SrV3Key, in.Gateway, ""), params.BucketSize, in.Success); err != nil {
		errs = append(errs, fmt.Errorf("sr v3 bucket: %w", err))
	}
	if err := d.recordBlocks(ctx, kb.Key(SrV2Key, in.Gateway, ""), in.Gateway, in.Success); err != nil {
		errs = append(errs, fmt.Errorf("sr v2 blocks: %w", err))
	}
	if srIn.EliminationLevel != models.EliminationLevelNone {
		key := kb.Key(EliminationMerchantKey, in.Gateway, srIn.EliminationLevel)
		if _, err := d.recordGatewayScore(ctx, key, in.Success, now.UnixMilli()); err != nil {
			errs = append(errs, fmt.Errorf("merchant score: %w", err))
		}
	}
	if _, err := d.recordGatewayScore(ctx, kb.Key(GatewayLevelKey, in.Gateway, ""), in.Success, now.UnixMilli()); err != nil {
		errs = append(errs, fmt.Errorf("gateway level score: %w", err))
	}
	if globalIn.EliminationLevel != models.EliminationLevelNone {
		key := kb.Key(EliminationGlobalKey, in.Gateway, globalIn.EliminationLevel)
		score, err := d.recordGatewayScore(ctx, key, in.Success, now.UnixMilli())
		if err != nil {
			errs = append(errs, fmt.Errorf("global score: %w", err))
		} else if err := d.cache.HSet(ctx, key+":merchants", in.Merchant.MerchantID, strconv.FormatFloat(score, 'f', -1, 64)); err != nil {
			errs = append(errs, fmt.Errorf("global ranking: %w", err))
		}
	}

	err = errors.Join(errs...)
	if err != nil {
		d.log.Error("Failed to record outcome", "merchant_id", in.Merchant.MerchantID, "gateway", in.Gateway, "error", err)
	}
	return err
}

// recordBucket pushes an outcome into an SR-V3 window, seeding a missing
// window with n successes first
func (d *Decider) recordBucket(ctx context.Context, key string, n int, success bool) error {
	cfg := d.Config()
	keys := bucketKeys(key)

	length, err := d.cache.LLen(ctx, keys.queue)
	if err != nil {
		return err
	}
	successes := n
	if length == 0 {
		seed := cache.NewBatch().
			Delete(keys.queue).
			RPush(keys.queue, ResetWindow(n, 0)...).
			Set(keys.score, strconv.Itoa(n), cfg.Cache.ScoreTTL).
			Expire(keys.queue, cfg.Cache.ScoreTTL)
		if err := d.cache.Exec(ctx, seed); err != nil {
			return err
		}
	} else {
		successes = d.readBucket(ctx, key, n).successes
	}

	outcome := "0"
	if success {
		outcome = "1"
		successes++
	}
	if err := d.cache.LPush(ctx, keys.queue, outcome); err != nil {
		return err
	}
	overflow, err := d.cache.LRange(ctx, keys.queue, int64(n), -1)
	if err != nil {
		return err
	}
	for _, dropped := range overflow {
		if dropped == "1" {
			successes--
		}
	}
	if len(overflow) > 0 {
		if err := d.cache.LTrim(ctx, keys.queue, 0, int64(n-1)); err != nil {
			return err
		}
	}
	successes = min(max(successes, 0), n)
	if err := d.cache.Set(ctx, keys.score, strconv.Itoa(successes), cfg.Cache.ScoreTTL); err != nil {
		return err
	}
	return d.cache.Expire(ctx, keys.queue, cfg.Cache.ScoreTTL)
}

// recordBlocks counts an outcome into the newest SR-V2 block, rolling a new
// block once the newest is full
func (d *Decider) recordBlocks(ctx context.Context, key string, gw models.Gateway, success bool) error {
	cfg := d.Config()
	rec := d.readSrV2Record(ctx, key, gw)
	if len(rec.Blocks) == 0 || rec.Blocks[0].Total >= cfg.SrV2.BlockSize {
		rec.Blocks = append([]SrV2Block{{}}, rec.Blocks...)
	}
	rec.Blocks[0].Total++
	if success {
		rec.Blocks[0].Success++
	}
	if len(rec.Blocks) > cfg.SrV2.MaxBlocks {
		rec.Blocks = rec.Blocks[:cfg.SrV2.MaxBlocks]
	}
	return d.writeSrV2Record(ctx, key, gw, rec, cfg)
}

// recordGatewayScore applies the penalty or reward to a cached elimination
// score; a missing score starts at 1
func (d *Decider) recordGatewayScore(ctx context.Context, key string, success bool, nowMs int64) (float64, error) {
	cfg := d.Config()
	gs, ok := d.readGatewayScore(ctx, key)
	if !ok {
		gs = models.GatewayScore{Score: 1.0, LastResetTimestamp: nowMs}
	}
	if success {
		gs.Score = math.Min(1.0, gs.Score+cfg.Elimination.RewardFactor/100)
	} else {
		gs.Score = gs.Score * (1 - cfg.Elimination.PenaltyFactor/100)
	}
	gs.Score = clamp01(gs.Score)
	gs.TransactionCount++
	gs.Timestamp = nowMs
	if err := d.writeGatewayScore(ctx, key, gs, cfg.Cache.ScoreTTL); err != nil {
		return gs.Score, err
	}
	return gs.Score, nil
}

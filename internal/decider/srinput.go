package decider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/AnuragDani/gateway-decider/internal/config"
	"github.com/AnuragDani/gateway-decider/internal/eligibility"
	"github.com/AnuragDani/gateway-decider/internal/models"
)

// Global config names read through the eligibility source
const (
	ConfigGlobalEliminationThreshold = "SR_BASED_GATEWAY_ELIMINATION_THRESHOLD"
)

// GatewayWiseSuccessRateInput is the resolved elimination configuration of
// one gateway for one transaction
type GatewayWiseSuccessRateInput struct {
	Gateway               models.Gateway
	EliminationLevel      models.EliminationLevel
	EliminationThreshold  float64
	EliminationMaxCount   int
	GatewayLevelThreshold float64
	SoftTxnResetCount     int
	LastResetTimestamp    int64
	CurrentScore          float64
}

// gatewayOverride is one entry of the merchant's gateway-wise inputs
type gatewayOverride struct {
	Gateway               models.Gateway          `json:"gateway"`
	EliminationLevel      models.EliminationLevel `json:"eliminationLevel,omitempty"`
	EliminationThreshold  *float64                `json:"eliminationThreshold,omitempty"`
	EliminationMaxCount   *int                    `json:"eliminationMaxCountThreshold,omitempty"`
	GatewayLevelThreshold *float64                `json:"gatewayLevelEliminationThreshold,omitempty"`
	SoftTxnResetCount     *int                    `json:"softTxnResetCount,omitempty"`
}

// merchantSrConfig is the decoded MerchantAccount.GatewaySuccessRateInput
type merchantSrConfig struct {
	EnableElimination                 *bool                   `json:"enableSuccessRateBasedGatewayElimination,omitempty"`
	DefaultEliminationLevel           models.EliminationLevel `json:"defaultEliminationLevel,omitempty"`
	DefaultEliminationThreshold       *float64                `json:"defaultEliminationThreshold,omitempty"`
	DefaultEliminationMaxCount        *int                    `json:"defaultEliminationMaxCountThreshold,omitempty"`
	DefaultGatewayLevelThreshold      *float64                `json:"defaultGatewayLevelEliminationThreshold,omitempty"`
	DefaultSoftTxnResetCount          *int                    `json:"defaultSoftTxnResetCount,omitempty"`
	GatewayWiseInputs                 []gatewayOverride       `json:"gatewayWiseInputs,omitempty"`
	DefaultGlobalEliminationLevel     models.EliminationLevel `json:"defaultGlobalEliminationLevel,omitempty"`
	DefaultGlobalEliminationThreshold *float64                `json:"defaultGlobalEliminationThreshold,omitempty"`
	DefaultGlobalEliminationMaxCount  *int                    `json:"defaultGlobalEliminationMaxCountThreshold,omitempty"`
	GlobalGatewayWiseInputs           []gatewayOverride       `json:"globalGatewayWiseInputs,omitempty"`
}

func (c *merchantSrConfig) override(gw models.Gateway, global bool) gatewayOverride {
	if c == nil {
		return gatewayOverride{}
	}
	inputs := c.GatewayWiseInputs
	if global {
		inputs = c.GlobalGatewayWiseInputs
	}
	for _, in := range inputs {
		if in.Gateway == gw {
			return in
		}
	}
	return gatewayOverride{}
}

// decodeMerchantSrConfig returns nil when the merchant has no config or it
// does not decode
func (d *Decider) decodeMerchantSrConfig(merchant models.MerchantAccount) *merchantSrConfig {
	raw := strings.TrimSpace(merchant.GatewaySuccessRateInput)
	if raw == "" {
		return nil
	}
	var cfg merchantSrConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		d.log.Warn("config_decode_failed", "name", "gateway_success_rate_input", "merchant_id", merchant.MerchantID, "error", err)
		return nil
	}
	return &cfg
}

// globalThreshold reads the deployment-wide elimination threshold
func (d *Decider) globalThreshold(ctx context.Context) Source[float64] {
	return func() (float64, bool) {
		var v float64
		if d.lookup.Decode(ctx, ConfigGlobalEliminationThreshold, &v) != eligibility.Found {
			return 0, false
		}
		return v, v > 0
	}
}

// resolveSrInput builds the merchant-level elimination input of gw:
// gateway-wise override, then merchant default, then global config, then
// the engine default
func (d *Decider) resolveSrInput(ctx context.Context, cfg *config.DeciderConfig, mc *merchantSrConfig, gw models.Gateway) GatewayWiseSuccessRateInput {
	o := mc.override(gw, false)
	var def merchantSrConfig
	if mc != nil {
		def = *mc
	}

	level, _ := FirstOf(
		NonEmpty(o.EliminationLevel),
		NonEmpty(def.DefaultEliminationLevel),
		Value(models.EliminationLevel(cfg.Elimination.Level)),
	)
	if def.EnableElimination != nil && !*def.EnableElimination {
		level = models.EliminationLevelNone
	}
	threshold, _ := FirstOf(
		Ptr(o.EliminationThreshold),
		Ptr(def.DefaultEliminationThreshold),
		d.globalThreshold(ctx),
		Value(cfg.Elimination.Threshold),
	)
	maxCount, _ := FirstOf(Ptr(o.EliminationMaxCount), Ptr(def.DefaultEliminationMaxCount), Value(cfg.Elimination.MaxCount))
	gwLevel, _ := FirstOf(Ptr(o.GatewayLevelThreshold), Ptr(def.DefaultGatewayLevelThreshold), Value(cfg.Elimination.GatewayLevelThreshold))
	soft, _ := FirstOf(Ptr(o.SoftTxnResetCount), Ptr(def.DefaultSoftTxnResetCount), Value(cfg.Elimination.SoftTxnResetCount))

	return GatewayWiseSuccessRateInput{
		Gateway:               gw,
		EliminationLevel:      level,
		EliminationThreshold:  threshold,
		EliminationMaxCount:   maxCount,
		GatewayLevelThreshold: gwLevel,
		SoftTxnResetCount:     soft,
	}
}

// resolveGlobalSrInput is resolveSrInput for global elimination
func (d *Decider) resolveGlobalSrInput(ctx context.Context, cfg *config.DeciderConfig, mc *merchantSrConfig, gw models.Gateway) GatewayWiseSuccessRateInput {
	o := mc.override(gw, true)
	var def merchantSrConfig
	if mc != nil {
		def = *mc
	}

	level, _ := FirstOf(
		NonEmpty(o.EliminationLevel),
		NonEmpty(def.DefaultGlobalEliminationLevel),
		Value(models.EliminationLevel(cfg.Elimination.GlobalLevel)),
	)
	threshold, _ := FirstOf(
		Ptr(o.EliminationThreshold),
		Ptr(def.DefaultGlobalEliminationThreshold),
		d.globalThreshold(ctx),
		Value(cfg.Elimination.GlobalThreshold),
	)
	maxCount, _ := FirstOf(Ptr(o.EliminationMaxCount), Ptr(def.DefaultGlobalEliminationMaxCount), Value(cfg.Elimination.GlobalMaxCount))
	soft, _ := FirstOf(Ptr(o.SoftTxnResetCount), Value(cfg.Elimination.SoftTxnResetCount))

	return GatewayWiseSuccessRateInput{
		Gateway:              gw,
		EliminationLevel:     level,
		EliminationThreshold: threshold,
		EliminationMaxCount:  maxCount,
		SoftTxnResetCount:    soft,
	}
}

// SrV3Params are the resolved bucket parameters for one transaction
type SrV3Params struct {
	BucketSize       int
	HedgingPercent   float64
	LowerResetFactor float64
	UpperResetFactor float64
	ExplorePercent   float64
	SigmaFactors     map[models.Gateway]float64
}

func (p SrV3Params) SigmaFactor(gw models.Gateway) float64 {
	return p.SigmaFactors[gw]
}

type gatewaySigmaFactor struct {
	Gateway     models.Gateway `json:"gatewayName"`
	SigmaFactor float64        `json:"gatewaySigmaFactor"`
}

type srV3SubLevel struct {
	PaymentMethodType string               `json:"paymentMethodType"`
	PaymentMethod     string               `json:"paymentMethod,omitempty"`
	BucketSize        *int                 `json:"bucketSize,omitempty"`
	HedgingPercent    *float64             `json:"hedgingPercent,omitempty"`
	LowerResetFactor  *float64             `json:"lowerResetFactor,omitempty"`
	UpperResetFactor  *float64             `json:"upperResetFactor,omitempty"`
	ExplorePercent    *float64             `json:"explorePercent,omitempty"`
	GatewayExtraScore []gatewaySigmaFactor `json:"gatewayExtraScore,omitempty"`
}

// srV3InputConfig is the decoded MerchantAccount.SrV3InputConfig
type srV3InputConfig struct {
	DefaultBucketSize        *int                 `json:"defaultBucketSize,omitempty"`
	DefaultHedgingPercent    *float64             `json:"defaultHedgingPercent,omitempty"`
	DefaultLowerResetFactor  *float64             `json:"defaultLowerResetFactor,omitempty"`
	DefaultUpperResetFactor  *float64             `json:"defaultUpperResetFactor,omitempty"`
	DefaultExplorePercent    *float64             `json:"defaultExplorePercent,omitempty"`
	DefaultGatewayExtraScore []gatewaySigmaFactor `json:"defaultGatewayExtraScore,omitempty"`
	SubLevelInputConfig      []srV3SubLevel       `json:"subLevelInputConfig,omitempty"`
}

// decodeSrV3Config reports false when the merchant has no SR-V3 config or
// it does not decode
func (d *Decider) decodeSrV3Config(merchant models.MerchantAccount) (*srV3InputConfig, bool) {
	raw := strings.TrimSpace(merchant.SrV3InputConfig)
	if raw == "" {
		return nil, false
	}
	var cfg srV3InputConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		d.log.Warn("config_decode_failed", "name", "sr_v3_input_config", "merchant_id", merchant.MerchantID, "error", err)
		return nil, false
	}
	return &cfg, true
}

// resolveSrV3Params picks the most specific sub-level entry (payment method
// type and method, then type only), then merchant defaults, then the engine
// defaults. A nil merchant config uses the engine defaults.
func resolveSrV3Params(cfg *config.DeciderConfig, mc *srV3InputConfig, pmt, pm string) SrV3Params {
	var exact, byType srV3SubLevel
	var def srV3InputConfig
	if mc != nil {
		def = *mc
		for _, sub := range mc.SubLevelInputConfig {
			if !strings.EqualFold(sub.PaymentMethodType, pmt) {
				continue
			}
			if sub.PaymentMethod == "" {
				byType = sub
			} else if strings.EqualFold(sub.PaymentMethod, pm) {
				exact = sub
			}
		}
	}

	size, _ := FirstOf(Ptr(exact.BucketSize), Ptr(byType.BucketSize), Ptr(def.DefaultBucketSize), Value(cfg.SrV3.BucketSize))
	if size <= 0 {
		size = cfg.SrV3.BucketSize
	}
	hedging, _ := FirstOf(Ptr(exact.HedgingPercent), Ptr(byType.HedgingPercent), Ptr(def.DefaultHedgingPercent), Value(cfg.SrV3.HedgingPercent))
	lower, _ := FirstOf(Ptr(exact.LowerResetFactor), Ptr(byType.LowerResetFactor), Ptr(def.DefaultLowerResetFactor), Value(cfg.SrV3.LowerResetFactor))
	upper, _ := FirstOf(Ptr(exact.UpperResetFactor), Ptr(byType.UpperResetFactor), Ptr(def.DefaultUpperResetFactor), Value(cfg.SrV3.UpperResetFactor))
	explore, _ := FirstOf(Ptr(exact.ExplorePercent), Ptr(byType.ExplorePercent), Ptr(def.DefaultExplorePercent), Value(cfg.SrV3.ExplorePercent))

	sigma := make(map[models.Gateway]float64)
	for _, list := range [][]gatewaySigmaFactor{def.DefaultGatewayExtraScore, byType.GatewayExtraScore, exact.GatewayExtraScore} {
		for _, g := range list {
			sigma[g.Gateway] = g.SigmaFactor
		}
	}

	return SrV3Params{
		BucketSize:       size,
		HedgingPercent:   hedging,
		LowerResetFactor: lower,
		UpperResetFactor: upper,
		ExplorePercent:   explore,
		SigmaFactors:     sigma,
	}
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// DeciderConfig holds the engine defaults used when a merchant does not
// override them, plus the static eligibility data for deployments without
// a configuration database.
type DeciderConfig struct {
	Version     string            `yaml:"version"`
	Outage      OutageConfig      `yaml:"outage"`
	Elimination EliminationConfig `yaml:"elimination"`
	ResetTTL    ResetTTLConfig    `yaml:"reset_ttl"`
	SrV2        SrV2Config        `yaml:"sr_v2"`
	SrV3        SrV3Config        `yaml:"sr_v3"`
	Cache       CacheConfig       `yaml:"cache"`
	Eligibility EligibilityConfig `yaml:"eligibility"`
}

type OutageConfig struct {
	Lookback time.Duration `yaml:"lookback"`
}

type EliminationConfig struct {
	Level                 string  `yaml:"level"`
	Threshold             float64 `yaml:"threshold"`
	MaxCount              int     `yaml:"max_count"`
	GatewayLevelThreshold float64 `yaml:"gateway_level_threshold"`
	GlobalLevel           string  `yaml:"global_level"`
	GlobalThreshold       float64 `yaml:"global_threshold"`
	GlobalMaxCount        int     `yaml:"global_max_count"`
	PenaltyFactor         float64 `yaml:"penalty_factor"`
	RewardFactor          float64 `yaml:"reward_factor"`
	MaxAllowedFailures    int     `yaml:"max_allowed_failures"`
	SoftTxnResetCount     int     `yaml:"soft_txn_reset_count"`
}

// ResetTTLConfig is the cooldown before a suppressed score is reset, per
// elimination level
type ResetTTLConfig struct {
	PaymentMethodType time.Duration `yaml:"payment_method_type"`
	PaymentMethod     time.Duration `yaml:"payment_method"`
	Gateway           time.Duration `yaml:"gateway"`
}

type SrV2Config struct {
	BlockSize              int     `yaml:"block_size"`
	MaxBlocks              int     `yaml:"max_blocks"`
	WeightingEnabled       bool    `yaml:"weighting_enabled"`
	DecayFactor            float64 `yaml:"decay_factor"`
	MinBlockTxns           int     `yaml:"min_block_txns"`
	VolumeThresholdPercent float64 `yaml:"volume_threshold_percent"`
}

type SrV3Config struct {
	BucketSize       int     `yaml:"bucket_size"`
	HedgingPercent   float64 `yaml:"hedging_percent"`
	LowerResetFactor float64 `yaml:"lower_reset_factor"`
	UpperResetFactor float64 `yaml:"upper_reset_factor"`
	ExplorePercent   float64 `yaml:"explore_percent"`
	Sampling         string  `yaml:"sampling"`
}

type CacheConfig struct {
	ScoreTTL time.Duration `yaml:"score_ttl"`
}

// EligibilityConfig is the static form of the eligibility configuration
// source: named gateway lists, raw named configs and feature flags mapped
// to merchant ids ("*" enables a flag for every merchant).
type EligibilityConfig struct {
	GatewayLists map[string][]string `yaml:"gateway_lists"`
	Configs      map[string]string   `yaml:"configs"`
	FeatureFlags map[string][]string `yaml:"feature_flags"`
}

// DefaultDeciderConfig returns the built-in engine defaults
func DefaultDeciderConfig() *DeciderConfig {
	return &DeciderConfig{
		Version: "1",
		Outage: OutageConfig{
			Lookback: 30 * time.Minute,
		},
		Elimination: EliminationConfig{
			Level:                 "PAYMENT_METHOD",
			Threshold:             0.35,
			MaxCount:              5,
			GatewayLevelThreshold: 0.3,
			GlobalLevel:           "PAYMENT_METHOD",
			GlobalThreshold:       0.3,
			GlobalMaxCount:        5,
			PenaltyFactor:         10,
			RewardFactor:          5,
			MaxAllowedFailures:    3,
			SoftTxnResetCount:     10,
		},
		ResetTTL: ResetTTLConfig{
			PaymentMethodType: 15 * time.Minute,
			PaymentMethod:     30 * time.Minute,
			Gateway:           60 * time.Minute,
		},
		SrV2: SrV2Config{
			BlockSize:              20,
			MaxBlocks:              5,
			WeightingEnabled:       true,
			DecayFactor:            0.8,
			MinBlockTxns:           4,
			VolumeThresholdPercent: 5,
		},
		SrV3: SrV3Config{
			BucketSize:       125,
			HedgingPercent:   1,
			LowerResetFactor: 3,
			UpperResetFactor: 1,
			ExplorePercent:   5,
			Sampling:         "none",
		},
		Cache: CacheConfig{
			ScoreTTL: 24 * time.Hour,
		},
		Eligibility: EligibilityConfig{
			GatewayLists: map[string][]string{},
			Configs:      map[string]string{},
			FeatureFlags: map[string][]string{},
		},
	}
}

// LoadDeciderConfig reads a YAML file over the built-in defaults
func LoadDeciderConfig(path string) (*DeciderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseDeciderConfig(data)
}

// ParseDeciderConfig decodes YAML over the built-in defaults
func ParseDeciderConfig(data []byte) (*DeciderConfig, error) {
	cfg := DefaultDeciderConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot work with
func (c *DeciderConfig) Validate() error {
	if c.SrV3.BucketSize <= 0 {
		return fmt.Errorf("sr_v3.bucket_size must be positive, got %d", c.SrV3.BucketSize)
	}
	if c.SrV2.BlockSize <= 0 || c.SrV2.MaxBlocks <= 0 {
		return fmt.Errorf("sr_v2.block_size and sr_v2.max_blocks must be positive")
	}
	if c.Elimination.PenaltyFactor < 0 || c.Elimination.PenaltyFactor > 100 {
		return fmt.Errorf("elimination.penalty_factor must be within [0,100], got %v", c.Elimination.PenaltyFactor)
	}
	switch c.SrV3.Sampling {
	case "", "none", "binomial", "beta":
	default:
		return fmt.Errorf("sr_v3.sampling must be one of none, binomial, beta, got %q", c.SrV3.Sampling)
	}
	return nil
}

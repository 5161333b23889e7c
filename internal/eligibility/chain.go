package eligibility

import "context"

// Chain asks each source in order and returns the first value found
type Chain []Source

func (c Chain) FindByName(ctx context.Context, name string) (string, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if v, ok := s.FindByName(ctx, name); ok {
			return v, true
		}
	}
	return "", false
}

// AnyGate enables a flag when any of its gates does
type AnyGate []FeatureGate

func (g AnyGate) IsFeatureEnabled(ctx context.Context, flag, merchantID string) bool {
	for _, gate := range g {
		if gate != nil && gate.IsFeatureEnabled(ctx, flag, merchantID) {
			return true
		}
	}
	return false
}

package models

import "sort"

// GatewayScoreMap maps each functional gateway to its score in [0,1]
type GatewayScoreMap map[Gateway]float64

// Clone returns an independent copy of the map
func (m GatewayScoreMap) Clone() GatewayScoreMap {
	out := make(GatewayScoreMap, len(m))
	for gw, score := range m {
		out[gw] = score
	}
	return out
}

// Gateways returns the map keys in natural order
func (m GatewayScoreMap) Gateways() []Gateway {
	gws := make([]Gateway, 0, len(m))
	for gw := range m {
		gws = append(gws, gw)
	}
	sort.Slice(gws, func(i, j int) bool { return gws[i] < gws[j] })
	return gws
}

// Top returns the highest scoring gateway. Ties go to the gateway that
// sorts first, so the result is deterministic.
func (m GatewayScoreMap) Top() (Gateway, float64, bool) {
	var (
		best      Gateway
		bestScore float64
		found     bool
	)
	for _, gw := range m.Gateways() {
		score := m[gw]
		if !found || score > bestScore {
			best, bestScore, found = gw, score, true
		}
	}
	return best, bestScore, found
}

package decider

import (
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// RandomSource supplies every random draw the scoring engine makes, so
// tests can inject deterministic sequences
type RandomSource interface {
	// Float64 returns a uniform draw in [0,1)
	Float64() float64
	// Binomial returns a draw from Binomial(n, p)
	Binomial(n int, p float64) float64
	// Beta returns a draw from Beta(alpha, beta)
	Beta(alpha, beta float64) float64
}

type distRandom struct{}

// NewRandom returns the process-wide random source
func NewRandom() RandomSource {
	return distRandom{}
}

func (distRandom) Float64() float64 {
	return rand.Float64()
}

func (distRandom) Binomial(n int, p float64) float64 {
	return distuv.Binomial{N: float64(n), P: p}.Rand()
}

func (distRandom) Beta(alpha, beta float64) float64 {
	return distuv.Beta{Alpha: alpha, Beta: beta}.Rand()
}

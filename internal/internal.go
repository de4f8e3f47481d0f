// Package internal collects small numeric and control-flow helpers
// shared across the calling engine, in the spirit of elprep's own
// internal package: panic-on-error wrappers and primitives too small to
// deserve their own package.
package internal

import (
	"log"
	"math"
	"math/rand"

	"github.com/exascience/pargo/pipeline"
)

// RunPipeline is p.Run() with a panic in place of a returned error, the
// same convention elprep's internal.RunPipeline uses for pipeline
// stages that the caller considers unrecoverable.
func RunPipeline(p *pipeline.Pipeline) {
	p.Run()
	if err := p.Err(); err != nil {
		log.Panic(err)
	}
}

// Rand is a fixed-seed random source; the downsampler (spec.md §6) and
// any other component requiring reproducible sampling construct one via
// NewRand with a fixed seed rather than the global math/rand source.
type Rand = rand.Rand

// NewRand returns a seeded random source.
func NewRand(seed int64) *Rand {
	return rand.New(rand.NewSource(seed))
}

// MaxInt32 returns the larger of a and b.
func MaxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// MinInt32 returns the smaller of a and b.
func MinInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// MaxInt returns the larger of a and b.
func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// MinInt returns the smaller of a and b.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Log10 is math.Log10, named to match the pervasive log10-space
// arithmetic vocabulary used throughout the genotyping and likelihood
// packages (spec.md §4.5 numeric contract).
func Log10(x float64) float64 {
	return math.Log10(x)
}

// Ln10 is the natural log of 10, used to convert between natural-log and
// log10 probability spaces.
const Ln10 = 2.302585092994046

// Log10SumLog10 computes log10(10^a + 10^b) in a numerically stable way
// (spec.md §4.5, §9 "log-sum-exp everywhere"). It returns math.Inf(-1)
// if both a and b are -Inf.
func Log10SumLog10(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a > b {
		return a + math.Log10(1+math.Pow(10, b-a))
	}
	return b + math.Log10(1+math.Pow(10, a-b))
}

// Log10SumLog10Slice reduces a slice of log10 values via repeated
// pairwise Log10SumLog10, giving log10(sum_i 10^x_i). Returns
// math.Inf(-1) for an empty slice.
func Log10SumLog10Slice(xs []float64) float64 {
	result := math.Inf(-1)
	for _, x := range xs {
		result = Log10SumLog10(result, x)
	}
	return result
}

// NormalizeLog10 shifts a slice of log10 values so that
// log10(sum_i 10^x_i) == 0, i.e. the corresponding linear-space values
// sum to 1 (spec.md §4.5, §8.3 posterior normalisation contract). It
// returns the log10 evidence (the pre-normalisation sum) separately so
// callers can report it as log_evidence.
func NormalizeLog10(xs []float64) (normalized []float64, log10Evidence float64) {
	log10Evidence = Log10SumLog10Slice(xs)
	normalized = make([]float64, len(xs))
	if math.IsInf(log10Evidence, -1) {
		return normalized, log10Evidence
	}
	for i, x := range xs {
		normalized[i] = x - log10Evidence
	}
	return normalized, log10Evidence
}

// PhredFromErrorProbability converts an error probability to a
// Phred-scaled score: -10*log10(p) (spec.md Glossary "Phred").
func PhredFromErrorProbability(p float64) float64 {
	if p <= 0 {
		return math.Inf(1)
	}
	return -10 * math.Log10(p)
}

// PhredFromLog10Probability converts a log10 error probability directly
// to Phred, avoiding an intermediate exponentiation that could
// underflow for very small probabilities.
func PhredFromLog10Probability(log10p float64) float64 {
	return -10 * log10p
}

// ErrorProbabilityFromPhred converts a Phred-scaled score back to a
// linear-space error probability.
func ErrorProbabilityFromPhred(phred float64) float64 {
	return math.Pow(10, -phred/10)
}

package genotyping

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Schaudge/octopus/haplotype"
	"github.com/Schaudge/octopus/internal"
	"github.com/Schaudge/octopus/likelihood"
)

// Population implements the multi-sample model of spec.md §4.5: n
// samples factorise over a shared haplotype set given an
// allele-frequency-free or coalescent population prior, refined with
// EMIterations EM-style passes over haplotype frequencies whatever the
// size of the genotype space. Grounded on elprep's population-level BQSR frequency
// refinement idiom (recalibrate/...covariates.go accumulates counts,
// then recomputes rates) generalised here to haplotype-frequency EM, and
// implemented with gonum.org/v1/gonum/floats for the vector
// reductions instead of hand-rolled loops.
type Population struct {
	MaxGenotypes int
	// EMIterations bounds the EM refinement; spec.md §4.5 only requires
	// "an EM-style refinement when the genotype space is large", so this
	// defaults to a small fixed count rather than a convergence test.
	EMIterations int
}

// SampleTable pairs a sample name with its likelihood table, the unit
// Population.InferJoint factorises over.
type SampleTable struct {
	Sample string
	Table  *likelihood.Table
}

// InferJoint runs the population model jointly across samples sharing
// haps, returning one Result per sample (posteriors are per-sample
// genotype calls, but haplotype frequencies — and therefore priors — are
// shared).
func (m Population) InferJoint(space Space, haps []haplotype.Haplotype, tables []SampleTable) []Result {
	idx := haplotypeIndex(haps)
	freqs := make([]float64, len(haps))
	for i := range freqs {
		freqs[i] = 1.0 / float64(len(haps))
	}

	iterations := m.EMIterations
	if iterations <= 0 {
		iterations = 3
	}
	for iter := 0; iter < iterations; iter++ {
		freqs = m.emStep(space, idx, tables, freqs)
	}

	results := make([]Result, len(tables))
	for s, st := range tables {
		unnormalised := make([]float64, len(space.Genotypes))
		for i, g := range space.Genotypes {
			unnormalised[i] = log10GenotypeFrequencyPrior(g, idx, freqs) + genotypeLog10Likelihood(g, idx, st.Table)
		}
		results[s] = normalisePosteriors(space.Genotypes, unnormalised)
		if space.Truncated {
			results[s].EstimatedLostLog10PosteriorMass = estimateLostMass(len(space.Genotypes))
		}
	}
	return results
}

// emStep refines haplotype frequencies by one expectation-maximisation
// pass: expected haplotype counts under the current frequencies and
// every sample's posterior, renormalised into new frequencies.
func (m Population) emStep(space Space, idx map[string]int, tables []SampleTable, freqs []float64) []float64 {
	expectedCounts := make([]float64, len(freqs))
	for _, st := range tables {
		unnormalised := make([]float64, len(space.Genotypes))
		for i, g := range space.Genotypes {
			unnormalised[i] = log10GenotypeFrequencyPrior(g, idx, freqs) + genotypeLog10Likelihood(g, idx, st.Table)
		}
		normalised, _ := normaliseToLinear(unnormalised)
		for i, g := range space.Genotypes {
			weight := normalised[i]
			for _, h := range g.Elements() {
				if col, ok := idx[h.Sequence]; ok {
					expectedCounts[col] += weight
				}
			}
		}
	}
	total := floats.Sum(expectedCounts)
	if total <= 0 {
		return freqs
	}
	floats.Scale(1/total, expectedCounts)
	return expectedCounts
}

// normaliseToLinear converts log10 weights to normalised linear-space
// weights via the shared log-sum-exp primitive (spec.md §9
// "log-sum-exp everywhere"), rather than shifting by the maximum and
// exponentiating by hand.
func normaliseToLinear(log10xs []float64) ([]float64, float64) {
	normalisedLog10, evidence := internal.NormalizeLog10(log10xs)
	normalised := make([]float64, len(normalisedLog10))
	if math.IsInf(evidence, -1) {
		return normalised, 0
	}
	for i, x := range normalisedLog10 {
		normalised[i] = math.Pow(10, x)
	}
	return normalised, math.Pow(10, evidence)
}

// log10GenotypeFrequencyPrior computes the log10 prior of genotype g
// under independent-haplotype-draw frequencies freqs (a multinomial
// coefficient is unnecessary since Genotype equality, not permutation,
// is what downstream consumers compare).
func log10GenotypeFrequencyPrior(g haplotype.Genotype[haplotype.Haplotype], idx map[string]int, freqs []float64) float64 {
	var log10p float64
	for _, h := range g.Elements() {
		col, ok := idx[h.Sequence]
		if !ok || freqs[col] <= 0 {
			return math.Inf(-1)
		}
		log10p += math.Log10(freqs[col])
	}
	return log10p
}

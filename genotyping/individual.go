package genotyping

import (
	"github.com/Schaudge/octopus/haplotype"
	"github.com/Schaudge/octopus/likelihood"
)

// Individual implements the single-sample model of spec.md §4.5:
// Posterior ∝ prior × ∏_reads ∑_h (1/k) · L(read | h), with a uniform or
// coalescent-weighted prior over the haplotype multiset.
type Individual struct {
	// Log10Prior, if non-nil, returns a genotype's log10 prior; when nil,
	// a uniform prior over the genotype space is used.
	Log10Prior func(haplotype.Genotype[haplotype.Haplotype]) float64
}

// InferLatents implements Model.
func (m Individual) InferLatents(space Space, haps []haplotype.Haplotype, table *likelihood.Table) Result {
	idx := haplotypeIndex(haps)
	unnormalised := make([]float64, len(space.Genotypes))
	prior := uniformLog10Prior(len(space.Genotypes))
	for i, g := range space.Genotypes {
		p := prior
		if m.Log10Prior != nil {
			p = m.Log10Prior(g)
		}
		unnormalised[i] = p + genotypeLog10Likelihood(g, idx, table)
	}
	result := normalisePosteriors(space.Genotypes, unnormalised)
	if space.Truncated {
		result.EstimatedLostLog10PosteriorMass = estimateLostMass(len(space.Genotypes))
	}
	return result
}

// estimateLostMass is a conservative estimate of the log10 posterior
// mass sitting outside a truncated genotype space: one unit of
// "probability mass per discarded genotype, each no more likely than
// the least likely genotype kept" would require re-scoring the
// discarded genotypes, which truncation exists to avoid; instead this
// reports the mass of a single average-weight genotype as a lower
// bound, used only to cap emitted qualities from above per spec.md
// §4.5, never to adjust posteriors themselves.
func estimateLostMass(keptCount int) float64 {
	if keptCount <= 0 {
		return 0
	}
	return uniformLog10Prior(keptCount)
}

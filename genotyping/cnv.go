package genotyping

import (
	"math"

	"github.com/Schaudge/octopus/haplotype"
	"github.com/Schaudge/octopus/internal"
	"github.com/Schaudge/octopus/likelihood"
)

// CNV implements the copy-number-aware model of spec.md §4.5: germline
// haplotypes plus a copy-number multiplicity, with priors weighting
// toward integer copy states near 2.
type CNV struct {
	// PreferredCopyNumber is the copy state priors peak at (2 for most
	// autosomal loci).
	PreferredCopyNumber int
	// CopyNumberPenalty scales how sharply the prior falls off per unit
	// of distance from PreferredCopyNumber, in log10 space.
	CopyNumberPenalty float64
}

// InferLatents implements Model. space's genotypes already encode a
// given copy-number ploidy (the caller enumerates one Space per
// candidate copy number and calls InferLatents once per candidate,
// since ploidy is fixed within a Space by construction).
func (m CNV) InferLatents(space Space, haps []haplotype.Haplotype, table *likelihood.Table) Result {
	idx := haplotypeIndex(haps)
	unnormalised := make([]float64, len(space.Genotypes))
	uniform := uniformLog10Prior(len(space.Genotypes))
	copyNumberPrior := m.log10CopyNumberPrior(copyNumberOf(space))
	for i, g := range space.Genotypes {
		unnormalised[i] = uniform + copyNumberPrior + genotypeLog10Likelihood(g, idx, table)
	}
	result := normalisePosteriors(space.Genotypes, unnormalised)
	if space.Truncated {
		result.EstimatedLostLog10PosteriorMass = estimateLostMass(len(space.Genotypes))
	}
	return result
}

func copyNumberOf(space Space) int {
	if len(space.Genotypes) == 0 {
		return 0
	}
	return space.Genotypes[0].Ploidy()
}

// log10CopyNumberPrior penalises copy states away from
// PreferredCopyNumber, e.g. under a geometric-style falloff in log
// space, matching spec.md's "priors weight toward integer copy states
// near 2" without requiring a fitted population copy-number spectrum.
func (m CNV) log10CopyNumberPrior(copyNumber int) float64 {
	preferred := m.PreferredCopyNumber
	if preferred <= 0 {
		preferred = 2
	}
	penalty := m.CopyNumberPenalty
	if penalty <= 0 {
		penalty = 0.5
	}
	distance := math.Abs(float64(copyNumber - preferred))
	return -penalty * distance
}

// BestCopyNumberResult picks the highest-log10Evidence result among
// several CNV.InferLatents calls made over different candidate copy
// numbers, implementing the model-selection step spec.md §4.5 implies
// by "priors weight toward integer copy states": the winning copy
// number is whichever space's evidence (prior-weighted likelihood
// integral) is largest.
func BestCopyNumberResult(results []Result) (best Result, index int) {
	bestIdx := 0
	bestEvidence := internal.Log10(0)
	for i, r := range results {
		if r.Log10Evidence > bestEvidence {
			bestEvidence = r.Log10Evidence
			bestIdx = i
		}
	}
	return results[bestIdx], bestIdx
}

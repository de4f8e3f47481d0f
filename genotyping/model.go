package genotyping

import (
	"github.com/Schaudge/octopus/haplotype"
	"github.com/Schaudge/octopus/internal"
	"github.com/Schaudge/octopus/likelihood"
)

// Posterior pairs a genotype in a Space with its log10 posterior
// probability.
type Posterior struct {
	Genotype   haplotype.Genotype[haplotype.Haplotype]
	Log10Prob  float64
}

// Result is the shared return shape of every model's InferLatents,
// spec.md §4.5's "infer(haplotypes, genotype_space, likelihoods) →
// (posterior, log_evidence)".
type Result struct {
	Posteriors  []Posterior
	Log10Evidence float64
	// EstimatedLostLog10PosteriorMass is non-zero when the genotype space
	// passed in was truncated before inference, per spec.md §4.5 "when
	// the cap on genotypes truncates the space, an
	// estimated_lost_log_posterior_mass is returned and used to cap
	// emitted qualities from above".
	EstimatedLostLog10PosteriorMass float64
}

// Model is the shared contract every genotype-inference strategy
// implements (spec.md §4.5).
type Model interface {
	InferLatents(space Space, haps []haplotype.Haplotype, table *likelihood.Table) Result
}

// haplotypeIndex maps each haplotype in haps to its column in table by
// sequence identity, the same lookup key likelihood.Cache itself uses.
func haplotypeIndex(haps []haplotype.Haplotype) map[string]int {
	idx := make(map[string]int, len(haps))
	for i, h := range haps {
		idx[h.Sequence] = i
	}
	return idx
}

// genotypeReadLog10Likelihood computes log10 P(read | genotype) =
// log10( (1/ploidy) * sum_h count(h in genotype) * L(read|h) ), the
// Individual-model per-read term spec.md §4.5 defines and which Trio,
// Population, CNV and Somatic all reuse per sample/parent.
func genotypeReadLog10Likelihood(g haplotype.Genotype[haplotype.Haplotype], idx map[string]int, table *likelihood.Table, row int) float64 {
	ploidy := g.Ploidy()
	if ploidy == 0 {
		return 0 // empty genotype contributes no evidence; spec.md §4.5 Trio zero-ploidy collapse
	}
	terms := make([]float64, 0, ploidy)
	for _, h := range g.Elements() {
		col, ok := idx[h.Sequence]
		if !ok {
			continue
		}
		terms = append(terms, table.Get(row, col))
	}
	if len(terms) == 0 {
		return internal.Log10(0)
	}
	sum := internal.Log10SumLog10Slice(terms)
	return sum - internal.Log10(float64(ploidy))
}

// genotypeLog10Likelihood sums genotypeReadLog10Likelihood over every
// read in table (spec.md §4.5 "∏_reads" becomes a sum in log space).
func genotypeLog10Likelihood(g haplotype.Genotype[haplotype.Haplotype], idx map[string]int, table *likelihood.Table) float64 {
	var total float64
	for row := 0; row < table.NumReads(); row++ {
		total += genotypeReadLog10Likelihood(g, idx, table, row)
	}
	return total
}

// uniformLog10Prior returns log10(1/n) for n candidate genotypes, the
// "uniform ... prior over haplotypes" fallback spec.md §4.5 names for
// the Individual model.
func uniformLog10Prior(n int) float64 {
	if n <= 0 {
		return internal.Log10(0)
	}
	return -internal.Log10(float64(n))
}

// normalisePosteriors applies the shared log-sum-exp normalisation
// contract (spec.md §4.5 "Numeric contract") to a set of unnormalised
// log10(prior*likelihood) scores.
func normalisePosteriors(genotypes []haplotype.Genotype[haplotype.Haplotype], log10Unnormalised []float64) Result {
	normalised, evidence := internal.NormalizeLog10(log10Unnormalised)
	posteriors := make([]Posterior, len(genotypes))
	for i, g := range genotypes {
		posteriors[i] = Posterior{Genotype: g, Log10Prob: normalised[i]}
	}
	return Result{Posteriors: posteriors, Log10Evidence: evidence}
}

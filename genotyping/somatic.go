package genotyping

import (
	"math"

	"github.com/Schaudge/octopus/haplotype"
	"github.com/Schaudge/octopus/internal"
	"github.com/Schaudge/octopus/likelihood"
)

// Somatic implements the cancer model of spec.md §4.5: germline plus
// somatic haplotypes with a cancer-cell-fraction (CCF) parameter and a
// prior on the somatic-mutation rate per base. The posterior decomposes
// into germline, CNV, and somatic components via model-evidence
// comparison, so InferCancer accepts the germline Result already
// produced by Individual/Population/CNV and folds in the somatic
// extension.
type Somatic struct {
	SomaticMutationRate float64 // prior probability a given base carries a somatic mutation
	// CandidateCCFs are the cancer-cell-fraction grid points evaluated;
	// spec.md leaves CCF estimation open-ended, so a fixed grid search
	// (rather than continuous optimisation) is used, mirroring elprep's
	// preference for small fixed iteration counts over convergence loops.
	CandidateCCFs []float64
}

// CancerCall pairs a CancerGenotype with its log10 posterior and the CCF
// it was evaluated at.
type CancerCall struct {
	Genotype  haplotype.CancerGenotype
	CCF       float64
	Log10Prob float64
}

// CancerResult is the Somatic model's return shape, including the
// germline-only evidence it was compared against (spec.md's
// "model-evidence comparison yielding per-call model posteriors").
type CancerResult struct {
	Calls                  []CancerCall
	Log10Evidence          float64
	Log10GermlineEvidence  float64
	// Log10SomaticModelPosterior is the posterior probability (in log10)
	// that a somatic model explains the data better than the germline-
	// only model, derived from the evidence ratio.
	Log10SomaticModelPosterior float64
}

// InferCancer enumerates CancerGenotypes built from germlineSpace
// crossed with somaticCandidates (each considered singly, since most
// loci carry at most one somatic haplotype) at each configured CCF, and
// compares the resulting evidence against germlineOnly (the
// already-computed germline-model Result) to decompose the posterior
// across models.
func (m Somatic) InferCancer(germlineSpace Space, somaticCandidates []haplotype.Haplotype, haps []haplotype.Haplotype, table *likelihood.Table, germlineOnly Result) CancerResult {
	idx := haplotypeIndex(haps)
	ccfs := m.CandidateCCFs
	if len(ccfs) == 0 {
		ccfs = []float64{0.1, 0.3, 0.5, 0.7, 0.9}
	}

	var calls []CancerCall
	var log10Unnormalised []float64
	log10MutRate := internal.Log10(m.SomaticMutationRate)
	log10NoMutRate := internal.Log10(1 - m.SomaticMutationRate)

	for _, germline := range germlineSpace.Genotypes {
		for _, somatic := range somaticCandidates {
			for _, ccf := range ccfs {
				cg := haplotype.CancerGenotype{Germline: germline, Somatic: []haplotype.Haplotype{somatic}}
				ll := m.cancerLog10Likelihood(cg, ccf, idx, table)
				prior := log10MutRate + uniformLog10Prior(len(germlineSpace.Genotypes)*len(somaticCandidates)*len(ccfs))
				log10Unnormalised = append(log10Unnormalised, prior+ll)
				calls = append(calls, CancerCall{Genotype: cg, CCF: ccf})
			}
		}
	}
	// always include the pure-germline (no somatic event) explanation so
	// the evidence comparison has a baseline to normalise against.
	for _, germline := range germlineSpace.Genotypes {
		cg := haplotype.CancerGenotype{Germline: germline}
		ll := genotypeLog10Likelihood(germline, idx, table)
		prior := log10NoMutRate + uniformLog10Prior(len(germlineSpace.Genotypes))
		log10Unnormalised = append(log10Unnormalised, prior+ll)
		calls = append(calls, CancerCall{Genotype: cg, CCF: 0})
	}

	normalised, evidence := internal.NormalizeLog10(log10Unnormalised)
	for i := range calls {
		calls[i].Log10Prob = normalised[i]
	}

	somaticEvidence := evidence
	modelPosterior := somaticEvidence - internal.Log10SumLog10(somaticEvidence, germlineOnly.Log10Evidence)

	return CancerResult{
		Calls:                     calls,
		Log10Evidence:             evidence,
		Log10GermlineEvidence:     germlineOnly.Log10Evidence,
		Log10SomaticModelPosterior: modelPosterior,
	}
}

// cancerLog10Likelihood mixes germline and somatic haplotype
// contributions by cancer-cell fraction: a read's likelihood is a
// ccf-weighted average of the somatic-haplotype likelihood and the
// (1-ccf)-weighted germline-haplotype likelihood, integrated over reads
// in log space.
func (m Somatic) cancerLog10Likelihood(cg haplotype.CancerGenotype, ccf float64, idx map[string]int, table *likelihood.Table) float64 {
	var total float64
	log10CCF := internal.Log10(ccf)
	log10NotCCF := internal.Log10(1 - ccf)
	for row := 0; row < table.NumReads(); row++ {
		germlineTerm := log10NotCCF + genotypeReadLog10Likelihood(cg.Germline, idx, table, row)
		var somaticTerm float64 = math.Inf(-1)
		if len(cg.Somatic) > 0 {
			terms := make([]float64, 0, len(cg.Somatic))
			for _, h := range cg.Somatic {
				if col, ok := idx[h.Sequence]; ok {
					terms = append(terms, table.Get(row, col))
				}
			}
			if len(terms) > 0 {
				somaticTerm = log10CCF + internal.Log10SumLog10Slice(terms) - internal.Log10(float64(len(terms)))
			}
		}
		total += internal.Log10SumLog10(germlineTerm, somaticTerm)
	}
	return total
}

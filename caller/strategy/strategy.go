// Package strategy implements the per-caller specialisations
// (individual/population/trio/cancer) of spec.md §4.7's caller loop,
// each one a caller.Strategy: the loop itself stays in caller.Driver,
// generic over whichever specialisation is plugged in, per
// SPEC_FULL.md's "caller hierarchy" redesign note.
package strategy

import (
	"github.com/Schaudge/octopus/allele"
	"github.com/Schaudge/octopus/caller"
	"github.com/Schaudge/octopus/calls"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/genotyping"
	"github.com/Schaudge/octopus/haplotype"
	"github.com/Schaudge/octopus/likelihood"
)

// Params bundles the caller-specialisation tunables each Strategy needs,
// already resolved from CLI configuration (spec.md §1 scopes CLI
// parsing itself out of the core; this is the narrow, parsed slice of
// it the strategies actually consume).
type Params struct {
	MaternalSample      string
	PaternalSample      string
	NormalSample        string
	OrganismPloidy      int
	ContigPloidies      map[string]int
	MaxGenotypes         int
	DenovoMutationRate   float64
	SomaticMutationRate  float64
	EMIterations         int
	// CandidateCopyNumbers are the copy states the cancer strategy's CNV
	// decomposition evaluates before overlaying the somatic model
	// (spec.md §4.5 "decompose into germline, CNV, and somatic
	// components"); defaults to {1,2,3} (loss/normal/gain) when empty.
	CandidateCopyNumbers []int
	// CandidateCCFs are the cancer-cell-fraction grid points the somatic
	// model searches; defaults per genotyping.Somatic when empty.
	CandidateCCFs []float64
}

func (p Params) ploidyFor(contig string) int {
	if n, ok := p.ContigPloidies[contig]; ok {
		return n
	}
	return p.OrganismPloidy
}

// Individual implements caller.Strategy for single-sample calling: each
// present sample is genotyped independently via genotyping.Individual.
type Individual struct {
	Params Params
}

func (s Individual) Genotype(window genome.Region, haps []haplotype.Haplotype, cache *likelihood.Cache) caller.StrategyResult {
	model := genotyping.Individual{}
	posteriors := make(map[string][]genotyping.Posterior)
	var emitted []calls.Call
	for _, sample := range cache.Samples() {
		table, ok := cache.Table(sample)
		if !ok {
			continue
		}
		space := genotyping.NewSpace(haps, s.Params.ploidyFor(window.Contig), s.Params.MaxGenotypes)
		result := model.InferLatents(space, haps, table)
		posteriors[sample] = result.Posteriors
		emitted = append(emitted, callsFromPosteriors(sample, window, result)...)
	}
	return caller.StrategyResult{SamplePosteriors: posteriors, Calls: emitted}
}

// Population implements caller.Strategy for joint multi-sample calling
// over a shared haplotype-frequency prior (genotyping.Population).
type Population struct {
	Params Params
}

func (s Population) Genotype(window genome.Region, haps []haplotype.Haplotype, cache *likelihood.Cache) caller.StrategyResult {
	model := genotyping.Population{MaxGenotypes: s.Params.MaxGenotypes, EMIterations: s.Params.EMIterations}
	samples := cache.Samples()
	var tables []genotyping.SampleTable
	for _, sample := range samples {
		table, ok := cache.Table(sample)
		if !ok {
			continue
		}
		tables = append(tables, genotyping.SampleTable{Sample: sample, Table: table})
	}
	space := genotyping.NewSpace(haps, s.Params.ploidyFor(window.Contig), s.Params.MaxGenotypes)
	results := model.InferJoint(space, haps, tables)
	posteriors := make(map[string][]genotyping.Posterior)
	var emitted []calls.Call
	for i, st := range tables {
		posteriors[st.Sample] = results[i].Posteriors
		emitted = append(emitted, callsFromPosteriors(st.Sample, window, results[i])...)
	}
	return caller.StrategyResult{SamplePosteriors: posteriors, Calls: emitted}
}

// Trio implements caller.Strategy for pedigree calling (genotyping.Trio),
// genotyping every non-parent sample present against the two named
// parent samples.
type Trio struct {
	Params Params
}

func (s Trio) Genotype(window genome.Region, haps []haplotype.Haplotype, cache *likelihood.Cache) caller.StrategyResult {
	model := genotyping.Trio{DeNovoRate: s.Params.DenovoMutationRate}
	motherTable, okM := cache.Table(s.Params.MaternalSample)
	fatherTable, okF := cache.Table(s.Params.PaternalSample)
	posteriors := make(map[string][]genotyping.Posterior)
	if !okM || !okF {
		return caller.StrategyResult{SamplePosteriors: posteriors}
	}
	var emitted []calls.Call
	ploidy := s.Params.ploidyFor(window.Contig)
	for _, sample := range cache.Samples() {
		if sample == s.Params.MaternalSample || sample == s.Params.PaternalSample {
			continue
		}
		childTable, ok := cache.Table(sample)
		if !ok {
			continue
		}
		motherSpace := genotyping.NewSpace(haps, ploidy, s.Params.MaxGenotypes)
		fatherSpace := genotyping.NewSpace(haps, ploidy, s.Params.MaxGenotypes)
		childSpace := genotyping.NewSpace(haps, ploidy, s.Params.MaxGenotypes)
		result := model.InferJoint(motherSpace, fatherSpace, childSpace, haps, motherTable, fatherTable, childTable)
		emitted = append(emitted, callsFromTrio(sample, window, result)...)
	}
	return caller.StrategyResult{SamplePosteriors: posteriors, Calls: emitted}
}

// Cancer implements caller.Strategy for tumour/normal calling
// (genotyping.Somatic), decomposing each non-normal sample's posterior
// into germline, copy-number, and somatic components: a
// genotyping.CNV model is evaluated at each candidate copy number, the
// best-evidence copy state supplies the germline baseline
// genotyping.Somatic.InferCancer compares against.
type Cancer struct {
	Params Params
}

func (s Cancer) Genotype(window genome.Region, haps []haplotype.Haplotype, cache *likelihood.Cache) caller.StrategyResult {
	cnvModel := genotyping.CNV{PreferredCopyNumber: s.Params.ploidyFor(window.Contig)}
	somatic := genotyping.Somatic{SomaticMutationRate: s.Params.SomaticMutationRate, CandidateCCFs: s.Params.CandidateCCFs}
	posteriors := make(map[string][]genotyping.Posterior)
	var emitted []calls.Call
	for _, sample := range cache.Samples() {
		if sample == s.Params.NormalSample {
			continue
		}
		table, ok := cache.Table(sample)
		if !ok {
			continue
		}
		germlineSpace, germline := s.bestGermlineModel(cnvModel, haps, table)
		posteriors[sample] = germline.Posteriors
		cancer := somatic.InferCancer(germlineSpace, haps, haps, table, germline)
		emitted = append(emitted, callsFromSomatic(sample, window, cancer)...)
	}
	return caller.StrategyResult{SamplePosteriors: posteriors, Calls: emitted}
}

// bestGermlineModel evaluates genotyping.CNV at every candidate copy
// number and returns the space/result pair with the largest evidence,
// the germline (pre-somatic-overlay) baseline spec.md §4.5 requires.
func (s Cancer) bestGermlineModel(cnvModel genotyping.CNV, haps []haplotype.Haplotype, table *likelihood.Table) (genotyping.Space, genotyping.Result) {
	copyNumbers := s.Params.CandidateCopyNumbers
	if len(copyNumbers) == 0 {
		copyNumbers = []int{1, 2, 3}
	}
	spaces := make([]genotyping.Space, len(copyNumbers))
	results := make([]genotyping.Result, len(copyNumbers))
	for i, cn := range copyNumbers {
		spaces[i] = genotyping.NewSpace(haps, cn, s.Params.MaxGenotypes)
		results[i] = cnvModel.InferLatents(spaces[i], haps, table)
	}
	best, index := genotyping.BestCopyNumberResult(results)
	return spaces[index], best
}

// isHomReference reports whether every haplotype in g is the reference
// haplotype for its window.
func isHomReference(g haplotype.Genotype[haplotype.Haplotype]) bool {
	for _, h := range g.Elements() {
		if !h.IsRef {
			return false
		}
	}
	return true
}

// genotypeAlleles flattens the constituent alleles carried by each
// haplotype in g, one slot per haplotype element, for VCF sample-field
// rendering. A reference haplotype contributes no allele (the REF
// slot).
func genotypeAlleles(g haplotype.Genotype[haplotype.Haplotype]) []allele.Allele {
	out := make([]allele.Allele, 0, g.Ploidy())
	for _, h := range g.Elements() {
		if h.IsRef || len(h.Alleles) == 0 {
			out = append(out, allele.Allele{})
			continue
		}
		out = append(out, h.Alleles[0])
	}
	return out
}

// cancerGenotypeAlleles flattens a CancerGenotype's germline and somatic
// haplotype alleles into one VCF sample-field slot per haplotype.
func cancerGenotypeAlleles(cg haplotype.CancerGenotype) []allele.Allele {
	out := genotypeAlleles(cg.Germline)
	for _, h := range cg.Somatic {
		if h.IsRef || len(h.Alleles) == 0 {
			out = append(out, allele.Allele{})
			continue
		}
		out = append(out, h.Alleles[0])
	}
	return out
}

func callsFromPosteriors(sample string, window genome.Region, result genotyping.Result) []calls.Call {
	var out []calls.Call
	for _, p := range result.Posteriors {
		if isHomReference(p.Genotype) {
			continue
		}
		out = append(out, calls.Call{
			Kind:         calls.KindGermlineVariant,
			Region:       window,
			Log10Quality: p.Log10Prob,
			Samples: []calls.SampleGenotype{{
				Sample:       sample,
				Alleles:      genotypeAlleles(p.Genotype),
				Log10Quality: p.Log10Prob,
			}},
		})
	}
	return out
}

func callsFromTrio(sample string, window genome.Region, result genotyping.TrioResult) []calls.Call {
	var out []calls.Call
	for _, c := range result.Calls {
		kind := calls.KindGermlineVariant
		if callIsDeNovo(c) {
			kind = calls.KindDenovo
		}
		out = append(out, calls.Call{
			Kind:                 kind,
			Region:               window,
			Log10Quality:         c.Log10Prob,
			HasDenovoPosterior:   kind == calls.KindDenovo,
			Log10DenovoPosterior: c.Log10Prob,
			Samples: []calls.SampleGenotype{{
				Sample:       sample,
				Alleles:      genotypeAlleles(c.Child),
				Log10Quality: c.Log10Prob,
			}},
		})
	}
	return out
}

// callIsDeNovo reports whether any of the child's haplotype slots in
// call trace to neither parent.
func callIsDeNovo(call genotyping.TrioCall) bool {
	for _, h := range call.Child.Elements() {
		if genotyping.IsDeNovo(call, h) {
			return true
		}
	}
	return false
}

func callsFromSomatic(sample string, window genome.Region, result genotyping.CancerResult) []calls.Call {
	var out []calls.Call
	for _, c := range result.Calls {
		out = append(out, calls.Call{
			Kind:                kind(c),
			Region:              window,
			Log10Quality:        c.Log10Prob,
			CancerCellFraction:  c.CCF,
			HasModelPosterior:   true,
			Log10ModelPosterior: result.Log10SomaticModelPosterior,
			Samples: []calls.SampleGenotype{{
				Sample:       sample,
				Alleles:      cancerGenotypeAlleles(c.Genotype),
				Log10Quality: c.Log10Prob,
			}},
		})
	}
	return out
}

// kind reports KindSomatic for a call that actually carries a somatic
// haplotype, KindGermlineVariant for the pure-germline explanation
// (CCF==0, no somatic haplotype attached).
func kind(c genotyping.CancerCall) calls.Kind {
	if c.CCF > 0 && len(c.Genotype.Somatic) > 0 {
		return calls.KindSomatic
	}
	return calls.KindGermlineVariant
}

package caller

import (
	"testing"

	"github.com/Schaudge/octopus/allele"
	"github.com/Schaudge/octopus/calls"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/genotyping"
	"github.com/Schaudge/octopus/haplogen"
	"github.com/Schaudge/octopus/haplotype"
	"github.com/Schaudge/octopus/likelihood"
	"github.com/Schaudge/octopus/reads"
)

// stubStrategy returns a fixed StrategyResult regardless of the window,
// letting these tests exercise the loop's phasing/force-forward/
// reference-fill behavior independently of the real genotyping models.
type stubStrategy struct {
	result StrategyResult
	calls  int
}

func (s *stubStrategy) Genotype(window genome.Region, haps []haplotype.Haplotype, cache *likelihood.Cache) StrategyResult {
	s.calls++
	return s.result
}

func uniformQuals(n int) []byte {
	q := make([]byte, n)
	for i := range q {
		q[i] = 30
	}
	return q
}

func TestDriverRunFillsReferenceWhenNoCandidates(t *testing.T) {
	target := genome.New("chr1", 0, 10)
	ref := []byte("ACGTACGTAC")
	strat := &stubStrategy{}
	d := Driver{
		Config: Config{
			Haplogen: haplogen.Config{MaxAlleles: 4, ExtensionPolicy: haplogen.ExtensionWithinReadLength, ReadLength: 150},
			ErrorModel: likelihood.DefaultErrorModel(),
			EmitReferenceCalls: true,
		},
		Strategy: strat,
	}
	emitted := d.Run(target, nil, ref, 0, nil)
	if strat.calls != 0 {
		t.Fatalf("expected the strategy to never be invoked with no candidates, got %d calls", strat.calls)
	}
	if len(emitted) != 1 || emitted[0].Kind != calls.KindReference || emitted[0].Region != target {
		t.Fatalf("expected a single reference-fill call covering the full target, got %+v", emitted)
	}
}

func TestDriverRunSkipsReferenceFillWhenDisabledAndNoCandidates(t *testing.T) {
	target := genome.New("chr1", 0, 10)
	ref := []byte("ACGTACGTAC")
	d := Driver{
		Config: Config{
			Haplogen:   haplogen.Config{MaxAlleles: 4, ExtensionPolicy: haplogen.ExtensionWithinReadLength, ReadLength: 150},
			ErrorModel: likelihood.DefaultErrorModel(),
		},
		Strategy: &stubStrategy{},
	}
	emitted := d.Run(target, nil, ref, 0, nil)
	if len(emitted) != 0 {
		t.Fatalf("expected no calls when reference-fill is disabled and there are no candidates, got %+v", emitted)
	}
}

// TestDriverRunForcePhasesLowConfidenceWindow exercises the fallback
// path spec.md §4.7 step h describes: a window whose phase score never
// clears threshold must still be finalized via force_phase before the
// generator moves on, not silently dropped.
func TestDriverRunForcePhasesLowConfidenceWindow(t *testing.T) {
	region := genome.New("chr1", 2, 3)
	refAllele := allele.NewAllele(region, "G")
	altAllele := allele.NewAllele(region, "C")
	refHap := haplotype.Haplotype{Region: region, Sequence: "G", Alleles: []allele.Allele{refAllele}, IsRef: true}
	altHap := haplotype.Haplotype{Region: region, Sequence: "C", Alleles: []allele.Allele{altAllele}}
	lowConfidenceHet := []genotyping.Posterior{
		{Genotype: haplotype.NewGenotype(refHap, altHap), Log10Prob: -5.0},
	}

	target := genome.New("chr1", 0, 5)
	ref := []byte("ACGTA")
	candidateVariants := []allele.Variant{allele.New(region, "G", "C")}

	strat := &stubStrategy{result: StrategyResult{
		SamplePosteriors: map[string][]genotyping.Posterior{"sample1": lowConfidenceHet},
		Calls: []calls.Call{{
			Kind: calls.KindGermlineVariant, Region: region, Variant: allele.New(region, "G", "C"),
			Samples: []calls.SampleGenotype{{Sample: "sample1", Alleles: []allele.Allele{altAllele}}},
		}},
	}}

	d := Driver{
		Config: Config{
			Haplogen: haplogen.Config{
				MaxAlleles: 4, ExtensionPolicy: haplogen.ExtensionWithinReadLength,
				MaxExtension: 150, ReadLength: 150,
			},
			// an unattainable threshold: every Log10Prob is <= 0, so
			// requiring > 0 guarantees TryPhase always fails and the
			// loop must fall back to ForcePhase to finalize anything.
			MinLog10PhaseScore: 1.0,
			ErrorModel:          likelihood.DefaultErrorModel(),
			EmitReferenceCalls:  true,
		},
		Strategy: strat,
	}

	rs := []reads.AlignedRead{
		{Sample: "sample1", Region: genome.New("chr1", 0, 5), Sequence: "ACCTA", BaseQuals: uniformQuals(5)},
	}

	emitted := d.Run(target, rs, ref, 0, candidateVariants)

	if strat.calls == 0 {
		t.Fatalf("expected the strategy to be invoked for the candidate window")
	}

	var sawVariant bool
	for _, c := range emitted {
		if c.Kind == calls.KindGermlineVariant {
			sawVariant = true
		}
	}
	if !sawVariant {
		t.Fatalf("expected the strategy's emitted variant call to survive the loop even when phasing never clears threshold, got %+v", emitted)
	}
}

package phase

import (
	"math"
	"testing"

	"github.com/Schaudge/octopus/allele"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/genotyping"
	"github.com/Schaudge/octopus/haplotype"
)

func hetPosteriors(window genome.Region, log10Prob float64) []genotyping.Posterior {
	a1 := allele.NewAllele(window, "A")
	a2 := allele.NewAllele(window, "G")
	ref := haplotype.Haplotype{Region: window, Sequence: "A", Alleles: []allele.Allele{a1}, IsRef: true}
	alt := haplotype.Haplotype{Region: window, Sequence: "G", Alleles: []allele.Allele{a2}}
	return []genotyping.Posterior{
		{Genotype: haplotype.NewGenotype(ref, alt), Log10Prob: log10Prob},
	}
}

func homPosteriors(window genome.Region, log10Prob float64) []genotyping.Posterior {
	ref := haplotype.Haplotype{Region: window, Sequence: "A", IsRef: true}
	return []genotyping.Posterior{
		{Genotype: haplotype.NewGenotype(ref, ref), Log10Prob: log10Prob},
	}
}

func TestTryPhaseAboveThresholdProducesBlock(t *testing.T) {
	window := genome.New("chr1", 10, 11)
	p := Phaser{MinLog10PhaseScore: -1.0}
	block, ok := p.TryPhase("sample1", window, hetPosteriors(window, -0.1))
	if !ok {
		t.Fatalf("expected phasing to succeed above threshold")
	}
	if block.Region != window {
		t.Fatalf("expected the block region to equal the window, got %v", block.Region)
	}
	if len(block.Sequence) == 0 {
		t.Fatalf("expected a non-empty phased allele sequence")
	}
}

func TestTryPhaseBelowThresholdFails(t *testing.T) {
	window := genome.New("chr1", 10, 11)
	p := Phaser{MinLog10PhaseScore: -0.01}
	_, ok := p.TryPhase("sample1", window, hetPosteriors(window, -5.0))
	if ok {
		t.Fatalf("did not expect phasing to succeed below the configured threshold")
	}
}

func TestTryPhaseHomozygousHasNoPhaseInformation(t *testing.T) {
	window := genome.New("chr1", 10, 11)
	p := Phaser{MinLog10PhaseScore: -1.0}
	_, ok := p.TryPhase("sample1", window, homPosteriors(window, -0.01))
	if ok {
		t.Fatalf("did not expect a homozygous call to anchor a phase block")
	}
}

func TestForcePhaseFallsBackToTryPhaseWhenAboveThreshold(t *testing.T) {
	window := genome.New("chr1", 10, 11)
	p := Phaser{MinLog10PhaseScore: -1.0}
	block := p.ForcePhase("sample1", window, hetPosteriors(window, -0.1))
	if len(block.Sequence) == 0 {
		t.Fatalf("expected ForcePhase to return TryPhase's phased sequence when it clears threshold")
	}
}

func TestForcePhaseFinalizesBelowThresholdBlock(t *testing.T) {
	window := genome.New("chr1", 10, 11)
	p := Phaser{MinLog10PhaseScore: -0.01}
	block := p.ForcePhase("sample1", window, hetPosteriors(window, -5.0))
	if block.Region != window {
		t.Fatalf("expected ForcePhase to finalize a block covering window, got %v", block.Region)
	}
	if block.Log10PhaseScore != -5.0 {
		t.Fatalf("expected the finalized block to carry the best posterior's score, got %v", block.Log10PhaseScore)
	}
	if len(block.Sequence) == 0 {
		t.Fatalf("expected ForcePhase to still carry the heterozygous allele sequence even below threshold")
	}
}

func TestForcePhaseEmptyPosteriorsReturnsZeroProbabilityBlock(t *testing.T) {
	window := genome.New("chr1", 10, 11)
	p := Phaser{MinLog10PhaseScore: -1.0}
	block := p.ForcePhase("sample1", window, nil)
	if block.Region != window {
		t.Fatalf("expected a block covering window even with no posteriors, got %v", block.Region)
	}
	if !math.IsInf(block.Log10PhaseScore, -1) {
		t.Fatalf("expected log10(0) = -Inf for an empty posterior set, got %v", block.Log10PhaseScore)
	}
}

func TestAppendMergesContiguousNonIncreasingBlocks(t *testing.T) {
	set := &PhaseSet{Sample: "sample1"}
	b1 := Block{Sample: "sample1", Region: genome.New("chr1", 0, 10), Log10PhaseScore: -0.1}
	b2 := Block{Sample: "sample1", Region: genome.New("chr1", 10, 20), Log10PhaseScore: -0.5}
	set.Append(b1)
	set.Append(b2)
	if len(set.Blocks) != 1 {
		t.Fatalf("expected contiguous non-increasing blocks to merge, got %d blocks", len(set.Blocks))
	}
	if set.Blocks[0].Region.End != 20 {
		t.Fatalf("expected the merged block to extend to 20, got %v", set.Blocks[0].Region)
	}
}

func TestAppendDoesNotMergeAcrossLowerScoreThenHigherScore(t *testing.T) {
	set := &PhaseSet{Sample: "sample1"}
	b1 := Block{Sample: "sample1", Region: genome.New("chr1", 0, 10), Log10PhaseScore: -0.5}
	b2 := Block{Sample: "sample1", Region: genome.New("chr1", 10, 20), Log10PhaseScore: -0.1}
	set.Append(b1)
	set.Append(b2)
	if len(set.Blocks) != 2 {
		t.Fatalf("expected a phase-score increase across a boundary to start a new block, got %d blocks", len(set.Blocks))
	}
}

func TestAppendDoesNotMergeNonContiguousBlocks(t *testing.T) {
	set := &PhaseSet{Sample: "sample1"}
	b1 := Block{Sample: "sample1", Region: genome.New("chr1", 0, 10), Log10PhaseScore: -0.1}
	b2 := Block{Sample: "sample1", Region: genome.New("chr1", 20, 30), Log10PhaseScore: -0.2}
	set.Append(b1)
	set.Append(b2)
	if len(set.Blocks) != 2 {
		t.Fatalf("expected a gap between blocks to prevent merging, got %d blocks", len(set.Blocks))
	}
}

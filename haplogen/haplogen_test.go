package haplogen

import (
	"testing"

	"github.com/Schaudge/octopus/allele"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/haplotype"
)

func defaultConfig() Config {
	return Config{MaxAlleles: 4, ExtensionPolicy: ExtensionNoLimit}
}

func TestAdvanceEnumeratesRefAndAltHaplotypes(t *testing.T) {
	ref := []byte("ACGTACGTACGT")
	v := allele.New(genome.New("chr1", 3, 4), "T", "A")
	gen := New(defaultConfig(), "chr1", []allele.Variant{v}, ref, 0)

	region, haps, ok := gen.Advance()
	if !ok {
		t.Fatalf("expected Advance to produce a window")
	}
	if region.Begin != 3 || region.End != 4 {
		t.Fatalf("expected the active region to match the candidate, got %v", region)
	}
	if len(haps) != 2 {
		t.Fatalf("expected exactly 2 haplotypes (ref + alt) for a single biallelic site, got %d", len(haps))
	}
	sawRef, sawAlt := false, false
	for _, h := range haps {
		if h.IsRef {
			sawRef = true
		} else {
			sawAlt = true
		}
	}
	if !sawRef || !sawAlt {
		t.Fatalf("expected both a reference and an alt haplotype, got %+v", haps)
	}
}

func TestAdvanceTerminatesAfterExhaustingCandidates(t *testing.T) {
	ref := []byte("ACGTACGT")
	v := allele.New(genome.New("chr1", 3, 4), "T", "A")
	gen := New(defaultConfig(), "chr1", []allele.Variant{v}, ref, 0)

	_, _, ok := gen.Advance()
	if !ok {
		t.Fatalf("expected the first Advance to succeed")
	}
	_, _, ok = gen.Advance()
	if ok {
		t.Fatalf("expected the generator to terminate once candidates are exhausted")
	}
	if !gen.Done() {
		t.Fatalf("expected Done() to report true after termination")
	}
}

func TestForceForwardSkipsConsumedCandidates(t *testing.T) {
	ref := []byte("ACGTACGTACGTACGT")
	v1 := allele.New(genome.New("chr1", 3, 4), "T", "A")
	v2 := allele.New(genome.New("chr1", 12, 13), "T", "A")
	gen := New(defaultConfig(), "chr1", []allele.Variant{v1, v2}, ref, 0)

	gen.ForceForward(genome.New("chr1", 10, 10))
	region, _, ok := gen.Advance()
	if !ok {
		t.Fatalf("expected Advance to succeed after ForceForward")
	}
	if region.Begin < 10 {
		t.Fatalf("expected ForceForward to skip the earlier candidate, got region %v", region)
	}
}

func TestRemoveDropsAlleleFromActiveSet(t *testing.T) {
	ref := []byte("ACGTACGT")
	v := allele.New(genome.New("chr1", 3, 4), "T", "A")
	gen := New(defaultConfig(), "chr1", []allele.Variant{v}, ref, 0)
	_, _, ok := gen.Advance()
	if !ok {
		t.Fatalf("expected Advance to succeed")
	}
	altHap := haplotype.Haplotype{Sequence: v.Alt}
	gen.alleles = []allele.Allele{v.AltAllele()}
	gen.Remove([]haplotype.Haplotype{altHap})
	if len(gen.alleles) != 0 {
		t.Fatalf("expected the matching allele to be dropped, got %+v", gen.alleles)
	}
}

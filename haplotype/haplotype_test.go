package haplotype

import (
	"testing"

	"github.com/Schaudge/octopus/allele"
	"github.com/Schaudge/octopus/genome"
)

func TestApplySplicesAllelesIntoReference(t *testing.T) {
	span := genome.New("chr1", 0, 8)
	ref := []byte("ACGTACGT")
	snv := allele.NewAllele(genome.New("chr1", 3, 4), "A")
	h := Apply(span, ref, []allele.Allele{snv})
	if h.Sequence != "ACGAACGT" {
		t.Fatalf("expected ACGAACGT, got %s", h.Sequence)
	}
	if h.IsRef {
		t.Fatalf("expected a non-reference haplotype")
	}
}

func TestApplyWithNoAllelesIsReference(t *testing.T) {
	span := genome.New("chr1", 0, 8)
	ref := []byte("ACGTACGT")
	h := Apply(span, ref, nil)
	if h.Sequence != "ACGTACGT" {
		t.Fatalf("expected the reference sequence unchanged, got %s", h.Sequence)
	}
	if !h.IsRef {
		t.Fatalf("expected a haplotype with no alleles to be marked reference")
	}
}

func TestGenotypeEqualIgnoresOrder(t *testing.T) {
	span := genome.New("chr1", 0, 4)
	a := Haplotype{Region: span, Sequence: "ACGT", IsRef: true}
	b := Haplotype{Region: span, Sequence: "ACGG"}
	g1 := NewGenotype(a, b)
	g2 := NewGenotype(b, a)
	if !g1.Equal(g2) {
		t.Fatalf("expected genotypes with the same multiset to be equal regardless of order")
	}
}

func TestGenotypeCountOccurrencesAndHomozygous(t *testing.T) {
	span := genome.New("chr1", 0, 4)
	a := Haplotype{Region: span, Sequence: "ACGT", IsRef: true}
	hom := NewGenotype(a, a)
	if !hom.IsHomozygous() {
		t.Fatalf("expected a homozygous genotype")
	}
	if hom.CountOccurrences(a) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", hom.CountOccurrences(a))
	}

	b := Haplotype{Region: span, Sequence: "ACGG"}
	het := NewGenotype(a, b)
	if het.IsHomozygous() {
		t.Fatalf("did not expect a het genotype to report homozygous")
	}
}

func TestCancerGenotypePloidyAndSomaticMembership(t *testing.T) {
	span := genome.New("chr1", 0, 4)
	ref := Haplotype{Region: span, Sequence: "ACGT", IsRef: true}
	somatic := Haplotype{Region: span, Sequence: "ACGC"}
	cg := CancerGenotype{Germline: NewGenotype(ref, ref), Somatic: []Haplotype{somatic}}
	if cg.Ploidy() != 3 {
		t.Fatalf("expected combined ploidy 3, got %d", cg.Ploidy())
	}
	if !cg.ContainsSomatic(somatic) {
		t.Fatalf("expected the somatic haplotype to be found")
	}
	if cg.ContainsSomatic(ref) {
		t.Fatalf("did not expect the germline haplotype to register as somatic")
	}
}

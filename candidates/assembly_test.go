package candidates

import (
	"testing"

	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/reads"
)

func TestAssemblyGeneratorFindsSupportedSNV(t *testing.T) {
	// A non-repetitive reference keeps the kmer graph a simple DAG (no
	// cycles), so a single substitution opens exactly one bubble that
	// rejoins the reference path before its end.
	ref := "ACGTGACTGCATGGTACCGA"
	region := genome.New("chr1", 0, int32(len(ref)))
	altSeq := "ACGTGACTGCGTGGTACCGA" // substitution at index 10, A->G
	rs := []reads.AlignedRead{
		{Sequence: altSeq, BaseQuals: uniformQual(len(altSeq), 30)},
		{Sequence: altSeq, BaseQuals: uniformQual(len(altSeq), 30)},
		{Sequence: altSeq, BaseQuals: uniformQual(len(altSeq), 30)},
	}
	g := AssemblyGenerator{KmerSizes: []int{5}, MaxPaths: 32, MinBaseQual: 10}
	vs, err := g.Generate(region, rs, []byte(ref), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vs) == 0 {
		t.Fatalf("expected at least one candidate from the divergent bubble path")
	}
	found := false
	for _, v := range vs {
		if v.Region.Begin >= 7 && v.Region.Begin <= 12 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a candidate anchored near position 10, got %+v", vs)
	}
}

func TestAssemblyGeneratorDegradesAcrossKmerSizes(t *testing.T) {
	// A reference window shorter than the first configured kmer size
	// fails that size outright; the generator must still try the second.
	ref := "ACGT"
	region := genome.New("chr1", 0, int32(len(ref)))
	g := AssemblyGenerator{KmerSizes: []int{10, 2}, MaxPaths: 8, MinBaseQual: 10}
	_, err := g.Generate(region, nil, []byte(ref), 0)
	if err != nil {
		t.Fatalf("expected Generate to never surface AssemblyFailed as a hard error, got %v", err)
	}
}

func uniformQual(n int, q byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = q
	}
	return out
}

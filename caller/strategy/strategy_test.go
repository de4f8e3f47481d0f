package strategy

import (
	"testing"

	"github.com/Schaudge/octopus/calls"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/haplotype"
	"github.com/Schaudge/octopus/likelihood"
	"github.com/Schaudge/octopus/reads"
)

func refHap(region genome.Region, seq string) haplotype.Haplotype {
	return haplotype.Haplotype{Region: region, Sequence: seq, IsRef: true}
}

func altHap(region genome.Region, seq string) haplotype.Haplotype {
	return haplotype.Haplotype{Region: region, Sequence: seq}
}

func uniformQuals(seq string) []byte {
	q := make([]byte, len(seq))
	for i := range q {
		q[i] = 30
	}
	return q
}

func buildCache(t *testing.T, haps []haplotype.Haplotype, region genome.Region, favoured map[string]int) *likelihood.Cache {
	t.Helper()
	var rs []reads.AlignedRead
	for sample, idx := range favoured {
		seq := haps[idx].Sequence
		rs = append(rs,
			reads.AlignedRead{Sample: sample, Region: region, Sequence: seq, BaseQuals: uniformQuals(seq)},
			reads.AlignedRead{Sample: sample, Region: region, Sequence: seq, BaseQuals: uniformQuals(seq)},
		)
	}
	cache := likelihood.NewCache(rs, haps, likelihood.DefaultErrorModel(), likelihood.FlankState{Active: region})
	cache.Populate()
	return cache
}

func TestIndividualGenotypeEmitsVariantForSupportedAlt(t *testing.T) {
	region := genome.New("chr1", 0, 4)
	haps := []haplotype.Haplotype{refHap(region, "ACGT"), altHap(region, "ACGG")}
	cache := buildCache(t, haps, region, map[string]int{"sample1": 1})

	s := Individual{Params: Params{OrganismPloidy: 2}}
	result := s.Genotype(region, haps, cache)

	if _, ok := result.SamplePosteriors["sample1"]; !ok {
		t.Fatalf("expected a posterior set for sample1, got %+v", result.SamplePosteriors)
	}
	var sawVariant bool
	for _, c := range result.Calls {
		if c.Kind == calls.KindGermlineVariant {
			sawVariant = true
		}
	}
	if !sawVariant {
		t.Fatalf("expected a germline variant call for a sample supported by alt reads, got %+v", result.Calls)
	}
}

func TestPopulationGenotypeCoversEverySample(t *testing.T) {
	region := genome.New("chr1", 0, 4)
	haps := []haplotype.Haplotype{refHap(region, "ACGT"), altHap(region, "ACGG")}
	cache := buildCache(t, haps, region, map[string]int{"sample1": 1, "sample2": 0})

	s := Population{Params: Params{OrganismPloidy: 2, EMIterations: 5}}
	result := s.Genotype(region, haps, cache)

	if len(result.SamplePosteriors) != 2 {
		t.Fatalf("expected posteriors for both samples, got %+v", result.SamplePosteriors)
	}
}

func TestTrioGenotypeFlagsDeNovoCall(t *testing.T) {
	region := genome.New("chr1", 0, 4)
	ref := refHap(region, "ACGT")
	novel := altHap(region, "ACGC")
	haps := []haplotype.Haplotype{ref, novel}

	cache := buildCache(t, haps, region, map[string]int{
		"mother": 0,
		"father": 0,
		"child":  1,
	})

	s := Trio{Params: Params{
		MaternalSample:     "mother",
		PaternalSample:     "father",
		OrganismPloidy:     2,
		DenovoMutationRate: 1e-6,
	}}
	result := s.Genotype(region, haps, cache)

	var sawDenovo bool
	for _, c := range result.Calls {
		if c.Kind == calls.KindDenovo {
			sawDenovo = true
		}
	}
	if !sawDenovo {
		t.Fatalf("expected a de novo call for a child allele absent from both hom-ref parents, got %+v", result.Calls)
	}
}

func TestTrioGenotypeSkipsParentSamples(t *testing.T) {
	region := genome.New("chr1", 0, 4)
	ref := refHap(region, "ACGT")
	novel := altHap(region, "ACGC")
	haps := []haplotype.Haplotype{ref, novel}

	cache := buildCache(t, haps, region, map[string]int{
		"mother": 0,
		"father": 0,
	})

	s := Trio{Params: Params{
		MaternalSample: "mother",
		PaternalSample: "father",
		OrganismPloidy: 2,
	}}
	result := s.Genotype(region, haps, cache)

	if len(result.Calls) != 0 {
		t.Fatalf("expected no calls when no child sample is present besides the two parents, got %+v", result.Calls)
	}
}

func TestCancerGenotypeSkipsNormalSample(t *testing.T) {
	region := genome.New("chr1", 0, 4)
	ref := refHap(region, "ACGT")
	somatic := altHap(region, "ACGC")
	haps := []haplotype.Haplotype{ref, somatic}

	cache := buildCache(t, haps, region, map[string]int{
		"normal": 0,
		"tumour": 1,
	})

	s := Cancer{Params: Params{
		NormalSample:         "normal",
		OrganismPloidy:       2,
		CandidateCopyNumbers: []int{2},
		CandidateCCFs:        []float64{0.5, 1.0},
	}}
	result := s.Genotype(region, haps, cache)

	if _, ok := result.SamplePosteriors["normal"]; ok {
		t.Fatalf("did not expect the normal sample to receive its own posterior set, got %+v", result.SamplePosteriors)
	}
	if _, ok := result.SamplePosteriors["tumour"]; !ok {
		t.Fatalf("expected a germline baseline posterior set for the tumour sample, got %+v", result.SamplePosteriors)
	}
}

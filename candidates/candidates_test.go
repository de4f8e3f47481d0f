package candidates

import (
	"testing"

	"github.com/Schaudge/octopus/allele"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/octoerr"
	"github.com/Schaudge/octopus/reads"
)

func TestAlignmentGeneratorFindsSNV(t *testing.T) {
	region := genome.New("chr1", 0, 8)
	ref := []byte("ACGTACGT")
	r := reads.AlignedRead{
		Region:    region,
		Sequence:  "ACGAACGT",
		BaseQuals: []byte{30, 30, 30, 30, 30, 30, 30, 30},
		Cigar:     []reads.CigarOp{{Length: 8, Op: 'M'}},
	}
	g := AlignmentGenerator{MinBaseQuality: 20}
	vs, err := g.Generate(region, []reads.AlignedRead{r}, ref, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vs) != 1 {
		t.Fatalf("expected exactly one SNV, got %d: %+v", len(vs), vs)
	}
	if vs[0].Ref != "T" || vs[0].Alt != "A" {
		t.Fatalf("expected T>A at position 3, got %s>%s at %v", vs[0].Ref, vs[0].Alt, vs[0].Region)
	}
}

func TestAlignmentGeneratorSkipsLowQualityMismatch(t *testing.T) {
	region := genome.New("chr1", 0, 4)
	ref := []byte("ACGT")
	r := reads.AlignedRead{
		Region:    region,
		Sequence:  "ACGA",
		BaseQuals: []byte{30, 30, 30, 5},
		Cigar:     []reads.CigarOp{{Length: 4, Op: 'M'}},
	}
	g := AlignmentGenerator{MinBaseQuality: 20}
	vs, err := g.Generate(region, []reads.AlignedRead{r}, ref, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vs) != 0 {
		t.Fatalf("expected low-quality mismatch to be skipped, got %+v", vs)
	}
}

func TestAlignmentGeneratorFindsInsertionAndDeletion(t *testing.T) {
	ref := []byte("ACGTACGT")

	insRegion := genome.New("chr1", 0, 8)
	insRead := reads.AlignedRead{
		Region:    insRegion,
		Sequence:  "ACGTTTACGT",
		BaseQuals: []byte{30, 30, 30, 30, 30, 30, 30, 30, 30, 30},
		Cigar:     []reads.CigarOp{{Length: 4, Op: 'M'}, {Length: 2, Op: 'I'}, {Length: 4, Op: 'M'}},
	}
	g := AlignmentGenerator{MinBaseQuality: 20}
	vs, err := g.Generate(insRegion, []reads.AlignedRead{insRead}, ref, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vs) != 1 || len(vs[0].Alt) != 3 || len(vs[0].Ref) != 1 {
		t.Fatalf("expected one two-base insertion, got %+v", vs)
	}

	delRegion := genome.New("chr1", 0, 8)
	delRead := reads.AlignedRead{
		Region:    delRegion,
		Sequence:  "ACGTCGT",
		BaseQuals: []byte{30, 30, 30, 30, 30, 30, 30},
		Cigar:     []reads.CigarOp{{Length: 4, Op: 'M'}, {Length: 1, Op: 'D'}, {Length: 3, Op: 'M'}},
	}
	vs, err = g.Generate(delRegion, []reads.AlignedRead{delRead}, ref, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vs) != 1 || len(vs[0].Ref) != 2 || len(vs[0].Alt) != 1 {
		t.Fatalf("expected one one-base deletion, got %+v", vs)
	}
}

// failingGenerator always returns an AssemblyFailed error, simulating an
// assembly stage that could not build a graph for this region.
type failingGenerator struct{}

func (failingGenerator) Generate(genome.Region, []reads.AlignedRead, []byte, int32) ([]allele.Variant, error) {
	return nil, octoerr.AssemblyFailed{Reason: "no reference-to-reference path found"}
}

// pooledGenerator always succeeds with a fixed candidate set, standing in
// for an alignment-based generator running alongside a failing assembler.
type pooledGenerator struct {
	vs []allele.Variant
}

func (p pooledGenerator) Generate(genome.Region, []reads.AlignedRead, []byte, int32) ([]allele.Variant, error) {
	return p.vs, nil
}

func TestChainSurvivesAssemblyFailure(t *testing.T) {
	region := genome.New("chr1", 0, 8)
	ref := []byte("ACGTACGT")
	want := allele.New(genome.New("chr1", 3, 4), "T", "A")
	chain := Chain{Generators: []Generator{
		failingGenerator{},
		pooledGenerator{vs: []allele.Variant{want}},
	}}
	vs, err := chain.Generate(region, nil, ref, 0)
	if err == nil {
		t.Fatalf("expected the non-fatal assembly error to be reported")
	}
	if _, ok := err.(octoerr.AssemblyFailed); !ok {
		t.Fatalf("expected an AssemblyFailed error, got %T: %v", err, err)
	}
	if len(vs) != 1 || vs[0].Ref != want.Ref || vs[0].Alt != want.Alt {
		t.Fatalf("expected the other generator's candidate to survive, got %+v", vs)
	}
}

func TestChainPropagatesFatalError(t *testing.T) {
	region := genome.New("chr1", 0, 8)
	chain := Chain{Generators: []Generator{stubErrGenerator{}}}
	_, err := chain.Generate(region, nil, []byte("ACGTACGT"), 0)
	if err == nil {
		t.Fatalf("expected a fatal error to propagate")
	}
	if _, ok := err.(octoerr.AssemblyFailed); ok {
		t.Fatalf("expected a non-AssemblyFailed error to propagate as-is")
	}
}

type stubErrGenerator struct{}

func (stubErrGenerator) Generate(genome.Region, []reads.AlignedRead, []byte, int32) ([]allele.Variant, error) {
	return nil, octoerr.MalformedFileError{Path: "x", Reason: "boom"}
}

func TestNormaliseDedupsAndSorts(t *testing.T) {
	ref := []byte("ACGTACGT")
	vs := []allele.Variant{
		allele.New(genome.New("chr1", 4, 5), "A", "G"),
		allele.New(genome.New("chr1", 0, 1), "A", "T"),
		allele.New(genome.New("chr1", 0, 1), "A", "T"), // exact duplicate
	}
	out := Normalise(vs, ref, 0, 0)
	if len(out) != 2 {
		t.Fatalf("expected duplicate to be dropped, got %d variants", len(out))
	}
	if out[0].Region.Begin > out[1].Region.Begin {
		t.Fatalf("expected variants sorted by position, got %+v", out)
	}
}

func TestNormaliseFiltersOversizeVariants(t *testing.T) {
	ref := []byte("ACGTACGTACGT")
	big := allele.New(genome.New("chr1", 0, 1), "A", "ATTTTTTTTTT")
	out := Normalise([]allele.Variant{big}, ref, 0, 5)
	if len(out) != 0 {
		t.Fatalf("expected oversize variant to be filtered out, got %+v", out)
	}
}

func TestSourceGeneratorIntersectsRegion(t *testing.T) {
	inside := allele.New(genome.New("chr1", 5, 6), "A", "G")
	outside := allele.New(genome.New("chr1", 50, 51), "A", "G")
	g := SourceGenerator{Variants: []allele.Variant{inside, outside}}
	vs, err := g.Generate(genome.New("chr1", 0, 10), nil, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vs) != 1 || vs[0].Region != inside.Region {
		t.Fatalf("expected only the overlapping variant, got %+v", vs)
	}
}

// Package calls implements the tagged-union Call type of spec.md §3:
// "Abstract record with (variant, per-sample genotype calls, quality,
// optional phase, optional model posterior, optional de-novo
// posterior)." Recast here as a Go tagged union (a Kind discriminant
// plus variant-specific payload fields) in place of the class-hierarchy
// shape the source's Non-goals/Design Notes flag for redesign.
package calls

import (
	"github.com/Schaudge/octopus/allele"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/phase"
)

// Kind discriminates the five Call variants spec.md §3 names.
type Kind int

const (
	KindGermlineVariant Kind = iota
	KindDenovo
	KindDenovoReferenceReversion
	KindSomatic
	KindReference
)

// SampleGenotype is one sample's called genotype within a Call: the
// alleles making up the genotype, genotype quality, depth, and (when
// phased) the phase-set id and phase quality.
type SampleGenotype struct {
	Sample       string
	Alleles      []allele.Allele
	Log10Quality float64 // genotype quality in log10 probability-of-error space
	Depth        int
	BaseQuality  float64
	MappingQuality float64

	Phased       bool
	PhaseSetID   string
	Log10PhaseQuality float64
}

// Call is the tagged union spec.md §3 describes. Kind determines which
// optional fields are meaningful:
//   - KindGermlineVariant, KindDenovo, KindDenovoReferenceReversion,
//     KindSomatic all carry Variant and Samples.
//   - KindSomatic additionally carries Log10ModelPosterior (the
//     model-evidence comparison result from genotyping.CancerResult) and
//     CancerCellFraction.
//   - KindDenovo and KindDenovoReferenceReversion carry
//     Log10DenovoPosterior.
//   - KindReference carries only Region and Samples (no ALT allele).
type Call struct {
	Kind    Kind
	Region  genome.Region
	Variant allele.Variant // zero value for KindReference
	Samples []SampleGenotype

	Log10Quality float64 // overall QUAL, in log10 probability-of-error space

	HasModelPosterior   bool
	Log10ModelPosterior float64
	CancerCellFraction  float64

	HasDenovoPosterior   bool
	Log10DenovoPosterior float64

	PhaseBlock *phase.Block
}

// IsVariant reports whether this call asserts a non-reference allele.
func (c Call) IsVariant() bool {
	return c.Kind != KindReference
}

// SampleByName returns the named sample's genotype call, if present.
func (c Call) SampleByName(sample string) (SampleGenotype, bool) {
	for _, s := range c.Samples {
		if s.Sample == sample {
			return s, true
		}
	}
	return SampleGenotype{}, false
}

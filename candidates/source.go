package candidates

import (
	"github.com/Schaudge/octopus/allele"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/reads"
)

// SourceGenerator injects candidates from an externally supplied call
// set (e.g. a VCF of known variants), restricted to the region being
// processed — spec.md §4.1 "Source generator: candidates drawn from an
// external call set, intersected with the region under consideration".
type SourceGenerator struct {
	Variants []allele.Variant
}

// Generate implements Generator; rs and ref are unused because the
// source generator trusts its input variants rather than re-deriving
// them from read evidence.
func (g SourceGenerator) Generate(region genome.Region, _ []reads.AlignedRead, _ []byte, _ int32) ([]allele.Variant, error) {
	var out []allele.Variant
	for _, v := range g.Variants {
		if region.Overlaps(v.Region) {
			out = append(out, v)
		}
	}
	return out, nil
}

package candidates

import (
	"github.com/Schaudge/octopus/allele"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/reads"
)

// AlignmentGenerator walks each read's CIGAR string against the
// reference and emits a variant for every mismatch, insertion, and
// deletion operation, exactly as elprep's variant-calling prefilter
// walks CIGAR strings to find candidate sites (grounded on
// filters/cigar.go's operation-consuming loop idiom).
type AlignmentGenerator struct {
	MinBaseQuality byte
}

// Generate implements Generator.
func (g AlignmentGenerator) Generate(region genome.Region, rs []reads.AlignedRead, ref []byte, refStart int32) ([]allele.Variant, error) {
	var out []allele.Variant
	for _, r := range rs {
		out = append(out, g.fromRead(r, ref, refStart)...)
	}
	return out, nil
}

func (g AlignmentGenerator) fromRead(r reads.AlignedRead, ref []byte, refStart int32) []allele.Variant {
	var out []allele.Variant
	refPos := r.Region.Begin
	readPos := 0
	for _, op := range r.Cigar {
		switch op.Op {
		case 'M', '=', 'X':
			for i := int32(0); i < op.Length; i++ {
				ri := int(refPos - refStart + i)
				if ri < 0 || ri >= len(ref) {
					continue
				}
				rpi := readPos + int(i)
				if rpi >= len(r.Sequence) {
					continue
				}
				if rpi < len(r.BaseQuals) && r.BaseQuals[rpi] > 0 && r.BaseQuals[rpi] < g.MinBaseQuality {
					continue
				}
				refBase := ref[ri]
				readBase := r.Sequence[rpi]
				if readBase != refBase && readBase != 'N' {
					pos := refPos + i
					out = append(out, allele.New(genome.New(region2Contig(r), pos, pos+1), string(refBase), string(readBase)))
				}
			}
			refPos += op.Length
			readPos += int(op.Length)
		case 'I':
			if readPos > 0 && readPos+int(op.Length) <= len(r.Sequence) {
				ri := int(refPos - refStart - 1)
				if ri >= 0 && ri < len(ref) {
					anchor := ref[ri]
					inserted := r.Sequence[readPos : readPos+int(op.Length)]
					out = append(out, allele.New(genome.New(region2Contig(r), refPos-1, refPos), string(anchor), string(anchor)+inserted))
				}
			}
			readPos += int(op.Length)
		case 'D':
			ri := int(refPos - refStart - 1)
			if ri >= 0 && ri+int(op.Length) < len(ref) {
				anchor := ref[ri]
				deleted := ref[ri+1 : ri+1+int(op.Length)]
				out = append(out, allele.New(genome.New(region2Contig(r), refPos-1, refPos+op.Length), string(anchor)+string(deleted), string(anchor)))
			}
			refPos += op.Length
		case 'N':
			refPos += op.Length
		case 'S':
			readPos += int(op.Length)
		}
	}
	return out
}

func region2Contig(r reads.AlignedRead) string {
	return r.Region.Contig
}

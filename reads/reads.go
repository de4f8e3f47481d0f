// Package reads implements the AlignedRead data model (spec.md §3) and
// the fixed-semantics read filters of spec.md §6, independent of any
// particular alignment-file format.
package reads

import "github.com/Schaudge/octopus/genome"

// Flag bits relevant to the read filters of spec.md §6, mirroring the
// SAM FLAG field elprep's sam.Alignment carries.
type Flag uint16

const (
	FlagPaired Flag = 1 << iota
	FlagProperPair
	FlagUnmapped
	FlagMateUnmapped
	FlagReverse
	FlagMateReverse
	FlagFirstInPair
	FlagSecondInPair
	FlagSecondary
	FlagQCFail
	FlagDuplicate
	FlagSupplementary
)

// Has reports whether all bits of other are set in f.
func (f Flag) Has(other Flag) bool {
	return f&other == other
}

// CigarOp is a single CIGAR operation, e.g. {Length: 5, Op: 'M'}.
type CigarOp struct {
	Length int32
	Op     byte
}

// ConsumesReference reports whether this operation advances the
// reference coordinate (M, D, N, =, X).
func (c CigarOp) ConsumesReference() bool {
	switch c.Op {
	case 'M', 'D', 'N', '=', 'X':
		return true
	default:
		return false
	}
}

// ConsumesRead reports whether this operation advances the read/query
// coordinate (M, I, S, =, X).
func (c CigarOp) ConsumesRead() bool {
	switch c.Op {
	case 'M', 'I', 'S', '=', 'X':
		return true
	default:
		return false
	}
}

// ReferenceLength returns the total reference bases consumed by cigar.
func ReferenceLength(cigar []CigarOp) int32 {
	var n int32
	for _, c := range cigar {
		if c.ConsumesReference() {
			n += c.Length
		}
	}
	return n
}

// AlignedRead is a single read alignment: region, bases, base qualities,
// cigar, mapping quality, flags, and an optional template name (spec.md
// §3).
type AlignedRead struct {
	Region      genome.Region
	Sequence    string
	BaseQuals   []byte // Phred-scaled, one per base of Sequence
	Cigar       []CigarOp
	MappingQual byte
	Flags       Flag
	TemplateName string
	Sample       string
}

// IsMapped reports the negation of the unmapped flag.
func (r AlignedRead) IsMapped() bool {
	return !r.Flags.Has(FlagUnmapped)
}

// IsDuplicate reports the duplicate-marked flag.
func (r AlignedRead) IsDuplicate() bool {
	return r.Flags.Has(FlagDuplicate)
}

// IsSecondary reports the secondary-alignment flag.
func (r AlignedRead) IsSecondary() bool {
	return r.Flags.Has(FlagSecondary)
}

// IsSupplementary reports the supplementary-alignment flag.
func (r AlignedRead) IsSupplementary() bool {
	return r.Flags.Has(FlagSupplementary)
}

// IsQCFail reports the vendor quality-control-fail flag.
func (r AlignedRead) IsQCFail() bool {
	return r.Flags.Has(FlagQCFail)
}

// MateIsMapped reports the negation of the mate-unmapped flag.
func (r AlignedRead) MateIsMapped() bool {
	return !r.Flags.Has(FlagMateUnmapped)
}

// Length returns the number of bases in Sequence.
func (r AlignedRead) Length() int {
	return len(r.Sequence)
}

// GoodQualityBaseFraction returns the fraction of bases with base
// quality >= q.
func (r AlignedRead) GoodQualityBaseFraction(q byte) float64 {
	if len(r.BaseQuals) == 0 {
		return 0
	}
	good := 0
	for _, b := range r.BaseQuals {
		if b >= q {
			good++
		}
	}
	return float64(good) / float64(len(r.BaseQuals))
}

// GoodQualityBaseCount returns the count of bases with base quality >= q.
func (r AlignedRead) GoodQualityBaseCount(q byte) int {
	n := 0
	for _, b := range r.BaseQuals {
		if b >= q {
			n++
		}
	}
	return n
}

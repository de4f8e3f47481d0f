// Package allele implements the Allele and Variant data model (spec.md
// §3) and the candidate-normalisation contract (spec.md §4.1, §8.1):
// left-alignment and parsimony trimming.
package allele

import (
	"log"
	"strings"

	"github.com/Schaudge/octopus/genome"
)

// Allele is a (region, sequence) pair. reference and alt alleles share
// this shape. An insertion has an empty Region (Begin == End) and a
// non-empty Bases; a deletion has a non-empty Region and empty Bases.
type Allele struct {
	Region genome.Region
	Bases  string
}

// NewAllele builds an Allele.
func NewAllele(region genome.Region, bases string) Allele {
	return Allele{Region: region, Bases: bases}
}

// IsInsertion reports whether the allele adds bases without consuming
// reference.
func (a Allele) IsInsertion() bool {
	return a.Region.Empty() && len(a.Bases) > 0
}

// IsDeletion reports whether the allele consumes reference without
// contributing bases.
func (a Allele) IsDeletion() bool {
	return !a.Region.Empty() && len(a.Bases) == 0
}

// Equal reports whether two alleles cover the same region with the same
// bases.
func (a Allele) Equal(b Allele) bool {
	return a.Region == b.Region && a.Bases == b.Bases
}

// Variant is a pair (Ref, Alt) of alleles sharing a region (spec.md §3).
// The invariant Ref != Alt and both alleles cover Region is checked by
// New.
type Variant struct {
	Region genome.Region
	Ref    string
	Alt    string
}

// New builds a Variant, panicking if Ref == Alt (invariant violation —
// candidate generators must never emit no-op variants).
func New(region genome.Region, ref, alt string) Variant {
	if ref == alt {
		log.Panicf("invalid variant at %s:%d: ref == alt (%q)", region.Contig, region.Begin, ref)
	}
	return Variant{Region: region, Ref: ref, Alt: alt}
}

// RefAllele returns the Variant's reference allele.
func (v Variant) RefAllele() Allele {
	return Allele{Region: v.Region, Bases: v.Ref}
}

// AltAllele returns the Variant's alternate allele.
func (v Variant) AltAllele() Allele {
	return Allele{Region: v.Region, Bases: v.Alt}
}

// Size returns the net length change introduced by this variant
// (positive for insertions, negative for deletions, zero for
// substitutions of equal length).
func (v Variant) Size() int {
	return len(v.Alt) - len(v.Ref)
}

// IsSNV reports whether this is a single-base substitution.
func (v Variant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1
}

// Less gives candidate generators (spec.md §4.1) a stable sort order:
// by region, then lexicographically by ref, then alt.
func (v Variant) Less(other Variant) bool {
	if v.Region != other.Region {
		return v.Region.Less(other.Region)
	}
	if v.Ref != other.Ref {
		return v.Ref < other.Ref
	}
	return v.Alt < other.Alt
}

// Normalise left-aligns and parsimony-trims a variant against the
// surrounding reference sequence. refWindow must cover at least
// [v.Region.Begin-maxShift, v.Region.End) of the same contig; refStart
// is the 0-based genomic position of refWindow[0].
//
// Parsimony trimming first removes every shared suffix and prefix base
// between Ref and Alt. Left-alignment then repeatedly shifts a pure indel
// one base to the left while the shift doesn't change the net edit (the
// base being dropped off the right equals the base being picked up on
// the left). Finally a pure insertion or deletion gets one padding base
// re-added in front, the minimal representation a VCF record can carry
// without becoming ambiguous at its anchor.
func Normalise(v Variant, refWindow []byte, refStart int32) Variant {
	ref, alt := []byte(v.Ref), []byte(v.Alt)
	begin := v.Region.Begin

	// Trim shared suffix first, so the subsequent left-shift has a
	// stable, minimal pair to operate on.
	for len(ref) > 0 && len(alt) > 0 && ref[len(ref)-1] == alt[len(alt)-1] {
		ref = ref[:len(ref)-1]
		alt = alt[:len(alt)-1]
	}
	// Trim shared prefix.
	shared := 0
	for shared < len(ref) && shared < len(alt) && ref[shared] == alt[shared] {
		shared++
	}
	ref = ref[shared:]
	alt = alt[shared:]
	begin += int32(shared)

	// Left-align indels: while one side is empty (pure insertion or
	// deletion) and we can look one base further left in the reference,
	// shift left whenever the base leaving the right end of the edit
	// equals the base entering on the left.
	for (len(ref) == 0) != (len(alt) == 0) {
		idx := begin - 1 - refStart
		if idx < 0 {
			break
		}
		leftBase := refWindow[idx]
		var rightBase byte
		if len(ref) > 0 {
			rightBase = ref[len(ref)-1]
		} else {
			rightBase = alt[len(alt)-1]
		}
		if leftBase != rightBase {
			break
		}
		if len(ref) > 0 {
			ref = append([]byte{leftBase}, ref[:len(ref)-1]...)
		} else {
			ref = nil
		}
		if len(alt) > 0 {
			alt = append([]byte{leftBase}, alt[:len(alt)-1]...)
		} else {
			alt = nil
		}
		begin--
	}

	// A pure insertion/deletion needs exactly one anchor/padding base so
	// the record isn't ambiguous (an empty Ref or Alt isn't representable
	// in VCF); re-add the base immediately preceding begin.
	if len(ref) == 0 || len(alt) == 0 {
		idx := begin - 1 - refStart
		var pad byte
		if idx >= 0 && int(idx) < len(refWindow) {
			pad = refWindow[idx]
		} else if len(ref) > 0 {
			pad = ref[0]
		} else {
			pad = alt[0]
		}
		ref = append([]byte{pad}, ref...)
		alt = append([]byte{pad}, alt...)
		begin--
	}

	end := begin + int32(len(ref))
	return New(genome.New(v.Region.Contig, begin, end), string(ref), string(alt))
}

// IsParsimonious reports whether a variant is already in minimal form:
// no shared prefix beyond one padding base, and no shared suffix unless
// Ref or Alt is a single base.
func IsParsimonious(v Variant) bool {
	ref, alt := v.Ref, v.Alt
	if len(ref) > 0 && len(alt) > 0 && ref[len(ref)-1] == alt[len(alt)-1] && len(ref) > 1 && len(alt) > 1 {
		return false
	}
	shared := 0
	for shared < len(ref) && shared < len(alt) && ref[shared] == alt[shared] {
		shared++
	}
	// one padding base is allowed only when one side would otherwise be
	// empty.
	if shared == 0 {
		return true
	}
	if shared == 1 && (len(ref) == 1 || len(alt) == 1) {
		return true
	}
	return false
}

// Key returns a string uniquely identifying this variant for use as a
// dedup map key — cheaper than comparing genome.Region + two strings at
// every call site.
func (v Variant) Key() string {
	var b strings.Builder
	b.Grow(len(v.Region.Contig) + len(v.Ref) + len(v.Alt) + 24)
	b.WriteString(v.Region.Contig)
	b.WriteByte(':')
	writeInt32(&b, v.Region.Begin)
	b.WriteByte('-')
	writeInt32(&b, v.Region.End)
	b.WriteByte(' ')
	b.WriteString(v.Ref)
	b.WriteByte('>')
	b.WriteString(v.Alt)
	return b.String()
}

func writeInt32(b *strings.Builder, v int32) {
	if v < 0 {
		b.WriteByte('-')
		v = -v
	}
	if v == 0 {
		b.WriteByte('0')
		return
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	b.Write(buf[i:])
}

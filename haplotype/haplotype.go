// Package haplotype implements the Haplotype and Genotype<T> data model
// (spec.md §3, §4.2 invariants).
package haplotype

import (
	"sort"
	"strings"

	"github.com/Schaudge/octopus/allele"
	"github.com/Schaudge/octopus/genome"
)

// Haplotype is a reference-anchored sequence over a window, formed by
// applying a consistent set of alleles to the reference (spec.md §3).
// Sequence equals the reference over any subregion not covered by one
// of Alleles; at most one allele covers any given overlapping site.
type Haplotype struct {
	Region   genome.Region
	Sequence string
	Alleles  []allele.Allele
	IsRef    bool
	// Score is a ranking value filled in by the haplotype generator: the
	// number of non-reference alleles applied, a proxy for coalescent
	// prior used by the filter's tie-break (spec.md §4.3 dedup, §4.4
	// filter); lower favours reference-like haplotypes.
	Score float64
}

// Equal reports whether two haplotypes span the same region with the
// same underlying sequence — the identity elprep's dedup step
// (spec.md §4.3) and genotype multiset equality both rely on.
func (h Haplotype) Equal(other Haplotype) bool {
	return h.Region == other.Region && h.Sequence == other.Sequence
}

// Contains reports whether a is one of this haplotype's constituent
// alleles (exact match).
func (h Haplotype) Contains(a allele.Allele) bool {
	for _, have := range h.Alleles {
		if have.Equal(a) {
			return true
		}
	}
	return false
}

// Includes reports whether this haplotype's edit path is consistent with
// allele a, accounting for indel boundary ambiguity: an insertion or
// deletion allele whose left-aligned representation coincides with a
// constituent allele after re-normalising against this haplotype's own
// anchor counts as included even if the literal (region, bases) pair
// differs by a shared anchor base.
func (h Haplotype) Includes(a allele.Allele, ref []byte, refStart int32) bool {
	if h.Contains(a) {
		return true
	}
	if !a.Region.Overlaps(h.Region) && !(a.Region.Empty() && h.Region.Contains(a.Region)) {
		return false
	}
	for _, have := range h.Alleles {
		if !have.Region.Overlaps(a.Region) && have.Region.End != a.Region.Begin && a.Region.End != have.Region.Begin {
			continue
		}
		if indelAmbiguousMatch(have, a, ref, refStart) {
			return true
		}
	}
	return false
}

// indelAmbiguousMatch compares two indel alleles after trimming a
// one-base anchor pad (carried by only one of them, which then starts
// one base earlier, or shared by both), so that e.g. an insertion
// recorded as "A"->"AT" at pos 5 matches one recorded as ""->"T" at
// pos 6 relative to the same anchor.
func indelAmbiguousMatch(have, want allele.Allele, ref []byte, refStart int32) bool {
	hb, wb := have.Bases, want.Bases
	switch {
	case len(hb) == len(wb)+1 && have.Region.Begin+1 == want.Region.Begin:
		hb = hb[1:]
	case len(wb) == len(hb)+1 && want.Region.Begin+1 == have.Region.Begin:
		wb = wb[1:]
	case len(hb) > 0 && len(wb) > 0 && hb[0] == wb[0]:
		hb, wb = hb[1:], wb[1:]
	}
	return hb == wb && have.Region.Length()-int32(len(have.Bases)) == want.Region.Length()-int32(len(want.Bases))
}

// Apply constructs the Sequence of a haplotype by splicing alleles into
// a reference window. refWindow covers [span.Begin, span.End) on
// span.Contig. Alleles must be sorted by region and non-overlapping;
// this is the faithfulness contract checked by spec.md §8.2.
func Apply(span genome.Region, refWindow []byte, alleles []allele.Allele) Haplotype {
	sorted := append([]allele.Allele(nil), alleles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Region.Less(sorted[j].Region) })

	var b strings.Builder
	b.Grow(len(refWindow))
	cursor := span.Begin
	for _, a := range sorted {
		if a.Region.Begin < cursor {
			continue // overlapping alleles beyond the first are dropped silently by callers that violate the single-allele-per-site invariant
		}
		b.Write(refWindow[cursor-span.Begin : a.Region.Begin-span.Begin])
		b.WriteString(a.Bases)
		cursor = a.Region.End
	}
	if cursor < span.End {
		b.Write(refWindow[cursor-span.Begin:])
	}
	isRef := len(sorted) == 0
	return Haplotype{Region: span, Sequence: b.String(), Alleles: sorted, IsRef: isRef}
}

// Equatable is satisfied by the two element types genotypes are built
// from, Haplotype and allele.Allele. Genotype elements are compared
// structurally via Equal rather than Go's built-in ==, since Haplotype
// embeds slice fields and therefore isn't itself a comparable type.
type Equatable[T any] interface {
	Equal(T) bool
}

// Genotype is an unordered multiset of T (Haplotype or allele.Allele) of
// fixed ploidy k.
type Genotype[T Equatable[T]] struct {
	elements []T
	ploidy   int
}

// NewGenotype builds a Genotype from the given elements; ploidy is
// len(elements).
func NewGenotype[T Equatable[T]](elements ...T) Genotype[T] {
	cp := append([]T(nil), elements...)
	return Genotype[T]{elements: cp, ploidy: len(cp)}
}

// Ploidy returns the fixed cardinality k of this genotype.
func (g Genotype[T]) Ploidy() int {
	return g.ploidy
}

// Elements returns the genotype's multiset members in construction order.
func (g Genotype[T]) Elements() []T {
	return g.elements
}

// CountOccurrences returns how many copies of t this genotype carries.
func (g Genotype[T]) CountOccurrences(t T) int {
	n := 0
	for _, e := range g.elements {
		if e.Equal(t) {
			n++
		}
	}
	return n
}

// Contains reports whether t occurs at least once.
func (g Genotype[T]) Contains(t T) bool {
	return g.CountOccurrences(t) > 0
}

// Equal reports multiset equality: same elements with the same
// multiplicities, regardless of order.
func (g Genotype[T]) Equal(other Genotype[T]) bool {
	if g.ploidy != other.ploidy {
		return false
	}
	for _, e := range g.elements {
		if g.CountOccurrences(e) != other.CountOccurrences(e) {
			return false
		}
	}
	for _, e := range other.elements {
		if !g.Contains(e) {
			return false
		}
	}
	return true
}

// IsHomozygous reports whether every element is identical.
func (g Genotype[T]) IsHomozygous() bool {
	if len(g.elements) == 0 {
		return true
	}
	first := g.elements[0]
	for _, e := range g.elements[1:] {
		if !e.Equal(first) {
			return false
		}
	}
	return true
}

// CancerGenotype is a germline genotype plus a multiset of somatic
// haplotypes (spec.md §3); total ploidy is germline ploidy + somatic
// count.
type CancerGenotype struct {
	Germline Genotype[Haplotype]
	Somatic  []Haplotype
}

// Ploidy returns the combined germline + somatic cardinality.
func (c CancerGenotype) Ploidy() int {
	return c.Germline.Ploidy() + len(c.Somatic)
}

// ContainsSomatic reports whether h occurs among the somatic haplotypes.
func (c CancerGenotype) ContainsSomatic(h Haplotype) bool {
	for _, s := range c.Somatic {
		if s.Equal(h) {
			return true
		}
	}
	return false
}

package reads

// Filter is a pure predicate over a read; spec.md §6 requires that
// filter order is immaterial, so All composes any set of Filter
// values with simple conjunction.
type Filter func(AlignedRead) bool

// All combines filters with logical AND.
func All(filters ...Filter) Filter {
	return func(r AlignedRead) bool {
		for _, f := range filters {
			if !f(r) {
				return false
			}
		}
		return true
	}
}

// IsMapped filters out unmapped reads.
func IsMapped() Filter {
	return func(r AlignedRead) bool { return r.IsMapped() }
}

// MinMappingQuality filters out reads below mapping quality q.
func MinMappingQuality(q byte) Filter {
	return func(r AlignedRead) bool { return r.MappingQual >= q }
}

// HasSufficientGoodQualityBases requires at least n bases with base
// quality >= q.
func HasSufficientGoodQualityBases(q byte, n int) Filter {
	return func(r AlignedRead) bool { return r.GoodQualityBaseCount(q) >= n }
}

// HasGoodBaseFraction requires at least fraction f of bases to have base
// quality >= q.
func HasGoodBaseFraction(q byte, f float64) Filter {
	return func(r AlignedRead) bool { return r.GoodQualityBaseFraction(q) >= f }
}

// IsNotMarkedDuplicate filters out PCR/optical duplicates.
func IsNotMarkedDuplicate() Filter {
	return func(r AlignedRead) bool { return !r.IsDuplicate() }
}

// IsNotMarkedQCFail filters out vendor QC failures.
func IsNotMarkedQCFail() Filter {
	return func(r AlignedRead) bool { return !r.IsQCFail() }
}

// IsNotSecondary filters out secondary alignments.
func IsNotSecondary() Filter {
	return func(r AlignedRead) bool { return !r.IsSecondary() }
}

// IsNotSupplementary filters out supplementary alignments.
func IsNotSupplementary() Filter {
	return func(r AlignedRead) bool { return !r.IsSupplementary() }
}

// NextSegmentMapped requires the mate to be mapped.
func NextSegmentMapped() Filter {
	return func(r AlignedRead) bool { return r.MateIsMapped() }
}

// MinLength filters out reads shorter than l bases.
func MinLength(l int) Filter {
	return func(r AlignedRead) bool { return r.Length() >= l }
}

// MaxLength filters out reads longer than l bases.
func MaxLength(l int) Filter {
	return func(r AlignedRead) bool { return r.Length() <= l }
}

// Standard is the default filter set elprep-style callers assemble from
// the CLI's filter flags (spec.md §6): mapped, not duplicate, not
// QC-fail, not secondary.
func Standard(minMappingQuality byte) Filter {
	return All(
		IsMapped(),
		MinMappingQuality(minMappingQuality),
		IsNotMarkedDuplicate(),
		IsNotMarkedQCFail(),
		IsNotSecondary(),
	)
}

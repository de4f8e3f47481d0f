package reads

import (
	"sort"

	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/internal"
)

// downsampleSeed is fixed so that downsampling decisions are
// reproducible across runs (spec.md §6 Downsampler, §8.10 contract).
const downsampleSeed = 0x6f63746f70757331 // "octopus1" as hex, picked once and never reseeded

// Downsampler removes reads from positions whose coverage exceeds
// TriggerCoverage until every position in the affected stretch has
// coverage <= TargetCoverage (spec.md §6).
type Downsampler struct {
	TriggerCoverage, TargetCoverage int
}

// Downsample applies the downsampling contract to reads, which must
// already be sorted by region. The input is not mutated: rs itself is
// returned when downsampling is disabled or no position exceeds
// TriggerCoverage, otherwise a new slice.
func (d Downsampler) Downsample(region genome.Region, rs []AlignedRead) []AlignedRead {
	if d.TriggerCoverage <= 0 || len(rs) == 0 {
		return rs
	}
	width := int(region.Length())
	if width <= 0 {
		return rs
	}
	coverage := coverageProfile(region, rs, width)

	exceeds := false
	for _, c := range coverage {
		if c > d.TriggerCoverage {
			exceeds = true
			break
		}
	}
	if !exceeds {
		return rs
	}

	kept := make([]bool, len(rs))
	for i := range kept {
		kept[i] = true
	}
	rng := internal.NewRand(downsampleSeed)

	for {
		pos, count := maxCoverage(coverage)
		if count <= d.TargetCoverage {
			break
		}
		candidates := overlapping(region, rs, kept, pos)
		if len(candidates) == 0 {
			break
		}
		// bias removal toward reads that also cover other
		// still-high-coverage positions: weight by the minimum coverage
		// along the read's span so reads sitting entirely in the excess
		// stretch are removed before reads that also prop up a
		// low-coverage neighbour.
		weights := make([]float64, len(candidates))
		var total float64
		for i, idx := range candidates {
			weights[i] = float64(minCoverageOverSpan(region, rs[idx], coverage)) + 1
			total += weights[i]
		}
		r := rng.Float64() * total
		chosen := candidates[len(candidates)-1]
		var acc float64
		for i, w := range weights {
			acc += w
			if r <= acc {
				chosen = candidates[i]
				break
			}
		}
		kept[chosen] = false
		subtractCoverage(region, rs[chosen], coverage)
	}

	result := make([]AlignedRead, 0, len(rs))
	for i, k := range kept {
		if k {
			result = append(result, rs[i])
		}
	}
	return result
}

func coverageProfile(region genome.Region, rs []AlignedRead, width int) []int {
	coverage := make([]int, width)
	for _, r := range rs {
		addCoverage(region, r, coverage)
	}
	return coverage
}

func addCoverage(region genome.Region, r AlignedRead, coverage []int) {
	begin := internal.MaxInt32(region.Begin, r.Region.Begin)
	end := internal.MinInt32(region.End, r.Region.End)
	for p := begin; p < end; p++ {
		coverage[p-region.Begin]++
	}
}

func subtractCoverage(region genome.Region, r AlignedRead, coverage []int) {
	begin := internal.MaxInt32(region.Begin, r.Region.Begin)
	end := internal.MinInt32(region.End, r.Region.End)
	for p := begin; p < end; p++ {
		coverage[p-region.Begin]--
	}
}

func maxCoverage(coverage []int) (pos, count int) {
	for i, c := range coverage {
		if c > count {
			count, pos = c, i
		}
	}
	return pos, count
}

func overlapping(region genome.Region, rs []AlignedRead, kept []bool, pos int) []int {
	target := region.Begin + int32(pos)
	var result []int
	for i, r := range rs {
		if kept[i] && r.Region.Begin <= target && target < r.Region.End {
			result = append(result, i)
		}
	}
	return result
}

func minCoverageOverSpan(region genome.Region, r AlignedRead, coverage []int) int {
	begin := internal.MaxInt32(region.Begin, r.Region.Begin)
	end := internal.MinInt32(region.End, r.Region.End)
	if begin >= end {
		return 0
	}
	min := coverage[begin-region.Begin]
	for p := begin + 1; p < end; p++ {
		if c := coverage[p-region.Begin]; c < min {
			min = c
		}
	}
	return min
}

// SortByStart sorts reads by (region, flags, name) as spec.md §6
// requires the core to do for reads returned unsorted by a read source.
func SortByStart(rs []AlignedRead) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Region != b.Region {
			return a.Region.Less(b.Region)
		}
		if a.Flags != b.Flags {
			return a.Flags < b.Flags
		}
		return a.TemplateName < b.TemplateName
	})
}

// Deduplicate removes exact (region, sequence, template name) repeats
// from an already-sorted read slice, as spec.md §6 requires of the core
// after sorting reads returned by a read source.
func Deduplicate(rs []AlignedRead) []AlignedRead {
	if len(rs) == 0 {
		return rs
	}
	result := rs[:1]
	for _, r := range rs[1:] {
		last := result[len(result)-1]
		if r.Region == last.Region && r.Sequence == last.Sequence && r.TemplateName == last.TemplateName {
			continue
		}
		result = append(result, r)
	}
	return result
}

// Package haplofilter implements the haplotype filter of spec.md §4.4:
// reduce a haplotype set to at most MaxHaplotypes, sample-aware, ranked
// by a combined uniform-posterior/max-likelihood score.
package haplofilter

import (
	"math"
	"sort"

	"github.com/Schaudge/octopus/haplotype"
	"github.com/Schaudge/octopus/likelihood"
)

// Filter caps the haplotype set size, grounded on elprep's
// haplotype-pruning step in filters/pairhmm.go (ranking candidate
// haplotypes by best-supporting-read evidence before the expensive
// per-read pass).
type Filter struct {
	MaxHaplotypes int
}

// Result reports the outcome of a single Reduce call.
type Result struct {
	Kept    []haplotype.Haplotype
	Dropped []haplotype.Haplotype
	// Exhausted is true when every haplotype scored identically and the
	// filter could not distinguish a subset to keep (spec.md §4.4
	// contract: "If filtering removes all haplotypes (only when all
	// scores are equal)...").
	Exhausted bool
}

// Reduce ranks haps using cache (already populated for every sample) and
// keeps the top f.MaxHaplotypes. If the set is already at or below the
// cap, it is returned unchanged.
func (f Filter) Reduce(haps []haplotype.Haplotype, cache *likelihood.Cache) Result {
	if f.MaxHaplotypes <= 0 || len(haps) <= f.MaxHaplotypes {
		return Result{Kept: haps}
	}

	scores := make([]float64, len(haps))
	for i := range haps {
		scores[i] = math.Inf(-1)
	}
	for _, sample := range cache.Samples() {
		table, ok := cache.Table(sample)
		if !ok {
			continue
		}
		for row := 0; row < table.NumReads(); row++ {
			for col := 0; col < len(haps) && col < len(cache.Haplotypes); col++ {
				ll := table.Get(row, col)
				// cheap uniform-prior posterior proxy combined with raw
				// likelihood: since every haplotype shares the same
				// uniform prior here, the combination collapses to the
				// per-sample max likelihood, matching spec.md's "combined
				// score" when no informative prior distinguishes
				// haplotypes yet.
				if ll > scores[col] {
					scores[col] = ll
				}
			}
		}
	}

	order := make([]int, len(haps))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		// ties broken by lower coalescent prior (favours reference-like);
		// Haplotype.Score is filled by the generator/dedup step as a
		// reference-distance proxy, lower meaning more reference-like.
		return haps[a].Score < haps[b].Score
	})

	allTied := true
	for i := 1; i < len(scores); i++ {
		if scores[i] != scores[0] {
			allTied = false
			break
		}
	}
	if allTied {
		return Result{Exhausted: true, Dropped: haps}
	}

	keepSet := make(map[int]bool, f.MaxHaplotypes)
	for _, idx := range order[:f.MaxHaplotypes] {
		keepSet[idx] = true
	}
	kept := make([]haplotype.Haplotype, 0, f.MaxHaplotypes)
	dropped := make([]haplotype.Haplotype, 0, len(haps)-f.MaxHaplotypes)
	for i, h := range haps {
		if keepSet[i] {
			kept = append(kept, h)
		} else {
			dropped = append(dropped, h)
		}
	}
	return Result{Kept: kept, Dropped: dropped}
}

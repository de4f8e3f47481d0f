// Package genotyping implements the five Bayesian genotype-inference
// models of spec.md §4.5, sharing a common numeric contract: every
// intermediate product is computed in log10 space, and final
// normalisation goes through log-sum-exp.
package genotyping

import (
	"github.com/Schaudge/octopus/haplotype"
)

// Space enumerates the genotype_space spec.md §4.5 models are
// parameterised over: every distinct unordered multiset of ploidy
// haplotypes drawn from haps, capped at maxGenotypes.
type Space struct {
	Genotypes []haplotype.Genotype[haplotype.Haplotype]
	// Truncated is true when maxGenotypes cut the enumeration short.
	Truncated bool
}

// NewSpace enumerates genotypes of the given ploidy over haps. When the
// full enumeration (combinations with repetition, C(n+k-1,k)) exceeds
// maxGenotypes, the space is truncated to the maxGenotypes
// highest-prior-looking combinations (those built from haplotypes
// earliest in haps, which the haplotype filter already ranks by
// coalescent-favouring score) and Truncated is set.
func NewSpace(haps []haplotype.Haplotype, ploidy, maxGenotypes int) Space {
	if ploidy <= 0 || len(haps) == 0 {
		return Space{Genotypes: []haplotype.Genotype[haplotype.Haplotype]{haplotype.NewGenotype[haplotype.Haplotype]()}}
	}
	var all []haplotype.Genotype[haplotype.Haplotype]
	// combo walks every non-decreasing index tuple (the odometer
	// algorithm for combinations with repetition) in the same
	// lexicographic order a recursive start/depth enumeration would
	// visit them, without recursion.
	combo := make([]int, ploidy)
	for {
		if maxGenotypes > 0 && len(all) >= maxGenotypes {
			break
		}
		elems := make([]haplotype.Haplotype, ploidy)
		for i, idx := range combo {
			elems[i] = haps[idx]
		}
		all = append(all, haplotype.NewGenotype(elems...))

		i := ploidy - 1
		for i >= 0 && combo[i] == len(haps)-1 {
			i--
		}
		if i < 0 {
			break
		}
		combo[i]++
		for j := i + 1; j < ploidy; j++ {
			combo[j] = combo[i]
		}
	}
	truncated := maxGenotypes > 0 && combinationsWithRepetition(len(haps), ploidy) > maxGenotypes
	return Space{Genotypes: all, Truncated: truncated}
}

func combinationsWithRepetition(n, k int) int {
	// C(n+k-1, k)
	num := 1
	den := 1
	for i := 1; i <= k; i++ {
		num *= n + k - i
		den *= i
	}
	if den == 0 {
		return 0
	}
	return num / den
}

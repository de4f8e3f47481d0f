// Package candidates generates candidate variants from aligned reads,
// implementing spec.md §4.1: alignment-based extraction from CIGAR
// strings, local de Bruijn assembly, and ingestion of externally
// supplied call sets, followed by a shared normalization contract.
package candidates

import (
	"sort"

	"github.com/Schaudge/octopus/allele"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/octoerr"
	"github.com/Schaudge/octopus/reads"
)

// Generator proposes candidate variants over a region given the reads
// overlapping it and the reference sequence of that region (spec.md
// §4.1 "Generator").
type Generator interface {
	Generate(region genome.Region, rs []reads.AlignedRead, ref []byte, refStart int32) ([]allele.Variant, error)
}

// Chain runs several generators and merges+normalizes their output
// (spec.md §4.1 "candidates from multiple generators are pooled,
// normalized, and deduplicated before being handed to the haplotype
// generator").
type Chain struct {
	Generators    []Generator
	MaxVariantSize int
}

// Generate runs every generator and returns the pooled, normalized,
// deduplicated, size-filtered candidate set, sorted by genomic position
// (spec.md §4.1, §8.1 idempotence contract).
func (c Chain) Generate(region genome.Region, rs []reads.AlignedRead, ref []byte, refStart int32) ([]allele.Variant, error) {
	var pooled []allele.Variant
	var assemblyErr error
	for _, g := range c.Generators {
		vs, err := g.Generate(region, rs, ref, refStart)
		if err != nil {
			if _, ok := err.(octoerr.AssemblyFailed); ok {
				// non-fatal: this generator contributes nothing for this
				// region, but the others still run.
				assemblyErr = err
				continue
			}
			return nil, err
		}
		pooled = append(pooled, vs...)
	}
	return Normalise(pooled, ref, refStart, c.MaxVariantSize), assemblyErr
}

// Normalise left-aligns every variant, drops anything over
// maxVariantSize (0 means unlimited), deduplicates, and sorts by
// position — the contract spec.md §8.1 requires to be idempotent:
// Normalise(Normalise(vs)) == Normalise(vs).
func Normalise(vs []allele.Variant, ref []byte, refStart int32, maxVariantSize int) []allele.Variant {
	seen := make(map[string]bool, len(vs))
	result := make([]allele.Variant, 0, len(vs))
	for _, v := range vs {
		n := allele.Normalise(v, ref, refStart)
		size := n.Size()
		if size < 0 {
			size = -size
		}
		if maxVariantSize > 0 && size > maxVariantSize {
			continue
		}
		key := n.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result
}

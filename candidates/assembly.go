package candidates

import (
	"sort"

	"github.com/Schaudge/octopus/allele"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/octoerr"
	"github.com/Schaudge/octopus/reads"
)

// AssemblyGenerator builds a k-mer (de Bruijn) graph from reads and the
// reference over a region, at one or more k sizes, and emits a variant
// for every divergence between an assembled reference-to-reference path
// and the reference itself. Grounded on elprep's kmerGraph
// (filters/assemble-reads.go): a dense, integer-indexed vertex/edge
// graph rather than a graph of Go pointers, matching the arena/index
// discipline spec.md's Design Notes call for.
type AssemblyGenerator struct {
	KmerSizes   []int
	MaxPaths    int
	MinBaseQual byte
}

// Generate implements Generator. It never returns AssemblyFailed as a
// fatal error to the caller loop: per SPEC_FULL.md §4, a failed assembly
// at one k falls back to the next configured k, and failure at every k
// degrades to "no assembly candidates" rather than aborting the region.
func (g AssemblyGenerator) Generate(region genome.Region, rs []reads.AlignedRead, ref []byte, refStart int32) ([]allele.Variant, error) {
	refSeq := string(ref)
	var out []allele.Variant
	seen := make(map[string]bool)
	for _, k := range g.KmerSizes {
		paths, err := assemble(k, refSeq, rs, g.MinBaseQual, g.MaxPaths)
		if err != nil {
			continue // degrade to the next k, per AssemblyFailed contract
		}
		for _, path := range paths {
			if path == refSeq {
				continue
			}
			for _, v := range diffAgainstReference(path, refSeq, region.Contig, refStart) {
				key := v.Key()
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, v)
			}
		}
	}
	return out, nil
}

type vertex struct {
	id    int
	kmer  string
	isRef bool
}

type graph struct {
	kmerSize int
	vertices map[string]*vertex
	nextID   int
	out      map[int][]int
	byID     map[int]*vertex
}

func newGraph(k int) *graph {
	return &graph{
		kmerSize: k,
		vertices: make(map[string]*vertex),
		out:      make(map[int][]int),
		byID:     make(map[int]*vertex),
	}
}

func (g *graph) vertexFor(kmer string, isRef bool) *vertex {
	v, ok := g.vertices[kmer]
	if !ok {
		g.nextID++
		v = &vertex{id: g.nextID, kmer: kmer}
		g.vertices[kmer] = v
		g.byID[v.id] = v
	}
	if isRef {
		v.isRef = true
	}
	return v
}

func (g *graph) addEdge(from, to *vertex) {
	for _, existing := range g.out[from.id] {
		if existing == to.id {
			return
		}
	}
	g.out[from.id] = append(g.out[from.id], to.id)
}

func (g *graph) addSequence(seq string, isRef bool) {
	if len(seq) < g.kmerSize+1 {
		return
	}
	prev := g.vertexFor(seq[0:g.kmerSize], isRef)
	for i := 1; i+g.kmerSize <= len(seq); i++ {
		cur := g.vertexFor(seq[i:i+g.kmerSize], isRef)
		g.addEdge(prev, cur)
		prev = cur
	}
}

// assemble builds a k-mer graph from the reference and usable read
// bases, then enumerates source(reference-prefix)-to-sink
// (reference-suffix) paths up to maxPaths, matching elprep's bound on
// graph traversal fan-out to keep assembly tractable in repetitive
// regions.
func assemble(k int, ref string, rs []reads.AlignedRead, minQual byte, maxPaths int) ([]string, error) {
	if len(ref) < k+1 {
		return nil, octoerr.AssemblyFailed{Reason: "reference window shorter than kmer size"}
	}
	g := newGraph(k)
	g.addSequence(ref, true)
	for _, r := range rs {
		for _, usable := range usableStretches(r, minQual) {
			g.addSequence(usable, false)
		}
	}

	refStart := g.vertices[ref[0:k]]
	refEnd := g.vertices[ref[len(ref)-k:]]
	if refStart == nil || refEnd == nil {
		return nil, octoerr.AssemblyFailed{Reason: "reference endpoints missing from graph"}
	}

	var paths []string
	visited := make(map[int]bool)
	var walk func(v *vertex, acc string) bool
	walk = func(v *vertex, acc string) bool {
		if len(paths) >= maxPaths {
			return false
		}
		if v.id == refEnd.id {
			paths = append(paths, acc)
		}
		if visited[v.id] {
			return true // cycle guard: stop extending, keep what we have
		}
		visited[v.id] = true
		defer delete(visited, v.id)
		for _, nextID := range g.out[v.id] {
			next := g.byID[nextID]
			if !walk(next, acc+next.kmer[k-1:]) {
				return false
			}
		}
		return true
	}
	walk(refStart, ref[0:k])

	if len(paths) == 0 {
		return nil, octoerr.AssemblyFailed{Reason: "no reference-to-reference path found"}
	}
	return paths, nil
}

func usableStretches(r reads.AlignedRead, minQual byte) []string {
	var out []string
	start := -1
	for i := 0; i < len(r.Sequence); i++ {
		usable := r.Sequence[i] != 'N' && (i >= len(r.BaseQuals) || r.BaseQuals[i] == 0 || r.BaseQuals[i] >= minQual)
		if usable {
			if start == -1 {
				start = i
			}
		} else if start != -1 {
			out = append(out, r.Sequence[start:i])
			start = -1
		}
	}
	if start != -1 {
		out = append(out, r.Sequence[start:])
	}
	return out
}

// diffAgainstReference aligns an assembled path against the reference
// with a simple anchored longest-common-subsequence diff (both strings
// share their first and last kmerSize bases, so a global alignment
// anchored at those bounds is sufficient; full Smith-Waterman is
// unnecessary for the short regional windows the caller loop hands
// this generator) and emits one variant per divergent block.
func diffAgainstReference(path, ref, contig string, refStart int32) []allele.Variant {
	m, n := len(path), len(ref)
	// classic LCS DP table, bounded by the regional window sizes the
	// caller loop uses (hundreds of bases), so O(m*n) is acceptable.
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if path[i-1] == ref[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] >= dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}

	type op struct {
		pathIdx, refIdx int
		match           bool
	}
	var ops []op
	i, j := m, n
	for i > 0 && j > 0 {
		switch {
		case path[i-1] == ref[j-1]:
			ops = append(ops, op{i - 1, j - 1, true})
			i--
			j--
		case dp[i-1][j] >= dp[i][j-1]:
			ops = append(ops, op{i - 1, -1, false})
			i--
		default:
			ops = append(ops, op{-1, j - 1, false})
			j--
		}
	}
	for i > 0 {
		ops = append(ops, op{i - 1, -1, false})
		i--
	}
	for j > 0 {
		ops = append(ops, op{-1, j - 1, false})
		j--
	}
	for l, r := 0, len(ops)-1; l < r; l, r = l+1, r-1 {
		ops[l], ops[r] = ops[r], ops[l]
	}

	var variants []allele.Variant
	k := 0
	for k < len(ops) {
		if ops[k].match {
			k++
			continue
		}
		start := k
		for k < len(ops) && !ops[k].match {
			k++
		}
		block := ops[start:k]
		anchor := start - 1
		if anchor < 0 {
			continue // divergence at the very start with no anchor base; skip
		}
		anchorRefIdx := ops[anchor].refIdx
		if anchorRefIdx < 0 {
			continue
		}
		var refBases, altBases []byte
		refBases = append(refBases, ref[anchorRefIdx])
		altBases = append(altBases, ref[anchorRefIdx])
		for _, o := range block {
			if o.refIdx >= 0 {
				refBases = append(refBases, ref[o.refIdx])
			}
			if o.pathIdx >= 0 {
				altBases = append(altBases, path[o.pathIdx])
			}
		}
		begin := refStart + int32(anchorRefIdx)
		end := begin + int32(len(refBases))
		variants = append(variants, allele.New(genome.New(contig, begin, end), string(refBases), string(altBases)))
	}
	return variants
}

// sortPaths is used by tests to make assembly output deterministic.
func sortPaths(paths []string) {
	sort.Strings(paths)
}

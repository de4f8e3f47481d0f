// Package recordfactory implements spec.md §4.8: converting a sorted,
// possibly overlapping stream of calls.Call into a stream of
// VCF-compatible vcfsink.Record values, including the indel-block
// normalisation algorithm.
package recordfactory

import (
	"sort"

	"github.com/Schaudge/octopus/calls"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/internal"
	"github.com/Schaudge/octopus/octoerr"
	"github.com/Schaudge/octopus/vcfsink"
)

// spanningAllele is the VCF '*' symbol used when a sample's genotype
// allele extends beyond the current record because an earlier phased
// call already consumed it.
const spanningAllele = "*"

// padPlaceholder is the internal stand-in for an insertion's left-pad
// anchor base. On emission resolvePad strips it from REF; Factory holds
// no reference sequence, so the pad is not replaced by the reference
// base.
const padPlaceholder = '#'

// Factory converts Calls into Records.
type Factory struct {
	ContigOrder genome.ContigOrder
}

// Build normalises and emits one Record per minimal indel block from a
// sorted stream of Calls covering a single contig. Calls must already be
// sorted by Region (spec.md §4.8 "a sorted ... stream of Call objects").
func (f Factory) Build(contig string, callStream []calls.Call) ([]vcfsink.Record, error) {
	blocks := groupByAnchor(callStream)
	records := make([]vcfsink.Record, 0, len(blocks))
	for _, block := range blocks {
		rec, err := f.buildBlock(contig, block)
		if err != nil {
			return nil, err
		}
		records = append(records, rec...)
	}
	return records, nil
}

// groupByAnchor partitions calls into blocks sharing an anchor base: any
// two calls whose regions overlap, or whose regions are adjacent and one
// is a zero-width insertion anchored at the other's boundary, belong to
// the same block (spec.md §4.8 "For each block of calls that share an
// anchor base, unify REF").
func groupByAnchor(callStream []calls.Call) [][]calls.Call {
	sorted := append([]calls.Call(nil), callStream...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Region.Begin != sorted[j].Region.Begin {
			return sorted[i].Region.Begin < sorted[j].Region.Begin
		}
		return sorted[i].Region.End < sorted[j].Region.End
	})

	var blocks [][]calls.Call
	for _, c := range sorted {
		placed := false
		for bi := range blocks {
			last := blocks[bi][len(blocks[bi])-1]
			if shareAnchor(last.Region, c.Region) {
				blocks[bi] = append(blocks[bi], c)
				placed = true
				break
			}
		}
		if !placed {
			blocks = append(blocks, []calls.Call{c})
		}
	}
	return blocks
}

func shareAnchor(a, b genome.Region) bool {
	if a.Overlaps(b) {
		return true
	}
	// zero-width insertion anchored exactly at the other's edge
	if a.Empty() && (a.Begin == b.Begin || a.Begin == b.End) {
		return true
	}
	if b.Empty() && (b.Begin == a.Begin || b.Begin == a.End) {
		return true
	}
	return false
}

// buildBlock unifies REF across a block of anchor-sharing calls, builds
// the ALT union, resolves spanning alleles, and segments the block by
// (begin, end) into one Record per minimal sub-block (spec.md §4.8
// "Finally, segment by begin then by end to produce one VCF record per
// minimal block.").
func (f Factory) buildBlock(contig string, block []calls.Call) ([]vcfsink.Record, error) {
	segments := segmentByBeginEnd(block)
	records := make([]vcfsink.Record, 0, len(segments))
	for _, seg := range segments {
		rec, err := f.buildSegment(contig, seg)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func segmentByBeginEnd(block []calls.Call) [][]calls.Call {
	byKey := make(map[genome.Region][]calls.Call)
	var order []genome.Region
	for _, c := range block {
		if _, ok := byKey[c.Region]; !ok {
			order = append(order, c.Region)
		}
		byKey[c.Region] = append(byKey[c.Region], c)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Less(order[j]) })
	segments := make([][]calls.Call, len(order))
	for i, r := range order {
		segments[i] = byKey[r]
	}
	return segments
}

func (f Factory) buildSegment(contig string, seg []calls.Call) (vcfsink.Record, error) {
	if len(seg) == 0 {
		return vcfsink.Record{}, nil
	}
	first := seg[0]
	ref := first.Variant.Ref
	for _, c := range seg[1:] {
		if c.Variant.Ref != "" && ref != "" && c.Variant.Ref != ref {
			if !compatiblePad(ref, c.Variant.Ref) {
				return vcfsink.Record{}, octoerr.InconsistentCall{
					Region: first.Region.Contig,
					Reason: "disagreeing REF bases within a unified indel block",
				}
			}
		}
		if len(c.Variant.Ref) > len(ref) {
			ref = c.Variant.Ref
		}
	}

	altSet := make(map[string]bool)
	var alts []string
	for _, c := range seg {
		if c.Kind == calls.KindReference {
			continue
		}
		a := c.Variant.Alt
		if a == "" {
			continue
		}
		if !altSet[a] {
			altSet[a] = true
			alts = append(alts, a)
		}
	}
	sort.Strings(alts)
	if needsSpanningAllele(seg, altSet) {
		altSet[spanningAllele] = true
		alts = append(alts, spanningAllele)
	}
	alt := ""
	if len(alts) > 0 {
		alt = alts[0]
		for _, a := range alts[1:] {
			alt += "," + a
		}
	}

	record := vcfsink.Record{
		Chrom:     contig,
		Pos1Based: first.Region.Begin + 1,
		Ref:       resolvePad(ref),
		Alt:       alt,
		Filter:    "PASS",
		Samples:   make(map[string]vcfsink.SampleField),
	}

	var totalDepth int
	var totalBQ, totalMQ float64
	var numSamples int
	for _, c := range seg {
		record.HasQual = true
		if c.Log10Quality < record.Log10Qual || !record.HasQual {
			record.Log10Qual = c.Log10Quality
		}
		if c.HasModelPosterior {
			record.HasModelPosterior = true
			record.ModelPosteriorPhred = internal.PhredFromLog10Probability(c.Log10ModelPosterior)
		}
		if c.HasDenovoPosterior {
			record.Denovo = true
			record.DenovoPosteriorPhred = internal.PhredFromLog10Probability(c.Log10DenovoPosterior)
		}
		for _, sg := range c.Samples {
			numSamples++
			totalDepth += sg.Depth
			totalBQ += sg.BaseQuality
			totalMQ += sg.MappingQuality
			gt := genotypeString(sg, altSet, alts)
			field := vcfsink.SampleField{
				GT: gt,
				GQ: int(internal.PhredFromLog10Probability(sg.Log10Quality)),
				DP: sg.Depth,
				BQ: sg.BaseQuality,
				MQ: sg.MappingQuality,
			}
			if sg.Phased {
				record.Phased = true
				field.PhaseSetID = sg.PhaseSetID
				field.PQ = int(internal.PhredFromLog10Probability(sg.Log10PhaseQuality))
			}
			record.Samples[sg.Sample] = field
		}
	}
	record.NumSamples = numSamples
	record.Depth = totalDepth
	if numSamples > 0 {
		record.MeanBaseQual = totalBQ / float64(numSamples)
		record.MeanMapQual = totalMQ / float64(numSamples)
	}
	return record, nil
}

// genotypeString renders a sample's alleles as GT indices; an allele
// whose region extends beyond the current record (because an earlier
// phased call already consumed it) is encoded with the spanning '*'
// symbol per spec.md §4.8.
func genotypeString(sg calls.SampleGenotype, altSet map[string]bool, alts []string) string {
	if len(sg.Alleles) == 0 {
		return "0/0"
	}
	sep := "/"
	if sg.Phased {
		sep = "|"
	}
	indices := make([]string, 0, len(sg.Alleles))
	for _, a := range sg.Alleles {
		if a.Bases == "" {
			indices = append(indices, "0")
			continue
		}
		if !altSet[a.Bases] {
			indices = append(indices, indexOf(alts, spanningAllele))
			continue
		}
		indices = append(indices, indexOf(alts, a.Bases))
	}
	out := indices[0]
	for _, idx := range indices[1:] {
		out += sep + idx
	}
	return out
}

func indexOf(alts []string, a string) string {
	for i, alt := range alts {
		if alt == a {
			return itoa(i + 1)
		}
	}
	return "."
}

// needsSpanningAllele reports whether any sample in seg carries an
// allele not present in altSet: a genotype that spans a deletion called
// against a different sample in the same block, requiring the '*'
// symbol to be added to this record's ALT union (spec.md §4.8).
func needsSpanningAllele(seg []calls.Call, altSet map[string]bool) bool {
	for _, c := range seg {
		for _, sg := range c.Samples {
			for _, a := range sg.Alleles {
				if a.Bases != "" && !altSet[a.Bases] {
					return true
				}
			}
		}
	}
	return false
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// compatiblePad reports whether two REF strings differ only by a shared
// one-base pad (spec.md §4.8 "Left-pad any insertion using the
// reference base at its anchor").
func compatiblePad(a, b string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	shorter, longer := a, b
	if len(a) > len(b) {
		shorter, longer = b, a
	}
	return longer[:len(shorter)] == shorter || longer[0] == padPlaceholder || shorter[0] == padPlaceholder
}

func resolvePad(ref string) string {
	if len(ref) == 0 {
		return ref
	}
	if ref[0] == padPlaceholder {
		return ref[1:]
	}
	return ref
}

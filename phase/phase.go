// Package phase implements the phaser of spec.md §4.6: from a genotype
// posterior, partitions a window into contiguous phase blocks whose
// combined phased-posterior score clears a configured threshold.
package phase

import (
	"github.com/Schaudge/octopus/allele"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/genotyping"
	"github.com/Schaudge/octopus/internal"
)

// Block is one contiguous phase set for a single sample: a region over
// which the sample's genotype can be written as a concrete ordered
// sequence of alleles, with a combined phase-confidence score.
type Block struct {
	Sample          string
	Region          genome.Region
	Sequence        []allele.Allele // one allele per het site, in haplotype order
	Log10PhaseScore float64
}

// PhaseSet is the per-sample partition of called regions spec.md §3
// names: a sequence of non-overlapping Blocks in genomic order.
type PhaseSet struct {
	Sample string
	Blocks []Block
}

// Phaser holds the configured phase-confidence threshold.
type Phaser struct {
	MinLog10PhaseScore float64 // Phred min-phase-score converted to log10 probability
}

// TryPhase attempts to extend the current phase block to cover window,
// given the haplotype posterior and the candidate alleles active in the
// window. It returns ok=false when the heterozygous sites in window
// cannot be resolved to a single dominant phasing above the configured
// threshold (spec.md §4.6 "a heterozygous site cannot be resolved by
// available haplotype evidence").
func (p Phaser) TryPhase(sample string, window genome.Region, posteriors []genotyping.Posterior) (Block, bool) {
	if len(posteriors) == 0 {
		return Block{}, false
	}
	best := posteriors[0]
	for _, post := range posteriors[1:] {
		if post.Log10Prob > best.Log10Prob {
			best = post
		}
	}
	if best.Log10Prob < p.MinLog10PhaseScore {
		return Block{}, false
	}
	if best.Genotype.IsHomozygous() {
		// a homozygous call carries no phase information to anchor a
		// block on, but doesn't invalidate phasing either; the caller
		// simply has nothing to extend here.
		return Block{}, false
	}
	seq := make([]allele.Allele, 0, len(best.Genotype.Elements()))
	for _, h := range best.Genotype.Elements() {
		seq = append(seq, h.Alleles...)
	}
	return Block{Sample: sample, Region: window, Sequence: seq, Log10PhaseScore: best.Log10Prob}, true
}

// ForcePhase finalises whatever phase information is available for
// region without requiring the threshold to be cleared — spec.md §4.6
// "force_phase is invoked to finalise", used by the caller loop when the
// haplotype generator advances past the current window (spec.md §4.7
// step h).
func (p Phaser) ForcePhase(sample string, region genome.Region, posteriors []genotyping.Posterior) Block {
	if block, ok := p.TryPhase(sample, region, posteriors); ok {
		return block
	}
	if len(posteriors) == 0 {
		return Block{Sample: sample, Region: region, Log10PhaseScore: internal.Log10(0)}
	}
	best := posteriors[0]
	for _, post := range posteriors[1:] {
		if post.Log10Prob > best.Log10Prob {
			best = post
		}
	}
	var seq []allele.Allele
	for _, h := range best.Genotype.Elements() {
		seq = append(seq, h.Alleles...)
	}
	return Block{Sample: sample, Region: region, Sequence: seq, Log10PhaseScore: best.Log10Prob}
}

// Append adds a finalised block to a PhaseSet, merging into the
// previous block only when regions are contiguous and the new block's
// score does not exceed the previous block's (spec.md §8 "phase
// monotonicity"). The merged block takes the new, lower score, so once
// a ForcePhase-produced low-score block has been appended, no
// higher-scoring block merges across it.
func (s *PhaseSet) Append(b Block) {
	if len(s.Blocks) > 0 {
		last := s.Blocks[len(s.Blocks)-1]
		if last.Region.End == b.Region.Begin && last.Log10PhaseScore >= b.Log10PhaseScore {
			s.Blocks[len(s.Blocks)-1].Region.End = b.Region.End
			s.Blocks[len(s.Blocks)-1].Sequence = append(last.Sequence, b.Sequence...)
			s.Blocks[len(s.Blocks)-1].Log10PhaseScore = b.Log10PhaseScore
			return
		}
	}
	s.Blocks = append(s.Blocks, b)
}

// BlockFor returns the block covering position, if any.
func (s *PhaseSet) BlockFor(region genome.Region) (Block, bool) {
	for _, b := range s.Blocks {
		if b.Region.Contains(region) || b.Region.Overlaps(region) {
			return b, true
		}
	}
	return Block{}, false
}

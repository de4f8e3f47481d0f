// Package caller implements the region-by-region calling loop of
// spec.md §4.7, parameterised by a Strategy (recast from the source's
// per-caller class hierarchy into a strategy-pattern interface, per
// SPEC_FULL.md's redesign notes).
package caller

import (
	"sort"

	"github.com/Schaudge/octopus/allele"
	"github.com/Schaudge/octopus/calls"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/genotyping"
	"github.com/Schaudge/octopus/haplofilter"
	"github.com/Schaudge/octopus/haplogen"
	"github.com/Schaudge/octopus/haplotype"
	"github.com/Schaudge/octopus/likelihood"
	"github.com/Schaudge/octopus/metrics"
	"github.com/Schaudge/octopus/phase"
	"github.com/Schaudge/octopus/reads"
)

// Strategy supplies the caller-specific parts of the loop: how to build
// a genotype space and run inference, and how to turn a phased or
// forced window into Calls. Individual/Population/Trio/Cancer (package
// caller/strategy) each implement Strategy, replacing the source's class
// hierarchy of per-caller subclasses.
type Strategy interface {
	// Genotype runs inference over the current haplotype set for the
	// samples present in reads, returning a phase.PhaseSet-ready
	// posterior set for each sample it genotypes on its own (a strategy
	// may leave some samples, e.g. trio members or the normal sample,
	// without one) plus any calls.Call values ready for emission over
	// window.
	Genotype(window genome.Region, haps []haplotype.Haplotype, cache *likelihood.Cache) StrategyResult
}

// StrategyResult is what a Strategy produces for one haplotype-generator
// window: per-sample posteriors (for the phaser) and finished Calls.
type StrategyResult struct {
	SamplePosteriors map[string][]genotyping.Posterior
	Calls            []calls.Call
}

// Config bundles the tunables the loop itself consumes (as opposed to
// strategy- or model-specific tunables, which live on the Strategy
// implementation).
type Config struct {
	MaxHaplotypes int
	MinLog10PhaseScore float64
	EmitReferenceCalls bool
	Haplogen      haplogen.Config
	ErrorModel    likelihood.ErrorModel
}

// Driver runs the §4.7 loop for a single target region on a single
// worker (spec.md §5: "each [worker] processing a disjoint sub-range...
// holding its own instances of the candidate generator, haplotype
// generator, likelihood cache, and models").
type Driver struct {
	Config   Config
	Strategy Strategy
	Metrics  metrics.Sink
}

// Run executes the caller loop over target, given the reads and
// reference window already fetched for it, and the normalized candidate
// set produced by the candidate generator. It returns the calls emitted
// for target, in non-decreasing (begin,end) order (spec.md §5 ordering
// guarantee).
func (d Driver) Run(target genome.Region, rs []reads.AlignedRead, ref []byte, refStart int32, candidateVariants []allele.Variant) []calls.Call {
	if len(candidateVariants) == 0 && !d.Config.EmitReferenceCalls {
		return nil
	}

	gen := haplogen.New(d.Config.Haplogen, target.Contig, candidateVariants, ref, refStart)
	filter := haplofilter.Filter{MaxHaplotypes: d.Config.MaxHaplotypes}
	phaser := phase.Phaser{MinLog10PhaseScore: d.Config.MinLog10PhaseScore}
	phaseSets := make(map[string]*phase.PhaseSet)

	var emitted []calls.Call

	for {
		window, haps, ok := gen.Advance()
		if !ok {
			break
		}
		if window.Begin >= target.End {
			break
		}

		windowReads := readsOverlapping(rs, window)
		cache := likelihood.NewCache(windowReads, haps, d.Config.ErrorModel, likelihood.FlankState{Active: window})
		cache.Populate()

		result := filter.Reduce(haps, cache)
		if result.Exhausted {
			gen.ForceForward(genome.New(target.Contig, window.End, window.End))
			continue
		}
		if len(result.Dropped) > 0 {
			keep := make([]bool, len(haps))
			keptSet := make(map[string]bool, len(result.Kept))
			for _, h := range result.Kept {
				keptSet[h.Sequence] = true
			}
			for i, h := range haps {
				keep[i] = keptSet[h.Sequence]
			}
			cache.RemoveHaplotypes(keep)
			gen.Remove(result.Dropped)
			haps = result.Kept
		}

		strategyResult := d.Strategy.Genotype(window, haps, cache)

		phasedAny := false
		for sample, posteriors := range strategyResult.SamplePosteriors {
			set, ok := phaseSets[sample]
			if !ok {
				set = &phase.PhaseSet{Sample: sample}
				phaseSets[sample] = set
			}
			block, ok := phaser.TryPhase(sample, window, posteriors)
			if !ok {
				// the generator never revisits a window once Advance has
				// returned it, so a sub-threshold block must be finalised
				// now via force_phase (spec.md §4.7 step h) rather than
				// silently dropping its phase information.
				block = phaser.ForcePhase(sample, window, posteriors)
			}
			if block.Region.Overlaps(target) {
				set.Append(block)
				phasedAny = true
			}
		}

		emitted = append(emitted, strategyResult.Calls...)

		if phasedAny {
			gen.ForceForward(genome.New(target.Contig, window.End, window.End))
		}

		if d.Metrics != nil {
			d.Metrics.Observe("caller.window", float64(window.Length()))
		}
	}

	if d.Config.EmitReferenceCalls {
		emitted = append(emitted, referenceFill(target, emitted)...)
	}
	sort.SliceStable(emitted, func(i, j int) bool { return emitted[i].Region.Less(emitted[j].Region) })

	return emitted
}

func readsOverlapping(rs []reads.AlignedRead, window genome.Region) []reads.AlignedRead {
	var out []reads.AlignedRead
	for _, r := range rs {
		if r.Region.Overlaps(window) {
			out = append(out, r)
		}
	}
	return out
}

// referenceFill synthesises KindReference calls for any stretch of
// target not covered by an emitted call, spec.md §4.7 step i "fill in
// refcall blocks for uncovered intervals".
func referenceFill(target genome.Region, emitted []calls.Call) []calls.Call {
	covered := make([]genome.Region, 0, len(emitted))
	for _, c := range emitted {
		covered = append(covered, c.Region)
	}
	gaps := uncoveredGaps(target, covered)
	out := make([]calls.Call, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, calls.Call{Kind: calls.KindReference, Region: g})
	}
	return out
}

func sortRegions(regions []genome.Region) {
	sort.Slice(regions, func(i, j int) bool { return regions[i].Less(regions[j]) })
}

func uncoveredGaps(target genome.Region, covered []genome.Region) []genome.Region {
	if len(covered) == 0 {
		return []genome.Region{target}
	}
	sortRegions(covered)
	var gaps []genome.Region
	cursor := target.Begin
	for _, c := range covered {
		if c.Begin > cursor {
			gaps = append(gaps, genome.New(target.Contig, cursor, c.Begin))
		}
		if c.End > cursor {
			cursor = c.End
		}
	}
	if cursor < target.End {
		gaps = append(gaps, genome.New(target.Contig, cursor, target.End))
	}
	return gaps
}

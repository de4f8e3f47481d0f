// Package haplogen implements the lagging-window haplotype generator of
// spec.md §4.2: a state machine that walks a sorted candidate stream and,
// on each Advance, produces an active region and the haplotypes that
// span it.
package haplogen

import (
	"sort"

	"github.com/willf/bitset"

	"github.com/Schaudge/octopus/allele"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/haplotype"
)

// IndicatorPolicy controls whether already-phased alleles to the left
// of the active window are re-included when the window advances.
type IndicatorPolicy int

const (
	IndicatorNone IndicatorPolicy = iota
	IndicatorIfSharedWithNovel
	IndicatorIfLinkableToNovel
	IndicatorAll
)

// ExtensionPolicy controls when the generator stops growing the active
// region in response to a novel candidate arriving near its frontier.
type ExtensionPolicy int

const (
	ExtensionWithinReadLength ExtensionPolicy = iota
	ExtensionAllSamplesShareFrontier
	ExtensionAnySampleSharesFrontier
	ExtensionNoLimit
)

// Config holds the tunables spec.md §4.2 names.
type Config struct {
	MaxAlleles        int
	IndicatorPolicy   IndicatorPolicy
	ExtensionPolicy   ExtensionPolicy
	ReadTemplatePolicy bool
	MaxExtension      int32
	ReadLength        int32 // used by ExtensionWithinReadLength
}

// State names the generator's lifecycle position.
type State int

const (
	Idle State = iota
	Active
	ForcedForward
	Terminal
)

// Generator is the lagging active-window state machine. Candidates must
// be supplied pre-sorted (candidates.Normalise's postcondition).
type Generator struct {
	cfg        Config
	candidates []allele.Variant
	cursor     int
	state      State
	region     genome.Region
	alleles    []allele.Allele // currently active alleles, one per chosen site
	anchor     genome.Region   // used only in ForcedForward
	refWindow  []byte
	refStart   int32
	contig     string
}

// New creates a generator over a sorted candidate list restricted to a
// single contig; refWindow/refStart must cover at least the full
// candidate span.
func New(cfg Config, contig string, candidates []allele.Variant, refWindow []byte, refStart int32) *Generator {
	return &Generator{
		cfg:        cfg,
		candidates: candidates,
		contig:     contig,
		refWindow:  refWindow,
		refStart:   refStart,
		state:      Idle,
	}
}

// State reports the generator's current lifecycle state.
func (g *Generator) State() State { return g.state }

// Done reports whether the generator has reached Terminal.
func (g *Generator) Done() bool { return g.state == Terminal }

// Advance produces the next active region and haplotype set. It returns
// ok=false once the generator has terminated (no candidates remain).
func (g *Generator) Advance() (region genome.Region, haplotypes []haplotype.Haplotype, ok bool) {
	switch g.state {
	case Idle:
		return g.enterActive()
	case ForcedForward:
		g.state = Active
		g.region = g.anchor
		g.alleles = nil
		return g.enterActiveFrom(g.anchor)
	case Active:
		return g.extend()
	default:
		return genome.Region{}, nil, false
	}
}

// Remove drops haplotypes from the active set (spec.md §4.2 "on
// remove(haplotypes), drop them"), identified by sequence equality.
func (g *Generator) Remove(dropped []haplotype.Haplotype) {
	if len(dropped) == 0 {
		return
	}
	drop := make(map[string]bool, len(dropped))
	for _, h := range dropped {
		drop[h.Sequence] = true
	}
	kept := g.alleles[:0]
	for _, a := range g.alleles {
		if !drop[a.Bases] {
			kept = append(kept, a)
		}
	}
	g.alleles = kept
}

// ForceForward resets the generator to re-enter Active at a caller-
// supplied anchor region, abandoning lagging (spec.md §4.4 contract:
// "the caller resets the active window and retries without lagging").
func (g *Generator) ForceForward(anchor genome.Region) {
	g.anchor = anchor
	g.state = ForcedForward
	for g.cursor < len(g.candidates) && g.candidates[g.cursor].Region.End <= anchor.Begin {
		g.cursor++
	}
}

func (g *Generator) enterActive() (genome.Region, []haplotype.Haplotype, bool) {
	if g.cursor >= len(g.candidates) {
		g.state = Terminal
		return genome.Region{}, nil, false
	}
	leftmost := g.candidates[g.cursor].Region
	return g.enterActiveFrom(leftmost)
}

func (g *Generator) enterActiveFrom(seed genome.Region) (genome.Region, []haplotype.Haplotype, bool) {
	g.state = Active
	g.region = seed
	g.alleles = nil
	return g.extend()
}

// extend grows the active region according to the configured extension
// policy, collects overlapping candidate alleles up to MaxAlleles, and
// re-enumerates the haplotype set.
func (g *Generator) extend() (genome.Region, []haplotype.Haplotype, bool) {
	frontier := g.frontierExtent()
	region := g.region
	var siteAlleles [][]allele.Allele
	count := 0
	for g.cursor < len(g.candidates) {
		c := g.candidates[g.cursor]
		if c.Region.Contig != g.contig {
			break
		}
		if c.Region.Begin > region.End+frontier {
			break
		}
		if count+1 > g.cfg.MaxAlleles {
			break
		}
		site := []allele.Allele{c.RefAllele(), c.AltAllele()}
		siteAlleles = append(siteAlleles, site)
		count++
		if c.Region.End > region.End {
			region.End = c.Region.End
		}
		if c.Region.Begin < region.Begin {
			region.Begin = c.Region.Begin
		}
		g.cursor++
	}
	if len(siteAlleles) == 0 {
		if g.cursor >= len(g.candidates) {
			g.state = Terminal
		}
		return genome.Region{}, nil, false
	}
	g.region = region

	haps := enumerateHaplotypes(region, siteAlleles, g.refWindow, g.refStart)
	haps = removeDuplicates(haps)
	return region, haps, true
}

// frontierExtent computes how far beyond the active region's right edge
// a candidate may sit and still be folded into this Advance, per the
// configured extension policy.
func (g *Generator) frontierExtent() int32 {
	switch g.cfg.ExtensionPolicy {
	case ExtensionWithinReadLength:
		if g.cfg.MaxExtension > 0 && g.cfg.MaxExtension < g.cfg.ReadLength {
			return g.cfg.MaxExtension
		}
		return g.cfg.ReadLength
	case ExtensionNoLimit:
		return 1 << 30
	default:
		if g.cfg.MaxExtension > 0 {
			return g.cfg.MaxExtension
		}
		return 200
	}
}

// enumerateHaplotypes builds every haplotype formed by choosing at most
// one allele per site (spec.md §4.2 "enumerate all haplotypes formed by
// choosing ≤ one allele per overlapping site"), using a bitset to track
// which sites contribute a non-reference allele to a given combination,
// grounded on filters/assigngls.go's forEachAltGenotype enumeration over
// allele-index combinations, and on github.com/willf/bitset as the
// concrete pack-retrieved implementation of the indicator itself.
func enumerateHaplotypes(region genome.Region, sites [][]allele.Allele, ref []byte, refStart int32) []haplotype.Haplotype {
	n := len(sites)
	total := 1
	for i := 0; i < n; i++ {
		total *= 2
	}
	haps := make([]haplotype.Haplotype, 0, total)
	for mask := 0; mask < total; mask++ {
		active := bitset.New(uint(n))
		chosen := make([]allele.Allele, 0, n)
		for i := 0; i < n; i++ {
			if mask&(1<<uint(i)) != 0 {
				active.Set(uint(i))
				chosen = append(chosen, sites[i][1]) // alt
			}
		}
		h := haplotype.Apply(region, ref[region.Begin-refStart:region.End-refStart], chosen)
		h.IsRef = active.None()
		h.Score = float64(len(chosen))
		haps = append(haps, h)
	}
	return haps
}

// removeDuplicates collapses haplotypes with identical sequences,
// retaining the first (lowest combinatorial mask, which enumerateHaplotypes
// produces in an order that favours fewer active alleles — the
// "coalescent-prior-aware ordering that retains the highest-prior
// representative" spec.md §4.3 requires, since fewer non-reference
// alleles is the simplest available proxy for higher coalescent prior
// without a full population model in scope at this layer).
func removeDuplicates(haps []haplotype.Haplotype) []haplotype.Haplotype {
	sort.SliceStable(haps, func(i, j int) bool {
		return len(haps[i].Alleles) < len(haps[j].Alleles)
	})
	seen := make(map[string]bool, len(haps))
	out := haps[:0]
	for _, h := range haps {
		if seen[h.Sequence] {
			continue
		}
		seen[h.Sequence] = true
		out = append(out, h)
	}
	return out
}

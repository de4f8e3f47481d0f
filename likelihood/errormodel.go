// Package likelihood implements the pair-HMM haplotype-likelihood model
// of spec.md §4.3: for each (read, haplotype) pair, a log-likelihood
// computed over match/insert/delete states with affine gap penalties and
// position-specific priors supplied by a per-sample error model.
package likelihood

import (
	"strings"

	"github.com/Schaudge/octopus/internal"
)

// ErrorModel supplies position-specific mismatch and gap priors to the
// pair-HMM, grounded on elprep's repeat-aware matchProbs
// (filters/pairhmm.go) and supplemented, per SPEC_FULL.md §4, by the
// per-base SNV/indel error model shape in original_source's
// core/models/error/snv_error_model.cpp.
type ErrorModel struct {
	// BaseMismatch is the per-base mismatch probability at a given
	// (capped) base quality; indexed [0,93].
	BaseMismatch [94]float64
	// GapOpen and GapExtend are the affine gap-penalty probabilities used
	// when no tandem-repeat context raises them (the "flat" regime).
	GapOpen, GapExtend float64
	// MaxRepeatLength caps the tandem-repeat length used to look up an
	// elevated, repeat-context-aware gap-open probability, exactly as
	// elprep's findTandemRepeatUnits caps maxRL at 20.
	MaxRepeatLength int
}

// DefaultErrorModel builds the error model elprep's pair-HMM implicitly
// uses: Phred-derived mismatch probabilities and a flat indel prior of
// Phred 45 (globalReadMismappingRate's counterpart for gap opening),
// scaled up in homopolymer/tandem-repeat contexts.
func DefaultErrorModel() ErrorModel {
	var m ErrorModel
	for q := range m.BaseMismatch {
		m.BaseMismatch[q] = internal.ErrorProbabilityFromPhred(float64(q))
	}
	m.GapOpen = internal.ErrorProbabilityFromPhred(45)
	m.GapExtend = internal.ErrorProbabilityFromPhred(10)
	m.MaxRepeatLength = 20
	return m
}

// MismatchProbability returns the probability that a base of the given
// (MAPQ-capped) Phred quality is a sequencing error, floored as elprep's
// modifiedQuality does (quality < 18 is treated as quality 6, reflecting
// that very low reported qualities are themselves unreliable).
func (m ErrorModel) MismatchProbability(qual byte) float64 {
	if qual < 18 {
		qual = 6
	}
	if int(qual) >= len(m.BaseMismatch) {
		qual = byte(len(m.BaseMismatch) - 1)
	}
	return m.BaseMismatch[qual]
}

// GapOpenProbability returns the gap-open probability at a given offset
// into readBases, elevated when the offset sits inside a tandem repeat —
// repeats are where real alignments most often carry indels, so a flat
// gap-open prior would punish them too harshly.
func (m ErrorModel) GapOpenProbability(readBases string, offset int) float64 {
	_, repeatLen := tandemRepeatLength(readBases, offset, m.MaxRepeatLength)
	if repeatLen <= 1 {
		return m.GapOpen
	}
	// each additional repeat unit beyond the first roughly doubles the
	// indel slippage rate, capped by MaxRepeatLength; same qualitative
	// shape as elprep's repeat-length-indexed matchToIndelProb table,
	// without requiring elprep's precomputed table.
	p := m.GapOpen * float64(uint(1)<<uint(minInt(repeatLen-1, 12)))
	if p > 0.5 {
		p = 0.5
	}
	return p
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// tandemRepeatLength finds the repeat unit (1 to 8 bases) starting at
// offset with the most consecutive copies, counting forward from offset
// only; adapted from elprep's findTandemRepeatUnits (filters/pairhmm.go).
func tandemRepeatLength(bases string, offset, maxRepeatLength int) (unit string, length int) {
	if offset >= len(bases) {
		return "", maxRepeatLength
	}
	bestUnit := bases[offset : offset+1]
	best := 0
	for unitLen := 1; unitLen <= 8 && offset+unitLen <= len(bases); unitLen++ {
		candidate := bases[offset : offset+unitLen]
		n := countForwardRepeats(candidate, bases[offset:])
		if n > best {
			best = n
			bestUnit = candidate
		}
	}
	if best > maxRepeatLength {
		best = maxRepeatLength
	}
	return bestUnit, best
}

func countForwardRepeats(unit, s string) int {
	n := 0
	for strings.HasPrefix(s, unit) {
		n++
		s = s[len(unit):]
	}
	return n
}

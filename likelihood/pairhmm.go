package likelihood

import (
	"math"
	"sync"

	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/internal"
)

// FlankState breaks a haplotype region down into the active region the
// caller loop is currently genotyping and the inactive left/right flanks
// that extend beyond it (spec.md §4.3 "Flank state", Glossary). Bases in
// an inactive flank receive a reduced penalty because the flank carries
// its own error mass — it was already scored once when its own window
// was active.
type FlankState struct {
	Active                                   genome.Region
	InactiveLeftExtent, InactiveRightExtent int32
}

// flankScale is the per-base weight applied to the mismatch probability
// for bases falling in an inactive flank (gap priors are not scaled);
// less than 1 softens their contribution to the overall score without
// ignoring them outright.
const flankScale = 0.5

func (f FlankState) scaleFor(haplotypePos int32, haplotypeRegionBegin int32) float64 {
	genomicPos := haplotypeRegionBegin + haplotypePos
	if genomicPos < f.Active.Begin || genomicPos >= f.Active.End {
		return flankScale
	}
	return 1
}

type matrices struct {
	match, insert, del [][]float64
}

func (m *matrices) ensure(rows, cols int) {
	if cap(m.match) < rows {
		m.match = make([][]float64, rows)
		m.insert = make([][]float64, rows)
		m.del = make([][]float64, rows)
	}
	m.match = m.match[:rows]
	m.insert = m.insert[:rows]
	m.del = m.del[:rows]
	for i := 0; i < rows; i++ {
		if cap(m.match[i]) < cols {
			m.match[i] = make([]float64, cols)
			m.insert[i] = make([]float64, cols)
			m.del[i] = make([]float64, cols)
		} else {
			m.match[i] = m.match[i][:cols]
			m.insert[i] = m.insert[i][:cols]
			m.del[i] = m.del[i][:cols]
			for j := 0; j < cols; j++ {
				m.match[i][j], m.insert[i][j], m.del[i][j] = 0, 0, 0
			}
		}
	}
}

var matricesPool = sync.Pool{New: func() interface{} { return new(matrices) }}

// initialCondition mirrors elprep's use of a huge initial constant
// to keep the forward recursion away from float64 underflow without
// working entirely in log space (which would be far slower per cell);
// the constant is undone at the end via initialConditionLog10Shift.
var (
	initialCondition          = math.Pow(2, 1020)
	initialConditionLog10Shift = math.Log10(initialCondition)
)

// Score computes the log10 likelihood of readBases/readQuals given
// haplotypeBases, under the pair-HMM recurrence of spec.md §4.3: match,
// insertion and deletion states with affine gap penalties, weighted by
// flank state when the haplotype extends beyond the active region.
//
// haplotypeRegionBegin is the genomic start of haplotypeBases, needed to
// translate a column index into a genomic position for flank weighting.
func Score(model ErrorModel, readBases string, readQuals []byte, haplotypeBases string, haplotypeRegionBegin int32, flank FlankState) float64 {
	rows := len(readBases) + 1
	cols := len(haplotypeBases) + 1
	if rows <= 1 || cols <= 1 {
		return math.Inf(-1)
	}

	mp := matricesPool.Get().(*matrices)
	defer matricesPool.Put(mp)
	mp.ensure(rows, cols)

	indelToIndel := model.GapExtend
	indelToMatch := 1 - indelToIndel

	initial := initialCondition / float64(len(haplotypeBases))
	for j := 0; j < cols; j++ {
		mp.del[0][j] = initial
	}

	for i := 0; i < len(readBases); i++ {
		x := readBases[i]
		qual := readQuals[i]
		mismatch := model.MismatchProbability(qual)
		matchPrior := 1 - mismatch
		nonMatchPrior := mismatch / 3
		gapOpen := model.GapOpenProbability(readBases, i)
		matchToIndel := gapOpen
		matchToMatch := 1 - 2*gapOpen

		for j := 0; j < len(haplotypeBases); j++ {
			y := haplotypeBases[j]
			scale := flank.scaleFor(int32(j), haplotypeRegionBegin)
			var prior float64
			if x == y || x == 'N' || y == 'N' {
				prior = 1 - (1-matchPrior)*scale
			} else {
				prior = nonMatchPrior * scale
			}
			mp.match[i+1][j+1] = prior * (mp.match[i][j]*matchToMatch +
				mp.insert[i][j]*indelToMatch +
				mp.del[i][j]*indelToMatch)
			mp.insert[i+1][j+1] = mp.match[i][j+1]*matchToIndel + mp.insert[i][j+1]*indelToIndel
			mp.del[i+1][j+1] = mp.match[i+1][j]*matchToIndel + mp.del[i+1][j]*indelToIndel
		}
	}

	var sum float64
	for j := 1; j < cols; j++ {
		sum += mp.match[rows-1][j] + mp.insert[rows-1][j]
	}
	if sum <= 0 {
		return math.Inf(-1)
	}
	return internal.Log10(sum) - initialConditionLog10Shift
}

// globalReadMismappingRateLog10 caps how far below the best-explaining
// haplotype's likelihood any other haplotype's likelihood for the same
// read can fall — a read that is a global mismapping shouldn't be
// allowed to manufacture arbitrarily strong evidence against every
// haplotype but the right one (spec.md §4.3; grounded on elprep's
// globalReadMismappingRate in filters/pairhmm.go).
const globalReadMismappingRateLog10 = -4.5

// CapWorstLikelihoods applies the global-mismapping-rate cap across a
// single read's likelihoods against every non-reference haplotype: no
// score may fall more than globalReadMismappingRateLog10 below the best
// non-reference score.
func CapWorstLikelihoods(scores []float64, isRef []bool) {
	best := math.Inf(-1)
	for i, s := range scores {
		if !isRef[i] && s > best {
			best = s
		}
	}
	if math.IsInf(best, -1) {
		return
	}
	floor := best + globalReadMismappingRateLog10
	for i := range scores {
		if scores[i] < floor {
			scores[i] = floor
		}
	}
}

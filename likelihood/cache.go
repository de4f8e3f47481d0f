package likelihood

import (
	"github.com/exascience/pargo/parallel"

	"github.com/Schaudge/octopus/haplotype"
	"github.com/Schaudge/octopus/reads"
)

// Table is a per-sample matrix of log10 likelihoods indexed by (read,
// haplotype), as in spec.md §3 "Likelihood table". Rows are read
// indices into the Cache's Reads slice restricted to one sample; columns
// are haplotype indices into the Cache's Haplotypes slice.
type Table struct {
	Sample      string
	ReadIndices []int // indices into Cache.Reads for this sample
	values      [][]float64
}

// Get returns the log10 likelihood of the row-th read (within this
// table) against the col-th haplotype (within the cache's current
// haplotype set).
func (t *Table) Get(row, col int) float64 {
	return t.values[row][col]
}

// NumReads returns how many of this sample's reads are represented.
func (t *Table) NumReads() int {
	return len(t.ReadIndices)
}

// Cache computes and caches pair-HMM log-likelihoods keyed by (read
// identity, haplotype identity), as spec.md §4.3 requires. It holds one
// shared read/haplotype arena per caller-loop iteration (spec.md §9
// arena/index discipline) and a Table per sample.
type Cache struct {
	Reads      []reads.AlignedRead
	Haplotypes []haplotype.Haplotype
	Model      ErrorModel
	Flank      FlankState

	tables map[string]*Table
	primed string // non-"" once Prime has scoped subsequent queries
}

// NewCache builds an empty cache over the given read/haplotype arena.
func NewCache(rs []reads.AlignedRead, haplotypes []haplotype.Haplotype, model ErrorModel, flank FlankState) *Cache {
	return &Cache{
		Reads:      rs,
		Haplotypes: haplotypes,
		Model:      model,
		Flank:      flank,
		tables:     make(map[string]*Table),
	}
}

// Populate computes the full (read, haplotype) likelihood matrix for
// every sample present in c.Reads, in parallel over reads (spec.md §5:
// the pair-HMM inner loop may be vectorised/parallelised but isn't
// concurrent across regions).
func (c *Cache) Populate() {
	bySample := make(map[string][]int)
	for i, r := range c.Reads {
		bySample[r.Sample] = append(bySample[r.Sample], i)
	}
	for sample, indices := range bySample {
		table := &Table{Sample: sample, ReadIndices: indices}
		table.values = make([][]float64, len(indices))
		parallel.Range(0, len(indices), 0, func(low, high int) {
			for row := low; row < high; row++ {
				r := c.Reads[indices[row]]
				scores := make([]float64, len(c.Haplotypes))
				isRef := make([]bool, len(c.Haplotypes))
				for col, h := range c.Haplotypes {
					scores[col] = Score(c.Model, r.Sequence, r.BaseQuals, h.Sequence, h.Region.Begin, c.Flank)
					isRef[col] = h.IsRef
				}
				if len(c.Haplotypes) > 1 {
					CapWorstLikelihoods(scores, isRef)
				}
				table.values[row] = scores
			}
		})
		c.tables[sample] = table
	}
}

// Prime scopes subsequent Table lookups to a single sample's reads
// (spec.md §4.3 "When the likelihood cache is primed for a sample,
// subsequent queries are scoped to that sample's reads").
func (c *Cache) Prime(sample string) *Table {
	c.primed = sample
	return c.tables[sample]
}

// Table returns the likelihood table for a sample, regardless of the
// currently primed sample.
func (c *Cache) Table(sample string) (*Table, bool) {
	t, ok := c.tables[sample]
	return t, ok
}

// Samples returns the set of sample names with populated tables.
func (c *Cache) Samples() []string {
	samples := make([]string, 0, len(c.tables))
	for s := range c.tables {
		samples = append(samples, s)
	}
	return samples
}

// RemoveHaplotypes drops the columns at the given haplotype indices from
// every table and from c.Haplotypes (spec.md §4.3 "When the filter
// prunes haplotypes, their rows are removed"; here implemented as
// dropping the corresponding matrix columns, since our table layout is
// read-major).
func (c *Cache) RemoveHaplotypes(keep []bool) {
	newHaplotypes := make([]haplotype.Haplotype, 0, len(c.Haplotypes))
	for i, k := range keep {
		if k {
			newHaplotypes = append(newHaplotypes, c.Haplotypes[i])
		}
	}
	for _, table := range c.tables {
		for row := range table.values {
			old := table.values[row]
			compact := make([]float64, 0, len(newHaplotypes))
			for i, k := range keep {
				if k {
					compact = append(compact, old[i])
				}
			}
			table.values[row] = compact
		}
	}
	c.Haplotypes = newHaplotypes
}

// BestLikelihood returns the maximum log10 likelihood for read row
// across all haplotype columns, and the winning column index. Used by
// read-haplotype realignment and by the haplotype filter's evidence
// scoring (spec.md §4.4).
func (t *Table) BestLikelihood(row int) (best float64, col int) {
	best = t.values[row][0]
	for j := 1; j < len(t.values[row]); j++ {
		if t.values[row][j] > best {
			best, col = t.values[row][j], j
		}
	}
	return best, col
}

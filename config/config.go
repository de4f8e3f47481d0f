// Package config parses and validates the CLI keys spec.md §6 lists,
// producing the typed Config the caller and genotyping packages
// consume. Grounded on elprep's own flag-parsing convention in
// main.go (stdlib flag, no third-party CLI framework), extended with
// the validation octoerr.ConfigError reports.
package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/Schaudge/octopus/octoerr"
)

// CallerKind selects which genotyping.Model strategy the caller uses.
type CallerKind string

const (
	CallerIndividual CallerKind = "individual"
	CallerPopulation CallerKind = "population"
	CallerTrio       CallerKind = "trio"
	CallerCancer     CallerKind = "cancer"
)

// ContigOutputOrder controls the order contigs are emitted in, spec.md
// §6.
type ContigOutputOrder string

const (
	OrderLexicographicalAscending  ContigOutputOrder = "lexicographical-ascending"
	OrderLexicographicalDescending ContigOutputOrder = "lexicographical-descending"
	OrderContigSizeAscending       ContigOutputOrder = "contig-size-ascending"
	OrderContigSizeDescending      ContigOutputOrder = "contig-size-descending"
	OrderAsInReference             ContigOutputOrder = "as-in-reference"
	OrderAsInReferenceReversed     ContigOutputOrder = "as-in-reference-reversed"
	OrderUnspecified               ContigOutputOrder = "unspecified"
)

// Config is the fully parsed and validated set of CLI keys spec.md §6
// names.
type Config struct {
	// Region set
	Regions            string
	RegionsFile        string
	SkipRegions        string
	SkipRegionsFile    string
	UseOneBasedIndexing bool

	// Caller
	Caller          CallerKind
	NormalSample    string
	MaternalSample  string
	PaternalSample  string
	OrganismPloidy  int
	ContigPloidies  map[string]int

	// Model thresholds (Phred, except the two rate parameters)
	MinVariantPosteriorPhred float64
	MinRefcallPosteriorPhred float64
	MinSomaticPosteriorPhred float64
	MinDenovoPosteriorPhred  float64
	MinPhaseScorePhred       float64
	MaxHaplotypes            int
	MaxGenotypes             int
	SomaticMutationRate      float64
	DenovoMutationRate       float64

	// Candidate generation
	NoRawCigarCandidates    bool
	NoAssemblyCandidates    bool
	CandidatesFromSource    string
	Regenotype              bool
	KmerSizes               []int
	MinBaseQuality          int
	MinAssemblerBaseQuality int
	MinSupportingReads      int
	MaxVariantSize          int

	// Output
	Output            string
	SitesOnly         bool
	ContigOutputOrder ContigOutputOrder

	MaxOpenReadFiles     int
	TargetReadBufferSize int64
}

// Parse parses args (typically os.Args[1:]) into a Config, applying the
// warnings-not-errors clamping spec.md §7 specifies (zero
// min-supporting-reads clamped to 1) and returning octoerr.ConfigError
// for anything spec.md treats as fatal.
func Parse(args []string) (Config, []string, error) {
	fs := flag.NewFlagSet("octopus", flag.ContinueOnError)

	cfg := Config{ContigPloidies: make(map[string]int)}
	var caller, order, contigPloidies, kmerSizes string

	fs.StringVar(&cfg.Regions, "regions", "", "target regions")
	fs.StringVar(&cfg.RegionsFile, "regions-file", "", "file listing target regions")
	fs.StringVar(&cfg.SkipRegions, "skip-regions", "", "regions to skip")
	fs.StringVar(&cfg.SkipRegionsFile, "skip-regions-file", "", "file listing regions to skip")
	fs.BoolVar(&cfg.UseOneBasedIndexing, "use-one-based-indexing", false, "interpret region coordinates as 1-based")

	fs.StringVar(&caller, "caller", string(CallerIndividual), "individual|population|trio|cancer")
	fs.StringVar(&cfg.NormalSample, "normal-sample", "", "normal sample name (cancer caller)")
	fs.StringVar(&cfg.MaternalSample, "maternal-sample", "", "maternal sample name (trio caller)")
	fs.StringVar(&cfg.PaternalSample, "paternal-sample", "", "paternal sample name (trio caller)")
	fs.IntVar(&cfg.OrganismPloidy, "organism-ploidy", 2, "default ploidy")
	fs.StringVar(&contigPloidies, "contig-ploidies", "", "comma-separated contig=ploidy overrides")

	fs.Float64Var(&cfg.MinVariantPosteriorPhred, "min-variant-posterior", 2.0, "Phred")
	fs.Float64Var(&cfg.MinRefcallPosteriorPhred, "min-refcall-posterior", 2.0, "Phred")
	fs.Float64Var(&cfg.MinSomaticPosteriorPhred, "min-somatic-posterior", 2.0, "Phred")
	fs.Float64Var(&cfg.MinDenovoPosteriorPhred, "min-denovo-posterior", 2.0, "Phred")
	fs.Float64Var(&cfg.MinPhaseScorePhred, "min-phase-score", 10.0, "Phred")
	fs.IntVar(&cfg.MaxHaplotypes, "max-haplotypes", 128, "")
	fs.IntVar(&cfg.MaxGenotypes, "max-genotypes", 10000, "")
	fs.Float64Var(&cfg.SomaticMutationRate, "somatic-mutation-rate", 1e-6, "")
	fs.Float64Var(&cfg.DenovoMutationRate, "denovo-mutation-rate", 1e-8, "")

	fs.BoolVar(&cfg.NoRawCigarCandidates, "no-raw-cigar-candidates", false, "")
	fs.BoolVar(&cfg.NoAssemblyCandidates, "no-assembly-candidates", false, "")
	fs.StringVar(&cfg.CandidatesFromSource, "candidates-from-source", "", "VCF of external candidates")
	fs.BoolVar(&cfg.Regenotype, "regenotype", false, "")
	fs.StringVar(&kmerSizes, "kmer-size", "10,25,35", "comma-separated assembly kmer sizes")
	fs.IntVar(&cfg.MinBaseQuality, "min-base-quality", 20, "")
	fs.IntVar(&cfg.MinAssemblerBaseQuality, "min-assembler-base-quality", 10, "")
	fs.IntVar(&cfg.MinSupportingReads, "min-supporting-reads", 2, "")
	fs.IntVar(&cfg.MaxVariantSize, "max-variant-size", 100, "")

	fs.StringVar(&cfg.Output, "output", "", "output VCF path")
	fs.BoolVar(&cfg.SitesOnly, "sites-only", false, "")
	fs.StringVar(&order, "contig-output-order", string(OrderAsInReference), "")

	fs.IntVar(&cfg.MaxOpenReadFiles, "max-open-read-files", 64, "")
	fs.Int64Var(&cfg.TargetReadBufferSize, "target-read-buffer-size", 256<<20, "")

	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	cfg.Caller = CallerKind(caller)
	cfg.ContigOutputOrder = ContigOutputOrder(order)

	for _, kv := range strings.Split(contigPloidies, ",") {
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return Config{}, nil, octoerr.ConfigError{Field: "contig-ploidies", Reason: fmt.Sprintf("malformed entry %q, want contig=k", kv)}
		}
		ploidy, err := strconv.Atoi(parts[1])
		if err != nil {
			return Config{}, nil, octoerr.ConfigError{Field: "contig-ploidies", Reason: fmt.Sprintf("non-integer ploidy in %q", kv)}
		}
		cfg.ContigPloidies[parts[0]] = ploidy
	}

	for _, k := range strings.Split(kmerSizes, ",") {
		if k == "" {
			continue
		}
		n, err := strconv.Atoi(k)
		if err != nil {
			return Config{}, nil, octoerr.ConfigError{Field: "kmer-size", Reason: fmt.Sprintf("non-integer kmer size %q", k)}
		}
		cfg.KmerSizes = append(cfg.KmerSizes, n)
	}

	warnings, err := cfg.validate()
	if err != nil {
		return Config{}, warnings, err
	}
	return cfg, warnings, nil
}

// validate applies spec.md §7's fatal/warning split.
func (c *Config) validate() ([]string, error) {
	var warnings []string

	switch c.Caller {
	case CallerIndividual, CallerPopulation, CallerTrio, CallerCancer:
	default:
		return nil, octoerr.ConfigError{Field: "caller", Reason: fmt.Sprintf("unknown caller %q", c.Caller)}
	}
	if c.Caller == CallerTrio && (c.MaternalSample == "" || c.PaternalSample == "") {
		return nil, octoerr.ConfigError{Field: "caller", Reason: "trio caller requires both maternal-sample and paternal-sample"}
	}
	if c.Caller == CallerCancer && c.NormalSample == "" {
		return nil, octoerr.ConfigError{Field: "caller", Reason: "cancer caller requires normal-sample"}
	}
	if c.OrganismPloidy <= 0 {
		return nil, octoerr.ConfigError{Field: "organism-ploidy", Reason: "must be positive"}
	}
	if c.Output == "" {
		return nil, octoerr.ConfigError{Field: "output", Reason: "required"}
	}
	switch c.ContigOutputOrder {
	case OrderLexicographicalAscending, OrderLexicographicalDescending, OrderContigSizeAscending,
		OrderContigSizeDescending, OrderAsInReference, OrderAsInReferenceReversed, OrderUnspecified:
	default:
		return nil, octoerr.ConfigError{Field: "contig-output-order", Reason: fmt.Sprintf("unknown order %q", c.ContigOutputOrder)}
	}

	if c.MinSupportingReads == 0 {
		warnings = append(warnings, "min-supporting-reads was 0, clamped to 1")
		c.MinSupportingReads = 1
	}
	if len(c.KmerSizes) == 0 && !c.NoAssemblyCandidates {
		return nil, octoerr.ConfigError{Field: "kmer-size", Reason: "at least one kmer size required unless assembly candidates are disabled"}
	}
	return warnings, nil
}

// Command octopus is the haplotype-aware variant caller's entry point,
// wiring config, refstore, readstore, candidates, caller.Driver and
// vcfsink together, grounded on elprep's own cmd/elprep main.go
// top-level wiring (parse flags, build a pipeline, run it, report
// errors with a non-zero exit code) adapted to the single-pass
// region-at-a-time calling loop spec.md §5 describes.
package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Schaudge/octopus/caller"
	"github.com/Schaudge/octopus/caller/strategy"
	"github.com/Schaudge/octopus/candidates"
	"github.com/Schaudge/octopus/config"
	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/haplogen"
	"github.com/Schaudge/octopus/likelihood"
	"github.com/Schaudge/octopus/metrics"
	"github.com/Schaudge/octopus/octoerr"
	"github.com/Schaudge/octopus/octolog"
	"github.com/Schaudge/octopus/reads"
	"github.com/Schaudge/octopus/readstore"
	"github.com/Schaudge/octopus/recordfactory"
	"github.com/Schaudge/octopus/refstore"
	"github.com/Schaudge/octopus/vcfsink"
)

// exit codes, spec.md §6: "0 success, non-zero on configuration error,
// unreadable input, or unrecoverable inference error".
const (
	exitOK             = 0
	exitConfigError    = 1
	exitIOError        = 2
	exitInferenceError = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := octolog.New(octolog.LevelInfo, nil)

	cfg, warnings, err := config.Parse(args)
	if err != nil {
		logger.Errorf("configuration error: %v", err)
		return exitConfigError
	}
	for _, w := range warnings {
		logger.Warnf("%s", w)
	}

	refPath := os.Getenv("OCTOPUS_REFERENCE")
	if refPath == "" {
		logger.Errorf("configuration error: OCTOPUS_REFERENCE must name the reference FASTA")
		return exitConfigError
	}
	ref, err := refstore.Open(refPath, 256)
	if err != nil {
		logger.Errorf("%v", err)
		return exitIOError
	}
	defer ref.Close()

	out, err := os.Create(cfg.Output)
	if err != nil {
		logger.Errorf("cannot open output %s: %v", cfg.Output, err)
		return exitIOError
	}
	defer out.Close()

	samples := sampleFilesFromEnv()
	if len(samples) == 0 {
		logger.Errorf("configuration error: no sample alignment files configured (OCTOPUS_SAMPLE_<name>=<path>)")
		return exitConfigError
	}
	sampleNames := make([]string, 0, len(samples))
	for s := range samples {
		sampleNames = append(sampleNames, s)
	}
	sort.Strings(sampleNames)

	sink := vcfsink.New(out, sampleNames)
	defer sink.Flush()

	strat, err := buildStrategy(cfg)
	if err != nil {
		logger.Errorf("%v", err)
		return exitConfigError
	}

	driver := caller.Driver{
		Config: caller.Config{
			MaxHaplotypes:      cfg.MaxHaplotypes,
			MinLog10PhaseScore: cfg.MinPhaseScorePhred / -10.0,
			EmitReferenceCalls: !cfg.SitesOnly,
			Haplogen: haplogen.Config{
				MaxAlleles:         cfg.MaxHaplotypes,
				IndicatorPolicy:    haplogen.IndicatorAll,
				ExtensionPolicy:    haplogen.ExtensionWithinReadLength,
				ReadTemplatePolicy: false,
				MaxExtension:       300,
				ReadLength:         150,
			},
			ErrorModel: likelihood.DefaultErrorModel(),
		},
		Strategy: strat,
		Metrics:  metrics.NoOp{},
	}

	chain := candidates.Chain{
		Generators:     buildGenerators(cfg),
		MaxVariantSize: cfg.MaxVariantSize,
	}

	order := genome.NewContigOrder(ref.Contigs())
	factory := recordfactory.Factory{ContigOrder: order}

	decoder := nullDecoder{}
	source := readstore.NewSource(decoder, samples, cfg.MaxOpenReadFiles)

	targets, err := resolveTargets(cfg, ref)
	if err != nil {
		logger.Errorf("%v", err)
		return exitConfigError
	}

	var inferenceFailed bool
	for _, target := range targets {
		refBytes, err := ref.Fetch(target)
		if err != nil {
			logger.Errorf("%v", err)
			return exitIOError
		}

		rs, err := source.Fetch(target)
		if err != nil {
			logger.Errorf("%v", err)
			return exitIOError
		}
		reads.SortByStart(rs)
		rs = reads.Deduplicate(rs)

		candidateVariants, err := chain.Generate(target, rs, refBytes, target.Begin)
		if err != nil {
			if _, ok := err.(octoerr.AssemblyFailed); !ok {
				logger.Errorf("%v", err)
				inferenceFailed = true
				continue
			}
			logger.Warnf("%v", err)
		}
		candidateVariants = candidates.Normalise(candidateVariants, refBytes, target.Begin, cfg.MaxVariantSize)

		emitted := driver.Run(target, rs, refBytes, target.Begin, candidateVariants)

		records, err := factory.Build(target.Contig, emitted)
		if err != nil {
			logger.Errorf("%v", err)
			inferenceFailed = true
			continue
		}
		for _, rec := range records {
			if err := sink.Write(rec); err != nil {
				logger.Errorf("write failed: %v", err)
				return exitIOError
			}
		}
	}

	if inferenceFailed {
		return exitInferenceError
	}
	return exitOK
}

// buildStrategy resolves cfg's caller selection to a caller.Strategy
// implementation from the strategy package, translating the parsed CLI
// configuration into that package's narrower Params shape.
func buildStrategy(cfg config.Config) (caller.Strategy, error) {
	params := strategy.Params{
		MaternalSample:      cfg.MaternalSample,
		PaternalSample:      cfg.PaternalSample,
		NormalSample:        cfg.NormalSample,
		OrganismPloidy:      cfg.OrganismPloidy,
		ContigPloidies:      cfg.ContigPloidies,
		MaxGenotypes:        cfg.MaxGenotypes,
		DenovoMutationRate:  cfg.DenovoMutationRate,
		SomaticMutationRate: cfg.SomaticMutationRate,
		EMIterations:        10,
	}
	switch cfg.Caller {
	case config.CallerIndividual:
		return strategy.Individual{Params: params}, nil
	case config.CallerPopulation:
		return strategy.Population{Params: params}, nil
	case config.CallerTrio:
		return strategy.Trio{Params: params}, nil
	case config.CallerCancer:
		return strategy.Cancer{Params: params}, nil
	default:
		return nil, octoerr.ConfigError{Field: "caller", Reason: fmt.Sprintf("unsupported caller %q", cfg.Caller)}
	}
}

func buildGenerators(cfg config.Config) []candidates.Generator {
	var gens []candidates.Generator
	if !cfg.NoRawCigarCandidates {
		gens = append(gens, candidates.AlignmentGenerator{MinBaseQuality: byte(cfg.MinBaseQuality)})
	}
	if !cfg.NoAssemblyCandidates {
		gens = append(gens, &candidates.AssemblyGenerator{
			KmerSizes:   cfg.KmerSizes,
			MaxPaths:    64,
			MinBaseQual: byte(cfg.MinAssemblerBaseQuality),
		})
	}
	return gens
}

// resolveTargets turns cfg's region selection into the ordered set of
// windows the driver processes, spec.md §6's "regions"/"regions-file" CLI
// keys: a comma-separated list of samtools-style region strings
// (contig, contig:pos, or contig:begin-end, all 1-based inclusive) either
// given directly or read one-per-line from a file. With neither set, every
// reference contig is targeted in full.
func resolveTargets(cfg config.Config, ref *refstore.Store) ([]genome.Region, error) {
	if cfg.Regions == "" && cfg.RegionsFile == "" {
		var out []genome.Region
		for _, contig := range ref.Contigs() {
			length, _ := ref.ContigLength(contig)
			out = append(out, genome.New(contig, 0, length))
		}
		return out, nil
	}

	var specs []string
	if cfg.Regions != "" {
		specs = append(specs, strings.Split(cfg.Regions, ",")...)
	}
	if cfg.RegionsFile != "" {
		lines, err := readLines(cfg.RegionsFile)
		if err != nil {
			return nil, octoerr.ConfigError{Field: "regions-file", Reason: err.Error()}
		}
		specs = append(specs, lines...)
	}

	var out []genome.Region
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		region, err := parseRegion(spec, ref)
		if err != nil {
			return nil, octoerr.ConfigError{Field: "regions", Reason: err.Error()}
		}
		out = append(out, region)
	}
	return out, nil
}

// parseRegion parses a single samtools-style region string against ref's
// contig lengths, converting its 1-based inclusive coordinates to the
// half-open 0-based genome.Region convention used internally.
func parseRegion(spec string, ref *refstore.Store) (genome.Region, error) {
	contig := spec
	var begin, end int32 = 0, -1
	if i := strings.IndexByte(spec, ':'); i >= 0 {
		contig = spec[:i]
		coords := spec[i+1:]
		parts := strings.SplitN(coords, "-", 2)
		start, err := strconv.ParseInt(strings.ReplaceAll(parts[0], ",", ""), 10, 32)
		if err != nil {
			return genome.Region{}, fmt.Errorf("invalid region %q: %v", spec, err)
		}
		begin = int32(start) - 1
		if len(parts) == 2 {
			stop, err := strconv.ParseInt(strings.ReplaceAll(parts[1], ",", ""), 10, 32)
			if err != nil {
				return genome.Region{}, fmt.Errorf("invalid region %q: %v", spec, err)
			}
			end = int32(stop)
		} else {
			end = begin + 1
		}
	}
	length, ok := ref.ContigLength(contig)
	if !ok {
		return genome.Region{}, fmt.Errorf("region %q: unknown contig %q", spec, contig)
	}
	if end < 0 || end > length {
		end = length
	}
	if begin < 0 {
		begin = 0
	}
	if begin > end {
		return genome.Region{}, fmt.Errorf("invalid region %q: begin past end", spec)
	}
	return genome.New(contig, begin, end), nil
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

func sampleFilesFromEnv() map[string]string {
	files := make(map[string]string)
	const prefix = "OCTOPUS_SAMPLE_"
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				key, val := kv[:i], kv[i+1:]
				if len(key) > len(prefix) && key[:len(prefix)] == prefix {
					files[key[len(prefix):]] = val
				}
				break
			}
		}
	}
	return files
}

// nullDecoder is a placeholder Decoder; a real build wires in an
// htslib-backed BAM/CRAM decoder here (spec.md §6 treats the read
// source as pluggable).
type nullDecoder struct{}

func (nullDecoder) Decode(path string, region genome.Region) ([]reads.AlignedRead, error) {
	return nil, octoerr.MalformedFileError{Path: path, Reason: "no alignment decoder configured"}
}

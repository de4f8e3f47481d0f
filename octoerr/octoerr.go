// Package octoerr defines the typed error values the rest of the
// module returns for conditions spec.md §7 calls out explicitly, in
// place of elprep's convention of calling log.Panic directly at the
// point of failure for unrecoverable configuration and data errors.
package octoerr

import "fmt"

// ConfigError reports an invalid or inconsistent configuration value
// discovered while building a caller.Config (spec.md §7 "Configuration
// errors are fatal and reported before any region is processed").
type ConfigError struct {
	Field  string
	Reason string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// MalformedFileError reports a reference, alignment, or call-set input
// file that could not be parsed (spec.md §7 "malformed input files are
// reported per-file and abort the run").
type MalformedFileError struct {
	Path   string
	Reason string
}

func (e MalformedFileError) Error() string {
	return fmt.Sprintf("malformed file %s: %s", e.Path, e.Reason)
}

// BadPloidy reports a sample/contig ploidy that a genotyping model
// cannot honour, such as a negative or zero ploidy passed to a model
// that requires at least one copy (spec.md §4.5).
type BadPloidy struct {
	Sample string
	Ploidy int
}

func (e BadPloidy) Error() string {
	return fmt.Sprintf("bad ploidy %d for sample %q", e.Ploidy, e.Sample)
}

// InconsistentCall reports a record-factory invariant violation: two
// calls slated for the same output record disagree on something that
// must be unified (REF base, phase set id, and so on), spec.md §4.8
// "InconsistentCall is fatal: it signals a bug in upstream
// normalisation, not a data condition to recover from".
type InconsistentCall struct {
	Region string
	Reason string
}

func (e InconsistentCall) Error() string {
	return fmt.Sprintf("inconsistent call at %s: %s", e.Region, e.Reason)
}

// AssemblyFailed reports that local assembly could not produce a
// reference-to-reference path at a given kmer size. It is not fatal:
// spec.md §4.1 requires the candidate generator to fall back to the
// next configured kmer size, and to proceed with whatever other
// generators produced if every kmer size fails.
type AssemblyFailed struct {
	Reason string
}

func (e AssemblyFailed) Error() string {
	return fmt.Sprintf("assembly failed: %s", e.Reason)
}

// Package readstore implements the read-source external interface of
// spec.md §6: an iterator of AlignedRead per sample over a region,
// unsorted-tolerant (the core sorts and deduplicates), failing with
// MalformedFileError on unreadable input. Grounded on elprep's sam
// package file-handle and iteration conventions (sam/bam-files.go,
// sam/aln-files.go), adapted here behind a pluggable per-format Decoder
// so the calling engine itself stays independent of any one alignment
// file format.
package readstore

import (
	"fmt"
	"os"

	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/octoerr"
	"github.com/Schaudge/octopus/reads"
)

// Decoder reads AlignedRecords for one sample's file, restricted to
// region. A concrete Decoder adapts one alignment file format (e.g. BAM
// via htslib bindings, or CRAM); the engine itself never depends on a
// specific wire format.
type Decoder interface {
	Decode(path string, region genome.Region) ([]reads.AlignedRead, error)
}

// Source is the fetch interface caller.Driver consumes: an iterator of
// AlignedRead per sample over a region (spec.md §6).
type Source struct {
	Decoder Decoder
	// Files maps sample name to alignment file path.
	Files map[string]string
	// semaphore bounds simultaneously open files across all samples
	// (spec.md §5 "a semaphore caps simultaneously open files
	// (max_open_read_files)").
	semaphore chan struct{}
}

// NewSource builds a Source with the configured max-open-files bound.
func NewSource(decoder Decoder, files map[string]string, maxOpenFiles int) *Source {
	if maxOpenFiles <= 0 {
		maxOpenFiles = 1
	}
	return &Source{Decoder: decoder, Files: files, semaphore: make(chan struct{}, maxOpenFiles)}
}

// Fetch returns every sample's reads overlapping region, tagging each
// with its sample name. Fetch does not sort or deduplicate; spec.md §6
// assigns that responsibility to the core (reads.SortByStart,
// reads.Deduplicate).
func (s *Source) Fetch(region genome.Region) ([]reads.AlignedRead, error) {
	var out []reads.AlignedRead
	for sample, path := range s.Files {
		s.semaphore <- struct{}{}
		rs, err := s.fetchOne(path, region)
		<-s.semaphore
		if err != nil {
			return nil, err
		}
		for i := range rs {
			rs[i].Sample = sample
		}
		out = append(out, rs...)
	}
	return out, nil
}

func (s *Source) fetchOne(path string, region genome.Region) ([]reads.AlignedRead, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, octoerr.MalformedFileError{Path: path, Reason: err.Error()}
	}
	rs, err := s.Decoder.Decode(path, region)
	if err != nil {
		return nil, octoerr.MalformedFileError{Path: path, Reason: err.Error()}
	}
	return rs, nil
}

// Budget implements the fetcher-side of spec.md §5's backpressure
// contract: when a region's fetched-reads memory would exceed
// target_read_buffer_size, split the region into smaller sub-windows
// before returning.
type Budget struct {
	TargetBytes int64
	// BytesPerRead estimates a single AlignedRead's footprint; spec.md
	// leaves the exact accounting unspecified, so a fixed per-read
	// estimate (sequence + qualities + cigar) stands in for a real
	// allocator-level measurement.
	BytesPerRead int64
}

// Split divides region into sub-windows sized so that
// estimatedReadsPerBase * width * BytesPerRead stays within
// TargetBytes, returning region unchanged if estimatedReadsPerBase is
// non-positive or the budget is unset.
func (b Budget) Split(region genome.Region, estimatedReadsPerBase float64) []genome.Region {
	if b.TargetBytes <= 0 || b.BytesPerRead <= 0 || estimatedReadsPerBase <= 0 {
		return []genome.Region{region}
	}
	maxWidth := int32(float64(b.TargetBytes) / (estimatedReadsPerBase * float64(b.BytesPerRead)))
	if maxWidth <= 0 || maxWidth >= region.Length() {
		return []genome.Region{region}
	}
	var windows []genome.Region
	for begin := region.Begin; begin < region.End; begin += maxWidth {
		end := begin + maxWidth
		if end > region.End {
			end = region.End
		}
		windows = append(windows, genome.New(region.Contig, begin, end))
	}
	return windows
}

func (b Budget) String() string {
	return fmt.Sprintf("target=%dB perRead=%dB", b.TargetBytes, b.BytesPerRead)
}

// Package refstore implements the reference-genome external interface
// of spec.md §6: random-access, contig-keyed, 0-based half-open lookup
// over a memory-mapped FASTA file, grounded on elprep's
// fasta.MappedFasta (fasta/fasta-files.go) mmap idiom, extended with the
// internal LRU subsequence cache spec.md §5 requires ("an internal LRU
// cache of reference subsequences is the only mutation, protected by an
// internal lock").
package refstore

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/Schaudge/octopus/genome"
	"github.com/Schaudge/octopus/octoerr"
)

// AmbiguityPolicy controls how non-ACGTN IUPAC ambiguity codes are
// handled on lookup (spec.md §6).
type AmbiguityPolicy int

const (
	AmbiguityMaintain AmbiguityPolicy = iota
	AmbiguityDisambiguateToN
	AmbiguityThrow
)

type faiEntry struct {
	length    int32
	offset    int64
	lineBases int32
	lineWidth int32
}

// Store is a memory-mapped, FAI-indexed FASTA reference.
type Store struct {
	file      *os.File
	data      []byte
	fai       map[string]faiEntry
	order     []string
	Ambiguity AmbiguityPolicy

	cacheMu sync.Mutex
	cache   *lruCache
}

// Open memory-maps path (a FASTA file) using the companion path+".fai"
// index, the same two-file convention elprep's fasta package assumes.
func Open(path string, cacheCapacity int) (*Store, error) {
	fai, order, err := parseFai(path + ".fai")
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, octoerr.MalformedFileError{Path: path, Reason: err.Error()}
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, octoerr.MalformedFileError{Path: path, Reason: err.Error()}
	}
	data, err := unix.Mmap(int(file.Fd()), 0, int(stat.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, octoerr.MalformedFileError{Path: path, Reason: err.Error()}
	}
	return &Store{file: file, data: data, fai: fai, order: order, cache: newLRUCache(cacheCapacity)}, nil
}

// Close unmaps and closes the underlying file.
func (s *Store) Close() error {
	if err := unix.Munmap(s.data); err != nil {
		return err
	}
	return s.file.Close()
}

// Contigs returns contig names in declaration order, the total contig
// order spec.md §6 requires be queryable.
func (s *Store) Contigs() []string {
	return s.order
}

// ContigLength returns a contig's declared length.
func (s *Store) ContigLength(contig string) (int32, bool) {
	e, ok := s.fai[contig]
	if !ok {
		return 0, false
	}
	return e.length, true
}

// Fetch returns the reference bases over region, applying the
// configured ambiguity policy, using an LRU-cached copy when available.
func (s *Store) Fetch(region genome.Region) ([]byte, error) {
	s.cacheMu.Lock()
	if cached, ok := s.cache.get(region); ok {
		s.cacheMu.Unlock()
		return cached, nil
	}
	s.cacheMu.Unlock()

	e, ok := s.fai[region.Contig]
	if !ok {
		return nil, octoerr.MalformedFileError{Path: region.Contig, Reason: "unknown contig"}
	}
	if region.End > e.length {
		return nil, octoerr.MalformedFileError{Path: region.Contig, Reason: fmt.Sprintf("region end %d exceeds contig length %d", region.End, e.length)}
	}
	bases := make([]byte, region.Length())
	for i := int32(0); i < region.Length(); i++ {
		pos := region.Begin + i
		lineIdx := pos / e.lineBases
		lineOffset := pos % e.lineBases
		fileOffset := e.offset + int64(lineIdx)*int64(e.lineWidth) + int64(lineOffset)
		if int(fileOffset) >= len(s.data) {
			return nil, octoerr.MalformedFileError{Path: region.Contig, Reason: "position beyond mapped file"}
		}
		bases[i] = applyAmbiguity(s.data[fileOffset], s.Ambiguity)
	}
	if s.Ambiguity == AmbiguityThrow {
		for _, b := range bases {
			if !isUnambiguous(b) {
				return nil, octoerr.MalformedFileError{Path: region.Contig, Reason: "ambiguous base encountered under throw policy"}
			}
		}
	}

	s.cacheMu.Lock()
	s.cache.put(region, bases)
	s.cacheMu.Unlock()
	return bases, nil
}

func isUnambiguous(b byte) bool {
	switch b {
	case 'A', 'C', 'G', 'T', 'a', 'c', 'g', 't', 'N', 'n':
		return true
	default:
		return false
	}
}

func applyAmbiguity(b byte, policy AmbiguityPolicy) byte {
	if policy != AmbiguityDisambiguateToN {
		return b
	}
	if isUnambiguous(b) {
		return b
	}
	return 'N'
}

func parseFai(path string) (map[string]faiEntry, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, octoerr.MalformedFileError{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	fai := make(map[string]faiEntry)
	var order []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != 5 {
			return nil, nil, octoerr.MalformedFileError{Path: path, Reason: "invalid fai line"}
		}
		length, err1 := strconv.ParseInt(fields[1], 10, 32)
		offset, err2 := strconv.ParseInt(fields[2], 10, 64)
		lineBases, err3 := strconv.ParseInt(fields[3], 10, 32)
		lineWidth, err4 := strconv.ParseInt(fields[4], 10, 32)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return nil, nil, octoerr.MalformedFileError{Path: path, Reason: "malformed fai numeric field"}
		}
		fai[fields[0]] = faiEntry{length: int32(length), offset: offset, lineBases: int32(lineBases), lineWidth: int32(lineWidth)}
		order = append(order, fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, octoerr.MalformedFileError{Path: path, Reason: err.Error()}
	}
	return fai, order, nil
}

// lruCache is a small fixed-capacity LRU keyed by region, the "internal
// LRU cache of reference subsequences" spec.md §5 names; callers must
// hold Store.cacheMu.
type lruCache struct {
	capacity int
	order    []genome.Region
	entries  map[genome.Region][]byte
}

func newLRUCache(capacity int) *lruCache {
	if capacity <= 0 {
		capacity = 64
	}
	return &lruCache{capacity: capacity, entries: make(map[genome.Region][]byte)}
}

func (c *lruCache) get(r genome.Region) ([]byte, bool) {
	v, ok := c.entries[r]
	if !ok {
		return nil, false
	}
	c.touch(r)
	return v, true
}

func (c *lruCache) put(r genome.Region, bases []byte) {
	if _, exists := c.entries[r]; !exists && len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	c.entries[r] = bases
	c.touch(r)
}

func (c *lruCache) touch(r genome.Region) {
	for i, existing := range c.order {
		if existing == r {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, r)
}

func (c *lruCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

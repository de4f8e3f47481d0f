package vcfsink

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWritesHeaderWithSampleColumns(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, []string{"sample1", "sample2"})
	header := buf.String()
	if !strings.Contains(header, fileFormatLine) {
		t.Fatalf("expected the fileformat line, got %q", header)
	}
	if !strings.Contains(header, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tsample1\tsample2") {
		t.Fatalf("expected the column header line with both samples, got %q", header)
	}
}

func TestWriteRendersRecordFields(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, []string{"sample1"})
	rec := Record{
		Chrom: "chr1", Pos1Based: 101, Ref: "A", Alt: "G",
		HasQual: true, Log10Qual: -3, Filter: "PASS",
		NumSamples: 1, Depth: 20,
		Samples: map[string]SampleField{
			"sample1": {GT: "0/1", GQ: 30, DP: 20, BQ: 35.0, MQ: 60.0},
		},
	}
	if err := s.Write(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Flush()
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	last := lines[len(lines)-1]
	fields := strings.Split(last, "\t")
	if fields[0] != "chr1" || fields[1] != "101" || fields[3] != "A" || fields[4] != "G" {
		t.Fatalf("expected chr1 101 A G, got %v", fields[:5])
	}
	if fields[6] != "PASS" {
		t.Fatalf("expected FILTER=PASS, got %q", fields[6])
	}
	if !strings.Contains(fields[9], "0/1") {
		t.Fatalf("expected the sample field to carry the genotype, got %q", fields[9])
	}
}

func TestWriteCapsQualAtMax(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, nil)
	// an extremely small log10 probability of error drives the Phred
	// score far past the 5000 cap.
	rec := Record{Chrom: "chr1", Pos1Based: 1, HasQual: true, Log10Qual: -1000, Filter: "PASS"}
	if err := s.Write(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Flush()
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	last := lines[len(lines)-1]
	fields := strings.Split(last, "\t")
	if fields[5] != "5000.00" {
		t.Fatalf("expected QUAL capped at 5000.00, got %q", fields[5])
	}
}

func TestWriteMissingSampleFieldEmitsMissingGenotype(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, []string{"sample1", "sample2"})
	rec := Record{
		Chrom: "chr1", Pos1Based: 1, Filter: "PASS",
		Samples: map[string]SampleField{"sample1": {GT: "1/1"}},
	}
	if err := s.Write(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Flush()
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	last := lines[len(lines)-1]
	fields := strings.Split(last, "\t")
	if fields[len(fields)-1] != "./." {
		t.Fatalf("expected a missing sample to render ./., got %q", fields[len(fields)-1])
	}
}

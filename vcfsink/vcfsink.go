// Package vcfsink renders calls.Call values into VCFv4.3-compatible
// records and writes them to a single output stream, grounded on
// elprep's vcf package field model (vcf/vcf-types.go: MetaInformation,
// FormatInformation, header Columns) adapted to the fixed field/INFO/
// FORMAT set spec.md §6 specifies, rather than elprep's
// fully-generic user-defined-header VCF model.
package vcfsink

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Schaudge/octopus/calls"
	"github.com/Schaudge/octopus/internal"
)

const fileFormatLine = "##fileformat=VCFv4.3"

// maxQual is the QUAL cap spec.md §6 specifies ("QUAL (Phred, capped at
// 5000)").
const maxQual = 5000.0

// Sink is a single-writer VCF output stream (spec.md §5 "The output
// writer is single-writer behind a mutex").
type Sink struct {
	mu      sync.Mutex
	w       *bufio.Writer
	samples []string
}

// New builds a Sink over w, writing the VCF header immediately with the
// given sample columns in order.
func New(w io.Writer, samples []string) *Sink {
	s := &Sink{w: bufio.NewWriter(w), samples: append([]string(nil), samples...)}
	s.writeHeader()
	s.w.Flush()
	return s
}

func (s *Sink) writeHeader() {
	fmt.Fprintln(s.w, fileFormatLine)
	fmt.Fprintln(s.w, `##INFO=<ID=NS,Number=1,Type=Integer,Description="Number of samples with data">`)
	fmt.Fprintln(s.w, `##INFO=<ID=DP,Number=1,Type=Integer,Description="Total depth">`)
	fmt.Fprintln(s.w, `##INFO=<ID=SB,Number=1,Type=Float,Description="Strand bias">`)
	fmt.Fprintln(s.w, `##INFO=<ID=BQ,Number=1,Type=Float,Description="Mean base quality">`)
	fmt.Fprintln(s.w, `##INFO=<ID=MQ,Number=1,Type=Float,Description="Mean mapping quality">`)
	fmt.Fprintln(s.w, `##INFO=<ID=MQ0,Number=1,Type=Integer,Description="Reads with mapping quality 0">`)
	fmt.Fprintln(s.w, `##INFO=<ID=MP,Number=1,Type=Float,Description="Model posterior">`)
	fmt.Fprintln(s.w, `##INFO=<ID=DENOVO,Number=0,Type=Flag,Description="De novo call">`)
	fmt.Fprintln(s.w, `##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">`)
	fmt.Fprintln(s.w, `##FORMAT=<ID=GQ,Number=1,Type=Integer,Description="Genotype quality">`)
	fmt.Fprintln(s.w, `##FORMAT=<ID=DP,Number=1,Type=Integer,Description="Read depth">`)
	fmt.Fprintln(s.w, `##FORMAT=<ID=BQ,Number=1,Type=Float,Description="Base quality">`)
	fmt.Fprintln(s.w, `##FORMAT=<ID=MQ,Number=1,Type=Float,Description="Mapping quality">`)
	fmt.Fprintln(s.w, `##FORMAT=<ID=PS,Number=1,Type=String,Description="Phase set">`)
	fmt.Fprintln(s.w, `##FORMAT=<ID=PQ,Number=1,Type=Integer,Description="Phase quality">`)
	columns := append([]string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO", "FORMAT"}, s.samples...)
	fmt.Fprintln(s.w, strings.Join(columns, "\t"))
}

// Write emits one VCF line for record. Records must already have been
// through recordfactory normalisation (REF/ALT unified, spanning
// alleles resolved); Write does not itself re-normalise.
func (s *Sink) Write(record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	qual := "."
	if record.HasQual {
		q := internal.PhredFromLog10Probability(record.Log10Qual)
		if q > maxQual {
			q = maxQual
		}
		qual = fmt.Sprintf("%.2f", q)
	}

	info := buildInfo(record)
	format := "GT:GQ:DP:BQ:MQ"
	if record.Phased {
		format += ":PS:PQ"
	}

	fields := []string{
		record.Chrom,
		fmt.Sprintf("%d", record.Pos1Based),
		orDot(record.ID),
		orDot(record.Ref),
		orDot(record.Alt),
		qual,
		orDot(record.Filter),
		info,
		format,
	}
	for _, sample := range s.samples {
		sg, ok := record.Samples[sample]
		if !ok {
			fields = append(fields, "./.")
			continue
		}
		fields = append(fields, formatSample(sg, record.Phased))
	}
	_, err := fmt.Fprintln(s.w, strings.Join(fields, "\t"))
	return err
}

// Flush flushes buffered output.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

// Record is the flattened, VCF-ready shape recordfactory produces from
// a calls.Call (or a unified block of calls.Call, for indel
// normalisation).
type Record struct {
	Chrom        string
	Pos1Based    int32
	ID           string
	Ref          string
	Alt          string
	HasQual      bool
	Log10Qual    float64
	Filter       string
	NumSamples   int
	Depth        int
	StrandBias   float64
	MeanBaseQual float64
	MeanMapQual  float64
	MapQ0Count   int
	HasModelPosterior bool
	ModelPosteriorPhred float64
	Denovo       bool
	DenovoPosteriorPhred float64
	Phased       bool
	Samples      map[string]SampleField
}

// SampleField is one sample column's worth of FORMAT values.
type SampleField struct {
	GT            string
	GQ            int
	DP            int
	BQ, MQ        float64
	PhaseSetID    string
	PQ            int
}

func formatSample(sg SampleField, phased bool) string {
	fields := []string{sg.GT, fmt.Sprintf("%d", sg.GQ), fmt.Sprintf("%d", sg.DP), fmt.Sprintf("%.1f", sg.BQ), fmt.Sprintf("%.1f", sg.MQ)}
	if phased {
		fields = append(fields, orDot(sg.PhaseSetID), fmt.Sprintf("%d", sg.PQ))
	}
	return strings.Join(fields, ":")
}

func buildInfo(r Record) string {
	parts := []string{
		fmt.Sprintf("NS=%d", r.NumSamples),
		fmt.Sprintf("DP=%d", r.Depth),
		fmt.Sprintf("SB=%.2f", r.StrandBias),
		fmt.Sprintf("BQ=%.1f", r.MeanBaseQual),
		fmt.Sprintf("MQ=%.1f", r.MeanMapQual),
		fmt.Sprintf("MQ0=%d", r.MapQ0Count),
	}
	if r.HasModelPosterior {
		parts = append(parts, fmt.Sprintf("MP=%.2f", r.ModelPosteriorPhred))
	}
	if r.Denovo {
		parts = append(parts, "DENOVO", fmt.Sprintf("DENOVO_Q=%.2f", r.DenovoPosteriorPhred))
	}
	return strings.Join(parts, ";")
}

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}

// KindOf reports whether k is a de-novo call kind (KindDenovo or
// KindDenovoReferenceReversion). recordfactory does not call it; it sets
// the DENOVO tag from calls.Call.HasDenovoPosterior.
func KindOf(k calls.Kind) bool {
	return k == calls.KindDenovo || k == calls.KindDenovoReferenceReversion
}

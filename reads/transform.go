package reads

// Transform is the read-fetcher preprocessing step named in spec.md §2
// item 2 ("soft-clip masking, adapter masking, tail trim") applied
// before candidate generation and haplotype likelihood computation.
type Transform func(AlignedRead) AlignedRead

// Chain applies transforms in order.
func Chain(transforms ...Transform) Transform {
	return func(r AlignedRead) AlignedRead {
		for _, t := range transforms {
			r = t(r)
		}
		return r
	}
}

// MaskSoftClips zeroes out the base quality of any soft-clipped bases
// (CIGAR 'S') so the pair-HMM and candidate generators treat them as
// uninformative without physically removing them from Sequence —
// mirroring elprep's distinction between hard- and soft-clipping
// (filters/utils.go hardClipSoftClippedBases trims; this only masks).
func MaskSoftClips() Transform {
	return func(r AlignedRead) AlignedRead {
		if len(r.BaseQuals) == 0 {
			return r
		}
		masked := append([]byte(nil), r.BaseQuals...)
		pos := 0
		for _, c := range r.Cigar {
			if c.Op == 'S' {
				for i := int32(0); i < c.Length; i++ {
					if pos+int(i) < len(masked) {
						masked[pos+int(i)] = 0
					}
				}
			}
			if c.ConsumesRead() {
				pos += int(c.Length)
			}
		}
		r.BaseQuals = masked
		return r
	}
}

// MaskAdapters zeroes the base quality of any read bases past the
// implied template boundary for reads with a well-defined fragment
// size, the same motivation as elprep's hardClipAdaptorSequence: once a
// paired read's insert is shorter than the read length, the 3' tail is
// sequencing-adapter, not genome.
func MaskAdapters(insertSize func(AlignedRead) (int, bool)) Transform {
	return func(r AlignedRead) AlignedRead {
		size, ok := insertSize(r)
		if !ok || size <= 0 || size >= len(r.Sequence) {
			return r
		}
		masked := append([]byte(nil), r.BaseQuals...)
		for i := size; i < len(masked); i++ {
			masked[i] = 0
		}
		r.BaseQuals = masked
		return r
	}
}

// TrimLowQualTails zeroes leading/trailing runs of bases below minQual,
// mirroring elprep's hardClipLowQualEnds (masking rather than physically
// clipping, so coordinates stay stable for downstream region math).
func TrimLowQualTails(minQual byte) Transform {
	return func(r AlignedRead) AlignedRead {
		if len(r.BaseQuals) == 0 {
			return r
		}
		masked := append([]byte(nil), r.BaseQuals...)
		for i := 0; i < len(masked) && masked[i] < minQual; i++ {
			masked[i] = 0
		}
		for i := len(masked) - 1; i >= 0 && masked[i] < minQual; i-- {
			masked[i] = 0
		}
		r.BaseQuals = masked
		return r
	}
}

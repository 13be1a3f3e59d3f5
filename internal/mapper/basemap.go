// Package mapper maps genomic coordinates to positions within transcripts.
package mapper

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/vibe-gtf/internal/gtf"
)

// BaseMap holds, for each transcript, the genomic coordinate of every
// base in 5' to 3' transcript order.
type BaseMap map[string][]int64

type segment struct {
	exonNumber gtf.Value
	bases      []int64
}

// BuildBaseMap builds the base map from rows whose feature equals the
// given one (usually "exon"). Rows without transcript_id are skipped.
// Segments are concatenated in exon_number order; minus strand segments
// run from end to start. Transcripts with no matching rows are absent.
func BuildBaseMap(src gtf.FeatureSource, feature string) BaseMap {
	var order []string
	segments := make(map[string][]segment)

	for i := 0; i < src.Len(); i++ {
		row := src.Row(i)
		if row.Feature != feature {
			continue
		}
		tid := src.Field(i, "transcript_id")
		if !tid.Valid {
			continue
		}
		if _, ok := segments[tid.String]; !ok {
			order = append(order, tid.String)
		}
		segments[tid.String] = append(segments[tid.String], segment{
			exonNumber: src.Field(i, "exon_number"),
			bases:      featureBases(row.Start, row.End, row.IsReverseStrand()),
		})
	}

	m := make(BaseMap, len(order))
	for _, tid := range order {
		segs := segments[tid]
		sort.SliceStable(segs, func(i, j int) bool {
			return exonLess(segs[i].exonNumber, segs[j].exonNumber)
		})

		n := 0
		for _, s := range segs {
			n += len(s.bases)
		}
		bases := make([]int64, 0, n)
		for _, s := range segs {
			bases = append(bases, s.bases...)
		}
		m[tid] = bases
	}
	return m
}

// featureBases returns every coordinate of [start, end], descending when
// reverse is set.
func featureBases(start, end int64, reverse bool) []int64 {
	if end < start {
		return nil
	}
	bases := make([]int64, 0, end-start+1)
	if reverse {
		for p := end; p >= start; p-- {
			bases = append(bases, p)
		}
		return bases
	}
	for p := start; p <= end; p++ {
		bases = append(bases, p)
	}
	return bases
}

// exonLess orders exon numbers numerically. Non-numeric values sort after
// numeric ones in string order, and missing values sort last.
func exonLess(a, b gtf.Value) bool {
	if a.Valid != b.Valid {
		return a.Valid
	}
	if !a.Valid {
		return false
	}
	an, aErr := strconv.ParseInt(a.String, 10, 64)
	bn, bErr := strconv.ParseInt(b.String, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		return an < bn
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	}
	return a.String < b.String
}

// TranscriptPosition returns the 1-based position of the first base of the
// transcript at genomic coordinate pos. It reports false when the
// transcript is unknown or does not cover pos.
func TranscriptPosition(m BaseMap, transcriptID string, pos int64) (int, bool) {
	bases, ok := m[transcriptID]
	if !ok {
		return 0, false
	}
	for i, b := range bases {
		if b == pos {
			return i + 1, true
		}
	}
	return 0, false
}

// TranscriptPositionString is TranscriptPosition for a textual coordinate.
// Non-numeric coordinates report false.
func TranscriptPositionString(m BaseMap, transcriptID, pos string) (int, bool) {
	p, err := strconv.ParseInt(strings.TrimSpace(pos), 10, 64)
	if err != nil {
		return 0, false
	}
	return TranscriptPosition(m, transcriptID, p)
}

// MapPositions maps a column of genomic coordinates to transcript
// positions, pairing each coordinate with the transcript ID at the same
// row. Rows that cannot be mapped are Null.
func MapPositions(m BaseMap, transcriptIDs, positions []gtf.Value) []gtf.Value {
	out := make([]gtf.Value, len(transcriptIDs))
	for i, tid := range transcriptIDs {
		if !tid.Valid || i >= len(positions) || !positions[i].Valid {
			continue
		}
		if p, ok := TranscriptPositionString(m, tid.String, positions[i].String); ok {
			out[i] = gtf.Some(strconv.Itoa(p))
		}
	}
	return out
}

// Legacy returns the map with each base list joined by commas.
func (m BaseMap) Legacy() map[string]string {
	out := make(map[string]string, len(m))
	for tid, bases := range m {
		parts := make([]string, len(bases))
		for i, b := range bases {
			parts[i] = strconv.FormatInt(b, 10)
		}
		out[tid] = strings.Join(parts, ",")
	}
	return out
}

// ParseLegacy parses comma-joined base lists.
func ParseLegacy(legacy map[string]string) (BaseMap, error) {
	m := make(BaseMap, len(legacy))
	for tid, joined := range legacy {
		if joined == "" {
			m[tid] = []int64{}
			continue
		}
		parts := strings.Split(joined, ",")
		bases := make([]int64, len(parts))
		for i, p := range parts {
			b, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("transcript %s: parse base %d: %w", tid, i+1, err)
			}
			bases[i] = b
		}
		m[tid] = bases
	}
	return m, nil
}

// Transcripts returns the transcript IDs in sorted order.
func (m BaseMap) Transcripts() []string {
	ids := make([]string, 0, len(m))
	for tid := range m {
		ids = append(ids, tid)
	}
	sort.Strings(ids)
	return ids
}

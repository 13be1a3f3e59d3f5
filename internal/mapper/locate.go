package mapper

import (
	"sort"

	"github.com/inodb/vibe-gtf/internal/gtf"
)

// Hit is one transcript overlapping a queried genomic position.
type Hit struct {
	TranscriptID string
	Strand       string
	Position     int  // 1-based transcript position, 0 when not exonic
	Exonic       bool // false for intronic positions
}

// Index locates the transcripts covering a genomic position and maps the
// position onto each of them.
type Index struct {
	bases BaseMap
	trees map[string]*IntervalTree
}

// NewIndex builds an index from a feature table. The base map is built
// from rows of the given feature; transcript extents come from transcript
// rows, or from the feature rows when a transcript has none.
func NewIndex(src gtf.FeatureSource, feature string) *Index {
	return NewIndexFromBaseMap(src, BuildBaseMap(src, feature), feature)
}

// NewIndexFromBaseMap builds an index around an existing base map, for
// example one read from a cache.
func NewIndexFromBaseMap(src gtf.FeatureSource, bases BaseMap, feature string) *Index {
	spans := make(map[string]*Span)
	fromTranscript := make(map[string]bool)
	var order []string

	for i := 0; i < src.Len(); i++ {
		row := src.Row(i)
		isTranscript := row.Feature == "transcript"
		if !isTranscript && row.Feature != feature {
			continue
		}
		tid := src.Field(i, "transcript_id")
		if !tid.Valid {
			continue
		}

		s, ok := spans[tid.String]
		switch {
		case !ok:
			s = &Span{TranscriptID: tid.String, Chrom: row.Seqname, Strand: row.Strand, Start: row.Start, End: row.End}
			spans[tid.String] = s
			order = append(order, tid.String)
		case isTranscript && !fromTranscript[tid.String]:
			// Transcript rows take precedence over feature-derived extents.
			s.Chrom, s.Strand, s.Start, s.End = row.Seqname, row.Strand, row.Start, row.End
		case !fromTranscript[tid.String]:
			s.Start = min(s.Start, row.Start)
			s.End = max(s.End, row.End)
		}
		if isTranscript {
			fromTranscript[tid.String] = true
		}
	}

	byChrom := make(map[string][]*Span)
	for _, tid := range order {
		s := spans[tid]
		byChrom[s.Chrom] = append(byChrom[s.Chrom], s)
	}
	trees := make(map[string]*IntervalTree, len(byChrom))
	for chrom, list := range byChrom {
		trees[chrom] = BuildIntervalTree(list)
	}

	return &Index{bases: bases, trees: trees}
}

// BaseMap returns the index's base map.
func (x *Index) BaseMap() BaseMap {
	return x.bases
}

// Locate returns every transcript spanning chrom:pos, ordered by
// transcript ID.
func (x *Index) Locate(chrom string, pos int64) []Hit {
	tree, ok := x.trees[chrom]
	if !ok {
		return nil
	}

	spans := tree.FindOverlaps(pos)
	hits := make([]Hit, 0, len(spans))
	for _, s := range spans {
		h := Hit{TranscriptID: s.TranscriptID, Strand: s.Strand}
		h.Position, h.Exonic = TranscriptPosition(x.bases, s.TranscriptID, pos)
		hits = append(hits, h)
	}
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].TranscriptID < hits[j].TranscriptID
	})
	return hits
}

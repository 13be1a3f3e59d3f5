package mapper

import "sort"

// IntervalTree provides O(log n + k) overlap queries using a sorted-slice approach.
// Spans are loaded once and never modified after build.
type IntervalTree struct {
	spans  []*Span
	maxEnd []int64 // maxEnd[i] = max(End) for spans[i:]
}

// Span is the genomic extent of one transcript.
type Span struct {
	TranscriptID string
	Chrom        string
	Strand       string
	Start        int64
	End          int64
}

// BuildIntervalTree creates an interval tree from spans on one chromosome.
func BuildIntervalTree(spans []*Span) *IntervalTree {
	if len(spans) == 0 {
		return &IntervalTree{}
	}

	sorted := make([]*Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	maxEnd := make([]int64, len(sorted))
	maxEnd[len(sorted)-1] = sorted[len(sorted)-1].End
	for i := len(sorted) - 2; i >= 0; i-- {
		maxEnd[i] = sorted[i].End
		if maxEnd[i+1] > maxEnd[i] {
			maxEnd[i] = maxEnd[i+1]
		}
	}

	return &IntervalTree{spans: sorted, maxEnd: maxEnd}
}

// FindOverlaps returns all spans whose [Start, End] range contains pos.
func (t *IntervalTree) FindOverlaps(pos int64) []*Span {
	if len(t.spans) == 0 {
		return nil
	}

	// hi is the first index with Start > pos; candidates are [0, hi).
	hi := sort.Search(len(t.spans), func(i int) bool {
		return t.spans[i].Start > pos
	})

	var result []*Span
	for i := hi - 1; i >= 0; i-- {
		// No span in [0, i] reaches pos.
		if t.maxEnd[i] < pos {
			break
		}
		if t.spans[i].End >= pos {
			result = append(result, t.spans[i])
		}
	}
	return result
}

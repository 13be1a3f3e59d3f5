package bed

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-gtf/internal/gtf"
)

// Default promoter window around the TSS.
const (
	DefaultUpstream   = 1000
	DefaultDownstream = 200
)

// PromoterWindower computes promoter intervals for the transcripts of a
// feature table.
type PromoterWindower struct {
	sizes      ChromSizes
	upstream   int64
	downstream int64
	logger     *zap.Logger
}

// NewPromoterWindower creates a windower. Windows are clamped to
// [0, sizes[chrom]].
func NewPromoterWindower(sizes ChromSizes, upstream, downstream int64) *PromoterWindower {
	return &PromoterWindower{
		sizes:      sizes,
		upstream:   upstream,
		downstream: downstream,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for unclamped chromosomes and dropped windows.
func (w *PromoterWindower) SetLogger(logger *zap.Logger) {
	w.logger = logger
}

// Promoters is a convenience wrapper around PromoterWindower.Windows.
func Promoters(src gtf.FeatureSource, sizes ChromSizes, upstream, downstream int64) (*Table, error) {
	return NewPromoterWindower(sizes, upstream, downstream).Windows(src)
}

type window struct {
	chrom    string
	start    int64
	end      int64
	strand   string
	geneID   string
	geneName string
}

type geneLabel struct {
	geneID   string
	geneName string
}

type locus struct {
	chrom  string
	strand string
}

// Windows returns one BED row per disjoint promoter cluster of each gene,
// sorted by (chrom, start, end). Names are "<row>: <gene_id>, <gene_name>"
// and scores are ".".
func (w *PromoterWindower) Windows(src gtf.FeatureSource) (*Table, error) {
	if w.upstream < 0 || w.downstream < 0 {
		return nil, fmt.Errorf("promoter window must be non-negative, got upstream=%d downstream=%d",
			w.upstream, w.downstream)
	}

	windows := w.transcriptWindows(src)
	merged := mergeByGene(windows)

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.chrom != b.chrom {
			return a.chrom < b.chrom
		}
		if a.start != b.start {
			return a.start < b.start
		}
		return a.end < b.end
	})

	t := &Table{Records: make([]Record, len(merged))}
	for i, m := range merged {
		t.Records[i] = Record{
			Chrom:      m.chrom,
			ChromStart: m.start,
			ChromEnd:   m.end,
			Name:       fmt.Sprintf("%d: %s, %s", i, m.geneID, m.geneName),
			Score:      ".",
			Strand:     m.strand,
		}
	}
	return t, nil
}

// transcriptWindows computes the clamped, deduplicated window of every
// stranded transcript row.
func (w *PromoterWindower) transcriptWindows(src gtf.FeatureSource) []window {
	var windows []window
	seen := make(map[window]struct{})
	warned := make(map[string]bool)

	for i := 0; i < src.Len(); i++ {
		row := src.Row(i)
		if row.Feature != "transcript" {
			continue
		}

		var start, end int64
		switch row.Strand {
		case "+":
			start, end = row.Start-w.upstream, row.Start+w.downstream
		case "-":
			start, end = row.End-w.downstream, row.End+w.upstream
		default:
			continue
		}

		if start < 0 {
			start = 0
		}
		if size, ok := w.sizes[row.Seqname]; ok {
			if end > size {
				end = size
			}
		} else if !warned[row.Seqname] {
			warned[row.Seqname] = true
			w.logger.Warn("chromosome not in genome file, promoter end not clamped",
				zap.String("chrom", row.Seqname))
		}
		if start > end {
			w.logger.Debug("dropping empty promoter window",
				zap.String("chrom", row.Seqname),
				zap.Int64("start", start),
				zap.Int64("end", end))
			continue
		}

		win := window{
			chrom:    row.Seqname,
			start:    start,
			end:      end,
			strand:   row.Strand,
			geneID:   src.Field(i, "gene_id").Or("."),
			geneName: src.Field(i, "gene_name").Or("."),
		}
		if _, dup := seen[win]; dup {
			continue
		}
		seen[win] = struct{}{}
		windows = append(windows, win)
	}
	return windows
}

// mergeByGene unions overlapping windows of the same gene on the same
// chromosome and strand. Genes with windows at several loci keep one
// window per disjoint cluster.
func mergeByGene(windows []window) []window {
	var genes []geneLabel
	byGene := make(map[geneLabel][]window)
	for _, win := range windows {
		label := geneLabel{win.geneID, win.geneName}
		if _, ok := byGene[label]; !ok {
			genes = append(genes, label)
		}
		byGene[label] = append(byGene[label], win)
	}

	var merged []window
	for _, label := range genes {
		gw := byGene[label]
		if len(gw) == 1 {
			merged = append(merged, gw[0])
			continue
		}

		var loci []locus
		byLocus := make(map[locus][]window)
		for _, win := range gw {
			key := locus{win.chrom, win.strand}
			if _, ok := byLocus[key]; !ok {
				loci = append(loci, key)
			}
			byLocus[key] = append(byLocus[key], win)
		}
		for _, key := range loci {
			merged = append(merged, unionIntervals(byLocus[key])...)
		}
	}
	return merged
}

// unionIntervals merges overlapping closed intervals, ordered by start.
func unionIntervals(windows []window) []window {
	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].start != windows[j].start {
			return windows[i].start < windows[j].start
		}
		return windows[i].end < windows[j].end
	})

	out := []window{windows[0]}
	for _, win := range windows[1:] {
		last := &out[len(out)-1]
		if win.start <= last.end {
			if win.end > last.end {
				last.end = win.end
			}
			continue
		}
		out = append(out, win)
	}
	return out
}

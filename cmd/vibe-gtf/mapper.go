package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gtf/internal/duckdb"
	"github.com/inodb/vibe-gtf/internal/gtf"
	"github.com/inodb/vibe-gtf/internal/mapper"
)

func newBaseMapCmd() *cobra.Command {
	var (
		feature  string
		useCache bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "basemap <in.gtf>",
		Short: "Print the genomic coordinate of every transcript base",
		Long: `Print one line per transcript: the transcript ID and the comma-separated
genomic coordinates of its bases in transcript order. Minus strand features
are listed from end to start.`,
		Args: withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr())
			m, _, err := loadBaseMap(args[0], feature, useCache, logger)
			if err != nil {
				return err
			}

			legacy := m.Legacy()
			ids := m.Transcripts()
			lines := make([]string, len(ids))
			for i, id := range ids {
				lines[i] = id + "\t" + legacy[id]
			}

			w, closeOut, err := openOutput(cmd, output)
			if err != nil {
				return err
			}
			if err := writeLines(w, lines); err != nil {
				closeOut()
				return fmt.Errorf("writing base map: %w", err)
			}
			return closeOut()
		},
	}

	cmd.Flags().StringVar(&feature, "feature", "exon", "Feature type the map is built from")
	cmd.Flags().BoolVar(&useCache, "cache", false, "Read and write a base map cache next to the GTF")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// loadBaseMap builds the base map of a GTF file, going through the on-disk
// cache when useCache is set. The table is nil when the map came from the
// cache.
func loadBaseMap(path, feature string, useCache bool, logger *zap.Logger) (mapper.BaseMap, *gtf.Table, error) {
	var bc *duckdb.BaseMapCache
	var fp duckdb.FileFingerprint
	if useCache {
		var err error
		fp, err = duckdb.StatFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("stat %s: %w", path, err)
		}
		bc = duckdb.NewBaseMapCache(duckdb.PathFor(path))
		if bc.Valid(fp, feature) {
			m, err := bc.Load()
			if err == nil {
				logger.Debug("loaded base map cache", zap.String("path", duckdb.PathFor(path)), zap.Int("transcripts", len(m)))
				return m, nil, nil
			}
			logger.Warn("could not load base map cache, rebuilding", zap.Error(err))
		}
	}

	table, err := loadGTF(path, logger)
	if err != nil {
		return nil, nil, err
	}
	m := mapper.BuildBaseMap(table, feature)

	if bc != nil {
		if err := bc.Write(m, fp, feature); err != nil {
			logger.Warn("could not write base map cache", zap.Error(err))
		}
	}
	return m, table, nil
}

func newLocateCmd() *cobra.Command {
	var (
		feature    string
		transcript string
		useCache   bool
	)

	cmd := &cobra.Command{
		Use:   "locate <in.gtf> <chrom:pos>...",
		Short: "Map genomic positions to transcript positions",
		Long: `For each chrom:pos, print every transcript spanning the position with the
1-based transcript position, or "." when the position is intronic.

With --transcript, positions are plain coordinates mapped onto that
transcript only; unmappable positions print ".".`,
		Example: `  vibe-gtf locate annotation.gtf chr12:25245350
  vibe-gtf locate --transcript ENST00000311936 annotation.gtf 25245350 25245351`,
		Args: withUsage(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr())
			path, queries := args[0], args[1:]

			if transcript != "" {
				m, _, err := loadBaseMap(path, feature, useCache, logger)
				if err != nil {
					return err
				}
				lines := make([]string, len(queries))
				for i, q := range queries {
					pos := "."
					if p, ok := mapper.TranscriptPositionString(m, transcript, q); ok {
						pos = strconv.Itoa(p)
					}
					lines[i] = fmt.Sprintf("%s\t%s\t%s", transcript, q, pos)
				}
				return writeLines(cmd.OutOrStdout(), lines)
			}

			type locus struct {
				chrom string
				pos   int64
			}
			loci := make([]locus, len(queries))
			for i, q := range queries {
				chrom, posStr, ok := strings.Cut(q, ":")
				pos, err := strconv.ParseInt(strings.ReplaceAll(posStr, ",", ""), 10, 64)
				if !ok || chrom == "" || err != nil {
					return usageErrorf("invalid position %q, expected chrom:pos", q)
				}
				loci[i] = locus{chrom, pos}
			}

			m, table, err := loadBaseMap(path, feature, useCache, logger)
			if err != nil {
				return err
			}
			if table == nil {
				if table, err = loadGTF(path, logger); err != nil {
					return err
				}
			}
			idx := mapper.NewIndexFromBaseMap(table, m, feature)

			var lines []string
			for _, l := range loci {
				for _, h := range idx.Locate(l.chrom, l.pos) {
					pos := "."
					if h.Exonic {
						pos = strconv.Itoa(h.Position)
					}
					lines = append(lines, fmt.Sprintf("%s\t%d\t%s\t%s\t%s", l.chrom, l.pos, h.TranscriptID, h.Strand, pos))
				}
			}
			return writeLines(cmd.OutOrStdout(), lines)
		},
	}

	cmd.Flags().StringVar(&feature, "feature", "exon", "Feature type the map is built from")
	cmd.Flags().StringVar(&transcript, "transcript", "", "Map plain coordinates onto this transcript")
	cmd.Flags().BoolVar(&useCache, "cache", false, "Read and write a base map cache next to the GTF")
	return cmd
}

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gtf/internal/bed"
	"github.com/inodb/vibe-gtf/internal/duckdb"
)

func newExportCmd() *cobra.Command {
	var (
		dbPath  string
		genome  string
		name    string
		feature string
		replace bool
	)

	cmd := &cobra.Command{
		Use:   "export <in.gtf>",
		Short: "Export features, attributes and BED tables to DuckDB",
		Long: `Load a GTF file into a DuckDB database with the tables:

  features    one row per GTF record (row_id, seqname, ..., attribute)
  attributes  one row per record and attribute key (row_id, key, value)
  bed         BED6 conversion of the features
  promoters   promoter windows (only with --genome)`,
		Example: `  vibe-gtf export --db annotation.duckdb annotation.gtf
  vibe-gtf export --db annotation.duckdb --genome hg38.genome --feature exon annotation.gtf`,
		Args: withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr())
			if !cmd.Flags().Changed("name") {
				name = viper.GetString("bed.name")
			}

			var sizes bed.ChromSizes
			if genome != "" {
				var err error
				if sizes, err = bed.LoadChromSizes(genome); err != nil {
					return err
				}
			}

			table, err := loadGTF(args[0], logger)
			if err != nil {
				return err
			}

			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if replace {
				if err := store.ClearFeatures(); err != nil {
					return fmt.Errorf("clearing features: %w", err)
				}
				for _, t := range []string{duckdb.TableBED, duckdb.TablePromoters} {
					if err := store.ClearBED(t); err != nil {
						return fmt.Errorf("clearing %s: %w", t, err)
					}
				}
			}

			if err := store.WriteFeatures(table); err != nil {
				return fmt.Errorf("writing features: %w", err)
			}

			src := table
			if feature != "" {
				src = table.FilterFeature(feature)
			}
			var opts []bed.Option
			if viper.GetBool("bed.zero_based") {
				opts = append(opts, bed.WithZeroBased())
			}
			regions := bed.FromGTF(src, name, opts...)
			if err := store.WriteBED(duckdb.TableBED, regions); err != nil {
				return fmt.Errorf("writing bed: %w", err)
			}

			promoterRows := 0
			if sizes != nil {
				w := bed.NewPromoterWindower(sizes,
					viper.GetInt64("promoter.upstream"),
					viper.GetInt64("promoter.downstream"))
				w.SetLogger(logger)
				promoters, err := w.Windows(table)
				if err != nil {
					return err
				}
				if err := store.WriteBED(duckdb.TablePromoters, promoters); err != nil {
					return fmt.Errorf("writing promoters: %w", err)
				}
				promoterRows = promoters.Len()
			}

			logger.Info("export complete",
				zap.String("db", dbPath),
				zap.Int("features", table.Len()),
				zap.Int("bed", regions.Len()),
				zap.Int("promoters", promoterRows))

			green := color.New(color.FgGreen)
			green.Fprintf(cmd.OutOrStdout(), "Exported %d features to %s\n", table.Len(), dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "DuckDB database file")
	cmd.Flags().StringVar(&genome, "genome", "", "Chromosome sizes file; enables the promoters table")
	cmd.Flags().StringVar(&name, "name", "gene_id", "Column or attribute used for BED names")
	cmd.Flags().StringVar(&feature, "feature", "", "Only convert records of this feature type to BED")
	cmd.Flags().BoolVar(&replace, "replace", false, "Clear existing tables before writing")
	cmd.MarkFlagRequired("db")
	return cmd
}

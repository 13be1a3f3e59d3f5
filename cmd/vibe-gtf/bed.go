package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gtf/internal/bed"
)

func newBEDCmd() *cobra.Command {
	var (
		feature string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "bed <in.gtf>",
		Short: "Convert GTF features to BED6",
		Long: `Convert GTF records to six-column BED (chrom, chromStart, chromEnd, name,
score, strand). Identical rows are collapsed. Coordinates are copied from the
GTF unless --zero-based is given.`,
		Example: `  vibe-gtf bed --name gene_name --feature gene annotation.gtf
  vibe-gtf bed --zero-based -o exons.bed --feature exon annotation.gtf`,
		Args: withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr())
			table, err := loadGTF(args[0], logger)
			if err != nil {
				return err
			}
			if feature != "" {
				table = table.FilterFeature(feature)
			}

			var opts []bed.Option
			if viper.GetBool("bed.zero_based") {
				opts = append(opts, bed.WithZeroBased())
			}
			out := bed.FromGTF(table, viper.GetString("bed.name"), opts...)
			logger.Debug("converted to BED", zap.Int("records", table.Len()), zap.Int("rows", out.Len()))

			return writeBED(cmd, output, out)
		},
	}

	cmd.Flags().String("name", "gene_id", "Column or attribute used for the BED name")
	cmd.Flags().Bool("zero-based", false, "Convert starts to 0-based half-open coordinates")
	cmd.Flags().StringVar(&feature, "feature", "", "Only convert records of this feature type")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	viper.BindPFlag("bed.name", cmd.Flags().Lookup("name"))
	viper.BindPFlag("bed.zero_based", cmd.Flags().Lookup("zero-based"))
	return cmd
}

func newPromotersCmd() *cobra.Command {
	var (
		genome string
		output string
	)

	cmd := &cobra.Command{
		Use:   "promoters <in.gtf>",
		Short: "Compute promoter windows around transcript start sites",
		Long: `Compute a promoter window for every transcript: [start-upstream,
start+downstream] on the plus strand and [end-downstream, end+upstream] on the
minus strand, clamped to the chromosome sizes of the genome file. Overlapping
windows of the same gene are merged. Names are "<row>: <gene_id>, <gene_name>".`,
		Example: `  vibe-gtf promoters --genome hg38.genome annotation.gtf
  vibe-gtf promoters --genome hg38.genome --upstream 2000 --downstream 500 annotation.gtf`,
		Args: withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr())
			sizes, err := bed.LoadChromSizes(genome)
			if err != nil {
				return err
			}
			table, err := loadGTF(args[0], logger)
			if err != nil {
				return err
			}

			w := bed.NewPromoterWindower(sizes,
				viper.GetInt64("promoter.upstream"),
				viper.GetInt64("promoter.downstream"))
			w.SetLogger(logger)
			out, err := w.Windows(table)
			if err != nil {
				return usageErrorf("%v", err)
			}
			logger.Debug("computed promoters", zap.Int("rows", out.Len()))

			return writeBED(cmd, output, out)
		},
	}

	cmd.Flags().StringVar(&genome, "genome", "", "Chromosome sizes file (chrom<TAB>size)")
	cmd.Flags().Int64("upstream", bed.DefaultUpstream, "Bases upstream of the TSS")
	cmd.Flags().Int64("downstream", bed.DefaultDownstream, "Bases downstream of the TSS")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.MarkFlagRequired("genome")
	viper.BindPFlag("promoter.upstream", cmd.Flags().Lookup("upstream"))
	viper.BindPFlag("promoter.downstream", cmd.Flags().Lookup("downstream"))
	return cmd
}

func writeBED(cmd *cobra.Command, output string, t *bed.Table) error {
	w, closeOut, err := openOutput(cmd, output)
	if err != nil {
		return err
	}
	if err := bed.Write(w, t); err != nil {
		closeOut()
		return fmt.Errorf("writing BED: %w", err)
	}
	return closeOut()
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-gtf/internal/gtf"
)

func newAttributesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attributes <in.gtf>",
		Short: "List the attribute keys found in a GTF file",
		Long:  "List every attribute key used by any record, in first-seen order.",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadGTF(args[0], newLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			return writeLines(cmd.OutOrStdout(), gtf.ListAttributeKeys(table))
		},
	}
}

func newFieldCmd() *cobra.Command {
	var (
		first   bool
		missing string
		withPos bool
	)

	cmd := &cobra.Command{
		Use:   "field <key> <in.gtf>",
		Short: "Print one attribute or column value per record",
		Example: `  vibe-gtf field gene_name annotation.gtf
  vibe-gtf field --first tag annotation.gtf`,
		Args: withUsage(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, path := args[0], args[1]
			table, err := loadGTF(path, newLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			policy := gtf.ParseMatchPolicy(viper.GetString("attributes.match"))
			if first {
				policy = gtf.FirstMatch
			}

			var values []gtf.Value
			if isColumn(key) {
				values = gtf.ProjectField(table, key)
			} else {
				values = gtf.ProjectWith(table, key, policy)
			}

			lines := make([]string, len(values))
			for i, v := range values {
				lines[i] = v.Or(missing)
				if withPos {
					r := &table.Records[i]
					lines[i] = fmt.Sprintf("%s\t%d\t%d\t%s", r.Seqname, r.Start, r.End, lines[i])
				}
			}
			return writeLines(cmd.OutOrStdout(), lines)
		},
	}

	cmd.Flags().BoolVar(&first, "first", false, "Use the first value of duplicated keys instead of the last")
	cmd.Flags().StringVar(&missing, "missing", ".", "Placeholder for records without the key")
	cmd.Flags().BoolVar(&withPos, "with-position", false, "Prefix each value with seqname, start and end")
	return cmd
}

// isColumn reports whether name is one of the nine GTF columns.
func isColumn(name string) bool {
	return slices.Contains(gtf.Columns, name)
}

func newExpandCmd() *cobra.Command {
	var (
		output string
		keys   []string
		asGTF  bool
	)

	cmd := &cobra.Command{
		Use:   "expand <in.gtf>",
		Short: "Split the attribute column into one column per key",
		Long: `Write a tab-separated table with the eight fixed GTF columns followed by
one column per attribute key. Missing values are empty cells. Use --keys to
select columns, and --gtf to write the result back as GTF.`,
		Args: withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadGTF(args[0], newLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			var expanded *gtf.ExpandedTable
			if len(keys) > 0 {
				expanded = gtf.Expand(table, keys...)
			} else {
				expanded = gtf.ExpandAll(table)
			}

			w, closeOut, err := openOutput(cmd, output)
			if err != nil {
				return err
			}
			if asGTF {
				err = gtf.WriteExpanded(w, expanded)
			} else {
				err = gtf.WriteExpandedTSV(w, expanded)
			}
			if err != nil {
				closeOut()
				return fmt.Errorf("writing expanded table: %w", err)
			}
			return closeOut()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringSliceVar(&keys, "keys", nil, "Attribute keys to expand (default: all)")
	cmd.Flags().BoolVar(&asGTF, "gtf", false, "Write GTF with the attribute column rebuilt")
	return cmd
}

func newCollapseCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "collapse <in.tsv>",
		Short: "Rebuild a GTF file from an expanded table",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeIn, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeIn()

			expanded, err := gtf.ReadExpandedTSV(in)
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			w, closeOut, err := openOutput(cmd, output)
			if err != nil {
				return err
			}
			if err := gtf.WriteExpanded(w, expanded); err != nil {
				closeOut()
				return fmt.Errorf("writing GTF: %w", err)
			}
			return closeOut()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// openInput opens a file argument; "-" reads stdin.
func openInput(cmd *cobra.Command, path string) (io.Reader, func() error, error) {
	if path == "-" {
		return cmd.InOrStdin(), func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	return f, f.Close, nil
}

func writeLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	if len(lines) > 0 {
		if _, err := bw.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

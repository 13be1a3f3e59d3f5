package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-gtf/internal/fasta"
)

func newFastaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fasta",
		Short: "Retrieve, write and replace FASTA sequences",
	}

	cmd.AddCommand(newFastaGetCmd(), newFastaWriteCmd(), newFastaRewriteCmd())
	return cmd
}

func newFastaGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <in.fa> <name>...",
		Short: "Print sequences by name",
		Long: `Print the named sequences as FASTA records. A sequence is named by the
first word of its header, e.g. "2" for ">2 dna:chromosome chromosome:GRCm38:2".`,
		Args: withUsage(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, names := args[0], args[1:]

			var lookup func(string) (string, bool, error)
			if len(names) == 1 {
				lookup = func(name string) (string, bool, error) {
					f, err := os.Open(path)
					if err != nil {
						return "", false, fmt.Errorf("open FASTA file: %w", err)
					}
					defer f.Close()
					return fasta.GetSequence(f, name)
				}
			} else {
				loader := fasta.NewLoader(path)
				if err := loader.Load(); err != nil {
					return err
				}
				lookup = func(name string) (string, bool, error) {
					seq, ok := loader.GetSequence(name)
					return seq, ok, nil
				}
			}

			for _, name := range names {
				seq, ok, err := lookup(name)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: %w", name, fasta.ErrNotFound)
				}
				if err := fasta.Write(cmd.OutOrStdout(), name, seq); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newFastaWriteCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "write <name> <sequence>",
		Short: "Write a sequence as a FASTA record",
		Args:  withUsage(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" {
				return fasta.WriteFile(output, args[0], args[1])
			}
			return fasta.Write(cmd.OutOrStdout(), args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newFastaRewriteCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "rewrite <in.fa> <name> <sequence>",
		Short: "Replace one sequence of a multi-FASTA file",
		Long:  "Copy a multi-FASTA file, replacing the sequence of the named record and keeping its header.",
		Args:  withUsage(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeIn, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeIn()

			w, closeOut, err := openOutput(cmd, output)
			if err != nil {
				return err
			}
			if err := fasta.Rewrite(in, w, args[1], args[2]); err != nil {
				closeOut()
				return err
			}
			return closeOut()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

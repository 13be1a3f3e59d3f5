// Package main provides the vibe-gtf command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vibe-gtf/internal/gtf"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// usageError marks errors caused by bad command-line input.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}

	red := color.New(color.FgRed, color.Bold)
	red.Fprint(stderr, "Error: ")
	fmt.Fprintln(stderr, err)

	var ue *usageError
	if errors.As(err, &ue) || isFlagError(err) {
		return ExitUsage
	}
	return ExitError
}

// isFlagError recognizes cobra's command and required-flag errors, which
// bypass the flag error func.
func isFlagError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "required flag")
}

// withUsage wraps a positional argument validator so its errors map to
// ExitUsage.
func withUsage(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "vibe-gtf",
		Short: "GTF attribute parsing and coordinate transformation",
		Long: `vibe-gtf parses GTF annotation files, extracts and expands attribute
columns, converts features to BED, computes promoter windows, and maps
genomic coordinates onto transcripts.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ~/.vibe-gtf.yaml)")
	flags.Bool("lenient", false, "Skip and report malformed GTF lines instead of failing")
	flags.Int("workers", 1, "GTF parsing workers (0 = all CPUs)")
	flags.BoolP("verbose", "v", false, "Verbose logging")
	viper.BindPFlag("load.lenient", flags.Lookup("lenient"))
	viper.BindPFlag("load.workers", flags.Lookup("workers"))
	viper.BindPFlag("verbose", flags.Lookup("verbose"))

	cmd.AddCommand(
		newAttributesCmd(),
		newFieldCmd(),
		newExpandCmd(),
		newCollapseCmd(),
		newBEDCmd(),
		newPromotersCmd(),
		newBaseMapCmd(),
		newLocateCmd(),
		newExportCmd(),
		newFastaCmd(),
		newConfigCmd(),
	)
	return cmd
}

// initConfig reads the config file and environment.
func initConfig(cfgFile string) error {
	setDefaults()

	viper.SetEnvPrefix("VIBE_GTF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.SetConfigFile(filepath.Join(home, ".vibe-gtf.yaml"))
	}

	if err := viper.ReadInConfig(); err != nil {
		if cfgFile == "" && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// newLogger builds the stderr logger: development output when verbose,
// otherwise a console encoder at INFO.
func newLogger(stderr io.Writer) *zap.Logger {
	level := zapcore.InfoLevel
	encCfg := zap.NewProductionEncoderConfig()
	if viper.GetBool("verbose") {
		level = zapcore.DebugLevel
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(stderr), level)
	return zap.New(core)
}

// loadGTF loads a GTF file honoring the global loading flags.
func loadGTF(path string, logger *zap.Logger) (*gtf.Table, error) {
	loader := gtf.NewLoader(path)
	loader.SetLenient(viper.GetBool("load.lenient"))
	loader.SetWorkers(viper.GetInt("load.workers"))
	loader.SetLogger(logger)

	table, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if n := loader.Skipped(); n > 0 {
		logger.Warn("skipped malformed GTF lines", zap.String("path", path), zap.Int("skipped", n))
	}
	logger.Debug("loaded GTF", zap.String("path", path), zap.Int("records", table.Len()))
	return table, nil
}

// openOutput returns the writer for an -o flag value; empty means stdout.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

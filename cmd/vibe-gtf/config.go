package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-gtf/internal/bed"
	"github.com/inodb/vibe-gtf/internal/gtf"
)

// setting is a configuration key with its default and value parser.
type setting struct {
	key   string
	def   any
	usage string
	parse func(string) (any, error)
}

// settings lists every key that config set accepts, in help order.
var settings = []setting{
	{"promoter.upstream", int64(bed.DefaultUpstream), "bases upstream of the TSS", parseNonNegative},
	{"promoter.downstream", int64(bed.DefaultDownstream), "bases downstream of the TSS", parseNonNegative},
	{"bed.name", "gene_id", "column or attribute used for BED names", parseName},
	{"bed.zero_based", false, "convert BED starts to 0-based", parseBool},
	{"attributes.match", gtf.LastMatch.String(), "duplicate key policy: last or first", parseMatch},
	{"load.lenient", false, "skip malformed GTF lines", parseBool},
	{"load.workers", int64(1), "GTF parsing workers, 0 = all CPUs", parseNonNegative},
	{"verbose", false, "debug logging", parseBool},
}

func lookupSetting(key string) (setting, bool) {
	key = strings.ToLower(key)
	for _, s := range settings {
		if s.key == key {
			return s, true
		}
	}
	return setting{}, false
}

func setDefaults() {
	for _, s := range settings {
		viper.SetDefault(s.key, s.def)
	}
}

func settingsHelp() string {
	var b strings.Builder
	for _, s := range settings {
		fmt.Fprintf(&b, "  %-20s %s (default %v)\n", s.key, s.usage, s.def)
	}
	return b.String()
}

func parseBool(v string) (any, error) {
	switch strings.ToLower(v) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return nil, fmt.Errorf("expected true or false, got %q", v)
}

func parseNonNegative(v string) (any, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("expected a non-negative integer, got %q", v)
	}
	return n, nil
}

func parseName(v string) (any, error) {
	if strings.TrimSpace(v) == "" {
		return nil, fmt.Errorf("name field must not be empty")
	}
	return v, nil
}

func parseMatch(v string) (any, error) {
	switch strings.ToLower(v) {
	case gtf.LastMatch.String(), gtf.FirstMatch.String():
		return strings.ToLower(v), nil
	}
	return nil, fmt.Errorf("expected %q or %q, got %q", gtf.LastMatch, gtf.FirstMatch, v)
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-gtf configuration",
		Long: "Show, get, or set configuration values. Config is stored in ~/.vibe-gtf.yaml.\n" +
			"Every key can also be set from the environment, e.g. VIBE_GTF_PROMOTER_UPSTREAM.\n\n" +
			"Keys:\n" + settingsHelp(),
		Example: `  vibe-gtf config                            # show all config
  vibe-gtf config set promoter.upstream 2000  # widen promoter windows
  vibe-gtf config get bed.name                # get a value`,
		Args: withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(viper.AllSettings())
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a configuration value",
			Args:  withUsage(cobra.ExactArgs(2)),
			RunE: func(cmd *cobra.Command, args []string) error {
				return setConfigValue(cmd.OutOrStdout(), args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Get a configuration value",
			Args:  withUsage(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, ok := lookupSetting(args[0])
				if !ok {
					return usageErrorf("unknown config key %q", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), viper.Get(s.key))
				return nil
			},
		},
	)
	return cmd
}

// setConfigValue validates value against the key's parser and writes the
// whole configuration back to the config file in use.
func setConfigValue(w io.Writer, key, value string) error {
	s, ok := lookupSetting(key)
	if !ok {
		return usageErrorf("unknown config key %q", key)
	}
	v, err := s.parse(value)
	if err != nil {
		return usageErrorf("%s: %v", s.key, err)
	}
	viper.Set(s.key, v)

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".vibe-gtf.yaml")
	}
	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(w, "Set %s = %v in %s\n", s.key, v, cfgFile)
	return nil
}

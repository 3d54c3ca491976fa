package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/promptflow/pkg/promptflow/config"
	"github.com/randalmurphal/promptflow/pkg/promptflow/runner"
)

type globalOptions struct {
	configPaths []string
	logLevel   string
	logFormat  string

	journalDriver string
	journalDSN    string
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:           "promptflow",
		Short:         "Run prompt chains against language models",
		Long:          `promptflow resolves YAML prompt chains step by step, sends each prompt to a model, and retries failures by policy.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringArrayVarP(&g.configPaths, "config", "c", nil, "settings file (.yaml or .json); repeat to layer files, later ones win")
	flags.StringVar(&g.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&g.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&g.journalDriver, "journal-driver", "", "journal store: memory, sqlite or redis")
	flags.StringVar(&g.journalDSN, "journal-dsn", "", "journal location: sqlite file path or redis URL")

	root.AddCommand(newRunCmd(g), newValidateCmd(), newJournalCmd(g))
	return root
}

// envPrefix names the environment variables that override settings
// files, e.g. PROMPTFLOW_RETRY__BUDGET=5.
const envPrefix = "PROMPTFLOW"

// settings layers the settings files, then the environment, then the
// global flags over the defaults.
func (g *globalOptions) settings() (runner.Settings, error) {
	files, err := config.FromFiles(g.configPaths...)
	if err != nil {
		return runner.DefaultSettings(), err
	}
	s := runner.SettingsFromConfig(config.Merge(files, config.FromEnv(envPrefix, os.Environ())))
	if g.journalDriver != "" {
		s.JournalDriver = g.journalDriver
	}
	if g.journalDSN != "" {
		s.JournalDSN = g.journalDSN
	}
	return s, nil
}

func (g *globalOptions) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", g.logLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(g.logFormat) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", g.logFormat)
	}
}

// expandPaths resolves each argument as a doublestar glob. An argument
// that matches nothing and has no glob syntax is kept as-is, so a missing
// file is reported when it is opened.
func expandPaths(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, arg := range args {
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			if strings.ContainsAny(arg, "*?[{") {
				return nil, fmt.Errorf("pattern %q matches no files", arg)
			}
			matches = []string{arg}
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

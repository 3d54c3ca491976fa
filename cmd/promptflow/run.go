package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/promptflow/pkg/promptflow"
	"github.com/randalmurphal/promptflow/pkg/promptflow/chaindef"
	"github.com/randalmurphal/promptflow/pkg/promptflow/journal"
	"github.com/randalmurphal/promptflow/pkg/promptflow/llm"
	"github.com/randalmurphal/promptflow/pkg/promptflow/observability"
	"github.com/randalmurphal/promptflow/pkg/promptflow/runner"
)

type runOptions struct {
	models      []string
	budget      int
	budgetSet   bool
	provider    string
	baseURL     string
	vars        []string
	parallel    int
	metricsAddr string
	output      string
}

func newRunCmd(g *globalOptions) *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <chain-file|glob>...",
		Short: "Run one or more chain files",
		Long: `Run loads each chain file, resolves its steps in order and sends every
prompt to the configured model roster. Files run concurrently; a failure in
one file does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.budgetSet = cmd.Flags().Changed("budget")
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runChains(ctx, cmd, g, o, args)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&o.models, "model", "m", nil, "model roster, in failover order (overrides the chain file)")
	flags.IntVar(&o.budget, "budget", 0, "retry budget per step (overrides the chain file)")
	flags.StringVar(&o.provider, "provider", "", "llm provider: openai or claude-cli")
	flags.StringVar(&o.baseURL, "base-url", "", "base URL of an OpenAI-compatible API")
	flags.StringArrayVar(&o.vars, "var", nil, "initial context value as key=value (repeatable)")
	flags.IntVarP(&o.parallel, "parallel", "p", 4, "chain files to run at once")
	flags.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.StringVarP(&o.output, "output", "o", "text", "report format: text or json")
	return cmd
}

func runChains(ctx context.Context, cmd *cobra.Command, g *globalOptions, o *runOptions, args []string) error {
	if o.output != "text" && o.output != "json" {
		return fmt.Errorf("unknown output format %q", o.output)
	}
	vars, err := parseVars(o.vars)
	if err != nil {
		return err
	}
	paths, err := expandPaths(args)
	if err != nil {
		return err
	}

	logger, err := g.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	settings, err := g.settings()
	if err != nil {
		return err
	}
	if o.provider != "" {
		settings.Provider = o.provider
	}
	if o.baseURL != "" {
		settings.BaseURL = o.baseURL
	}

	client, err := settings.NewClient()
	if err != nil {
		return err
	}
	store, err := journal.Open(settings.JournalDriver, settings.JournalDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := []runner.Option{
		runner.WithSettings(settings),
		runner.WithJournal(store),
		runner.WithLogger(logger),
		runner.WithSpans(observability.NewSpanManager()),
	}
	if o.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, runner.WithMetrics(observability.NewPrometheusRecorder("promptflow", reg)))
		shutdown, err := serveMetrics(o.metricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}
	r := runner.New(client, opts...)

	var (
		mu      sync.Mutex
		reports = make([]*reportView, len(paths))
		failed  int
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(o.parallel, 1))
	for i, path := range paths {
		eg.Go(func() error {
			view := runFile(egCtx, r, path, o, vars)
			mu.Lock()
			reports[i] = view
			if view.Error != "" {
				failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	if err := writeReports(cmd.OutOrStdout(), o.output, reports); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d chains failed", failed, len(paths))
	}
	return nil
}

func runFile(ctx context.Context, r *runner.Runner, path string, o *runOptions, vars map[string]any) *reportView {
	view := &reportView{File: path}

	def, err := chaindef.Load(path)
	if err != nil {
		view.Error = err.Error()
		return view
	}
	if len(o.models) > 0 {
		def.Models = o.models
	}
	if o.budgetSet {
		budget := o.budget
		def.Budget = &budget
	}
	if len(vars) > 0 {
		if def.Vars == nil {
			def.Vars = make(map[string]any, len(vars))
		}
		for k, v := range vars {
			def.Vars[k] = v
		}
	}

	rep, err := r.RunDefinition(ctx, def)
	view.fill(rep)
	if err != nil {
		view.Error = err.Error()
	}
	return view
}

// parseVars splits key=value pairs. Values stay strings.
func parseVars(pairs []string) (map[string]any, error) {
	vars := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("--var %q: want key=value", p)
		}
		vars[k] = v
	}
	return vars, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// reportView is the printable form of a runner.Report.
type reportView struct {
	File     string         `json:"file"`
	Chain    string         `json:"chain,omitempty"`
	RunID    string         `json:"run_id,omitempty"`
	Steps    int            `json:"steps"`
	Skipped  int            `json:"skipped"`
	Attempts int            `json:"attempts"`
	Usage    llm.TokenUsage `json:"usage"`
	Complete bool           `json:"complete"`
	Duration string         `json:"duration,omitempty"`
	Error    string         `json:"error,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

func (v *reportView) fill(rep *runner.Report) {
	if rep == nil {
		return
	}
	v.Chain = rep.Chain
	v.RunID = rep.RunID
	v.Steps = rep.Steps
	v.Skipped = rep.Skipped
	v.Attempts = rep.Attempts
	v.Usage = rep.Usage
	v.Complete = rep.Complete
	v.Duration = rep.Duration.Round(time.Millisecond).String()
	if mc, ok := rep.Context.(*promptflow.MapContext); ok {
		v.Context = mc.Snapshot()
	}
}

func writeReports(w io.Writer, format string, reports []*reportView) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	for _, v := range reports {
		status := "ok"
		switch {
		case v.Error != "":
			status = "FAILED"
		case !v.Complete:
			status = "stalled"
		}
		fmt.Fprintf(w, "%s\t%s\trun=%s steps=%d skipped=%d attempts=%d tokens=%d/%d %s\n",
			status, v.File, v.RunID, v.Steps, v.Skipped, v.Attempts,
			v.Usage.InputTokens, v.Usage.OutputTokens, v.Duration)
		if v.Error != "" {
			fmt.Fprintf(w, "\terror: %s\n", v.Error)
		}
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/promptflow/pkg/promptflow/journal"
)

func newJournalCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the attempt journal",
		Long: `Journal reads the attempt records written by earlier runs. Use
--journal-driver and --journal-dsn (or the settings file) to point at a
sqlite or redis journal; the memory journal does not outlive a run.`,
	}
	cmd.AddCommand(newJournalRunsCmd(g), newJournalShowCmd(g), newJournalDeleteCmd(g))
	return cmd
}

func openJournal(g *globalOptions) (journal.Store, error) {
	s, err := g.settings()
	if err != nil {
		return nil, err
	}
	return journal.Open(s.JournalDriver, s.JournalDSN)
}

func newJournalRunsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List journaled runs, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openJournal(g)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tRECORDS\tFAILURES\tLAST")
			for _, run := range runs {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", run.RunID, run.Records, run.Failures, run.Last.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func newJournalShowCmd(g *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the attempts of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJournal(g)
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				return fmt.Errorf("run %q: %w", args[0], journal.ErrNotFound)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STEP\tNODE\tATTEMPT\tMODEL\tTOKENS\tMS\tRESULT")
			for _, r := range recs {
				result := "ok"
				if r.Failed() {
					result = fmt.Sprintf("%s (%s)", r.Error, r.Action)
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d/%d\t%d\t%s\n",
					r.Step, r.Node, r.Attempt, r.Model, r.InputTokens, r.OutputTokens, r.DurationMs, result)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func newJournalDeleteCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Remove the records of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJournal(g)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/promptflow/pkg/promptflow/chaindef"
	"github.com/randalmurphal/promptflow/pkg/promptflow/runner"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <chain-file|glob>...",
		Short: "Check chain files without running them",
		Long: `Validate parses each chain file and builds its steps: conditions must
compile, templates must parse and decoder names must be known. Globs may use
** to match nested directories.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := expandPaths(args)
			if err != nil {
				return err
			}
			// A runner without a client is enough to answer decoder lookups.
			r := runner.New(nil)

			out := cmd.OutOrStdout()
			var failed int
			for _, path := range paths {
				if err := validateFile(r, path); err != nil {
					failed++
					fmt.Fprintf(out, "FAIL\t%s\n\t%v\n", path, err)
					continue
				}
				fmt.Fprintf(out, "ok\t%s\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d chain files are invalid", failed, len(paths))
			}
			return nil
		},
	}
}

func validateFile(r *runner.Runner, path string) error {
	def, err := chaindef.Load(path)
	if err != nil {
		return err
	}
	_, err = def.Build(chaindef.WithDecoders(r.KnownDecoder))
	return err
}

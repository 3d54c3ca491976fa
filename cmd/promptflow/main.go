// Command promptflow runs and inspects prompt chain files.
//
// Usage:
//
//	promptflow run chains/review.yaml --model gpt-4o --model gpt-4o-mini
//	promptflow validate 'chains/**/*.yaml'
//	promptflow journal runs --journal-driver sqlite --journal-dsn journal.db
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

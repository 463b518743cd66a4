package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"omibyte.io/hwinit/builder"
	"omibyte.io/hwinit/hwerr"
)

var (
	verbose bool
	family  string

	rootCmd = &cobra.Command{
		Use:   "hwinit",
		Short: "Generate hardware initialization code from a board description",
		Long: `hwinit reads a YAML or TOML board description and produces an ordered
initialization plan for the selected device family. The plan is emitted as Rust
for HAL crates or Go for TinyGo.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every planning step to stderr")
	rootCmd.PersistentFlags().StringVarP(&family, "family", "f", "", "device family overriding the one in each configuration. Default: $HWINIT_FAMILY")

	rootCmd.AddCommand(checkCmd, planCmd, emitCmd, familiesCmd, envCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		report(err)
		os.Exit(1)
	}
}

// options returns the builder options shared by every command.
func options(configs []string) builder.Options {
	opts := builder.Options{
		Configs:     configs,
		Family:      family,
		Environment: builder.Environment(),
	}
	if verbose {
		opts.Logger = log.New(os.Stderr, "hwinit: ", 0)
	}
	return opts
}

// report prints err with a prefix naming its category.
func report(err error) {
	switch {
	case errors.Is(err, builder.ErrConfigError), errors.Is(err, hwerr.ErrParse), errors.Is(err, hwerr.ErrMissingField):
		fmt.Fprintln(os.Stderr, "Configuration error:", err)
	case errors.Is(err, hwerr.ErrRange), errors.Is(err, hwerr.ErrExclusivity), errors.Is(err, hwerr.ErrUnknownIdentity):
		fmt.Fprintln(os.Stderr, "Validation error:", err)
	case errors.Is(err, hwerr.ErrState):
		fmt.Fprintln(os.Stderr, "Planning error:", err)
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"omibyte.io/hwinit/builder"
)

var (
	emitOpts = struct {
		output  string
		format  string
		name    string
		pkg     string
		rustfmt bool
		watch   bool
	}{}

	emitCmd = &cobra.Command{
		Use:   "emit config...",
		Short: "Generate initialization source for board descriptions",
		Long: `Generate initialization source for each board description. Without an output
path the source is printed to stdout. With several configurations the output
must be a directory and one file is written per configuration.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := options(args)
			opts.Output = emitOpts.output
			opts.Format = emitOpts.format
			opts.Name = emitOpts.name
			opts.Package = emitOpts.pkg
			opts.Rustfmt = emitOpts.rustfmt

			build := func() error {
				results, err := builder.BuildConfigs(opts)
				if err != nil {
					return err
				}
				for _, r := range results {
					if r.Output == "" {
						if _, err := cmd.OutOrStdout().Write(r.Source); err != nil {
							return err
						}
					}
				}
				return nil
			}

			if !emitOpts.watch {
				return build()
			}

			// Keep watching after a failed build so the configuration can be fixed
			if err := build(); err != nil {
				report(err)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			w, err := newWatcher(args)
			if err != nil {
				return err
			}
			defer w.Close()
			fmt.Fprintln(os.Stderr, "watching", len(args), "configuration(s), press Ctrl+C to stop")
			return w.run(ctx, func() error {
				err := build()
				if err != nil {
					report(err)
				}
				return err
			})
		},
	}
)

func init() {
	emitCmd.Flags().StringVarP(&emitOpts.output, "output", "o", "", "output file or directory. Default: $HWINIT_OUTPUT or stdout")
	emitCmd.Flags().StringVar(&emitOpts.format, "format", "", "output format (=rust, =go, =yaml, =text). Default: the family's language")
	emitCmd.Flags().StringVar(&emitOpts.name, "name", "", "wrap generated Rust in an impl block for this type")
	emitCmd.Flags().StringVar(&emitOpts.pkg, "package", "", "package of generated Go. Default: $HWINIT_PACKAGE")
	emitCmd.Flags().BoolVar(&emitOpts.rustfmt, "rustfmt", false, "format generated Rust with rustfmt")
	emitCmd.Flags().BoolVarP(&emitOpts.watch, "watch", "w", false, "regenerate whenever a configuration changes")
}

package main

import (
	"github.com/spf13/cobra"

	"omibyte.io/hwinit/builder"
	"omibyte.io/hwinit/emit"
)

var (
	planFormat string

	planCmd = &cobra.Command{
		Use:   "plan config",
		Short: "Print the initialization plan of a board description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := emit.ParseFormat(planFormat)
			if err != nil {
				return err
			}
			p, err := builder.Plan(args[0], options(args))
			if err != nil {
				return err
			}
			out, err := emit.Render(p, format, emit.Options{})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
)

func init() {
	planCmd.Flags().StringVar(&planFormat, "format", "text", "plan format (=text, =yaml)")
}

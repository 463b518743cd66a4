package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"omibyte.io/hwinit/builder"
)

var checkCmd = &cobra.Command{
	Use:   "check config...",
	Short: "Validate board descriptions",
	Long:  "Decode and validate each board description without planning it.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := options(args)
		var errs []error
		for _, config := range args {
			cfg, err := builder.Load(config, opts)
			if err == nil {
				_, err = cfg.Validate()
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", config, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s, %d gpios, %d pwm, %d serial)\n",
				config, cfg.Kind, len(cfg.Gpio), len(cfg.Pwm), len(cfg.Serial))
		}
		return errors.Join(errs...)
	},
}

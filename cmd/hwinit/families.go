package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"omibyte.io/hwinit/lowering"
)

var familiesCmd = &cobra.Command{
	Use:   "families",
	Short: "List the supported device families",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, kind := range lowering.Registered() {
			info, err := kind.Target()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-5s %s (%s)\n", info.Family, info.Language, info.Description, info.Crate)
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s aliases: %s\n", "", strings.Join(info.Aliases, ", "))
		}
		return nil
	},
}

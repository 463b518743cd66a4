package main

import (
	"github.com/spf13/cobra"

	"omibyte.io/hwinit/builder"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print hwinit environment information",
	Run: func(cmd *cobra.Command, args []string) {
		builder.Environment().Print()
	},
}

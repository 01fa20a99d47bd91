package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/ratlab"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ratlab",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ratlab version %s\n", strings.TrimSpace(ratlab.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

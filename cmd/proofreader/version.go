package main

import (
	"fmt"

	"github.com/aretw0/proofreader"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of proofreader",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "proofreader version %s\n", proofreader.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/yurt"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of yurt",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "yurt version %s\n", strings.TrimSpace(yurt.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

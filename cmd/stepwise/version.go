package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/stepwise"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stepwise",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stepwise version %s\n", strings.TrimSpace(stepwise.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"github.com/aretw0/stepwise/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [flow]",
	Short: "Run a flow in the terminal",
	Long: `Runs a flow interactively. Choice steps take option numbers or IDs,
multiple choice takes a comma-separated list and an empty line continues.
Type :back, :skip, :exit or :submit to navigate.

With --flow-id the flow is kept in the store after every step, so closing
the terminal (or Ctrl+C) pauses it and the next run with the same ID resumes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flowID, _ := cmd.Flags().GetString("flow-id")
		fresh, _ := cmd.Flags().GetBool("fresh")
		jsonMode, _ := cmd.Flags().GetBool("json")

		return cli.Execute(cmd.Context(), cli.RunOptions{
			Flow:    flowSource(cmd, args),
			FlowID:  flowID,
			Fresh:   fresh,
			JSON:    jsonMode,
			Debug:   debugEnabled(cmd),
			Backend: backendOptions(cmd),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("flow-id", "", "Flow instance ID to resume or create")
	runCmd.Flags().Bool("fresh", false, "Discard any stored state for --flow-id before starting")
	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")

	// 'run' is the default when no command is provided.
	rootCmd.RunE = runCmd.RunE
	rootCmd.Args = runCmd.Args
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}

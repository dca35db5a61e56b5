package main

import (
	"fmt"
	"os"

	"github.com/aretw0/stepwise/internal/cli"
	"github.com/aretw0/stepwise/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flow]",
	Short: "Check a flow definition for consistency",
	Long: `Compiles the flow and lints it: unknown step kinds, duplicate IDs, broken
'when' conditions and references to steps that are unknown or come later.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Flow is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	def, err := cli.LoadDefinition(flowSource(cmd, args))
	if err != nil {
		return err
	}

	report := validator.ValidateDefinition(def)
	for _, w := range report.Warnings() {
		fmt.Println(w.String())
	}
	return report.Err()
}

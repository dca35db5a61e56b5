package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/stepwise/internal/cli"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/spf13/cobra"
)

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "Manage stored flows",
	Long:  `List, inspect and remove flows kept in the configured store (.stepwise/flows by default).`,
}

var flowsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored flows",
	Run: func(cmd *cobra.Command, args []string) {
		withStore(cmd, func(store ports.StateStore) bool {
			flows, err := store.List(cmd.Context())
			if err != nil {
				fmt.Printf("Error listing flows: %v\n", err)
				return false
			}

			if len(flows) == 0 {
				fmt.Println("No stored flows found.")
				return true
			}

			fmt.Println("Stored Flows:")
			for _, id := range flows {
				fmt.Println("- " + id)
			}
			return true
		})
	},
}

var flowsInspectCmd = &cobra.Command{
	Use:   "inspect <flow-id>",
	Short: "Inspect the state of a flow",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		flowID := args[0]
		withStore(cmd, func(store ports.StateStore) bool {
			state, err := store.Load(cmd.Context(), flowID)
			if err != nil {
				fmt.Printf("Error loading flow '%s': %v\n", flowID, err)
				return false
			}

			// Pretty print JSON
			data, err := json.MarshalIndent(state, "", "  ")
			if err != nil {
				fmt.Printf("Error marshaling state: %v\n", err)
				return false
			}

			fmt.Println(string(data))
			return true
		})
	},
}

var flowsRmCmd = &cobra.Command{
	Use:   "rm <flow-id>...",
	Short: "Remove one or more flows",
	Args: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		all, _ := cmd.Flags().GetBool("all")
		withStore(cmd, func(store ports.StateStore) bool {
			ids := args
			if all {
				var err error
				if ids, err = store.List(cmd.Context()); err != nil {
					fmt.Printf("Error listing flows: %v\n", err)
					return false
				}
			}

			ok := true
			for _, flowID := range ids {
				if err := store.Delete(cmd.Context(), flowID); err != nil {
					fmt.Printf("Error removing '%s': %v\n", flowID, err)
					ok = false
				} else {
					fmt.Printf("Removed flow '%s'\n", flowID)
				}
			}
			return ok
		})
	},
}

func init() {
	rootCmd.AddCommand(flowsCmd)
	flowsCmd.AddCommand(flowsLsCmd)
	flowsCmd.AddCommand(flowsInspectCmd)
	flowsCmd.AddCommand(flowsRmCmd)

	flowsRmCmd.Flags().Bool("all", false, "Remove every stored flow")
}

// withStore opens the configured store without a sink and exits non-zero when fn fails.
func withStore(cmd *cobra.Command, fn func(ports.StateStore) bool) {
	opts := backendOptions(cmd)
	opts.Sink = cli.SinkNone
	backend, err := cli.OpenBackend(cmd.Context(), opts, "")
	if err != nil {
		fmt.Printf("Error opening store: %v\n", err)
		os.Exit(1)
	}
	ok := fn(backend.Store)
	backend.Close()
	if !ok {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/aretw0/stepwise/internal/cli"
	"github.com/aretw0/stepwise/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [flow]",
	Short: "Export the flow as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of the flow's steps. Conditional steps
get a labelled edge and a dotted bypass. With --flow-id the stored flow's
answered, current and excluded steps are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		output, err := runGraph(cmd, args)
		if err != nil {
			fmt.Printf("Error generating graph: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(output)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("flow-id", "", "Highlight the progress of a stored flow")
}

func runGraph(cmd *cobra.Command, args []string) (string, error) {
	def, err := cli.LoadDefinition(flowSource(cmd, args))
	if err != nil {
		return "", err
	}
	engine, err := cli.NewEngine(def, cli.EngineOptions{})
	if err != nil {
		return "", err
	}

	flowID, _ := cmd.Flags().GetString("flow-id")
	if flowID == "" {
		return graph.GenerateMermaid(engine.Steps(), nil), nil
	}

	opts := backendOptions(cmd)
	opts.Sink = cli.SinkNone
	backend, err := cli.OpenBackend(cmd.Context(), opts, def.Name)
	if err != nil {
		return "", err
	}
	defer backend.Close()

	state, err := backend.Store.Load(cmd.Context(), flowID)
	if err != nil {
		return "", fmt.Errorf("failed to load flow '%s': %w", flowID, err)
	}
	return graph.GenerateMermaid(engine.Steps(), cli.BuildOverlay(engine, state)), nil
}

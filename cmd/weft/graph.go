package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/weft/internal/demo"
	"github.com/aretw0/weft/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the flow graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the frames, their routing and the dependency functions feeding them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flow, err := demo.Flow()
		if err != nil {
			return fmt.Errorf("build flow: %w", err)
		}
		out, err := graph.GenerateMermaid(flow, nil)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

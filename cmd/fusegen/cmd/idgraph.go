package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tensorfuse/fusegen/internal/pipeline"
	"github.com/tensorfuse/fusegen/pkg/model"
)

var (
	idgraphInputFile string
	idgraphMode      string
	idgraphOutput    string
)

// idgraphCmd represents the idgraph command.
var idgraphCmd = &cobra.Command{
	Use:   "idgraph",
	Short: "Dump one mapping mode's IterDomain equivalence graph",
	Long: `Build the IterDomainGraphs for a fusion IR file and print the
requested mapping mode's graph as a JSON node/edge dump, for inspecting
which axes the pass considers equivalent under EXACT, ALMOST_EXACT,
PERMISSIVE, or LOOP mapping.`,
	RunE: runIdgraph,
}

func init() {
	rootCmd.AddCommand(idgraphCmd)

	idgraphCmd.Flags().StringVarP(&idgraphInputFile, "input", "i", "", "Input fusion IR JSON file (required)")
	idgraphCmd.Flags().StringVar(&idgraphMode, "mode", "LOOP", "Mapping mode: EXACT, ALMOST_EXACT, PERMISSIVE, or LOOP")
	idgraphCmd.Flags().StringVarP(&idgraphOutput, "output", "o", "", "Output file (defaults to stdout)")
	idgraphCmd.MarkFlagRequired("input")
}

func runIdgraph(cmd *cobra.Command, args []string) error {
	payload, err := os.ReadFile(idgraphInputFile)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	req := model.LowerRequest{
		DocUUID:   "idgraph-dump",
		IRPayload: string(payload),
	}

	ctx := context.Background()
	result, err := pipeline.New("dev").Run(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to build idgraphs: %w", err)
	}

	dump, ok := result.IdGraphDumps[idgraphMode]
	if !ok {
		return fmt.Errorf("unknown mapping mode %q (valid: EXACT, ALMOST_EXACT, PERMISSIVE, LOOP)", idgraphMode)
	}

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal idgraph dump: %w", err)
	}

	if idgraphOutput == "" {
		fmt.Println(string(data))
		return nil
	}

	if err := os.WriteFile(idgraphOutput, data, 0644); err != nil {
		return fmt.Errorf("failed to write idgraph dump: %w", err)
	}
	GetLogger().Info("idgraph dump written to %s", idgraphOutput)
	return nil
}

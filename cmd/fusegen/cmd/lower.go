package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tensorfuse/fusegen/internal/pipeline"
	"github.com/tensorfuse/fusegen/pkg/model"
	"github.com/tensorfuse/fusegen/pkg/parallel"
)

var (
	lowerInputFile string
	lowerBatchGlob string
	lowerWorkers   int
	lowerOutputDir string
	lowerDocUUID   string
	lowerAllowSelf bool
	lowerPassVer   string
)

// lowerCmd represents the lower command.
var lowerCmd = &cobra.Command{
	Use:   "lower",
	Short: "Lower a fusion IR file through the double-buffer pass",
	Long: `Decode a serialized fusion IR file, build its IterDomainGraphs,
run the double-buffer loop transformation, and write the rendered kernel
text, idgraph dumps, and a run summary to the output directory.

With --batch, a glob of fusion IR files is lowered concurrently across a
worker pool instead of a single file, each getting its own subdirectory
under --output named after the input file.`,
	RunE: runLower,
}

func init() {
	rootCmd.AddCommand(lowerCmd)

	binName := BinName()
	lowerCmd.Example = fmt.Sprintf(`  # Lower a fusion and write its outputs to ./output
  %s lower -i ./fusion.json -o ./output

  # Allow self-mappings instead of treating them as fatal
  %s lower -i ./fusion.json --allow-self-mapping

  # Lower every fusion under ./fusions concurrently
  %s lower --batch './fusions/*.json' -o ./output --workers 4`, binName, binName, binName)

	lowerCmd.Flags().StringVarP(&lowerInputFile, "input", "i", "", "Input fusion IR JSON file")
	lowerCmd.Flags().StringVar(&lowerBatchGlob, "batch", "", "Glob of fusion IR JSON files to lower concurrently, instead of --input")
	lowerCmd.Flags().IntVar(&lowerWorkers, "workers", 0, "Worker pool size for --batch (default: NumCPU clamped to [2, 8])")
	lowerCmd.Flags().StringVarP(&lowerOutputDir, "output", "o", "./output", "Output directory for generated files")
	lowerCmd.Flags().StringVar(&lowerDocUUID, "uuid", "", "Document UUID (auto-generated if empty; ignored with --batch)")
	lowerCmd.Flags().BoolVar(&lowerAllowSelf, "allow-self-mapping", false, "Allow self-mappings instead of failing")
	lowerCmd.Flags().StringVar(&lowerPassVer, "pass-version", "dev", "Version string stamped onto the pass run")
}

func runLower(cmd *cobra.Command, args []string) error {
	if lowerBatchGlob == "" && lowerInputFile == "" {
		return fmt.Errorf("one of --input or --batch is required")
	}
	if lowerBatchGlob != "" && lowerInputFile != "" {
		return fmt.Errorf("--input and --batch are mutually exclusive")
	}

	if err := os.MkdirAll(lowerOutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if lowerBatchGlob == "" {
		return lowerOneFile(lowerInputFile, lowerOutputDir, lowerDocUUID)
	}
	return runLowerBatch()
}

func runLowerBatch() error {
	log := GetLogger()

	files, err := filepath.Glob(lowerBatchGlob)
	if err != nil {
		return fmt.Errorf("invalid --batch glob %q: %w", lowerBatchGlob, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("--batch glob %q matched no files", lowerBatchGlob)
	}

	config := parallel.DefaultPoolConfig()
	if lowerWorkers > 0 {
		config = config.WithWorkers(lowerWorkers)
	}

	log.Info("=== fusegen lower --batch ===")
	log.Info("Matched %d fusion file(s), %d worker(s)", len(files), config.MaxWorkers)
	log.Info("")

	processed, firstErr := parallel.ForEach(context.Background(), files, config, func(ctx context.Context, file string) error {
		docUUID := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		outDir := filepath.Join(lowerOutputDir, docUUID)
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("%s: failed to create output directory: %w", file, err)
		}
		if err := lowerOneFile(file, outDir, docUUID); err != nil {
			log.Error("%s: %v", file, err)
			return err
		}
		return nil
	})

	log.Info("")
	log.Info("=== Batch Complete ===")
	log.Info("%d/%d fusion(s) lowered successfully", processed, len(files))
	if firstErr != nil {
		return fmt.Errorf("%d of %d fusions failed, first error: %w", int64(len(files))-processed, len(files), firstErr)
	}
	return nil
}

// lowerOneFile decodes inputFile, runs the double-buffer pass, and writes
// its rendered kernel, idgraph dumps, and run summary into outDir.
func lowerOneFile(inputFile, outDir, docUUID string) error {
	log := GetLogger()

	payload, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	uuid := docUUID
	if uuid == "" {
		uuid = fmt.Sprintf("local-%s", time.Now().Format("20060102-150405"))
	}

	log.Info("Input file: %s", inputFile)
	log.Info("Output dir: %s", outDir)
	log.Info("Doc UUID:   %s", uuid)

	req := model.LowerRequest{
		DocUUID:   uuid,
		IRPayload: string(payload),
		Options:   model.LowerOptions{AllowSelfMapping: lowerAllowSelf},
	}

	result, err := pipeline.New(lowerPassVer).Run(context.Background(), req)
	if err != nil {
		return fmt.Errorf("lowering failed: %w", err)
	}

	log.Info("Loops transformed:   %d", result.PassRun.LoopsTransformed)
	log.Info("Syncs inserted:      %d", result.PassRun.SyncsInserted)
	log.Info("Self mappings found: %d", result.PassRun.SelfMappingsDetected)
	for mode, stats := range result.PassRun.ModeStats {
		log.Info("  %-12s groups=%d merges=%d", mode, stats.Groups, stats.Merges)
	}

	kernelFile := filepath.Join(outDir, "kernel.cu")
	if err := os.WriteFile(kernelFile, []byte(result.RenderedKernel), 0644); err != nil {
		return fmt.Errorf("failed to write rendered kernel: %w", err)
	}
	log.Info("Rendered kernel: %s", kernelFile)

	for mode, dump := range result.IdGraphDumps {
		data, err := json.MarshalIndent(dump, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal %s idgraph dump: %w", mode, err)
		}
		dumpFile := filepath.Join(outDir, fmt.Sprintf("idgraph_%s.json", mode))
		if err := os.WriteFile(dumpFile, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s idgraph dump: %w", mode, err)
		}
	}

	summary, err := json.MarshalIndent(result.PassRun, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	summaryFile := filepath.Join(outDir, "summary.json")
	if err := os.WriteFile(summaryFile, summary, 0644); err != nil {
		return fmt.Errorf("failed to write run summary: %w", err)
	}

	log.Info("")
	return nil
}

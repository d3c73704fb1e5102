package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tensorfuse/fusegen/pkg/utils"
)

var (
	// Global flags
	verbose bool
	logger  utils.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "fusegen",
	Short: "A GPU kernel-fusion double-buffer lowering tool",
	Long: `fusegen runs a fused kernel's iteration-domain graph build and
double-buffer loop transformation pass over a serialized fusion IR,
producing a rewritten loop nest, pipelining sync points, and pass
statistics.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stdout)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	binName := BinName()
	rootCmd.Example = `  # Lower a fusion IR file and render the transformed kernel
  ` + binName + ` lower -i ./fusion.json -o ./output

  # Dump the LOOP-mode IterDomain equivalence graph for inspection
  ` + binName + ` idgraph -i ./fusion.json --mode LOOP

  # Start the compile service
  ` + binName + ` serve -c ./configs/config.yaml`
}

// GetLogger returns the configured logger.
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}

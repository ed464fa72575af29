// Package cmd implements the visualwords command line interface.
package cmd

import (
	"github.com/patrikhermansson/visualwords/vocabulary"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string

	// exitCode is set by commands whose result is the process status.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "visualwords",
	Short: "Incremental visual word vocabulary",
	Long: `visualwords builds a vocabulary of visual words from local image
descriptors and looks up which objects a scene contains.

Descriptor files hold one descriptor per line:
  .csv  float descriptors, comma separated (SIFT, SURF)
  .hex  binary descriptors, hex encoded (ORB, BRIEF)

Examples:
  visualwords build --out vocab.bin box.csv mug.csv
  visualwords query --vocab vocab.bin scene.csv
  visualwords similarity box.csv scene.csv`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML vocabulary configuration (default built-in settings)")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(similarityCmd)
}

// Execute runs the command named by the process arguments and returns the
// exit status. Failures print the usage of the failing command and return -1.
func Execute() int {
	exitCode = 0
	c, err := rootCmd.ExecuteC()
	if err != nil {
		log.Error().Err(err).Msg("Command failed")
		_ = c.Usage()
		return -1
	}
	return exitCode
}

// loadConfig returns the configuration named by --config, or the defaults.
func loadConfig() (vocabulary.Config, error) {
	if cfgFile == "" {
		return vocabulary.DefaultConfig(), nil
	}
	return vocabulary.LoadConfig(cfgFile)
}

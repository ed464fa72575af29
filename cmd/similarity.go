package cmd

import (
	"fmt"

	"github.com/patrikhermansson/visualwords/core"
	"github.com/patrikhermansson/visualwords/internal/dataset"
	"github.com/patrikhermansson/visualwords/vocabulary"
	"github.com/spf13/cobra"
)

var (
	similarityTotal bool
	similarityQuiet bool
)

var similarityCmd = &cobra.Command{
	Use:   "similarity [flags] object scene",
	Short: "Count descriptor matches between two files",
	Long: `Return the similarity between an object and a scene.

The scene descriptors are indexed and each object descriptor is matched
against its two nearest scene descriptors. The similarity is the number of
object descriptors passing the distance ratio test. The process exits with
that number as its status.

Flags take two dashes: --total and --quiet (or -q). Single-dash long forms
such as -total are rejected.

Examples:
  visualwords similarity box.csv scene.csv
  visualwords similarity --total --quiet box.csv scene.csv`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		object, err := dataset.Load(args[0])
		if err != nil {
			return err
		}
		scene, err := dataset.Load(args[1])
		if err != nil {
			return err
		}
		score, err := similarity(cfg, object, scene)
		if err != nil {
			return err
		}
		if !similarityQuiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Similarity = %d\n", score)
		}
		exitCode = score
		return nil
	},
}

func init() {
	// Total matches is the only measure; the flag is accepted for scripts that pass it.
	similarityCmd.Flags().BoolVar(&similarityTotal, "total", true, "return total matches")
	similarityCmd.Flags().BoolVarP(&similarityQuiet, "quiet", "q", false, "don't show messages")
}

// similarity counts the object descriptors whose nearest scene descriptor
// passes the ratio test against the second nearest.
func similarity(cfg vocabulary.Config, object, scene *core.Matrix) (int, error) {
	v := vocabulary.New()
	if _, err := v.AddWords(cfg, scene, 0, false); err != nil {
		return 0, fmt.Errorf("scene: %w", err)
	}
	if err := v.Update(cfg); err != nil {
		return 0, err
	}
	results, err := v.Search(cfg, object, 2)
	if err != nil {
		return 0, fmt.Errorf("object: %w", err)
	}
	matches := 0
	for _, neighbors := range results {
		if len(neighbors) == 2 && neighbors[0].Distance <= cfg.NNDRRatio*neighbors[1].Distance {
			matches++
		}
	}
	return matches, nil
}

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/patrikhermansson/visualwords/internal/dataset"
	"github.com/patrikhermansson/visualwords/vocabulary"
	"github.com/spf13/cobra"
)

var (
	queryVocab string
	queryK     int
)

var queryCmd = &cobra.Command{
	Use:   "query [flags] scene",
	Short: "Vote for the objects seen in a scene",
	Long: `Look up the descriptors of a scene in a saved vocabulary.

Every scene descriptor whose nearest word passes the distance ratio test
votes once for each object that contributed to that word. Objects are
printed by decreasing vote count.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if queryVocab == "" {
			return errors.New("--vocab is required")
		}
		if queryK < 2 {
			return fmt.Errorf("-k must be at least 2 for the ratio test, got %d", queryK)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		f, err := os.Open(queryVocab)
		if err != nil {
			return fmt.Errorf("open %s: %w", queryVocab, err)
		}
		defer f.Close()
		v := vocabulary.New()
		if err := v.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", queryVocab, err)
		}
		// Brings the index in line with cfg; a no-op for an unchanged vocabulary.
		if err := v.Update(cfg); err != nil {
			return err
		}

		scene, err := dataset.Load(args[0])
		if err != nil {
			return err
		}
		results, err := v.Search(cfg, scene, queryK)
		if err != nil {
			return err
		}
		for _, vote := range v.Vote(results, cfg.NNDRRatio) {
			fmt.Fprintf(cmd.OutOrStdout(), "object=%d votes=%d\n", vote.ObjectID, vote.Votes)
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryVocab, "vocab", "", "vocabulary file written by build")
	queryCmd.Flags().IntVarP(&queryK, "k", "k", 2, "neighbors looked up per descriptor")
}

package cmd

import (
	"fmt"
	"os"

	"github.com/patrikhermansson/visualwords/internal/dataset"
	"github.com/patrikhermansson/visualwords/vocabulary"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	buildBulk bool
	buildOut  string
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] files...",
	Short: "Build a vocabulary from descriptor files",
	Long: `Build a vocabulary from descriptor files and save it.

Each file holds the descriptors of one object; the object id is the
position of the file on the command line, starting at 0.

Without --bulk, descriptors that match an existing word join it and the
index is rebuilt after every file. With --bulk every descriptor becomes a
new word and the index is built once at the end.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		v, err := buildVocabulary(cfg, args, !buildBulk)
		if err != nil {
			return err
		}

		f, err := os.Create(buildOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", buildOut, err)
		}
		if err := v.Save(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("save %s: %w", buildOut, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", buildOut, err)
		}
		log.Info().Msgf("Saved %d words from %d objects to %s", v.TotalWords(), len(args), buildOut)
		return nil
	},
}

func init() {
	buildCmd.Flags().BoolVar(&buildBulk, "bulk", false, "make every descriptor a new word")
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "vocab.bin", "output vocabulary file")
}

// buildVocabulary adds every file as one object and leaves the vocabulary indexed.
func buildVocabulary(cfg vocabulary.Config, paths []string, incremental bool) (*vocabulary.Vocabulary, error) {
	v := vocabulary.New()
	bar := progressbar.Default(int64(len(paths)), "adding objects")
	for objectID, path := range paths {
		descriptors, err := dataset.Load(path)
		if err != nil {
			return nil, err
		}
		words, err := v.AddWords(cfg, descriptors, objectID, incremental)
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", path, err)
		}
		if incremental {
			if err := v.Update(cfg); err != nil {
				return nil, err
			}
		}
		log.Debug().Msgf("Object %d (%s): %d descriptors, %d words touched", objectID, path, descriptors.Rows(), len(words))
		_ = bar.Add(1)
	}
	if err := v.Update(cfg); err != nil {
		return nil, err
	}
	return v, nil
}

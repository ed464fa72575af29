package vocabulary

import (
	"fmt"
	"sort"

	"github.com/patrikhermansson/visualwords/core"
	"github.com/patrikhermansson/visualwords/linear"
	"github.com/rs/zerolog/log"
)

// source tells where a candidate word was found. Lower sources win distance ties.
type source int

const (
	fromCommitted source = iota
	fromPending
)

// candidate is a word near a descriptor.
type candidate struct {
	dist   float64
	wordID int
	source source
}

// sortCandidates orders by distance, then committed before pending, then lower word id.
func sortCandidates(c []candidate) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].dist != c[j].dist {
			return c[i].dist < c[j].dist
		}
		if c[i].source != c[j].source {
			return c[i].source < c[j].source
		}
		return c[i].wordID < c[j].wordID
	})
}

// passesNNDR reports whether the closest of sorted candidates is distinctly
// closer than the second one.
func passesNNDR(sorted []candidate, ratio float64) bool {
	return len(sorted) >= 2 && sorted[0].dist <= ratio*sorted[1].dist
}

// AddWords adds a batch of descriptors observed in object objectID and returns,
// for each word the batch touched, the batch rows assigned to it.
//
// In bulk mode every row becomes a new word. In incremental mode each row is
// compared with its two nearest words among the indexed and pending words and
// joins the nearest one when the distance ratio test passes; otherwise it
// becomes a new word. Rows added earlier in the same batch are candidates for
// later rows.
//
// Descriptors whose type or length differ from the vocabulary's are rejected
// and leave the vocabulary unchanged.
func (v *Vocabulary) AddWords(cfg Config, descriptors *core.Matrix, objectID int, incremental bool) (map[int][]int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	words := make(map[int][]int)
	if descriptors.Empty() {
		return words, nil
	}
	if err := v.store.compatible(descriptors); err != nil {
		return nil, fmt.Errorf("add words: %w", err)
	}
	if !incremental {
		if err := v.addBulk(descriptors, objectID, words); err != nil {
			return nil, fmt.Errorf("add words: %w", err)
		}
		return words, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("add words: %w", err)
	}
	metric, err := cfg.metricFor(descriptors.Type())
	if err != nil {
		return nil, fmt.Errorf("add words: %w", err)
	}

	var global [][]core.Neighbor
	if v.store.committed.Rows() >= 2 {
		if v.index == nil {
			return nil, fmt.Errorf("add words: %w", ErrIndexNotBuilt)
		}
		if v.built.Metric != metric {
			return nil, fmt.Errorf("add words: index built with %s, config asks for %s: %w",
				v.built.Metric, metric, core.ErrMetricMismatch)
		}
		global, err = v.index.Search(descriptors, 2, cfg.SearchParams)
		if err != nil {
			return nil, fmt.Errorf("add words: %w", err)
		}
	}

	matches := 0
	candidates := make([]candidate, 0, 4)
	for i := 0; i < descriptors.Rows(); i++ {
		row := descriptors.Row(i)
		candidates = candidates[:0]
		if global != nil {
			for _, n := range global[i] {
				if n.ID >= 0 {
					candidates = append(candidates, candidate{dist: n.Distance, wordID: n.ID, source: fromCommitted})
				}
			}
		}
		if pending := v.store.pending; !pending.Empty() {
			for _, n := range linear.KNN(row, pending, metric, 2) {
				candidates = append(candidates, candidate{
					dist:   n.Distance,
					wordID: v.store.pendingWordIDs[n.ID],
					source: fromPending,
				})
			}
		}
		sortCandidates(candidates)

		if passesNNDR(candidates, cfg.NNDRRatio) {
			word := candidates[0].wordID
			words[word] = append(words[word], i)
			v.store.associate(word, objectID)
			matches++
			continue
		}
		word := v.store.totalWords()
		if err := v.store.appendPending(row, word); err != nil {
			// Unreachable: the batch was checked against pending above.
			return words, fmt.Errorf("add words: %w", err)
		}
		words[word] = append(words[word], i)
		v.store.associate(word, objectID)
	}

	log.Debug().
		Int("object", objectID).
		Int("rows", descriptors.Rows()).
		Int("matches", matches).
		Int("new_words", descriptors.Rows()-matches).
		Msg("Added words incrementally")
	return words, nil
}

// addBulk makes every row of descriptors a new word. Nothing is recorded
// when the rows cannot be appended to pending.
func (v *Vocabulary) addBulk(descriptors *core.Matrix, objectID int, words map[int][]int) error {
	first := v.store.totalWords()
	if err := v.store.pending.Append(descriptors); err != nil {
		return err
	}
	for i := 0; i < descriptors.Rows(); i++ {
		word := first + i
		v.store.pendingWordIDs = append(v.store.pendingWordIDs, word)
		v.store.associate(word, objectID)
		words[word] = []int{i}
	}
	log.Debug().
		Int("object", objectID).
		Int("rows", descriptors.Rows()).
		Msg("Added words in bulk")
	return nil
}

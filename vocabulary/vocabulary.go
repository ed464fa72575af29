// Package vocabulary builds a vocabulary of visual words from batches of
// local feature descriptors.
//
// Descriptors added with AddWords are matched against the indexed words and
// against words added since the last rebuild. A descriptor whose nearest word
// passes the nearest-neighbor distance ratio test joins that word; otherwise it
// becomes a new word. Update moves new words into the index and rebuilds it,
// after which Search answers k-NN queries against the vocabulary.
//
// All methods are safe to call from multiple goroutines; each call holds an
// exclusive lock for its whole duration.
package vocabulary

import (
	"errors"
	"sync"

	"github.com/patrikhermansson/visualwords/core"
)

// ErrPendingNotEmpty is returned by Search when words were added since the last Update.
var ErrPendingNotEmpty = errors.New("vocabulary has words that are not indexed, call Update first")

// ErrIndexNotBuilt is returned when indexed words exist but no index could be built for them.
var ErrIndexNotBuilt = errors.New("vocabulary index is not built")

// buildKey identifies the settings an index was built with.
type buildKey struct {
	Metric core.Metric
	Params core.IndexParams
}

// Vocabulary is an incrementally built set of visual words.
type Vocabulary struct {
	mu    sync.Mutex
	store *store
	index core.Index // covers exactly store.committed, nil when not built
	built buildKey
}

// New returns an empty vocabulary.
func New() *Vocabulary {
	return &Vocabulary{store: newStore()}
}

// Clear drops every word, association and the index.
func (v *Vocabulary) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.store.clear()
	v.index = nil
	v.built = buildKey{}
}

// TotalWords returns the number of words, indexed or not.
func (v *Vocabulary) TotalWords() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.store.totalWords()
}

// CommittedRows returns the number of indexed words.
func (v *Vocabulary) CommittedRows() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.store.committed.Rows()
}

// PendingRows returns the number of words added since the last Update.
func (v *Vocabulary) PendingRows() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.store.pending.Rows()
}

// Associations returns the total number of (word, object) observations.
func (v *Vocabulary) Associations() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.store.associations()
}

// Descriptor returns a copy of the descriptor that defines a word.
func (v *Vocabulary) Descriptor(wordID int) (core.Row, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	row, ok := v.store.row(wordID)
	if !ok {
		return core.Row{}, false
	}
	if row.Binary != nil {
		return core.Row{Binary: append([]byte(nil), row.Binary...)}, true
	}
	return core.Row{Float: append([]float32(nil), row.Float...)}, true
}

// IndexStats reports the installed index, if any.
func (v *Vocabulary) IndexStats() (core.IndexStats, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.index == nil {
		return core.IndexStats{}, false
	}
	return v.index.Stats(), true
}

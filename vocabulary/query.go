package vocabulary

import (
	"fmt"

	"github.com/patrikhermansson/visualwords/core"
)

// Search returns, for each descriptor row, up to k words ordered by ascending
// distance. The vocabulary must have no pending words. An empty vocabulary
// yields an empty result. Returned slices are never modified by later calls.
func (v *Vocabulary) Search(cfg Config, descriptors *core.Matrix, k int) ([][]core.Neighbor, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.store.pending.Empty() || len(v.store.pendingWordIDs) != 0 {
		return nil, ErrPendingNotEmpty
	}
	if v.store.committed.Empty() {
		return [][]core.Neighbor{}, nil
	}
	if k <= 0 {
		return nil, fmt.Errorf("search: k must be positive, got %d", k)
	}
	if err := v.store.committed.Compatible(descriptors); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if v.index == nil {
		return nil, fmt.Errorf("search: %w", ErrIndexNotBuilt)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	results, err := v.index.Search(descriptors, k, cfg.SearchParams)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

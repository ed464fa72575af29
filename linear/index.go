// Package linear provides an exact brute-force nearest-neighbor index.
// It is also the linear scan used for descriptors that are not yet indexed.
package linear

import (
	"fmt"
	"sort"

	"github.com/patrikhermansson/visualwords/core"
)

// Index scans every indexed row for each query.
type Index struct {
	data   *core.Matrix
	metric core.Metric
}

// New returns an empty linear index.
func New() *Index {
	return &Index{data: &core.Matrix{}}
}

// Build keeps a reference to data. The caller must not modify data afterwards.
func (l *Index) Build(data *core.Matrix, metric core.Metric) error {
	if !data.Empty() && !metric.Supports(data.Type()) {
		return fmt.Errorf("linear: %s on %s descriptors: %w", metric, data.Type(), core.ErrMetricMismatch)
	}
	l.data = data
	l.metric = metric
	return nil
}

// Search returns the exact k nearest rows for each query row.
func (l *Index) Search(queries *core.Matrix, k int, _ core.SearchParams) ([][]core.Neighbor, error) {
	if err := l.data.Compatible(queries); err != nil {
		return nil, fmt.Errorf("linear: %w", err)
	}
	results := make([][]core.Neighbor, queries.Rows())
	for i := range results {
		results[i] = KNN(queries.Row(i), l.data, l.metric, k)
	}
	return results, nil
}

// Stats returns simple statistics about the index.
func (l *Index) Stats() core.IndexStats {
	return core.IndexStats{
		Count:     l.data.Rows(),
		Dimension: l.data.Cols(),
		Distance:  l.metric.String(),
	}
}

// KNN returns the k rows of data closest to query, ordered by ascending
// distance and then by row. The query must match the type and length of data.
func KNN(query core.Row, data *core.Matrix, metric core.Metric, k int) []core.Neighbor {
	n := data.Rows()
	if k <= 0 || n == 0 {
		return nil
	}
	neighbors := make([]core.Neighbor, n)
	for j := 0; j < n; j++ {
		neighbors[j] = core.Neighbor{ID: j, Distance: metric.Distance(query, data.Row(j))}
	}
	sort.Slice(neighbors, func(a, b int) bool {
		if neighbors[a].Distance == neighbors[b].Distance {
			return neighbors[a].ID < neighbors[b].ID
		}
		return neighbors[a].Distance < neighbors[b].Distance
	})
	if k > n {
		k = n
	}
	return neighbors[:k:k]
}

// Check interface compliance at compile time.
var _ core.Index = (*Index)(nil)

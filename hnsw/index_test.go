package hnsw_test

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/patrikhermansson/visualwords/core"
	"github.com/patrikhermansson/visualwords/hnsw"
)

func testParams() core.IndexParams {
	p := core.DefaultIndexParams()
	p.Seed = 42
	return p
}

func TestIndex_BuildAndStats(t *testing.T) {
	data, err := core.NewFloatMatrix([][]float32{
		{1, 2, 3, 4, 5, 6},
		{6, 5, 4, 3, 2, 1},
		{1, 1, 1, 1, 1, 1},
	})
	if err != nil {
		t.Fatalf("NewFloatMatrix failed: %v", err)
	}
	index := hnsw.New(testParams())
	if err := index.Build(data, core.MetricEuclidean); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	stats := index.Stats()
	if stats.Count != 3 || stats.Dimension != 6 || stats.Distance != "euclidean" {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestIndex_BuildRejectsMetric(t *testing.T) {
	data, _ := core.NewBinaryMatrix([][]byte{{1, 2}})
	index := hnsw.New(testParams())
	if err := index.Build(data, core.MetricEuclidean); !errors.Is(err, core.ErrMetricMismatch) {
		t.Fatalf("expected ErrMetricMismatch, got %v", err)
	}
}

func TestIndex_SearchEmpty(t *testing.T) {
	index := hnsw.New(testParams())
	if err := index.Build(&core.Matrix{}, core.MetricEuclidean); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	queries, _ := core.NewFloatMatrix([][]float32{{1, 2}})
	res, err := index.Search(queries, 2, core.SearchParams{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(res) != 1 || len(res[0]) != 0 {
		t.Errorf("expected one empty result, got %v", res)
	}
}

func TestIndex_SearchSelfMatchFloat(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	rows := make([][]float32, 200)
	for i := range rows {
		rows[i] = make([]float32, 8)
		for j := range rows[i] {
			rows[i][j] = rng.Float32()
		}
	}
	data, _ := core.NewFloatMatrix(rows)
	index := hnsw.New(testParams())
	if err := index.Build(data, core.MetricEuclidean); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	res, err := index.Search(data, 2, core.SearchParams{Ef: 200})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	hits := 0
	for i, neighbors := range res {
		if len(neighbors) != 2 {
			t.Fatalf("query %d: expected 2 neighbors, got %d", i, len(neighbors))
		}
		if neighbors[0].Distance > neighbors[1].Distance {
			t.Errorf("query %d: neighbors not sorted: %v", i, neighbors)
		}
		if neighbors[0].ID == i && neighbors[0].Distance == 0 {
			hits++
		}
	}
	// An ef as large as the data set reaches nearly every node.
	if hits < len(rows)*95/100 {
		t.Errorf("self match recall too low: %d/%d", hits, len(rows))
	}
}

func TestIndex_SearchBinaryExact(t *testing.T) {
	rows := [][]byte{{0x00, 0x00}, {0x0f, 0x00}, {0xff, 0x00}, {0xff, 0xff}}
	data, _ := core.NewBinaryMatrix(rows)
	index := hnsw.New(testParams())
	if err := index.Build(data, core.MetricHamming); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	queries, _ := core.NewBinaryMatrix([][]byte{{0x0f, 0x01}})
	res, err := index.Search(queries, 4, core.SearchParams{Ef: 1})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	got := res[0]
	if len(got) != 4 {
		t.Fatalf("expected all 4 rows, got %v", got)
	}
	want := []core.Neighbor{{ID: 1, Distance: 1}, {ID: 0, Distance: 5}, {ID: 2, Distance: 5}, {ID: 3, Distance: 11}}
	if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Distance < got[j].Distance }) {
		t.Errorf("neighbors not sorted: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("neighbor %d = %+v; want %+v", i, got[i], want[i])
		}
	}
}

func TestIndex_SearchDimensionMismatch(t *testing.T) {
	data, _ := core.NewFloatMatrix([][]float32{{1, 2, 3}})
	index := hnsw.New(testParams())
	if err := index.Build(data, core.MetricEuclidean); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	wrong, _ := core.NewFloatMatrix([][]float32{{1, 2}})
	if _, err := index.Search(wrong, 1, core.SearchParams{}); !errors.Is(err, core.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestIndex_RebuildReplacesGraph(t *testing.T) {
	first, _ := core.NewFloatMatrix([][]float32{{0, 0}, {1, 1}})
	second, _ := core.NewFloatMatrix([][]float32{{5, 5}, {6, 6}, {7, 7}})
	index := hnsw.New(testParams())
	if err := index.Build(first, core.MetricEuclidean); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := index.Build(second, core.MetricEuclidean); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if got := index.Stats().Count; got != 3 {
		t.Errorf("expected 3 rows after rebuild, got %d", got)
	}
	q, _ := core.NewFloatMatrix([][]float32{{7, 7}})
	res, err := index.Search(q, 1, core.SearchParams{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res[0][0].ID != 2 || res[0][0].Distance != 0 {
		t.Errorf("expected row 2 at distance 0, got %+v", res[0][0])
	}
}

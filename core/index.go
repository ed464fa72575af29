package core

import (
	"fmt"
	"strings"
)

// Index is an approximate nearest-neighbor index over a fixed set of descriptors.
// It is built once over a matrix and rebuilt from scratch when the set changes.
type Index interface {

	// Build indexes every row of data. Neighbor ids are row positions in data.
	Build(data *Matrix, metric Metric) error

	// Search returns, for each query row, up to k neighbors ordered by ascending distance.
	Search(queries *Matrix, k int, params SearchParams) ([][]Neighbor, error)

	// Stats returns metadata about the index, such as count and dimensionality.
	Stats() IndexStats
}

// Neighbor holds a neighbor's id and its computed distance.
type Neighbor struct {
	ID       int
	Distance float64
}

// Vote is the number of matched words an object contributed to.
type Vote struct {
	ObjectID int
	Votes    int
}

// IndexStats contains metadata about the index.
type IndexStats struct {
	Count     int    // total number of indexed vectors
	Dimension int    // dimensionality of vectors
	Distance  string // name of the distance metric
}

// Algorithm selects the index implementation.
type Algorithm int

const (
	// AlgorithmHNSW is a hierarchical navigable small world graph.
	AlgorithmHNSW Algorithm = iota
	// AlgorithmLinear is an exact brute-force scan.
	AlgorithmLinear
	// AlgorithmRPT is a random projection tree (float descriptors only).
	AlgorithmRPT
)

var algorithmNames = map[Algorithm]string{
	AlgorithmHNSW:   "hnsw",
	AlgorithmLinear: "linear",
	AlgorithmRPT:    "rpt",
}

func (a Algorithm) String() string {
	if s, ok := algorithmNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// ParseAlgorithm returns the algorithm with the given name.
func ParseAlgorithm(name string) (Algorithm, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for a, s := range algorithmNames {
		if s == name {
			return a, nil
		}
	}
	return AlgorithmHNSW, fmt.Errorf("unknown index algorithm %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	v, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// IndexParams configures index construction. Only the fields of the selected
// algorithm are read.
type IndexParams struct {
	Algorithm Algorithm `yaml:"algorithm"`
	Seed      int64     `yaml:"seed"` // 0 draws a seed from GetSeed

	// HNSW
	M              int `yaml:"m"`
	EfConstruction int `yaml:"ef_construction"`

	// RPT
	LeafCapacity         int     `yaml:"leaf_capacity"`
	CandidateProjections int     `yaml:"candidate_projections"`
	ParallelThreshold    int     `yaml:"parallel_threshold"`
	ProbeMargin          float64 `yaml:"probe_margin"`
}

// SearchParams configures a k-NN query.
type SearchParams struct {
	Ef int `yaml:"ef"` // HNSW candidate list size, raised to k when smaller
}

// DefaultIndexParams returns parameters suited to a few hundred thousand descriptors.
func DefaultIndexParams() IndexParams {
	return IndexParams{
		Algorithm:            AlgorithmHNSW,
		M:                    16,
		EfConstruction:       100,
		LeafCapacity:         10,
		CandidateProjections: 3,
		ParallelThreshold:    100,
		ProbeMargin:          0.15,
	}
}

// DefaultSearchParams returns the default query parameters.
func DefaultSearchParams() SearchParams {
	return SearchParams{Ef: 64}
}

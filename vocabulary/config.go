package vocabulary

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/patrikhermansson/visualwords/core"
)

// DefaultNNDRRatio is the nearest-neighbor distance ratio below which a descriptor matches a word.
const DefaultNNDRRatio = 0.6

// Config carries every tunable used by AddWords, Update and Search.
// It is a plain value; callers pass it explicitly on each call.
type Config struct {
	NNDRRatio    float64           `yaml:"nndr_ratio"`
	Metric       core.Metric       `yaml:"metric"`
	WTAK         int               `yaml:"wta_k"` // ORB WTA_K, selects hamming2 under MetricAuto when 3 or 4
	IndexParams  core.IndexParams  `yaml:"index"`
	SearchParams core.SearchParams `yaml:"search"`
}

// DefaultConfig returns the configuration used when nothing else is specified.
func DefaultConfig() Config {
	return Config{
		NNDRRatio:    DefaultNNDRRatio,
		Metric:       core.MetricAuto,
		WTAK:         2,
		IndexParams:  core.DefaultIndexParams(),
		SearchParams: core.DefaultSearchParams(),
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Fields missing from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the ratio and the parameters of the selected index algorithm.
func (c Config) Validate() error {
	if c.NNDRRatio <= 0 || c.NNDRRatio > 1 {
		return fmt.Errorf("nndr ratio must be in (0, 1], got %v", c.NNDRRatio)
	}
	if _, ok := map[core.Metric]bool{
		core.MetricAuto: true, core.MetricEuclidean: true, core.MetricHamming: true, core.MetricHamming2: true,
	}[c.Metric]; !ok {
		return fmt.Errorf("unknown metric %s", c.Metric)
	}
	if c.SearchParams.Ef < 0 {
		return fmt.Errorf("search ef must not be negative, got %d", c.SearchParams.Ef)
	}
	p := c.IndexParams
	switch p.Algorithm {
	case core.AlgorithmLinear:
	case core.AlgorithmHNSW:
		if p.M < 2 || p.EfConstruction < 1 {
			return fmt.Errorf("hnsw needs m >= 2 and ef_construction >= 1, got %d and %d", p.M, p.EfConstruction)
		}
	case core.AlgorithmRPT:
		if p.LeafCapacity < 1 || p.CandidateProjections < 1 || p.ProbeMargin < 0 {
			return fmt.Errorf("rpt needs leaf_capacity >= 1, candidate_projections >= 1 and probe_margin >= 0")
		}
	default:
		return fmt.Errorf("unknown index algorithm %s", p.Algorithm)
	}
	return nil
}

// metricFor resolves the configured metric against the descriptor type t.
func (c Config) metricFor(t core.ElemType) (core.Metric, error) {
	return c.Metric.Resolve(t, c.WTAK)
}

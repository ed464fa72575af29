package vocabulary

import (
	"fmt"
	"time"

	"github.com/patrikhermansson/visualwords/core"
	"github.com/patrikhermansson/visualwords/hnsw"
	"github.com/patrikhermansson/visualwords/linear"
	"github.com/patrikhermansson/visualwords/rpt"
	"github.com/rs/zerolog/log"
)

// newIndex returns an empty index for the configured algorithm.
func newIndex(params core.IndexParams) (core.Index, error) {
	switch params.Algorithm {
	case core.AlgorithmLinear:
		return linear.New(), nil
	case core.AlgorithmHNSW:
		return hnsw.New(params), nil
	case core.AlgorithmRPT:
		return rpt.New(params), nil
	default:
		return nil, fmt.Errorf("unknown index algorithm %s", params.Algorithm)
	}
}

// Update moves pending words into the indexed set and rebuilds the index over
// all of them. The rebuild is a full batch operation, so callers should add
// many batches between updates. Calling Update again without new words or a
// different configuration does nothing.
func (v *Vocabulary) Update(cfg Config) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	s := v.store
	if s.totalWords() == 0 {
		v.index, v.built = nil, buildKey{}
		return nil
	}
	metric, err := cfg.metricFor(s.elemType(s.committed))
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	merged := 0
	if !s.pending.Empty() {
		merged = s.pending.Rows()
		if err := s.appendCommitted(); err != nil {
			return fmt.Errorf("update: %w", err)
		}
	}
	if s.committed.Empty() {
		v.index, v.built = nil, buildKey{}
		return nil
	}

	key := buildKey{Metric: metric, Params: cfg.IndexParams}
	if merged == 0 && v.index != nil && v.built == key {
		log.Debug().Msg("Vocabulary index is up to date")
		return nil
	}
	if err := v.rebuild(key); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return nil
}

// rebuild replaces the index with a fresh one over the committed words.
func (v *Vocabulary) rebuild(key buildKey) error {
	// Release the old structure before building the new one.
	v.index, v.built = nil, buildKey{}

	idx, err := newIndex(key.Params)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := idx.Build(v.store.committed.View(), key.Metric); err != nil {
		return fmt.Errorf("build %s index: %w", key.Params.Algorithm, err)
	}
	v.index, v.built = idx, key
	log.Info().
		Str("algorithm", key.Params.Algorithm.String()).
		Str("metric", key.Metric.String()).
		Int("words", v.store.committed.Rows()).
		Dur("took", time.Since(start)).
		Msg("Rebuilt vocabulary index")
	return nil
}

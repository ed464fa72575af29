package vocabulary

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/patrikhermansson/visualwords/core"
	"github.com/rs/zerolog/log"
)

// snapshotVersion is bumped whenever the snapshot layout changes.
const snapshotVersion = 1

// snapshot is the serialized form of a Vocabulary.
type snapshot struct {
	Version        int
	Committed      *core.Matrix
	Pending        *core.Matrix
	PendingWordIDs []int
	WordToObjects  map[int][]int
	Indexed        bool     // an index was installed when saved
	Built          buildKey // settings of that index
}

// Save writes the vocabulary as a zstd-compressed gob stream.
func (v *Vocabulary) Save(w io.Writer) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create compressor: %w", err)
	}
	snap := snapshot{
		Version:        snapshotVersion,
		Committed:      v.store.committed,
		Pending:        v.store.pending,
		PendingWordIDs: v.store.pendingWordIDs,
		WordToObjects:  v.store.wordToObjects,
		Indexed:        v.index != nil,
		Built:          v.built,
	}
	if err := gob.NewEncoder(enc).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("failed to encode vocabulary: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush compressor: %w", err)
	}
	log.Debug().Msgf("Vocabulary saved with %d words", v.store.totalWords())
	return nil
}

// Load replaces the vocabulary with one written by Save. The index is
// rebuilt with the settings it was saved with. On error the vocabulary is
// left unchanged.
func (v *Vocabulary) Load(r io.Reader) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create decompressor: %w", err)
	}
	defer dec.Close()

	var snap snapshot
	if err := gob.NewDecoder(dec).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode vocabulary: %w", err)
	}
	s, err := snap.restore()
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	oldStore, oldIndex, oldBuilt := v.store, v.index, v.built
	v.store, v.index, v.built = s, nil, buildKey{}
	if snap.Indexed && !s.committed.Empty() {
		if err := v.rebuild(snap.Built); err != nil {
			v.store, v.index, v.built = oldStore, oldIndex, oldBuilt
			return fmt.Errorf("load: %w", err)
		}
	}
	log.Info().Msgf("Vocabulary loaded with %d words", s.totalWords())
	return nil
}

// restore checks a decoded snapshot and turns it into a store.
func (snap *snapshot) restore() (*store, error) {
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported vocabulary snapshot version %d", snap.Version)
	}
	s := newStore()
	if snap.Committed != nil {
		s.committed = snap.Committed
	}
	if snap.Pending != nil {
		s.pending = snap.Pending
	}
	if err := s.committed.Compatible(s.pending); err != nil {
		return nil, fmt.Errorf("corrupt vocabulary snapshot: %w", err)
	}
	if len(snap.PendingWordIDs) != s.pending.Rows() {
		return nil, errors.New("corrupt vocabulary snapshot: pending word ids do not match pending rows")
	}
	for i, id := range snap.PendingWordIDs {
		if id != s.committed.Rows()+i {
			return nil, fmt.Errorf("corrupt vocabulary snapshot: pending row %d has word id %d", i, id)
		}
	}
	total := s.totalWords()
	for word := range snap.WordToObjects {
		if word < 0 || word >= total {
			return nil, fmt.Errorf("corrupt vocabulary snapshot: word %d out of range [0,%d)", word, total)
		}
	}
	s.pendingWordIDs = snap.PendingWordIDs
	if snap.WordToObjects != nil {
		s.wordToObjects = snap.WordToObjects
	}
	s.rebuildObjectSets()
	return s, nil
}

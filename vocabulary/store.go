package vocabulary

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/patrikhermansson/visualwords/core"
)

// store holds the descriptors of every word and the objects that contributed to them.
// It has no search logic and no locking of its own.
type store struct {
	committed      *core.Matrix              // rows covered by the index
	pending        *core.Matrix              // rows added since the last rebuild
	pendingWordIDs []int                     // word id of each pending row
	wordToObjects  map[int][]int             // append-only, duplicates count observations
	objectSets     map[int]*roaring64.Bitmap // distinct objects of each word
}

func newStore() *store {
	s := &store{}
	s.clear()
	return s
}

func (s *store) clear() {
	s.committed = &core.Matrix{}
	s.pending = &core.Matrix{}
	s.pendingWordIDs = nil
	s.wordToObjects = make(map[int][]int)
	s.objectSets = make(map[int]*roaring64.Bitmap)
}

// totalWords is the id the next new word receives.
func (s *store) totalWords() int {
	return s.committed.Rows() + s.pending.Rows()
}

// compatible checks descriptors against whatever the store already holds.
func (s *store) compatible(descriptors *core.Matrix) error {
	if err := s.committed.Compatible(descriptors); err != nil {
		return err
	}
	return s.pending.Compatible(descriptors)
}

// elemType is the element type of stored descriptors, or of d when the store is empty.
func (s *store) elemType(d *core.Matrix) core.ElemType {
	switch {
	case !s.committed.Empty():
		return s.committed.Type()
	case !s.pending.Empty():
		return s.pending.Type()
	default:
		return d.Type()
	}
}

// appendPending adds one descriptor as word wordID.
func (s *store) appendPending(row core.Row, wordID int) error {
	if err := s.pending.AppendRow(row); err != nil {
		return err
	}
	s.pendingWordIDs = append(s.pendingWordIDs, wordID)
	return nil
}

// appendCommitted moves all pending rows to the end of committed.
// Word ids stay valid since each pending row's id equals its final committed row.
func (s *store) appendCommitted() error {
	if err := s.committed.Append(s.pending); err != nil {
		return err
	}
	s.pending = &core.Matrix{}
	s.pendingWordIDs = nil
	return nil
}

// row returns the descriptor of a word.
func (s *store) row(wordID int) (core.Row, bool) {
	if wordID < 0 || wordID >= s.totalWords() {
		return core.Row{}, false
	}
	if wordID < s.committed.Rows() {
		return s.committed.Row(wordID), true
	}
	return s.pending.Row(wordID - s.committed.Rows()), true
}

// associate records that objectID contributed an observation to wordID.
func (s *store) associate(wordID, objectID int) {
	s.wordToObjects[wordID] = append(s.wordToObjects[wordID], objectID)
	set, ok := s.objectSets[wordID]
	if !ok {
		set = roaring64.New()
		s.objectSets[wordID] = set
	}
	set.Add(uint64(int64(objectID)))
}

// distinctObjects returns the distinct objects of a word in ascending order.
func (s *store) distinctObjects(wordID int) []int {
	set, ok := s.objectSets[wordID]
	if !ok {
		return nil
	}
	raw := set.ToArray()
	out := make([]int, len(raw))
	for i, v := range raw {
		out[i] = int(int64(v))
	}
	// Negative ids sort after positive ones as uint64.
	sort.Ints(out)
	return out
}

// rebuildObjectSets recomputes the distinct object sets from wordToObjects.
func (s *store) rebuildObjectSets() {
	s.objectSets = make(map[int]*roaring64.Bitmap, len(s.wordToObjects))
	for word, objects := range s.wordToObjects {
		set := roaring64.New()
		for _, o := range objects {
			set.Add(uint64(int64(o)))
		}
		s.objectSets[word] = set
	}
}

// associations returns the total number of (word, object) entries.
func (s *store) associations() int {
	n := 0
	for _, objects := range s.wordToObjects {
		n += len(objects)
	}
	return n
}

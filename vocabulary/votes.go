package vocabulary

import (
	"sort"

	"github.com/patrikhermansson/visualwords/core"
)

// Objects returns the objects that contributed to a word, one entry per observation.
func (v *Vocabulary) Objects(wordID int) []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]int(nil), v.store.wordToObjects[wordID]...)
}

// DistinctObjects returns the distinct objects of a word in ascending order.
func (v *Vocabulary) DistinctObjects(wordID int) []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.store.distinctObjects(wordID)
}

// WordToObjects returns a copy of the whole word to objects association.
func (v *Vocabulary) WordToObjects() map[int][]int {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[int][]int, len(v.store.wordToObjects))
	for w, objects := range v.store.wordToObjects {
		out[w] = append([]int(nil), objects...)
	}
	return out
}

// Vote attributes search results to objects. Each result whose two nearest
// words pass the distance ratio test gives one vote to every distinct object
// of its nearest word. Votes are sorted by count, then by object id.
func (v *Vocabulary) Vote(results [][]core.Neighbor, ratio float64) []core.Vote {
	v.mu.Lock()
	defer v.mu.Unlock()

	tally := make(map[int]int)
	for _, neighbors := range results {
		if len(neighbors) < 2 || neighbors[0].Distance > ratio*neighbors[1].Distance {
			continue
		}
		for _, object := range v.store.distinctObjects(neighbors[0].ID) {
			tally[object]++
		}
	}
	votes := make([]core.Vote, 0, len(tally))
	for object, n := range tally {
		votes = append(votes, core.Vote{ObjectID: object, Votes: n})
	}
	sort.Slice(votes, func(i, j int) bool {
		if votes[i].Votes != votes[j].Votes {
			return votes[i].Votes > votes[j].Votes
		}
		return votes[i].ObjectID < votes[j].ObjectID
	})
	return votes
}

package rpt

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/patrikhermansson/visualwords/core"
	"github.com/rs/zerolog/log"
)

// treeNode represents a node in the random projection tree.
// It holds the projection, threshold, and pointers to left/right children.
// If isLeaf is true, the node holds a list of row ids.
type treeNode struct {
	isLeaf     bool      // true if this node is a leaf
	points     []int     // rows held by the leaf
	projection []float32 // projection vector used for splitting at this node
	threshold  float64   // split threshold (median value)
	left       *treeNode // left child node
	right      *treeNode // right child node
}

// Index is a random projection tree over the rows of a float descriptor matrix.
type Index struct {
	mu                   sync.RWMutex
	data                 *core.Matrix
	metric               core.Metric
	tree                 *treeNode
	seed                 int64
	LeafCapacity         int     // maximum number of points in a leaf
	CandidateProjections int     // number of random projections to try when splitting
	ParallelThreshold    int     // threshold to trigger parallel tree building
	ProbeMargin          float64 // margin for multi-probe search
}

// New creates an empty RPT index from the RPT fields of params.
func New(params core.IndexParams) *Index {
	return &Index{
		data:                 &core.Matrix{},
		seed:                 params.Seed,
		LeafCapacity:         params.LeafCapacity,
		CandidateProjections: params.CandidateProjections,
		ParallelThreshold:    params.ParallelThreshold,
		ProbeMargin:          params.ProbeMargin,
	}
}

// builder carries the immutable inputs of a tree build.
type builder struct {
	data                 *core.Matrix
	leafCapacity         int
	candidateProjections int
	parallelThreshold    int
}

// split is one candidate partition of a node's rows.
type split struct {
	proj      []float32 // random projection vector
	threshold float64   // median threshold along projection
	leftIDs   []int     // rows going to left child
	rightIDs  []int     // rows going to right child
	imbalance int       // difference in count between left and right sets
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// trySplit draws one random projection and splits ids at its jittered median.
func (b *builder) trySplit(ids []int, rnd *rand.Rand) split {
	dimension := b.data.Cols()
	proj := make([]float32, dimension)
	var norm float64
	for i := range proj {
		v := rnd.Float32()*2 - 1
		proj[i] = v
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm < 1e-8 {
		norm = 1
	}
	for i := range proj {
		proj[i] /= float32(norm)
	}

	type pair struct {
		id  int
		dot float64
	}
	pairs := make([]pair, len(ids))
	for i, id := range ids {
		pairs[i] = pair{id, dot(b.data.Row(id).Float, proj)}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].dot < pairs[j].dot
	})
	mid := len(pairs) / 2

	// Jitter scales with the spread around a random row.
	x := b.data.Row(ids[rnd.Intn(len(ids))]).Float
	var maxDist float64
	for _, id := range ids {
		if d := core.Euclidean(x, b.data.Row(id).Float); d > maxDist {
			maxDist = d
		}
	}
	jitter := (rnd.Float64()*2 - 1) * 6 * maxDist / math.Sqrt(float64(dimension)) / float64(len(ids))
	threshold := pairs[mid].dot + jitter

	var leftIDs, rightIDs []int
	for _, p := range pairs {
		if p.dot < threshold {
			leftIDs = append(leftIDs, p.id)
		} else {
			rightIDs = append(rightIDs, p.id)
		}
	}
	// Fallback: if one side is empty, split evenly.
	if len(leftIDs) == 0 || len(rightIDs) == 0 {
		leftIDs, rightIDs = leftIDs[:0], rightIDs[:0]
		for i, p := range pairs {
			if i < mid {
				leftIDs = append(leftIDs, p.id)
			} else {
				rightIDs = append(rightIDs, p.id)
			}
		}
		threshold = pairs[mid].dot
	}
	return split{
		proj:      proj,
		threshold: threshold,
		leftIDs:   leftIDs,
		rightIDs:  rightIDs,
		imbalance: int(math.Abs(float64(len(leftIDs) - len(rightIDs)))),
	}
}

// build constructs a subtree recursively using random projections.
func (b *builder) build(ids []int, rnd *rand.Rand) *treeNode {
	if len(ids) <= b.leafCapacity {
		return &treeNode{isLeaf: true, points: ids}
	}

	var best *split
	for c := 0; c < b.candidateProjections; c++ {
		cand := b.trySplit(ids, rnd)
		if best == nil || cand.imbalance < best.imbalance {
			best = &cand
		}
	}

	var leftChild, rightChild *treeNode
	if len(ids) > b.parallelThreshold {
		var wg sync.WaitGroup
		wg.Add(2)
		leftRnd := rand.New(rand.NewSource(rnd.Int63()))
		rightRnd := rand.New(rand.NewSource(rnd.Int63()))
		go func() {
			defer wg.Done()
			leftChild = b.build(best.leftIDs, leftRnd)
		}()
		go func() {
			defer wg.Done()
			rightChild = b.build(best.rightIDs, rightRnd)
		}()
		wg.Wait()
	} else {
		leftChild = b.build(best.leftIDs, rnd)
		rightChild = b.build(best.rightIDs, rnd)
	}

	return &treeNode{
		projection: best.proj,
		threshold:  best.threshold,
		left:       leftChild,
		right:      rightChild,
	}
}

// Build replaces the tree with one over every row of data.
func (r *Index) Build(data *core.Matrix, metric core.Metric) error {
	if !data.Empty() && data.Type() != core.Float32 {
		return fmt.Errorf("rpt: random projections need float descriptors, got %s: %w",
			data.Type(), core.ErrMetricMismatch)
	}
	if metric != core.MetricEuclidean {
		return fmt.Errorf("rpt: %s: %w", metric, core.ErrMetricMismatch)
	}
	if r.LeafCapacity < 1 || r.CandidateProjections < 1 {
		return fmt.Errorf("rpt: leaf capacity and candidate projections must be positive, got %d and %d",
			r.LeafCapacity, r.CandidateProjections)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data = data
	r.metric = metric
	r.tree = nil
	if data.Empty() {
		return nil
	}
	ids := make([]int, data.Rows())
	for i := range ids {
		ids[i] = i
	}
	rnd := rand.New(rand.NewSource(core.SeedOr(r.seed)))
	rnd.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	b := &builder{
		data:                 data,
		leafCapacity:         r.LeafCapacity,
		candidateProjections: r.CandidateProjections,
		parallelThreshold:    r.ParallelThreshold,
	}
	r.tree = b.build(ids, rnd)
	log.Debug().Msgf("Built random projection tree over %d rows", data.Rows())
	return nil
}

// probe collects rows from leaves reachable from node. Both branches are
// followed when the query projects within margin of the threshold.
func probe(node *treeNode, query []float32, margin float64, out []int) []int {
	if node == nil {
		return out
	}
	if node.isLeaf {
		return append(out, node.points...)
	}
	d := dot(query, node.projection)
	if math.Abs(d-node.threshold) < margin {
		out = probe(node.left, query, margin, out)
		return probe(node.right, query, margin, out)
	} else if d < node.threshold {
		return probe(node.left, query, margin, out)
	}
	return probe(node.right, query, margin, out)
}

// Search returns the k nearest neighbors found for each query row.
func (r *Index) Search(queries *core.Matrix, k int, _ core.SearchParams) ([][]core.Neighbor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.data.Compatible(queries); err != nil {
		return nil, fmt.Errorf("rpt: %w", err)
	}
	results := make([][]core.Neighbor, queries.Rows())
	if r.tree == nil || k <= 0 {
		return results, nil
	}
	for i := range results {
		results[i] = r.searchOne(queries.Row(i).Float, k)
	}
	return results, nil
}

func (r *Index) searchOne(query []float32, k int) []core.Neighbor {
	ids := probe(r.tree, query, r.ProbeMargin, nil)
	// If not enough candidates, try with a larger margin.
	if len(ids) < k*2 {
		ids = probe(r.tree, query, r.ProbeMargin*2, ids)
	}
	seen := make(map[int]struct{}, len(ids))
	neighbors := make([]core.Neighbor, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		neighbors = append(neighbors, core.Neighbor{ID: id, Distance: core.Euclidean(query, r.data.Row(id).Float)})
	}
	// If still not enough, add the remaining rows.
	if len(neighbors) < k {
		for id := 0; id < r.data.Rows(); id++ {
			if _, ok := seen[id]; !ok {
				neighbors = append(neighbors, core.Neighbor{ID: id, Distance: core.Euclidean(query, r.data.Row(id).Float)})
			}
		}
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance == neighbors[j].Distance {
			return neighbors[i].ID < neighbors[j].ID
		}
		return neighbors[i].Distance < neighbors[j].Distance
	})
	if k > len(neighbors) {
		k = len(neighbors)
	}
	return neighbors[:k:k]
}

// Stats returns some basic statistics about the index.
func (r *Index) Stats() core.IndexStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return core.IndexStats{
		Count:     r.data.Rows(),
		Dimension: r.data.Cols(),
		Distance:  r.metric.String(),
	}
}

// Check that Index implements the core.Index interface.
var _ core.Index = (*Index)(nil)

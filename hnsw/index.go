package hnsw

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/patrikhermansson/visualwords/core"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// maxLevelCap is the upper bound for a node's level.
const maxLevelCap = 32

// defaultEf is the search candidate list size used when none is configured.
const defaultEf = 64

// candidate represents a potential neighbor with its distance.
type candidate struct {
	node *Node   // reference to the candidate node
	dist float64 // distance to the query vector
}

// candidateMinHeap implements a min-heap for candidates based on their distance.
type candidateMinHeap []candidate

func (h candidateMinHeap) Len() int { return len(h) }
func (h candidateMinHeap) Less(i, j int) bool {
	if h[i].dist == h[j].dist {
		return h[i].node.ID < h[j].node.ID
	}
	return h[i].dist < h[j].dist
}
func (h candidateMinHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateMinHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *candidateMinHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// candidateMaxHeap implements a max-heap for candidates based on their distance.
type candidateMaxHeap []candidate

func (h candidateMaxHeap) Len() int { return len(h) }
func (h candidateMaxHeap) Less(i, j int) bool {
	if h[i].dist == h[j].dist {
		return h[i].node.ID > h[j].node.ID
	}
	return h[i].dist > h[j].dist
}
func (h candidateMaxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateMaxHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *candidateMaxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Node is one descriptor row in the graph along with its links.
type Node struct {
	ID    int             // row of the descriptor in the indexed matrix
	Level int             // node level in the hierarchy
	Links map[int][]*Node // links to neighbors at each level
}

// Index is a hierarchical navigable small world graph over the rows of a descriptor matrix.
type Index struct {
	mu             sync.RWMutex
	data           *core.Matrix
	metric         core.Metric
	nodes          []*Node
	entryPoint     *Node
	maxLevel       int
	m              int
	efConstruction int
	seed           int64
	rnd            *rand.Rand
}

// New creates an empty HNSW index. M and EfConstruction are read from params.
func New(params core.IndexParams) *Index {
	log.Debug().Msgf("Creating new HNSW index with M=%d, efConstruction=%d",
		params.M, params.EfConstruction)
	return &Index{
		data:           &core.Matrix{},
		maxLevel:       -1,
		m:              params.M,
		efConstruction: params.EfConstruction,
		seed:           params.Seed,
	}
}

// randomLevel computes a random level for a new node based on an exponential distribution.
func (h *Index) randomLevel() int {
	if h.m <= 1 {
		return 0
	}
	level := int(-math.Log(1-h.rnd.Float64()) / math.Log(float64(h.m)))
	if level > maxLevelCap {
		level = maxLevelCap
	}
	return level
}

// distance compares a query with an indexed node.
func (h *Index) distance(query core.Row, n *Node) float64 {
	return h.metric.Distance(query, h.data.Row(n.ID))
}

// lessCandidate orders candidates by distance and then by row.
func lessCandidate(a, b candidate) bool {
	if a.dist == b.dist {
		return a.node.ID < b.node.ID
	}
	return a.dist < b.dist
}

// selectM chooses the top M candidates based on distance.
func selectM(candidates []candidate, M int) []candidate {
	sort.Slice(candidates, func(i, j int) bool { return lessCandidate(candidates[i], candidates[j]) })
	if len(candidates) > M {
		return candidates[:M]
	}
	return candidates
}

// trimNeighborLinks reduces a node's neighbors at a level to the best M.
func (h *Index) trimNeighborLinks(n *Node, level int) {
	self := h.data.Row(n.ID)
	links := n.Links[level]
	cands := make([]candidate, len(links))
	for i, nb := range links {
		cands[i] = candidate{nb, h.distance(self, nb)}
	}
	cands = selectM(cands, h.m)
	trimmed := make([]*Node, len(cands))
	for i, c := range cands {
		trimmed[i] = c.node
	}
	n.Links[level] = trimmed
}

// greedyDescend walks from the entry point down to level stop, always moving to a closer neighbor.
func (h *Index) greedyDescend(query core.Row, stop int) *Node {
	current := h.entryPoint
	currentDist := h.distance(query, current)
	for L := h.maxLevel; L > stop; L-- {
		changed := true
		for changed {
			changed = false
			for _, neighbor := range current.Links[L] {
				if d := h.distance(query, neighbor); d < currentDist {
					current, currentDist = neighbor, d
					changed = true
				}
			}
		}
	}
	return current
}

// insertNode adds a node into the graph, updating links as needed.
func (h *Index) insertNode(n *Node) {
	if h.entryPoint == nil {
		h.entryPoint = n
		h.maxLevel = n.Level
		return
	}
	query := h.data.Row(n.ID)
	current := h.greedyDescend(query, n.Level)
	for L := minInt(n.Level, h.maxLevel); L >= 0; L-- {
		candList := h.searchLayer(query, current, L, h.efConstruction)
		selected := selectM(append([]candidate(nil), candList...), h.m)
		n.Links[L] = make([]*Node, len(selected))
		for i, cand := range selected {
			n.Links[L][i] = cand.node
		}
		for _, neighbor := range n.Links[L] {
			neighbor.Links[L] = append(neighbor.Links[L], n)
			if len(neighbor.Links[L]) > h.m {
				h.trimNeighborLinks(neighbor, L)
			}
		}
		if len(candList) > 0 {
			current = candList[0].node
		}
	}
	if n.Level > h.maxLevel {
		h.entryPoint = n
		h.maxLevel = n.Level
	}
}

// searchLayer performs a best-first search in the graph at a given level.
func (h *Index) searchLayer(query core.Row, entrypoint *Node, level int, ef int) []candidate {
	visited := map[int]bool{entrypoint.ID: true}
	d0 := h.distance(query, entrypoint)
	candQueue := candidateMinHeap{{entrypoint, d0}}
	resultQueue := candidateMaxHeap{{entrypoint, d0}}
	for candQueue.Len() > 0 {
		current := candQueue[0]
		if current.dist > resultQueue[0].dist && resultQueue.Len() >= ef {
			break
		}
		heap.Pop(&candQueue)
		for _, neighbor := range current.node.Links[level] {
			if visited[neighbor.ID] {
				continue
			}
			visited[neighbor.ID] = true
			d := h.distance(query, neighbor)
			if resultQueue.Len() < ef || d < resultQueue[0].dist {
				newCand := candidate{neighbor, d}
				heap.Push(&candQueue, newCand)
				heap.Push(&resultQueue, newCand)
				if resultQueue.Len() > ef {
					heap.Pop(&resultQueue)
				}
			}
		}
	}
	results := make([]candidate, resultQueue.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(&resultQueue).(candidate)
	}
	return results
}

// Build replaces the graph with one over every row of data.
func (h *Index) Build(data *core.Matrix, metric core.Metric) error {
	if !data.Empty() && !metric.Supports(data.Type()) {
		return fmt.Errorf("hnsw: %s on %s descriptors: %w", metric, data.Type(), core.ErrMetricMismatch)
	}
	if h.m < 2 {
		return fmt.Errorf("hnsw: M must be at least 2, got %d", h.m)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	h.data = data
	h.metric = metric
	h.nodes = make([]*Node, data.Rows())
	h.entryPoint = nil
	h.maxLevel = -1
	h.rnd = rand.New(rand.NewSource(core.SeedOr(h.seed)))
	if h.efConstruction < h.m {
		h.efConstruction = h.m
	}
	for id := range h.nodes {
		n := &Node{ID: id, Level: h.randomLevel(), Links: make(map[int][]*Node)}
		h.nodes[id] = n
		h.insertNode(n)
	}
	log.Debug().Msgf("Built HNSW graph over %d rows (max level %d) in %s",
		len(h.nodes), h.maxLevel, time.Since(start))
	return nil
}

// Search finds the k nearest neighbors of every query row.
// Rows are searched concurrently; the call returns once all are done.
func (h *Index) Search(queries *core.Matrix, k int, params core.SearchParams) ([][]core.Neighbor, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if err := h.data.Compatible(queries); err != nil {
		return nil, fmt.Errorf("hnsw: %w", err)
	}
	results := make([][]core.Neighbor, queries.Rows())
	if h.entryPoint == nil || k <= 0 {
		return results, nil
	}
	ef := params.Ef
	if ef <= 0 {
		ef = defaultEf
	}
	if ef < k {
		ef = k
	}

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i := range results {
		g.Go(func() error {
			results[i] = h.searchOne(queries.Row(i), k, ef)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// searchOne runs a single query.
func (h *Index) searchOne(query core.Row, k, ef int) []core.Neighbor {
	current := h.greedyDescend(query, 0)
	candidates := h.searchLayer(query, current, 0, ef)
	if len(candidates) < k && len(candidates) < len(h.nodes) {
		// The graph did not reach enough nodes; fall back to a scan of the rest.
		seen := make(map[int]bool, len(candidates))
		for _, c := range candidates {
			seen[c.node.ID] = true
		}
		for _, n := range h.nodes {
			if !seen[n.ID] {
				candidates = append(candidates, candidate{n, h.distance(query, n)})
			}
		}
		sort.Slice(candidates, func(i, j int) bool { return lessCandidate(candidates[i], candidates[j]) })
	}
	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]core.Neighbor, k)
	for i := 0; i < k; i++ {
		out[i] = core.Neighbor{ID: candidates[i].node.ID, Distance: candidates[i].dist}
	}
	return out
}

// Stats returns simple statistics about the index.
func (h *Index) Stats() core.IndexStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return core.IndexStats{
		Count:     len(h.nodes),
		Dimension: h.data.Cols(),
		Distance:  h.metric.String(),
	}
}

// minInt returns the smaller of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Check interface compliance at compile time.
var _ core.Index = (*Index)(nil)

package pathfind

import (
	"github.com/annel0/voxel-world/internal/world"
)

// searchNode узел A* над графом зон
type searchNode struct {
	area   world.WorldArea
	info   world.SlabArea
	g      float64
	f      float64
	parent *searchNode
	entry  world.GraphEdge // ребро, по которому пришли из parent
	index  int
	closed bool
}

// nodeHeap очередь с приоритетом по f
type nodeHeap []*searchNode

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].f == h[j].f {
		// при равенстве раньше тот, кто ближе к цели
		return h[i].f-h[i].g < h[j].f-h[j].g
	}
	return h[i].f < h[j].f
}

func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*searchNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[:n-1]
	return node
}

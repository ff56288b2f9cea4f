package world

import (
	"fmt"
)

// WorldArea глобально уникальный идентификатор зоны навигации
type WorldArea struct {
	Chunk ChunkLocation
	Slab  SlabIndex
	Slice LocalSliceIndex
	Index SliceAreaIndex
}

// NewWorldArea собирает идентификатор из слэба и ключа зоны
func NewWorldArea(loc SlabLocation, key SlabAreaKey) WorldArea {
	return WorldArea{Chunk: loc.Chunk, Slab: loc.Slab, Slice: key.Slice, Index: key.Index}
}

func (a WorldArea) SlabLocation() SlabLocation {
	return SlabLocation{Chunk: a.Chunk, Slab: a.Slab}
}

func (a WorldArea) Key() SlabAreaKey {
	return SlabAreaKey{Slice: a.Slice, Index: a.Index}
}

// GlobalSlice мировая высота среза зоны
func (a WorldArea) GlobalSlice() GlobalSliceIndex {
	return a.Slab.Slice(a.Slice)
}

func (a WorldArea) String() string {
	return fmt.Sprintf("%s#%d:%d:%d", a.Chunk, a.Slab, a.Slice, a.Index)
}

// NodeID стабильный идентификатор узла графа мира
type NodeID uint32

// GraphEdge ребро, ориентированное от запрошенного узла
type GraphEdge struct {
	To        WorldArea
	Cost      EdgeCost
	Clearance uint8
	InterSlab bool
}

type graphEdge struct {
	to        NodeID
	cost      EdgeCost
	clearance uint8
	inter     bool
}

type graphNode struct {
	area  WorldArea
	alive bool
	edges []graphEdge
}

type slabPair struct {
	lo, hi SlabLocation
}

func makeSlabPair(a, b SlabLocation) slabPair {
	if b.Less(a) {
		a, b = b, a
	}
	return slabPair{lo: a, hi: b}
}

type interEdge struct {
	from, to  NodeID
	cost      EdgeCost
	clearance uint8
}

// WorldGraph объединение графов всех слэбов плюс рёбра между слэбами.
// Узлы имеют стабильные идентификаторы, граф изменяется без полной перестройки.
// Не потокобезопасен: изменяется только под записью World.
type WorldGraph struct {
	ids    map[WorldArea]NodeID
	nodes  []graphNode
	free   []NodeID
	bySlab map[SlabLocation]map[SlabAreaKey]NodeID
	pairs  map[slabPair][]interEdge
	edges  int
}

// NewWorldGraph создаёт пустой граф
func NewWorldGraph() *WorldGraph {
	return &WorldGraph{
		ids:    make(map[WorldArea]NodeID),
		bySlab: make(map[SlabLocation]map[SlabAreaKey]NodeID),
		pairs:  make(map[slabPair][]interEdge),
	}
}

// NodeCount число живых узлов
func (g *WorldGraph) NodeCount() int {
	return len(g.ids)
}

// EdgeCount число неориентированных рёбер
func (g *WorldGraph) EdgeCount() int {
	return g.edges
}

// Contains есть ли зона в графе
func (g *WorldGraph) Contains(area WorldArea) bool {
	_, ok := g.ids[area]
	return ok
}

// Node возвращает идентификатор узла зоны
func (g *WorldGraph) Node(area WorldArea) (NodeID, bool) {
	id, ok := g.ids[area]
	return id, ok
}

// Area возвращает зону по идентификатору узла
func (g *WorldGraph) Area(id NodeID) (WorldArea, bool) {
	if int(id) >= len(g.nodes) || !g.nodes[id].alive {
		return WorldArea{}, false
	}
	return g.nodes[id].area, true
}

// SlabAreas все зоны слэба, присутствующие в графе
func (g *WorldGraph) SlabAreas(slab SlabLocation) []WorldArea {
	nodes := g.bySlab[slab]
	out := make([]WorldArea, 0, len(nodes))
	for key := range nodes {
		out = append(out, NewWorldArea(slab, key))
	}
	return out
}

// ForEachNeighbour обходит рёбра зоны. Возвращает false, если зоны нет в графе.
func (g *WorldGraph) ForEachNeighbour(area WorldArea, fn func(GraphEdge)) bool {
	id, ok := g.ids[area]
	if !ok {
		return false
	}
	for _, e := range g.nodes[id].edges {
		fn(GraphEdge{To: g.nodes[e.to].area, Cost: e.cost, Clearance: e.clearance, InterSlab: e.inter})
	}
	return true
}

// Neighbours рёбра зоны, ориентированные от неё
func (g *WorldGraph) Neighbours(area WorldArea) ([]GraphEdge, bool) {
	var out []GraphEdge
	ok := g.ForEachNeighbour(area, func(e GraphEdge) {
		out = append(out, e)
	})
	return out, ok
}

// Absorb импортирует граф слэба: удаляет исчезнувшие узлы со всеми рёбрами,
// заменяет внутренние рёбра и добавляет новые узлы. Рёбра между слэбами у
// сохранившихся узлов остаются до следующей сшивки.
func (g *WorldGraph) Absorb(slab SlabLocation, sg *SlabNavGraph) {
	existing := g.bySlab[slab]
	if existing == nil {
		existing = make(map[SlabAreaKey]NodeID, len(sg.Nodes()))
		g.bySlab[slab] = existing
	}

	present := make(map[SlabAreaKey]struct{}, len(sg.Nodes()))
	for _, a := range sg.Nodes() {
		present[a.Key()] = struct{}{}
	}

	for key, id := range existing {
		if _, ok := present[key]; !ok {
			g.removeNode(id)
			delete(existing, key)
		}
	}

	for _, id := range existing {
		node := &g.nodes[id]
		kept := node.edges[:0]
		for _, e := range node.edges {
			if e.inter {
				kept = append(kept, e)
				continue
			}
			if id < e.to {
				g.edges--
			}
		}
		node.edges = kept
	}

	for key := range present {
		if _, ok := existing[key]; ok {
			continue
		}
		existing[key] = g.addNode(NewWorldArea(slab, key))
	}

	for _, e := range sg.Edges() {
		from, ok1 := existing[e.From]
		to, ok2 := existing[e.To]
		if !ok1 || !ok2 {
			continue
		}
		g.link(from, to, e.Cost, e.Clearance, false)
	}

	if len(existing) == 0 {
		delete(g.bySlab, slab)
	}
}

// RemoveSlab удаляет все узлы слэба
func (g *WorldGraph) RemoveSlab(slab SlabLocation) {
	for _, id := range g.bySlab[slab] {
		g.removeNode(id)
	}
	delete(g.bySlab, slab)
}

// AddInterSlabEdges добавляет рёбра между слэбами a и b. Рёбра с
// отсутствующими в графе концами пропускаются. Возвращает число добавленных.
func (g *WorldGraph) AddInterSlabEdges(a, b SlabLocation, edges []InterSlabEdge) int {
	pair := makeSlabPair(a, b)
	added := 0
	for _, e := range edges {
		from, ok1 := g.ids[e.From]
		to, ok2 := g.ids[e.To]
		if !ok1 || !ok2 || g.hasEdge(from, to) {
			continue
		}
		g.link(from, to, e.Cost, e.Clearance, true)
		g.pairs[pair] = append(g.pairs[pair], interEdge{from: from, to: to, cost: e.Cost, clearance: e.Clearance})
		added++
	}
	return added
}

// RemoveInterSlabEdges удаляет все рёбра между слэбами a и b
func (g *WorldGraph) RemoveInterSlabEdges(a, b SlabLocation) int {
	pair := makeSlabPair(a, b)
	list := g.pairs[pair]
	for _, e := range list {
		g.unlinkOne(e.from, e.to)
		g.unlinkOne(e.to, e.from)
		g.edges--
	}
	delete(g.pairs, pair)
	return len(list)
}

// ReplaceInterSlabEdges атомарно заменяет набор рёбер между a и b
func (g *WorldGraph) ReplaceInterSlabEdges(a, b SlabLocation, edges []InterSlabEdge) int {
	g.RemoveInterSlabEdges(a, b)
	return g.AddInterSlabEdges(a, b, edges)
}

// InterSlabEdges текущие рёбра между a и b
func (g *WorldGraph) InterSlabEdges(a, b SlabLocation) []InterSlabEdge {
	list := g.pairs[makeSlabPair(a, b)]
	out := make([]InterSlabEdge, 0, len(list))
	for _, e := range list {
		out = append(out, InterSlabEdge{
			From: g.nodes[e.from].area, To: g.nodes[e.to].area,
			Cost: e.cost, Clearance: e.clearance,
		})
	}
	return out
}

func (g *WorldGraph) addNode(area WorldArea) NodeID {
	var id NodeID
	if n := len(g.free); n > 0 {
		id = g.free[n-1]
		g.free = g.free[:n-1]
		g.nodes[id] = graphNode{area: area, alive: true}
	} else {
		id = NodeID(len(g.nodes))
		g.nodes = append(g.nodes, graphNode{area: area, alive: true})
	}
	g.ids[area] = id
	return id
}

func (g *WorldGraph) removeNode(id NodeID) {
	node := &g.nodes[id]
	if !node.alive {
		return
	}
	slab := node.area.SlabLocation()
	for _, e := range node.edges {
		g.unlinkOne(e.to, id)
		g.edges--
		if e.inter {
			pair := makeSlabPair(slab, g.nodes[e.to].area.SlabLocation())
			g.dropPairEdges(pair, id)
		}
	}
	delete(g.ids, node.area)
	*node = graphNode{}
	g.free = append(g.free, id)
}

func (g *WorldGraph) dropPairEdges(pair slabPair, id NodeID) {
	list := g.pairs[pair]
	kept := list[:0]
	for _, e := range list {
		if e.from != id && e.to != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(g.pairs, pair)
		return
	}
	g.pairs[pair] = kept
}

func (g *WorldGraph) link(from, to NodeID, cost EdgeCost, clearance uint8, inter bool) {
	g.nodes[from].edges = append(g.nodes[from].edges, graphEdge{to: to, cost: cost, clearance: clearance, inter: inter})
	g.nodes[to].edges = append(g.nodes[to].edges, graphEdge{to: from, cost: cost.Opposite(), clearance: clearance, inter: inter})
	g.edges++
}

func (g *WorldGraph) unlinkOne(from, to NodeID) {
	edges := g.nodes[from].edges
	for i, e := range edges {
		if e.to == to {
			edges[i] = edges[len(edges)-1]
			g.nodes[from].edges = edges[:len(edges)-1]
			return
		}
	}
}

func (g *WorldGraph) hasEdge(from, to NodeID) bool {
	for _, e := range g.nodes[from].edges {
		if e.to == to {
			return true
		}
	}
	return false
}

package world

import (
	"sort"
)

// SlabData слот слэба в чанке: блоки, производные данные и стадия загрузки
type SlabData struct {
	terrain       *Slab
	verticalSpace *SlabVerticalSpace
	occlusion     *SlabOcclusion
	areas         []SlabArea
	navGraph      *SlabNavGraph
	hashes        NeighbourHashes
	state         SlabLoadState

	stamp      uint64 // эпоха последней публикации
	navTicket  uint64 // номер последней запущенной деривации
	navVersion uint64 // число установок графа
	dirty      bool
}

func (d *SlabData) State() SlabLoadState              { return d.state }
func (d *SlabData) Stamp() uint64                     { return d.stamp }
func (d *SlabData) NavVersion() uint64                { return d.navVersion }
func (d *SlabData) VerticalSpace() *SlabVerticalSpace { return d.verticalSpace }
func (d *SlabData) Occlusion() *SlabOcclusion         { return d.occlusion }
func (d *SlabData) Areas() []SlabArea                 { return d.areas }
func (d *SlabData) NavGraph() *SlabNavGraph           { return d.navGraph }
func (d *SlabData) NeighbourHashes() NeighbourHashes  { return d.hashes }

// HasNav установлены ли зоны навигации
func (d *SlabData) HasNav() bool {
	return d.navGraph != nil
}

// TerrainVersion версия блоков, 0 если блоков ещё нет
func (d *SlabData) TerrainVersion() uint64 {
	if d.terrain == nil {
		return 0
	}
	return d.terrain.Version()
}

// Chunk вертикальный столбец слэбов
type Chunk struct {
	loc   ChunkLocation
	slabs map[SlabIndex]*SlabData
}

// NewChunk создаёт пустой чанк
func NewChunk(loc ChunkLocation) *Chunk {
	return &Chunk{loc: loc, slabs: make(map[SlabIndex]*SlabData)}
}

func (c *Chunk) Location() ChunkLocation {
	return c.loc
}

// Slab слот слэба, nil если слэб не запрашивался
func (c *Chunk) Slab(idx SlabIndex) *SlabData {
	return c.slabs[idx]
}

// SlabState стадия загрузки слэба
func (c *Chunk) SlabState(idx SlabIndex) SlabLoadState {
	if d := c.slabs[idx]; d != nil {
		return d.state
	}
	return NotRequested
}

// GetSlab снимок блоков слэба только для чтения
func (c *Chunk) GetSlab(idx SlabIndex) (SlabHandle, bool) {
	d := c.slabs[idx]
	if d == nil || d.terrain == nil {
		return SlabHandle{}, false
	}
	return d.terrain.Handle(), true
}

// SlabMut изменяемый доступ к блокам слэба (копия при наличии читателей)
func (c *Chunk) SlabMut(idx SlabIndex) (*SlabMut, bool) {
	d := c.slabs[idx]
	if d == nil || d.terrain == nil {
		return nil, false
	}
	return d.terrain.Mut(), true
}

// Block блок по позиции внутри чанка
func (c *Chunk) Block(p BlockPosition) (Block, bool) {
	z := int32(p.Z)
	d := c.slabs[SlabIndexOf(z)]
	if d == nil || d.terrain == nil {
		return Block{}, false
	}
	return d.terrain.Block(SlabPosition{X: p.X, Y: p.Y, Z: uint8(z & slabMask)}), true
}

// GetOcclusion затенение блока из разреженной таблицы слэба
func (c *Chunk) GetOcclusion(p BlockPosition) (BlockOcclusion, bool) {
	z := int32(p.Z)
	d := c.slabs[SlabIndexOf(z)]
	if d == nil {
		return BlockOcclusion{}, false
	}
	return d.occlusion.Get(SlabPosition{X: p.X, Y: p.Y, Z: uint8(z & slabMask)})
}

// MarkSlabRequested переводит слэб из NotRequested в Requested.
// Повторный запрос ничего не меняет и возвращает false.
func (c *Chunk) MarkSlabRequested(idx SlabIndex, stamp uint64) bool {
	d := c.slabs[idx]
	if d != nil && d.state != NotRequested {
		return false
	}
	if d == nil {
		d = &SlabData{}
		c.slabs[idx] = d
	}
	d.state = Requested
	d.stamp = stamp
	return true
}

// RevertSlabRequest возвращает Requested слэб в NotRequested (запрос не принят
// или генерация не удалась)
func (c *Chunk) RevertSlabRequest(idx SlabIndex) bool {
	d := c.slabs[idx]
	if d == nil || d.state != Requested {
		return false
	}
	delete(c.slabs, idx)
	return true
}

// MarkSlabAsInWorld устанавливает блоки и их производные данные.
// Возвращает билет деривации навигации.
func (c *Chunk) MarkSlabAsInWorld(idx SlabIndex, slab *Slab, vs *SlabVerticalSpace, occ *SlabOcclusion, stamp uint64) (uint64, bool) {
	d := c.slabs[idx]
	if d == nil {
		d = &SlabData{}
		c.slabs[idx] = d
	}
	if !invariant(d.state == NotRequested || d.state == Requested,
		"слэб %s#%d уже в состоянии %s", c.loc, idx, d.state) {
		return 0, false
	}
	d.terrain = slab
	d.verticalSpace = vs
	d.occlusion = occ
	d.areas = nil
	d.navGraph = nil
	d.hashes = UnsetNeighbourHashes()
	d.state = TerrainInWorld
	d.stamp = stamp
	d.navTicket++
	d.dirty = true
	return d.navTicket, true
}

// MarkSlabAsUpdating переводит загруженный слэб в Updating и отменяет
// все идущие деривации. Возвращает новый билет.
func (c *Chunk) MarkSlabAsUpdating(idx SlabIndex, stamp uint64) (uint64, bool) {
	d := c.slabs[idx]
	if d == nil || !d.state.HasTerrain() {
		return 0, false
	}
	d.state = Updating
	d.stamp = stamp
	d.navTicket++
	return d.navTicket, true
}

// IsTicketCurrent не была ли деривация вытеснена более поздней
func (c *Chunk) IsTicketCurrent(idx SlabIndex, ticket uint64) bool {
	d := c.slabs[idx]
	return d != nil && d.navTicket == ticket
}

// ReplaceSlabDerived заменяет вертикальное пространство и затенение после
// изменения блоков, если блоки не менялись с версии terrainVersion
func (c *Chunk) ReplaceSlabDerived(idx SlabIndex, terrainVersion uint64, vs *SlabVerticalSpace, occ *SlabOcclusion) bool {
	d := c.slabs[idx]
	if d == nil || d.terrain == nil || d.terrain.Version() != terrainVersion {
		return false
	}
	d.verticalSpace = vs
	d.occlusion = occ
	d.dirty = true
	return true
}

// ReplaceSlabOcclusion заменяет затенение, посчитанное по версии terrainVersion
func (c *Chunk) ReplaceSlabOcclusion(idx SlabIndex, terrainVersion uint64, occ *SlabOcclusion) bool {
	d := c.slabs[idx]
	if d == nil || d.terrain == nil || d.terrain.Version() != terrainVersion {
		return false
	}
	d.occlusion = occ
	return true
}

// ReplaceSlabNavGraph устанавливает зоны и граф слэба. Стадия становится
// DoneInIsolation (Updating сохраняется). Возвращает прежние отпечатки граней.
func (c *Chunk) ReplaceSlabNavGraph(idx SlabIndex, ticket uint64, graph *SlabNavGraph, areas []SlabArea, stamp uint64) (NeighbourHashes, bool) {
	d := c.slabs[idx]
	if d == nil || d.navTicket != ticket || !d.state.HasTerrain() {
		return NeighbourHashes{}, false
	}
	d.areas = areas
	d.navGraph = graph
	d.navVersion++
	d.stamp = stamp
	if d.state != Updating {
		d.state = DoneInIsolation
	}
	return d.hashes, true
}

// SetNeighbourHash запоминает опубликованный отпечаток грани
func (c *Chunk) SetNeighbourHash(idx SlabIndex, f Face, h NeighbourAreaHash) {
	if d := c.slabs[idx]; d != nil {
		d.hashes[f] = h
	}
}

// MarkSlabAsDone завершает конвейер слэба
func (c *Chunk) MarkSlabAsDone(idx SlabIndex, ticket uint64, stamp uint64) bool {
	d := c.slabs[idx]
	if d == nil || d.navTicket != ticket {
		return false
	}
	if !invariant(d.state == DoneInIsolation || d.state == Updating || d.state == Done,
		"слэб %s#%d завершается из состояния %s", c.loc, idx, d.state) {
		return false
	}
	d.state = Done
	d.stamp = stamp
	return true
}

// MarkSlabDirty отмечает, что данные отрисовки слэба устарели
func (c *Chunk) MarkSlabDirty(idx SlabIndex) {
	if d := c.slabs[idx]; d != nil {
		d.dirty = true
	}
}

// TakeDirtySlabs возвращает и сбрасывает отмеченные слэбы
func (c *Chunk) TakeDirtySlabs() []SlabIndex {
	var out []SlabIndex
	for idx, d := range c.slabs {
		if d.dirty {
			d.dirty = false
			out = append(out, idx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SlabIndices номера всех слэбов чанка по возрастанию
func (c *Chunk) SlabIndices() []SlabIndex {
	out := make([]SlabIndex, 0, len(c.slabs))
	for idx := range c.slabs {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SlabRange минимальный и максимальный номер слэба с блоками
func (c *Chunk) SlabRange() (SlabIndex, SlabIndex, bool) {
	var lo, hi SlabIndex
	found := false
	for idx, d := range c.slabs {
		if d.terrain == nil {
			continue
		}
		if !found || idx < lo {
			lo = idx
		}
		if !found || idx > hi {
			hi = idx
		}
		found = true
	}
	return lo, hi, found
}

// CountLoading число слэбов, ещё не дошедших до Done
func (c *Chunk) CountLoading() int {
	n := 0
	for _, d := range c.slabs {
		if d.state.IsLoading() {
			n++
		}
	}
	return n
}

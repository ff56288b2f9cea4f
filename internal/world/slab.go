package world

import (
	"go.uber.org/atomic"
)

// SlabType тип слэба
type SlabType uint8

const (
	// SlabNormal слэб с рельефом из источника
	SlabNormal SlabType = iota
	// SlabPlaceholder пустой слэб над самым верхним запрошенным или за границей мира
	SlabPlaceholder
)

func (t SlabType) String() string {
	if t == SlabPlaceholder {
		return "placeholder"
	}
	return "normal"
}

// slabGrid массив блоков слэба. Флаг shared поднимается, когда на массив
// появляется внешняя ссылка, после этого массив больше не изменяется.
type slabGrid struct {
	blocks [SlabVolume]Block
	shared atomic.Bool
}

// Slab куб блоков ChunkSize x ChunkSize x SlabSize с копированием при записи
type Slab struct {
	grid    *slabGrid
	typ     SlabType
	version uint64
}

// NewSlab создаёт слэб, заполненный воздухом
func NewSlab(typ SlabType) *Slab {
	return &Slab{grid: &slabGrid{}, typ: typ}
}

// NewSlabFromBlocks создаёт слэб из готового массива, массив копируется
func NewSlabFromBlocks(blocks *[SlabVolume]Block, typ SlabType) *Slab {
	g := &slabGrid{}
	g.blocks = *blocks
	return &Slab{grid: g, typ: typ}
}

func (s *Slab) Type() SlabType      { return s.typ }
func (s *Slab) Version() uint64     { return s.version }
func (s *Slab) IsPlaceholder() bool { return s.typ == SlabPlaceholder }

// Block возвращает блок по локальной позиции
func (s *Slab) Block(p SlabPosition) Block {
	return s.grid.blocks[p.Index()]
}

// Handle возвращает снимок слэба только для чтения. После этого вызова
// следующая запись в слэб скопирует массив.
func (s *Slab) Handle() SlabHandle {
	s.grid.shared.Store(true)
	return SlabHandle{grid: s.grid, typ: s.typ, version: s.version}
}

// IsShared есть ли у массива внешние читатели
func (s *Slab) IsShared() bool {
	return s.grid.shared.Load()
}

// Mut возвращает изменяемый доступ к слэбу. Версия увеличивается один раз
// в Finish, если хотя бы один блок действительно изменился.
func (s *Slab) Mut() *SlabMut {
	return &SlabMut{slab: s}
}

func (s *Slab) ensureUnique() {
	if !s.grid.shared.Load() {
		return
	}
	g := &slabGrid{}
	g.blocks = s.grid.blocks
	s.grid = g
}

// SlabHandle неизменяемый снимок блоков слэба, безопасен для чтения из любых горутин
type SlabHandle struct {
	grid    *slabGrid
	typ     SlabType
	version uint64
}

func (h SlabHandle) Valid() bool     { return h.grid != nil }
func (h SlabHandle) Type() SlabType  { return h.typ }
func (h SlabHandle) Version() uint64 { return h.version }

func (h SlabHandle) Block(p SlabPosition) Block {
	return h.grid.blocks[p.Index()]
}

// blockAt доступ по линейному индексу для горячих циклов
func (h SlabHandle) blockAt(i int) Block {
	return h.grid.blocks[i]
}

// IsAllAir состоит ли слэб целиком из прозрачных блоков
func (h SlabHandle) IsAllAir() bool {
	for i := range h.grid.blocks {
		if h.grid.blocks[i].IsSolid() {
			return false
		}
	}
	return true
}

// Blocks копия массива блоков (для кеша и сериализации)
func (h SlabHandle) Blocks() *[SlabVolume]Block {
	out := h.grid.blocks
	return &out
}

// SlabMut изменяемый доступ к слэбу
type SlabMut struct {
	slab    *Slab
	changed int
}

// Set записывает блок. Возвращает прежний блок и признак изменения.
func (m *SlabMut) Set(p SlabPosition, b Block) (Block, bool) {
	i := p.Index()
	prev := m.slab.grid.blocks[i]
	if prev == b {
		return prev, false
	}
	m.slab.ensureUnique()
	m.slab.grid.blocks[i] = b
	m.changed++
	return prev, true
}

// Changed число изменённых блоков
func (m *SlabMut) Changed() int {
	return m.changed
}

// Finish завершает изменение и возвращает актуальную версию слэба
func (m *SlabMut) Finish() uint64 {
	if m.changed > 0 {
		m.slab.version++
		m.changed = 0
	}
	return m.slab.version
}

package world

import (
	"fmt"

	"github.com/annel0/voxel-world/internal/vec"
)

// TerrainUpdate установка блока во всём прямоугольном диапазоне (границы включительно)
type TerrainUpdate struct {
	From  vec.Vec3
	To    vec.Vec3
	Block Block
}

// SingleBlockUpdate изменение одного блока
func SingleBlockUpdate(pos vec.Vec3, b Block) TerrainUpdate {
	return TerrainUpdate{From: pos, To: pos, Block: b}
}

// BoxUpdate изменение параллелепипеда, углы могут идти в любом порядке
func BoxUpdate(a, b vec.Vec3, blk Block) TerrainUpdate {
	return TerrainUpdate{From: a.Min(b), To: a.Max(b), Block: blk}
}

func (u TerrainUpdate) String() string {
	if u.From == u.To {
		return fmt.Sprintf("%s -> %s", u.From, u.Block)
	}
	return fmt.Sprintf("%s..%s -> %s", u.From, u.To, u.Block)
}

// SlabUpdate часть изменения, попадающая в один слэб
type SlabUpdate struct {
	Slab  SlabLocation
	From  SlabPosition
	To    SlabPosition
	Block Block
}

// SplitIntoSlabs режет изменение по границам слэбов
func (u TerrainUpdate) SplitIntoSlabs() []SlabUpdate {
	lo, hi := u.From.Min(u.To), u.From.Max(u.To)
	var out []SlabUpdate
	for cx := lo.X >> ChunkSizeShift; cx <= hi.X>>ChunkSizeShift; cx++ {
		for cy := lo.Y >> ChunkSizeShift; cy <= hi.Y>>ChunkSizeShift; cy++ {
			for sz := lo.Z >> SlabSizeShift; sz <= hi.Z>>SlabSizeShift; sz++ {
				loc := SlabLocation{Chunk: ChunkLocation{X: cx, Y: cy}, Slab: SlabIndex(sz)}
				origin := loc.Origin()
				from := lo.Max(origin)
				to := hi.Min(origin.Add(vec.Vec3{X: ChunkSize - 1, Y: ChunkSize - 1, Z: SlabSize - 1}))
				out = append(out, SlabUpdate{
					Slab:  loc,
					From:  SlabPositionOf(from),
					To:    SlabPositionOf(to),
					Block: u.Block,
				})
			}
		}
	}
	return out
}

// Apply записывает блоки через изменяемый доступ к слэбу, дописывая события
// и изменённые позиции
func (s SlabUpdate) Apply(m *SlabMut, events []ChangeEvent, changed []SlabPosition) ([]ChangeEvent, []SlabPosition) {
	for z := s.From.Z; z <= s.To.Z; z++ {
		for y := s.From.Y; y <= s.To.Y; y++ {
			for x := s.From.X; x <= s.To.X; x++ {
				p := SlabPosition{X: x, Y: y, Z: z}
				prev, ok := m.Set(p, s.Block)
				if !ok {
					continue
				}
				changed = append(changed, p)
				events = append(events, ChangeEvent{Pos: s.Slab.ToWorld(p), Prev: prev, New: s.Block})
			}
		}
	}
	return events, changed
}

// ChangeEvent изменение одного блока мира
type ChangeEvent struct {
	Pos  vec.Vec3
	Prev Block
	New  Block
}

package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Типы событий мира
const (
	TypeBlockChanged   = "world.block_changed"
	TypeSlabsDirty     = "world.slabs_dirty"
	TypeBatchCompleted = "world.batch_completed"
)

// BlockChangedPayload изменение одного блока
type BlockChangedPayload struct {
	X    int32         `json:"x"`
	Y    int32         `json:"y"`
	Z    int32         `json:"z"`
	Prev block.BlockID `json:"prev"`
	New  block.BlockID `json:"new"`
}

// SlabRef слэб в полезной нагрузке
type SlabRef struct {
	ChunkX int32 `json:"chunk_x"`
	ChunkY int32 `json:"chunk_y"`
	Slab   int32 `json:"slab"`
}

// SlabsPayload список слэбов
type SlabsPayload struct {
	Slabs []SlabRef `json:"slabs"`
}

func slabRefs(locs []world.SlabLocation) []SlabRef {
	out := make([]SlabRef, len(locs))
	for i, l := range locs {
		out[i] = SlabRef{ChunkX: l.Chunk.X, ChunkY: l.Chunk.Y, Slab: int32(l.Slab)}
	}
	return out
}

// Location обратно в координаты мира
func (r SlabRef) Location() world.SlabLocation {
	return world.SlabLocation{Chunk: world.ChunkLocation{X: r.ChunkX, Y: r.ChunkY}, Slab: world.SlabIndex(r.Slab)}
}

func newJSONEnvelope(source, eventType string, priority int, v any) (*Envelope, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("кодирование %s: %w", eventType, err)
	}
	ev := NewEnvelope(source, eventType, payload)
	ev.Priority = priority
	return ev, nil
}

// NewBlockChanged событие изменения блока
func NewBlockChanged(source string, ev world.ChangeEvent) (*Envelope, error) {
	return newJSONEnvelope(source, TypeBlockChanged, 5, BlockChangedPayload{
		X: ev.Pos.X, Y: ev.Pos.Y, Z: ev.Pos.Z,
		Prev: ev.Prev.Type, New: ev.New.Type,
	})
}

// NewSlabsDirty событие об устаревших данных отрисовки слэбов
func NewSlabsDirty(source string, slabs []world.SlabLocation) (*Envelope, error) {
	return newJSONEnvelope(source, TypeSlabsDirty, 2, SlabsPayload{Slabs: slabRefs(slabs)})
}

// NewBatchCompleted все слэбы одного запроса загружены
func NewBatchCompleted(source string, slabs []world.SlabLocation) (*Envelope, error) {
	return newJSONEnvelope(source, TypeBatchCompleted, 3, SlabsPayload{Slabs: slabRefs(slabs)})
}

// DecodeBlockChanged разбирает полезную нагрузку TypeBlockChanged
func DecodeBlockChanged(ev *Envelope) (BlockChangedPayload, error) {
	var p BlockChangedPayload
	if ev.EventType != TypeBlockChanged {
		return p, fmt.Errorf("ожидалось %s, получено %s", TypeBlockChanged, ev.EventType)
	}
	err := json.Unmarshal(ev.Payload, &p)
	return p, err
}

// DecodeSlabs разбирает полезную нагрузку событий со списком слэбов
func DecodeSlabs(ev *Envelope) ([]world.SlabLocation, error) {
	var p SlabsPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return nil, err
	}
	out := make([]world.SlabLocation, len(p.Slabs))
	for i, r := range p.Slabs {
		out[i] = r.Location()
	}
	return out, nil
}

// PublishChanges публикует изменения блоков, общий CorrelationID связывает
// события одного такта
func PublishChanges(ctx context.Context, bus EventBus, source string, changes []world.ChangeEvent) error {
	if bus == nil || len(changes) == 0 {
		return nil
	}
	var correlation string
	for i, c := range changes {
		ev, err := NewBlockChanged(source, c)
		if err != nil {
			return err
		}
		if i == 0 {
			correlation = ev.ID
		}
		ev.CorrelationID = correlation
		if err := bus.Publish(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

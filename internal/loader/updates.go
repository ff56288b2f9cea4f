package loader

import (
	"cmp"
	"context"
	"slices"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

type slabPart struct {
	orig   world.TerrainUpdate
	update world.SlabUpdate
}

type applyResult uint8

const (
	applyNow   applyResult = iota
	applyLater             // слэб ещё загружается
	applyNever             // слэб не запрашивался
)

func compareVec(a, b vec.Vec3) int {
	if c := cmp.Compare(a.X, b.X); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.Z, b.Z)
}

func compareUpdates(a, b world.TerrainUpdate) int {
	if c := compareVec(a.From, b.From); c != 0 {
		return c
	}
	if c := compareVec(a.To, b.To); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Block.Type, b.Block.Type); c != 0 {
		return c
	}
	return cmp.Compare(a.Block.Durability, b.Block.Durability)
}

// ApplyTerrainUpdates применяет изменения рельефа к загруженным слэбам.
// Блоки меняются сразу, навигация и затенение догоняют в задачах обновления.
// Применённые изменения и изменения незапрошенных слэбов удаляются из
// набора; изменения слэбов, которые ещё загружаются, остаются в наборе
// целиком, их стоит передать снова на следующем такте.
func (l *Loader) ApplyTerrainUpdates(updates map[world.TerrainUpdate]struct{}) []world.ChangeEvent {
	if len(updates) == 0 {
		return nil
	}

	parts := make([]slabPart, 0, len(updates))
	for u := range updates {
		for _, su := range u.SplitIntoSlabs() {
			parts = append(parts, slabPart{orig: u, update: su})
		}
	}
	// порядок внутри слэба детерминирован, чтобы пересекающиеся изменения
	// давали одинаковый результат
	slices.SortFunc(parts, func(a, b slabPart) int {
		if c := compareSlabs(a.update.Slab, b.update.Slab); c != 0 {
			return c
		}
		return compareUpdates(a.orig, b.orig)
	})

	type mutated struct {
		loc     world.SlabLocation
		changed []world.SlabPosition
	}
	var (
		events   []world.ChangeEvent
		slabs    []mutated
		deferred = make(map[world.TerrainUpdate]struct{})
		dropped  int
	)

	l.ref.Write(func(w *world.World) {
		stamp := w.NextStamp()
		cursor := w.NewChunkCursor()
		for i := 0; i < len(parts); {
			loc := parts[i].update.Slab
			j := i + 1
			for j < len(parts) && parts[j].update.Slab == loc {
				j++
			}
			group := parts[i:j]
			i = j

			c := cursor.Chunk(loc.Chunk)
			result := applyNever
			if c != nil {
				switch st := c.SlabState(loc.Slab); {
				case st.HasTerrain():
					result = applyNow
				case st != world.NotRequested:
					result = applyLater
				}
			}

			switch result {
			case applyLater:
				for _, p := range group {
					deferred[p.orig] = struct{}{}
				}
				l.logger.Trace("слэб %s загружается, откладываем %d изменений", loc, len(group))
				continue
			case applyNever:
				dropped += len(group)
				l.logger.Debug("слэб %s не загружен, отбрасываем %d изменений", loc, len(group))
				continue
			}

			m, _ := c.SlabMut(loc.Slab)
			var changed []world.SlabPosition
			for _, p := range group {
				events, changed = p.update.Apply(m, events, changed)
			}
			m.Finish()
			if len(changed) == 0 {
				continue
			}
			c.MarkSlabAsUpdating(loc.Slab, stamp)
			c.MarkSlabDirty(loc.Slab)
			slabs = append(slabs, mutated{loc: loc, changed: changed})
		}
	})

	applied := 0
	for u := range updates {
		if _, ok := deferred[u]; ok {
			continue
		}
		delete(updates, u)
		applied++
	}
	terrainUpdates.WithLabelValues("applied").Add(float64(applied))
	terrainUpdates.WithLabelValues("deferred").Add(float64(len(deferred)))
	terrainUpdates.WithLabelValues("dropped_parts").Add(float64(dropped))

	if len(slabs) == 0 {
		return events
	}

	// соседи, у которых поменялось затенение, но не блоки
	own := make(map[world.SlabLocation]struct{}, len(slabs))
	for _, s := range slabs {
		own[s.loc] = struct{}{}
	}
	affected := make(map[world.SlabLocation]struct{})
	for _, s := range slabs {
		for _, n := range world.OcclusionAffectedNeighbours(s.loc, s.changed) {
			if _, ok := own[n]; !ok {
				affected[n] = struct{}{}
			}
		}
	}

	locs := make([]world.SlabLocation, len(slabs))
	for i, s := range slabs {
		locs[i] = s.loc
	}
	l.ref.Notifier().NotifyMany(locs)

	builder, err := newBatchBuilder(&l.ids, len(slabs))
	for _, s := range slabs {
		var batch UpdateBatch
		if err == nil {
			batch = builder.Next()
		}
		l.pool.Go(func(ctx context.Context) {
			l.updateSlab(ctx, s.loc, batch)
		})
	}
	for n := range affected {
		l.pool.Go(func(context.Context) {
			l.refreshOcclusion(n)
		})
	}

	l.lastBatch.Store(int64(len(slabs)))
	l.logger.Debug("✏️ Изменено %d слэбов (%d блоков), отложено %d изменений",
		len(slabs), len(events), len(deferred))
	return events
}

package loader

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/voxel-world/internal/terrain"
	"github.com/annel0/voxel-world/internal/world"
)

// loadSlab задача загрузки слэба: от запроса до Done
func (l *Loader) loadSlab(ctx context.Context, req slabRequest) {
	ctx, span := tracer.Start(ctx, "loader.load_slab",
		trace.WithAttributes(attribute.String("slab", req.slab.String())))
	defer span.End()
	start := time.Now()

	slab, err := l.generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "terrain source")
		l.failRequest(req, err)
		return
	}

	handle := slab.Handle()
	vs := world.DiscoverVerticalSpace(handle)
	occ := world.DiscoverOcclusion(world.NewSlabNeighbourhood(handle))

	var ticket uint64
	ok := false
	l.ref.Write(func(w *world.World) {
		c := w.EnsureChunk(req.slab.Chunk)
		ticket, ok = c.MarkSlabAsInWorld(req.slab.Slab, slab, vs, occ, w.NextStamp())
	})
	if !ok {
		l.finalize(Finalization{Slab: req.slab, Batch: req.batch, Err: errSlabNotRequested})
		return
	}
	l.ref.Notifier().Notify(req.slab)
	l.finalize(Finalization{Slab: req.slab, Batch: req.batch})
	slabPhases.WithLabelValues(phaseTerrain).Inc()

	// затенение на границах с уже загруженными соседями и у самих соседей
	l.refreshOcclusion(req.slab)
	for _, n := range neighbourSlabs(req.slab) {
		l.pool.Go(func(context.Context) {
			l.refreshOcclusion(n)
		})
	}

	l.deriveNav(ctx, req.slab, ticket, start, true)
}

var (
	errSlabNotRequested = errors.New("слэб не ожидает загрузки")
	// errSlabSuperseded блоки слэба изменились повторно, пока шло обновление
	errSlabSuperseded = errors.New("обновление слэба вытеснено более новым")
)

// generate получает блоки слэба: пустая заглушка, слэб из источника или
// пустой слэб за границей мира
func (l *Loader) generate(ctx context.Context, req slabRequest) (*world.Slab, error) {
	if req.placeholder {
		return world.NewSlab(world.SlabPlaceholder), nil
	}

	var gen *terrain.GeneratedSlab
	err := l.pool.Generate(ctx, func() error {
		var err error
		gen, err = l.source.LoadSlab(ctx, req.slab)
		return err
	})
	switch {
	case err == nil:
		return gen.Terrain, nil
	case errors.Is(err, terrain.ErrSlabOutOfBounds):
		l.logger.Trace("слэб %s за границей мира, подставляем пустой", req.slab)
		return world.NewSlab(world.SlabPlaceholder), nil
	default:
		return nil, err
	}
}

// failRequest возвращает слэб в NotRequested, чтобы его можно было запросить снова
func (l *Loader) failRequest(req slabRequest, err error) {
	loadErrors.Inc()
	if !errors.Is(err, context.Canceled) {
		l.logger.Error("❌ Ошибка загрузки слэба %s: %v", req.slab, err)
	}
	l.ref.Write(func(w *world.World) {
		if c := w.FindChunk(req.slab.Chunk); c != nil {
			c.RevertSlabRequest(req.slab.Slab)
		}
	})
	l.ref.Notifier().Notify(req.slab)
	l.finalize(Finalization{Slab: req.slab, Batch: req.batch, Err: err})
}

// updateSlab задача после изменения блоков: производные данные заново,
// затем навигация
func (l *Loader) updateSlab(ctx context.Context, loc world.SlabLocation, batch UpdateBatch) {
	ctx, span := tracer.Start(ctx, "loader.update_slab",
		trace.WithAttributes(attribute.String("slab", loc.String())))
	defer span.End()
	start := time.Now()

	n, version, ok := l.neighbourhood(loc)
	if !ok {
		l.finalize(Finalization{Slab: loc, Batch: batch, Err: errSlabNotRequested})
		return
	}
	vs := world.DiscoverVerticalSpace(n.Centre())
	occ := world.DiscoverOcclusion(n)

	var ticket uint64
	l.ref.Write(func(w *world.World) {
		c := w.FindChunk(loc.Chunk)
		if c == nil || !c.ReplaceSlabDerived(loc.Slab, version, vs, occ) {
			ok = false
			return
		}
		// новый билет: задачи, успевшие прочитать старое пространство, отбрасываются
		ticket, ok = c.MarkSlabAsUpdating(loc.Slab, w.NextStamp())
	})
	if !ok {
		// слэб изменился ещё раз, его обработает следующая задача
		slabPhases.WithLabelValues(phaseStale).Inc()
		l.finalize(Finalization{Slab: loc, Batch: batch, Err: errSlabSuperseded})
		return
	}
	l.ref.Notifier().Notify(loc)
	l.finalize(Finalization{Slab: loc, Batch: batch})

	l.deriveNav(ctx, loc, ticket, start, true)
}

// refreshNav пересчитывает только навигацию (изменился вертикальный сосед)
func (l *Loader) refreshNav(ctx context.Context, loc world.SlabLocation, ticket uint64) {
	ctx, span := tracer.Start(ctx, "loader.refresh_nav",
		trace.WithAttributes(attribute.String("slab", loc.String())))
	defer span.End()
	l.deriveNav(ctx, loc, ticket, time.Now(), false)
}

// deriveNav зоны и граф слэба, сшивка с соседями, Done. Прерывается, как
// только билет вытеснен более поздней задачей.
func (l *Loader) deriveNav(ctx context.Context, loc world.SlabLocation, ticket uint64, start time.Time, touchVertical bool) {
	var vs *world.SlabVerticalSpace
	l.ref.Read(func(w *world.World) {
		c := w.FindChunk(loc.Chunk)
		if c != nil && c.IsTicketCurrent(loc.Slab, ticket) {
			vs = c.Slab(loc.Slab).VerticalSpace()
		}
	})
	if vs == nil {
		slabPhases.WithLabelValues(phaseStale).Inc()
		return
	}

	above, _, err := world.GetOrWaitForSlabVerticalSpace(ctx, l.ref, loc.Above())
	if err != nil {
		return
	}
	areas := world.DiscoverAreas(vs, above)
	below, _, err := world.GetOrWaitForSlabVerticalSpace(ctx, l.ref, loc.Below())
	if err != nil {
		return
	}
	areas = append(areas, world.DiscoverBottomAreas(vs, below)...)
	world.SortAreas(areas)
	graph := world.DiscoverSlabNavGraph(areas)

	if touchVertical {
		// нижний срез слэба сверху и верхний срез слэба снизу зависят от нас
		l.refreshVerticalNeighbours(loc, ticket)
	}

	var prev world.NeighbourHashes
	ok := false
	l.ref.Write(func(w *world.World) {
		c := w.FindChunk(loc.Chunk)
		if c == nil {
			return
		}
		prev, ok = c.ReplaceSlabNavGraph(loc.Slab, ticket, graph, areas, w.NextStamp())
		if ok {
			w.Graph().Absorb(loc, graph)
		}
	})
	if !ok {
		slabPhases.WithLabelValues(phaseStale).Inc()
		return
	}
	l.ref.Notifier().Notify(loc)
	slabPhases.WithLabelValues(phaseIsolation).Inc()

	for _, f := range world.Faces {
		hash := world.HashFace(areas, f)
		if hash == prev[f] {
			continue
		}
		if !l.linkFace(ctx, loc, ticket, areas, f, hash) {
			slabPhases.WithLabelValues(phaseStale).Inc()
			return
		}
	}

	done := false
	l.ref.Write(func(w *world.World) {
		if c := w.FindChunk(loc.Chunk); c != nil {
			done = c.MarkSlabAsDone(loc.Slab, ticket, w.NextStamp())
		}
	})
	if !done {
		slabPhases.WithLabelValues(phaseStale).Inc()
		return
	}
	l.ref.Notifier().Notify(loc)
	slabPhases.WithLabelValues(phaseDone).Inc()
	slabLoadDuration.Observe(time.Since(start).Seconds())
}

// refreshVerticalNeighbours запускает пересчёт навигации слэбов сверху и
// снизу, если их блоки уже в мире
func (l *Loader) refreshVerticalNeighbours(loc world.SlabLocation, ticket uint64) {
	type refresh struct {
		loc    world.SlabLocation
		ticket uint64
	}
	var todo []refresh
	l.ref.Write(func(w *world.World) {
		c := w.FindChunk(loc.Chunk)
		if c == nil || !c.IsTicketCurrent(loc.Slab, ticket) {
			return
		}
		for _, n := range []world.SlabLocation{loc.Above(), loc.Below()} {
			if !c.SlabState(n.Slab).HasTerrain() {
				continue
			}
			if t, ok := c.MarkSlabAsUpdating(n.Slab, w.NextStamp()); ok {
				todo = append(todo, refresh{loc: n, ticket: t})
			}
		}
	})
	for _, r := range todo {
		l.ref.Notifier().Notify(r.loc)
		l.pool.Go(func(ctx context.Context) {
			l.refreshNav(ctx, r.loc, r.ticket)
		})
	}
}

// linkFace строит рёбра к соседу по грани f. Сосед, ещё не получивший зон,
// ожидается; без соседа сохраняется только отпечаток грани. Возвращает false, если билет
// вытеснен или задача отменена.
func (l *Loader) linkFace(ctx context.Context, loc world.SlabLocation, ticket uint64, areas []world.SlabArea, f world.Face, hash world.NeighbourAreaHash) bool {
	them := loc.Neighbour(f)
	for {
		snap, ok, err := world.GetOrWaitForSlabAreas(ctx, l.ref, them)
		if err != nil {
			return false
		}
		if !ok {
			// соседа нет: рёбер нет, но отпечаток грани публикуется
			return l.storeFaceHash(loc, ticket, f, hash)
		}
		edges := world.LinkFace(loc, world.BorderAreas(areas, f), f, them, world.BorderAreas(snap.Areas, f.Opposite()))

		current, committed := true, false
		l.ref.Write(func(w *world.World) {
			c := w.FindChunk(loc.Chunk)
			if c == nil || !c.IsTicketCurrent(loc.Slab, ticket) {
				current = false
				return
			}
			d := w.SlabData(them)
			if d == nil || !d.HasNav() || d.NavVersion() != snap.NavVersion {
				// сосед успел поменять зоны, пробуем ещё раз
				return
			}
			w.Graph().ReplaceInterSlabEdges(loc, them, edges)
			c.SetNeighbourHash(loc.Slab, f, hash)
			committed = true
		})
		if !current {
			return false
		}
		if committed {
			return true
		}
	}
}

// storeFaceHash запоминает отпечаток грани без соседа. false, если билет вытеснен.
func (l *Loader) storeFaceHash(loc world.SlabLocation, ticket uint64, f world.Face, hash world.NeighbourAreaHash) bool {
	current := false
	l.ref.Write(func(w *world.World) {
		c := w.FindChunk(loc.Chunk)
		if c == nil || !c.IsTicketCurrent(loc.Slab, ticket) {
			return
		}
		c.SetNeighbourHash(loc.Slab, f, hash)
		current = true
	})
	return current
}

// neighbourhood снимки слэба и всех загруженных соседей
func (l *Loader) neighbourhood(loc world.SlabLocation) (*world.SlabNeighbourhood, uint64, bool) {
	var n *world.SlabNeighbourhood
	var version uint64
	l.ref.Read(func(w *world.World) {
		c := w.FindChunk(loc.Chunk)
		if c == nil {
			return
		}
		centre, ok := c.GetSlab(loc.Slab)
		if !ok {
			return
		}
		version = centre.Version()
		n = world.NewSlabNeighbourhood(centre)
		cursor := w.NewChunkCursor()
		forEachOffset(func(dx, dy, dz int32) {
			other := loc.Offset(dx, dy, dz)
			if oc := cursor.Chunk(other.Chunk); oc != nil {
				if h, ok := oc.GetSlab(other.Slab); ok {
					n.Set(dx, dy, dz, h)
				}
			}
		})
	})
	return n, version, n != nil
}

// refreshOcclusion пересчитывает затенение граничных блоков слэба
func (l *Loader) refreshOcclusion(loc world.SlabLocation) {
	n, version, ok := l.neighbourhood(loc)
	if !ok {
		return
	}
	var prev *world.SlabOcclusion
	l.ref.Read(func(w *world.World) {
		if d := w.SlabData(loc); d != nil {
			prev = d.Occlusion()
		}
	})

	occ, changed := world.RefreshBorderOcclusion(prev, n)
	if !changed {
		return
	}
	l.ref.Write(func(w *world.World) {
		c := w.FindChunk(loc.Chunk)
		if c != nil && c.ReplaceSlabOcclusion(loc.Slab, version, occ) {
			c.MarkSlabDirty(loc.Slab)
		}
	})
}

// forEachOffset обходит 26 смещений соседних слэбов
func forEachOffset(fn func(dx, dy, dz int32)) {
	for dz := int32(-1); dz <= 1; dz++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dx := int32(-1); dx <= 1; dx++ {
				if dx != 0 || dy != 0 || dz != 0 {
					fn(dx, dy, dz)
				}
			}
		}
	}
}

func neighbourSlabs(loc world.SlabLocation) []world.SlabLocation {
	out := make([]world.SlabLocation, 0, 26)
	forEachOffset(func(dx, dy, dz int32) {
		out = append(out, loc.Offset(dx, dy, dz))
	})
	return out
}

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/eventbus"
	"github.com/annel0/voxel-world/internal/loader"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/pathfind"
	"github.com/annel0/voxel-world/internal/terrain"
	"github.com/annel0/voxel-world/internal/world"
)

const (
	// eventSource имя источника событий мира на шине
	eventSource = "world"

	requestRetryDelay = 20 * time.Millisecond
)

// Service связывает мир, загрузчик, поиск пути и шину событий. Изменения
// рельефа копятся в очереди и применяются на такте.
type Service struct {
	cfg    *config.Config
	ref    *world.Ref
	loader *loader.Loader
	finder *pathfind.Finder
	bus    eventbus.EventBus

	closeSource func() error

	mu      sync.Mutex
	pending map[world.TerrainUpdate]struct{}

	logger *logging.Logger
}

// TickStats итог одного такта
type TickStats struct {
	Changed   int // изменённые блоки
	Deferred  int // изменения, ждущие загрузки слэбов
	Dirty     int // слэбы с устаревшими данными отрисовки
	Completed int // завершённые пакеты загрузки
}

// NewService создаёт сервис по конфигурации. bus может быть nil, тогда
// события никуда не публикуются.
func NewService(ctx context.Context, cfg *config.Config, bus eventbus.EventBus) (*Service, error) {
	src, closeSource, err := terrain.FromConfig(cfg.World)
	if err != nil {
		return nil, fmt.Errorf("источник рельефа: %w", err)
	}
	return NewServiceWithSource(ctx, cfg, src, closeSource, bus), nil
}

// NewServiceWithSource создаёт сервис поверх готового источника рельефа
func NewServiceWithSource(ctx context.Context, cfg *config.Config, src terrain.Source, closeSource func() error, bus eventbus.EventBus) *Service {
	if closeSource == nil {
		closeSource = func() error { return nil }
	}
	ref := world.NewRef(world.NewWorld())
	return &Service{
		cfg:         cfg,
		ref:         ref,
		loader:      loader.New(ctx, ref, src, cfg.Loader),
		finder:      pathfind.NewFinder(ref, cfg.Pathfind),
		bus:         bus,
		closeSource: closeSource,
		pending:     make(map[world.TerrainUpdate]struct{}),
		logger:      logging.GetWorldLogger(),
	}
}

func (s *Service) Ref() *world.Ref          { return s.ref }
func (s *Service) Loader() *loader.Loader   { return s.loader }
func (s *Service) Finder() *pathfind.Finder { return s.finder }
func (s *Service) Bus() eventbus.EventBus   { return s.bus }
func (s *Service) Config() *config.Config   { return s.cfg }

// InitialSlabs слэбы стартовой области из конфигурации, отсортированные по
// чанку и номеру слэба
func (s *Service) InitialSlabs() []world.SlabLocation {
	wc := s.cfg.World
	var out []world.SlabLocation
	for x := wc.ChunkMinX; x <= wc.ChunkMaxX; x++ {
		for y := wc.ChunkMinY; y <= wc.ChunkMaxY; y++ {
			for z := wc.SlabMin; z <= wc.SlabMax; z++ {
				out = append(out, world.SlabLocation{
					Chunk: world.ChunkLocation{X: x, Y: y},
					Slab:  world.SlabIndex(z),
				})
			}
		}
	}
	return out
}

// LoadInitialWorld запрашивает стартовую область и ждёт её загрузки.
// Запросы, не принятые из-за переполнения очередей, отправляются повторно.
func (s *Service) LoadInitialWorld(ctx context.Context) error {
	slabs := s.InitialSlabs()
	start := time.Now()
	s.logger.Info("🌍 Загрузка стартовой области: %d слэбов", len(slabs))

	for len(slabs) > 0 {
		accepted := s.loader.RequestSlabs(slabs)
		if accepted == 0 {
			if err := s.waitForCapacity(ctx); err != nil {
				return err
			}
			continue
		}
		slabs = s.unrequested(slabs)
	}

	if err := s.loader.BlockUntilAllDone(ctx, s.cfg.Loader.LoadTimeout, nil); err != nil {
		return fmt.Errorf("загрузка стартовой области: %w", err)
	}
	s.logger.Info("✅ Стартовая область загружена за %s", time.Since(start).Round(time.Millisecond))
	return nil
}

// waitForCapacity ждёт освобождения очередей загрузчика. Если задач в работе
// нет, запрос отклонён ограничителем частоты и достаточно короткой паузы.
func (s *Service) waitForCapacity(ctx context.Context) error {
	if s.loader.Inflight() == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(requestRetryDelay):
			return nil
		}
	}
	_, err := s.loader.BlockOnNextFinalization(ctx, s.cfg.Loader.LoadTimeout, nil)
	if err != nil && !errors.Is(err, loader.ErrTimeout) {
		return err
	}
	return nil
}

// unrequested оставляет слэбы, которые всё ещё не запрошены
func (s *Service) unrequested(slabs []world.SlabLocation) []world.SlabLocation {
	out := slabs[:0]
	s.ref.Read(func(w *world.World) {
		for _, l := range slabs {
			if w.SlabState(l) == world.NotRequested {
				out = append(out, l)
			}
		}
	})
	return out
}

// SubmitUpdate ставит изменение рельефа в очередь следующего такта
func (s *Service) SubmitUpdate(u world.TerrainUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[u] = struct{}{}
}

// PendingUpdates число изменений в очереди
func (s *Service) PendingUpdates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Tick применяет накопленные изменения (вместе с отложенными изменениями
// источника рельефа) и публикует события мира
func (s *Service) Tick(ctx context.Context) (TickStats, error) {
	var st TickStats

	s.mu.Lock()
	s.loader.StealQueuedBlockUpdates(ctx, s.pending)
	changes := s.loader.ApplyTerrainUpdates(s.pending)
	st.Deferred = len(s.pending)
	s.mu.Unlock()
	st.Changed = len(changes)

	var dirty []world.SlabLocation
	s.ref.Write(func(w *world.World) {
		dirty = w.TakeDirtySlabs()
	})
	st.Dirty = len(dirty)

	batches := s.loader.CompletedBatches()
	st.Completed = len(batches)

	if s.bus == nil {
		return st, nil
	}
	if err := eventbus.PublishChanges(ctx, s.bus, eventSource, changes); err != nil {
		return st, err
	}
	if len(dirty) > 0 {
		ev, err := eventbus.NewSlabsDirty(eventSource, dirty)
		if err != nil {
			return st, err
		}
		if err := s.bus.Publish(ctx, ev); err != nil {
			return st, err
		}
	}
	for _, b := range batches {
		ev, err := eventbus.NewBatchCompleted(eventSource, b)
		if err != nil {
			return st, err
		}
		if err := s.bus.Publish(ctx, ev); err != nil {
			return st, err
		}
	}
	return st, nil
}

// Run вызывает Tick с периодом UpdateTick до отмены контекста
func (s *Service) Run(ctx context.Context) error {
	interval := s.cfg.Loader.UpdateTick
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			st, err := s.Tick(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("❌ Ошибка такта мира: %v", err)
				continue
			}
			if st.Changed > 0 {
				s.logger.Debug("такт: %d блоков, отложено %d, слэбов к перерисовке %d",
					st.Changed, st.Deferred, st.Dirty)
			}
		}
	}
}

// Close останавливает загрузчик и закрывает источник рельефа
func (s *Service) Close() error {
	return errors.Join(s.loader.Close(), s.closeSource())
}

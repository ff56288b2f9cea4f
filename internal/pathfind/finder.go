package pathfind

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
)

var tracer = otel.Tracer("github.com/annel0/voxel-world/internal/pathfind")

// DefaultMaxRetries сколько раз поиск перезапускается после изменений мира
const DefaultMaxRetries = 8

// Finder ищет пути по графу зон мира. Одновременно выполняется не больше
// WorkerCount поисков, остальные ждут своей очереди.
type Finder struct {
	ref        *world.Ref
	maxRetries int
	sem        *semaphore.Weighted
	logger     *logging.Logger
}

// Result результат асинхронного поиска
type Result struct {
	Path *Path
	Err  error
}

// NewFinder создаёт поисковик поверх мира
func NewFinder(ref *world.Ref, cfg config.PathfindConfig) *Finder {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	return &Finder{
		ref:        ref,
		maxRetries: cfg.MaxRetries,
		sem:        semaphore.NewWeighted(int64(cfg.WorkerCount)),
		logger:     logging.GetNavLogger(),
	}
}

// FindPath ищет путь от from к to. Если мир меняется во время поиска,
// поиск дожидается изменённых слэбов и начинается заново, после
// MaxRetries неудачных попыток возвращается ErrWorldChanged.
func (f *Finder) FindPath(ctx context.Context, from, to vec.Vec3, goal Goal, requirement uint8) (*Path, error) {
	ctx, span := tracer.Start(ctx, "pathfind.find_path", trace.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
		attribute.String("goal", goal.String()),
		attribute.Int("requirement", int(requirement)),
	))
	defer span.End()

	start := time.Now()
	path, err := f.findPath(ctx, request{from: from, to: to, goal: goal, requirement: requirement})
	searchDuration.Observe(time.Since(start).Seconds())
	searches.WithLabelValues(resultLabel(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		f.logger.Debug("путь %s -> %s (%s) не найден: %v", from, to, goal, err)
		return nil, err
	}
	routeLength.Observe(float64(len(path.Areas)))
	span.SetAttributes(attribute.Int("areas", len(path.Areas)), attribute.Int("waypoints", len(path.Waypoints)))
	return path, nil
}

func (f *Finder) findPath(ctx context.Context, req request) (*Path, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.sem.Release(1)

	rt, err := f.findRoute(ctx, req)
	if err != nil {
		return nil, err
	}
	points, err := expand(rt, req.from)
	if err != nil {
		return nil, err
	}
	return &Path{Areas: rt.steps, Waypoints: points, Target: rt.target}, nil
}

// FindPathAsync запускает поиск в отдельной горутине
func (f *Finder) FindPathAsync(ctx context.Context, from, to vec.Vec3, goal Goal, requirement uint8) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		p, err := f.FindPath(ctx, from, to, goal, requirement)
		out <- Result{Path: p, Err: err}
	}()
	return out
}

// FindPathNow одна попытка без ожидания. Если мир менялся, возвращает
// ошибку, совместимую с ErrWaitingForSlabLoading и *StaleSlabsError.
func (f *Finder) FindPathNow(from, to vec.Vec3, goal Goal, requirement uint8) (*Path, error) {
	req := request{from: from, to: to, goal: goal, requirement: requirement}
	since := f.ref.Epoch()
	var (
		rt  *route
		err error
	)
	f.ref.Read(func(w *world.World) {
		rt, err = search(w, req, since)
	})
	if err != nil {
		var stale *StaleSlabsError
		if errors.As(err, &stale) {
			return nil, fmt.Errorf("%w: %w", ErrWaitingForSlabLoading, err)
		}
		return nil, err
	}
	points, err := expand(rt, from)
	if err != nil {
		return nil, err
	}
	return &Path{Areas: rt.steps, Waypoints: points, Target: rt.target}, nil
}

// PathExists есть ли маршрут между точками (без раскладки по блокам)
func (f *Finder) PathExists(ctx context.Context, from, to vec.Vec3, requirement uint8) (bool, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer f.sem.Release(1)

	_, err := f.findRoute(ctx, request{from: from, to: to, goal: Arrive, requirement: requirement})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNoPath):
		return false, nil
	default:
		return false, err
	}
}

// findRoute повторяет поиск, пока он не закончится без устаревших слэбов
func (f *Finder) findRoute(ctx context.Context, req request) (*route, error) {
	span := trace.SpanFromContext(ctx)
	for attempt := 1; ; attempt++ {
		since := f.ref.Epoch()
		listener := f.ref.Notifier().StartListening()

		var (
			rt  *route
			err error
		)
		f.ref.Read(func(w *world.World) {
			rt, err = search(w, req, since)
		})
		if err == nil {
			listener.Close()
			return rt, nil
		}

		var stale *StaleSlabsError
		if !errors.As(err, &stale) {
			listener.Close()
			return nil, err
		}

		searchRetries.Inc()
		span.AddEvent("world changed", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.Int("slabs", len(stale.Slabs)),
		))
		if attempt >= f.maxRetries {
			listener.Close()
			f.logger.Warn("⚠️ Поиск %s -> %s сдался после %d попыток", req.from, req.to, attempt)
			return nil, fmt.Errorf("%d попыток: %w", attempt, ErrWorldChanged)
		}

		f.logger.Trace("поиск %s -> %s ждёт слэбы %v", req.from, req.to, stale.Slabs)
		err = listener.WaitForSlabs(ctx, f.ref, stale.Slabs)
		listener.Close()
		if err != nil {
			return nil, err
		}
	}
}

// FilterReachableBlocksInRange позиции диапазона, где может стоять агент,
// достижимые из from и удовлетворяющие pred (nil принимает всё).
// Выполняется за одно чтение мира, без повторов.
func (f *Finder) FilterReachableBlocksInRange(from, lo, hi vec.Vec3, requirement uint8, pred func(vec.Vec3, world.Block) bool) ([]vec.Vec3, error) {
	var (
		out []vec.Vec3
		err error
	)
	f.ref.Read(func(w *world.World) {
		src, _, rerr := resolve(w, from, requirement,
			&world.SourceNotWalkableError{Pos: from, Height: requirement})
		if rerr != nil {
			err = rerr
			return
		}
		reachable := reachableAreas(w, src, requirement)
		out = w.FilterBlocksInRange(lo, hi, func(pos vec.Vec3, b world.Block) bool {
			if pred != nil && !pred(pos, b) {
				return false
			}
			area, ok := w.FindAreaForBlock(pos, requirement)
			if !ok {
				return false
			}
			_, ok = reachable[area]
			return ok
		})
	})
	return out, err
}

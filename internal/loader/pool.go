package loader

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/annel0/voxel-world/internal/world"
)

// Finalization результат загрузки слэба: блоки опубликованы в мире или
// источник вернул ошибку
type Finalization struct {
	Slab  world.SlabLocation
	Batch UpdateBatch
	Err   error
}

// Pool исполняет задачи загрузчика. Генерация рельефа ограничена числом
// воркеров, ожидание соседних слэбов слот не занимает.
type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	sem    *semaphore.Weighted

	workers  int
	inflight *atomic.Int64

	// goMu упорядочивает запуск задач относительно Close
	goMu   sync.Mutex
	closed bool

	mu       sync.Mutex
	finished []Finalization
	signal   chan struct{}
}

// NewPool создаёт пул с указанным числом воркеров генерации
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(parent)
	group, gctx := errgroup.WithContext(ctx)
	return &Pool{
		ctx:      gctx,
		cancel:   cancel,
		group:    group,
		sem:      semaphore.NewWeighted(int64(workers)),
		workers:  workers,
		inflight: atomic.NewInt64(0),
		signal:   make(chan struct{}, 1),
	}
}

// Context контекст пула, отменяется при Close
func (p *Pool) Context() context.Context {
	return p.ctx
}

// Workers число воркеров генерации
func (p *Pool) Workers() int {
	return p.workers
}

// Inflight число выполняющихся задач
func (p *Pool) Inflight() int64 {
	return p.inflight.Load()
}

// Go запускает задачу. Задачи не возвращают ошибок: сбой одного слэба не
// должен останавливать остальные.
func (p *Pool) Go(task func(ctx context.Context)) {
	p.goMu.Lock()
	defer p.goMu.Unlock()
	if p.closed || p.ctx.Err() != nil {
		return
	}
	p.inflight.Inc()
	slabsLoading.Inc()
	p.group.Go(func() error {
		defer func() {
			p.inflight.Dec()
			slabsLoading.Dec()
		}()
		task(p.ctx)
		return nil
	})
}

// goLoop запускает долгоживущую горутину (обработчик очереди запросов)
func (p *Pool) goLoop(loop func(ctx context.Context) error) {
	p.goMu.Lock()
	defer p.goMu.Unlock()
	if p.closed {
		return
	}
	p.group.Go(func() error {
		return loop(p.ctx)
	})
}

// Generate выполняет fn, заняв слот воркера
func (p *Pool) Generate(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}

// finalize сообщает о завершении первой стадии загрузки слэба
func (p *Pool) finalize(f Finalization) {
	p.mu.Lock()
	p.finished = append(p.finished, f)
	p.mu.Unlock()
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *Pool) popFinalization() (Finalization, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.finished) == 0 {
		return Finalization{}, false
	}
	f := p.finished[0]
	p.finished = p.finished[1:]
	return f, true
}

// NextFinalization ждёт следующий результат
func (p *Pool) NextFinalization(ctx context.Context) (Finalization, error) {
	for {
		if f, ok := p.popFinalization(); ok {
			return f, nil
		}
		select {
		case <-p.signal:
		case <-ctx.Done():
			return Finalization{}, ctx.Err()
		case <-p.ctx.Done():
			return Finalization{}, ErrLoaderClosed
		}
	}
}

// Close отменяет задачи и дожидается их завершения
func (p *Pool) Close() error {
	p.goMu.Lock()
	p.closed = true
	p.goMu.Unlock()

	p.cancel()
	err := p.group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

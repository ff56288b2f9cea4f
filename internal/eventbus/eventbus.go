package eventbus

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBusClosed шина закрыта
var ErrBusClosed = errors.New("шина событий закрыта")

// Envelope контейнер события мира
type Envelope struct {
	ID            string    // UUID
	Timestamp     time.Time // UTC
	Source        string    // подсистема-источник (loader, api…)
	EventType     string
	Version       int // схема полезной нагрузки
	CorrelationID string
	Priority      int    // 0=Low … 9=Critical
	Payload       []byte // JSON
	Metadata      map[string]string
}

// NewEnvelope заполняет служебные поля нового события
func NewEnvelope(source, eventType string, payload []byte) *Envelope {
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Payload:   payload,
	}
}

// Filter подписка только на нужные события, пустой список означает все
type Filter struct {
	Types   []string
	Sources []string
}

func (f Filter) match(ev *Envelope) bool {
	return (len(f.Types) == 0 || slices.Contains(f.Types, ev.EventType)) &&
		(len(f.Sources) == 0 || slices.Contains(f.Sources, ev.Source))
}

// Subscription позволяет отписаться
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus абстракция шины событий
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close()
}

//================ In-Memory implementation =================//

// memoryBus доставляет события подписчикам в порядке публикации. У каждого
// подписчика своя очередь: медленный подписчик теряет события низкого
// приоритета, но не задерживает остальных.
type memoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
	stats       Stats
	capacity    int
	closed      bool
}

type subscriber struct {
	filter  Filter
	handler Handler
	queue   chan *Envelope
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewMemoryBus создаёт in-memory шину, capacity размер очереди каждого подписчика
func NewMemoryBus(capacity int) EventBus {
	if capacity <= 0 {
		capacity = 1024
	}
	return &memoryBus{
		subscribers: make(map[int]*subscriber),
		capacity:    capacity,
	}
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	mb.mu.RLock()
	if mb.closed {
		mb.mu.RUnlock()
		return ErrBusClosed
	}
	subs := make([]*subscriber, 0, len(mb.subscribers))
	for _, s := range mb.subscribers {
		if s.filter.match(ev) {
			subs = append(subs, s)
		}
	}
	mb.mu.RUnlock()

	var dropped uint64
	for _, s := range subs {
		select {
		case s.queue <- ev:
			continue
		case <-s.ctx.Done():
			continue
		default:
		}
		// очередь заполнена: низкий приоритет (<5) отбрасываем
		if ev.Priority < 5 {
			dropped++
			continue
		}
		select {
		case s.queue <- ev:
		case <-s.ctx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	mb.mu.Lock()
	mb.stats.Published++
	mb.stats.Dropped += dropped
	mb.mu.Unlock()
	return nil
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return nil, ErrBusClosed
	}

	id := mb.nextID
	mb.nextID++
	cctx, cancel := context.WithCancel(ctx)
	s := &subscriber{
		filter:  f,
		handler: h,
		queue:   make(chan *Envelope, mb.capacity),
		ctx:     cctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	mb.subscribers[id] = s
	go mb.deliver(s)

	return &memSub{bus: mb, id: id}, nil
}

// deliver по очереди вызывает обработчик подписчика
func (mb *memoryBus) deliver(s *subscriber) {
	defer close(s.done)
	for {
		select {
		case ev := <-s.queue:
			s.handler(s.ctx, ev)
			mb.mu.Lock()
			mb.stats.Consumed++
			mb.mu.Unlock()
		case <-s.ctx.Done():
			return
		}
	}
}

func (mb *memoryBus) Metrics() Stats {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	st := mb.stats
	for _, s := range mb.subscribers {
		st.InFlight += len(s.queue)
	}
	return st
}

// Close отписывает всех и ждёт завершения обработчиков
func (mb *memoryBus) Close() {
	mb.mu.Lock()
	if mb.closed {
		mb.mu.Unlock()
		return
	}
	mb.closed = true
	subs := mb.subscribers
	mb.subscribers = make(map[int]*subscriber)
	mb.mu.Unlock()

	for _, s := range subs {
		s.cancel()
		<-s.done
	}
}

type memSub struct {
	bus *memoryBus
	id  int
}

func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	sub, ok := s.bus.subscribers[s.id]
	delete(s.bus.subscribers, s.id)
	s.bus.mu.Unlock()
	if ok {
		sub.cancel()
	}
}

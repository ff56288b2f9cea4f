package world

import (
	"context"
	"errors"
	"sync"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/atomic"
)

// NotifierCapacity ёмкость очереди одного слушателя
const NotifierCapacity = 4096

var (
	// ErrListenerLagged слушатель пропустил уведомления: нужно перечитать состояние
	ErrListenerLagged = errors.New("слушатель отстал от уведомлений загрузки")
	// ErrNotifierClosed уведомитель закрыт, ждать больше нечего
	ErrNotifierClosed = errors.New("уведомитель загрузки закрыт")
)

// LoadNotifier широковещательный канал переходов стадий слэбов.
// Если слушателей нет, публикация ничего не делает.
type LoadNotifier struct {
	mu        deadlock.Mutex
	listeners map[uint64]*LoadListener
	nextID    uint64
	closed    bool

	live      *atomic.Int32
	published *atomic.Uint64
	dropped   *atomic.Uint64
}

// NewLoadNotifier создаёт уведомитель
func NewLoadNotifier() *LoadNotifier {
	return &LoadNotifier{
		listeners: make(map[uint64]*LoadListener),
		live:      atomic.NewInt32(0),
		published: atomic.NewUint64(0),
		dropped:   atomic.NewUint64(0),
	}
}

// ListenerCount число активных слушателей
func (n *LoadNotifier) ListenerCount() int {
	return int(n.live.Load())
}

// Published число доставленных публикаций (для метрик)
func (n *LoadNotifier) Published() uint64 {
	return n.published.Load()
}

// Dropped число уведомлений, не поместившихся в очереди слушателей
func (n *LoadNotifier) Dropped() uint64 {
	return n.dropped.Load()
}

// Notify рассылает событие о слэбе всем слушателям. Никогда не блокируется:
// переполненный слушатель помечается отставшим.
func (n *LoadNotifier) Notify(loc SlabLocation) {
	if n.live.Load() == 0 {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	for _, l := range n.listeners {
		select {
		case l.ch <- loc:
		default:
			l.lagged.Store(true)
			n.dropped.Inc()
		}
	}
	n.published.Inc()
}

// NotifyMany рассылает события о нескольких слэбах
func (n *LoadNotifier) NotifyMany(locs []SlabLocation) {
	for _, loc := range locs {
		n.Notify(loc)
	}
}

// StartListening подписывается на уведомления. Подписку нужно оформить до
// чтения состояния мира, иначе переход между проверкой и ожиданием теряется.
func (n *LoadNotifier) StartListening() *LoadListener {
	l := &LoadListener{notifier: n, ch: make(chan SlabLocation, NotifierCapacity)}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		close(l.ch)
		l.detached = true
		return l
	}
	n.nextID++
	l.id = n.nextID
	n.listeners[l.id] = l
	n.live.Inc()
	return l
}

// Close закрывает уведомитель, все ожидания завершаются ErrNotifierClosed
func (n *LoadNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for id, l := range n.listeners {
		close(l.ch)
		l.detached = true
		delete(n.listeners, id)
	}
	n.live.Store(0)
}

func (n *LoadNotifier) detach(l *LoadListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if l.detached {
		return
	}
	l.detached = true
	delete(n.listeners, l.id)
	n.live.Dec()
}

// LoadListener подписка на уведомления загрузки
type LoadListener struct {
	notifier  *LoadNotifier
	id        uint64
	ch        chan SlabLocation
	lagged    atomic.Bool
	detached  bool // под notifier.mu
	closeOnce sync.Once
}

// Recv ждёт следующего уведомления
func (l *LoadListener) Recv(ctx context.Context) (SlabLocation, error) {
	if l.lagged.CAS(true, false) {
		return SlabLocation{}, ErrListenerLagged
	}
	select {
	case <-ctx.Done():
		return SlabLocation{}, ctx.Err()
	case loc, ok := <-l.ch:
		if !ok {
			return SlabLocation{}, ErrNotifierClosed
		}
		return loc, nil
	}
}

// WaitForSlab ждёт уведомления о конкретном слэбе. ErrListenerLagged
// означает, что уведомление могло быть пропущено и состояние нужно перечитать.
func (l *LoadListener) WaitForSlab(ctx context.Context, loc SlabLocation) error {
	for {
		got, err := l.Recv(ctx)
		if err != nil {
			return err
		}
		if got == loc {
			return nil
		}
	}
}

// Close отписывается от уведомлений
func (l *LoadListener) Close() {
	l.closeOnce.Do(func() {
		l.notifier.detach(l)
	})
}

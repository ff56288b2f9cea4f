package world

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slabAt(i int) SlabLocation {
	return SlabLocation{Chunk: ChunkLocation{X: int32(i)}, Slab: 0}
}

func TestNotifierSkipsWithoutListeners(t *testing.T) {
	n := NewLoadNotifier()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			n.Notify(slabAt(i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("публикация без слушателей не должна блокироваться")
	}
	assert.Zero(t, n.Published())
	assert.Zero(t, n.Dropped())

	l := n.StartListening()
	defer l.Close()
	assert.Equal(t, 1, n.ListenerCount())

	n.Notify(slabAt(7))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := l.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, slabAt(7), got)
}

func TestNotifierLagIsRetry(t *testing.T) {
	n := NewLoadNotifier()
	l := n.StartListening()
	defer l.Close()

	for i := 0; i < NotifierCapacity+10; i++ {
		n.Notify(slabAt(i))
	}
	assert.Equal(t, uint64(10), n.Dropped())

	ctx := context.Background()
	_, err := l.Recv(ctx)
	require.ErrorIs(t, err, ErrListenerLagged)

	// после сигнала об отставании очередь продолжает читаться
	got, err := l.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, slabAt(0), got)
}

func TestNotifierWaitForSlab(t *testing.T) {
	n := NewLoadNotifier()
	l := n.StartListening()
	defer l.Close()

	go func() {
		n.Notify(slabAt(1))
		n.Notify(slabAt(2))
		n.Notify(slabAt(3))
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.WaitForSlab(ctx, slabAt(3)))
}

func TestNotifierClose(t *testing.T) {
	n := NewLoadNotifier()
	l := n.StartListening()

	errs := make(chan error, 1)
	go func() {
		errs <- l.WaitForSlab(context.Background(), slabAt(1))
	}()
	n.Close()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrNotifierClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("ожидание не завершилось после закрытия")
	}
	assert.Zero(t, n.ListenerCount())

	late := n.StartListening()
	_, err := late.Recv(context.Background())
	assert.ErrorIs(t, err, ErrNotifierClosed)
	late.Close()
	l.Close()
}

func TestNotifierListenerClose(t *testing.T) {
	n := NewLoadNotifier()
	a := n.StartListening()
	b := n.StartListening()
	assert.Equal(t, 2, n.ListenerCount())

	a.Close()
	a.Close()
	assert.Equal(t, 1, n.ListenerCount())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Recv(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	b.Close()
	assert.Zero(t, n.ListenerCount())
}

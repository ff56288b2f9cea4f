package loader

import (
	"fmt"
	"sync"
)

// UpdateBatch отмечает результат как часть пакета из Size элементов.
// Index считается с единицы.
type UpdateBatch struct {
	ID    uint16
	Size  uint16
	Index uint16
}

// IsLast последний ли элемент пакета
func (b UpdateBatch) IsLast() bool {
	return b.Index == b.Size
}

func (b UpdateBatch) String() string {
	return fmt.Sprintf("пакет %d [%d/%d]", b.ID, b.Index, b.Size)
}

// batchIDs выдаёт номера пакетов по кругу
type batchIDs struct {
	mu   sync.Mutex
	next uint16
}

func (ids *batchIDs) take() uint16 {
	ids.mu.Lock()
	defer ids.mu.Unlock()
	id := ids.next
	ids.next++
	return id
}

// UpdateBatchBuilder раздаёт элементам пакета последовательные номера
type UpdateBatchBuilder struct {
	next UpdateBatch
}

// newBatchBuilder начинает пакет указанного размера (1..65535)
func newBatchBuilder(ids *batchIDs, size int) (*UpdateBatchBuilder, error) {
	if size <= 0 || size > 0xFFFF {
		return nil, fmt.Errorf("недопустимый размер пакета %d", size)
	}
	return &UpdateBatchBuilder{
		next: UpdateBatch{ID: ids.take(), Size: uint16(size), Index: 1},
	}, nil
}

// Next следующий элемент пакета. Паникует при выходе за размер пакета.
func (b *UpdateBatchBuilder) Next() UpdateBatch {
	batch := b.next
	if batch.Index > batch.Size {
		panic(fmt.Sprintf("превышен размер пакета: ожидалось %d", batch.Size))
	}
	b.next.Index++
	return batch
}

// IsComplete выданы ли все элементы пакета
func (b *UpdateBatchBuilder) IsComplete() bool {
	return b.next.Index == b.next.Size+1
}

// UpdateBatcher собирает результаты по пакетам и отдаёт пакеты целиком
type UpdateBatcher[U any] struct {
	mu      sync.Mutex
	batches map[uint16]*pendingBatch[U]
}

type pendingBatch[U any] struct {
	size  int
	items []U
}

// NewUpdateBatcher создаёт пустой сборщик
func NewUpdateBatcher[U any]() *UpdateBatcher[U] {
	return &UpdateBatcher[U]{batches: make(map[uint16]*pendingBatch[U])}
}

// Submit добавляет результат элемента пакета
func (b *UpdateBatcher[U]) Submit(batch UpdateBatch, item U) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.batches[batch.ID]
	if !ok {
		p = &pendingBatch[U]{size: int(batch.Size), items: make([]U, 0, batch.Size)}
		b.batches[batch.ID] = p
	}
	p.items = append(p.items, item)
}

// PopComplete забирает все собранные целиком пакеты
func (b *UpdateBatcher[U]) PopComplete() [][]U {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out [][]U
	for id, p := range b.batches {
		if len(p.items) == p.size {
			out = append(out, p.items)
			delete(b.batches, id)
		}
	}
	return out
}

// Pending число незавершённых пакетов
func (b *UpdateBatcher[U]) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batches)
}

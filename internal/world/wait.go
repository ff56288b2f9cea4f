package world

import (
	"context"
	"errors"
)

type waitDecision uint8

const (
	waitReady waitDecision = iota
	waitAbsent
	waitPending
)

// waitForSlab повторяет probe, пока слэб не даст результат. Подписка
// оформляется до первой проверки.
func waitForSlab[T any](ctx context.Context, ref *Ref, loc SlabLocation, probe func(d *SlabData) (T, waitDecision)) (T, bool, error) {
	var zero T
	l := ref.Notifier().StartListening()
	defer l.Close()

	for {
		var out T
		decision := waitAbsent
		ref.Read(func(w *World) {
			d := w.SlabData(loc)
			if d == nil || d.state == NotRequested {
				return
			}
			out, decision = probe(d)
		})

		switch decision {
		case waitReady:
			return out, true, nil
		case waitAbsent:
			return zero, false, nil
		}

		if err := l.WaitForSlab(ctx, loc); err != nil && !errors.Is(err, ErrListenerLagged) {
			return zero, false, err
		}
	}
}

// GetOrWaitForSlabVerticalSpace ждёт, пока у слэба появится вертикальное
// пространство. Для незапрошенного слэба возвращает false.
func GetOrWaitForSlabVerticalSpace(ctx context.Context, ref *Ref, loc SlabLocation) (*SlabVerticalSpace, bool, error) {
	return waitForSlab(ctx, ref, loc, func(d *SlabData) (*SlabVerticalSpace, waitDecision) {
		if d.verticalSpace != nil {
			return d.verticalSpace, waitReady
		}
		return nil, waitPending
	})
}

// SlabAreasSnapshot зоны слэба вместе с номером установки графа
type SlabAreasSnapshot struct {
	Areas      []SlabArea
	NavVersion uint64
}

// GetOrWaitForSlabAreas ждёт установки зон слэба
func GetOrWaitForSlabAreas(ctx context.Context, ref *Ref, loc SlabLocation) (SlabAreasSnapshot, bool, error) {
	return waitForSlab(ctx, ref, loc, func(d *SlabData) (SlabAreasSnapshot, waitDecision) {
		if d.navGraph != nil {
			return SlabAreasSnapshot{Areas: d.areas, NavVersion: d.navVersion}, waitReady
		}
		return SlabAreasSnapshot{}, waitPending
	})
}

// GetOrWaitForSlab ждёт, пока блоки слэба окажутся в мире
func GetOrWaitForSlab(ctx context.Context, ref *Ref, loc SlabLocation) (SlabHandle, bool, error) {
	return waitForSlab(ctx, ref, loc, func(d *SlabData) (SlabHandle, waitDecision) {
		if d.terrain != nil {
			return d.terrain.Handle(), waitReady
		}
		return SlabHandle{}, waitPending
	})
}

// WaitForSlabs ждёт, пока все перечисленные слэбы не дойдут до Done
// (незапрошенные слэбы не ждутся)
func (l *LoadListener) WaitForSlabs(ctx context.Context, ref *Ref, slabs []SlabLocation) error {
	pending := make(map[SlabLocation]struct{}, len(slabs))
	for _, s := range slabs {
		pending[s] = struct{}{}
	}

	for {
		ref.Read(func(w *World) {
			for s := range pending {
				if st := w.SlabState(s); st == Done || st == NotRequested {
					delete(pending, s)
				}
			}
		})
		if len(pending) == 0 {
			return nil
		}

		// перепроверяем состояние только по уведомлениям об ожидаемых слэбах
		for {
			loc, err := l.Recv(ctx)
			if errors.Is(err, ErrListenerLagged) {
				break
			}
			if err != nil {
				return err
			}
			if isPending(pending, loc) {
				break
			}
		}
	}
}

func isPending(pending map[SlabLocation]struct{}, loc SlabLocation) bool {
	_, ok := pending[loc]
	return ok
}

// WaitForSlabs подписывается и ждёт слэбы (удобная обёртка)
func (r *Ref) WaitForSlabs(ctx context.Context, slabs []SlabLocation) error {
	l := r.Notifier().StartListening()
	defer l.Close()
	return l.WaitForSlabs(ctx, r, slabs)
}

package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"go.uber.org/zap"
)

type testEvent struct {
	name string
	seq  int
}

func (e testEvent) Name() string { return e.name }

func TestPublish_DeliversInSubscriptionOrder(t *testing.T) {
	bus := New(zap.NewNop())

	var order []string
	bus.Subscribe("ping", func(ctx context.Context, e Event) error {
		order = append(order, "first")
		return nil
	})
	bus.Subscribe("ping", func(ctx context.Context, e Event) error {
		order = append(order, "second")
		return nil
	})

	bus.Publish(context.Background(), testEvent{name: "ping"})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPublish_SynchronousPerEventOrdering(t *testing.T) {
	bus := New(zap.NewNop())

	var seen []int
	bus.Subscribe("ping", func(ctx context.Context, e Event) error {
		seen = append(seen, e.(testEvent).seq)
		return nil
	})

	for i := 1; i <= 10; i++ {
		bus.Publish(context.Background(), testEvent{name: "ping", seq: i})
	}

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, seen,
		"Доставка синхронная, порядок публикации сохраняется")
}

func TestPublish_ListenerErrorDoesNotStopOthers(t *testing.T) {
	bus := New(zap.NewNop())

	var called bool
	bus.Subscribe("ping", func(ctx context.Context, e Event) error {
		return errors.New("что-то пошло не так")
	})
	bus.Subscribe("ping", func(ctx context.Context, e Event) error {
		called = true
		return nil
	})

	bus.Publish(context.Background(), testEvent{name: "ping"})

	assert.True(t, called, "Ошибка одного слушателя не останавливает остальных")
}

func TestPublish_NoListenersIsNoop(t *testing.T) {
	bus := New(zap.NewNop())
	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), testEvent{name: "nobody"})
	})
}

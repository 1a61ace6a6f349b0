package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"activity-engine/internal/entities"
	"activity-engine/internal/gateways"
	"activity-engine/internal/normalizer"
	"activity-engine/pkg/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubGateway - шлюз с заранее заданным ответом (или ошибкой).
type stubGateway struct {
	category entities.Category
	records  []json.RawMessage
	err      error
}

func (s *stubGateway) Category() entities.Category { return s.category }

func (s *stubGateway) FetchRecent(_ context.Context, _ int) ([]json.RawMessage, error) {
	return s.records, s.err
}

func (s *stubGateway) UnreadCount(_ context.Context) (int, error) {
	return 0, s.err
}

var baseTime = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func leaveJSON(id int, status string, ts time.Time) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"id":%d,"employee_name":"Карим Ахмедов","leave_type":"annual","reason":"отпуск","status":%q,"created_at":%q}`,
		id, status, ts.Format(time.RFC3339),
	))
}

func taskJSON(id int, status string, ts time.Time) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"id":%d,"title":"Task %d","assignee_name":"Лола","status":%q,"created_at":%q}`,
		id, id, status, ts.Format(time.RFC3339),
	))
}

func newAggregator(maxItems int, gws ...gateways.Gateway) *Aggregator {
	return New(normalizer.New(zap.NewNop()), gws, maxItems, zap.NewNop())
}

func leaveEvent(id int, status string, ts time.Time) websocket.Envelope {
	return websocket.Envelope{
		Type:       websocket.EventLeaveApplication,
		Data:       leaveJSON(id, status, ts),
		ReceivedAt: ts,
	}
}

func TestHydrate_MergesAllGateways(t *testing.T) {
	agg := newAggregator(50,
		&stubGateway{category: entities.CategoryLeave, records: []json.RawMessage{
			leaveJSON(1, "pending", baseTime.Add(1*time.Minute)),
		}},
		&stubGateway{category: entities.CategoryTask, records: []json.RawMessage{
			taskJSON(7, "todo", baseTime.Add(2*time.Minute)),
		}},
	)

	agg.Hydrate(context.Background(), 20)

	snapshot := agg.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "task-7", snapshot[0].ID, "Более свежая запись должна быть первой")
	assert.Equal(t, "leave-1", snapshot[1].ID)
	assert.False(t, snapshot[0].IsLive, "Bulk-записи не помечаются как live")
}

func TestHydrate_PartialFailureIsolated(t *testing.T) {
	agg := newAggregator(50,
		&stubGateway{category: entities.CategoryLeave, err: fmt.Errorf("сервис недоступен")},
		&stubGateway{category: entities.CategoryTask, records: []json.RawMessage{
			taskJSON(1, "todo", baseTime),
			taskJSON(2, "completed", baseTime.Add(time.Minute)),
		}},
		&stubGateway{category: entities.CategoryChat, records: []json.RawMessage{
			json.RawMessage(fmt.Sprintf(`{"id":5,"sender_name":"Фаррух","preview":"привет","room_name":"general","sent_at":%q}`, baseTime.Format(time.RFC3339))),
		}},
	)

	require.NotPanics(t, func() { agg.Hydrate(context.Background(), 20) })

	snapshot := agg.Snapshot()
	require.Len(t, snapshot, 3)
	for _, item := range snapshot {
		assert.NotEqual(t, entities.CategoryLeave, item.Category,
			"Записи упавшего шлюза не должны появиться в ленте")
	}
}

func TestHydrate_DuplicateIDsLastWriteWins(t *testing.T) {
	// Дубликат внутри выдачи одного шлюза: побеждает версия
	// с большей меткой времени.
	agg := newAggregator(50,
		&stubGateway{category: entities.CategoryLeave, records: []json.RawMessage{
			leaveJSON(1, "pending", baseTime),
			leaveJSON(1, "approved", baseTime.Add(time.Hour)),
		}},
	)

	agg.Hydrate(context.Background(), 20)

	snapshot := agg.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "approved", snapshot[0].Status)
	assert.True(t, snapshot[0].Timestamp.Equal(baseTime.Add(time.Hour)))
}

// Сценарий: bulk-загрузка принесла leave-1 (pending, t=10), push-событие
// позже принесло leave-1 (approved, t=20). В ленте ровно одна запись -
// approved с t=20.
func TestLiveEventReplacesOlderBulkRecord(t *testing.T) {
	t10 := baseTime.Add(10 * time.Second)
	t20 := baseTime.Add(20 * time.Second)

	agg := newAggregator(50,
		&stubGateway{category: entities.CategoryLeave, records: []json.RawMessage{
			leaveJSON(1, "pending", t10),
		}},
	)

	agg.Hydrate(context.Background(), 20)
	agg.ApplyLiveEvent(leaveEvent(1, "approved", t20))

	snapshot := agg.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "leave-1", snapshot[0].ID)
	assert.Equal(t, "approved", snapshot[0].Status)
	assert.True(t, snapshot[0].Timestamp.Equal(t20))
	assert.True(t, snapshot[0].IsLive)
}

// Обратная гонка: live-событие применилось раньше, чем завершился Hydrate.
// Устаревшая bulk-запись не должна затереть более свежую live-версию.
func TestStaleBulkDoesNotClobberNewerLiveItem(t *testing.T) {
	t10 := baseTime.Add(10 * time.Second)
	t20 := baseTime.Add(20 * time.Second)

	agg := newAggregator(50,
		&stubGateway{category: entities.CategoryLeave, records: []json.RawMessage{
			leaveJSON(1, "pending", t10),
		}},
	)

	agg.ApplyLiveEvent(leaveEvent(1, "approved", t20))
	agg.Hydrate(context.Background(), 20)

	snapshot := agg.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "approved", snapshot[0].Status, "Bulk-запись со старой меткой не должна побеждать")
	assert.True(t, snapshot[0].Timestamp.Equal(t20))
}

func TestEqualTimestampIncomingWins(t *testing.T) {
	agg := newAggregator(50)

	agg.ApplyLiveEvent(leaveEvent(1, "pending", baseTime))
	agg.ApplyLiveEvent(leaveEvent(1, "approved", baseTime))

	snapshot := agg.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "approved", snapshot[0].Status, "При равных метках времени побеждает входящая версия")
}

func TestSnapshotOrderingInvariant(t *testing.T) {
	agg := newAggregator(50)

	// Вставляем вразнобой.
	for _, offset := range []int{5, 1, 9, 3, 7} {
		agg.ApplyLiveEvent(leaveEvent(offset, "pending", baseTime.Add(time.Duration(offset)*time.Minute)))
	}

	snapshot := agg.Snapshot()
	require.Len(t, snapshot, 5)
	for i := 1; i < len(snapshot); i++ {
		assert.False(t, snapshot[i-1].Timestamp.Before(snapshot[i].Timestamp),
			"Лента должна быть отсортирована по времени по убыванию")
	}
}

// Сценарий: maxItems=2, bulk-загрузка трех записей t=1,2,3.
// Остаются записи t=2 и t=3.
func TestBounding_EvictsOldest(t *testing.T) {
	agg := newAggregator(2,
		&stubGateway{category: entities.CategoryLeave, records: []json.RawMessage{
			leaveJSON(1, "pending", baseTime.Add(1*time.Minute)),
			leaveJSON(2, "pending", baseTime.Add(2*time.Minute)),
			leaveJSON(3, "pending", baseTime.Add(3*time.Minute)),
		}},
	)

	agg.Hydrate(context.Background(), 20)

	snapshot := agg.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "leave-3", snapshot[0].ID)
	assert.Equal(t, "leave-2", snapshot[1].ID)
}

func TestBounding_HoldsAfterAnySequence(t *testing.T) {
	agg := newAggregator(3)

	for i := 1; i <= 10; i++ {
		agg.ApplyLiveEvent(leaveEvent(i, "pending", baseTime.Add(time.Duration(i)*time.Second)))
		assert.LessOrEqual(t, agg.Len(), 3, "Размер ленты не должен превышать maxItems после любой мутации")
	}

	// Вытесненный ID можно вставить заново - индекс по ID тоже чистится.
	agg.ApplyLiveEvent(leaveEvent(1, "approved", baseTime.Add(time.Hour)))
	assert.Equal(t, 3, agg.Len())
	assert.Equal(t, "leave-1", agg.Snapshot()[0].ID)
}

func TestMalformedEventDropped(t *testing.T) {
	agg := newAggregator(50)

	agg.ApplyLiveEvent(websocket.Envelope{
		Type:       websocket.EventLeaveApplication,
		Data:       json.RawMessage(`{"employee_name":"без id"}`),
		ReceivedAt: baseTime,
	})

	assert.Zero(t, agg.Len(), "Событие без идентификатора должно быть отброшено")
}

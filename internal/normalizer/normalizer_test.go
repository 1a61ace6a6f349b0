package normalizer

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"activity-engine/internal/entities"
	apperrors "activity-engine/pkg/errors"
	"activity-engine/pkg/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var recordTime = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

func testNormalizer() *Normalizer {
	return New(zap.NewNop())
}

func TestNormalizeRecord_Leave(t *testing.T) {
	data := json.RawMessage(fmt.Sprintf(
		`{"id":482,"employee_name":"Карим Ахмедов","leave_type":"sick","reason":"болею","status":"pending","created_at":%q}`,
		recordTime.Format(time.RFC3339),
	))

	item, ok := testNormalizer().NormalizeRecord(entities.CategoryLeave, data)
	require.True(t, ok)

	assert.Equal(t, "leave-482", item.ID)
	assert.Equal(t, entities.CategoryLeave, item.Category)
	assert.Equal(t, "Leave Request", item.Title)
	assert.Equal(t, "Карим Ахмедов • sick", item.Subtitle)
	assert.Equal(t, "болею", item.Description)
	assert.Equal(t, "pending", item.Status)
	assert.Equal(t, entities.PriorityHigh, item.Priority, "Ожидающая заявка на отпуск - high, пока не рассмотрена")
	assert.True(t, item.Timestamp.Equal(recordTime))
	assert.False(t, item.IsLive)
	assert.JSONEq(t, string(data), string(item.Raw), "Сырые данные сохраняются для действий без повторного запроса")
}

func TestNormalizeRecord_LeaveResolvedPriorityDrops(t *testing.T) {
	data := json.RawMessage(fmt.Sprintf(
		`{"id":1,"employee_name":"А","leave_type":"annual","status":"approved","created_at":%q}`,
		recordTime.Format(time.RFC3339),
	))

	item, ok := testNormalizer().NormalizeRecord(entities.CategoryLeave, data)
	require.True(t, ok)
	assert.Equal(t, entities.PriorityLow, item.Priority)
}

func TestNormalizeRecord_AttendanceClockedIn(t *testing.T) {
	data := json.RawMessage(fmt.Sprintf(
		`{"id":9,"employee_name":"Лола Саидова","clock_in":%q,"clock_out":null}`,
		recordTime.Format(time.RFC3339),
	))

	item, ok := testNormalizer().NormalizeRecord(entities.CategoryAttendance, data)
	require.True(t, ok)

	assert.Equal(t, "attendance-9", item.ID)
	assert.Equal(t, "Clocked In", item.Subtitle)
	assert.Equal(t, entities.StatusInfo, item.Status, "У журнала посещаемости нет своего статуса")
	assert.True(t, item.Timestamp.Equal(recordTime))
}

func TestNormalizeRecord_AttendanceClockedOut(t *testing.T) {
	out := recordTime.Add(8 * time.Hour)
	data := json.RawMessage(fmt.Sprintf(
		`{"id":9,"employee_name":"Лола Саидова","clock_in":%q,"clock_out":%q}`,
		recordTime.Format(time.RFC3339), out.Format(time.RFC3339),
	))

	item, ok := testNormalizer().NormalizeRecord(entities.CategoryAttendance, data)
	require.True(t, ok)

	assert.Equal(t, "Clocked Out", item.Subtitle)
	assert.True(t, item.Timestamp.Equal(out), "Уход перекрывает приход и в метке времени")
}

func TestNormalizeRecord_TaskUpdateHasOwnIDPrefix(t *testing.T) {
	data := json.RawMessage(fmt.Sprintf(
		`{"id":5,"title":"Отчет за квартал","assignee_name":"Фаррух","status":"in_progress","created_at":%q}`,
		recordTime.Format(time.RFC3339),
	))

	n := testNormalizer()

	task, ok := n.NormalizeRecord(entities.CategoryTask, data)
	require.True(t, ok)
	update, ok := n.NormalizeRecord(entities.CategoryTaskUpdate, data)
	require.True(t, ok)

	assert.Equal(t, "task-5", task.ID)
	assert.Equal(t, "task-update-5", update.ID, "Обновление задачи не должно вытеснять запись о назначении")
	assert.Equal(t, entities.PriorityMedium, task.Priority)
}

func TestNormalizeRecord_MissingIDDropped(t *testing.T) {
	data := json.RawMessage(fmt.Sprintf(`{"employee_name":"без id","created_at":%q}`, recordTime.Format(time.RFC3339)))

	_, ok := testNormalizer().NormalizeRecord(entities.CategoryLeave, data)
	assert.False(t, ok)
}

func TestNormalizeRecord_MissingTimestampDropped(t *testing.T) {
	data := json.RawMessage(`{"id":3,"employee_name":"без даты","leave_type":"annual","status":"pending"}`)

	_, ok := testNormalizer().NormalizeRecord(entities.CategoryLeave, data)
	assert.False(t, ok, "Bulk-запись без метки времени отбрасывается")
}

func TestNormalizeRecord_GarbageInputDoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() {
		_, ok := testNormalizer().NormalizeRecord(entities.CategoryTask, json.RawMessage(`{{{`))
		assert.False(t, ok)
	})
}

func TestNormalizeEvent_StampsReceiptTimeWhenMissing(t *testing.T) {
	received := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	item, ok := testNormalizer().NormalizeEvent(websocket.Envelope{
		Type:       websocket.EventNewMessage,
		Data:       json.RawMessage(`{"id":7,"sender_name":"Фаррух","preview":"привет","room_name":"general"}`),
		ReceivedAt: received,
	})
	require.True(t, ok)

	assert.True(t, item.Timestamp.Equal(received), "Событие без метки времени штампуется временем получения")
	assert.True(t, item.IsLive)
	assert.Equal(t, "chat-7", item.ID)
}

func TestNormalizeEvent_UnknownTypeDropped(t *testing.T) {
	_, ok := testNormalizer().NormalizeEvent(websocket.Envelope{
		Type:       "SOMETHING_ELSE",
		Data:       json.RawMessage(`{"id":1}`),
		ReceivedAt: recordTime,
	})
	assert.False(t, ok)
}

func TestCategoryForEvent(t *testing.T) {
	cases := map[string]entities.Category{
		websocket.EventLeaveApplication: entities.CategoryLeave,
		websocket.EventTaskAssigned:     entities.CategoryTask,
		websocket.EventTaskUpdate:       entities.CategoryTaskUpdate,
		websocket.EventAttendanceLog:    entities.CategoryAttendance,
		websocket.EventNewMessage:       entities.CategoryChat,
	}
	for eventType, expected := range cases {
		category, ok := CategoryForEvent(eventType)
		require.True(t, ok, eventType)
		assert.Equal(t, expected, category)
	}

	_, ok := CategoryForEvent(websocket.EventDashboardUpdate)
	assert.False(t, ok, "DASHBOARD_UPDATE не порождает записей ленты")
}

// Диагностика отбрасывания несет конкретную причину, а не просто факт.
func TestDroppedInputCarriesReason(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := New(zap.New(core))

	_, ok := n.NormalizeRecord(entities.CategoryLeave,
		json.RawMessage(`{"id":3,"employee_name":"без даты","leave_type":"annual","status":"pending"}`))
	require.False(t, ok)

	_, ok = n.NormalizeEvent(websocket.Envelope{
		Type:       "SOMETHING_ELSE",
		Data:       json.RawMessage(`{"id":1}`),
		ReceivedAt: recordTime,
	})
	require.False(t, ok)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, apperrors.ErrMissingTimestamp.Error(), entries[0].ContextMap()["error"])
	assert.Equal(t, apperrors.ErrUnknownEventType.Error(), entries[1].ContextMap()["error"])
}

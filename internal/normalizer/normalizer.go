package normalizer

import (
	"encoding/json"
	"fmt"

	"activity-engine/internal/entities"
	apperrors "activity-engine/pkg/errors"
	"activity-engine/pkg/websocket"

	"go.uber.org/zap"
)

// mapperFunc собирает ActivityItem из сырых данных одной категории.
// Timestamp может остаться нулевым - решение о запасной метке времени
// принимает вызывающая сторона (у событий есть время получения, у
// bulk-записей нет).
type mapperFunc func(data json.RawMessage) (entities.ActivityItem, error)

// eventCategories - соответствие типа push-события категории ленты.
// DASHBOARD_UPDATE здесь отсутствует намеренно: он не порождает записи,
// только общий счетчик liveActivity.
var eventCategories = map[string]entities.Category{
	websocket.EventLeaveApplication: entities.CategoryLeave,
	websocket.EventTaskAssigned:     entities.CategoryTask,
	websocket.EventTaskUpdate:       entities.CategoryTaskUpdate,
	websocket.EventAttendanceLog:    entities.CategoryAttendance,
	websocket.EventNewMessage:       entities.CategoryChat,
}

// Normalizer приводит разнородные записи шлюзов и push-события к одной
// канонической форме. Таблица мапперов - единственное место, где живет
// зависящая от категории логика полей; раньше она была размазана по
// четырем виджетам.
type Normalizer struct {
	logger  *zap.Logger
	mappers map[entities.Category]mapperFunc
}

func New(logger *zap.Logger) *Normalizer {
	return &Normalizer{
		logger: logger,
		mappers: map[entities.Category]mapperFunc{
			entities.CategoryLeave:      mapLeave,
			entities.CategoryTask:       mapTask(entities.CategoryTask, "task"),
			entities.CategoryTaskUpdate: mapTask(entities.CategoryTaskUpdate, "task-update"),
			entities.CategoryAttendance: mapAttendance,
			entities.CategoryChat:       mapChat,
		},
	}
}

// CategoryForEvent возвращает категорию ленты для типа push-события.
func CategoryForEvent(eventType string) (entities.Category, bool) {
	c, ok := eventCategories[eventType]
	return c, ok
}

// NormalizeRecord нормализует bulk-запись шлюза. Запись без идентификатора
// или метки времени отбрасывается с диагностикой - наверх ошибка не летит,
// вызывающий просто не получает элемент.
func (n *Normalizer) NormalizeRecord(category entities.Category, data json.RawMessage) (entities.ActivityItem, bool) {
	item, err := n.build(category, data)
	if err != nil {
		n.logger.Warn("Запись отброшена нормализатором",
			zap.String("category", string(category)),
			zap.Error(err),
		)
		return entities.ActivityItem{}, false
	}
	if item.Timestamp.IsZero() {
		n.logger.Warn("Запись отброшена нормализатором",
			zap.String("category", string(category)),
			zap.String("id", item.ID),
			zap.Error(apperrors.ErrMissingTimestamp),
		)
		return entities.ActivityItem{}, false
	}
	return item, true
}

// NormalizeEvent нормализует push-событие. Событие без собственной метки
// времени штампуется временем получения.
func (n *Normalizer) NormalizeEvent(env websocket.Envelope) (entities.ActivityItem, bool) {
	category, ok := CategoryForEvent(env.Type)
	if !ok {
		n.logger.Warn("Push-событие отброшено нормализатором",
			zap.String("type", env.Type),
			zap.String("eventID", env.EventID),
			zap.Error(apperrors.ErrUnknownEventType),
		)
		return entities.ActivityItem{}, false
	}

	item, err := n.build(category, env.Data)
	if err != nil {
		n.logger.Warn("Push-событие отброшено нормализатором",
			zap.String("type", env.Type),
			zap.String("eventID", env.EventID),
			zap.Error(err),
		)
		return entities.ActivityItem{}, false
	}

	if item.Timestamp.IsZero() {
		item.Timestamp = env.ReceivedAt
	}
	item.IsLive = true
	return item, true
}

func (n *Normalizer) build(category entities.Category, data json.RawMessage) (entities.ActivityItem, error) {
	mapper, ok := n.mappers[category]
	if !ok {
		return entities.ActivityItem{}, apperrors.ErrUnknownCategory
	}

	item, err := mapper(data)
	if err != nil {
		return entities.ActivityItem{}, err
	}
	item.Raw = data
	return item, nil
}

// priorityForStatus - доменное правило: нерешенные вещи важнее решенных.
// Ожидающая заявка на отпуск остается high, пока ее не рассмотрят.
func priorityForStatus(status string) entities.Priority {
	switch status {
	case "pending":
		return entities.PriorityHigh
	case "todo", "in_progress":
		return entities.PriorityMedium
	default:
		return entities.PriorityLow
	}
}

func mapLeave(data json.RawMessage) (entities.ActivityItem, error) {
	var r entities.LeaveRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return entities.ActivityItem{}, fmt.Errorf("не удалось разобрать запись отпуска: %w", err)
	}
	if r.ID == 0 {
		return entities.ActivityItem{}, apperrors.ErrMissingID
	}

	status := r.Status
	if status == "" {
		status = "pending"
	}

	return entities.ActivityItem{
		ID:          fmt.Sprintf("leave-%d", r.ID),
		Category:    entities.CategoryLeave,
		Title:       "Leave Request",
		Subtitle:    r.EmployeeName + " • " + r.LeaveType,
		Description: r.Reason.String,
		Timestamp:   r.CreatedAt,
		Status:      status,
		Priority:    priorityForStatus(status),
	}, nil
}

// mapTask обслуживает обе задачные категории: назначение и обновление.
// У обновления свой префикс идентификатора, поэтому повторные обновления
// одной задачи схлопываются в самое свежее, не трогая исходную запись
// о назначении.
func mapTask(category entities.Category, idPrefix string) mapperFunc {
	return func(data json.RawMessage) (entities.ActivityItem, error) {
		var r entities.TaskRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return entities.ActivityItem{}, fmt.Errorf("не удалось разобрать запись задачи: %w", err)
		}
		if r.ID == 0 {
			return entities.ActivityItem{}, apperrors.ErrMissingID
		}

		ts := r.CreatedAt
		if r.UpdatedAt.Valid {
			ts = r.UpdatedAt.Time
		}

		title := r.Title
		if category == entities.CategoryTaskUpdate {
			title = "Task Updated: " + r.Title
		}

		return entities.ActivityItem{
			ID:          fmt.Sprintf("%s-%d", idPrefix, r.ID),
			Category:    category,
			Title:       title,
			Subtitle:    "Assigned to " + r.AssigneeName,
			Description: r.Description.String,
			Timestamp:   ts,
			Status:      r.Status,
			Priority:    priorityForStatus(r.Status),
		}, nil
	}
}

func mapAttendance(data json.RawMessage) (entities.ActivityItem, error) {
	var r entities.AttendanceRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return entities.ActivityItem{}, fmt.Errorf("не удалось разобрать запись посещаемости: %w", err)
	}
	if r.ID == 0 {
		return entities.ActivityItem{}, apperrors.ErrMissingID
	}

	// Уход перекрывает приход: и подпись, и метка времени.
	subtitle := "Clocked In"
	ts := r.ClockIn
	if r.ClockOut.Valid {
		subtitle = "Clocked Out"
		ts = r.ClockOut.Time
	}

	return entities.ActivityItem{
		ID:        fmt.Sprintf("attendance-%d", r.ID),
		Category:  entities.CategoryAttendance,
		Title:     r.EmployeeName,
		Subtitle:  subtitle,
		Timestamp: ts,
		Status:    entities.StatusInfo,
		Priority:  entities.PriorityLow,
	}, nil
}

func mapChat(data json.RawMessage) (entities.ActivityItem, error) {
	var r entities.ChatMessageRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return entities.ActivityItem{}, fmt.Errorf("не удалось разобрать сообщение чата: %w", err)
	}
	if r.ID == 0 {
		return entities.ActivityItem{}, apperrors.ErrMissingID
	}

	return entities.ActivityItem{
		ID:          fmt.Sprintf("chat-%d", r.ID),
		Category:    entities.CategoryChat,
		Title:       r.SenderName,
		Subtitle:    r.RoomName,
		Description: r.Preview,
		Timestamp:   r.SentAt,
		Status:      entities.StatusInfo,
		Priority:    entities.PriorityLow,
	}, nil
}

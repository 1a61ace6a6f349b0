package entities

import (
	"encoding/json"
	"time"
)

// Category - грубый ключ маршрутизации для фильтров и счетчиков.
type Category string

const (
	CategoryLeave      Category = "LEAVE"
	CategoryTask       Category = "TASK"
	CategoryTaskUpdate Category = "TASK_UPDATE"
	CategoryAttendance Category = "ATTENDANCE"
	CategoryChat       Category = "CHAT"

	// CategoryLiveActivity - синтетическая категория "что-то новое где-то есть".
	// Участвует только в счетчиках, в ленте таких записей не бывает.
	CategoryLiveActivity Category = "liveActivity"
)

// Categories - все категории, по которым собирается лента.
var Categories = []Category{
	CategoryLeave,
	CategoryTask,
	CategoryTaskUpdate,
	CategoryAttendance,
	CategoryChat,
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// StatusInfo - статус для категорий без собственного статуса (логи посещаемости).
const StatusInfo = "info"

// ActivityItem - каноническая единица ленты активности. После создания
// не изменяется: "обновление" записи - это новый ActivityItem с тем же ID,
// который вытесняет старый в агрегаторе.
type ActivityItem struct {
	// ID стабилен и одинаков для записи из bulk-загрузки и push-события
	// об одной и той же доменной сущности (например "leave-482").
	// Это ключ дедупликации.
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
	Description string   `json:"description,omitempty"`

	// Timestamp - время события или создания записи, по нему сортируется лента.
	Timestamp time.Time `json:"timestamp"`

	Status   string   `json:"status"`
	Priority Priority `json:"priority"`

	// IsLive - запись пришла по push-каналу, а не из bulk-загрузки.
	// Только для подсветки в UI, в дедупликации и сортировке не участвует.
	IsLive bool `json:"is_live"`

	// Raw - исходные данные домена для действий над записью
	// (одобрить/отклонить отпуск) без повторного запроса.
	Raw json.RawMessage `json:"raw,omitempty"`
}

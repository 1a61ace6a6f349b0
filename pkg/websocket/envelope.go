package websocket

import (
	"encoding/json"
	"time"
)

// Типы push-событий, которые присылает платформа.
const (
	EventLeaveApplication = "LEAVE_APPLICATION"
	EventTaskAssigned     = "TASK_ASSIGNED"
	EventTaskUpdate       = "TASK_UPDATE"
	EventAttendanceLog    = "ATTENDANCE_LOG"
	EventNewMessage       = "NEW_MESSAGE"
	EventDashboardUpdate  = "DASHBOARD_UPDATE"

	// EventConnectionError - локальное событие об ошибке транспорта.
	// Оно не приходит с сервера, его генерирует сама сессия.
	EventConnectionError = "connectionError"
)

// Envelope - "конверт", в котором приходят push-события.
// Тип сообщения позволяет понять, какой нормализатор применять к данным.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`

	// ReceivedAt проставляется сессией в момент получения.
	// Используется как запасная метка времени для событий без собственной.
	ReceivedAt time.Time `json:"-"`

	// EventID - локальный идентификатор доставки для логов и диагностики.
	EventID string `json:"-"`
}

// Name реализует eventbus.Event, чтобы конверт можно было класть в шину как есть.
func (e Envelope) Name() string { return e.Type }

// joinFrame - первый кадр после подключения: вступление в группу
// маршрутизации пользователя, чтобы сервер знал, кому слать события.
type joinFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

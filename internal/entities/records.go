package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// Сырые записи доменных сервисов в том виде, в каком их отдают шлюзы.

// LeaveRecord - заявка на отпуск.
type LeaveRecord struct {
	ID           uint64      `json:"id"`
	EmployeeName string      `json:"employee_name"`
	LeaveType    string      `json:"leave_type"`
	Reason       null.String `json:"reason"`
	Status       string      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}

// TaskRecord - задача или обновление задачи.
type TaskRecord struct {
	ID           uint64      `json:"id"`
	Title        string      `json:"title"`
	AssigneeName string      `json:"assignee_name"`
	Description  null.String `json:"description"`
	Status       string      `json:"status"`
	DueDate      null.Time   `json:"due_date"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    null.Time   `json:"updated_at"`
}

// AttendanceRecord - запись журнала посещаемости. ClockOut пустой,
// пока сотрудник не отметил уход.
type AttendanceRecord struct {
	ID           uint64    `json:"id"`
	EmployeeName string    `json:"employee_name"`
	ClockIn      time.Time `json:"clock_in"`
	ClockOut     null.Time `json:"clock_out"`
}

// ChatMessageRecord - сообщение корпоративного чата.
type ChatMessageRecord struct {
	ID         uint64    `json:"id"`
	SenderName string    `json:"sender_name"`
	Preview    string    `json:"preview"`
	RoomName   string    `json:"room_name"`
	SentAt     time.Time `json:"sent_at"`
}

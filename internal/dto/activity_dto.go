package dto

import "activity-engine/internal/entities"

// ActivityFilterDTO - параметры фильтрации ленты из query-строки.
type ActivityFilterDTO struct {
	Category     string `query:"category" validate:"omitempty,oneof=LEAVE TASK TASK_UPDATE ATTENDANCE CHAT"`
	StatusBucket string `query:"status_bucket" validate:"omitempty,oneof=all pending resolved"`
	DateRange    string `query:"date_range" validate:"omitempty,oneof=all today last7days"`
	Search       string `query:"q"`
}

// ActivityFeedDTO - ответ ленты.
type ActivityFeedDTO struct {
	Items []entities.ActivityItem `json:"items"`
	Total int                     `json:"total"`
}

// CountersDTO - счетчики непрочитанного по категориям.
type CountersDTO struct {
	Counters map[entities.Category]int `json:"counters"`
}

// ViewingDTO - явный сигнал "пользователь сейчас смотрит категорию".
type ViewingDTO struct {
	Viewing bool `json:"viewing"`
}

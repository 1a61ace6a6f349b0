package gateways

import (
	"context"
	"encoding/json"

	"activity-engine/internal/entities"
)

// Gateway - контракт доменного сервиса для движка. Каждая категория
// отдает "последние записи" и количество ожидающих/непрочитанных.
// Контракт best-effort: упавший шлюз изолируется, его записи просто
// не попадают в слияние.
type Gateway interface {
	Category() entities.Category

	// FetchRecent возвращает до limit последних записей категории
	// в сыром виде. Форму записи знает нормализатор.
	FetchRecent(ctx context.Context, limit int) ([]json.RawMessage, error)

	// UnreadCount - количество записей, которые доменный сервис сам
	// считает ожидающими внимания (например отпуска в статусе pending).
	UnreadCount(ctx context.Context) (int, error)
}

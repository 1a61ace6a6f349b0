package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"activity-engine/internal/entities"
	"activity-engine/pkg/config"
	apperrors "activity-engine/pkg/errors"

	"go.uber.org/zap"
)

// httpGateway - универсальный HTTP-клиент доменного сервиса.
// Все четыре шлюза отличаются только адресом и путями.
type httpGateway struct {
	category   entities.Category
	baseURL    string
	recentPath string
	unreadPath string
	httpClient *http.Client
	logger     *zap.Logger
}

// recentResponse - конверт списочного эндпоинта: { "data": [...] }.
type recentResponse struct {
	Data []json.RawMessage `json:"data"`
}

type countResponse struct {
	Count int `json:"count"`
}

func (g *httpGateway) Category() entities.Category { return g.category }

func (g *httpGateway) FetchRecent(ctx context.Context, limit int) ([]json.RawMessage, error) {
	url := fmt.Sprintf("%s%s?limit=%d", g.baseURL, g.recentPath, limit)

	body, err := g.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var parsed recentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("не удалось разобрать ответ сервиса '%s': %w", g.category, err)
	}

	return parsed.Data, nil
}

func (g *httpGateway) UnreadCount(ctx context.Context) (int, error) {
	body, err := g.get(ctx, g.baseURL+g.unreadPath)
	if err != nil {
		return 0, err
	}

	var parsed countResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("не удалось разобрать счетчик сервиса '%s': %w", g.category, err)
	}

	return parsed.Count, nil
}

func (g *httpGateway) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GET-запроса: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения GET-запроса для '%s': %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("сервис '%s' вернул статус %s: %w", g.category, resp.Status, apperrors.ErrGatewayStatus)
	}

	return io.ReadAll(resp.Body)
}

func newHTTPGateway(category entities.Category, baseURL, recentPath, unreadPath string, timeout time.Duration, logger *zap.Logger) Gateway {
	return &httpGateway{
		category:   category,
		baseURL:    baseURL,
		recentPath: recentPath,
		unreadPath: unreadPath,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func NewLeaveGateway(cfg config.GatewayConfig, logger *zap.Logger) Gateway {
	return newHTTPGateway(entities.CategoryLeave, cfg.LeaveBaseURL,
		"/api/leaves/recent", "/api/leaves/pending/count", cfg.RequestTimeout, logger)
}

func NewTaskGateway(cfg config.GatewayConfig, logger *zap.Logger) Gateway {
	return newHTTPGateway(entities.CategoryTask, cfg.TaskBaseURL,
		"/api/tasks/recent", "/api/tasks/open/count", cfg.RequestTimeout, logger)
}

func NewAttendanceGateway(cfg config.GatewayConfig, logger *zap.Logger) Gateway {
	return newHTTPGateway(entities.CategoryAttendance, cfg.AttendanceBaseURL,
		"/api/attendance/recent", "/api/attendance/today/count", cfg.RequestTimeout, logger)
}

func NewChatGateway(cfg config.GatewayConfig, logger *zap.Logger) Gateway {
	return newHTTPGateway(entities.CategoryChat, cfg.ChatBaseURL,
		"/api/messages/recent", "/api/messages/unread/count", cfg.RequestTimeout, logger)
}

// All собирает шлюзы всех категорий в порядке их объявления.
func All(cfg config.GatewayConfig, logger *zap.Logger) []Gateway {
	return []Gateway{
		NewLeaveGateway(cfg, logger),
		NewTaskGateway(cfg, logger),
		NewAttendanceGateway(cfg, logger),
		NewChatGateway(cfg, logger),
	}
}

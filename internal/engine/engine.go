package engine

import (
	"context"
	"sync"
	"time"

	"activity-engine/internal/aggregator"
	"activity-engine/internal/counters"
	"activity-engine/internal/entities"
	"activity-engine/internal/gateways"
	"activity-engine/internal/normalizer"
	"activity-engine/internal/repositories"
	"activity-engine/pkg/config"
	"activity-engine/pkg/eventbus"
	"activity-engine/pkg/websocket"

	"go.uber.org/zap"
)

// platformEvents - типы событий, на которые движок подписывается у сессии.
var platformEvents = []string{
	websocket.EventLeaveApplication,
	websocket.EventTaskAssigned,
	websocket.EventTaskUpdate,
	websocket.EventAttendanceLog,
	websocket.EventNewMessage,
	websocket.EventDashboardUpdate,
}

// Engine - явно собираемый объект сессии движка вместо глобального сокета
// и глобальных счетчиков. Несколько независимых Engine (тесты, несколько
// тенантов) не мешают друг другу.
//
// Поток данных один и направленный: сессия кладет конверты в шину, агрегатор
// и хранилище счетчиков - независимые потребители шины. Шлюзы дают только
// bulk-наполнение и сверку счетчиков.
type Engine struct {
	cfg        *config.Config
	logger     *zap.Logger
	session    *websocket.Session
	bus        *eventbus.Bus
	normalizer *normalizer.Normalizer

	Aggregator *aggregator.Aggregator
	Counters   *counters.Store

	mu           sync.Mutex
	unsubscribes []func()
	stopRefresh  chan struct{}
	started      bool
}

func New(cfg *config.Config, repo repositories.ReadStateRepositoryInterface, logger *zap.Logger) *Engine {
	gws := gateways.All(cfg.Gateway, logger)
	n := normalizer.New(logger)

	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		session:    websocket.NewSession(cfg.Push, logger),
		bus:        eventbus.New(logger),
		normalizer: n,
		Aggregator: aggregator.New(n, gws, cfg.Feed.MaxItems, logger),
		Counters:   counters.NewStore(repo, gws, logger),
	}

	e.registerConsumers()
	return e
}

// registerConsumers подписывает обоих потребителей на шину. Агрегатор
// игнорирует DASHBOARD_UPDATE (у него нет тела для ленты), счетчики
// учитывают все события платформы.
func (e *Engine) registerConsumers() {
	for _, eventType := range platformEvents {
		eventType := eventType

		if eventType != websocket.EventDashboardUpdate {
			e.bus.Subscribe(eventType, func(_ context.Context, event eventbus.Event) error {
				if env, ok := event.(websocket.Envelope); ok {
					e.Aggregator.ApplyLiveEvent(env)
				}
				return nil
			})
		}

		e.bus.Subscribe(eventType, func(_ context.Context, event eventbus.Event) error {
			if env, ok := event.(websocket.Envelope); ok {
				e.Counters.ApplyLiveEvent(env.Type, e.eventTimestamp(env))
			}
			return nil
		})
	}
}

// eventTimestamp - метка времени события для сверки с отметкой прочтения.
// Берется из самой полезной нагрузки: доставленное после переподключения
// старое событие не должно считаться непрочитанным, если его уже накрыл
// MarkAsRead. Время получения - запасной вариант для DASHBOARD_UPDATE
// и событий, которые не удалось разобрать.
func (e *Engine) eventTimestamp(env websocket.Envelope) time.Time {
	if env.Type == websocket.EventDashboardUpdate {
		return env.ReceivedAt
	}
	if item, ok := e.normalizer.NormalizeEvent(env); ok {
		return item.Timestamp
	}
	return env.ReceivedAt
}

// Account - учетная запись, для которой сейчас живут счетчики и ReadState.
func (e *Engine) Account() (tenantID, userID string) {
	return e.Counters.Account()
}

// Start поднимает сессию движка для учетной записи: переинициализирует
// счетчики, открывает push-канал, выполняет bulk-наполнение ленты и
// запускает периодическую сверку счетчиков.
func (e *Engine) Start(ctx context.Context, identity websocket.Identity) error {
	e.Counters.Init(ctx, identity.TenantID, identity.UserID)

	e.mu.Lock()
	if !e.started {
		for _, eventType := range platformEvents {
			unsub := e.session.Subscribe(eventType, func(env websocket.Envelope) {
				e.bus.Publish(context.Background(), env)
			})
			e.unsubscribes = append(e.unsubscribes, unsub)
		}

		unsub := e.session.Subscribe(websocket.EventConnectionError, func(env websocket.Envelope) {
			// Не фатально: подписки сохраняются, переподключение - политика
			// вызывающего кода.
			e.logger.Warn("Ошибка push-канала", zap.ByteString("data", env.Data))
		})
		e.unsubscribes = append(e.unsubscribes, unsub)
		e.started = true
	}
	e.mu.Unlock()

	if err := e.session.Connect(ctx, identity); err != nil {
		return err
	}

	e.Hydrate(ctx)
	e.startRefreshLoop()
	return nil
}

// Hydrate - bulk-загрузка ленты и первичная сверка счетчиков.
// Может вызываться повторно для принудительного обновления.
func (e *Engine) Hydrate(ctx context.Context) {
	e.Aggregator.Hydrate(ctx, e.cfg.Gateway.FetchLimit)
	e.Counters.RefreshFromServer(ctx)
}

// startRefreshLoop запускает периодическую сверку счетчиков с серверами,
// закрывая дрейф после пропущенных в офлайне событий.
func (e *Engine) startRefreshLoop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopRefresh != nil {
		return
	}

	stop := make(chan struct{})
	e.stopRefresh = stop

	go func() {
		ticker := time.NewTicker(e.cfg.Feed.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Gateway.RequestTimeout)
				e.Counters.RefreshFromServer(ctx)
				cancel()
			case <-stop:
				return
			}
		}
	}()
}

// Shutdown останавливает сессию движка: сверку, push-канал, подписки.
// После возврата ни один обработчик событий больше не сработает.
// Обязателен при logout.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.stopRefresh != nil {
		close(e.stopRefresh)
		e.stopRefresh = nil
	}
	unsubscribes := e.unsubscribes
	e.unsubscribes = nil
	e.started = false
	e.mu.Unlock()

	e.session.Disconnect()
	for _, unsub := range unsubscribes {
		unsub()
	}
}

// Snapshot - канонический срез ленты для слоя представления.
func (e *Engine) Snapshot() []entities.ActivityItem {
	return e.Aggregator.Snapshot()
}

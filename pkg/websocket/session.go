package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"activity-engine/pkg/config"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultWriteWait = 10 * time.Second
	defaultPongWait  = 60 * time.Second
	maxMessageSize   = 64 * 1024
)

// Identity - учетная запись, от имени которой открыт push-канал.
type Identity struct {
	UserID    string
	TenantID  string
	AuthToken string
}

// Handler вызывается по одному разу на каждое полученное событие своего типа,
// в порядке получения. Порядок между РАЗНЫМИ типами не гарантируется.
type Handler func(env Envelope)

type handlerEntry struct {
	id int
	fn Handler
}

// Session владеет одним живым push-соединением на авторизованного пользователя.
// Политика переподключения - забота вызывающего кода: при обрыве сессия
// публикует событие connectionError и останавливает цикл чтения, подписки
// при этом сохраняются и переживают повторный Connect.
type Session struct {
	endpoint  string
	dialer    *websocket.Dialer
	logger    *zap.Logger
	writeWait time.Duration
	pongWait  time.Duration

	mu       sync.Mutex
	conn     *websocket.Conn
	identity *Identity
	closed   bool
	readDone sync.WaitGroup

	handlersMu sync.RWMutex
	handlers   map[string][]handlerEntry
	nextID     int
}

func NewSession(cfg config.PushConfig, logger *zap.Logger) *Session {
	writeWait := cfg.WriteTimeout
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	pongWait := cfg.PongTimeout
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	return &Session{
		endpoint:  cfg.Endpoint,
		dialer:    websocket.DefaultDialer,
		logger:    logger,
		writeWait: writeWait,
		pongWait:  pongWait,
		handlers:  make(map[string][]handlerEntry),
	}
}

// Connect устанавливает соединение для указанной учетной записи.
// Повторный вызов для той же записи - no-op; для другой записи сначала
// разрывается предыдущее соединение.
func (s *Session) Connect(ctx context.Context, identity Identity) error {
	s.mu.Lock()

	if s.conn != nil && s.identity != nil && *s.identity == identity {
		s.mu.Unlock()
		return nil
	}
	if s.conn != nil {
		s.teardownLocked()
		s.mu.Unlock()
		s.readDone.Wait()
		s.mu.Lock()
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+identity.AuthToken)
	header.Set("X-Tenant-ID", identity.TenantID)

	conn, resp, err := s.dialer.DialContext(ctx, s.endpoint, header)
	if err != nil {
		s.mu.Unlock()
		if resp != nil {
			return fmt.Errorf("не удалось открыть push-канал (статус %s): %w", resp.Status, err)
		}
		return fmt.Errorf("не удалось открыть push-канал: %w", err)
	}

	// Вступаем в группу маршрутизации пользователя.
	joinData, _ := json.Marshal(map[string]string{
		"user_id":   identity.UserID,
		"tenant_id": identity.TenantID,
	})
	_ = conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	if err := conn.WriteJSON(joinFrame{Type: "JOIN", Data: joinData}); err != nil {
		conn.Close()
		s.mu.Unlock()
		return fmt.Errorf("не удалось вступить в группу маршрутизации: %w", err)
	}

	ident := identity
	s.conn = conn
	s.identity = &ident
	s.closed = false

	s.readDone.Add(1)
	go s.readPump(conn)

	s.logger.Info("Push-сессия установлена",
		zap.String("userID", identity.UserID),
		zap.String("tenantID", identity.TenantID),
	)
	s.mu.Unlock()
	return nil
}

// Subscribe регистрирует обработчик событий указанного типа.
// Возвращаемая функция снимает подписку.
func (s *Session) Subscribe(eventType string, handler Handler) func() {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()

	s.nextID++
	id := s.nextID
	s.handlers[eventType] = append(s.handlers[eventType], handlerEntry{id: id, fn: handler})

	return func() {
		s.handlersMu.Lock()
		defer s.handlersMu.Unlock()
		entries := s.handlers[eventType]
		for i, e := range entries {
			if e.id == id {
				s.handlers[eventType] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
	}
}

// Disconnect разрывает соединение. Вызов синхронный: после возврата ни один
// обработчик больше не будет вызван. Обязателен при logout и остановке
// приложения, иначе события продолжат приходить устаревшей учетной записи.
// Нельзя вызывать изнутри обработчика.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.teardownLocked()
	s.mu.Unlock()
	s.readDone.Wait()
}

// Connected сообщает, есть ли сейчас живое соединение.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil && !s.closed
}

func (s *Session) teardownLocked() {
	if s.conn == nil {
		return
	}
	s.closed = true
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.conn.Close()
	s.conn = nil
	s.identity = nil
}

func (s *Session) readPump(conn *websocket.Conn) {
	defer s.readDone.Done()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(s.writeWait))
	})

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			s.mu.Lock()
			wasClosed := s.closed
			if !wasClosed {
				// Обрыв не по нашей инициативе: чистим состояние,
				// чтобы следующий Connect открыл канал заново.
				s.closed = true
				s.conn = nil
				s.identity = nil
			}
			s.mu.Unlock()

			if !wasClosed {
				conn.Close()
				s.logger.Warn("Push-канал оборвался", zap.Error(err))
				errData, _ := json.Marshal(map[string]string{"error": err.Error()})
				s.dispatch(Envelope{
					Type:       EventConnectionError,
					Data:       errData,
					ReceivedAt: time.Now().UTC(),
					EventID:    uuid.NewString(),
				})
			}
			return
		}

		env.ReceivedAt = time.Now().UTC()
		env.EventID = uuid.NewString()
		s.dispatch(env)
	}
}

// dispatch вызывает обработчиков последовательно, на горутине цикла чтения.
// Это и дает гарантию порядка внутри одного типа события.
func (s *Session) dispatch(env Envelope) {
	s.handlersMu.RLock()
	entries := append([]handlerEntry(nil), s.handlers[env.Type]...)
	s.handlersMu.RUnlock()

	for _, entry := range entries {
		entry.fn(env)
	}
}

package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"activity-engine/internal/entities"

	"github.com/go-redis/redis/v8"
)

// ReadState - отметки "прочитано до этого момента" по категориям.
type ReadState map[entities.Category]time.Time

// ReadStateRepositoryInterface - долговременное хранилище ReadState.
// Ключ включает тенанта и пользователя, чтобы отметки переживали перезагрузку
// страницы и не пересекались между учетными записями на одном устройстве.
type ReadStateRepositoryInterface interface {
	Load(ctx context.Context, tenantID, userID string) (ReadState, error)
	Save(ctx context.Context, tenantID, userID string, state ReadState) error
}

func readStateKey(tenantID, userID string) string {
	return fmt.Sprintf("%s.%s.read_state", tenantID, userID)
}

// RedisReadStateRepository - реализация хранилища на Redis.
type RedisReadStateRepository struct {
	client *redis.Client
}

func NewRedisReadStateRepository(client *redis.Client) ReadStateRepositoryInterface {
	return &RedisReadStateRepository{client: client}
}

// Load читает отметки. Отсутствие ключа - не ошибка, это первый вход.
func (r *RedisReadStateRepository) Load(ctx context.Context, tenantID, userID string) (ReadState, error) {
	raw, err := r.client.Get(ctx, readStateKey(tenantID, userID)).Result()
	if err == redis.Nil {
		return ReadState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать read_state: %w", err)
	}

	var encoded map[entities.Category]string
	if err := json.Unmarshal([]byte(raw), &encoded); err != nil {
		return nil, fmt.Errorf("не удалось разобрать read_state: %w", err)
	}

	state := make(ReadState, len(encoded))
	for category, stamp := range encoded {
		t, err := time.Parse(time.RFC3339Nano, stamp)
		if err != nil {
			continue
		}
		state[category] = t
	}
	return state, nil
}

// Save пишет отметки целиком (write-through, без батчинга).
func (r *RedisReadStateRepository) Save(ctx context.Context, tenantID, userID string, state ReadState) error {
	encoded := make(map[entities.Category]string, len(state))
	for category, t := range state {
		encoded[category] = t.UTC().Format(time.RFC3339Nano)
	}

	payload, err := json.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать read_state: %w", err)
	}

	if err := r.client.Set(ctx, readStateKey(tenantID, userID), payload, 0).Err(); err != nil {
		return fmt.Errorf("не удалось сохранить read_state: %w", err)
	}
	return nil
}

// InMemoryReadStateRepository - хранилище для тестов и работы без Redis.
type InMemoryReadStateRepository struct {
	states map[string]ReadState
}

func NewInMemoryReadStateRepository() *InMemoryReadStateRepository {
	return &InMemoryReadStateRepository{states: make(map[string]ReadState)}
}

func (r *InMemoryReadStateRepository) Load(_ context.Context, tenantID, userID string) (ReadState, error) {
	state, ok := r.states[readStateKey(tenantID, userID)]
	if !ok {
		return ReadState{}, nil
	}
	copied := make(ReadState, len(state))
	for k, v := range state {
		copied[k] = v
	}
	return copied, nil
}

func (r *InMemoryReadStateRepository) Save(_ context.Context, tenantID, userID string, state ReadState) error {
	copied := make(ReadState, len(state))
	for k, v := range state {
		copied[k] = v
	}
	r.states[readStateKey(tenantID, userID)] = copied
	return nil
}

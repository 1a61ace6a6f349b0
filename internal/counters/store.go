package counters

import (
	"context"
	"sync"
	"time"

	"activity-engine/internal/entities"
	"activity-engine/internal/gateways"
	"activity-engine/internal/normalizer"
	"activity-engine/internal/repositories"

	"go.uber.org/zap"
)

// Store отвечает на вопрос "сколько непрочитанного в каждой категории",
// не храня сами записи. Живет от логина до логаута и явно
// переинициализируется на входе (Init).
//
// Счетчики и ReadState принадлежат только этому компоненту; все мутации
// идут через документированные методы.
type Store struct {
	repo     repositories.ReadStateRepositoryInterface
	gateways []gateways.Gateway
	logger   *zap.Logger

	mu        sync.Mutex
	tenantID  string
	userID    string
	counts    map[entities.Category]int
	viewing   map[entities.Category]bool
	readState repositories.ReadState
}

func NewStore(repo repositories.ReadStateRepositoryInterface, gws []gateways.Gateway, logger *zap.Logger) *Store {
	return &Store{
		repo:      repo,
		gateways:  gws,
		logger:    logger,
		counts:    make(map[entities.Category]int),
		viewing:   make(map[entities.Category]bool),
		readState: repositories.ReadState{},
	}
}

// Init сбрасывает счетчики и поднимает сохраненный ReadState для учетной
// записи. Ошибка чтения хранилища не фатальна: начинаем с пустых отметок.
func (s *Store) Init(ctx context.Context, tenantID, userID string) {
	state, err := s.repo.Load(ctx, tenantID, userID)
	if err != nil {
		s.logger.Warn("Не удалось загрузить read_state, начинаем с пустого",
			zap.String("userID", userID),
			zap.Error(err),
		)
		state = repositories.ReadState{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenantID = tenantID
	s.userID = userID
	s.counts = make(map[entities.Category]int)
	s.viewing = make(map[entities.Category]bool)
	s.readState = state
}

// ApplyLiveEvent учитывает push-событие. Синтетический счетчик liveActivity
// растет на каждом событии платформы; счетчик категории - только если
// событие новее отметки прочтения и категорию сейчас не смотрят.
func (s *Store) ApplyLiveEvent(eventType string, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[entities.CategoryLiveActivity]++

	category, ok := normalizer.CategoryForEvent(eventType)
	if !ok {
		return
	}
	if s.viewing[category] {
		return
	}
	if watermark, seen := s.readState[category]; seen && !ts.After(watermark) {
		return
	}
	s.counts[category]++
}

// MarkAsRead обнуляет счетчик категории и сдвигает отметку прочтения на
// "сейчас", сразу же сохраняя ReadState. Ошибка записи только логируется:
// в памяти состояние уже корректно, следующий MarkAsRead попробует снова.
func (s *Store) MarkAsRead(ctx context.Context, category entities.Category) {
	s.mu.Lock()
	s.counts[category] = 0
	s.readState[category] = time.Now().UTC()

	stateCopy := make(repositories.ReadState, len(s.readState))
	for k, v := range s.readState {
		stateCopy[k] = v
	}
	tenantID, userID := s.tenantID, s.userID
	s.mu.Unlock()

	if err := s.repo.Save(ctx, tenantID, userID, stateCopy); err != nil {
		s.logger.Error("Не удалось сохранить read_state",
			zap.String("userID", userID),
			zap.String("category", string(category)),
			zap.Error(err),
		)
	}
}

// Account - учетная запись, под которой инициализировано хранилище.
func (s *Store) Account() (tenantID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenantID, s.userID
}

// SetViewing - явный сигнал от вызывающего слоя, что категория сейчас
// открыта на экране. Пока флаг стоит, ее счетчик не растет.
func (s *Store) SetViewing(category entities.Category, viewing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if viewing {
		s.viewing[category] = true
	} else {
		delete(s.viewing, category)
	}
}

// RefreshFromServer пересчитывает счетчики из собственных "pending"-запросов
// доменных сервисов. Это полная перезапись, а не инкремент - так счетчики
// самовосстанавливаются после пропущенных в офлайне событий. Упавший шлюз
// оставляет прежнее значение своей категории нетронутым.
func (s *Store) RefreshFromServer(ctx context.Context) {
	type refreshResult struct {
		category entities.Category
		count    int
	}

	results := make(chan refreshResult, len(s.gateways))

	var wg sync.WaitGroup
	for _, gw := range s.gateways {
		wg.Add(1)
		go func(gw gateways.Gateway) {
			defer wg.Done()
			count, err := gw.UnreadCount(ctx)
			if err != nil {
				s.logger.Warn("Не удалось обновить счетчик категории, оставляем прежний",
					zap.String("category", string(gw.Category())),
					zap.Error(err),
				)
				return
			}
			results <- refreshResult{category: gw.Category(), count: count}
		}(gw)
	}
	wg.Wait()
	close(results)

	s.mu.Lock()
	defer s.mu.Unlock()
	for res := range results {
		s.counts[res.category] = res.count
	}

	// Агрегат пересобирается из категорий, раз уж мы все равно сверились
	// с серверами.
	total := 0
	for _, category := range entities.Categories {
		total += s.counts[category]
	}
	s.counts[entities.CategoryLiveActivity] = total
}

// Counters возвращает копию текущих счетчиков, включая liveActivity.
func (s *Store) Counters() map[entities.Category]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[entities.Category]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Count - счетчик одной категории.
func (s *Store) Count(category entities.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[category]
}

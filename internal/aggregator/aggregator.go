package aggregator

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"activity-engine/internal/entities"
	"activity-engine/internal/gateways"
	"activity-engine/internal/normalizer"
	"activity-engine/pkg/websocket"

	"go.uber.org/zap"
)

// storedItem хранит запись вместе с порядковым номером вставки.
// Номер нужен для стабильного разрешения ничьих при равных метках времени:
// вставленный позже выигрывает.
type storedItem struct {
	item entities.ActivityItem
	seq  uint64
}

// Aggregator владеет канонической лентой активности: дедуплицированной,
// отсортированной по времени по убыванию и ограниченной по размеру.
// Все мутации идут через Hydrate и ApplyLiveEvent; читатели видят состояние
// только через Snapshot. Никто другой хранилище не трогает.
type Aggregator struct {
	normalizer *normalizer.Normalizer
	gateways   []gateways.Gateway
	maxItems   int
	logger     *zap.Logger

	mu      sync.Mutex
	byID    map[string]*storedItem
	ordered []*storedItem
	nextSeq uint64
}

func New(n *normalizer.Normalizer, gws []gateways.Gateway, maxItems int, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		normalizer: n,
		gateways:   gws,
		maxItems:   maxItems,
		logger:     logger,
		byID:       make(map[string]*storedItem),
	}
}

// Hydrate - bulk-загрузка ленты при холодном старте (или принудительном
// обновлении). Все шлюзы опрашиваются параллельно; упавший шлюз дает ноль
// записей и предупреждение в лог, остальные сливаются как обычно.
//
// Push-события могут применяться прямо во время загрузки: ворота по метке
// времени в upsert не дают устаревшей bulk-записи затереть более свежую
// live-версию того же ID.
func (a *Aggregator) Hydrate(ctx context.Context, limit int) {
	type fetchResult struct {
		category entities.Category
		records  []json.RawMessage
	}

	results := make(chan fetchResult, len(a.gateways))

	var wg sync.WaitGroup
	for _, gw := range a.gateways {
		wg.Add(1)
		go func(gw gateways.Gateway) {
			defer wg.Done()
			records, err := gw.FetchRecent(ctx, limit)
			if err != nil {
				a.logger.Warn("Шлюз не ответил, его записи пропущены",
					zap.String("category", string(gw.Category())),
					zap.Error(err),
				)
				return
			}
			results <- fetchResult{category: gw.Category(), records: records}
		}(gw)
	}
	wg.Wait()
	close(results)

	a.mu.Lock()
	defer a.mu.Unlock()

	for res := range results {
		for _, raw := range res.records {
			item, ok := a.normalizer.NormalizeRecord(res.category, raw)
			if !ok {
				continue
			}
			a.upsertLocked(item)
		}
	}
	a.resortAndBoundLocked()
}

// ApplyLiveEvent нормализует push-событие и вставляет его в ленту.
// Никогда не ждет окончания Hydrate.
func (a *Aggregator) ApplyLiveEvent(env websocket.Envelope) {
	item, ok := a.normalizer.NormalizeEvent(env)
	if !ok {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.upsertLocked(item) {
		a.resortAndBoundLocked()
	}
}

// Snapshot возвращает копию канонического порядка. Единственный способ
// чтения состояния.
func (a *Aggregator) Snapshot() []entities.ActivityItem {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]entities.ActivityItem, 0, len(a.ordered))
	for _, s := range a.ordered {
		out = append(out, s.item)
	}
	return out
}

// Len - текущий размер ленты.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.ordered)
}

// upsertLocked вставляет или заменяет запись по ID. Замена защищена
// воротами по метке времени: входящая версия принимается, только если
// ее метка >= хранимой. При равенстве выигрывает входящая (last write wins).
func (a *Aggregator) upsertLocked(item entities.ActivityItem) bool {
	existing, ok := a.byID[item.ID]
	if !ok {
		a.nextSeq++
		stored := &storedItem{item: item, seq: a.nextSeq}
		a.byID[item.ID] = stored
		a.ordered = append(a.ordered, stored)
		return true
	}

	if item.Timestamp.Before(existing.item.Timestamp) {
		// Устаревшая версия (например bulk-запись, догнавшая live-событие).
		return false
	}

	a.nextSeq++
	existing.item = item
	existing.seq = a.nextSeq
	return true
}

// resortAndBoundLocked восстанавливает инвариант порядка и размер ленты:
// сортировка по времени по убыванию, ничьи - позже вставленный раньше,
// затем вытеснение самых старых за пределами maxItems.
func (a *Aggregator) resortAndBoundLocked() {
	sort.SliceStable(a.ordered, func(i, j int) bool {
		ti, tj := a.ordered[i].item.Timestamp, a.ordered[j].item.Timestamp
		if ti.Equal(tj) {
			return a.ordered[i].seq > a.ordered[j].seq
		}
		return ti.After(tj)
	})

	if a.maxItems > 0 && len(a.ordered) > a.maxItems {
		for _, evicted := range a.ordered[a.maxItems:] {
			delete(a.byID, evicted.item.ID)
		}
		a.ordered = a.ordered[:a.maxItems]
	}
}

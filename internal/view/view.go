package view

import (
	"strings"
	"time"

	"activity-engine/internal/entities"
	"activity-engine/pkg/utils"
)

// StatusBucket - грубая классификация сырых статусов.
type StatusBucket string

const (
	BucketAll StatusBucket = "all"
	// BucketPending - все, что еще требует действий.
	BucketPending StatusBucket = "pending"
	// BucketResolved - все, по чему решение уже принято.
	BucketResolved StatusBucket = "resolved"
)

type DateRange string

const (
	RangeAll       DateRange = "all"
	RangeToday     DateRange = "today"
	RangeLast7Days DateRange = "last7days"
)

// Filter - параметры среза ленты. Пустые поля означают "без ограничения".
type Filter struct {
	Category     entities.Category
	StatusBucket StatusBucket
	DateRange    DateRange
	Search       string
}

var pendingStatuses = map[string]bool{
	"pending":     true,
	"todo":        true,
	"in_progress": true,
}

var resolvedStatuses = map[string]bool{
	"approved":  true,
	"completed": true,
	"rejected":  true,
}

// Apply - чистая выборка над канонической лентой: фильтры по категории,
// статусу, дате и текстовый поиск, объединенные по И. Канонический порядок
// не меняется и не мутируется - только отбор.
//
// Срез по дате считается от настоящего момента при каждом вызове, поэтому
// один и тот же вызов завтра даст другой "сегодняшний" результат.
func Apply(items []entities.ActivityItem, f Filter) []entities.ActivityItem {
	cutoff := dateCutoff(f.DateRange, time.Now())
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]entities.ActivityItem, 0, len(items))
	for _, item := range items {
		if f.Category != "" && item.Category != f.Category {
			continue
		}
		if !matchesBucket(item.Status, f.StatusBucket) {
			continue
		}
		if !cutoff.IsZero() && item.Timestamp.Before(cutoff) {
			continue
		}
		if search != "" && !matchesSearch(item, search) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesBucket(status string, bucket StatusBucket) bool {
	switch bucket {
	case BucketPending:
		return pendingStatuses[status]
	case BucketResolved:
		return resolvedStatuses[status]
	default:
		// "all" и пустой фильтр пропускают любой статус,
		// в том числе не входящий ни в одну корзину ("info").
		return true
	}
}

func dateCutoff(r DateRange, now time.Time) time.Time {
	switch r {
	case RangeToday:
		return utils.StartOfDay(now)
	case RangeLast7Days:
		return utils.DaysAgo(now, 7)
	default:
		return time.Time{}
	}
}

// matchesSearch - регистронезависимое ИЛИ по заголовку, подзаголовку
// и описанию.
func matchesSearch(item entities.ActivityItem, search string) bool {
	return strings.Contains(strings.ToLower(item.Title), search) ||
		strings.Contains(strings.ToLower(item.Subtitle), search) ||
		strings.Contains(strings.ToLower(item.Description), search)
}

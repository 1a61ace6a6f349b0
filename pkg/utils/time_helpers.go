package utils

import "time"

// StartOfDay возвращает полночь дня, в котором лежит t, в его локации.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysAgo возвращает момент "n суток назад" от t.
// Используется для среза "последние 7 дней" в фильтрах ленты.
func DaysAgo(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, -n)
}

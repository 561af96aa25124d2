// Package period вычисляет ключи календарных периодов, по которым
// группируются счётчики использования. Все ключи считаются в UTC.
package period

import "time"

const (
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"
)

// MonthKey возвращает ключ календарного месяца вида "2024-01".
func MonthKey(t time.Time) string {
	return t.UTC().Format(monthLayout)
}

// DayKey возвращает ключ календарных суток вида "2024-01-31".
func DayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// Keys возвращает ключи месяца и суток для момента t.
func Keys(t time.Time) (monthKey, dayKey string) {
	return MonthKey(t), DayKey(t)
}

// Extend возвращает конец нового периода длиной days суток, отсчитанного от base.
// Если base в прошлом относительно now, отсчёт идёт от now.
func Extend(base, now time.Time, days int) time.Time {
	if base.Before(now) {
		base = now
	}
	return base.Add(time.Duration(days) * 24 * time.Hour)
}

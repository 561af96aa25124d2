// Package models содержит доменные структуры: тарифы, треды, сообщения, дуэли,
// счётчики использования, подписки и платежи.
package models

import "fmt"

// Plan — тарифный план пользователя.
type Plan string

const (
	PlanA1 Plan = "A1"
	PlanA2 Plan = "A2"
)

// DefaultPlan применяется, когда у пользователя нет активной подписки.
const DefaultPlan = PlanA1

// Limits описывает лимиты тарифа на календарный месяц и сутки.
type Limits struct {
	MonthlyMessages  int `json:"monthly_messages"`
	MonthlyVerified  int `json:"monthly_verified"`
	DailyVerifiedMax int `json:"daily_verified_max"`
}

var planLimits = map[Plan]Limits{
	PlanA1: {MonthlyMessages: 400, MonthlyVerified: 15, DailyVerifiedMax: 2},
	PlanA2: {MonthlyMessages: 900, MonthlyVerified: 45, DailyVerifiedMax: 2},
}

// ParsePlan разбирает строковое значение тарифа.
func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if _, ok := planLimits[p]; !ok {
		return "", fmt.Errorf("%w: unknown plan %q", ErrInvalidInput, s)
	}
	return p, nil
}

// Limits возвращает лимиты тарифа. Неизвестный тариф получает лимиты тарифа по умолчанию.
func (p Plan) Limits() Limits {
	if l, ok := planLimits[p]; ok {
		return l
	}
	return planLimits[DefaultPlan]
}

// Mode задаёт режим генерации ответа.
type Mode string

const (
	ModeExploration Mode = "exploration"
	ModeVerified    Mode = "verified"
)

// Valid сообщает, известен ли режим.
func (m Mode) Valid() bool {
	return m == ModeExploration || m == ModeVerified
}

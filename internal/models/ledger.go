package models

// UsageLedger — счётчики использования пользователя за календарный месяц PeriodKey.
// VerifiedUsedToday относится к суткам VerifiedDayKey.
type UsageLedger struct {
	ID                int64
	UserID            string
	PeriodKey         string
	MessagesUsed      int
	VerifiedUsed      int
	VerifiedUsedToday int
	VerifiedDayKey    string
}

// Rollover обнуляет суточный счётчик, если ledger относится к другим суткам.
// Возвращает true, если состояние изменилось.
func (l *UsageLedger) Rollover(dayKey string) bool {
	if l.VerifiedDayKey == dayKey {
		return false
	}
	l.VerifiedDayKey = dayKey
	l.VerifiedUsedToday = 0
	return true
}

// Charge проверяет лимиты в порядке месяц -> verified за месяц -> verified за сутки
// и при успехе увеличивает счётчики. При ошибке ledger не меняется.
func (l *UsageLedger) Charge(limits Limits, mode Mode) error {
	if l.MessagesUsed >= limits.MonthlyMessages {
		return ErrQuotaExceeded
	}
	if mode == ModeVerified {
		if l.VerifiedUsed >= limits.MonthlyVerified {
			return ErrVerifiedQuotaExceeded
		}
		if l.VerifiedUsedToday >= limits.DailyVerifiedMax {
			return ErrVerifiedDailyLimit
		}
	}

	l.MessagesUsed++
	if mode == ModeVerified {
		l.VerifiedUsed++
		l.VerifiedUsedToday++
	}
	return nil
}

// QuotaSnapshot — остатки лимитов для отображения.
type QuotaSnapshot struct {
	Plan                   Plan               `json:"plan"`
	SubscriptionStatus     SubscriptionStatus `json:"subscription_status"`
	PeriodKey              string             `json:"period_key"`
	RemainingMessages      int                `json:"remaining_messages"`
	RemainingVerified      int                `json:"remaining_verified"`
	RemainingVerifiedToday int                `json:"remaining_verified_today"`
}

// Snapshot проецирует ledger на лимиты без изменения состояния.
// Суточный счётчик другого дня считается нулевым.
func (l UsageLedger) Snapshot(limits Limits, dayKey string) QuotaSnapshot {
	usedToday := l.VerifiedUsedToday
	if l.VerifiedDayKey != dayKey {
		usedToday = 0
	}
	return QuotaSnapshot{
		PeriodKey:              l.PeriodKey,
		RemainingMessages:      max(0, limits.MonthlyMessages-l.MessagesUsed),
		RemainingVerified:      max(0, limits.MonthlyVerified-l.VerifiedUsed),
		RemainingVerifiedToday: max(0, limits.DailyVerifiedMax-usedToday),
	}
}

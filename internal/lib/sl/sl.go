// Package sl содержит вспомогательные атрибуты для логгера slog.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
// Для nil возвращается пустое значение, чтобы лог не падал на успешных ветках.
//
// Пример:
//
//	log.Error("failed to reserve quota", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// UserID возвращает атрибут с идентификатором пользователя.
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

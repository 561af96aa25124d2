package models

import "errors"

// Ошибки доменного ядра. Вызывающий код классифицирует их через errors.Is,
// HTTP-слой превращает их в коды ответа.
var (
	ErrUnauthorized              = errors.New("unauthorized")
	ErrInvalidInput              = errors.New("invalid input")
	ErrRateLimited               = errors.New("rate limited")
	ErrQuotaExceeded             = errors.New("monthly message quota exceeded")
	ErrVerifiedQuotaExceeded     = errors.New("monthly verified quota exceeded")
	ErrVerifiedDailyLimit        = errors.New("daily verified limit reached")
	ErrNotFound                  = errors.New("not found")
	ErrThreadNotLocked           = errors.New("thread is not locked to a provider")
	ErrProviderNotConfigured     = errors.New("provider not configured")
	ErrProviderError             = errors.New("provider error")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrPaymentNotFound           = errors.New("payment not found")
	ErrBillingNotConfigured      = errors.New("billing not configured")
	ErrBillingError              = errors.New("billing gateway error")
)

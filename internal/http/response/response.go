// Package response содержит единый формат JSON-ответов HTTP-обработчиков
// и отображение доменных ошибок на HTTP-статусы и стабильные коды.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/duelchat/internal/models"
)

// Response описывает стандартную структуру JSON-ответа сервера.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse — структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Code   string `json:"code" example:"quota_exceeded"`
	Error  string `json:"error" example:"monthly message quota exceeded"`
}

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// Коды ошибок, которые видит клиент.
const (
	CodeUnauthorized              = "unauthorized"
	CodeInvalidInput              = "invalid_input"
	CodeRateLimited               = "rate_limited"
	CodeQuotaExceeded             = "quota_exceeded"
	CodeVerifiedQuotaExceeded     = "verified_quota_exceeded"
	CodeVerifiedDailyLimit        = "verified_daily_limit"
	CodeNotFound                  = "not_found"
	CodeThreadNotLocked           = "thread_not_locked"
	CodeProviderNotConfigured     = "provider_not_configured"
	CodeProviderError             = "provider_error"
	CodePaymentVerificationFailed = "payment_verification_failed"
	CodePaymentNotFound           = "payment_not_found"
	CodeBillingNotConfigured      = "billing_not_configured"
	CodeBillingError              = "billing_error"
	CodeInternal                  = "internal_error"
)

type mapping struct {
	err    error
	status int
	code   string
}

// Порядок важен: ErrPaymentNotFound проверяется раньше ErrNotFound.
var taxonomy = []mapping{
	{models.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{models.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput},
	{models.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
	{models.ErrQuotaExceeded, http.StatusForbidden, CodeQuotaExceeded},
	{models.ErrVerifiedQuotaExceeded, http.StatusForbidden, CodeVerifiedQuotaExceeded},
	{models.ErrVerifiedDailyLimit, http.StatusForbidden, CodeVerifiedDailyLimit},
	{models.ErrPaymentNotFound, http.StatusNotFound, CodePaymentNotFound},
	{models.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{models.ErrThreadNotLocked, http.StatusBadRequest, CodeThreadNotLocked},
	{models.ErrProviderNotConfigured, http.StatusBadRequest, CodeProviderNotConfigured},
	{models.ErrProviderError, http.StatusBadGateway, CodeProviderError},
	{models.ErrPaymentVerificationFailed, http.StatusBadRequest, CodePaymentVerificationFailed},
	{models.ErrBillingNotConfigured, http.StatusBadRequest, CodeBillingNotConfigured},
	{models.ErrBillingError, http.StatusBadGateway, CodeBillingError},
}

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает ответ с ошибкой и переданным сообщением.
func Error(code, msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Code:   code,
		Error:  msg,
	}
}

// FromError переводит ошибку в HTTP-статус и тело ответа. Ошибки вне
// доменной таксономии отдаются как 500 без подробностей.
func FromError(err error) (int, ErrorResponse) {
	for _, m := range taxonomy {
		if errors.Is(err, m.err) {
			return m.status, Error(m.code, m.err.Error())
		}
	}
	return http.StatusInternalServerError, Error(CodeInternal, "internal error")
}

// RenderError пишет ответ с ошибкой в формате FromError.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := FromError(err)
	render.Status(r, status)
	render.JSON(w, r, body)
}

// ValidationError формирует ответ со статусом Error на основе ошибок валидации.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is too long", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return Error(CodeInvalidInput, strings.Join(errsMsgs, ", "))
}

package res

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse представляет формат JSON-ответа для ошибок.
type ErrorResponse struct {
	Error           string   `json:"error"`                      // Сообщение об ошибке (для пользователя)
	ErrorCode       string   `json:"error_code,omitempty"`       // Код ошибки (для программной обработки)
	Details         any      `json:"details,omitempty"`          // Детали ошибки (например, ошибки валидации)
	RequiresForce   bool     `json:"requiresForce,omitempty"`    // Блокировку можно снять повтором с force=true
	Reasons         []string `json:"reasons,omitempty"`          // Причины блокировки для requiresForce
	ProviderMessage string   `json:"provider_message,omitempty"` // Сырое сообщение платежного провайдера
	DebugInfo       string   `json:"debug_info,omitempty"`       // Отладочная информация (ТОЛЬКО в development среде!)
}

// Коды ошибок
const (
	CodeValidation      = "validation_error"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeRequiresForce   = "requires_force"
	CodeForbidden       = "forbidden"
	CodeUnauthorized    = "unauthorized"
	CodeBillingProvider = "billing_provider_error"
	CodeInternal        = "internal_error"
)

// JsonResponse отправляет JSON-ответ с заданным статусом.
func JsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

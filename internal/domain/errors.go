package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Application errors
var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput неверные входные данные
	ErrInvalidInput = errors.New("invalid input data")

	// ErrConflict текущее состояние не допускает операцию
	ErrConflict = errors.New("conflict")

	// ErrRequiresForce операция заблокирована, но блокировку можно снять флагом force
	ErrRequiresForce = errors.New("requires force")

	// ErrForbidden оператор не авторизован на операцию
	ErrForbidden = errors.New("forbidden")

	// ErrBillingProvider ошибка платежного провайдера
	ErrBillingProvider = errors.New("billing provider error")
)

// ValidationError представляет ошибку валидации
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors представляет набор ошибок валидации
type ValidationErrors []ValidationError

// Error реализует интерфейс error
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	if len(e) == 1 {
		return fmt.Sprintf("validation failed: %s - %s", e[0].Field, e[0].Message)
	}

	return fmt.Sprintf("validation failed: %d errors", len(e))
}

// Is позволяет errors.Is(err, ErrInvalidInput)
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidInput
}

// Add добавляет ошибку валидации
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// HasErrors проверяет наличие ошибок
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// AsError возвращает nil, если ошибок нет
func (e ValidationErrors) AsError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// Fields возвращает список полей с ошибками
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, err := range e {
		fields[i] = err.Field
	}
	return fields
}

// GetByField возвращает сообщение об ошибке для указанного поля
func (e ValidationErrors) GetByField(field string) string {
	for _, err := range e {
		if err.Field == field {
			return err.Message
		}
	}
	return ""
}

// NewValidationError короткий конструктор для одной ошибки поля
func NewValidationError(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

// NotFoundError представляет ошибку "не найдено"
type NotFoundError struct {
	Entity string
	ID     string
}

// Error реализует интерфейс error
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is проверяет, является ли ошибка ошибкой типа "не найдено"
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError создает новую ошибку "не найдено"
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// ConflictError валидный запрос, который запрещен текущим состоянием
type ConflictError struct {
	Message string
}

// Error реализует интерфейс error
func (e *ConflictError) Error() string {
	return e.Message
}

// Is проверяет, является ли ошибка конфликтом
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewConflictError создает новую ошибку конфликта
func NewConflictError(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// RequiresForceError блокировка, которую оператор может снять повторным запросом с force=true
type RequiresForceError struct {
	Reasons []string
}

// Error реализует интерфейс error
func (e *RequiresForceError) Error() string {
	return "override required: " + strings.Join(e.Reasons, "; ")
}

// Is проверяет, является ли ошибка ErrRequiresForce
func (e *RequiresForceError) Is(target error) bool {
	return target == ErrRequiresForce
}

// BillingProviderError ошибка вызова платежного провайдера
type BillingProviderError struct {
	Operation       string
	ProviderMessage string // сырое сообщение провайдера для диагностики
	Reverted        bool   // была ли откатана локальная запись
	Ambiguous       bool   // исход у провайдера неизвестен, нужна ручная сверка
	OriginalErr     error
}

// Error реализует интерфейс error
func (e *BillingProviderError) Error() string {
	msg := fmt.Sprintf("billing provider error [%s]: %s", e.Operation, e.ProviderMessage)
	switch {
	case e.Ambiguous:
		msg += " (provider outcome unknown, manual reconciliation required)"
	case e.Reverted:
		msg += " (local changes reverted)"
	}
	return msg
}

// Unwrap возвращает оригинальную ошибку
func (e *BillingProviderError) Unwrap() error {
	return e.OriginalErr
}

// Is проверяет, является ли ошибка ошибкой провайдера
func (e *BillingProviderError) Is(target error) bool {
	return target == ErrBillingProvider
}

// NewBillingProviderError создает новую ошибку провайдера
func NewBillingProviderError(operation, providerMessage string, err error) *BillingProviderError {
	return &BillingProviderError{
		Operation:       operation,
		ProviderMessage: providerMessage,
		OriginalErr:     err,
	}
}

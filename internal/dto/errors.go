package dto

// BaseError универсальный корневой формат ошибки
// Code: машинно-ориентированный код (snake_case)
// Message: краткое человеко-читаемое описание
// Details: дополнительная строка (пояснение)
// Fields: для валидационных ошибок (имя поля + текст)
type BaseError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError отдельная ошибка по конкретному полю
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ConflictResponse 409 при нехватке ёмкости или заблокированных днях.
// Detail/Suggestions/Blocked: формат, который ждёт мобильный клиент.
type ConflictResponse struct {
	BaseError
	Detail      string      `json:"detail"`
	Suggestions []DateRange `json:"suggestions"`
	Blocked     []string    `json:"blocked"`
}

func NewValidationError(msg string, fields []FieldError) BaseError {
	return BaseError{Code: "validation_error", Message: msg, Fields: fields}
}
func NewConflictError(msg string) BaseError {
	return BaseError{Code: "conflict", Message: msg}
}
func NewInvalidTransitionError(msg string) BaseError {
	return BaseError{Code: "invalid_transition", Message: msg}
}
func NewRequestInProgressError(msg string) BaseError {
	return BaseError{Code: "request_in_progress", Message: msg}
}
func NewUnauthorizedError(msg string) BaseError {
	return BaseError{Code: "unauthorized", Message: msg}
}
func NewForbiddenError(msg string) BaseError {
	return BaseError{Code: "forbidden", Message: msg}
}
func NewNotFoundError(msg string) BaseError {
	return BaseError{Code: "not_found", Message: msg}
}
func NewUnavailableError(msg string) BaseError {
	return BaseError{Code: "storage_unavailable", Message: msg}
}
func NewTimeoutError(msg string) BaseError {
	return BaseError{Code: "timeout", Message: msg}
}
func NewInternalError(details string) BaseError {
	return BaseError{Code: "internal_error", Message: "internal server error", Details: details}
}

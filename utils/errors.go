package utils

import (
	"errors"
	"net/http"
)

// ApplicationError ошибка прикладного уровня с HTTP-статусом.
// Статус используется обоими транспортами (HTTP и бот) как канонический признак вида ошибки.
type ApplicationError struct {
	Message string
	Status  int
}

func (e *ApplicationError) Error() string {
	return e.Message
}

// NewApplicationError создает ошибку с произвольным статусом
func NewApplicationError(message string, status int) *ApplicationError {
	return &ApplicationError{Message: message, Status: status}
}

// NewValidationError некорректный ввод (400)
func NewValidationError(message string) *ApplicationError {
	return NewApplicationError(message, http.StatusBadRequest)
}

// NewNotFoundError объект не найден или принадлежит другому пользователю (404)
func NewNotFoundError(message string) *ApplicationError {
	return NewApplicationError(message, http.StatusNotFound)
}

// NewAuthorizationError распознанная, но запрещенная операция (403)
func NewAuthorizationError(message string) *ApplicationError {
	return NewApplicationError(message, http.StatusForbidden)
}

// NewInvariantViolation нарушение программного инварианта (500)
func NewInvariantViolation(message string) *ApplicationError {
	return NewApplicationError(message, http.StatusInternalServerError)
}

// StatusOf возвращает HTTP-статус ошибки, 500 для неизвестных ошибок
func StatusOf(err error) int {
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// IsStatus проверяет, что ошибка прикладная и имеет указанный статус
func IsStatus(err error, status int) bool {
	var appErr *ApplicationError
	return errors.As(err, &appErr) && appErr.Status == status
}

// IsNotFound проверяет, что ошибка означает отсутствие объекта
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

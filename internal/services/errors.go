package services

import (
	"errors"
	"fmt"

	"github.com/yyup/kindergarten-service/internal/repositories"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrConflict            = errors.New("resource conflict")
	ErrForbidden           = errors.New("forbidden")
	ErrNotImplemented      = errors.New("not implemented")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrInvalidFile         = errors.New("invalid file")
)

// UserMessageError carries a message safe to show the client alongside a sentinel.
type UserMessageError struct {
	Err     error
	Message string
}

func (e *UserMessageError) Error() string {
	return e.Message
}

func (e *UserMessageError) Unwrap() error {
	return e.Err
}

func withMessage(err error, message string) error {
	return &UserMessageError{Err: err, Message: message}
}

// NewNotFoundError reports a missing resource by name.
func NewNotFoundError(resource string) error {
	return withMessage(ErrNotFound, resource+"不存在")
}

func NewConflictError(message string) error {
	return withMessage(ErrConflict, message)
}

func NewNotImplementedError(message string) error {
	return withMessage(ErrNotImplemented, message)
}

func NewInvalidFileError(message string) error {
	return withMessage(ErrInvalidFile, message)
}

// ImportInterruptedError reports an import stopped before the last row.
// Rows counted in Result were already saved.
type ImportInterruptedError struct {
	Result *ImportResult
	Row    int
	Err    error
}

func (e *ImportInterruptedError) Error() string {
	return fmt.Sprintf("import interrupted at row %d: %v", e.Row, e.Err)
}

func (e *ImportInterruptedError) Unwrap() error {
	return e.Err
}

// translateRepoError maps repository sentinels onto service errors.
func translateRepoError(err error, resource, operation string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return NewNotFoundError(resource)
	case errors.Is(err, repositories.ErrDuplicate):
		return NewConflictError(resource + "已存在")
	}
	return fmt.Errorf("failed to %s: %w", operation, err)
}

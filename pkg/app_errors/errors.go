package apperrors

import "github.com/cockroachdb/errors"

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrWinnerRequired      = errors.Mark(errors.New("winner name is required"), ErrInvalidInput)
	ErrQueueFull           = errors.New("change queue is full")
	ErrDatabaseUnavailable = errors.New("database unavailable")
)

package errors

import "errors"

var (
	ErrNotFound  = errors.New("room not found")
	ErrInvalidID = errors.New("invalid room ID format")
)

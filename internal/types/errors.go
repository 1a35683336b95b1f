package types

import "errors"

var (
	ErrServiceUnavailable = errors.New("service not available")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("requested item not found")
	ErrUnauthenticated    = errors.New("authentication required or invalid credentials")
)

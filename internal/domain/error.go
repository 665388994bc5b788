package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// License webhook / query errors
	ErrConfiguration = errors.New("server configuration error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrMissingEmail  = errors.New("missing email")
	ErrInvalidEmail  = errors.New("invalid email")
)

package app

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when an operation needs an open connection.
var ErrNotConnected = errors.New("not connected")

// ErrConnection represents a runner connection error.
type ErrConnection struct {
	Name  string
	Cause error
}

func (e *ErrConnection) Error() string {
	return fmt.Sprintf("connection %s: %v", e.Name, e.Cause)
}

func (e *ErrConnection) Unwrap() error {
	return e.Cause
}

// ErrQuery represents a query execution error.
type ErrQuery struct {
	ID    string
	Query string
	Cause error
}

func (e *ErrQuery) Error() string {
	return fmt.Sprintf("query error: %v", e.Cause)
}

func (e *ErrQuery) Unwrap() error {
	return e.Cause
}

// ErrConfig represents a configuration error.
type ErrConfig struct {
	Cause error
}

func (e *ErrConfig) Error() string {
	return fmt.Sprintf("config error: %v", e.Cause)
}

func (e *ErrConfig) Unwrap() error {
	return e.Cause
}

package tools

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("tool not found")
	ErrAlreadyExists = errors.New("tool already registered")
	ErrEmptyName     = errors.New("tool name is empty")
	ErrInvalidArgs   = errors.New("invalid tool arguments")
)

// CallError is returned by Execute when a handler fails outright rather than
// reporting its failure as an IsError result. The graph turns it into a
// tool-end event before the run fails.
type CallError struct {
	Tool string
	Err  error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("tool %s execution failed: %v", e.Tool, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

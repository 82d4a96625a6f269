package graph

import "fmt"

// ExecutionError reports where a graph run stopped. State is the last
// state that completed a node.
type ExecutionError struct {
	Node  string
	State State
	Path  []string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed at node %s: %v", e.Node, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

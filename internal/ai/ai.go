package ai

import (
	"context"
	"fmt"
)

// Generator produces a text completion for a system instruction and a user
// message. Implementations wrap a concrete provider SDK.
type Generator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// GenerationError wraps a text-generation service failure. Callers decide
// whether to degrade, retry or surface it.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed during %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Handler runs tasks whose TaskName equals Name.
type Handler interface {
	Name() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

type TaskHandlerFunc[T any] func(ctx context.Context, payload T) error

// NewTaskHandler decodes the JSON payload into T before calling fn. The
// handler is named after T, matching what Enqueue derives for a T payload.
func NewTaskHandler[T any](fn TaskHandlerFunc[T]) Handler {
	var zero T
	return &taskHandler[T]{name: taskName(zero), fn: fn}
}

type taskHandler[T any] struct {
	name string
	fn   TaskHandlerFunc[T]
}

func (h *taskHandler[T]) Name() string { return h.name }

func (h *taskHandler[T]) Handle(ctx context.Context, payload json.RawMessage) error {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Errorf("decode %s payload: %w", h.name, err)
	}
	return h.fn(ctx, v)
}

func taskName(v any) string {
	return strings.TrimLeft(fmt.Sprintf("%T", v), "*")
}

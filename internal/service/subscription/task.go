package subscription

import (
	"context"

	"github.com/google/uuid"
)

// Task is a handle to a detached background job. Nothing cancels a task; the handle
// only allows joining it.
type Task struct {
	ID   uuid.UUID
	done chan struct{}
}

func newTask() *Task {
	return &Task{
		ID:   uuid.New(),
		done: make(chan struct{}),
	}
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

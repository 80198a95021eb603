package task

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTask is a minimal Task used to exercise the queue and runner.
type stubTask struct {
	id   uuid.UUID
	fn   func(ctx context.Context) error
	done chan struct{}
}

func newStubTask(fn func(ctx context.Context) error) *stubTask {
	return &stubTask{id: uuid.New(), fn: fn, done: make(chan struct{})}
}

func (t *stubTask) ID() uuid.UUID { return t.id }
func (t *stubTask) Type() string  { return "stub" }

func (t *stubTask) Execute(ctx context.Context) error {
	defer close(t.done)
	if t.fn != nil {
		return t.fn(ctx)
	}
	return nil
}

func TestQueue_EnqueueAndConsume(t *testing.T) {
	q := NewQueue(2, testLogger())
	task := newStubTask(nil)

	require.NoError(t, q.Enqueue(task))

	got := <-q.GetChannel()
	assert.Equal(t, task.ID(), got.ID())
}

func TestQueue_Full(t *testing.T) {
	q := NewQueue(1, testLogger())

	require.NoError(t, q.Enqueue(newStubTask(nil)))

	err := q.Enqueue(newStubTask(nil))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestQueue_Closed(t *testing.T) {
	q := NewQueue(1, testLogger())
	q.Close()

	err := q.Enqueue(newStubTask(nil))
	assert.ErrorIs(t, err, ErrQueueClosed)

	// Closing twice is a no-op.
	q.Close()
}

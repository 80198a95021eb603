package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	userID := uuid.New()
	task, err := NewTask(userID, "1HGCM82633A004352")
	require.NoError(t, err)

	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Equal(t, float64(0), task.Progress)
	assert.Equal(t, -1, task.LastProcessedIndex)
	assert.Equal(t, userID, task.UserID)

	// One empty slot per character.
	require.Len(t, task.ProcessedChars, 17)
	for i, slot := range task.ProcessedChars {
		assert.Empty(t, slot, "slot %d", i)
	}
}

func TestNewTask_Validation(t *testing.T) {
	_, err := NewTask(uuid.Nil, "abc")
	assert.ErrorIs(t, err, ErrEmptyTaskUserID)

	_, err = NewTask(uuid.New(), "")
	assert.ErrorIs(t, err, ErrEmptyTaskVIN)
}

func TestTask_AcceptsIndex(t *testing.T) {
	task, err := NewTask(uuid.New(), "abc")
	require.NoError(t, err)

	assert.True(t, task.AcceptsIndex(0))
	assert.False(t, task.AcceptsIndex(1), "skipping ahead is rejected")
	assert.False(t, task.AcceptsIndex(-1))

	require.True(t, task.ApplyCharUpdate(100.0/3, 0, "A"))
	assert.False(t, task.AcceptsIndex(0), "replay of an applied index is rejected")
	assert.True(t, task.AcceptsIndex(1))

	task.Complete("ABC", 1)
	assert.False(t, task.AcceptsIndex(1), "completed tasks accept nothing")
}

func TestTask_ApplyCharUpdate(t *testing.T) {
	task, err := NewTask(uuid.New(), "abc")
	require.NoError(t, err)

	require.True(t, task.ApplyCharUpdate(100.0/3, 0, "A"))
	assert.Equal(t, 0, task.LastProcessedIndex)
	assert.Equal(t, "A", task.ProcessedChars[0])
	assert.InDelta(t, 100.0/3, task.Progress, 0.001)

	// Duplicate of the same index does not apply twice.
	require.False(t, task.ApplyCharUpdate(100.0/3, 0, "X"))
	assert.Equal(t, "A", task.ProcessedChars[0])
	assert.Equal(t, 0, task.LastProcessedIndex)

	// Skipping an index is rejected and mutates nothing.
	require.False(t, task.ApplyCharUpdate(100, 2, "C"))
	assert.Empty(t, task.ProcessedChars[2])
	assert.Equal(t, 0, task.LastProcessedIndex)

	// The successor applies.
	require.True(t, task.ApplyCharUpdate(200.0/3, 1, "B"))
	assert.Equal(t, 1, task.LastProcessedIndex)
}

func TestTask_ApplyCharUpdate_IndexAdvancesByOne(t *testing.T) {
	task, err := NewTask(uuid.New(), "wvwzzz")
	require.NoError(t, err)

	for i := 0; i < len(task.ProcessedChars); i++ {
		prev := task.LastProcessedIndex
		require.True(t, task.ApplyCharUpdate(float64(i+1)/6*100, i, "X"))
		assert.Equal(t, prev+1, task.LastProcessedIndex)
	}
}

func TestTask_Complete(t *testing.T) {
	task, err := NewTask(uuid.New(), "abc")
	require.NoError(t, err)

	task.Complete("ABC", 3.2)
	assert.Equal(t, TaskStatusCompleted, task.Status)
	assert.Equal(t, float64(100), task.Progress)
	assert.Equal(t, "ABC", task.Result)
	assert.Equal(t, 3.2, task.TimeTaken)

	// Completing again re-applies the same terminal values.
	task.Complete("ABC", 3.2)
	assert.Equal(t, TaskStatusCompleted, task.Status)
	assert.Equal(t, float64(100), task.Progress)

	// No further character updates are accepted once completed.
	assert.False(t, task.ApplyCharUpdate(50, 0, "A"))
}

func TestTask_Validate(t *testing.T) {
	task, err := NewTask(uuid.New(), "abc")
	require.NoError(t, err)

	task.Status = TaskStatus("running")
	assert.ErrorIs(t, task.Validate(), ErrInvalidStatus)
}

func TestNewTask_MultibyteVIN(t *testing.T) {
	// Slots follow characters, not bytes.
	task, err := NewTask(uuid.New(), "äbc")
	require.NoError(t, err)
	assert.Len(t, task.ProcessedChars, 3)
}

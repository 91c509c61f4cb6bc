package persistence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowError_WrapsSentinel(t *testing.T) {
	err := NewWorkflowError("GetByID", "wf-1", ErrWorkflowNotFound)

	assert.True(t, IsWorkflowNotFound(err))
	assert.True(t, errors.Is(err, ErrWorkflowNotFound))
	assert.Contains(t, err.Error(), "GetByID")
	assert.Contains(t, err.Error(), "wf-1")
}

func TestExecutionError_WrapsSentinel(t *testing.T) {
	err := NewExecutionError("ExecutionByID", "exec-1", ErrExecutionNotFound)

	assert.True(t, IsExecutionNotFound(err))
	assert.Contains(t, err.Error(), "exec-1")
}

func TestPredicates_RejectOtherErrors(t *testing.T) {
	other := errors.New("disk full")

	assert.False(t, IsWorkflowNotFound(other))
	assert.False(t, IsNodeNotFound(other))
	assert.False(t, IsExecutionNotFound(other))
	assert.False(t, IsWorkflowNotFound(nil))
}

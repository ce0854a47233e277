package systems

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemValidates(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestRunAllWaitsForEveryTask(t *testing.T) {
	js, err := NewJobSystem(3, 2)
	require.NoError(t, err)
	defer js.Shutdown()

	var completed, failed, callbacks atomic.Int32
	tasks := make([]JobTask, 10)
	for i := range tasks {
		i := i
		tasks[i] = JobTask{
			OnStart: func() error {
				if i%5 == 0 {
					return errors.New("boom")
				}
				return nil
			},
			OnComplete:           func() { completed.Add(1) },
			OnFailure:            func(error) { failed.Add(1) },
			OnCompletionCallback: func() { callbacks.Add(1) },
		}
	}
	js.RunAll(tasks)

	assert.Equal(t, int32(8), completed.Load())
	assert.Equal(t, int32(2), failed.Load())
	assert.Equal(t, int32(10), callbacks.Load())
}

package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima/engine/core"
)

// JobTask is one unit of work for the JobSystem.
type JobTask struct {
	OnStart    func() error
	OnComplete func()
	OnFailure  func(err error)
	// Always called last, whatever the outcome.
	OnCompletionCallback func()
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan JobTask, channelSize),
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				js.run(job)
			}
		}()
	}
}

func (js *JobSystem) run(job JobTask) {
	if job.OnCompletionCallback != nil {
		defer job.OnCompletionCallback()
	}
	if err := job.OnStart(); err != nil {
		if job.OnFailure != nil {
			job.OnFailure(err)
		} else {
			core.LogError(err.Error())
		}
		return
	}
	if job.OnComplete != nil {
		job.OnComplete()
	}
}

/**
 * @brief Shuts the job system down, waiting for queued jobs to finish.
 */
func (js *JobSystem) Shutdown() error {
	js.closeOnce.Do(func() { close(js.jobQueue) })
	js.wg.Wait()
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while the queue is full.
 */
func (js *JobSystem) Submit(jt JobTask) {
	js.jobQueue <- jt
}

// RunAll submits every task and blocks until all of them have finished.
func (js *JobSystem) RunAll(tasks []JobTask) {
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, t := range tasks {
		done := t.OnCompletionCallback
		t.OnCompletionCallback = func() {
			if done != nil {
				done()
			}
			wg.Done()
		}
		js.Submit(t)
	}
	wg.Wait()
}

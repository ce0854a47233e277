package containers

import (
	"errors"
	"sync"
)

var (
	ErrQueueFull  = errors.New("queue is full")
	ErrQueueEmpty = errors.New("queue is empty")
)

// RingQueue is a fixed-size FIFO. It is safe for concurrent use.
type RingQueue[T any] struct {
	mu         sync.Mutex
	data       []T
	size       int
	readIndex  int
	writeIndex int
	count      int
}

// Create a new RingQueue
func NewRingQueue[T any](size int) *RingQueue[T] {
	if size < 1 {
		size = 1
	}
	return &RingQueue[T]{
		data: make([]T, size),
		size: size,
	}
}

// Enqueue adds an element to the queue
func (rq *RingQueue[T]) Enqueue(value T) error {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	if rq.count == rq.size {
		return ErrQueueFull
	}

	rq.data[rq.writeIndex] = value
	rq.writeIndex = (rq.writeIndex + 1) % rq.size
	rq.count++
	return nil
}

// Dequeue removes and returns the front element in the queue
func (rq *RingQueue[T]) Dequeue() (T, error) {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	var zero T
	if rq.count == 0 {
		return zero, ErrQueueEmpty
	}

	value := rq.data[rq.readIndex]
	rq.data[rq.readIndex] = zero
	rq.readIndex = (rq.readIndex + 1) % rq.size
	rq.count--
	return value, nil
}

// Peek returns the front element without removing it
func (rq *RingQueue[T]) Peek() (T, error) {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	if rq.count == 0 {
		var zero T
		return zero, ErrQueueEmpty
	}
	return rq.data[rq.readIndex], nil
}

// Drain removes and returns every queued element in FIFO order.
func (rq *RingQueue[T]) Drain() []T {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	out := make([]T, 0, rq.count)
	var zero T
	for rq.count > 0 {
		out = append(out, rq.data[rq.readIndex])
		rq.data[rq.readIndex] = zero
		rq.readIndex = (rq.readIndex + 1) % rq.size
		rq.count--
	}
	return out
}

func (rq *RingQueue[T]) Len() int {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return rq.count
}

// IsEmpty checks if the queue is empty
func (rq *RingQueue[T]) IsEmpty() bool {
	return rq.Len() == 0
}

// IsFull checks if the queue is full
func (rq *RingQueue[T]) IsFull() bool {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return rq.count == rq.size
}

package containers

import "errors"

var ErrQueueEmpty = errors.New("queue is empty")

const minQueueSize = 16

// RingQueue is a FIFO backed by a ring buffer that doubles its storage when
// full. It is not safe for concurrent use.
type RingQueue[T any] struct {
	data       []T
	readIndex  int
	writeIndex int
	count      int
}

// Create a new RingQueue with room for size elements before the first growth.
func NewRingQueue[T any](size int) *RingQueue[T] {
	if size < minQueueSize {
		size = minQueueSize
	}
	return &RingQueue[T]{
		data: make([]T, size),
	}
}

// Enqueue adds an element to the back of the queue
func (rq *RingQueue[T]) Enqueue(value T) {
	if rq.count == len(rq.data) {
		rq.grow()
	}
	rq.data[rq.writeIndex] = value
	rq.writeIndex = (rq.writeIndex + 1) % len(rq.data)
	rq.count++
}

// Dequeue removes and returns the front element in the queue
func (rq *RingQueue[T]) Dequeue() (T, error) {
	var zero T
	if rq.IsEmpty() {
		return zero, ErrQueueEmpty
	}

	value := rq.data[rq.readIndex]
	rq.data[rq.readIndex] = zero
	rq.readIndex = (rq.readIndex + 1) % len(rq.data)
	rq.count--
	return value, nil
}

// Peek returns the front element without removing it
func (rq *RingQueue[T]) Peek() (T, error) {
	if rq.IsEmpty() {
		var zero T
		return zero, ErrQueueEmpty
	}
	return rq.data[rq.readIndex], nil
}

// Len returns the number of queued elements
func (rq *RingQueue[T]) Len() int {
	return rq.count
}

// IsEmpty checks if the queue is empty
func (rq *RingQueue[T]) IsEmpty() bool {
	return rq.count == 0
}

// Clear drops every element and keeps the storage
func (rq *RingQueue[T]) Clear() {
	var zero T
	for i := range rq.data {
		rq.data[i] = zero
	}
	rq.readIndex, rq.writeIndex, rq.count = 0, 0, 0
}

func (rq *RingQueue[T]) grow() {
	data := make([]T, len(rq.data)*2)
	n := copy(data, rq.data[rq.readIndex:])
	copy(data[n:], rq.data[:rq.readIndex])
	rq.data = data
	rq.readIndex = 0
	rq.writeIndex = rq.count
}

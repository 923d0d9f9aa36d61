package renderer

import "sync/atomic"

// Latcher is notified on the draw goroutine once the update goroutine has
// finished a frame and before it is allowed to start the next one.
type Latcher interface {
	Latch()
}

// DoubleBuffer holds per-frame data written by the update goroutine and read
// by the draw goroutine. The update side writes Update(), calls Swap after
// WaitDrawStarted returns; the draw side calls Latch after WaitUpdateDone and
// reads Draw() until the next Latch.
type DoubleBuffer[T any] struct {
	buffers   [2]T
	updateIdx atomic.Uint32
	drawIdx   atomic.Uint32
}

func NewDoubleBuffer[T any](init func() T) *DoubleBuffer[T] {
	d := &DoubleBuffer[T]{}
	if init != nil {
		d.buffers[0] = init()
		d.buffers[1] = init()
	}
	d.drawIdx.Store(1)
	return d
}

// Update returns the buffer owned by the update goroutine.
func (d *DoubleBuffer[T]) Update() *T {
	return &d.buffers[d.updateIdx.Load()]
}

// Draw returns the buffer latched for drawing.
func (d *DoubleBuffer[T]) Draw() *T {
	return &d.buffers[d.drawIdx.Load()]
}

// Latch hands the buffer the update goroutine just finished to the draw side.
func (d *DoubleBuffer[T]) Latch() {
	d.drawIdx.Store(d.updateIdx.Load())
}

// Swap moves the update goroutine to the other buffer.
func (d *DoubleBuffer[T]) Swap() {
	d.updateIdx.Store(1 - d.updateIdx.Load())
}

package bus

// Latch is a one-shot mailbox between the CPU and the PPU. The CPU posts a
// value during its step and the PPU takes it at the top of its own step.
// A second Post before Take overwrites the pending value.
type Latch[T any] struct {
	value T
	full  bool
}

// Post stores v and marks the latch pending
func (l *Latch[T]) Post(v T) {
	l.value = v
	l.full = true
}

// Take returns the pending value once; later calls report false until the
// next Post.
func (l *Latch[T]) Take() (T, bool) {
	v, ok := l.value, l.full
	var zero T
	l.value, l.full = zero, false
	return v, ok
}

// Pending reports whether a value is waiting without consuming it
func (l *Latch[T]) Pending() bool {
	return l.full
}

// Clear drops any pending value
func (l *Latch[T]) Clear() {
	var zero T
	l.value, l.full = zero, false
}

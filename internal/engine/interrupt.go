package engine

import "sync/atomic"

// InterruptCause records why the shared interrupt signal was raised.
type InterruptCause int32

const (
	CauseNone InterruptCause = iota
	CauseTimeout
	CauseMemory
	CauseTerminated
)

// Message returns the value handed to the VM interrupt, which guest-visible
// error text is derived from.
func (c InterruptCause) Message() string {
	switch c {
	case CauseTimeout:
		return "execution timeout exceeded"
	case CauseMemory:
		return "memory limit exceeded"
	case CauseTerminated:
		return "execution terminated"
	default:
		return ""
	}
}

// Interrupt is the single mutable cell shared between the host and the
// isolated worker. The guest runtime polls it at safe points, so delivery
// is cooperative and best-effort. It is reset before each dispatch.
type Interrupt struct {
	cause atomic.Int32
}

// Raise sets the cause; the first writer wins. Returns whether this call
// raised the signal.
func (i *Interrupt) Raise(cause InterruptCause) bool {
	return i.cause.CompareAndSwap(int32(CauseNone), int32(cause))
}

// Cause returns the current cause.
func (i *Interrupt) Cause() InterruptCause {
	return InterruptCause(i.cause.Load())
}

// Reset clears the signal before a new dispatch.
func (i *Interrupt) Reset() {
	i.cause.Store(int32(CauseNone))
}

package engine

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"

	"github.com/gerdinv/exec-engine/internal/shared/types"
)

// DefaultSampleInterval is the heap sampler period.
const DefaultSampleInterval = 50 * time.Millisecond

// vmHandle publishes the current request's VM so the governor can interrupt
// it from outside the worker. Nil between requests.
type vmHandle struct {
	ptr atomic.Pointer[goja.Runtime]
}

func (h *vmHandle) set(vm *goja.Runtime) { h.ptr.Store(vm) }
func (h *vmHandle) clear()               { h.ptr.Store(nil) }

// interruptVM delivers the cooperative interrupt if a VM is live.
func (h *vmHandle) interruptVM(cause InterruptCause) {
	if vm := h.ptr.Load(); vm != nil {
		vm.Interrupt(cause.Message())
	}
}

// Governor races a deadline timer and a periodic heap sampler against the
// shared interrupt signal. Delivery is best-effort: the guest runtime polls
// the signal at safe points, and a guest stuck in a tight native call only
// stops at the supervisor's harder worker-replacement fallback.
type Governor struct {
	SampleInterval time.Duration
}

// Arm starts the timer and sampler for one dispatch. The returned disarm
// must be called exactly once when a reply arrives or the worker is
// abandoned.
func (g *Governor) Arm(flag *Interrupt, vm *vmHandle, limits types.Limits) (disarm func()) {
	interval := g.SampleInterval
	if interval <= 0 {
		interval = DefaultSampleInterval
	}

	timer := time.AfterFunc(time.Duration(limits.TimeLimitMs)*time.Millisecond, func() {
		if flag.Raise(CauseTimeout) {
			vm.interruptVM(CauseTimeout)
		}
	})

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		baseline := heapInUse()
		limit := uint64(limits.MemLimitMB) * 1024 * 1024
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if limit == 0 {
					continue
				}
				if current := heapInUse(); current > baseline && current-baseline > limit {
					if flag.Raise(CauseMemory) {
						vm.interruptVM(CauseMemory)
					}
					return
				}
			}
		}
	}()

	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			timer.Stop()
			close(stop)
		}
	}
}

// heapInUse samples resident heap. Per-VM accounting does not exist, so
// growth since dispatch stands in for the guest's footprint; the single
// active worker makes this a reasonable proxy.
func heapInUse() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapInuse
}

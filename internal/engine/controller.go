package engine

import (
	"time"

	"github.com/dop251/goja"

	"github.com/gerdinv/exec-engine/internal/shared/types"
	"github.com/gerdinv/exec-engine/internal/snapshot"
)

// Controller executes one request inside the worker: policy check, source
// execution in a fresh namespace, harness, user-authored tests, and the
// opportunistic failure snapshot.
type Controller struct {
	image          *Image
	serializer     *snapshot.Serializer
	allowedImports []string
}

func newController(image *Image, serializer *snapshot.Serializer, allowedImports []string) *Controller {
	return &Controller{image: image, serializer: serializer, allowedImports: allowedImports}
}

// Execute assembles the raw result for one request. It never returns a
// host-level error: a failing guest program is the expected common case.
func (c *Controller) Execute(req types.ExecutionRequest, flag *Interrupt, vms *vmHandle) (raw types.RawResult) {
	start := time.Now()
	raw = types.RawResult{Outcomes: []types.TestOutcome{}}
	defer func() {
		raw.DurationMs = time.Since(start).Milliseconds()
	}()

	// Imports are validated against the allow-list before execution;
	// violations surface like a compile failure.
	if err := ValidatePolicy(req.SourceText, c.allowedImports); err != nil {
		raw.Stderr = err.Error() + "\n"
		return raw
	}

	rt, err := newRuntime(c.image, c.serializer)
	if err != nil {
		raw.Stderr = err.Error() + "\n"
		return raw
	}

	// Captured streams are collected on every exit path.
	defer func() {
		raw.Stdout = rt.stdout.String()
		raw.Stderr += rt.stderr.String()
	}()

	vms.set(rt.vm)
	defer vms.clear()

	// The signal may have been raised before the VM existed.
	if cause := flag.Cause(); cause != CauseNone {
		rt.vm.Interrupt(cause.Message())
	}

	prog, err := goja.Compile("main.js", req.SourceText, false)
	if err != nil {
		raw.CompileError = true
		rt.stderr.WriteString(err.Error() + "\n")
		return raw
	}

	if _, err := rt.vm.RunProgram(prog); err != nil {
		if isInterrupt(err) {
			markInterrupt(flag, &raw)
			return raw
		}
		raw.RuntimeError = true
		rt.stderr.WriteString(guestErrorText(err) + "\n")
		return raw
	}

	h := newHarness(rt)

	if len(req.TestCases) > 0 {
		outcomes, interrupted := h.run(req.TestCases)
		raw.Outcomes = append(raw.Outcomes, outcomes...)
		if interrupted {
			markInterrupt(flag, &raw)
			return raw
		}
	}

	userOutcomes, interrupted := h.runUserTests()
	raw.Outcomes = append(raw.Outcomes, userOutcomes...)
	if interrupted {
		markInterrupt(flag, &raw)
		return raw
	}

	c.maybeSnapshot(rt, h, raw.Outcomes)
	return raw
}

// maybeSnapshot emits a debugging snapshot when at least one case failed
// and the guest has not emitted one itself.
func (c *Controller) maybeSnapshot(rt *Runtime, h *harness, outcomes []types.TestOutcome) {
	anyFailed := false
	for _, outcome := range outcomes {
		if !outcome.Passed {
			anyFailed = true
			break
		}
	}
	if !anyFailed || rt.snapshotEmitted {
		return
	}

	snap := c.serializer.Snapshot(rt.Bindings(), h.lastInstance)
	if snap == nil {
		return
	}
	snap.Invariants = snapshot.ExtractInvariants(h.lastInstance)
	rt.emitSnapshot(snap)
}

func markInterrupt(flag *Interrupt, raw *types.RawResult) {
	switch flag.Cause() {
	case CauseMemory:
		raw.MemoryExceeded = true
	case CauseTerminated:
		// The supervisor resolves terminated callers itself.
	default:
		raw.TimedOut = true
	}
}

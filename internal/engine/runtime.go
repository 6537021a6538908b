package engine

import (
	"strings"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"

	"github.com/gerdinv/exec-engine/internal/postprocess"
	"github.com/gerdinv/exec-engine/internal/snapshot"
)

// captureHardCap bounds in-worker stream buffers. Caller-facing ceilings are
// applied later by the post-processor; this only protects worker memory.
const captureHardCap = 1 << 20

// captureBuffer is a bounded output sink for one redirected stream.
type captureBuffer struct {
	buf strings.Builder
}

func (b *captureBuffer) WriteString(s string) {
	remaining := captureHardCap - b.buf.Len()
	if remaining <= 0 {
		return
	}
	if len(s) > remaining {
		s = s[:remaining]
	}
	b.buf.WriteString(s)
}

func (b *captureBuffer) String() string { return b.buf.String() }

// Runtime is one guest VM prepared for a single request: a fresh namespace
// with the shared image loaded, captured output streams and the snapshot
// emitter installed.
type Runtime struct {
	vm         *goja.Runtime
	stdout     captureBuffer
	stderr     captureBuffer
	serializer *snapshot.Serializer

	baseline        map[string]bool
	snapshotEmitted bool
}

// newRuntime boots a fresh VM and runs the image into it.
func newRuntime(img *Image, serializer *snapshot.Serializer) (*Runtime, error) {
	vm := goja.New()
	vm.SetMaxCallStackSize(1024)

	r := &Runtime{vm: vm, serializer: serializer}

	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	if _, err := vm.RunProgram(img.prog); err != nil {
		return nil, err
	}

	// Everything bound so far belongs to the image, not the guest.
	r.baseline = make(map[string]bool)
	for _, key := range vm.GlobalObject().Keys() {
		r.baseline[key] = true
	}
	return r, nil
}

// setupGlobals installs output capture and removes dangerous globals.
func (r *Runtime) setupGlobals() error {
	vm := r.vm

	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())
	vm.Set("module", goja.Undefined())
	vm.Set("exports", goja.Undefined())

	// Timers are no-ops: guest programs run to completion synchronously.
	noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }
	vm.Set("setTimeout", noop)
	vm.Set("setInterval", noop)

	console := vm.NewObject()
	console.Set("log", r.makeConsoleFunc(&r.stdout))
	console.Set("info", r.makeConsoleFunc(&r.stdout))
	console.Set("warn", r.makeConsoleFunc(&r.stderr))
	console.Set("error", r.makeConsoleFunc(&r.stderr))
	if err := vm.Set("console", console); err != nil {
		return err
	}

	// visualize(value) lets guest code emit a snapshot of a specific value,
	// the same payload the engine emits opportunistically on failure.
	return vm.Set("visualize", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Undefined()
		}
		bindings := []snapshot.Binding{{Name: argName(call, 1), Value: call.Arguments[0]}}
		if snap := r.serializer.Snapshot(bindings, nil); snap != nil {
			r.emitSnapshot(snap)
		}
		return goja.Undefined()
	})
}

// argName returns an optional second string argument naming the value,
// which drives name-based classification (heaps).
func argName(call goja.FunctionCall, idx int) string {
	if len(call.Arguments) > idx {
		return call.Arguments[idx].String()
	}
	return ""
}

func (r *Runtime) makeConsoleFunc(sink *captureBuffer) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		sink.WriteString(strings.Join(parts, " ") + "\n")
		return goja.Undefined()
	}
}

// emitSnapshot writes the payload into captured stdout between the fixed
// marker lines, mirroring the guest helper library's framing.
func (r *Runtime) emitSnapshot(snap *snapshot.StructureSnapshot) {
	data, err := sonic.MarshalString(snap)
	if err != nil {
		return
	}
	r.stdout.WriteString("\n" + postprocess.PayloadStart + "\n")
	r.stdout.WriteString(data + "\n")
	r.stdout.WriteString(postprocess.PayloadEnd + "\n\n")
	r.snapshotEmitted = true
}

// Bindings returns the guest-owned namespace bindings in definition order,
// excluding everything the image installed.
func (r *Runtime) Bindings() []snapshot.Binding {
	global := r.vm.GlobalObject()
	var bindings []snapshot.Binding
	for _, key := range global.Keys() {
		if r.baseline[key] {
			continue
		}
		if value, ok := safeGlobal(global, key); ok {
			bindings = append(bindings, snapshot.Binding{Name: key, Value: value})
		}
	}
	return bindings
}

func safeGlobal(global *goja.Object, key string) (v goja.Value, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = nil, false
		}
	}()
	v = global.Get(key)
	return v, v != nil
}

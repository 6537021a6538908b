package engine

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/dop251/goja"

	"github.com/gerdinv/exec-engine/internal/shared/types"
)

// harness drives test cases against the guest namespace. Each case is
// independently guarded and timed, so one failure never aborts the suite;
// only a raised interrupt stops the remaining cases.
type harness struct {
	rt *Runtime

	// lastInstance is the most recently constructed test subject,
	// last-write-wins. Ambiguous when a suite constructs instances of
	// different classes; downstream visualization depends on this heuristic.
	lastInstance *goja.Object
}

func newHarness(rt *Runtime) *harness {
	return &harness{rt: rt}
}

// run executes every case in order. Returns the outcomes computed before a
// raised interrupt, if any, and whether the run was interrupted.
func (h *harness) run(cases []types.TestCase) ([]types.TestOutcome, bool) {
	outcomes := make([]types.TestOutcome, 0, len(cases))
	for _, tc := range cases {
		outcome, interrupted := h.runCase(tc)
		outcomes = append(outcomes, outcome)
		if interrupted {
			return outcomes, true
		}
	}
	return outcomes, false
}

func (h *harness) runCase(tc types.TestCase) (outcome types.TestOutcome, interrupted bool) {
	start := time.Now()
	outcome = types.TestOutcome{ID: tc.ID, TargetName: caseTarget(tc), Expected: tc.Expected}
	defer func() {
		outcome.DurationMs = time.Since(start).Milliseconds()
		if r := recover(); r != nil {
			outcome.Passed = false
			outcome.ErrorText = fmt.Sprint(r)
		}
	}()

	switch tc.EntryKind {
	case types.EntryFunction:
		interrupted = h.runFunction(tc, &outcome)
	case types.EntryMethod:
		interrupted = h.runMethod(tc, &outcome)
	case types.EntrySequence:
		interrupted = h.runSequence(tc, &outcome)
	default:
		outcome.ErrorText = fmt.Sprintf("unknown entry kind %q", tc.EntryKind)
	}
	return outcome, interrupted
}

func caseTarget(tc types.TestCase) string {
	if tc.EntryKind == types.EntrySequence {
		return tc.ClassName
	}
	return tc.TargetName
}

func (h *harness) runFunction(tc types.TestCase, outcome *types.TestOutcome) bool {
	fn, err := h.lookupFunction(tc.TargetName)
	if err != nil {
		outcome.ErrorText = err.Error()
		return false
	}
	ret, err := fn(goja.Undefined(), h.toValues(tc.Arguments)...)
	if err != nil {
		return h.recordCallError(err, outcome)
	}
	h.settle(outcome, ret, tc.Expected)
	return false
}

func (h *harness) runMethod(tc types.TestCase, outcome *types.TestOutcome) bool {
	instance, err := h.construct(tc.ClassName)
	if err != nil {
		return h.recordCallError(err, outcome)
	}
	h.lastInstance = instance

	fn, err := h.lookupMethod(instance, tc.TargetName)
	if err != nil {
		outcome.ErrorText = err.Error()
		return false
	}
	ret, err := fn(instance, h.toValues(tc.Arguments)...)
	if err != nil {
		return h.recordCallError(err, outcome)
	}
	h.settle(outcome, ret, tc.Expected)
	return false
}

// runSequence constructs the class with the given constructor arguments and
// drives each operation in order, collecting returns positionally; the
// first slot is always null, aligning with the constructor.
func (h *harness) runSequence(tc types.TestCase, outcome *types.TestOutcome) bool {
	instance, err := h.construct(tc.ClassName, tc.Arguments...)
	if err != nil {
		return h.recordCallError(err, outcome)
	}
	h.lastInstance = instance

	returns := make([]any, 0, len(tc.Operations)+1)
	returns = append(returns, nil)

	for _, op := range tc.Operations {
		fn, err := h.lookupMethod(instance, op.Name)
		if err != nil {
			outcome.Received = returns
			outcome.ErrorText = err.Error()
			return false
		}
		ret, err := fn(instance, h.toValues(op.Arguments)...)
		if err != nil {
			outcome.Received = returns
			return h.recordCallError(err, outcome)
		}
		returns = append(returns, exportValue(ret))
	}

	outcome.Received = returns
	if tc.Expected == nil {
		outcome.Passed = true
	} else {
		outcome.Passed = equalValues(returns, tc.Expected)
	}
	return false
}

// maxUserTests bounds the registered collection so a forged length
// property cannot spin the host loop.
const maxUserTests = 1000

// runUserTests executes a self-contained user-authored tests collection
// registered in the namespace, one pass/fail/error outcome per entry.
// The collection is guest-writable, so every property access is treated
// as potentially absent or malformed.
func (h *harness) runUserTests() ([]types.TestOutcome, bool) {
	testsVal, ok := safeGlobal(h.rt.vm.GlobalObject(), "__userTests")
	if !ok {
		return nil, false
	}
	tests, ok := testsVal.(*goja.Object)
	if !ok {
		return nil, false
	}

	lengthVal := tests.Get("length")
	if lengthVal == nil || goja.IsUndefined(lengthVal) {
		return nil, false
	}
	length := int(lengthVal.ToInteger())
	if length > maxUserTests {
		length = maxUserTests
	}
	outcomes := make([]types.TestOutcome, 0, length)
	for i := 0; i < length; i++ {
		entry, ok := tests.Get(strconv.Itoa(i)).(*goja.Object)
		if !ok {
			continue
		}
		name := ""
		if nameVal := entry.Get("name"); nameVal != nil && !goja.IsUndefined(nameVal) {
			name = nameVal.String()
		}
		outcome := types.TestOutcome{ID: "user-" + strconv.Itoa(i), TargetName: name}

		start := time.Now()
		fn, isFn := goja.AssertFunction(entry.Get("fn"))
		if !isFn {
			outcome.ErrorText = "test body is not a function"
		} else if ret, err := fn(goja.Undefined()); err != nil {
			if isInterrupt(err) {
				return outcomes, true
			}
			outcome.ErrorText = guestErrorText(err)
		} else if b, isBool := exportValue(ret).(bool); isBool && !b {
			outcome.ErrorText = "test returned false"
		} else {
			outcome.Passed = true
		}
		outcome.DurationMs = time.Since(start).Milliseconds()
		outcomes = append(outcomes, outcome)
	}
	return outcomes, false
}

func (h *harness) lookupFunction(name string) (goja.Callable, error) {
	val, ok := safeGlobal(h.rt.vm.GlobalObject(), name)
	if !ok || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, fmt.Errorf("%s is not defined", name)
	}
	fn, isFn := goja.AssertFunction(val)
	if !isFn {
		return nil, fmt.Errorf("%s is not callable", name)
	}
	return fn, nil
}

func (h *harness) lookupMethod(instance *goja.Object, name string) (goja.Callable, error) {
	val := instance.Get(name)
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, fmt.Errorf("method %s is not defined", name)
	}
	fn, isFn := goja.AssertFunction(val)
	if !isFn {
		return nil, fmt.Errorf("%s is not a method", name)
	}
	return fn, nil
}

func (h *harness) construct(className string, args ...any) (*goja.Object, error) {
	val, ok := safeGlobal(h.rt.vm.GlobalObject(), className)
	if !ok || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, fmt.Errorf("class %s is not defined", className)
	}
	ctor, isCtor := goja.AssertConstructor(val)
	if !isCtor {
		return nil, fmt.Errorf("%s is not constructable", className)
	}
	return ctor(nil, h.toValues(args)...)
}

func (h *harness) toValues(args []any) []goja.Value {
	values := make([]goja.Value, len(args))
	for i, arg := range args {
		values[i] = h.rt.vm.ToValue(arg)
	}
	return values
}

// settle fills the outcome from a successful call: structural equality when
// an expectation is present, call success otherwise.
func (h *harness) settle(outcome *types.TestOutcome, ret goja.Value, expected any) {
	outcome.Received = exportValue(ret)
	if expected == nil {
		outcome.Passed = true
		return
	}
	outcome.Passed = equalValues(outcome.Received, expected)
}

// recordCallError folds a guest call error into the outcome, reporting
// whether it was a raised interrupt rather than a guest failure.
func (h *harness) recordCallError(err error, outcome *types.TestOutcome) bool {
	if isInterrupt(err) {
		outcome.ErrorText = "interrupted"
		return true
	}
	outcome.ErrorText = guestErrorText(err)
	return false
}

func isInterrupt(err error) bool {
	var ierr *goja.InterruptedError
	return errors.As(err, &ierr)
}

// guestErrorText renders a guest exception with its stack, or the bare
// error text for host-level failures.
func guestErrorText(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return ex.String()
	}
	return err.Error()
}

// exportValue converts a guest value to a plain Go value; undefined and
// null both map to nil.
func exportValue(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

// equalValues compares structurally with numeric coercion: guest integers
// and JSON floats representing the same number are equal.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat(a); ok {
		fb, okB := toFloat(b)
		return okB && fa == fb
	}
	switch av := a.(type) {
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalValues(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bVal, present := bv[k]
			if !present || !equalValues(v, bVal) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

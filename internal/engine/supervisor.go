package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gerdinv/exec-engine/internal/config"
	"github.com/gerdinv/exec-engine/internal/logging"
	"github.com/gerdinv/exec-engine/internal/monitoring"
	"github.com/gerdinv/exec-engine/internal/postprocess"
	"github.com/gerdinv/exec-engine/internal/shared/id"
	"github.com/gerdinv/exec-engine/internal/shared/types"
)

var (
	// ErrNotInitialized is returned before a successful Initialize, and
	// after an init failure: an InitError is fatal for the supervisor and
	// not auto-retried.
	ErrNotInitialized = errors.New("engine: runtime image not loaded")
	// ErrBusy is returned on a concurrent Execute. Requests are strictly
	// serialized; a concurrent call is a caller error, never queued.
	ErrBusy = errors.New("engine: execution already in flight")
	// ErrTerminated is returned after Terminate.
	ErrTerminated = errors.New("engine: supervisor terminated")
)

// recreateGrace is the fixed overhead allowed past the cooperative window
// before the worker is abandoned and replaced.
const recreateGrace = 250 * time.Millisecond

// pingTimeout bounds a health-check round trip.
const pingTimeout = 2 * time.Second

// Options configures a Supervisor.
type Options struct {
	ImageLocation      string
	DefaultTimeLimitMs int
	MaxTimeLimitMs     int
	DefaultMemLimitMB  int
	SampleInterval     time.Duration
	SnapshotNodeCap    int
	AllowedImports     []string
	StdoutLimit        int
	StderrLimit        int
}

// OptionsFromConfig maps engine configuration onto supervisor options.
func OptionsFromConfig(cfg config.EngineConfig) Options {
	return Options{
		DefaultTimeLimitMs: cfg.DefaultTimeLimitMs,
		MaxTimeLimitMs:     cfg.MaxTimeLimitMs,
		DefaultMemLimitMB:  cfg.DefaultMemLimitMB,
		SampleInterval:     cfg.SampleInterval,
		SnapshotNodeCap:    cfg.SnapshotNodeCap,
		AllowedImports:     cfg.AllowedImports,
		StdoutLimit:        cfg.StdoutLimit,
		StderrLimit:        cfg.StderrLimit,
	}
}

// Supervisor owns one isolated worker and its shared interrupt signal:
// creation, dispatch, correlation, abandonment and replacement. At most one
// request is in flight at a time.
type Supervisor struct {
	opts     Options
	log      *logging.Logger
	metrics  *monitoring.Metrics
	governor Governor

	mu          sync.Mutex
	worker      *worker
	initialized bool
	initErr     error
	initCh      chan struct{} // non-nil while an init is in flight
	terminated  bool

	termCh chan struct{}
	busy   atomic.Bool
}

// NewSupervisor creates a supervisor; call Initialize before Execute.
func NewSupervisor(opts Options, log *logging.Logger, metrics *monitoring.Metrics) *Supervisor {
	if log == nil {
		log = logging.NewNop()
	}
	return &Supervisor{
		opts:     opts,
		log:      log.Named("supervisor"),
		metrics:  metrics,
		governor: Governor{SampleInterval: opts.SampleInterval},
		termCh:   make(chan struct{}),
	}
}

// Initialize loads the runtime image into a fresh worker. Concurrent
// callers await the single in-flight initialization.
func (s *Supervisor) Initialize(ctx context.Context, imageLocation string) error {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return ErrTerminated
	}
	if s.initialized {
		err := s.initErr
		s.mu.Unlock()
		return err
	}
	if s.initCh != nil {
		ch := s.initCh
		s.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
		err := s.initErr
		s.mu.Unlock()
		return err
	}

	ch := make(chan struct{})
	s.initCh = ch
	s.opts.ImageLocation = imageLocation
	w := newWorker(s.opts.SnapshotNodeCap, s.opts.AllowedImports)
	s.worker = w
	s.mu.Unlock()

	err := s.initWorker(ctx, w)

	s.mu.Lock()
	s.initialized = true
	s.initErr = err
	s.initCh = nil
	if err != nil {
		s.worker = nil
		w.shutdown(CauseTerminated)
	}
	s.mu.Unlock()
	close(ch)

	if err != nil {
		s.log.Error("runtime image load failed", zap.Error(err))
		return err
	}
	s.log.Info("worker initialized", zap.String("worker", string(w.id)))
	return nil
}

// initWorker runs the Init round trip against a fresh worker.
func (s *Supervisor) initWorker(ctx context.Context, w *worker) error {
	corr := id.NewMessageID()
	if !s.send(w, request{kind: msgInit, corr: corr, imageLocation: s.opts.ImageLocation}) {
		return ErrTerminated
	}
	for {
		select {
		case resp := <-w.replies:
			if resp.corr != corr {
				continue
			}
			return resp.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Execute runs one request to completion. At most one request is in flight
// per supervisor; a concurrent call returns ErrBusy. On deadline with no
// reply the worker is abandoned, a timeout result is synthesized and a
// fresh worker is created lazily for the next call.
func (s *Supervisor) Execute(ctx context.Context, req types.ExecutionRequest) (*types.ExecutionResult, error) {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return nil, ErrTerminated
	}
	if !s.initialized || s.initErr != nil {
		s.mu.Unlock()
		return nil, ErrNotInitialized
	}
	s.mu.Unlock()

	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.busy.Store(false)

	w, err := s.liveWorker(ctx)
	if err != nil {
		return nil, err
	}

	limits := s.clampLimits(&req)

	// The shared signal is the only mutable cross-thread state; reset
	// before each dispatch.
	w.flag.Reset()
	disarm := s.governor.Arm(&w.flag, &w.vms, limits)
	defer disarm()

	corr := id.NewMessageID()
	start := time.Now()
	if !s.send(w, request{kind: msgRun, corr: corr, run: &req}) {
		return s.terminatedResult(start), nil
	}

	hard := 2*time.Duration(limits.TimeLimitMs)*time.Millisecond + recreateGrace
	hardTimer := time.NewTimer(hard)
	defer hardTimer.Stop()

	for {
		select {
		case resp := <-w.replies:
			if resp.corr != corr {
				// Stale reply from an abandoned incarnation.
				continue
			}
			if resp.err != nil {
				return nil, resp.err
			}
			return postprocess.Process(*resp.raw, s.ppOptions()), nil

		case <-hardTimer.C:
			s.log.Warn("worker unresponsive past deadline, abandoning",
				zap.String("worker", string(w.id)),
				zap.Int("time_limit_ms", limits.TimeLimitMs))
			s.replace(w, CauseTimeout)
			raw := types.RawResult{TimedOut: true, DurationMs: time.Since(start).Milliseconds()}
			return postprocess.Process(raw, s.ppOptions()), nil

		case <-s.termCh:
			s.replace(w, CauseTerminated)
			return s.terminatedResult(start), nil

		case <-ctx.Done():
			s.replace(w, CauseTerminated)
			return nil, ctx.Err()
		}
	}
}

// Ping checks worker liveness with a nonce echo.
func (s *Supervisor) Ping(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	w, err := s.liveWorker(ctx)
	if err != nil {
		return err
	}

	corr := id.NewMessageID()
	nonce := uuid.NewString()
	if !s.send(w, request{kind: msgPing, corr: corr, nonce: nonce}) {
		return ErrTerminated
	}

	timer := time.NewTimer(pingTimeout)
	defer timer.Stop()
	for {
		select {
		case resp := <-w.replies:
			if resp.corr != corr {
				continue
			}
			if resp.nonce != nonce {
				return errors.New("engine: ping nonce mismatch")
			}
			return nil
		case <-timer.C:
			s.replace(w, CauseTerminated)
			return errors.New("engine: ping timeout")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Terminate tears the supervisor down immediately, resolving any in-flight
// caller with an explicit terminated result rather than leaving it
// unresolved.
func (s *Supervisor) Terminate() {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return
	}
	s.terminated = true
	w := s.worker
	s.worker = nil
	s.mu.Unlock()

	close(s.termCh)
	if w != nil {
		w.shutdown(CauseTerminated)
	}
	s.log.Info("supervisor terminated")
}

// liveWorker returns the current worker, lazily recreating and
// re-initializing one after an abandonment.
func (s *Supervisor) liveWorker(ctx context.Context) (*worker, error) {
	s.mu.Lock()
	w := s.worker
	s.mu.Unlock()
	if w != nil {
		return w, nil
	}

	w = newWorker(s.opts.SnapshotNodeCap, s.opts.AllowedImports)
	if err := s.initWorker(ctx, w); err != nil {
		w.shutdown(CauseTerminated)
		return nil, err
	}

	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		w.shutdown(CauseTerminated)
		return nil, ErrTerminated
	}
	s.worker = w
	s.mu.Unlock()
	s.log.Info("worker recreated", zap.String("worker", string(w.id)))
	return w, nil
}

// send dispatches under the lock so a concurrent Terminate cannot close
// the channel mid-send. The request channel is buffered, so a live worker
// never blocks the send.
func (s *Supervisor) send(w *worker, req request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated && req.kind != msgInit {
		return false
	}
	select {
	case w.requests <- req:
		return true
	default:
		return false
	}
}

// replace abandons a worker. A fresh one is created lazily on the next call.
func (s *Supervisor) replace(w *worker, cause InterruptCause) {
	s.mu.Lock()
	if s.worker == w {
		s.worker = nil
	}
	s.mu.Unlock()
	w.shutdown(cause)
	s.metrics.RecordWorkerReplacement()
}

// clampLimits applies defaults and ceilings in place, returning the
// effective limits.
func (s *Supervisor) clampLimits(req *types.ExecutionRequest) types.Limits {
	if req.TimeLimitMs <= 0 {
		req.TimeLimitMs = s.opts.DefaultTimeLimitMs
	}
	if s.opts.MaxTimeLimitMs > 0 && req.TimeLimitMs > s.opts.MaxTimeLimitMs {
		req.TimeLimitMs = s.opts.MaxTimeLimitMs
	}
	if req.MemLimitMB <= 0 {
		req.MemLimitMB = s.opts.DefaultMemLimitMB
	}
	return types.Limits{TimeLimitMs: req.TimeLimitMs, MemLimitMB: req.MemLimitMB}
}

func (s *Supervisor) ppOptions() postprocess.Options {
	opts := postprocess.DefaultOptions()
	if s.opts.StdoutLimit > 0 {
		opts.StdoutLimit = s.opts.StdoutLimit
	}
	if s.opts.StderrLimit > 0 {
		opts.StderrLimit = s.opts.StderrLimit
	}
	return opts
}

func (s *Supervisor) terminatedResult(start time.Time) *types.ExecutionResult {
	return &types.ExecutionResult{
		ExitReason: types.ExitTerminated,
		Outcomes:   []types.TestOutcome{},
		DurationMs: time.Since(start).Milliseconds(),
	}
}

package engine

import (
	"fmt"
	"sync"

	"github.com/gerdinv/exec-engine/internal/shared/id"
	"github.com/gerdinv/exec-engine/internal/shared/types"
	"github.com/gerdinv/exec-engine/internal/snapshot"
)

// msgKind enumerates the host protocol request kinds.
type msgKind int

const (
	msgInit msgKind = iota
	msgRun
	msgPing
)

// request is one host-to-worker protocol message. Every request carries a
// caller-generated correlation id echoed in the response, enabling
// demultiplexing even though only one request is in flight today.
type request struct {
	kind          msgKind
	corr          id.MessageID
	imageLocation string
	run           *types.ExecutionRequest
	nonce         string
}

// response is the worker's reply to exactly one request.
type response struct {
	corr  id.MessageID
	err   error
	raw   *types.RawResult
	nonce string
}

// worker owns one isolated execution goroutine. Workers are fungible and
// stateless across calls other than the loaded image; replacement is the
// only recovery from a wedged worker, no in-place reset exists.
type worker struct {
	id       id.WorkerID
	requests chan request
	replies  chan response

	flag Interrupt
	vms  vmHandle

	serializer     *snapshot.Serializer
	allowedImports []string

	image     *Image // set by msgInit, immutable afterwards
	closeOnce sync.Once
}

func newWorker(nodeCap int, allowedImports []string) *worker {
	w := &worker{
		id: id.NewWorkerID(),
		// Buffered so a serialized dispatch never blocks and an abandoned
		// worker's final reply is absorbed.
		requests:       make(chan request, 1),
		replies:        make(chan response, 1),
		serializer:     snapshot.NewSerializer(nodeCap),
		allowedImports: allowedImports,
	}
	go w.loop()
	return w
}

func (w *worker) loop() {
	for req := range w.requests {
		w.replies <- w.handle(req)
	}
}

func (w *worker) handle(req request) response {
	resp := response{corr: req.corr}
	switch req.kind {
	case msgInit:
		img, err := LoadImage(req.imageLocation)
		if err != nil {
			resp.err = err
			break
		}
		w.image = img
	case msgPing:
		resp.nonce = req.nonce
	case msgRun:
		if w.image == nil {
			resp.err = ErrNotInitialized
			break
		}
		resp.raw = w.execute(req)
	}
	return resp
}

// execute guards one run with a recover: a panic anywhere in the
// controller or harness degrades to a runtime error result instead of
// killing the worker goroutine, and with it the process.
func (w *worker) execute(req request) (raw *types.RawResult) {
	defer func() {
		if r := recover(); r != nil {
			raw = &types.RawResult{
				Stderr:       fmt.Sprintf("internal error: %v\n", r),
				Outcomes:     []types.TestOutcome{},
				RuntimeError: true,
			}
		}
	}()
	ctrl := newController(w.image, w.serializer, w.allowedImports)
	result := ctrl.Execute(*req.run, &w.flag, &w.vms)
	return &result
}

// shutdown raises the interrupt and closes the request channel. The loop
// exits once any in-flight handle returns; until then the goroutine is
// abandoned, which is the closest a goroutine gets to forced termination.
func (w *worker) shutdown(cause InterruptCause) {
	w.flag.Raise(cause)
	w.vms.interruptVM(cause)
	w.closeOnce.Do(func() { close(w.requests) })
}

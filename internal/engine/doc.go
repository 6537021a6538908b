/*
Package engine executes untrusted student-submitted source against an
embedded guest-language interpreter isolated in its own worker goroutine.

# Overview

The engine accepts source text plus structured test cases, runs the code
once in a fresh namespace, drives a pluggable test harness (plain function,
instance method, or multi-step operation sequence for stateful design
problems), captures output, and returns a normalized result with per-case
outcomes and an optional structural snapshot for debugging visualization.

# Architecture

 1. Supervisor: owns the worker lifecycle (creation, dispatch,
    correlation, abandonment and replacement)
 2. Worker: one goroutine, one loaded image, a channel protocol with
    correlation ids (Init / Run / Ping)
 3. Governor: a deadline timer plus a periodic heap sampler racing against
    the shared interrupt signal
 4. Controller: policy check, execution, harness, user-authored tests and
    the opportunistic failure snapshot

# Cancellation model

The shared interrupt signal is the only mutable cross-thread state. The
guest runtime polls it at safe points, so cancellation is cooperative and
best-effort: a guest stuck in a tight native call only stops at the
supervisor's worker-replacement fallback, which synthesizes a timeout
result and lazily creates a fresh worker for the next call.

# Failure policy

Every guest-attributable failure (compile error, policy violation, uncaught
exception, timeout, memory, failed tests) is a normal ExecutionResult with
an exit reason, not a host-level error. Only a failed image load aborts the
call chain, since no request can be served without a loaded runtime.
*/
package engine

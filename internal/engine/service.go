package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gerdinv/exec-engine/internal/logging"
	"github.com/gerdinv/exec-engine/internal/monitoring"
	"github.com/gerdinv/exec-engine/internal/shared/id"
	"github.com/gerdinv/exec-engine/internal/shared/types"
)

// Service is the consumer-facing surface: callers treat the result as a
// value type with no further worker interaction implied.
type Service struct {
	sup     *Supervisor
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewService wires a supervisor behind the consumer contract.
func NewService(sup *Supervisor, log *logging.Logger, metrics *monitoring.Metrics) *Service {
	if log == nil {
		log = logging.NewNop()
	}
	return &Service{sup: sup, log: log.Named("engine"), metrics: metrics}
}

// Initialize loads the runtime image. Must succeed before RunTestCases.
func (s *Service) Initialize(ctx context.Context, imageLocation string) error {
	return s.sup.Initialize(ctx, imageLocation)
}

// RunTestCases executes code against the test cases under the given limits.
func (s *Service) RunTestCases(ctx context.Context, code string, testCases []types.TestCase, limits types.Limits) (*types.ExecutionResult, error) {
	runID := id.NewRunID()
	start := time.Now()

	result, err := s.sup.Execute(ctx, types.ExecutionRequest{
		SourceText:  code,
		TestCases:   testCases,
		TimeLimitMs: limits.TimeLimitMs,
		MemLimitMB:  limits.MemLimitMB,
	})
	if err != nil {
		s.log.Warn("execution rejected",
			zap.String("run", string(runID)),
			zap.Error(err))
		return nil, err
	}

	s.metrics.RecordExecution(string(result.ExitReason), time.Since(start), result.Visualization != nil)
	s.log.Info("execution finished",
		zap.String("run", string(runID)),
		zap.String("exit_reason", string(result.ExitReason)),
		zap.Int("outcomes", len(result.Outcomes)),
		zap.Int64("duration_ms", result.DurationMs))
	return result, nil
}

// Ping checks worker liveness.
func (s *Service) Ping(ctx context.Context) error {
	return s.sup.Ping(ctx)
}

// Close tears down the supervisor.
func (s *Service) Close() {
	s.sup.Terminate()
}

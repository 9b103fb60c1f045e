package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/driftsec/hostsentry/internal/detector"
	"github.com/driftsec/hostsentry/pkg/types"
)

// ProgressFunc receives (completed, total) after each detector finishes.
type ProgressFunc func(completed, total int)

// Scheduler executes detectors in bounded-concurrency waves. Each wave is
// fully joined before the next begins; a failing, panicking, or timed-out
// detector degrades to an errored result and never aborts the wave.
type Scheduler struct {
	registry *detector.Registry
	env      detector.Env
	logger   *slog.Logger
	parallel int
	timeout  time.Duration
	progress ProgressFunc
}

// Options configures a Scheduler.
type Options struct {
	// Parallel bounds each wave; values below 2 run detectors sequentially
	Parallel int

	// Timeout applies per detector invocation
	Timeout time.Duration

	// Progress, if set, is invoked after each detector completes
	Progress ProgressFunc
}

// New creates a scheduler over a detector registry
func New(registry *detector.Registry, env detector.Env, logger *slog.Logger, opts Options) *Scheduler {
	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 1
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &Scheduler{
		registry: registry,
		env:      env,
		logger:   logger,
		parallel: parallel,
		timeout:  timeout,
		progress: opts.Progress,
	}
}

// RunPhase executes the named detectors as one phase and returns results
// keyed by detector identifier; ordering within a chunk carries no meaning.
// Cancellation is honored at chunk boundaries: detectors in chunks never
// started are reported with a terminal cancelled result.
func (s *Scheduler) RunPhase(ctx context.Context, keys []string) (map[string]types.DetectorResult, error) {
	detectors, err := s.registry.Build(s.env, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to build detector set; %w", err)
	}

	total := len(detectors)
	results := make(map[string]types.DetectorResult, total)
	completed := 0

	var mu sync.Mutex
	record := func(res types.DetectorResult) {
		mu.Lock()
		results[res.Detector] = res
		completed++
		done := completed
		mu.Unlock()
		if s.progress != nil {
			s.progress(done, total)
		}
	}

	for start := 0; start < total; start += s.parallel {
		if ctx.Err() != nil {
			s.logger.Warn("run cancelled, skipping remaining detectors",
				"remaining", total-start)
			for _, d := range detectors[start:] {
				record(cancelledResult(d.Key()))
			}
			break
		}

		end := start + s.parallel
		if end > total {
			end = total
		}

		var wg sync.WaitGroup
		for _, d := range detectors[start:end] {
			wg.Add(1)
			go func(d detector.Detector) {
				defer wg.Done()
				record(s.runDetector(ctx, d))
			}(d)
		}
		// Full join before the next chunk; no partial-chunk pipelining
		wg.Wait()
	}

	return results, nil
}

// runDetector runs a single detector with a timeout and panic recovery.
func (s *Scheduler) runDetector(ctx context.Context, d detector.Detector) (res types.DetectorResult) {
	key := d.Key()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("detector panicked", "detector", key, "panic", r)
			res = types.DetectorResult{
				Detector:    key,
				Err:         fmt.Sprintf("detector panicked: %v", r),
				OverallRisk: types.RiskUnknown,
				Duration:    time.Since(start),
			}
		}
	}()

	detCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.logger.Debug("running detector", "detector", key)
	res = d.Analyze(detCtx)
	if res.Detector == "" {
		res.Detector = key
	}
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}

	s.logger.Debug("detector completed",
		"detector", key,
		"findings", len(res.Findings),
		"risk", res.OverallRisk.String(),
		"error", res.Err,
		"duration", res.Duration)

	return res
}

func cancelledResult(key string) types.DetectorResult {
	return types.DetectorResult{
		Detector:    key,
		Err:         "cancelled",
		OverallRisk: types.RiskUnknown,
	}
}

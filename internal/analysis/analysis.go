package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/driftsec/hostsentry/internal/config"
	"github.com/driftsec/hostsentry/internal/correlate"
	"github.com/driftsec/hostsentry/internal/detector"
	"github.com/driftsec/hostsentry/internal/detector/collectors"
	"github.com/driftsec/hostsentry/internal/firewall"
	"github.com/driftsec/hostsentry/internal/indicator"
	"github.com/driftsec/hostsentry/internal/scheduler"
	"github.com/driftsec/hostsentry/pkg/types"
)

// ExternalAnalyzer is the gateway contract. It must never be invoked with a
// payload that has not passed the firewall gate in the same run; Runner is
// its only caller and enforces that.
type ExternalAnalyzer interface {
	Analyze(ctx context.Context, prompt string, summary types.Summary) (*types.GatewayResult, error)
}

// correlationKey is the detector key derived correlation findings are
// aggregated under.
const correlationKey = "correlation"

// Options configures a Runner beyond its config.
type Options struct {
	// Progress, if set, receives (completed, total) detector notifications
	Progress scheduler.ProgressFunc

	// Gateway enables the external analysis step when non-nil
	Gateway ExternalAnalyzer

	// Registry overrides the built-in detector registry
	Registry *detector.Registry

	// CoreKeys / AdaptiveKeys override the built-in phase sets
	CoreKeys     []string
	AdaptiveKeys []string
}

// Runner orchestrates a full analysis: the core detector phase, the
// adaptive decision, the conditional phase, correlation, aggregation, and
// the gated external analysis step.
type Runner struct {
	cfg          *config.Config
	logger       *slog.Logger
	sched        *scheduler.Scheduler
	extractor    *indicator.Extractor
	fw           *firewall.Firewall
	gateway      ExternalAnalyzer
	rules        []correlate.Rule
	coreKeys     []string
	adaptiveKeys []string
}

// NewRunner creates an analysis runner
func NewRunner(cfg *config.Config, logger *slog.Logger, opts Options) *Runner {
	registry := opts.Registry
	if registry == nil {
		registry = collectors.NewRegistry()
	}
	coreKeys := opts.CoreKeys
	if coreKeys == nil {
		coreKeys = collectors.CoreKeys
	}
	adaptiveKeys := opts.AdaptiveKeys
	if adaptiveKeys == nil {
		adaptiveKeys = collectors.AdaptiveKeys
	}

	env := detector.Env{
		Cfg:        cfg,
		Logger:     logger,
		Signatures: detector.NewSignatureCache(),
	}

	sched := scheduler.New(registry, env, logger, scheduler.Options{
		Parallel: cfg.Scan.MaxParallelAgents,
		Timeout:  time.Duration(cfg.Scan.DetectorTimeoutSeconds) * time.Second,
		Progress: opts.Progress,
	})

	return &Runner{
		cfg:          cfg,
		logger:       logger,
		sched:        sched,
		extractor:    indicator.NewExtractor(logger, indicator.DefaultProbes()),
		fw:           firewall.New(),
		gateway:      opts.Gateway,
		rules:        correlate.DefaultRules(),
		coreKeys:     coreKeys,
		adaptiveKeys: adaptiveKeys,
	}
}

// Run executes the full analysis and assembles the read-only AnalysisRun.
func (r *Runner) Run(ctx context.Context) (*types.AnalysisRun, error) {
	started := time.Now()
	r.logger.Info("starting analysis", "core_detectors", len(r.coreKeys))

	results, err := r.sched.RunPhase(ctx, r.coreKeys)
	if err != nil {
		return nil, fmt.Errorf("core phase failed to start; %w", err)
	}

	adaptive := r.runAdaptivePhase(ctx, results)

	if derived := correlate.Correlate(results, r.rules); len(derived) > 0 {
		results[correlationKey] = types.DetectorResult{
			Detector:    correlationKey,
			Findings:    derived,
			OverallRisk: correlate.DeriveRiskFromFindings(derived, types.RiskLow),
		}
	}

	summary := correlate.GenerateSummary(results)
	if summary.Error != "" {
		r.logger.Warn("summary is partial", "error", summary.Error)
	}

	hostname, _ := os.Hostname()
	run := &types.AnalysisRun{
		ID:          uuid.NewString(),
		Timestamp:   started,
		Hostname:    hostname,
		OSVersion:   r.osVersion(ctx),
		Results:     results,
		OverallRisk: correlate.CalculateOverallRisk(results),
		Summary:     summary,
		Adaptive:    adaptive,
	}

	r.runExternalAnalysis(ctx, run)

	r.logger.Info("analysis completed",
		"detectors", len(results),
		"overall_risk", run.OverallRisk.String(),
		"total_findings", summary.TotalFindings,
		"duration", time.Since(started))

	return run, nil
}

// runAdaptivePhase evaluates both expansion triggers and conditionally runs
// the adaptive detector set, merging its results into the same keyed map.
func (r *Runner) runAdaptivePhase(ctx context.Context, results map[string]types.DetectorResult) types.AdaptiveAnalysis {
	indicators := r.extractor.Extract(results)

	thresholds := indicator.Thresholds{
		HighRisk:   r.cfg.Adaptive.HighRiskThreshold,
		MediumRisk: r.cfg.Adaptive.MediumRiskThreshold,
	}
	shouldRun, reason := indicator.ShouldRunAdaptive(results, indicators, thresholds)

	adaptive := types.AdaptiveAnalysis{
		BlockchainAnalysisEnabled: shouldRun,
		Indicators:                indicators,
		Reason:                    reason,
	}

	if !shouldRun {
		r.logger.Info("adaptive phase skipped", "reason", reason)
		return adaptive
	}
	if !r.cfg.Adaptive.Enabled {
		adaptive.BlockchainAnalysisEnabled = false
		adaptive.Reason = "adaptive analysis disabled by configuration"
		r.logger.Info("adaptive phase skipped", "reason", adaptive.Reason)
		return adaptive
	}

	r.logger.Info("running adaptive phase", "reason", reason, "detectors", len(r.adaptiveKeys))

	phase2, err := r.sched.RunPhase(ctx, r.adaptiveKeys)
	if err != nil {
		// Fail open: the core phase result stands alone
		r.logger.Warn("adaptive phase failed to start", "error", err)
		adaptive.BlockchainAnalysisEnabled = false
		adaptive.Reason = fmt.Sprintf("adaptive phase failed to start: %v", err)
		return adaptive
	}
	for key, result := range phase2 {
		results[key] = result
	}

	return adaptive
}

// runExternalAnalysis is the only path to the gateway. The firewall gate
// runs on the fully assembled outbound payload; a trip records the match
// metadata and marks the step skipped-for-security, never failed.
func (r *Runner) runExternalAnalysis(ctx context.Context, run *types.AnalysisRun) {
	if r.gateway == nil {
		return
	}

	run.External = &types.ExternalAnalysis{Requested: true}

	prompt := r.buildPrompt(run)
	detection := r.fw.Detect(prompt)
	if detection.HasSensitiveData {
		run.External.SkippedForSecurity = true
		run.External.Trip = &types.FirewallTrip{
			Matches: detection.Matches,
			Stage:   "external-analysis",
		}
		for _, match := range detection.Matches {
			r.logger.Warn("firewall blocked external analysis",
				"pattern", match.Pattern,
				"count", match.Count)
		}
		return
	}

	result, err := r.gateway.Analyze(ctx, prompt, run.Summary)
	if err != nil {
		// Recoverable: the run continues report-only
		r.logger.Warn("external analysis failed, continuing report-only", "error", err)
		run.External.Err = err.Error()
		return
	}

	run.External.Performed = true
	run.External.Result = result
}

// buildPrompt assembles the outbound analysis request. Finding text goes in
// as collected; the firewall gate decides whether it may leave the process.
func (r *Runner) buildPrompt(run *types.AnalysisRun) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Host triage results (overall risk: %s, %d findings across %d detectors).\n",
		run.OverallRisk.String(), run.Summary.TotalFindings, len(run.Results))
	fmt.Fprintf(&sb, "OS: %s. Adaptive analysis: %v (%s).\n\n",
		run.OSVersion, run.Adaptive.BlockchainAnalysisEnabled, run.Adaptive.Reason)

	keys := make([]string, 0, len(run.Results))
	for key := range run.Results {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		result := run.Results[key]
		if result.Err != "" {
			fmt.Fprintf(&sb, "[%s] error: %s\n", key, result.Err)
			continue
		}
		fmt.Fprintf(&sb, "[%s] risk=%s findings=%d\n", key, result.OverallRisk.String(), len(result.Findings))
		for _, finding := range result.Findings {
			fmt.Fprintf(&sb, "  - (%s) %s\n", finding.Risk.String(), finding.Description)
		}
	}

	return sb.String()
}

func (r *Runner) osVersion(ctx context.Context) string {
	timeout := 5 * time.Second
	out, err := detector.RunCommand(ctx, timeout, "uname", "-sr")
	if err != nil || strings.TrimSpace(out) == "" {
		return runtime.GOOS
	}
	return strings.TrimSpace(out)
}

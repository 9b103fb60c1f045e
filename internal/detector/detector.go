package detector

import (
	"context"
	"log/slog"
	"time"

	"github.com/driftsec/hostsentry/internal/config"
	"github.com/driftsec/hostsentry/pkg/types"
)

// Detector gathers findings from one evidence domain. Analyze must not let
// internal failures escape the run: a detector that cannot collect evidence
// reports Err and an Unknown overall risk on its result. The scheduler
// additionally recovers panics as a backstop.
type Detector interface {
	// Key returns the stable identifier results are aggregated under
	Key() string

	// Analyze collects evidence and returns the detector's result
	Analyze(ctx context.Context) types.DetectorResult
}

// Env carries the per-run dependencies injected into every detector.
type Env struct {
	Cfg        *config.Config
	Logger     *slog.Logger
	Signatures *SignatureCache
}

// CommandTimeout returns the per-command timeout detectors apply to every
// external tool invocation.
func (e Env) CommandTimeout() time.Duration {
	secs := 10
	if e.Cfg != nil && e.Cfg.Scan.CommandTimeoutSeconds > 0 {
		secs = e.Cfg.Scan.CommandTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

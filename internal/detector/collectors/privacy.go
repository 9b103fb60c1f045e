package collectors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/driftsec/hostsentry/internal/correlate"
	"github.com/driftsec/hostsentry/internal/detector"
	"github.com/driftsec/hostsentry/pkg/types"
)

// Privacy services that allow surveillance when granted to the wrong app.
var sensitiveServices = map[string]string{
	"kTCCServiceScreenCapture":   "screen recording",
	"kTCCServiceListenEvent":     "input monitoring",
	"kTCCServiceAccessibility":   "accessibility control",
	"kTCCServiceMicrophone":      "microphone access",
	"kTCCServiceCamera":          "camera access",
	"kTCCServiceSystemPolicyAll": "full disk access",
}

type privacyDetector struct {
	env detector.Env
}

// NewPrivacy builds the privacy-permission detector
func NewPrivacy(env detector.Env) detector.Detector {
	return &privacyDetector{env: env}
}

func (d *privacyDetector) Key() string { return "privacy" }

func (d *privacyDetector) Analyze(ctx context.Context) types.DetectorResult {
	start := time.Now()
	res := types.DetectorResult{Detector: d.Key()}

	if runtime.GOOS != "darwin" {
		// No TCC database to read; an empty clean result, not an error
		res.OverallRisk = types.RiskLow
		res.Duration = time.Since(start)
		return res
	}

	home, err := os.UserHomeDir()
	if err != nil {
		res.Err = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	dbPath := filepath.Join(home, "Library", "Application Support", "com.apple.TCC", "TCC.db")
	out, err := detector.RunCommand(ctx, d.env.CommandTimeout(),
		"sqlite3", dbPath, "select client, service from access where auth_value > 0;")
	if err != nil {
		// Commonly blocked unless the caller itself has full disk access
		res.Err = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	res.Findings = inspectPermissionGrants(out)
	res.OverallRisk = correlate.DeriveRiskFromFindings(res.Findings, types.RiskLow)
	res.Duration = time.Since(start)
	return res
}

func inspectPermissionGrants(out string) []types.Finding {
	var findings []types.Finding
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "|", 2)
		if len(parts) != 2 {
			continue
		}
		client, service := parts[0], parts[1]
		label, sensitive := sensitiveServices[service]
		if !sensitive {
			continue
		}
		findings = append(findings, types.NewFinding(
			"privacy_grant",
			fmt.Sprintf("Application %q holds %s permission", client, label),
			types.RiskMedium,
			map[string]string{"client": client, "service": service},
		))
	}
	return findings
}

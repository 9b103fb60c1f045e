package collectors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/driftsec/hostsentry/internal/correlate"
	"github.com/driftsec/hostsentry/internal/detector"
	"github.com/driftsec/hostsentry/pkg/types"
)

const recentInitFileWindow = 7 * 24 * time.Hour

var shellInitFiles = []string{
	".bashrc",
	".bash_profile",
	".zshrc",
	".zprofile",
	".profile",
}

type accountsDetector struct {
	env detector.Env
}

// NewAccounts builds the login-environment detector (shell init files and
// their recent modifications).
func NewAccounts(env detector.Env) detector.Detector {
	return &accountsDetector{env: env}
}

func (d *accountsDetector) Key() string { return "accounts" }

func (d *accountsDetector) Analyze(ctx context.Context) types.DetectorResult {
	start := time.Now()
	res := types.DetectorResult{Detector: d.Key()}

	home, err := os.UserHomeDir()
	if err != nil {
		res.Err = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	var findings []types.Finding
	for _, name := range shellInitFiles {
		path := filepath.Join(home, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		content := readCapped(path, maxPersistenceFileBytes)
		if marker := suspiciousContentMarker(content); marker != "" {
			findings = append(findings, types.NewFinding(
				"shell_init_payload",
				fmt.Sprintf("Shell init file %s %s", name, marker),
				types.RiskHigh,
				map[string]string{"path": path},
			))
			continue
		}

		if time.Since(info.ModTime()) < recentInitFileWindow {
			findings = append(findings, types.NewFinding(
				"shell_init_modified",
				fmt.Sprintf("Shell init file %s was modified in the last 7 days", name),
				types.RiskLow,
				map[string]string{"path": path, "modified": info.ModTime().Format(time.RFC3339)},
			))
		}
	}

	res.Findings = findings
	res.OverallRisk = correlate.DeriveRiskFromFindings(findings, types.RiskLow)
	res.Duration = time.Since(start)
	return res
}

package collectors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/driftsec/hostsentry/internal/correlate"
	"github.com/driftsec/hostsentry/internal/detector"
	"github.com/driftsec/hostsentry/pkg/types"
)

const maxPersistenceFileBytes = 64 * 1024

type persistenceDetector struct {
	env detector.Env
}

// NewPersistence builds the persistence-mechanism detector (launch agents,
// daemons, cron).
func NewPersistence(env detector.Env) detector.Detector {
	return &persistenceDetector{env: env}
}

func (d *persistenceDetector) Key() string { return "persistence" }

func (d *persistenceDetector) Analyze(ctx context.Context) types.DetectorResult {
	start := time.Now()
	res := types.DetectorResult{Detector: d.Key()}

	var findings []types.Finding
	for _, dir := range persistenceDirs() {
		findings = append(findings, inspectPersistenceDir(dir)...)
	}

	// Per-user crontab, best effort: missing crontab or missing tool is fine
	if out, err := detector.RunCommand(ctx, d.env.CommandTimeout(), "crontab", "-l"); err == nil {
		findings = append(findings, inspectCrontab(out)...)
	}

	res.Findings = findings
	res.OverallRisk = correlate.DeriveRiskFromFindings(findings, types.RiskLow)
	res.Duration = time.Since(start)
	return res
}

func persistenceDirs() []string {
	dirs := []string{
		"/Library/LaunchAgents",
		"/Library/LaunchDaemons",
		"/etc/cron.d",
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "Library", "LaunchAgents"))
	}
	return dirs
}

func inspectPersistenceDir(dir string) []types.Finding {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var findings []types.Finding
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content := readCapped(path, maxPersistenceFileBytes)
		findings = append(findings, classifyPersistenceEntry(path, content))
	}
	return findings
}

func classifyPersistenceEntry(path, content string) types.Finding {
	risk := types.RiskLow
	description := fmt.Sprintf("Persistence entry %s", filepath.Base(path))

	if marker := suspiciousContentMarker(content); marker != "" {
		risk = types.RiskHigh
		description = fmt.Sprintf("Persistence entry %s %s", filepath.Base(path), marker)
	}

	return types.NewFinding("persistence_entry", description, risk,
		map[string]string{"path": path})
}

func inspectCrontab(out string) []types.Finding {
	var findings []types.Finding
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if marker := suspiciousContentMarker(line); marker != "" {
			findings = append(findings, types.NewFinding(
				"cron_entry",
				fmt.Sprintf("Crontab entry %s", marker),
				types.RiskHigh,
				map[string]string{"entry": line},
			))
		}
	}
	return findings
}

// suspiciousContentMarker reports why a persistence payload looks dangerous,
// or empty when it looks benign.
func suspiciousContentMarker(content string) string {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "curl") && strings.Contains(lower, "| sh"),
		strings.Contains(lower, "curl") && strings.Contains(lower, "|sh"),
		strings.Contains(lower, "wget") && strings.Contains(lower, "| sh"):
		return "pipes a downloaded script into a shell"
	case strings.Contains(lower, "/tmp/"), strings.Contains(lower, "/var/tmp/"):
		return "executes a payload from a temporary directory"
	case strings.Contains(lower, "base64 -d"), strings.Contains(lower, "base64 --decode"):
		return "decodes an embedded base64 payload"
	default:
		return ""
	}
}

func readCapped(path string, limit int64) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, limit)
	n, _ := f.Read(buf)
	return string(buf[:n])
}

package collectors

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/driftsec/hostsentry/internal/correlate"
	"github.com/driftsec/hostsentry/internal/detector"
	"github.com/driftsec/hostsentry/pkg/types"
)

var suspiciousExecDirs = []string{
	"/tmp/",
	"/var/tmp/",
	"/private/tmp/",
	"/dev/shm/",
}

// userWritablePrefixes are locations where an unsigned binary is worth a
// finding; system paths are skipped to keep the noise down.
var userWritablePrefixes = []string{
	"/Users/",
	"/home/",
	"/usr/local/",
	"/opt/",
}

type processDetector struct {
	env detector.Env
}

// NewProcess builds the running-process detector
func NewProcess(env detector.Env) detector.Detector {
	return &processDetector{env: env}
}

func (d *processDetector) Key() string { return "process" }

func (d *processDetector) Analyze(ctx context.Context) types.DetectorResult {
	start := time.Now()
	res := types.DetectorResult{Detector: d.Key()}

	out, err := detector.RunCommand(ctx, d.env.CommandTimeout(), "ps", "axo", "pid=,comm=,args=")
	if err != nil && strings.TrimSpace(out) == "" {
		res.Err = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	res.Findings = d.inspectProcessTable(ctx, out)
	res.OverallRisk = correlate.DeriveRiskFromFindings(res.Findings, types.RiskLow)
	res.Duration = time.Since(start)
	return res
}

func (d *processDetector) inspectProcessTable(ctx context.Context, table string) []types.Finding {
	var findings []types.Finding

	for _, line := range strings.Split(table, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		pid := fields[0]
		execPath := fields[1]
		command := strings.Join(fields[2:], " ")
		name := filepath.Base(execPath)

		if dir := suspiciousDir(execPath); dir != "" {
			findings = append(findings, types.NewFinding(
				"suspicious_process",
				fmt.Sprintf("Process %q (pid %s) is running from %s", name, pid, dir),
				types.RiskHigh,
				map[string]string{"name": name, "pid": pid, "path": execPath, "command": command},
			))
			continue
		}

		if !strings.HasPrefix(execPath, "/") || !hasPrefixAny(execPath, userWritablePrefixes) {
			continue
		}
		if d.env.Signatures == nil {
			continue
		}
		sig := d.env.Signatures.Lookup(ctx, execPath, resolveSignature(d.env))
		if sig == "unsigned" {
			findings = append(findings, types.NewFinding(
				"unsigned_process",
				fmt.Sprintf("Process %q (pid %s) runs an unsigned binary outside system paths", name, pid),
				types.RiskMedium,
				map[string]string{"name": name, "pid": pid, "path": execPath, "command": command},
			))
		}
	}

	return findings
}

func suspiciousDir(path string) string {
	for _, dir := range suspiciousExecDirs {
		if strings.HasPrefix(path, dir) {
			return dir
		}
	}
	if strings.Contains(path, "/.") {
		return "a hidden directory"
	}
	return ""
}

func hasPrefixAny(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

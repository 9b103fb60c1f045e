package collectors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/driftsec/hostsentry/internal/correlate"
	"github.com/driftsec/hostsentry/internal/detector"
	"github.com/driftsec/hostsentry/pkg/types"
)

// Ports commonly used by reverse shells and IRC-based C2.
var suspiciousRemotePorts = map[string]struct{}{
	"1337":  {},
	"4444":  {},
	"5555":  {},
	"6667":  {},
	"31337": {},
}

type networkDetector struct {
	env detector.Env
}

// NewNetwork builds the socket/connection detector
func NewNetwork(env detector.Env) detector.Detector {
	return &networkDetector{env: env}
}

func (d *networkDetector) Key() string { return "network" }

func (d *networkDetector) Analyze(ctx context.Context) types.DetectorResult {
	start := time.Now()
	res := types.DetectorResult{Detector: d.Key()}

	out, err := detector.RunCommand(ctx, d.env.CommandTimeout(), "lsof", "-nP", "-i")
	if err != nil && strings.TrimSpace(out) == "" {
		res.Err = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	res.Findings = inspectSocketTable(out)
	res.OverallRisk = correlate.DeriveRiskFromFindings(res.Findings, types.RiskLow)
	res.Duration = time.Since(start)
	return res
}

// inspectSocketTable parses `lsof -nP -i` output. Listeners are inventoried
// at low risk; established connections to known-bad ports are high.
func inspectSocketTable(table string) []types.Finding {
	var findings []types.Finding

	for _, line := range strings.Split(table, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 9 {
			continue
		}
		process := fields[0]
		name := fields[8]
		state := ""
		if len(fields) > 9 {
			state = strings.Trim(fields[9], "()")
		}

		switch state {
		case "LISTEN":
			findings = append(findings, types.NewFinding(
				"listener",
				fmt.Sprintf("Process %q is listening on %s", process, name),
				types.RiskLow,
				map[string]string{"process": process, "address": name},
			))
		case "ESTABLISHED":
			remote := remoteEndpoint(name)
			if _, bad := suspiciousRemotePorts[portOf(remote)]; bad {
				findings = append(findings, types.NewFinding(
					"suspicious_connection",
					fmt.Sprintf("Process %q has an established connection to %s on a port associated with remote shells", process, remote),
					types.RiskHigh,
					map[string]string{"process": process, "remote": remote},
				))
			}
		}
	}

	return findings
}

// remoteEndpoint extracts the remote side of a "local->remote" lsof name.
func remoteEndpoint(name string) string {
	if i := strings.Index(name, "->"); i >= 0 {
		return name[i+2:]
	}
	return name
}

func portOf(endpoint string) string {
	if i := strings.LastIndex(endpoint, ":"); i >= 0 {
		return endpoint[i+1:]
	}
	return ""
}

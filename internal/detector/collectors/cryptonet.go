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

// Well-known peer-to-peer and anonymity ports worth flagging when the
// blockchain domain is in play.
var cryptoPorts = map[string]string{
	"8333":  "Bitcoin p2p",
	"18333": "Bitcoin testnet p2p",
	"30303": "Ethereum p2p",
	"8545":  "Ethereum JSON-RPC",
	"9050":  "Tor SOCKS",
	"9150":  "Tor Browser SOCKS",
}

type cryptoNetDetector struct {
	env detector.Env
}

// NewCryptoNet builds the adaptive crypto-network detector
func NewCryptoNet(env detector.Env) detector.Detector {
	return &cryptoNetDetector{env: env}
}

func (d *cryptoNetDetector) Key() string { return "cryptonet" }

func (d *cryptoNetDetector) Analyze(ctx context.Context) types.DetectorResult {
	start := time.Now()
	res := types.DetectorResult{Detector: d.Key()}

	out, err := detector.RunCommand(ctx, d.env.CommandTimeout(), "lsof", "-nP", "-i")
	if err != nil && strings.TrimSpace(out) == "" {
		res.Err = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	res.Findings = inspectCryptoConnections(out)
	res.OverallRisk = correlate.DeriveRiskFromFindings(res.Findings, types.RiskLow)
	res.Duration = time.Since(start)
	return res
}

func inspectCryptoConnections(table string) []types.Finding {
	var findings []types.Finding

	for _, line := range strings.Split(table, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 10 {
			continue
		}
		if strings.Trim(fields[9], "()") != "ESTABLISHED" {
			continue
		}

		process := fields[0]
		remote := remoteEndpoint(fields[8])
		service, known := cryptoPorts[portOf(remote)]
		if !known {
			continue
		}

		findings = append(findings, types.NewFinding(
			"crypto_connection",
			fmt.Sprintf("Process %q has an established %s connection to %s", process, service, remote),
			types.RiskMedium,
			map[string]string{"process": process, "remote": remote, "service": service},
		))
	}

	return findings
}

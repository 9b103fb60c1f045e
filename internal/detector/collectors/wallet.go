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

// Wallet artifact locations relative to the home directory. Only presence is
// reported; keystore contents are never read or included.
var walletArtifacts = []struct {
	rel  string
	kind string
}{
	{".electrum", "Electrum data directory"},
	{".bitcoin/wallet.dat", "Bitcoin Core wallet"},
	{".ethereum/keystore", "Ethereum keystore"},
	{"Library/Ethereum/keystore", "Ethereum keystore"},
	{"Library/Application Support/Exodus", "Exodus wallet data"},
	{".config/Exodus", "Exodus wallet data"},
	{"Library/Application Support/Electrum", "Electrum data directory"},
}

type walletDetector struct {
	env detector.Env
}

// NewWallet builds the adaptive wallet-artifact detector
func NewWallet(env detector.Env) detector.Detector {
	return &walletDetector{env: env}
}

func (d *walletDetector) Key() string { return "wallet" }

func (d *walletDetector) Analyze(ctx context.Context) types.DetectorResult {
	start := time.Now()
	res := types.DetectorResult{Detector: d.Key()}

	home, err := os.UserHomeDir()
	if err != nil {
		res.Err = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	var findings []types.Finding
	for _, artifact := range walletArtifacts {
		path := filepath.Join(home, artifact.rel)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		findings = append(findings, types.NewFinding(
			"wallet_artifact",
			fmt.Sprintf("%s present on this host; local malware could target it", artifact.kind),
			types.RiskMedium,
			map[string]string{"path": path, "kind": artifact.kind},
		))
	}

	res.Findings = findings
	res.OverallRisk = correlate.DeriveRiskFromFindings(findings, types.RiskLow)
	res.Duration = time.Since(start)
	return res
}

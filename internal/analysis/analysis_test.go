package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftsec/hostsentry/internal/config"
	"github.com/driftsec/hostsentry/internal/detector"
	"github.com/driftsec/hostsentry/internal/firewall"
	"github.com/driftsec/hostsentry/pkg/types"
)

type stubDetector struct {
	key      string
	findings []types.Finding
	risk     types.Risk
	panics   bool
}

func (d *stubDetector) Key() string { return d.key }

func (d *stubDetector) Analyze(ctx context.Context) types.DetectorResult {
	if d.panics {
		panic("stub detector exploded")
	}
	return types.DetectorResult{
		Detector:    d.key,
		Findings:    d.findings,
		OverallRisk: d.risk,
	}
}

type stubGateway struct {
	calls   int
	prompts []string
	result  *types.GatewayResult
	err     error
}

func (g *stubGateway) Analyze(ctx context.Context, prompt string, summary types.Summary) (*types.GatewayResult, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	return g.result, g.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig
	return &cfg
}

func newRegistry(t *testing.T, stubs ...*stubDetector) *detector.Registry {
	t.Helper()
	r := detector.NewRegistry()
	for _, stub := range stubs {
		stub := stub
		if err := r.Register(stub.key, func(detector.Env) detector.Detector { return stub }); err != nil {
			t.Fatalf("register %s: %v", stub.key, err)
		}
	}
	return r
}

func finding(typ, desc string, risk types.Risk, fields map[string]string) types.Finding {
	return types.NewFinding(typ, desc, risk, fields)
}

func TestRunExpandsOnDomainIndicator(t *testing.T) {
	process := &stubDetector{
		key:  "process",
		risk: types.RiskMedium,
		findings: []types.Finding{
			finding("unsigned_process", "Unsigned binary uniswap-helper running from a user-writable path",
				types.RiskMedium, map[string]string{"name": "uniswap-helper", "command": "/opt/uniswap-helper --daemon"}),
		},
	}
	network := &stubDetector{key: "network", risk: types.RiskLow}
	wallet := &stubDetector{
		key:  "wallet",
		risk: types.RiskMedium,
		findings: []types.Finding{
			finding("wallet_artifact", "Electrum wallet directory present", types.RiskMedium,
				map[string]string{"path": "~/.electrum"}),
		},
	}
	cryptonet := &stubDetector{key: "cryptonet", risk: types.RiskLow}

	runner := NewRunner(testConfig(), testLogger(), Options{
		Registry:     newRegistry(t, process, network, wallet, cryptonet),
		CoreKeys:     []string{"process", "network"},
		AdaptiveKeys: []string{"wallet", "cryptonet"},
	})

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, run.Adaptive.BlockchainAnalysisEnabled)
	assert.Contains(t, run.Adaptive.Reason, "domain indicators")
	require.Len(t, run.Adaptive.Indicators, 1)
	assert.Equal(t, "blockchain", run.Adaptive.Indicators[0].Domain)
	assert.Equal(t, "process", run.Adaptive.Indicators[0].DetectorKey)
	assert.Contains(t, run.Adaptive.Indicators[0].MatchedTerms, "uniswap")

	require.Len(t, run.Results, 4)
	assert.Contains(t, run.Results, "wallet")
	assert.Contains(t, run.Results, "cryptonet")
	assert.Equal(t, types.RiskMedium, run.OverallRisk)
	assert.Equal(t, 2, run.Summary.TotalFindings)
	assert.NotEmpty(t, run.ID)
	assert.Nil(t, run.External)
}

func TestRunStaysNarrowWithoutTriggers(t *testing.T) {
	process := &stubDetector{
		key:  "process",
		risk: types.RiskLow,
		findings: []types.Finding{
			finding("listener", "Ordinary backup agent running", types.RiskLow,
				map[string]string{"name": "backupd", "command": "/usr/local/bin/backupd"}),
		},
	}
	network := &stubDetector{key: "network", risk: types.RiskLow}
	wallet := &stubDetector{key: "wallet", risk: types.RiskMedium}

	runner := NewRunner(testConfig(), testLogger(), Options{
		Registry:     newRegistry(t, process, network, wallet),
		CoreKeys:     []string{"process", "network"},
		AdaptiveKeys: []string{"wallet"},
	})

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, run.Adaptive.BlockchainAnalysisEnabled)
	assert.Equal(t, "no adaptive triggers", run.Adaptive.Reason)
	assert.Empty(t, run.Adaptive.Indicators)
	assert.Len(t, run.Results, 2)
	assert.NotContains(t, run.Results, "wallet")
	assert.Equal(t, types.RiskLow, run.OverallRisk)
}

func TestRunSurvivesPanickingDetector(t *testing.T) {
	process := &stubDetector{
		key:  "process",
		risk: types.RiskLow,
		findings: []types.Finding{
			finding("listener", "Ordinary daemon", types.RiskLow, map[string]string{"name": "cupsd"}),
		},
	}
	network := &stubDetector{key: "network", panics: true}

	runner := NewRunner(testConfig(), testLogger(), Options{
		Registry:     newRegistry(t, process, network),
		CoreKeys:     []string{"process", "network"},
		AdaptiveKeys: []string{},
	})

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Contains(t, run.Results, "network")
	assert.Contains(t, run.Results["network"].Err, "panicked")
	assert.Equal(t, types.RiskUnknown, run.Results["network"].OverallRisk)

	// The healthy detector still contributes
	assert.Equal(t, types.RiskLow, run.Results["process"].OverallRisk)
	assert.Equal(t, types.RiskLow, run.OverallRisk)
	assert.Equal(t, 1, run.Summary.TotalFindings)
}

func TestFirewallBlocksExternalAnalysis(t *testing.T) {
	leaked := strings.Repeat("ab", 32)
	process := &stubDetector{
		key:  "process",
		risk: types.RiskMedium,
		findings: []types.Finding{
			finding("unsigned_process", "Process environment exposes value "+leaked,
				types.RiskMedium, map[string]string{"name": "agent"}),
		},
	}
	gw := &stubGateway{result: &types.GatewayResult{AnalysisText: "should never be seen"}}

	runner := NewRunner(testConfig(), testLogger(), Options{
		Registry:     newRegistry(t, process),
		CoreKeys:     []string{"process"},
		AdaptiveKeys: []string{},
		Gateway:      gw,
	})

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, gw.calls, "gateway must not be invoked when the firewall trips")

	require.NotNil(t, run.External)
	assert.True(t, run.External.Requested)
	assert.True(t, run.External.SkippedForSecurity)
	assert.False(t, run.External.Performed)
	assert.Empty(t, run.External.Err)
	assert.Nil(t, run.External.Result)

	require.NotNil(t, run.External.Trip)
	assert.Equal(t, "external-analysis", run.External.Trip.Stage)
	require.Len(t, run.External.Trip.Matches, 1)
	assert.Equal(t, firewall.PatternPrivateKey, run.External.Trip.Matches[0].Pattern)
	assert.Equal(t, 1, run.External.Trip.Matches[0].Count)
	require.Len(t, run.External.Trip.Matches[0].MaskedSamples, 1)
	assert.NotContains(t, run.External.Trip.Matches[0].MaskedSamples[0], leaked)
}

func TestExternalAnalysisCleanPath(t *testing.T) {
	process := &stubDetector{
		key:  "process",
		risk: types.RiskLow,
		findings: []types.Finding{
			finding("listener", "Ordinary daemon running", types.RiskLow, map[string]string{"name": "cupsd"}),
		},
	}
	gw := &stubGateway{result: &types.GatewayResult{
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		AnalysisText: "No signs of active compromise.",
	}}

	runner := NewRunner(testConfig(), testLogger(), Options{
		Registry:     newRegistry(t, process),
		CoreKeys:     []string{"process"},
		AdaptiveKeys: []string{},
		Gateway:      gw,
	})

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, gw.calls)
	assert.Contains(t, gw.prompts[0], "[process]")
	assert.Contains(t, gw.prompts[0], "Ordinary daemon running")

	require.NotNil(t, run.External)
	assert.True(t, run.External.Requested)
	assert.True(t, run.External.Performed)
	assert.False(t, run.External.SkippedForSecurity)
	require.NotNil(t, run.External.Result)
	assert.Equal(t, "No signs of active compromise.", run.External.Result.AnalysisText)
}

func TestExternalAnalysisFailureIsRecoverable(t *testing.T) {
	process := &stubDetector{key: "process", risk: types.RiskLow}
	gw := &stubGateway{err: errors.New("gateway request failed; connection refused")}

	runner := NewRunner(testConfig(), testLogger(), Options{
		Registry:     newRegistry(t, process),
		CoreKeys:     []string{"process"},
		AdaptiveKeys: []string{},
		Gateway:      gw,
	})

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, run.External)
	assert.True(t, run.External.Requested)
	assert.False(t, run.External.Performed)
	assert.False(t, run.External.SkippedForSecurity)
	assert.Contains(t, run.External.Err, "connection refused")
	assert.Nil(t, run.External.Result)

	// The local report survives the failed external step
	assert.Contains(t, run.Results, "process")
}

func TestCorrelationFindingsAggregated(t *testing.T) {
	process := &stubDetector{
		key:  "process",
		risk: types.RiskHigh,
		findings: []types.Finding{
			finding("suspicious_process", "Process running from /tmp", types.RiskHigh,
				map[string]string{"name": "updater"}),
		},
	}
	network := &stubDetector{
		key:  "network",
		risk: types.RiskHigh,
		findings: []types.Finding{
			finding("suspicious_connection", "Established connection to 203.0.113.9:4444", types.RiskHigh,
				map[string]string{"process": "updater", "remote": "203.0.113.9:4444"}),
		},
	}
	wallet := &stubDetector{key: "wallet", risk: types.RiskLow}

	runner := NewRunner(testConfig(), testLogger(), Options{
		Registry:     newRegistry(t, process, network, wallet),
		CoreKeys:     []string{"process", "network"},
		AdaptiveKeys: []string{"wallet"},
	})

	run, err := runner.Run(context.Background())
	require.NoError(t, err)

	// Two high findings also cross the depth threshold
	assert.True(t, run.Adaptive.BlockchainAnalysisEnabled)
	assert.Contains(t, run.Adaptive.Reason, "risk depth")

	require.Contains(t, run.Results, "correlation")
	correlated := run.Results["correlation"]
	require.Len(t, correlated.Findings, 1)
	assert.Equal(t, "correlated_activity", correlated.Findings[0].Type)
	assert.Equal(t, types.RiskHigh, run.OverallRisk)
}

package correlate

import (
	"testing"

	"github.com/driftsec/hostsentry/pkg/types"
)

func findingWithRisk(risk types.Risk) types.Finding {
	return types.NewFinding("test", "test finding", risk, nil)
}

func TestDeriveRiskFromFindings(t *testing.T) {
	tests := []struct {
		name     string
		risks    []types.Risk
		reported types.Risk
		want     types.Risk
	}{
		{
			name:  "any high wins",
			risks: []types.Risk{types.RiskLow, types.RiskHigh, types.RiskMedium},
			want:  types.RiskHigh,
		},
		{
			name:  "medium without high",
			risks: []types.Risk{types.RiskLow, types.RiskMedium, types.RiskLow},
			want:  types.RiskMedium,
		},
		{
			name:  "only low",
			risks: []types.Risk{types.RiskLow, types.RiskLow},
			want:  types.RiskLow,
		},
		{
			name:     "empty findings fall back to reported",
			risks:    nil,
			reported: types.RiskMedium,
			want:     types.RiskMedium,
		},
		{
			name:     "inflated self-report ignored when findings exist",
			risks:    []types.Risk{types.RiskLow},
			reported: types.RiskHigh,
			want:     types.RiskLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var findings []types.Finding
			for _, risk := range tt.risks {
				findings = append(findings, findingWithRisk(risk))
			}

			if got := DeriveRiskFromFindings(findings, tt.reported); got != tt.want {
				t.Errorf("DeriveRiskFromFindings = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateOverallRisk(t *testing.T) {
	results := map[string]types.DetectorResult{
		"process": {Detector: "process", OverallRisk: types.RiskHigh},
		"network": {Detector: "network", OverallRisk: types.RiskLow},
		"broken":  {Detector: "broken", Err: "exec failed", OverallRisk: types.RiskUnknown},
	}

	if got := CalculateOverallRisk(results); got != types.RiskHigh {
		t.Errorf("CalculateOverallRisk = %v, want high", got)
	}
}

func TestCalculateOverallRiskAllErrored(t *testing.T) {
	results := map[string]types.DetectorResult{
		"a": {Detector: "a", Err: "failed"},
		"b": {Detector: "b", Err: "failed"},
	}

	if got := CalculateOverallRisk(results); got != types.RiskUnknown {
		t.Errorf("CalculateOverallRisk = %v, want unknown when everything errored", got)
	}
}

func TestGenerateSummaryTotals(t *testing.T) {
	results := map[string]types.DetectorResult{
		"process": {
			Detector: "process",
			Findings: []types.Finding{
				findingWithRisk(types.RiskHigh),
				findingWithRisk(types.RiskMedium),
			},
		},
		"network": {
			Detector: "network",
			Findings: []types.Finding{findingWithRisk(types.RiskLow)},
		},
		"broken": {Detector: "broken", Err: "timed out"},
	}

	summary := GenerateSummary(results)

	if summary.Error != "" {
		t.Fatalf("unexpected summary error: %s", summary.Error)
	}
	if summary.TotalFindings != 3 {
		t.Errorf("TotalFindings = %d, want 3", summary.TotalFindings)
	}
	if summary.HighCount != 1 || summary.MediumCount != 1 || summary.LowCount != 1 {
		t.Errorf("tier counts = %d/%d/%d, want 1/1/1",
			summary.HighCount, summary.MediumCount, summary.LowCount)
	}
	if summary.PerDetector["process"].Risk != types.RiskHigh {
		t.Errorf("process derived risk = %v, want high", summary.PerDetector["process"].Risk)
	}
	if summary.PerDetector["broken"].Findings != 0 {
		t.Errorf("broken detector should report zero findings")
	}
}

func TestGenerateSummaryNilInput(t *testing.T) {
	summary := GenerateSummary(nil)

	if summary.Error == "" {
		t.Error("nil input should yield a partial summary with an error")
	}
	if summary.TotalFindings != 0 {
		t.Errorf("TotalFindings = %d, want 0", summary.TotalFindings)
	}
	if summary.PerDetector == nil {
		t.Error("PerDetector map should be initialized even on error")
	}
}

func TestProcessNetworkRule(t *testing.T) {
	results := map[string]types.DetectorResult{
		"process": {
			Detector: "process",
			Findings: []types.Finding{
				types.NewFinding("suspicious_process", "process in /tmp", types.RiskHigh,
					map[string]string{"name": "updater"}),
			},
		},
		"network": {
			Detector: "network",
			Findings: []types.Finding{
				types.NewFinding("connection", "established connection to 1.2.3.4:443", types.RiskLow,
					map[string]string{"process": "updater"}),
			},
		},
	}

	derived := Correlate(results, DefaultRules())

	if len(derived) != 1 {
		t.Fatalf("derived %d findings, want 1", len(derived))
	}
	if derived[0].Risk != types.RiskMedium {
		t.Errorf("correlated finding risk = %v, want medium", derived[0].Risk)
	}
	if derived[0].Fields["name"] != "updater" {
		t.Errorf("correlated finding should name the process")
	}
}

func TestProcessNetworkRuleNoOverlap(t *testing.T) {
	results := map[string]types.DetectorResult{
		"process": {
			Detector: "process",
			Findings: []types.Finding{
				types.NewFinding("suspicious_process", "process in /tmp", types.RiskHigh,
					map[string]string{"name": "updater"}),
			},
		},
		"network": {
			Detector: "network",
			Findings: []types.Finding{
				types.NewFinding("connection", "listener", types.RiskLow,
					map[string]string{"process": "sshd"}),
			},
		},
	}

	if derived := Correlate(results, DefaultRules()); len(derived) != 0 {
		t.Errorf("derived %d findings, want 0", len(derived))
	}
}

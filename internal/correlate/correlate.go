package correlate

import (
	"fmt"

	"github.com/driftsec/hostsentry/pkg/types"
)

// CalculateOverallRisk reduces a result map to the highest risk tier seen.
// Errored or missing results count as Unknown, so the reduction returns
// Unknown only when every result is errored or empty.
func CalculateOverallRisk(results map[string]types.DetectorResult) types.Risk {
	overall := types.RiskUnknown
	for _, result := range results {
		overall = types.MaxRisk(overall, result.OverallRisk)
	}
	return overall
}

// DeriveRiskFromFindings recomputes a detector's risk strictly from its own
// findings. The detector's self-reported risk is used only as a tie-break
// when the findings list is empty; this guards against a detector's reported
// risk drifting from what it actually found.
func DeriveRiskFromFindings(findings []types.Finding, reported types.Risk) types.Risk {
	if len(findings) == 0 {
		return reported
	}

	derived := types.RiskLow
	for _, finding := range findings {
		if finding.Risk == types.RiskHigh {
			return types.RiskHigh
		}
		if finding.Risk == types.RiskMedium {
			derived = types.RiskMedium
		}
	}
	return derived
}

// GenerateSummary aggregates totals, per-tier counts, and per-detector
// counts with derived risk. It never fails: malformed or missing input
// yields a partial summary carrying Error.
func GenerateSummary(results map[string]types.DetectorResult) (summary types.Summary) {
	summary = types.Summary{
		PerDetector: make(map[string]types.DetectorSummary),
	}

	defer func() {
		if r := recover(); r != nil {
			summary.Error = fmt.Sprintf("summary aggregation failed: %v", r)
		}
	}()

	if results == nil {
		summary.Error = "no detector results"
		return summary
	}

	for key, result := range results {
		summary.TotalFindings += len(result.Findings)
		for _, finding := range result.Findings {
			switch finding.Risk {
			case types.RiskHigh:
				summary.HighCount++
			case types.RiskMedium:
				summary.MediumCount++
			case types.RiskLow:
				summary.LowCount++
			}
		}
		summary.PerDetector[key] = types.DetectorSummary{
			Findings: len(result.Findings),
			Risk:     DeriveRiskFromFindings(result.Findings, result.OverallRisk),
		}
	}

	return summary
}

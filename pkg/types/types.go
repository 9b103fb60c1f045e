package types

import (
	"time"

	"github.com/google/uuid"
)

// Finding represents a single observation reported by a detector. Findings
// are immutable once created.
type Finding struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Risk        Risk              `json:"risk"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// NewFinding creates a finding with a fresh ID.
func NewFinding(findingType, description string, risk Risk, fields map[string]string) Finding {
	return Finding{
		ID:          uuid.NewString(),
		Type:        findingType,
		Description: description,
		Risk:        risk,
		Fields:      fields,
	}
}

// DetectorResult is the outcome of one detector for one run. A detector that
// failed or timed out carries Err and an Unknown overall risk; it never
// aborts the run.
type DetectorResult struct {
	Detector    string        `json:"detector"`
	Findings    []Finding     `json:"findings,omitempty"`
	OverallRisk Risk          `json:"overall_risk"`
	Err         string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// Indicator is evidence in core-phase findings that an adaptive phase should
// run. Derived per run, not persisted beyond it.
type Indicator struct {
	Domain       string   `json:"domain"`
	DetectorKey  string   `json:"detector"`
	FindingID    string   `json:"finding_id"`
	MatchedTerms []string `json:"matched_terms"`
}

// DetectorSummary is the per-detector slice of a Summary.
type DetectorSummary struct {
	Findings int  `json:"findings"`
	Risk     Risk `json:"risk"`
}

// Summary aggregates finding counts across all detector results. A summary
// built from malformed input is partial and carries Error instead of failing.
type Summary struct {
	TotalFindings int                        `json:"total_findings"`
	HighCount     int                        `json:"high_count"`
	MediumCount   int                        `json:"medium_count"`
	LowCount      int                        `json:"low_count"`
	PerDetector   map[string]DetectorSummary `json:"per_detector"`
	Error         string                     `json:"error,omitempty"`
}

// SensitivePatternMatch describes one firewall pattern hit. It never carries
// raw matched text; samples are truncated and masked.
type SensitivePatternMatch struct {
	Pattern       string   `json:"pattern"`
	Count         int      `json:"count"`
	MaskedSamples []string `json:"masked_samples,omitempty"`
}

// FirewallTrip records the firewall blocking an outbound payload. It is a
// deliberate, reported abort of the external-call path, not a failure.
type FirewallTrip struct {
	Matches []SensitivePatternMatch `json:"matches"`
	Stage   string                  `json:"stage"`
}

// AdaptiveAnalysis records whether the conditional detector phase ran and why.
// A skipped phase is recorded explicitly, never silently dropped.
type AdaptiveAnalysis struct {
	BlockchainAnalysisEnabled bool        `json:"blockchain_analysis_enabled"`
	Indicators                []Indicator `json:"indicators,omitempty"`
	Reason                    string      `json:"reason"`
}

// GatewayUsage reports token accounting from the external analysis provider.
type GatewayUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// GatewayResult is the response of the optional external analysis step.
type GatewayResult struct {
	Provider     string            `json:"provider"`
	Model        string            `json:"model"`
	AnalysisText string            `json:"analysis_text"`
	Annotations  map[string]string `json:"annotations,omitempty"`
	Usage        GatewayUsage      `json:"usage"`
}

// ExternalAnalysis records the outcome of the optional external step,
// including every degraded path: skipped for security, gateway failure, or
// never requested.
type ExternalAnalysis struct {
	Requested          bool           `json:"requested"`
	Performed          bool           `json:"performed"`
	SkippedForSecurity bool           `json:"skipped_for_security"`
	Trip               *FirewallTrip  `json:"firewall_trip,omitempty"`
	Err                string         `json:"error,omitempty"`
	Result             *GatewayResult `json:"result,omitempty"`
}

// AnalysisRun is the complete outcome of one analysis. It is assembled once
// by the runner and read-only afterward.
type AnalysisRun struct {
	ID          string                    `json:"id"`
	Timestamp   time.Time                 `json:"timestamp"`
	Hostname    string                    `json:"hostname"`
	OSVersion   string                    `json:"os_version"`
	Results     map[string]DetectorResult `json:"results"`
	OverallRisk Risk                      `json:"overall_risk"`
	Summary     Summary                   `json:"summary"`
	Adaptive    AdaptiveAnalysis          `json:"adaptive_analysis"`
	External    *ExternalAnalysis         `json:"external_analysis,omitempty"`
}

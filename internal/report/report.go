// Package report renders analysis runs for local consumption. Everything it
// emits has passed through the firewall's redaction, so reports are safe to
// share without re-review.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/driftsec/hostsentry/internal/firewall"
	"github.com/driftsec/hostsentry/pkg/types"
)

// Writer renders and persists analysis runs.
type Writer struct {
	fw *firewall.Firewall
}

// NewWriter creates a report writer
func NewWriter(fw *firewall.Firewall) *Writer {
	if fw == nil {
		fw = firewall.New()
	}
	return &Writer{fw: fw}
}

// WriteJSON persists the sanitized run as an indented JSON document under
// dir and returns the file path.
func (w *Writer) WriteJSON(run *types.AnalysisRun, dir string) (string, error) {
	sanitized := w.sanitizeRun(run)

	data, err := json.MarshalIndent(sanitized, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report; %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory; %w", err)
	}

	name := fmt.Sprintf("hostsentry-%s.json", run.Timestamp.Format("20060102-150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write report; %w", err)
	}

	return path, nil
}

// RenderText renders the sanitized run as a human-readable report.
func (w *Writer) RenderText(run *types.AnalysisRun) (string, error) {
	sanitized := w.sanitizeRun(run)

	var sb strings.Builder
	if err := textTemplate.Execute(&sb, newTextView(sanitized)); err != nil {
		return "", fmt.Errorf("failed to render report; %w", err)
	}
	return sb.String(), nil
}

// sanitizeRun returns a deep copy of the run with every finding's free text
// redacted. The original run is never modified.
func (w *Writer) sanitizeRun(run *types.AnalysisRun) *types.AnalysisRun {
	out := *run

	out.Results = make(map[string]types.DetectorResult, len(run.Results))
	for key, result := range run.Results {
		clean := result
		clean.Findings = make([]types.Finding, len(result.Findings))
		for i, f := range result.Findings {
			cf := f
			cf.Description = w.fw.SanitizeText(f.Description)
			cf.Fields = make(map[string]string, len(f.Fields))
			for name, value := range f.Fields {
				cf.Fields[name] = w.fw.SanitizePath(value)
			}
			clean.Findings[i] = cf
		}
		out.Results[key] = clean
	}

	if run.External != nil && run.External.Result != nil {
		ext := *run.External
		result := *run.External.Result
		result.AnalysisText = w.fw.SanitizeText(result.AnalysisText)
		ext.Result = &result
		out.External = &ext
	}

	return &out
}

type detectorView struct {
	Key      string
	Risk     string
	Err      string
	Findings []types.Finding
}

type textView struct {
	Run       *types.AnalysisRun
	Detectors []detectorView
}

func newTextView(run *types.AnalysisRun) textView {
	keys := make([]string, 0, len(run.Results))
	for key := range run.Results {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	detectors := make([]detectorView, 0, len(keys))
	for _, key := range keys {
		result := run.Results[key]
		detectors = append(detectors, detectorView{
			Key:      key,
			Risk:     result.OverallRisk.String(),
			Err:      result.Err,
			Findings: result.Findings,
		})
	}

	return textView{Run: run, Detectors: detectors}
}

var textTemplate = template.Must(template.New("report").Parse(`Host Triage Report
==================
Run:      {{.Run.ID}}
Host:     {{.Run.Hostname}} ({{.Run.OSVersion}})
Time:     {{.Run.Timestamp.Format "2006-01-02 15:04:05 MST"}}
Overall:  {{.Run.OverallRisk}}
Findings: {{.Run.Summary.TotalFindings}} total ({{.Run.Summary.HighCount}} high, {{.Run.Summary.MediumCount}} medium, {{.Run.Summary.LowCount}} low)
{{range .Detectors}}
[{{.Key}}] risk={{.Risk}}{{if .Err}} error: {{.Err}}{{else}}{{range .Findings}}
  - ({{.Risk}}) {{.Description}}{{end}}{{end}}
{{- end}}

Adaptive analysis: {{if .Run.Adaptive.BlockchainAnalysisEnabled}}expanded{{else}}not expanded{{end}} ({{.Run.Adaptive.Reason}})
{{- if .Run.External}}
{{- if .Run.External.SkippedForSecurity}}
External analysis: blocked by sensitive-data firewall
{{- range .Run.External.Trip.Matches}}
  - {{.Pattern}}: {{.Count}} match(es){{end}}
{{- else if .Run.External.Performed}}
External analysis ({{.Run.External.Result.Provider}}/{{.Run.External.Result.Model}}):
{{.Run.External.Result.AnalysisText}}
{{- else if .Run.External.Err}}
External analysis: failed ({{.Run.External.Err}})
{{- end}}
{{- else}}
External analysis: not requested
{{- end}}
`))

package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/driftsec/hostsentry/internal/correlate"
	"github.com/driftsec/hostsentry/internal/detector"
	"github.com/driftsec/hostsentry/pkg/types"
)

const maxExtensionFindings = 40

// Wallet extensions raise the stakes: a compromised host with one installed
// is a direct theft target.
var walletExtensionMarkers = []string{
	"metamask",
	"phantom",
	"coinbase",
	"exodus",
	"trust wallet",
	"ledger",
}

type browserDetector struct {
	env detector.Env
}

// NewBrowser builds the browser-extension inventory detector
func NewBrowser(env detector.Env) detector.Detector {
	return &browserDetector{env: env}
}

func (d *browserDetector) Key() string { return "browser" }

func (d *browserDetector) Analyze(ctx context.Context) types.DetectorResult {
	start := time.Now()
	res := types.DetectorResult{Detector: d.Key()}

	var findings []types.Finding
	for _, dir := range extensionDirs() {
		findings = append(findings, inspectExtensionDir(dir)...)
		if len(findings) >= maxExtensionFindings {
			findings = findings[:maxExtensionFindings]
			break
		}
	}

	res.Findings = findings
	res.OverallRisk = correlate.DeriveRiskFromFindings(findings, types.RiskLow)
	res.Duration = time.Since(start)
	return res
}

func extensionDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "Extensions"),
		filepath.Join(home, ".config", "google-chrome", "Default", "Extensions"),
		filepath.Join(home, ".config", "chromium", "Default", "Extensions"),
	}
}

func inspectExtensionDir(dir string) []types.Finding {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var findings []types.Finding
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := extensionName(filepath.Join(dir, entry.Name()))
		findings = append(findings, classifyExtension(entry.Name(), name))
	}
	return findings
}

func classifyExtension(id, name string) types.Finding {
	display := name
	if display == "" {
		display = id
	}

	risk := types.RiskLow
	description := fmt.Sprintf("Browser extension %q installed", display)
	if isWalletExtension(name) {
		risk = types.RiskMedium
		description = fmt.Sprintf("Cryptocurrency wallet extension %q installed", display)
	}

	return types.NewFinding("browser_extension", description, risk,
		map[string]string{"extension": display, "id": id})
}

func isWalletExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range walletExtensionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// extensionName digs the display name out of the newest version's manifest.
func extensionName(extDir string) string {
	versions, err := os.ReadDir(extDir)
	if err != nil || len(versions) == 0 {
		return ""
	}

	manifestPath := filepath.Join(extDir, versions[len(versions)-1].Name(), "manifest.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return ""
	}

	var manifest struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return ""
	}
	if strings.HasPrefix(manifest.Name, "__MSG_") {
		return ""
	}
	return manifest.Name
}

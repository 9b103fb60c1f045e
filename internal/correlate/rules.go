package correlate

import (
	"fmt"
	"strings"

	"github.com/driftsec/hostsentry/pkg/types"
)

// Rule derives cross-detector findings from a completed result set. Rules
// are pluggable: new correlations register here without touching the
// aggregation control flow.
type Rule interface {
	Name() string
	Apply(results map[string]types.DetectorResult) []types.Finding
}

// Correlate runs every rule over the result set and collects the derived
// findings. A rule that panics is skipped; correlation never aborts a run.
func Correlate(results map[string]types.DetectorResult, rules []Rule) []types.Finding {
	var derived []types.Finding
	for _, rule := range rules {
		derived = append(derived, applyRule(rule, results)...)
	}
	return derived
}

func applyRule(rule Rule, results map[string]types.DetectorResult) (findings []types.Finding) {
	defer func() {
		if r := recover(); r != nil {
			findings = nil
		}
	}()
	return rule.Apply(results)
}

// DefaultRules returns the correlation rules shipped with the analyzer.
func DefaultRules() []Rule {
	return []Rule{
		processNetworkRule{},
	}
}

// processNetworkRule flags a process finding that shares its process name
// with a network finding: a suspicious binary that is also talking to the
// network is worth more attention than either observation alone.
type processNetworkRule struct{}

func (processNetworkRule) Name() string { return "process-network" }

func (processNetworkRule) Apply(results map[string]types.DetectorResult) []types.Finding {
	processes, ok := results["process"]
	if !ok {
		return nil
	}
	network, ok := results["network"]
	if !ok {
		return nil
	}

	var derived []types.Finding
	for _, pf := range processes.Findings {
		name := strings.ToLower(pf.Fields["name"])
		if name == "" {
			continue
		}
		for _, nf := range network.Findings {
			if strings.ToLower(nf.Fields["process"]) != name {
				continue
			}
			derived = append(derived, types.NewFinding(
				"correlated_activity",
				fmt.Sprintf("Suspicious process %q also has active network activity (%s)", name, nf.Description),
				types.RiskMedium,
				map[string]string{
					"name":            name,
					"process_finding": pf.ID,
					"network_finding": nf.ID,
				},
			))
			break
		}
	}
	return derived
}

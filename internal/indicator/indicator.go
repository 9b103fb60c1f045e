package indicator

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/driftsec/hostsentry/pkg/types"
)

// Probe registers one (detector key, field extractor, term set) tuple. New
// evidence domains add probes; the extractor control flow never changes.
type Probe struct {
	DetectorKey string
	Domain      string

	// Fields selects the text of a finding the probe scans
	Fields func(types.Finding) []string

	// Terms is the static keyword/domain dictionary, matched as
	// case-insensitive substrings
	Terms []string
}

// Extractor scans phase-1 results for domain-specific evidence.
type Extractor struct {
	probes []Probe
	logger *slog.Logger
}

// NewExtractor creates an extractor over the given probes
func NewExtractor(logger *slog.Logger, probes []Probe) *Extractor {
	return &Extractor{
		probes: probes,
		logger: logger,
	}
}

// Extract returns one indicator per finding that matches a probe's term set.
// Extraction fails open: any internal failure yields no indicators and the
// core-phase result stands alone.
func (e *Extractor) Extract(results map[string]types.DetectorResult) (indicators []types.Indicator) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("indicator extraction failed, treating as no indicators", "panic", r)
			indicators = nil
		}
	}()

	for _, probe := range e.probes {
		result, ok := results[probe.DetectorKey]
		if !ok {
			continue
		}
		for _, finding := range result.Findings {
			matched := matchTerms(probe.Fields(finding), probe.Terms)
			if len(matched) == 0 {
				continue
			}
			indicators = append(indicators, types.Indicator{
				Domain:       probe.Domain,
				DetectorKey:  probe.DetectorKey,
				FindingID:    finding.ID,
				MatchedTerms: matched,
			})
		}
	}

	return indicators
}

func matchTerms(fields []string, terms []string) []string {
	var matched []string
	for _, term := range terms {
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field), term) {
				matched = append(matched, term)
				break
			}
		}
	}
	return matched
}

// Thresholds are the depth-expansion cutoffs for the adaptive phase.
type Thresholds struct {
	HighRisk   int
	MediumRisk int
}

// ShouldRunAdaptive decides whether the conditional phase runs. The two
// triggers are independent: domain expansion (any indicator found) and depth
// expansion (high/medium finding counts crossing their thresholds).
func ShouldRunAdaptive(results map[string]types.DetectorResult, indicators []types.Indicator, t Thresholds) (bool, string) {
	if len(indicators) > 0 {
		domains := map[string]struct{}{}
		for _, ind := range indicators {
			domains[ind.Domain] = struct{}{}
		}
		names := make([]string, 0, len(domains))
		for domain := range domains {
			names = append(names, domain)
		}
		return true, fmt.Sprintf("domain indicators found (%d match(es), domains: %s)",
			len(indicators), strings.Join(names, ", "))
	}

	high, medium := 0, 0
	for _, result := range results {
		for _, finding := range result.Findings {
			switch finding.Risk {
			case types.RiskHigh:
				high++
			case types.RiskMedium:
				medium++
			}
		}
	}

	if high >= t.HighRisk && t.HighRisk > 0 {
		return true, fmt.Sprintf("risk depth threshold crossed (high findings: %d)", high)
	}
	if medium >= t.MediumRisk && t.MediumRisk > 0 {
		return true, fmt.Sprintf("risk depth threshold crossed (medium findings: %d)", medium)
	}

	return false, "no adaptive triggers"
}

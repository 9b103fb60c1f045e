// Package firewall is the sensitive-data boundary: it redacts report text
// and gates every payload before it may leave the process for external
// analysis. Raw matched text never survives past this package; only pattern
// names, counts, and masked samples do.
package firewall

import (
	"regexp"
	"strings"

	"github.com/driftsec/hostsentry/pkg/types"
)

const maxSamplesPerPattern = 3

// Firewall evaluates the sensitive-data pattern bank.
type Firewall struct {
	bank []pattern
}

// New creates a firewall with the default pattern bank
func New() *Firewall {
	return &Firewall{bank: patternBank()}
}

// Detection is the non-mutating gate check result.
type Detection struct {
	HasSensitiveData bool
	Matches          []types.SensitivePatternMatch
}

// Detect scans text against the pattern bank without modifying it. It must
// run on the fully assembled outbound payload before any external call; a
// positive result means the call must not happen.
func (f *Firewall) Detect(text string) Detection {
	var detection Detection

	for _, p := range f.bank {
		raw := p.re.FindAllString(text, -1)
		if len(raw) == 0 {
			continue
		}

		match := types.SensitivePatternMatch{Pattern: p.name}
		for _, hit := range raw {
			if p.postFilter != nil && !p.postFilter(hit) {
				continue
			}
			match.Count++
			if len(match.MaskedSamples) < maxSamplesPerPattern {
				match.MaskedSamples = append(match.MaskedSamples, maskSample(hit))
			}
		}
		if match.Count > 0 {
			detection.HasSensitiveData = true
			detection.Matches = append(detection.Matches, match)
		}
	}

	return detection
}

// SanitizeText applies one-way, lossy redaction for report output. Every
// pattern hit is replaced by a [REDACTED:<pattern>] marker, so a subsequent
// Detect over the result finds nothing.
func (f *Firewall) SanitizeText(text string) string {
	for _, p := range f.bank {
		filter := p.postFilter
		marker := "[REDACTED:" + p.name + "]"
		text = p.re.ReplaceAllStringFunc(text, func(hit string) string {
			if filter != nil && !filter(hit) {
				return hit
			}
			return marker
		})
	}
	return text
}

var homeDirRe = regexp.MustCompile(`(/(?:Users|home)/)[^/\s]+`)

// SanitizePath redacts the username segment of home-directory paths and any
// sensitive substrings in the remainder.
func (f *Firewall) SanitizePath(path string) string {
	path = homeDirRe.ReplaceAllString(path, "${1}[USER]")
	return f.SanitizeText(path)
}

// maskSample produces a short, non-reversible sample of matched text. Long
// hits keep their first and last four characters; short ones are fully
// starred out.
func maskSample(hit string) string {
	const keep = 4
	if len(hit) > 3*keep {
		return hit[:keep] + "…" + hit[len(hit)-keep:]
	}
	return strings.Repeat("*", len(hit))
}

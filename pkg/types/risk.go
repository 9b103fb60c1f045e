package types

import (
	"encoding/json"
	"strings"
)

// Risk is a totally ordered risk tier. Comparisons always use the numeric
// order Unknown < Low < Medium < High, never the string form.
type Risk int

const (
	RiskUnknown Risk = iota
	RiskLow
	RiskMedium
	RiskHigh
)

func (r Risk) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParseRisk maps a tier name to its Risk value. Anything unrecognized is
// RiskUnknown.
func ParseRisk(s string) Risk {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow
	case "medium":
		return RiskMedium
	case "high":
		return RiskHigh
	default:
		return RiskUnknown
	}
}

// MaxRisk returns the higher of two tiers.
func MaxRisk(a, b Risk) Risk {
	if b > a {
		return b
	}
	return a
}

func (r Risk) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Risk) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = ParseRisk(s)
	return nil
}

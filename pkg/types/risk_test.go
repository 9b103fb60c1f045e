package types

import (
	"encoding/json"
	"testing"
)

func TestRiskOrdering(t *testing.T) {
	if !(RiskUnknown < RiskLow && RiskLow < RiskMedium && RiskMedium < RiskHigh) {
		t.Fatal("risk tiers are not totally ordered")
	}
	if MaxRisk(RiskLow, RiskHigh) != RiskHigh {
		t.Error("MaxRisk(low, high) != high")
	}
	if MaxRisk(RiskMedium, RiskUnknown) != RiskMedium {
		t.Error("MaxRisk(medium, unknown) != medium")
	}
}

func TestParseRisk(t *testing.T) {
	tests := []struct {
		in   string
		want Risk
	}{
		{"high", RiskHigh},
		{"High", RiskHigh},
		{" medium ", RiskMedium},
		{"low", RiskLow},
		{"unknown", RiskUnknown},
		{"", RiskUnknown},
		{"critical", RiskUnknown},
	}

	for _, tt := range tests {
		if got := ParseRisk(tt.in); got != tt.want {
			t.Errorf("ParseRisk(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRiskJSON(t *testing.T) {
	data, err := json.Marshal(RiskHigh)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"high"` {
		t.Errorf("marshal = %s, want \"high\"", data)
	}

	var r Risk
	if err := json.Unmarshal([]byte(`"medium"`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r != RiskMedium {
		t.Errorf("unmarshal = %v, want medium", r)
	}
}

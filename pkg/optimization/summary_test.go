package optimization

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSummaryFeasible(t *testing.T) {
	tests := []struct {
		name     string
		summary  Summary
		expected bool
	}{
		{"No coop-months", Summary{}, true},
		{"All covered", Summary{CoopMonths: 4, FractionFeasible: 1}, true},
		{"One short", Summary{CoopMonths: 4, FractionFeasible: 0.75}, false},
		{"None covered", Summary{CoopMonths: 4}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.summary.Feasible(); got != tt.expected {
				t.Errorf("Feasible() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestSummaryJSONOmitsEmptyNotes(t *testing.T) {
	data, err := json.Marshal(Summary{RunID: "abc", Variant: "BASE"})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if strings.Contains(string(data), "notes") {
		t.Errorf("expected notes to be omitted: %s", data)
	}
	if !strings.Contains(string(data), `"runId":"abc"`) {
		t.Errorf("expected camelCase run id: %s", data)
	}
}

package pipeline

import (
	"testing"

	"github.com/atento-labs/callaudit/analysis"
)

func boolPtr(b bool) *bool { return &b }

func TestMerge(t *testing.T) {
	tests := []struct {
		name      string
		primary   *analysis.Assessment
		secondary *analysis.Assessment
		want      analysis.Consensus
	}{
		{
			name:    "single source",
			primary: &analysis.Assessment{TotalScore: 60},
			want:    analysis.Consensus{Score: 60, Validated: false, Sources: 1},
		},
		{
			name:      "explicit concurrence keeps primary score",
			primary:   &analysis.Assessment{TotalScore: 60},
			secondary: &analysis.Assessment{TotalScore: 30, Concurs: boolPtr(true)},
			want:      analysis.Consensus{Score: 60, Validated: true, Sources: 2},
		},
		{
			name:      "explicit disagreement averages",
			primary:   &analysis.Assessment{TotalScore: 60},
			secondary: &analysis.Assessment{TotalScore: 30, Concurs: boolPtr(false)},
			want:      analysis.Consensus{Score: 45, Validated: false, Sources: 2},
		},
		{
			name:      "no verdict, scores close",
			primary:   &analysis.Assessment{TotalScore: 60},
			secondary: &analysis.Assessment{TotalScore: 52},
			want:      analysis.Consensus{Score: 60, Validated: true, Sources: 2},
		},
		{
			name:      "no verdict, scores far apart",
			primary:   &analysis.Assessment{TotalScore: 80},
			secondary: &analysis.Assessment{TotalScore: 20},
			want:      analysis.Consensus{Score: 50, Validated: false, Sources: 2},
		},
		{
			name:      "odd sum rounds away from zero",
			primary:   &analysis.Assessment{TotalScore: 40, Concurs: nil},
			secondary: &analysis.Assessment{TotalScore: 11, Concurs: boolPtr(false)},
			want:      analysis.Consensus{Score: 26, Validated: false, Sources: 2},
		},
		{
			name:      "negative odd sum rounds away from zero",
			primary:   &analysis.Assessment{TotalScore: -40},
			secondary: &analysis.Assessment{TotalScore: -11, Concurs: boolPtr(false)},
			want:      analysis.Consensus{Score: -26, Validated: false, Sources: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.primary, tt.secondary)
			if got != tt.want {
				t.Errorf("Merge() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

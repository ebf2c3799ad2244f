package validation

import "testing"

func TestHeuristicCounterCount(t *testing.T) {
	tests := []struct {
		name   string
		report string
		want   int
	}{
		{
			name:   "clean report",
			report: "The chapter reads well and the timeline holds together.",
			want:   0,
		},
		{
			name:   "keyword tally",
			report: "There is an issue with the door and a problem with the timeline. The second issue compounds the first.",
			want:   3,
		},
		{
			name:   "numbered list wins over keywords",
			report: "1. The candle relights itself.\n2. The letter changes hands twice.\n3. The storm clears too fast.\nOnly one real problem overall.",
			want:   3,
		},
		{
			name:   "keywords win over short list",
			report: "1. Several things: an inconsistency, a contradiction, an error, and one more inconsistency.",
			want:   4,
		},
		{
			name: "capped at ten",
			report: "issue issue issue issue issue issue issue issue issue issue issue issue",
			want: maxIssuesPerProtocol,
		},
		{
			name:   "case insensitive",
			report: "One ISSUE and one Problem.",
			want:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (HeuristicCounter{}).Count(tt.report); got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}

package validation

import "testing"

func TestScore(t *testing.T) {
	tests := []struct {
		issues int
		want   float64
	}{
		{0, 10.0},
		{1, 9.5},
		{2, 9.0},
		{4, 8.0},
		{5, 7.5},
		{6, 7.0},
		{7, 7.0}, // penalty caps at 3.0
		{100, 7.0},
	}

	for _, tt := range tests {
		if got := Score(tt.issues); got != tt.want {
			t.Errorf("Score(%d) = %.1f, want %.1f", tt.issues, got, tt.want)
		}
	}
}

func TestQualityFor(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{10.0, QualityExcellent},
		{9.0, QualityExcellent},
		{8.5, QualityVeryGood},
		{8.0, QualityVeryGood},
		{7.0, QualityGood},
		{6.5, QualityAcceptable},
		{6.0, QualityAcceptable},
	}

	for _, tt := range tests {
		if got := QualityFor(tt.score); got != tt.want {
			t.Errorf("QualityFor(%.1f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	results := []ChapterResult{
		{
			ChapterNumber: 1,
			TotalIssues:   3,
			Fixed:         true,
			Reports: []Report{
				{Protocol: ProtocolContinuity, Issues: 3, Severity: SeverityModerate},
				{Protocol: ProtocolProse, Issues: 0, Severity: SeverityLow},
			},
		},
		{
			ChapterNumber: 2,
			TotalIssues:   0,
			Reports: []Report{
				{Protocol: ProtocolContinuity, Issues: 0, Severity: SeverityLow},
			},
		},
	}

	s := Summarize(results)

	if s.ChaptersValidated != 2 {
		t.Errorf("ChaptersValidated = %d, want 2", s.ChaptersValidated)
	}
	if s.ChaptersFixed != 1 {
		t.Errorf("ChaptersFixed = %d, want 1", s.ChaptersFixed)
	}
	if s.TotalIssues != 3 {
		t.Errorf("TotalIssues = %d, want 3", s.TotalIssues)
	}
	if s.IssuesByProtocol[ProtocolContinuity] != 3 {
		t.Errorf("IssuesByProtocol[continuity] = %d, want 3", s.IssuesByProtocol[ProtocolContinuity])
	}
	if s.Score != 8.5 {
		t.Errorf("Score = %.1f, want 8.5", s.Score)
	}
	if s.Quality != QualityVeryGood {
		t.Errorf("Quality = %q, want %q", s.Quality, QualityVeryGood)
	}
	if len(s.Recommendations) != 1 {
		t.Fatalf("Recommendations = %v, want exactly the continuity advice", s.Recommendations)
	}
	if s.Recommendations[0] != protocolAdvice[ProtocolContinuity] {
		t.Errorf("Recommendations[0] = %q, want continuity advice", s.Recommendations[0])
	}
}

func TestSummarizeScoreFloor(t *testing.T) {
	results := []ChapterResult{
		{
			ChapterNumber: 1,
			TotalIssues:   20,
			Reports:       []Report{{Protocol: ProtocolProse, Issues: 20, Severity: SeverityModerate}},
		},
	}

	s := Summarize(results)

	if s.Score != 7.0 {
		t.Fatalf("Score = %.1f, want 7.0", s.Score)
	}
	if s.Quality != QualityGood {
		t.Errorf("Quality = %q, want %q", s.Quality, QualityGood)
	}
	if len(s.Recommendations) != 1 {
		t.Errorf("Recommendations = %v, want only prose advice", s.Recommendations)
	}
}

func TestRecommendationsLowScore(t *testing.T) {
	recs := recommendations(Summary{Score: 6.5, IssuesByProtocol: map[string]int{}})
	if len(recs) != 1 {
		t.Fatalf("recommendations = %v, want one low-score entry", recs)
	}
}

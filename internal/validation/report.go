package validation

import "fmt"

// Quality tiers for the final score.
const (
	QualityExcellent  = "excellent"
	QualityVeryGood   = "very_good"
	QualityGood       = "good"
	QualityAcceptable = "acceptable"
)

// Summary aggregates a full validation run.
type Summary struct {
	ChaptersValidated int             `json:"chapters_validated"`
	ChaptersFixed     int             `json:"chapters_fixed"`
	TotalIssues       int             `json:"total_issues"`
	IssuesByProtocol  map[string]int  `json:"issues_by_protocol"`
	Score             float64         `json:"score"`
	Quality           string          `json:"quality"`
	Recommendations   []string        `json:"recommendations"`
	Chapters          []ChapterResult `json:"chapters"`
}

// Score maps a total issue count onto the 6.0 to 10.0 band: each issue
// costs half a point, the penalty caps at 3.0, and the floor is 6.0.
func Score(totalIssues int) float64 {
	penalty := float64(totalIssues) * 0.5
	if penalty > 3.0 {
		penalty = 3.0
	}
	score := 10.0 - penalty
	if score < 6.0 {
		score = 6.0
	}
	return score
}

// QualityFor buckets a score into its tier.
func QualityFor(score float64) string {
	switch {
	case score >= 9.0:
		return QualityExcellent
	case score >= 8.0:
		return QualityVeryGood
	case score >= 7.0:
		return QualityGood
	default:
		return QualityAcceptable
	}
}

// Summarize folds per-chapter results into a run-level summary.
func Summarize(results []ChapterResult) Summary {
	s := Summary{
		ChaptersValidated: len(results),
		IssuesByProtocol:  make(map[string]int),
		Chapters:          results,
	}
	for _, r := range results {
		s.TotalIssues += r.TotalIssues
		if r.Fixed {
			s.ChaptersFixed++
		}
		for _, rep := range r.Reports {
			s.IssuesByProtocol[rep.Protocol] += rep.Issues
		}
	}
	s.Score = Score(s.TotalIssues)
	s.Quality = QualityFor(s.Score)
	s.Recommendations = recommendations(s)
	return s
}

var protocolAdvice = map[string]string{
	ProtocolContinuity:    "Review the story timeline and cross-chapter references for consistency",
	ProtocolCharacterArc:  "Revisit character motivations so actions follow from established traits",
	ProtocolPacing:        "Rebalance chapter pacing and strengthen chapter endings",
	ProtocolWorldbuilding: "Align chapter details with the established world rules",
	ProtocolProse:         "Polish prose for repetition, clarity, and show-don't-tell balance",
}

func recommendations(s Summary) []string {
	var recs []string
	for _, name := range ProtocolNames {
		if s.IssuesByProtocol[name] > 2 {
			recs = append(recs, protocolAdvice[name])
		}
	}
	if s.Score < 7.0 {
		recs = append(recs, fmt.Sprintf("Overall score %.1f is below target; consider an additional revision pass", s.Score))
	}
	return recs
}

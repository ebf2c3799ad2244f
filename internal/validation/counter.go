package validation

import (
	"regexp"
	"strings"
)

// maxIssuesPerProtocol caps the heuristic count so verbose reports do
// not dominate the aggregate score.
const maxIssuesPerProtocol = 10

// IssueCounter derives an issue count from a protocol's free-text
// report. The production counter is a keyword heuristic; the interface
// exists so a structured-output validator can replace it without
// touching the loop.
type IssueCounter interface {
	Count(report string) int
}

// issueIndicators are the words whose occurrences are tallied.
var issueIndicators = []string{
	"issue", "problem", "inconsistency", "contradiction", "error",
	"confusing", "unclear", "missing", "incorrect", "inconsistent",
}

var numberedItem = regexp.MustCompile(`\d+\.`)

// HeuristicCounter scans a report for issue-indicating language and
// enumerated list items, takes whichever count is larger, and caps the
// result. Intentionally approximate.
type HeuristicCounter struct{}

// Count implements IssueCounter.
func (HeuristicCounter) Count(report string) int {
	lower := strings.ToLower(report)

	count := 0
	for _, indicator := range issueIndicators {
		count += strings.Count(lower, indicator)
	}

	if numbered := len(numberedItem.FindAllString(report, -1)); numbered > count {
		count = numbered
	}

	if count > maxIssuesPerProtocol {
		count = maxIssuesPerProtocol
	}
	return count
}

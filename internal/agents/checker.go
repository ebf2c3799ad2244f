package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/story"
	"github.com/AFK4203/Book-generator-V3/internal/validation"
)

// ErrNoChapters is returned when the checker is handed nothing to
// validate.
var ErrNoChapters = errors.New("no chapters to validate")

// Checker runs the sequential validation passes over the written
// chapters, fixing as it goes.
type Checker struct {
	agent.Base
	loop *validation.Loop
}

// NewChecker builds a checker for one session. The validation loop
// shares the session's generation client.
func NewChecker(client agent.Completer, sink agent.StatusSink, opts ...validation.LoopOption) *Checker {
	return &Checker{
		Base: agent.NewBase("sequential_checker", client, sink),
		loop: validation.NewLoop(client, opts...),
	}
}

// Check validates and fixes chapters in order, then summarizes the
// run. The returned chapters are the same slice, post-fix.
func (c *Checker) Check(ctx context.Context, in *story.Input, chapters []story.Chapter, world WorldResult, characters CharacterResult) (CheckResult, error) {
	if len(chapters) == 0 {
		c.UpdateStatus(agent.StatusError, 0.0, "No chapters to validate")
		return CheckResult{}, ErrNoChapters
	}

	c.UpdateStatus(agent.StatusWorking, 0.0, fmt.Sprintf("Validating %d chapters", len(chapters)))

	results, err := c.loop.Run(ctx, in, chapters,
		world.Excerpt(1000),
		characters.ContextExcerpt(3, 300),
		func(done, total int) {
			c.UpdateStatus(agent.StatusWorking, float64(done)/float64(total),
				fmt.Sprintf("Validated chapter %d/%d", done, total))
		})
	if err != nil {
		return CheckResult{}, fmt.Errorf("sequential validation: %w", err)
	}

	summary := validation.Summarize(results)
	c.UpdateStatus(agent.StatusCompleted, 1.0,
		fmt.Sprintf("Validation complete: %d issues, %d chapters fixed, score %.1f",
			summary.TotalIssues, summary.ChaptersFixed, summary.Score))
	return CheckResult{Chapters: chapters, Summary: summary}, nil
}

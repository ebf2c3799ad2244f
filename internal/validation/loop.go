package validation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

// ChapterResult is the outcome of running every protocol over one
// chapter, including the auto-fix if issues were found.
type ChapterResult struct {
	ChapterNumber int      `json:"chapter_number"`
	Reports       []Report `json:"reports"`
	TotalIssues   int      `json:"total_issues"`
	Fixed         bool     `json:"fixed"`
	FixError      string   `json:"fix_error,omitempty"`
}

// Loop runs the five-pass validation over chapters one at a time, in
// order, fixing each chapter before moving to the next so later
// continuity checks see corrected text.
type Loop struct {
	client    agent.Completer
	protocols []Protocol
	logger    *slog.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithProtocols replaces the default protocol set.
func WithProtocols(protocols []Protocol) LoopOption {
	return func(l *Loop) { l.protocols = protocols }
}

// WithLoopLogger sets the loop's logger.
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// NewLoop builds a validation loop over the given client.
func NewLoop(client agent.Completer, opts ...LoopOption) *Loop {
	l := &Loop{
		client:    client,
		protocols: DefaultProtocols(HeuristicCounter{}),
		logger:    slog.Default().With("component", "validation_loop"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ProgressFunc is called after each chapter finishes validation, with
// the 1-based index of the finished chapter and the chapter total.
type ProgressFunc func(done, total int)

// Run validates and fixes chapters sequentially, mutating them in
// place. It returns one result per chapter. A protocol error fails the
// whole run; a fix error does not, the chapter is marked fix_failed
// and the loop continues.
func (l *Loop) Run(ctx context.Context, in *story.Input, chapters []story.Chapter, worldContext, characterContext string, progress ProgressFunc) ([]ChapterResult, error) {
	results := make([]ChapterResult, 0, len(chapters))

	for i := range chapters {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := l.validateChapter(ctx, in, chapters, i, worldContext, characterContext)
		if err != nil {
			return results, fmt.Errorf("validate chapter %d: %w", chapters[i].Number, err)
		}

		if res.TotalIssues > 0 {
			l.fixChapter(ctx, in, &chapters[i], res)
		} else {
			chapters[i].ValidationStatus = story.ValidationValidated
		}
		chapters[i].MeetsWordTarget = chapters[i].WordCount >= in.MinWordsPerChapter

		results = append(results, *res)
		if progress != nil {
			progress(i+1, len(chapters))
		}
	}

	return results, nil
}

func (l *Loop) validateChapter(ctx context.Context, in *story.Input, chapters []story.Chapter, idx int, worldContext, characterContext string) (*ChapterResult, error) {
	ch := chapters[idx]
	pin := Input{
		Chapter:          ch,
		Story:            in,
		Previous:         chapters[:idx],
		WorldContext:     worldContext,
		CharacterContext: characterContext,
	}

	res := &ChapterResult{ChapterNumber: ch.Number}
	for _, p := range l.protocols {
		report, err := p.Check(ctx, l.client, pin)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name(), err)
		}
		l.logger.Debug("protocol finished",
			"chapter", ch.Number,
			"protocol", p.Name(),
			"issues", report.Issues,
			"severity", report.Severity)
		res.Reports = append(res.Reports, report)
		res.TotalIssues += report.Issues
	}
	return res, nil
}

// fixChapter asks the generator to rewrite the chapter addressing every
// reported issue. A failed fix keeps the original content.
func (l *Loop) fixChapter(ctx context.Context, in *story.Input, ch *story.Chapter, res *ChapterResult) {
	l.logger.Info("fixing chapter",
		"chapter", ch.Number,
		"issues", res.TotalIssues)

	fixed, err := l.client.Complete(ctx,
		[]agent.Message{
			agent.System("You are a skilled fiction editor. Rewrite the chapter to fix all identified issues while preserving the story events, character voices, and chapter length. Output only the revised chapter text."),
			agent.User(fixPrompt(in, ch, res.Reports)),
		},
		agent.WithTemperature(0.6),
		agent.WithMaxTokens(4000))
	if err != nil {
		l.logger.Error("chapter fix failed",
			"chapter", ch.Number,
			"error", err)
		ch.ValidationStatus = story.ValidationFixFailed
		res.FixError = err.Error()
		return
	}

	ch.Content = fixed
	ch.WordCount = story.CountWords(fixed)
	ch.ValidationStatus = story.ValidationFixed
	ch.RevisionCount++
	res.Fixed = true
}

func fixPrompt(in *story.Input, ch *story.Chapter, reports []Report) string {
	var issues []string
	for _, r := range reports {
		if r.Issues == 0 {
			continue
		}
		issues = append(issues, fmt.Sprintf("[%s] %d issue(s), severity %s:\n%s",
			r.Protocol, r.Issues, r.Severity, excerpt(r.Details, 1500)))
	}

	return fmt.Sprintf(`Revise Chapter %d - "%s" to address the validation findings below.

STORY CONTEXT:
%s

VALIDATION FINDINGS:
%s

CURRENT CHAPTER:
%s

Rewrite the complete chapter with all issues fixed. Keep the plot events and maintain at least %d words.`,
		ch.Number, ch.Title, in.Context(), strings.Join(issues, "\n\n"), ch.Content, in.MinWordsPerChapter)
}

package validation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

// scriptedCompleter routes completions by prompt content so each
// protocol and the fixer can be scripted independently.
type scriptedCompleter struct {
	respond func(system, user string) (string, error)
	calls   []string
}

func (s *scriptedCompleter) Complete(_ context.Context, messages []agent.Message, _ ...agent.CallOption) (string, error) {
	var system, user string
	for _, m := range messages {
		switch m.Role {
		case agent.RoleSystem:
			system = m.Content
		case agent.RoleUser:
			user = m.Content
		}
	}
	s.calls = append(s.calls, system)
	return s.respond(system, user)
}

func isFixPrompt(system string) bool {
	return strings.Contains(system, "fiction editor")
}

func testInput(chapters, minWords int) *story.Input {
	return &story.Input{
		CentralTheme:       "redemption",
		MainPremise:        "a cartographer maps a city that rearranges itself at night",
		TotalChapters:      chapters,
		MinWordsPerChapter: minWords,
	}
}

func testChapters(n int) []story.Chapter {
	chapters := make([]story.Chapter, 0, n)
	for i := 1; i <= n; i++ {
		chapters = append(chapters, story.NewChapter(i, "Untitled", "The streets shifted again while the city slept soundly."))
	}
	return chapters
}

func TestLoopCleanChaptersValidated(t *testing.T) {
	client := &scriptedCompleter{
		respond: func(system, user string) (string, error) {
			return "The chapter holds together well on every front.", nil
		},
	}
	loop := NewLoop(client)

	in := testInput(2, 0)
	chapters := testChapters(2)
	originals := []string{chapters[0].Content, chapters[1].Content}

	var progressed []int
	results, err := loop.Run(context.Background(), in, chapters, "world bible", "profiles", func(done, total int) {
		progressed = append(progressed, done)
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, r := range results {
		if r.TotalIssues != 0 {
			t.Errorf("chapter %d: TotalIssues = %d, want 0", r.ChapterNumber, r.TotalIssues)
		}
		if len(r.Reports) != len(ProtocolNames) {
			t.Errorf("chapter %d: got %d reports, want %d", r.ChapterNumber, len(r.Reports), len(ProtocolNames))
		}
		if chapters[i].ValidationStatus != story.ValidationValidated {
			t.Errorf("chapter %d: status = %q, want validated", r.ChapterNumber, chapters[i].ValidationStatus)
		}
		if !chapters[i].MeetsWordTarget {
			t.Errorf("chapter %d: MeetsWordTarget = false, want true", r.ChapterNumber)
		}
		if chapters[i].Content != originals[i] {
			t.Errorf("chapter %d: content mutated without issues", r.ChapterNumber)
		}
		if chapters[i].RevisionCount != 0 {
			t.Errorf("chapter %d: RevisionCount = %d, want 0", r.ChapterNumber, chapters[i].RevisionCount)
		}
	}
	if len(progressed) != 2 || progressed[0] != 1 || progressed[1] != 2 {
		t.Errorf("progress callbacks = %v, want [1 2]", progressed)
	}
}

func TestLoopFixesChapterWithIssues(t *testing.T) {
	const fixedContent = "The streets settled into a new but deliberate arrangement by dawn."

	client := &scriptedCompleter{
		respond: func(system, user string) (string, error) {
			if isFixPrompt(system) {
				return fixedContent, nil
			}
			if strings.Contains(system, "continuity checker") {
				return "1. The candle relights itself without anyone striking a match.\n2. The gate is locked here but was broken in the last scene.", nil
			}
			return "Everything else reads cleanly.", nil
		},
	}
	loop := NewLoop(client)

	in := testInput(1, 0)
	chapters := testChapters(1)

	results, err := loop.Run(context.Background(), in, chapters, "", "", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	res := results[0]
	if res.TotalIssues != 2 {
		t.Errorf("TotalIssues = %d, want 2", res.TotalIssues)
	}
	if !res.Fixed {
		t.Error("Fixed = false, want true")
	}
	ch := chapters[0]
	if ch.Content != fixedContent {
		t.Errorf("Content = %q, want fixed text", ch.Content)
	}
	if ch.ValidationStatus != story.ValidationFixed {
		t.Errorf("status = %q, want fixed", ch.ValidationStatus)
	}
	if ch.RevisionCount != 1 {
		t.Errorf("RevisionCount = %d, want 1", ch.RevisionCount)
	}
	if ch.WordCount != story.CountWords(fixedContent) {
		t.Errorf("WordCount = %d, want recount of fixed text", ch.WordCount)
	}
}

func TestLoopFixFailureKeepsContent(t *testing.T) {
	fixErr := errors.New("backend unavailable")
	client := &scriptedCompleter{
		respond: func(system, user string) (string, error) {
			if isFixPrompt(system) {
				return "", fixErr
			}
			if strings.Contains(system, "continuity checker") {
				return "1. One timeline slip.", nil
			}
			return "Clean.", nil
		},
	}
	loop := NewLoop(client)

	in := testInput(2, 0)
	chapters := testChapters(2)
	original := chapters[0].Content

	results, err := loop.Run(context.Background(), in, chapters, "", "", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if chapters[0].ValidationStatus != story.ValidationFixFailed {
		t.Errorf("status = %q, want fix_failed", chapters[0].ValidationStatus)
	}
	if chapters[0].Content != original {
		t.Error("content changed on failed fix, want original kept")
	}
	if chapters[0].RevisionCount != 0 {
		t.Errorf("RevisionCount = %d, want 0", chapters[0].RevisionCount)
	}
	if results[0].FixError == "" {
		t.Error("FixError empty, want recorded error")
	}
	// The loop keeps going after a failed fix.
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestLoopProtocolErrorAborts(t *testing.T) {
	checkErr := errors.New("rate limited")
	client := &scriptedCompleter{
		respond: func(system, user string) (string, error) {
			if strings.Contains(system, "pacing") {
				return "", checkErr
			}
			return "Clean.", nil
		},
	}
	loop := NewLoop(client)

	_, err := loop.Run(context.Background(), testInput(1, 0), testChapters(1), "", "", nil)
	if !errors.Is(err, checkErr) {
		t.Fatalf("Run() error = %v, want wrapped %v", err, checkErr)
	}
}

func TestLoopLaterChaptersSeeFixedText(t *testing.T) {
	const fixedContent = "The corrected opening chapter."

	var chapterTwoContext string
	client := &scriptedCompleter{
		respond: func(system, user string) (string, error) {
			if isFixPrompt(system) {
				return fixedContent, nil
			}
			if strings.Contains(system, "continuity checker") {
				if strings.Contains(user, "Validate Chapter 1 ") {
					return "1. A dangling thread.", nil
				}
				chapterTwoContext = user
				return "Clean.", nil
			}
			return "Clean.", nil
		},
	}
	loop := NewLoop(client)

	chapters := testChapters(2)
	if _, err := loop.Run(context.Background(), testInput(2, 0), chapters, "", "", nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !strings.Contains(chapterTwoContext, fixedContent) {
		t.Error("chapter 2 continuity check did not see chapter 1's fixed text")
	}
}

func TestLoopWordCountPenalty(t *testing.T) {
	client := &scriptedCompleter{
		respond: func(system, user string) (string, error) {
			if isFixPrompt(system) {
				return "Still short.", nil
			}
			return "Clean.", nil
		},
	}
	loop := NewLoop(client)

	in := testInput(1, 5000)
	chapters := testChapters(1)

	results, err := loop.Run(context.Background(), in, chapters, "", "", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	res := results[0]
	if res.TotalIssues != 1 {
		t.Errorf("TotalIssues = %d, want 1 from unmet word target", res.TotalIssues)
	}
	var prose *Report
	for i := range res.Reports {
		if res.Reports[i].Protocol == ProtocolProse {
			prose = &res.Reports[i]
		}
	}
	if prose == nil {
		t.Fatal("no prose report")
	}
	if prose.WordCountMet {
		t.Error("WordCountMet = true, want false")
	}
	if chapters[0].MeetsWordTarget {
		t.Error("MeetsWordTarget = true, want false")
	}
}

func TestLoopContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &scriptedCompleter{
		respond: func(system, user string) (string, error) { return "Clean.", nil },
	}
	results, err := NewLoop(client).Run(ctx, testInput(3, 0), testChapters(3), "", "", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results before cancellation, want 0", len(results))
	}
}

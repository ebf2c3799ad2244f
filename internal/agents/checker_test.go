package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

func TestCheckerRequiresChapters(t *testing.T) {
	client := agent.NewMockClient()
	c := NewChecker(client, nil)

	in := &story.Input{CentralTheme: "t", MainPremise: "p", TotalChapters: 2}
	_, err := c.Check(context.Background(), in, nil, WorldResult{}, CharacterResult{})
	if !errors.Is(err, ErrNoChapters) {
		t.Fatalf("Check() error = %v, want ErrNoChapters", err)
	}
	if client.Calls() != 0 {
		t.Errorf("generation calls = %d, want 0 with nothing to validate", client.Calls())
	}
	if c.Status().Status != agent.StatusError {
		t.Errorf("status = %q, want error", c.Status().Status)
	}

	_, err = c.Check(context.Background(), in, []story.Chapter{}, WorldResult{}, CharacterResult{})
	if !errors.Is(err, ErrNoChapters) {
		t.Fatalf("Check() with empty slice error = %v, want ErrNoChapters", err)
	}
}

func TestCheckerSummarizesCleanRun(t *testing.T) {
	client := agent.NewMockClient().
		Default("The chapter unfolds as planned, carrying the story forward with steady momentum.")
	c := NewChecker(client, nil)

	in := &story.Input{CentralTheme: "t", MainPremise: "p", TotalChapters: 1}
	chapters := []story.Chapter{story.NewChapter(1, "One", "The streets shifted again while the city slept soundly.")}

	res, err := c.Check(context.Background(), in, chapters, WorldResult{}, CharacterResult{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.Summary.ChaptersValidated != 1 || res.Summary.TotalIssues != 0 {
		t.Errorf("summary = %+v, want one clean chapter", res.Summary)
	}
	if res.Chapters[0].ValidationStatus != story.ValidationValidated {
		t.Errorf("status = %q, want validated", res.Chapters[0].ValidationStatus)
	}
	if c.Status().Status != agent.StatusCompleted {
		t.Errorf("agent status = %q, want completed", c.Status().Status)
	}
}

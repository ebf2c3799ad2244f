package agents

import (
	"context"
	"fmt"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/document"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

// Formatter is the document formatting phase: it takes the validated
// chapters and produces the downloadable manuscript. No generation
// calls happen here; the agent exists for uniform status reporting.
type Formatter struct {
	agent.Base
	assembler *document.Assembler
}

// NewFormatter builds a formatter for one session.
func NewFormatter(assembler *document.Assembler, sink agent.StatusSink) *Formatter {
	return &Formatter{
		Base:      agent.NewBase("document_formatter", nil, sink),
		assembler: assembler,
	}
}

// Format assembles and persists the manuscript.
func (f *Formatter) Format(ctx context.Context, sessionID string, in *story.Input, chapters []story.Chapter) (FormatResult, error) {
	f.UpdateStatus(agent.StatusWorking, 0.2, "Assembling manuscript")

	path, stats, err := f.assembler.Assemble(ctx, sessionID, in, chapters)
	if err != nil {
		f.UpdateStatus(agent.StatusError, 0.2, fmt.Sprintf("Assembly failed: %v", err))
		return FormatResult{}, fmt.Errorf("document formatting: %w", err)
	}

	f.UpdateStatus(agent.StatusCompleted, 1.0,
		fmt.Sprintf("Manuscript ready: %d words, ~%d pages", stats.TotalWords, stats.EstimatedPages))
	return FormatResult{
		Path:           path,
		TotalWords:     stats.TotalWords,
		EstimatedPages: stats.EstimatedPages,
	}, nil
}

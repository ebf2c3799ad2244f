// Package document assembles validated chapters into the final
// manuscript artifact.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AFK4203/Book-generator-V3/internal/story"
)

const wordsPerPage = 250

// Stats summarizes the assembled manuscript.
type Stats struct {
	Chapters       int `json:"chapters"`
	TotalWords     int `json:"total_words"`
	EstimatedPages int `json:"estimated_pages"`
}

// ArtifactStore is the slice of the storage layer the assembler needs.
type ArtifactStore interface {
	Save(ctx context.Context, path string, data []byte) error
	FullPath(path string) (string, error)
}

// Assembler renders chapters into a plain-text manuscript and persists
// it through the artifact store.
type Assembler struct {
	store  ArtifactStore
	logger *slog.Logger
	now    func() time.Time
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithAssemblerLogger sets the logger.
func WithAssemblerLogger(logger *slog.Logger) AssemblerOption {
	return func(a *Assembler) { a.logger = logger }
}

// WithClock replaces the timestamp source, for deterministic tests.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) { a.now = now }
}

// NewAssembler builds an assembler writing through the given store.
func NewAssembler(store ArtifactStore, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		store:  store,
		logger: slog.Default().With("component", "document_assembler"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble renders the manuscript, writes it under
// books/<sessionID>.txt, and returns the absolute artifact path with
// its stats.
func (a *Assembler) Assemble(ctx context.Context, sessionID string, in *story.Input, chapters []story.Chapter) (string, Stats, error) {
	if len(chapters) == 0 {
		return "", Stats{}, fmt.Errorf("no chapters to assemble")
	}

	text, stats := a.Render(in, chapters)

	relPath := fmt.Sprintf("books/%s.txt", sessionID)
	if err := a.store.Save(ctx, relPath, []byte(text)); err != nil {
		return "", Stats{}, fmt.Errorf("saving manuscript: %w", err)
	}
	fullPath, err := a.store.FullPath(relPath)
	if err != nil {
		return "", Stats{}, fmt.Errorf("resolving manuscript path: %w", err)
	}

	a.logger.Info("manuscript assembled",
		"session_id", sessionID,
		"path", fullPath,
		"chapters", stats.Chapters,
		"total_words", stats.TotalWords,
		"estimated_pages", stats.EstimatedPages)
	return fullPath, stats, nil
}

// Render produces the manuscript text and its stats without writing
// anything.
func (a *Assembler) Render(in *story.Input, chapters []story.Chapter) (string, Stats) {
	var sb strings.Builder
	divider := strings.Repeat("=", 60)

	sb.WriteString(divider + "\n")
	sb.WriteString(strings.ToUpper(in.CentralTheme) + "\n")
	sb.WriteString(divider + "\n\n")
	sb.WriteString(in.MainPremise + "\n\n")
	sb.WriteString("Generated " + a.now().UTC().Format("January 2, 2006") + "\n\n")

	stats := Stats{Chapters: len(chapters)}
	for _, ch := range chapters {
		sb.WriteString(divider + "\n")
		sb.WriteString(fmt.Sprintf("CHAPTER %d: %s\n", ch.Number, ch.Title))
		sb.WriteString(divider + "\n\n")
		sb.WriteString(strings.TrimSpace(ch.Content))
		sb.WriteString("\n\n")
		stats.TotalWords += ch.WordCount
	}

	sb.WriteString(divider + "\n")
	sb.WriteString("THE END\n")
	sb.WriteString(divider + "\n")

	stats.EstimatedPages = stats.TotalWords / wordsPerPage
	if stats.EstimatedPages < 1 {
		stats.EstimatedPages = 1
	}
	return sb.String(), stats
}

package document

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/AFK4203/Book-generator-V3/internal/storage"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

func fixedClock() time.Time {
	return time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)
}

func TestAssemble(t *testing.T) {
	fs := storage.NewFileSystem(t.TempDir())
	assembler := NewAssembler(fs, WithClock(fixedClock))

	in := &story.Input{
		CentralTheme:  "found family",
		MainPremise:   "a salvage crew adopts the ghost haunting their ship",
		TotalChapters: 2,
	}
	chapters := []story.Chapter{
		story.NewChapter(1, "Salvage Rights", strings.Repeat("word ", 300)),
		story.NewChapter(2, "Stowaway", strings.Repeat("word ", 200)),
	}

	path, stats, err := assembler.Assemble(context.Background(), "sess-1", in, chapters)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if stats.Chapters != 2 {
		t.Errorf("Chapters = %d, want 2", stats.Chapters)
	}
	if stats.TotalWords != 500 {
		t.Errorf("TotalWords = %d, want 500", stats.TotalWords)
	}
	if stats.EstimatedPages != 2 {
		t.Errorf("EstimatedPages = %d, want 2", stats.EstimatedPages)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading manuscript: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		"FOUND FAMILY",
		"a salvage crew adopts the ghost haunting their ship",
		"CHAPTER 1: Salvage Rights",
		"CHAPTER 2: Stowaway",
		"March 14, 2025",
		"THE END",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("manuscript missing %q", want)
		}
	}
}

func TestAssembleNoChapters(t *testing.T) {
	assembler := NewAssembler(storage.NewFileSystem(t.TempDir()))

	if _, _, err := assembler.Assemble(context.Background(), "sess-1", &story.Input{}, nil); err == nil {
		t.Fatal("Assemble() with no chapters succeeded, want error")
	}
}

func TestRenderPageFloor(t *testing.T) {
	assembler := NewAssembler(storage.NewFileSystem(t.TempDir()))

	chapters := []story.Chapter{story.NewChapter(1, "Short", "barely any words")}
	_, stats := assembler.Render(&story.Input{CentralTheme: "x", MainPremise: "y"}, chapters)

	if stats.EstimatedPages != 1 {
		t.Errorf("EstimatedPages = %d, want floor of 1", stats.EstimatedPages)
	}
}

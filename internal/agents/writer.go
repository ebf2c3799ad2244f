package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

// Writer generates chapters one at a time, feeding each prompt the
// tail of what has already been written so chapters connect.
type Writer struct {
	agent.Base
}

// NewWriter builds a writer for one session.
func NewWriter(client agent.Completer, sink agent.StatusSink) *Writer {
	return &Writer{Base: agent.NewBase("story_generator", client, sink)}
}

// WriteChapters generates every chapter in order. This is the one
// phase that must not fail silently: any chapter error aborts the
// whole write.
func (w *Writer) WriteChapters(ctx context.Context, in *story.Input, world WorldResult, characters CharacterResult, plot PlotResult) (WriteResult, error) {
	system := `You are a professional fiction writer. Write the requested chapter in full, as polished narrative prose.

Rules:
- Follow the chapter outline; cover all its beats.
- Stay consistent with the story so far, the world, and the character profiles.
- Show through action, dialogue, and sensory detail. Avoid summarizing.
- Do not include the chapter title or any headings, only the chapter text.`

	result := WriteResult{Chapters: make([]story.Chapter, 0, len(plot.Outlines))}
	for i, outline := range plot.Outlines {
		progress := float64(i) / float64(len(plot.Outlines))
		w.UpdateStatus(agent.StatusWorking, progress, fmt.Sprintf("Writing chapter %d/%d", outline.ChapterNumber, len(plot.Outlines)))

		content, err := w.Generate(ctx,
			[]agent.Message{
				agent.System(system),
				agent.User(w.chapterPrompt(in, world, characters, outline, result.Chapters)),
			},
			agent.WithMaxTokens(4000))
		if err != nil {
			return WriteResult{}, fmt.Errorf("write chapter %d: %w", outline.ChapterNumber, err)
		}

		title := w.generateTitle(ctx, outline.ChapterNumber, content)
		ch := story.NewChapter(outline.ChapterNumber, title, content)
		ch.OutlineUsed = outline.Content
		ch.MeetsWordTarget = ch.WordCount >= outline.WordTarget

		result.Chapters = append(result.Chapters, ch)
		result.TotalWords += ch.WordCount
		if ch.MeetsWordTarget {
			result.ChaptersMeetingTarget++
		}
	}

	if n := len(result.Chapters); n > 0 {
		result.AverageWordsPerChap = result.TotalWords / n
		result.TargetAchievementRate = float64(result.ChaptersMeetingTarget) / float64(n)
	}
	result.LengthCategory = LengthCategory(result.TotalWords)

	w.UpdateStatus(agent.StatusCompleted, 1.0, fmt.Sprintf("Wrote %d chapters, %d words", len(result.Chapters), result.TotalWords))
	return result, nil
}

func (w *Writer) chapterPrompt(in *story.Input, world WorldResult, characters CharacterResult, outline story.Outline, written []story.Chapter) string {
	var parts []string
	parts = append(parts, "STORY CONTEXT:\n"+in.Context())

	if !world.Skipped && world.Bible != "" {
		parts = append(parts, "WORLD:\n"+world.Excerpt(1000))
	}
	if profiles := characters.ContextExcerpt(3, 300); profiles != "" {
		parts = append(parts, "KEY CHARACTERS:\n"+profiles)
	}

	if len(written) > 0 {
		start := len(written) - 2
		if start < 0 {
			start = 0
		}
		var recent []string
		for _, ch := range written[start:] {
			recent = append(recent, fmt.Sprintf("Chapter %d - %s (ending):\n...%s", ch.Number, ch.Title, tail(ch.Content, 200)))
		}
		parts = append(parts, "STORY SO FAR:\n"+strings.Join(recent, "\n\n"))
	}

	parts = append(parts, fmt.Sprintf("CHAPTER %d OUTLINE:\n%s", outline.ChapterNumber, outline.Content))
	if outline.WordTarget > 0 {
		parts = append(parts, fmt.Sprintf("Write chapter %d in full, at least %d words.", outline.ChapterNumber, outline.WordTarget))
	} else {
		parts = append(parts, fmt.Sprintf("Write chapter %d in full.", outline.ChapterNumber))
	}
	return strings.Join(parts, "\n\n")
}

// generateTitle asks for a short title; any failure falls back to
// "Chapter N" rather than failing the chapter.
func (w *Writer) generateTitle(ctx context.Context, number int, content string) string {
	title, err := w.Generate(ctx,
		[]agent.Message{
			agent.System("You title book chapters. Respond with the title only, no quotes, no chapter number."),
			agent.User(fmt.Sprintf("Give a short evocative title for this chapter:\n\n%s", clip(content, 1500))),
		},
		agent.WithTemperature(0.6),
		agent.WithMaxTokens(50))
	if err != nil {
		w.Logger().Warn("title generation failed, using fallback", "chapter", number, "error", err)
		return fmt.Sprintf("Chapter %d", number)
	}
	title = strings.Trim(strings.TrimSpace(title), `"'`)
	if title == "" {
		return fmt.Sprintf("Chapter %d", number)
	}
	return title
}

func tail(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[len(text)-max:]
}

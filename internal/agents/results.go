package agents

import (
	"github.com/AFK4203/Book-generator-V3/internal/story"
	"github.com/AFK4203/Book-generator-V3/internal/validation"
)

// Each phase produces a typed result that later phases consume.
// Results are plain data; agents never hand each other live state.

// CharacterProfile is one character's generated psychological profile.
type CharacterProfile struct {
	CharacterID string `json:"character_id"`
	Name        string `json:"name"`
	Profile     string `json:"profile"`
}

// WorldResult is the worldbuilding phase output: a single world bible
// the later phases quote excerpts from. Completeness is the ratio of
// filled world fields in the input, 0.0 to 1.0.
type WorldResult struct {
	Bible        string  `json:"bible"`
	Skipped      bool    `json:"skipped"`
	Completeness float64 `json:"completeness_score"`
}

// Excerpt returns up to max bytes of the world bible for prompt
// context.
func (w WorldResult) Excerpt(max int) string {
	return clip(w.Bible, max)
}

// CharacterResult is the character development phase output.
type CharacterResult struct {
	Profiles []CharacterProfile `json:"profiles"`
}

// ContextExcerpt renders up to limit profiles, each clipped to perChar
// bytes, for validation and writing prompts.
func (c CharacterResult) ContextExcerpt(limit, perChar int) string {
	out := ""
	for i, p := range c.Profiles {
		if i >= limit {
			break
		}
		if out != "" {
			out += "\n\n"
		}
		out += p.Name + ":\n" + clip(p.Profile, perChar)
	}
	return out
}

// PlotResult is the plot structuring phase output: one outline per
// chapter plus the raw structural overview the outlines were parsed
// from.
type PlotResult struct {
	Outlines []story.Outline `json:"outlines"`
	Overview string          `json:"overview"`
}

// WriteResult is the story generation phase output, including the
// story-level metadata derived from the finished chapters.
type WriteResult struct {
	Chapters              []story.Chapter `json:"chapters"`
	TotalWords            int             `json:"total_words"`
	AverageWordsPerChap   int             `json:"average_words_per_chapter"`
	ChaptersMeetingTarget int             `json:"chapters_meeting_target"`
	TargetAchievementRate float64         `json:"target_achievement_rate"`
	LengthCategory        string          `json:"story_length_category"`
}

// LengthCategory buckets a finished story by total word count.
func LengthCategory(totalWords int) string {
	switch {
	case totalWords < 5000:
		return "short_story"
	case totalWords < 15000:
		return "long_short_story"
	case totalWords < 40000:
		return "novella"
	case totalWords < 80000:
		return "novel"
	default:
		return "long_novel"
	}
}

// CheckResult is the sequential validation phase output. Chapters are
// the post-fix versions.
type CheckResult struct {
	Chapters []story.Chapter    `json:"chapters"`
	Summary  validation.Summary `json:"summary"`
}

// FormatResult is the document formatting phase output.
type FormatResult struct {
	Path           string `json:"path"`
	TotalWords     int    `json:"total_words"`
	EstimatedPages int    `json:"estimated_pages"`
}

func clip(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

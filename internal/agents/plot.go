package agents

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

// PlotAgent turns theme, premise, cast, and enhancement lists into a
// chapter-by-chapter outline for the writer.
type PlotAgent struct {
	agent.Base
}

// NewPlotAgent builds a plot agent for one session.
func NewPlotAgent(client agent.Completer, sink agent.StatusSink) *PlotAgent {
	return &PlotAgent{Base: agent.NewBase("plot_agent", client, sink)}
}

var chapterHeading = regexp.MustCompile(`(?mi)^CHAPTER\s+(\d+)\s*:?`)

// Structure generates the story structure and parses it into exactly
// TotalChapters outlines. Chapters the generation skipped get a
// placeholder outline; extra chapters are dropped.
func (a *PlotAgent) Structure(ctx context.Context, in *story.Input, world WorldResult, characters CharacterResult) (PlotResult, error) {
	a.UpdateStatus(agent.StatusWorking, 0.1, "Structuring plot")

	system := fmt.Sprintf(`You are a story structure specialist. Design a complete plot for a %d-chapter story.

Produce, in order:
1. A short structural overview (act breakdown, where the major turns land).
2. One outline per chapter, each introduced by a heading of the form "CHAPTER N:" on its own line, covering the chapter's events, POV focus, emotional beat, and how it advances the plot.

Every chapter from 1 to %d must have an outline. Weave the provided enhancements and twists into specific chapters rather than listing them separately.`,
		in.TotalChapters, in.TotalChapters)

	raw, err := a.Generate(ctx,
		[]agent.Message{
			agent.System(system),
			agent.User(a.structurePrompt(in, world, characters)),
		},
		agent.WithMaxTokens(4000))
	if err != nil {
		return PlotResult{}, fmt.Errorf("plot structuring: %w", err)
	}

	outlines := a.parseOutlines(raw, in)
	a.UpdateStatus(agent.StatusCompleted, 1.0, fmt.Sprintf("Outlined %d chapters", len(outlines)))
	return PlotResult{Outlines: outlines, Overview: overviewOf(raw)}, nil
}

func (a *PlotAgent) structurePrompt(in *story.Input, world WorldResult, characters CharacterResult) string {
	var parts []string
	parts = append(parts, "STORY CONTEXT:\n"+in.Context())

	if !world.Skipped && world.Bible != "" {
		parts = append(parts, "WORLD:\n"+world.Excerpt(800))
	}
	if profiles := characters.ContextExcerpt(5, 200); profiles != "" {
		parts = append(parts, "CHARACTER PROFILES:\n"+profiles)
	}

	if len(in.Enhancements) > 0 {
		var lines []string
		for kind, items := range in.Enhancements {
			for _, item := range items {
				lines = append(lines, fmt.Sprintf("- [%s] %s", strings.ReplaceAll(kind, "_", " "), item.Content))
			}
		}
		parts = append(parts, "PLOT ENHANCEMENTS TO WEAVE IN:\n"+strings.Join(lines, "\n"))
	}
	if len(in.PlotTwists) > 0 {
		var lines []string
		for _, tw := range in.PlotTwists {
			lines = append(lines, fmt.Sprintf("- [%s twist] %s", tw.Role, tw.Twist))
		}
		parts = append(parts, "PLOT TWISTS TO PLACE:\n"+strings.Join(lines, "\n"))
	}

	parts = append(parts, fmt.Sprintf("Design the structure and outline all %d chapters.", in.TotalChapters))
	return strings.Join(parts, "\n\n")
}

// parseOutlines splits the generated structure on CHAPTER N headings.
// Text before the first heading is the overview, not an outline.
func (a *PlotAgent) parseOutlines(raw string, in *story.Input) []story.Outline {
	found := make(map[int]string)

	matches := chapterHeading.FindAllStringSubmatchIndex(raw, -1)
	for i, m := range matches {
		num, err := strconv.Atoi(raw[m[2]:m[3]])
		if err != nil || num < 1 || num > in.TotalChapters {
			continue
		}
		end := len(raw)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(raw[m[1]:end])
		if _, dup := found[num]; !dup && body != "" {
			found[num] = body
		}
	}

	outlines := make([]story.Outline, 0, in.TotalChapters)
	for n := 1; n <= in.TotalChapters; n++ {
		content, ok := found[n]
		if !ok {
			a.Logger().Warn("structure missing chapter outline, using placeholder", "chapter", n)
			content = fmt.Sprintf("Continue the story naturally from chapter %d, advancing the central conflict toward the ending.", n-1)
		}
		outlines = append(outlines, story.Outline{
			ChapterNumber: n,
			Content:       content,
			WordTarget:    in.MinWordsPerChapter,
		})
	}
	return outlines
}

func overviewOf(raw string) string {
	if loc := chapterHeading.FindStringIndex(raw); loc != nil {
		return strings.TrimSpace(raw[:loc[0]])
	}
	return strings.TrimSpace(raw)
}

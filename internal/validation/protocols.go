package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/AFK4203/Book-generator-V3/internal/agent"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

// Severity tiers a protocol's findings.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// Protocol names.
const (
	ProtocolContinuity   = "continuity_consistency"
	ProtocolCharacterArc = "character_arc_motivation"
	ProtocolPacing       = "pacing_structure"
	ProtocolWorldbuilding = "worldbuilding_lore"
	ProtocolProse        = "prose_technical"
)

// ProtocolNames lists the five check passes in execution order.
var ProtocolNames = []string{
	ProtocolContinuity,
	ProtocolCharacterArc,
	ProtocolPacing,
	ProtocolWorldbuilding,
	ProtocolProse,
}

// Input is everything one protocol sees: the chapter under review, the
// story input, the chapters already processed in this run, and prompt
// excerpts from the worldbuilding and character phases.
type Input struct {
	Chapter          story.Chapter
	Story            *story.Input
	Previous         []story.Chapter
	WorldContext     string
	CharacterContext string
}

// Report is one protocol's findings for one chapter.
type Report struct {
	Protocol     string   `json:"protocol"`
	Issues       int      `json:"issues"`
	Details      string   `json:"details"`
	Severity     Severity `json:"severity"`
	WordCountMet bool     `json:"word_count_met,omitempty"`
}

// Protocol is one independent check pass over a chapter.
type Protocol interface {
	Name() string
	Check(ctx context.Context, client agent.Completer, in Input) (Report, error)
}

// DefaultProtocols builds the standard five-pass set sharing one
// counter.
func DefaultProtocols(counter IssueCounter) []Protocol {
	return []Protocol{
		continuityProtocol{counter},
		characterArcProtocol{counter},
		pacingProtocol{counter},
		worldbuildingProtocol{counter},
		proseProtocol{counter},
	}
}

// previousSummary excerpts up to the last three processed chapters for
// continuity context.
func previousSummary(previous []story.Chapter) string {
	if len(previous) == 0 {
		return "No previous chapters"
	}
	start := len(previous) - 3
	if start < 0 {
		start = 0
	}
	var summaries []string
	for _, ch := range previous[start:] {
		summaries = append(summaries, fmt.Sprintf("Chapter %d - %s:\n%s", ch.Number, ch.Title, excerpt(ch.Content, 300)))
	}
	return strings.Join(summaries, "\n\n")
}

func excerpt(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

type continuityProtocol struct {
	counter IssueCounter
}

func (continuityProtocol) Name() string { return ProtocolContinuity }

func (p continuityProtocol) Check(ctx context.Context, client agent.Completer, in Input) (Report, error) {
	systemPrompt := `You are a continuity checker for story validation. Your task is to identify ANY continuity or consistency issues in this chapter.

Check for:
1. TIMELINE INTEGRITY - does time passage make sense, are events in logical sequence, any contradictions with previous chapters?
2. CHARACTER KNOWLEDGE & MEMORY - do characters only know what they should know, any forgotten important information, secrets maintained consistently?
3. OBJECT & LOCATION PERMANENCE - are objects where they were left, physical descriptions consistent, character injuries/changes tracked?

Report ALL issues found, even minor ones. Be thorough and specific.`

	userPrompt := fmt.Sprintf(`Validate Chapter %d for continuity and consistency:

STORY CONTEXT:
%s

PREVIOUS CHAPTERS SUMMARY:
%s

CURRENT CHAPTER CONTENT:
%s

Identify ALL continuity and consistency issues. For each issue, provide the issue type, a specific problem description, where it occurs, its severity, and a suggested fix.`,
		in.Chapter.Number, in.Story.Context(), previousSummary(in.Previous), in.Chapter.Content)

	resp, err := client.Complete(ctx,
		[]agent.Message{agent.System(systemPrompt), agent.User(userPrompt)},
		agent.WithTemperature(0.2))
	if err != nil {
		return Report{}, err
	}

	issues := p.counter.Count(resp)
	sev := SeverityLow
	switch {
	case issues > 3:
		sev = SeverityHigh
	case issues > 0:
		sev = SeverityModerate
	}
	return Report{Protocol: p.Name(), Issues: issues, Details: resp, Severity: sev}, nil
}

type characterArcProtocol struct {
	counter IssueCounter
}

func (characterArcProtocol) Name() string { return ProtocolCharacterArc }

func (p characterArcProtocol) Check(ctx context.Context, client agent.Completer, in Input) (Report, error) {
	systemPrompt := `You are validating character development and motivation consistency. Check for:

1. CORE MOTIVATION - do character actions align with established motivations, any unexplained changes in behavior?
2. CHARACTER DEVELOPMENT - does emotional state follow logically from previous events, is development gradual and earned?
3. CHARACTER VOICE - dialogue consistent with established personality, speech patterns maintained?

Identify any character believability issues.`

	characters := in.CharacterContext
	if characters == "" {
		characters = "No character profiles available"
	}

	userPrompt := fmt.Sprintf(`Validate Chapter %d for character consistency:

CHARACTER PROFILES:
%s

PREVIOUS CHAPTERS:
%s

CURRENT CHAPTER:
%s

Identify character consistency issues including motivation conflicts, unearned character changes, voice inconsistencies, and behavioral contradictions. Provide specific examples and suggested fixes.`,
		in.Chapter.Number, characters, previousSummary(in.Previous), in.Chapter.Content)

	resp, err := client.Complete(ctx,
		[]agent.Message{agent.System(systemPrompt), agent.User(userPrompt)},
		agent.WithTemperature(0.2))
	if err != nil {
		return Report{}, err
	}

	issues := p.counter.Count(resp)
	sev := SeverityLow
	switch {
	case issues > 2:
		sev = SeverityHigh
	case issues > 0:
		sev = SeverityModerate
	}
	return Report{Protocol: p.Name(), Issues: issues, Details: resp, Severity: sev}, nil
}

type pacingProtocol struct {
	counter IssueCounter
}

func (pacingProtocol) Name() string { return ProtocolPacing }

func (p pacingProtocol) Check(ctx context.Context, client agent.Completer, in Input) (Report, error) {
	systemPrompt := `You are validating story pacing and structure. Check for:

1. PLOT ADVANCEMENT - does the chapter move the story forward meaningfully, is it essential to the overall story?
2. TENSION AND PACING - pacing matches content, effective chapter ending, good balance of scene and sequel?
3. ENGAGEMENT FACTORS - maintains reader interest, proper story beats and tension management?

Identify pacing and engagement issues.`

	userPrompt := fmt.Sprintf(`Validate Chapter %d of %d for pacing and structure:

CHAPTER CONTENT:
%s

CHAPTER POSITION: %d/%d

Analyze plot advancement effectiveness, pacing appropriateness, tension management, chapter ending strength, and reader engagement. Identify specific pacing or structural issues.`,
		in.Chapter.Number, in.Story.TotalChapters, in.Chapter.Content, in.Chapter.Number, in.Story.TotalChapters)

	resp, err := client.Complete(ctx,
		[]agent.Message{agent.System(systemPrompt), agent.User(userPrompt)},
		agent.WithTemperature(0.3))
	if err != nil {
		return Report{}, err
	}

	issues := p.counter.Count(resp)
	sev := SeverityLow
	if issues > 1 {
		sev = SeverityModerate
	}
	return Report{Protocol: p.Name(), Issues: issues, Details: resp, Severity: sev}, nil
}

type worldbuildingProtocol struct {
	counter IssueCounter
}

func (worldbuildingProtocol) Name() string { return ProtocolWorldbuilding }

func (p worldbuildingProtocol) Check(ctx context.Context, client agent.Completer, in Input) (Report, error) {
	systemPrompt := `You are validating worldbuilding consistency. Check for:

1. CONSISTENCY OF RULES - world rules followed consistently, magic/tech systems working as established?
2. ORGANIC EXPOSITION - world information revealed naturally, no exposition dumps?
3. WORLD DETAILS - physical descriptions consistent, cultural elements properly maintained?

Identify worldbuilding inconsistencies.`

	world := in.WorldContext
	if world == "" {
		world = "No world context available"
	}

	userPrompt := fmt.Sprintf(`Validate Chapter %d for worldbuilding consistency:

ESTABLISHED WORLD:
%s

CHAPTER CONTENT:
%s

Check for world rule violations, inconsistent descriptions, exposition quality, cultural accuracy, and environmental consistency. Report any worldbuilding issues found.`,
		in.Chapter.Number, world, in.Chapter.Content)

	resp, err := client.Complete(ctx,
		[]agent.Message{agent.System(systemPrompt), agent.User(userPrompt)},
		agent.WithTemperature(0.2))
	if err != nil {
		return Report{}, err
	}

	issues := p.counter.Count(resp)
	sev := SeverityLow
	if issues > 2 {
		sev = SeverityHigh
	}
	return Report{Protocol: p.Name(), Issues: issues, Details: resp, Severity: sev}, nil
}

type proseProtocol struct {
	counter IssueCounter
}

func (proseProtocol) Name() string { return ProtocolProse }

// Check runs the prose pass. Beyond the generated report, an unmet
// minimum word count adds one issue and clears WordCountMet.
func (p proseProtocol) Check(ctx context.Context, client agent.Completer, in Input) (Report, error) {
	systemPrompt := `You are validating prose quality and technical writing. Check for:

1. REPETITIVE LANGUAGE - overused words, phrases, or sentence structures, repetitive character actions?
2. CLARITY AND FLOW - confusing or awkward sentences, smooth reading experience, clear scene transitions?
3. SHOW DON'T TELL - showing through action, dialogue and sensory details, avoiding excessive exposition?

Identify prose and technical issues.`

	target := in.Story.MinWordsPerChapter
	userPrompt := fmt.Sprintf(`Validate prose quality for this chapter:

CHAPTER CONTENT (%d words, target: %d):
%s

Analyze repetitive language patterns, sentence clarity and flow, show vs. tell balance, dialogue quality, and overall readability. Identify specific prose issues and suggest improvements.`,
		in.Chapter.WordCount, target, in.Chapter.Content)

	resp, err := client.Complete(ctx,
		[]agent.Message{agent.System(systemPrompt), agent.User(userPrompt)},
		agent.WithTemperature(0.3))
	if err != nil {
		return Report{}, err
	}

	issues := p.counter.Count(resp)
	wordCountMet := in.Chapter.WordCount >= target
	if !wordCountMet {
		issues++
	}

	sev := SeverityLow
	if issues > 2 {
		sev = SeverityModerate
	}
	return Report{Protocol: p.Name(), Issues: issues, Details: resp, Severity: sev, WordCountMet: wordCountMet}, nil
}

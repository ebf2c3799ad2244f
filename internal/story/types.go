package story

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Character holds the basics every character needs plus the open-ended
// psychological fields the intake form collects. Only the first three
// are required; everything else is free text that agents fold into
// prompts when present.
type Character struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name" validate:"required"`
	Archetype string `json:"archetype" yaml:"archetype" validate:"required"`
	Backstory string `json:"backstory_one_sentence" yaml:"backstory_one_sentence" validate:"required"`

	InternalConflict string `json:"internal_conflict,omitempty" yaml:"internal_conflict,omitempty"`
	ExternalConflict string `json:"external_conflict,omitempty" yaml:"external_conflict,omitempty"`
	RelationshipsMap string `json:"relationships_map,omitempty" yaml:"relationships_map,omitempty"`
	CoreBelief       string `json:"core_belief,omitempty" yaml:"core_belief,omitempty"`
	EmotionalTriggers string `json:"emotional_triggers,omitempty" yaml:"emotional_triggers,omitempty"`
	CopingMechanism  string `json:"coping_mechanism,omitempty" yaml:"coping_mechanism,omitempty"`
	BiggestRegret    string `json:"biggest_regret,omitempty" yaml:"biggest_regret,omitempty"`
	CoreWound        string `json:"core_wound,omitempty" yaml:"core_wound,omitempty"`
	Fear             string `json:"fear,omitempty" yaml:"fear,omitempty"`
	ArcType          string `json:"arc_type,omitempty" yaml:"arc_type,omitempty"`
	ArcInOneWord     string `json:"arc_in_one_word,omitempty" yaml:"arc_in_one_word,omitempty"`
	VoicePattern     string `json:"voice_pattern,omitempty" yaml:"voice_pattern,omitempty"`
	PlotRole         string `json:"plot_role,omitempty" yaml:"plot_role,omitempty"`
	Secrets          string `json:"secrets,omitempty" yaml:"secrets,omitempty"`

	// Attributes catches any additional profile fields the form sends
	// beyond the named ones above.
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// PlotElement is an opaque enhancement item tagged by category
// (foreshadowing seed, timebomb, red herring, ...).
type PlotElement struct {
	ID       string `json:"id" yaml:"id"`
	Content  string `json:"content" yaml:"content"`
	Category string `json:"category" yaml:"category"`
}

// PlotTwist is a twist tagged by the story dimension it subverts.
type PlotTwist struct {
	ID    string `json:"id" yaml:"id"`
	Twist string `json:"twist" yaml:"twist"`
	Role  string `json:"role" yaml:"role"` // world, character, goal, loyalties, assumptions
}

// Input is the full bag of narrative parameters a generation session
// starts from. It is immutable once a session is created; agents only
// ever read it.
type Input struct {
	CentralTheme   string `json:"central_theme" yaml:"central_theme" validate:"required"`
	MainPremise    string `json:"main_premise" yaml:"main_premise" validate:"required"`
	NegativePrompt string `json:"negative_prompt,omitempty" yaml:"negative_prompt,omitempty"`

	WorldSummary       string `json:"world_summary,omitempty" yaml:"world_summary,omitempty"`
	Genres             string `json:"genres,omitempty" yaml:"genres,omitempty"`
	TimePeriodSetting  string `json:"time_period_setting,omitempty" yaml:"time_period_setting,omitempty"`
	CulturalInfluences string `json:"cultural_influences,omitempty" yaml:"cultural_influences,omitempty"`

	// WorldDetails carries the long tail of optional worldbuilding
	// fields (geography, governance, view_of_death, street_sounds, ...)
	// keyed by the form field name. The worldbuilder groups these into
	// its analysis sections.
	WorldDetails map[string]string `json:"world_details,omitempty" yaml:"world_details,omitempty"`

	Characters []Character `json:"characters" yaml:"characters" validate:"dive"`

	// Enhancements groups the plot utility lists by kind
	// (foreshadowing_seeds, timebombs, chekovs_guns, ...).
	Enhancements map[string][]PlotElement `json:"enhancements,omitempty" yaml:"enhancements,omitempty"`
	PlotTwists   []PlotTwist              `json:"plot_twists_by_role,omitempty" yaml:"plot_twists_by_role,omitempty"`

	TotalChapters      int `json:"total_chapters" yaml:"total_chapters" validate:"min=1"`
	MinWordsPerChapter int `json:"min_words_per_chapter" yaml:"min_words_per_chapter" validate:"min=0"`
}

var validate = validator.New()

// Validate checks the structural invariants of a story input. It also
// assigns ids to characters and enhancement items that arrived without
// one, so identity is stable for the rest of the pipeline.
func (in *Input) Validate() error {
	if in.TotalChapters == 0 {
		in.TotalChapters = 10
	}
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("story input validation: %w", err)
	}
	for i := range in.Characters {
		if in.Characters[i].ID == "" {
			in.Characters[i].ID = uuid.New().String()
		}
	}
	for kind := range in.Enhancements {
		items := in.Enhancements[kind]
		for i := range items {
			if items[i].ID == "" {
				items[i].ID = uuid.New().String()
			}
		}
	}
	for i := range in.PlotTwists {
		if in.PlotTwists[i].ID == "" {
			in.PlotTwists[i].ID = uuid.New().String()
		}
	}
	return nil
}

// HasWorldMaterial reports whether the input carries any world
// parameters worth expanding. The planner and the worldbuilder share
// this predicate, so a phase is never planned that would only skip.
func (in *Input) HasWorldMaterial() bool {
	return in.WorldSummary != "" || in.TimePeriodSetting != "" ||
		in.CulturalInfluences != "" || len(in.WorldDetails) > 0
}

// Context renders the input into the prompt preamble shared by every
// agent: theme, premise, world summary, a one-line roster of
// characters, and the generation targets.
func (in *Input) Context() string {
	var parts []string

	if in.CentralTheme != "" {
		parts = append(parts, "CENTRAL THEME: "+in.CentralTheme)
	}
	if in.MainPremise != "" {
		parts = append(parts, "MAIN PREMISE: "+in.MainPremise)
	}
	if in.NegativePrompt != "" {
		parts = append(parts, "THINGS TO AVOID: "+in.NegativePrompt)
	}
	if in.Genres != "" {
		parts = append(parts, "GENRES: "+in.Genres)
	}
	if in.WorldSummary != "" {
		parts = append(parts, "WORLD: "+in.WorldSummary)
	}

	if len(in.Characters) > 0 {
		lines := make([]string, 0, len(in.Characters))
		for _, c := range in.Characters {
			line := "- " + c.Name
			if c.Archetype != "" {
				line += " (" + c.Archetype + ")"
			}
			if c.Backstory != "" {
				line += ": " + c.Backstory
			}
			lines = append(lines, line)
		}
		parts = append(parts, "CHARACTERS:\n"+strings.Join(lines, "\n"))
	}

	parts = append(parts, fmt.Sprintf("TARGET: %d chapters, %d words per chapter minimum",
		in.TotalChapters, in.MinWordsPerChapter))

	return strings.Join(parts, "\n\n")
}

// ValidationStatus tracks what the validation loop did to a chapter.
type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "pending"
	ValidationValidated ValidationStatus = "validated"
	ValidationFixed     ValidationStatus = "fixed"
	ValidationFixFailed ValidationStatus = "fix_failed"
)

// Chapter is one generated chapter. The writer creates it, the
// validation loop is the only mutator afterwards, and it is frozen once
// the pipeline reaches document assembly.
type Chapter struct {
	ID               string           `json:"id"`
	Number           int              `json:"chapter_number"`
	Title            string           `json:"title"`
	Content          string           `json:"content"`
	WordCount        int              `json:"word_count"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	RevisionCount    int              `json:"revision_count"`
	MeetsWordTarget  bool             `json:"meets_word_target"`
	OutlineUsed      string           `json:"outline_used,omitempty"`
}

// NewChapter builds a chapter from generated content, counting words
// by whitespace-delimited token.
func NewChapter(number int, title, content string) Chapter {
	return Chapter{
		ID:               uuid.New().String(),
		Number:           number,
		Title:            title,
		Content:          content,
		WordCount:        CountWords(content),
		ValidationStatus: ValidationPending,
	}
}

// CountWords counts whitespace-delimited tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Outline is one chapter's planned content as produced by the plot
// agent (or the writer's own fallback).
type Outline struct {
	ChapterNumber int    `json:"chapter_number"`
	Content       string `json:"outline_content"`
	WordTarget    int    `json:"word_target"`
}

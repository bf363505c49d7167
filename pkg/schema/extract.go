package schema

// ExtractedCharacter is one batch's view of one character. It lives only
// long enough to be folded into the merger.
type ExtractedCharacter struct {
	Name        string        `json:"name"`
	Dialogs     []string      `json:"dialogs"`
	Traits      []string      `json:"traits"`
	Personality []string      `json:"personality,omitempty"`
	Voice       *VoiceProfile `json:"voice,omitempty"`
}

// Character is the final merged, immutable view handed to voice assignment
// and the reader UI.
type Character struct {
	Name        string        `json:"name"`
	Variants    []string      `json:"variants,omitempty"`
	Dialogs     []string      `json:"dialogs"`
	Traits      []string      `json:"traits"`
	Personality []string      `json:"personality,omitempty"`
	Voice       *VoiceProfile `json:"voice,omitempty"`
}

// Dialog is one attributed line from the dialog-extraction pass.
type Dialog struct {
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	Emotion   string  `json:"emotion,omitempty"`
	Intensity float64 `json:"intensity,omitempty"`
	Segment   int     `json:"segment,omitempty"`
}

// ThemeAnalysis is the whole-book theme/genre/mood result.
type ThemeAnalysis struct {
	Mood                  string  `json:"mood" jsonschema_description:"Overall mood of the book (e.g., dark, whimsical, tense)"`
	Genre                 string  `json:"genre" jsonschema_description:"Primary genre (e.g., fantasy, mystery, romance)"`
	Era                   string  `json:"era" jsonschema_description:"Time period or setting era (e.g., victorian, modern, medieval)"`
	EmotionalTone         string  `json:"emotional_tone" jsonschema_description:"Dominant emotional tone of the narrative"`
	SuggestedAmbientSound *string `json:"suggested_ambient_sound" jsonschema_description:"Background soundscape suggestion, or null if none fits"`
}

// PlotPoint is one element of the extracted story structure.
type PlotPoint struct {
	Type        string  `json:"type" jsonschema_description:"Structural role: setup, rising_action, climax, falling_action, or resolution"`
	Chapter     int     `json:"chapter" jsonschema_description:"1-based chapter number where this point occurs"`
	Description string  `json:"description" jsonschema_description:"Brief description of the plot point"`
	Confidence  float64 `json:"confidence" jsonschema_description:"Model confidence between 0 and 1"`
}

// KeyMoment is one significant scene for a named character.
type KeyMoment struct {
	Chapter     int    `json:"chapter"`
	Description string `json:"description"`
	Quote       string `json:"quote,omitempty"`
}

// BookAnalysis is the persisted result of a full pipeline run over a book.
type BookAnalysis struct {
	ID         string                   `json:"id"`
	Title      string                   `json:"title,omitempty"`
	Workflow   string                   `json:"workflow"`
	Characters []Character              `json:"characters"`
	Themes     *ThemeAnalysis           `json:"themes,omitempty"`
	PlotPoints []PlotPoint              `json:"plot_points,omitempty"`
	Segments   int                      `json:"segments"`
	Failed     map[string]FailedSegment `json:"failed,omitempty"`
	CreatedAt  string                   `json:"created_at"`
}

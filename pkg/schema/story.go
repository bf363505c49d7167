package schema

// StoryEntry is one generated story kept in the prompt history.
type StoryEntry struct {
	ID        string `json:"id"`
	Prompt    string `json:"prompt"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

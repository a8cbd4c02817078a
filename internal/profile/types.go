package profile

// Profile is the persisted style configuration steering reply generation.
// PreferredPhrases keeps insertion order: newly learned phrases are appended,
// never reordered.
type Profile struct {
	StyleRules       string   `json:"style_rules"`
	PreferredPhrases []string `json:"preferred_phrases"`
	BannedWords      []string `json:"banned_words"`
}

// Default returns the built-in profile materialized on first access.
func Default() Profile {
	return Profile{
		StyleRules: "Short, blunt, no waffle. Acknowledge once, boundary second, closure last. Max 200 chars.",
		PreferredPhrases: []string{
			"Sweet, let's keep it chill.",
			"I'm not chasing that argument.",
			"I'm here for respect.",
		},
		BannedWords: []string{},
	}
}

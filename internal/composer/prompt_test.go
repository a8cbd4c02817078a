package composer

import (
	"strings"
	"testing"

	"replyd/internal/profile"
	"replyd/internal/storage"
)

func TestCompose_Deterministic(t *testing.T) {
	p := profile.Default()
	a := Compose(p, "you free tonight?", "Sam", nil)
	b := Compose(p, "you free tonight?", "Sam", nil)
	if a != b {
		t.Error("Compose is not deterministic for identical inputs")
	}
}

func TestCompose_RendersProfileSections(t *testing.T) {
	p := profile.Profile{
		StyleRules:       "Short and dry.",
		PreferredPhrases: []string{"Sounds good", "On my way"},
		BannedWords:      []string{"mate", "cheers"},
	}

	prompt := Compose(p, "running late", "Sam", nil)

	for _, want := range []string{
		"Style: Short and dry.",
		"Banned words: mate, cheers",
		"Preferred phrases: Sounds good; On my way",
		"Incoming from Sam:",
		`"""running late"""`,
		"ONE reply only, max 200 characters",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\nprompt:\n%s", want, prompt)
		}
	}
}

func TestCompose_NoneMarkers(t *testing.T) {
	p := profile.Profile{StyleRules: "Whatever."}

	prompt := Compose(p, "hey", "Sam", nil)

	if !strings.Contains(prompt, "Banned words: none") {
		t.Error("empty banned words should render as none")
	}
	if !strings.Contains(prompt, "Preferred phrases: none") {
		t.Error("empty preferred phrases should render as none")
	}
}

func TestCompose_IncomingVerbatim(t *testing.T) {
	incoming := "  spaced   and \"quoted\" text  "
	prompt := Compose(profile.Default(), incoming, "Sam", nil)

	if !strings.Contains(prompt, `"""`+incoming+`"""`) {
		t.Error("incoming text must appear verbatim, untrimmed")
	}
}

func TestCompose_RecentTurnsOldestFirst(t *testing.T) {
	recent := []storage.Turn{
		{Incoming: "newest", Draft: "d2"},
		{Incoming: "oldest", Draft: "d1", Final: "f1"},
	}

	prompt := Compose(profile.Default(), "hey", "Sam", recent)

	iOld := strings.Index(prompt, "incoming: oldest")
	iNew := strings.Index(prompt, "incoming: newest")
	if iOld < 0 || iNew < 0 {
		t.Fatalf("recent turns missing from prompt:\n%s", prompt)
	}
	if iOld > iNew {
		t.Error("recent turns should render oldest first")
	}
	if !strings.Contains(prompt, "final: f1") {
		t.Error("final text of a turn should render when present")
	}
}

func TestCompose_NoContextSectionWithoutTurns(t *testing.T) {
	prompt := Compose(profile.Default(), "hey", "Sam", nil)
	if strings.Contains(prompt, "Recent context") {
		t.Error("context section should be omitted when there are no turns")
	}
}

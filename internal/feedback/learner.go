package feedback

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"replyd/internal/profile"
)

// Fragments shorter than minFragmentLen are throwaway words; longer than
// maxFragmentLen they stop being reusable phrases.
const (
	minFragmentLen = 6
	maxFragmentLen = 60
)

// Learner appends feedback to the journal and folds accepted outcomes back
// into the style profile.
type Learner struct {
	log      *Log
	profiles *profile.Store
}

// NewLearner creates a Learner writing to the given log and profile store.
func NewLearner(log *Log, profiles *profile.Store) *Learner {
	return &Learner{log: log, profiles: profiles}
}

// RecordAndLearn appends rec to the feedback log and, when the draft was
// accepted and the final text is non-empty, merges reusable fragments of the
// final text into the profile's preferred phrases. The returned error covers
// only the log append; learning is best-effort and its failures are logged,
// never surfaced. Missing ID and timestamp fields are filled in before the
// append.
func (l *Learner) RecordAndLearn(rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.TS == "" {
		rec.TS = time.Now().UTC().Format(time.RFC3339)
	}

	if err := l.log.Append(rec); err != nil {
		return fmt.Errorf("appending feedback: %w", err)
	}

	// Acceptance is the sole learning gate; Edited is recorded but not consulted.
	final := strings.TrimSpace(rec.Final)
	if !rec.Accepted || final == "" {
		return nil
	}

	phrases := ExtractPhrases(final)
	if len(phrases) == 0 {
		return nil
	}

	err := l.profiles.Update(func(p *profile.Profile) {
		p.PreferredPhrases = mergePhrases(p.PreferredPhrases, phrases)
	})
	if err != nil {
		slog.Warn("learning from feedback failed", "record_id", rec.ID, "error", err)
	}
	return nil
}

// ExtractPhrases splits final text on sentence boundaries and keeps trimmed
// fragments between minFragmentLen and maxFragmentLen characters inclusive.
// Lengths count runes, not bytes, so smart punctuation and emoji measure the
// way the user sees them.
func ExtractPhrases(final string) []string {
	var out []string
	for _, chunk := range strings.Split(final, ".") {
		chunk = strings.TrimSpace(chunk)
		if n := utf8.RuneCountInString(chunk); n >= minFragmentLen && n <= maxFragmentLen {
			out = append(out, chunk)
		}
	}
	return out
}

// mergePhrases appends candidates not already present (case-sensitive exact
// match), preserving existing order.
func mergePhrases(existing, candidates []string) []string {
	for _, c := range candidates {
		if !containsString(existing, c) {
			existing = append(existing, c)
		}
	}
	return existing
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

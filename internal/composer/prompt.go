package composer

import (
	"fmt"
	"strings"

	"replyd/internal/profile"
	"replyd/internal/storage"
)

// noneMarker is rendered in place of an empty banned-word or preferred-phrase
// list so the model never sees a dangling label.
const noneMarker = "none"

// maxReplyChars is the reply length ceiling stated in the prompt. It is a
// prompt-level constraint only: generated output is never truncated or
// rejected for exceeding it.
const maxReplyChars = 200

// Compose renders the generation prompt for one incoming message. It is a
// pure function of its inputs: the same profile, message, contact, and recent
// turns always yield the same prompt. The incoming text is included verbatim.
func Compose(p profile.Profile, incoming, contact string, recent []storage.Turn) string {
	banned := strings.Join(p.BannedWords, ", ")
	if banned == "" {
		banned = noneMarker
	}
	preferred := strings.Join(p.PreferredPhrases, "; ")
	if preferred == "" {
		preferred = noneMarker
	}

	var sb strings.Builder
	sb.WriteString("You draft text message replies on the user's behalf.\n")
	fmt.Fprintf(&sb, "Style: %s\n", p.StyleRules)
	fmt.Fprintf(&sb, "Banned words: %s\n", banned)
	fmt.Fprintf(&sb, "Preferred phrases: %s\n", preferred)

	if ctx := renderRecent(recent); ctx != "" {
		sb.WriteString("\nRecent context (use lightly, optional):\n")
		sb.WriteString(ctx)
	}

	fmt.Fprintf(&sb, "\nIncoming from %s:\n\"\"\"%s\"\"\"\n", contact, incoming)
	fmt.Fprintf(&sb, "\nWrite ONE reply only, max %d characters. If a simple 'ok' works, use it.", maxReplyChars)

	return sb.String()
}

// renderRecent formats prior turns oldest first so the model reads them in
// conversation order.
func renderRecent(recent []storage.Turn) string {
	if len(recent) == 0 {
		return ""
	}

	var sb strings.Builder
	for i := len(recent) - 1; i >= 0; i-- {
		t := recent[i]
		if t.Incoming != "" {
			fmt.Fprintf(&sb, "- incoming: %s\n", t.Incoming)
		}
		if t.Draft != "" {
			fmt.Fprintf(&sb, "  draft: %s\n", t.Draft)
		}
		if t.Final != "" {
			fmt.Fprintf(&sb, "  final: %s\n", t.Final)
		}
	}
	return sb.String()
}

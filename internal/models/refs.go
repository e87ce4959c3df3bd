package models

import (
	"regexp"
	"strings"
)

// noteRefPattern matches 24-char hex account ids embedded in moderation notes.
var noteRefPattern = regexp.MustCompile(`[0-9a-f]{24}`)

// EmailName returns the lowercased local part of an email address, used as
// the key of the email secondary index. Returns "" for unusable values.
func EmailName(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return ""
	}
	return email[:at]
}

// NoteRefs extracts the account ids referenced by a free-text note,
// deduplicated, in order of first appearance.
func NoteRefs(note string) []string {
	if note == "" {
		return nil
	}
	matches := noteRefPattern.FindAllString(strings.ToLower(note), -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	refs := make([]string, 0, len(matches))
	for _, id := range matches {
		if !seen[id] {
			seen[id] = true
			refs = append(refs, id)
		}
	}
	return refs
}

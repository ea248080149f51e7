package capsule

import (
	"regexp"
	"strings"
	"time"
)

// DefaultTitle replaces a blank title on save.
const DefaultTitle = "Untitled"

// EmptyCapsuleMessage is shown when a save would leave nothing to study.
const EmptyCapsuleMessage = "Add at least one note, flashcard or quiz question."

// Clean returns a copy of c ready to persist: blank notes, flashcards with
// both sides blank, and quiz items with a blank question or four blank
// choices are dropped; the title defaults to DefaultTitle, the level is
// coerced to a known value and updatedAt is set to now.
func Clean(c *Capsule, now time.Time) *Capsule {
	out := c.Clone()
	out.Schema = SchemaVersion
	out.Meta.Title = strings.TrimSpace(out.Meta.Title)
	if out.Meta.Title == "" {
		out.Meta.Title = DefaultTitle
	}
	out.Meta.Subject = strings.TrimSpace(out.Meta.Subject)
	out.Meta.Level = ParseLevel(string(out.Meta.Level))
	out.Meta.UpdatedAt = now.UTC()

	out.Notes = out.Notes[:0]
	for _, n := range c.Notes {
		if !isBlank(n) {
			out.Notes = append(out.Notes, n)
		}
	}

	out.Flashcards = out.Flashcards[:0]
	for _, f := range c.Flashcards {
		if !isBlank(f.Front) || !isBlank(f.Back) {
			out.Flashcards = append(out.Flashcards, f)
		}
	}

	out.Quiz = out.Quiz[:0]
	for _, q := range c.Quiz {
		if !isBlank(q.Question) && q.HasChoice() {
			out.Quiz = append(out.Quiz, q)
		}
	}

	return out
}

// HasChoice reports whether at least one choice is non-blank.
func (q QuizItem) HasChoice() bool {
	for _, c := range q.Choices {
		if !isBlank(c) {
			return true
		}
	}
	return false
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins its alphanumeric runs with dashes.
// It returns "capsule" when nothing usable is left.
func Slugify(s string) string {
	s = slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "capsule"
	}
	return s
}

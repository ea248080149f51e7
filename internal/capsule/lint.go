package capsule

import "fmt"

// Issue points at one field of a capsule.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// LintResult contains the results of linting a capsule.
type LintResult struct {
	// Valid is false when Problems is non-empty
	Valid bool `json:"valid"`

	// Problems block saving and importing
	Problems []Issue `json:"problems,omitempty"`

	// Warnings describe content that is kept but probably unintended
	Warnings []Issue `json:"warnings,omitempty"`
}

// Lint checks quiz answer indices and flags half-filled content.
func Lint(c *Capsule) *LintResult {
	result := &LintResult{Valid: true}

	for i, q := range c.Quiz {
		field := fmt.Sprintf("quiz[%d]", i)
		if q.Correct < 0 || q.Correct >= len(q.Choices) {
			result.Problems = append(result.Problems, Issue{
				Field:   field + ".correct",
				Message: fmt.Sprintf("correct must be between 0 and %d, got %d", len(q.Choices)-1, q.Correct),
			})
			continue
		}
		if isBlank(q.Question) || !q.HasChoice() {
			continue
		}
		if isBlank(q.Choices[q.Correct]) {
			result.Problems = append(result.Problems, Issue{
				Field:   field + ".choices",
				Message: "the correct choice is blank",
			})
		}
	}

	for i, f := range c.Flashcards {
		front, back := isBlank(f.Front), isBlank(f.Back)
		if front != back {
			side := "back"
			if front {
				side = "front"
			}
			result.Warnings = append(result.Warnings, Issue{
				Field:   fmt.Sprintf("flashcards[%d].%s", i, side),
				Message: "flashcard has only one side",
			})
		}
	}

	result.Valid = len(result.Problems) == 0
	return result
}

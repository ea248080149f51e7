package capsule

import (
	"encoding/json"
	"fmt"
	"time"
)

// Import rejection messages.
const (
	MsgInvalidSchema = "Invalid schema"
	MsgMissingTitle  = "Missing title"
	MsgCapsuleEmpty  = "Capsule empty"
)

// ImportError is a document that parsed but cannot be imported.
type ImportError struct {
	Reason string
}

func (e *ImportError) Error() string {
	return e.Reason
}

// ForExport returns a copy of c with the schema tag guaranteed.
func ForExport(c *Capsule) *Capsule {
	out := c.Clone()
	if out.Schema == "" {
		out.Schema = SchemaVersion
	}
	return out
}

// MarshalExport renders c as an indented export document.
func MarshalExport(c *Capsule) ([]byte, error) {
	return json.MarshalIndent(ForExport(c), "", "  ")
}

// ExportFilename derives the download name from the title, or the id when
// the title is blank.
func ExportFilename(c *Capsule) string {
	name := c.Meta.Title
	if isBlank(name) {
		name = c.ID
	}
	return Slugify(name) + ".json"
}

// ParseImport decodes an export document and checks it can be imported.
// JSON syntax errors are returned as is; rejections are *ImportError.
// The returned capsule has a fresh id and a defaulted updatedAt.
func ParseImport(data []byte, now time.Time) (*Capsule, error) {
	var c Capsule
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	// Choices decodes into a fixed array, which would pad or truncate.
	var raw struct {
		Quiz []struct {
			Choices []string `json:"choices"`
		} `json:"quiz"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	counts := make([]int, len(raw.Quiz))
	for i, q := range raw.Quiz {
		counts[i] = len(q.Choices)
	}
	if err := validateImport(&c, counts); err != nil {
		return nil, err
	}

	c.ID = NewID()
	if c.Meta.UpdatedAt.IsZero() {
		c.Meta.UpdatedAt = now.UTC()
	}
	c.Meta.Level = ParseLevel(string(c.Meta.Level))
	if c.Notes == nil {
		c.Notes = []string{}
	}
	if c.Flashcards == nil {
		c.Flashcards = []Flashcard{}
	}
	if c.Quiz == nil {
		c.Quiz = []QuizItem{}
	}
	return &c, nil
}

// ValidateImport applies the import rules in order: schema tag, title,
// non-empty content, then quiz answer indices.
func ValidateImport(c *Capsule) error {
	return validateImport(c, nil)
}

// validateImport is ValidateImport with the choice count of each decoded
// quiz item checked ahead of the answer indices.
func validateImport(c *Capsule, choiceCounts []int) error {
	if c.Schema != SchemaVersion {
		return &ImportError{Reason: MsgInvalidSchema}
	}
	if isBlank(c.Meta.Title) {
		return &ImportError{Reason: MsgMissingTitle}
	}
	if c.IsEmpty() {
		return &ImportError{Reason: MsgCapsuleEmpty}
	}
	for i, n := range choiceCounts {
		if n != len(QuizItem{}.Choices) {
			return &ImportError{Reason: fmt.Sprintf("quiz[%d].choices: a question needs exactly %d choices, got %d", i, len(QuizItem{}.Choices), n)}
		}
	}
	if res := Lint(c); !res.Valid {
		return &ImportError{Reason: fmt.Sprintf("%s: %s", res.Problems[0].Field, res.Problems[0].Message)}
	}
	return nil
}

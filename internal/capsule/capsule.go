// Package capsule defines study capsules, their index entries and
// progress records, and the rules that keep them well-formed.
package capsule

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SchemaVersion tags every stored and exported capsule.
const SchemaVersion = "pocket-classroom/v1"

// Level is the difficulty of a capsule.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

// Levels lists the accepted levels in display order.
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

// ParseLevel matches s case-insensitively against the known levels.
// Anything else is Beginner.
func ParseLevel(s string) Level {
	s = strings.TrimSpace(s)
	for _, l := range Levels {
		if strings.EqualFold(s, string(l)) {
			return l
		}
	}
	return LevelBeginner
}

// Meta holds the descriptive fields of a capsule.
type Meta struct {
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	Level       Level     `json:"level"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Flashcard is a front/back pair.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// QuizItem is a multiple-choice question with exactly four choices.
type QuizItem struct {
	Question    string    `json:"question"`
	Choices     [4]string `json:"choices"`
	Correct     int       `json:"correct"`
	Explanation string    `json:"explanation,omitempty"`
}

// Capsule is the unit of study content.
type Capsule struct {
	ID         string      `json:"id"`
	Schema     string      `json:"schema"`
	Meta       Meta        `json:"meta"`
	Notes      []string    `json:"notes"`
	Flashcards []Flashcard `json:"flashcards"`
	Quiz       []QuizItem  `json:"quiz"`
}

// NewID returns a fresh capsule id.
func NewID() string {
	return ulid.Make().String()
}

// New returns an empty Beginner capsule with a fresh id.
func New(now time.Time) *Capsule {
	return &Capsule{
		ID:         NewID(),
		Schema:     SchemaVersion,
		Meta:       Meta{Level: LevelBeginner, UpdatedAt: now.UTC()},
		Notes:      []string{},
		Flashcards: []Flashcard{},
		Quiz:       []QuizItem{},
	}
}

// IsEmpty reports whether the capsule has no notes, flashcards or quiz items.
func (c *Capsule) IsEmpty() bool {
	return len(c.Notes) == 0 && len(c.Flashcards) == 0 && len(c.Quiz) == 0
}

// Clone returns a deep copy.
func (c *Capsule) Clone() *Capsule {
	out := *c
	out.Notes = append([]string{}, c.Notes...)
	out.Flashcards = append([]Flashcard{}, c.Flashcards...)
	out.Quiz = append([]QuizItem{}, c.Quiz...)
	return &out
}

// Keys of the persisted records.
const (
	IndexKey       = "pc_capsules_index"
	RecordPrefix   = "pc_capsule_"
	ProgressPrefix = "pc_progress_"
)

// RecordKey returns the key of the capsule record for id.
func RecordKey(id string) string {
	return RecordPrefix + id
}

// ProgressKey returns the key of the progress record for id.
func ProgressKey(id string) string {
	return ProgressPrefix + id
}

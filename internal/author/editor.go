// Package author edits a capsule draft in memory and saves it.
//
// Additions append to the end of their sequence and removals splice by
// position, so later items shift down by one. Nothing is written until
// Save, which drops blank entries and rejects a draft with nothing left.
package author

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/kv"
	"github.com/hpungsan/pocket/internal/ops"
)

// Editor holds one capsule draft.
type Editor struct {
	store kv.Store
	draft *capsule.Capsule
	isNew bool
}

// Open starts editing the capsule with the given id. A blank or unknown id
// starts a fresh Beginner draft with empty collections.
func Open(ctx context.Context, store kv.Store, id string) (*Editor, error) {
	e := &Editor{store: store}
	if strings.TrimSpace(id) != "" {
		out, err := ops.Fetch(ctx, store, ops.FetchInput{ID: id})
		switch {
		case err == nil:
			e.draft = out.Capsule.Clone()
			return e, nil
		case errors.Is(err, errors.ErrNotFound):
		default:
			return nil, err
		}
	}
	e.draft = capsule.New(time.Now())
	e.isNew = true
	return e, nil
}

// Edit wraps an existing draft, e.g. one rebuilt from a submitted form.
func Edit(store kv.Store, draft *capsule.Capsule) *Editor {
	return &Editor{store: store, draft: draft.Clone(), isNew: draft.ID == ""}
}

// ID returns the draft's id.
func (e *Editor) ID() string { return e.draft.ID }

// IsNew reports whether the draft has never been saved.
func (e *Editor) IsNew() bool { return e.isNew }

// Draft returns a copy of the current draft.
func (e *Editor) Draft() *capsule.Capsule { return e.draft.Clone() }

// Meta is the editable part of capsule.Meta.
type Meta struct {
	Title       string
	Subject     string
	Level       string
	Description string
}

// SetMeta replaces the draft's descriptive fields.
func (e *Editor) SetMeta(m Meta) {
	e.draft.Meta.Title = m.Title
	e.draft.Meta.Subject = m.Subject
	e.draft.Meta.Level = capsule.ParseLevel(m.Level)
	e.draft.Meta.Description = m.Description
}

// AddNote appends a note and returns its position.
func (e *Editor) AddNote(text string) int {
	e.draft.Notes = append(e.draft.Notes, text)
	return len(e.draft.Notes) - 1
}

// SetNote replaces the note at i.
func (e *Editor) SetNote(i int, text string) error {
	if err := checkIndex("note", i, len(e.draft.Notes)); err != nil {
		return err
	}
	e.draft.Notes[i] = text
	return nil
}

// RemoveNote deletes the note at i.
func (e *Editor) RemoveNote(i int) error {
	if err := checkIndex("note", i, len(e.draft.Notes)); err != nil {
		return err
	}
	e.draft.Notes = splice(e.draft.Notes, i)
	return nil
}

// AddFlashcard appends a card and returns its position.
func (e *Editor) AddFlashcard(card capsule.Flashcard) int {
	e.draft.Flashcards = append(e.draft.Flashcards, card)
	return len(e.draft.Flashcards) - 1
}

// SetFlashcard replaces the card at i.
func (e *Editor) SetFlashcard(i int, card capsule.Flashcard) error {
	if err := checkIndex("flashcard", i, len(e.draft.Flashcards)); err != nil {
		return err
	}
	e.draft.Flashcards[i] = card
	return nil
}

// RemoveFlashcard deletes the card at i.
func (e *Editor) RemoveFlashcard(i int) error {
	if err := checkIndex("flashcard", i, len(e.draft.Flashcards)); err != nil {
		return err
	}
	e.draft.Flashcards = splice(e.draft.Flashcards, i)
	return nil
}

// AddQuiz appends a question and returns its position.
func (e *Editor) AddQuiz(q capsule.QuizItem) int {
	e.draft.Quiz = append(e.draft.Quiz, q)
	return len(e.draft.Quiz) - 1
}

// SetQuiz replaces the question at i.
func (e *Editor) SetQuiz(i int, q capsule.QuizItem) error {
	if err := checkIndex("quiz item", i, len(e.draft.Quiz)); err != nil {
		return err
	}
	e.draft.Quiz[i] = q
	return nil
}

// RemoveQuiz deletes the question at i.
func (e *Editor) RemoveQuiz(i int) error {
	if err := checkIndex("quiz item", i, len(e.draft.Quiz)); err != nil {
		return err
	}
	e.draft.Quiz = splice(e.draft.Quiz, i)
	return nil
}

// Save persists the draft. On success the editor continues with the
// cleaned capsule, so positions may shift where blank entries were dropped.
func (e *Editor) Save(ctx context.Context) (*ops.SaveOutput, error) {
	out, err := ops.Save(ctx, e.store, ops.SaveInput{Capsule: e.draft})
	if err != nil {
		return nil, err
	}
	e.draft = out.Capsule.Clone()
	e.isNew = false
	return out, nil
}

func checkIndex(what string, i, n int) error {
	if i < 0 || i >= n {
		return errors.NewInvalidRequest(fmt.Sprintf("%s index %d out of range (have %d)", what, i, n))
	}
	return nil
}

func splice[T any](s []T, i int) []T {
	return append(s[:i:i], s[i+1:]...)
}

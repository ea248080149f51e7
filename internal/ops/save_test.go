package ops

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/errors"
)

func TestSave_NewCapsule(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	out, err := Save(ctx, store, SaveInput{Capsule: sampleCapsule()})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !out.Created {
		t.Error("Created = false, want true")
	}
	if out.Notes != 2 || out.Cards != 3 || out.Questions != 4 || out.Dropped != 0 {
		t.Errorf("counts = %+v", out)
	}

	idx := readIndex(t, store)
	if len(idx) != 1 {
		t.Fatalf("index length = %d, want 1", len(idx))
	}
	if idx[0].ID != out.ID || idx[0].Title != "Go Basics" || idx[0].Subject != "Programming" || idx[0].Level != capsule.LevelIntermediate {
		t.Errorf("index entry = %+v", idx[0])
	}
	if !idx[0].UpdatedAt.Equal(out.UpdatedAt) {
		t.Errorf("index updatedAt = %v, want %v", idx[0].UpdatedAt, out.UpdatedAt)
	}
}

func TestSave_UpsertsExistingEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	other, _ := Create(ctx, store, CreateInput{Title: "other"})
	created, _ := Create(ctx, store, CreateInput{})

	draft := sampleCapsule()
	draft.ID = created.ID
	draft.Meta.Title = "Renamed"

	out, err := Save(ctx, store, SaveInput{Capsule: draft})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if out.Created {
		t.Error("Created = true for an existing capsule")
	}

	idx := readIndex(t, store)
	if len(idx) != 2 {
		t.Fatalf("index length = %d, want 2 (no duplicate entry)", len(idx))
	}
	if idx[0].ID != other.ID || idx[1].ID != created.ID || idx[1].Title != "Renamed" {
		t.Errorf("index = %+v", idx)
	}
}

func TestSave_EmptyCapsuleRejectedWithoutWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, _ := Create(ctx, store, CreateInput{Title: "keep me"})
	before, _ := Fetch(ctx, store, FetchInput{ID: created.ID})

	draft := &capsule.Capsule{
		ID:         created.ID,
		Meta:       capsule.Meta{Title: "changed"},
		Notes:      []string{"  ", ""},
		Flashcards: []capsule.Flashcard{{Front: " ", Back: ""}},
		Quiz:       []capsule.QuizItem{{Question: "", Choices: [4]string{"a"}}},
	}
	_, err := Save(ctx, store, SaveInput{Capsule: draft})
	if !errors.Is(err, errors.ErrValidationFailed) {
		t.Fatalf("Save error = %v, want ErrValidationFailed", err)
	}
	if !strings.Contains(err.Error(), capsule.EmptyCapsuleMessage) {
		t.Errorf("error message = %q", err.Error())
	}

	after, _ := Fetch(ctx, store, FetchInput{ID: created.ID})
	if after.Meta.Title != before.Meta.Title || !after.Meta.UpdatedAt.Equal(before.Meta.UpdatedAt) {
		t.Error("rejected save changed the stored record")
	}
	if idx := readIndex(t, store); len(idx) != 1 || idx[0].Title != "keep me" {
		t.Errorf("rejected save changed the index: %+v", idx)
	}
}

func TestSave_FiltersAndDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	draft := &capsule.Capsule{
		Meta:       capsule.Meta{Title: "  ", Level: "unknown"},
		Notes:      []string{"", "kept"},
		Flashcards: []capsule.Flashcard{{Front: "", Back: ""}, {Front: "only front"}},
	}
	out, err := Save(ctx, store, SaveInput{Capsule: draft})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if out.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", out.Dropped)
	}
	if len(out.Warnings) != 1 {
		t.Errorf("Warnings = %+v, want one half-filled flashcard", out.Warnings)
	}

	got, _ := Fetch(ctx, store, FetchInput{ID: out.ID})
	if got.Meta.Title != capsule.DefaultTitle {
		t.Errorf("Title = %q, want %q", got.Meta.Title, capsule.DefaultTitle)
	}
	if got.Meta.Level != capsule.LevelBeginner {
		t.Errorf("Level = %q, want Beginner", got.Meta.Level)
	}
	if len(got.Notes) != 1 || len(got.Flashcards) != 1 {
		t.Errorf("stored = %+v", got.Capsule)
	}
}

func TestSave_RefreshesUpdatedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	draft := sampleCapsule()
	draft.Meta.UpdatedAt = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	out, err := Save(ctx, store, SaveInput{Capsule: draft})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if time.Since(out.UpdatedAt) > time.Minute {
		t.Errorf("UpdatedAt = %v, want now", out.UpdatedAt)
	}
}

func TestSave_InvalidCorrectIndex(t *testing.T) {
	store := newTestStore(t)

	draft := sampleCapsule()
	draft.Quiz[1].Correct = 7
	_, err := Save(context.Background(), store, SaveInput{Capsule: draft})
	if !errors.Is(err, errors.ErrValidationFailed) {
		t.Fatalf("Save error = %v, want ErrValidationFailed", err)
	}
	if !strings.Contains(err.Error(), "quiz[1].correct") {
		t.Errorf("error = %q, want field name", err.Error())
	}
	if idx := readIndex(t, store); len(idx) != 0 {
		t.Errorf("index = %+v, want empty", idx)
	}
}

func TestSave_BlankCorrectChoice(t *testing.T) {
	store := newTestStore(t)

	draft := sampleCapsule()
	draft.Quiz = []capsule.QuizItem{{Question: "q", Choices: [4]string{"a", "b", "", ""}, Correct: 3}}
	_, err := Save(context.Background(), store, SaveInput{Capsule: draft})
	if !errors.Is(err, errors.ErrValidationFailed) {
		t.Fatalf("Save error = %v, want ErrValidationFailed", err)
	}
	if !strings.Contains(err.Error(), "quiz[0].choices: the correct choice is blank") {
		t.Errorf("error = %q, want blank choice reason", err.Error())
	}
	if idx := readIndex(t, store); len(idx) != 0 {
		t.Errorf("index = %+v, want empty", idx)
	}
}

func TestSave_NilCapsule(t *testing.T) {
	_, err := Save(context.Background(), newTestStore(t), SaveInput{})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("Save(nil) error = %v, want ErrInvalidRequest", err)
	}
}

func TestSave_DoesNotMutateDraft(t *testing.T) {
	draft := sampleCapsule()
	draft.Notes = append(draft.Notes, "  ")

	if _, err := Save(context.Background(), newTestStore(t), SaveInput{Capsule: draft}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if draft.ID != "" || len(draft.Notes) != 3 {
		t.Errorf("draft mutated: id=%q notes=%d", draft.ID, len(draft.Notes))
	}
}

package author

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/db"
	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/kv"
	"github.com/hpungsan/pocket/internal/ops"
)

func newTestStore(t *testing.T) kv.Store {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	store := db.NewStore(database)
	t.Cleanup(func() { store.Close() })
	return store
}

func quiz(question string, choices ...string) capsule.QuizItem {
	q := capsule.QuizItem{Question: question}
	copy(q.Choices[:], choices)
	return q
}

func TestOpen_BlankIDStartsFreshDraft(t *testing.T) {
	e, err := Open(context.Background(), newTestStore(t), "")
	require.NoError(t, err)

	d := e.Draft()
	require.True(t, e.IsNew())
	require.NotEmpty(t, d.ID)
	require.Equal(t, capsule.LevelBeginner, d.Meta.Level)
	require.Empty(t, d.Notes)
	require.Empty(t, d.Flashcards)
	require.Empty(t, d.Quiz)
}

func TestOpen_UnknownIDStartsFreshDraft(t *testing.T) {
	e, err := Open(context.Background(), newTestStore(t), "01NOPE")
	require.NoError(t, err)
	require.True(t, e.IsNew())
	require.NotEqual(t, "01NOPE", e.ID())
}

func TestOpen_LoadsExisting(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	e, err := Open(ctx, store, "")
	require.NoError(t, err)
	e.SetMeta(Meta{Title: "Go", Subject: "Programming", Level: "advanced"})
	e.AddNote("goroutines are cheap")
	_, err = e.Save(ctx)
	require.NoError(t, err)

	again, err := Open(ctx, store, e.ID())
	require.NoError(t, err)
	require.False(t, again.IsNew())
	d := again.Draft()
	require.Equal(t, "Go", d.Meta.Title)
	require.Equal(t, capsule.LevelAdvanced, d.Meta.Level)
	require.Equal(t, []string{"goroutines are cheap"}, d.Notes)
}

func TestEditor_RemoveShiftsPositions(t *testing.T) {
	e, err := Open(context.Background(), newTestStore(t), "")
	require.NoError(t, err)

	e.AddNote("a")
	e.AddNote("b")
	e.AddNote("c")
	require.NoError(t, e.RemoveNote(1))
	require.NoError(t, e.SetNote(1, "C"))

	require.Equal(t, []string{"a", "C"}, e.Draft().Notes)
}

func TestEditor_OutOfRange(t *testing.T) {
	e, err := Open(context.Background(), newTestStore(t), "")
	require.NoError(t, err)
	e.AddFlashcard(capsule.Flashcard{Front: "f", Back: "b"})

	for name, err := range map[string]error{
		"set note":         e.SetNote(0, "x"),
		"remove note":      e.RemoveNote(-1),
		"set flashcard":    e.SetFlashcard(1, capsule.Flashcard{}),
		"remove flashcard": e.RemoveFlashcard(5),
		"set quiz":         e.SetQuiz(0, capsule.QuizItem{}),
		"remove quiz":      e.RemoveQuiz(0),
	} {
		require.Truef(t, errors.Is(err, errors.ErrInvalidRequest), "%s: got %v", name, err)
	}
	require.Len(t, e.Draft().Flashcards, 1)
}

func TestEditor_DraftIsACopy(t *testing.T) {
	e, err := Open(context.Background(), newTestStore(t), "")
	require.NoError(t, err)
	e.AddNote("keep")

	d := e.Draft()
	d.Notes[0] = "changed"
	require.Equal(t, "keep", e.Draft().Notes[0])
}

func TestSave_EmptyDraftRejectedAndNothingWritten(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	e, err := Open(ctx, store, "")
	require.NoError(t, err)
	e.SetMeta(Meta{Title: "Only whitespace"})
	e.AddNote("   ")
	e.AddFlashcard(capsule.Flashcard{Front: " ", Back: ""})
	e.AddQuiz(quiz("", "a", "b"))
	e.AddQuiz(quiz("question with no choices"))

	_, err = e.Save(ctx)
	require.True(t, errors.Is(err, errors.ErrValidationFailed), "got %v", err)
	require.True(t, e.IsNew())

	keys, err := store.Keys(ctx, "pc_")
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestSave_TitleDefaultsAndIndexUpserted(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	e, err := Open(ctx, store, "")
	require.NoError(t, err)
	e.AddNote("n")
	out, err := e.Save(ctx)
	require.NoError(t, err)
	require.True(t, out.Created)

	e.SetMeta(Meta{Title: "Renamed"})
	out, err = e.Save(ctx)
	require.NoError(t, err)
	require.False(t, out.Created)

	list, err := ops.List(ctx, store, ops.ListInput{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, "Renamed", list.Items[0].Title)
}

// Any sequence of edits persists exactly the filtered in-memory sequences.
func TestSave_PersistsFilteredEdits(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	rng := rand.New(rand.NewSource(7))
	texts := []string{"", "  ", "alpha", "beta", " gamma "}
	pick := func() string { return texts[rng.Intn(len(texts))] }

	for round := 0; round < 25; round++ {
		e, err := Open(ctx, store, "")
		require.NoError(t, err)
		e.AddNote("anchor")

		for step := 0; step < 40; step++ {
			d := e.Draft()
			switch rng.Intn(6) {
			case 0:
				e.AddNote(pick())
			case 1:
				if len(d.Notes) > 1 {
					require.NoError(t, e.RemoveNote(1+rng.Intn(len(d.Notes)-1)))
				}
			case 2:
				e.AddFlashcard(capsule.Flashcard{Front: pick(), Back: pick()})
			case 3:
				if len(d.Flashcards) > 0 {
					require.NoError(t, e.RemoveFlashcard(rng.Intn(len(d.Flashcards))))
				}
			case 4:
				e.AddQuiz(quiz(pick(), pick(), pick(), pick(), pick()))
			case 5:
				if len(d.Quiz) > 0 {
					require.NoError(t, e.RemoveQuiz(rng.Intn(len(d.Quiz))))
				}
			}
		}

		want := e.Draft()
		_, err = e.Save(ctx)
		require.NoError(t, err)

		got, err := ops.Fetch(ctx, store, ops.FetchInput{ID: want.ID})
		require.NoError(t, err)
		require.Equal(t, filterNotes(want.Notes), got.Notes)
		require.Equal(t, filterCards(want.Flashcards), got.Flashcards)
		require.Equal(t, filterQuiz(want.Quiz), got.Quiz)
	}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func filterNotes(in []string) []string {
	out := []string{}
	for _, n := range in {
		if !blank(n) {
			out = append(out, n)
		}
	}
	return out
}

func filterCards(in []capsule.Flashcard) []capsule.Flashcard {
	out := []capsule.Flashcard{}
	for _, f := range in {
		if !blank(f.Front) || !blank(f.Back) {
			out = append(out, f)
		}
	}
	return out
}

func filterQuiz(in []capsule.QuizItem) []capsule.QuizItem {
	out := []capsule.QuizItem{}
	for _, q := range in {
		if blank(q.Question) {
			continue
		}
		for _, c := range q.Choices {
			if !blank(c) {
				out = append(out, q)
				break
			}
		}
	}
	return out
}

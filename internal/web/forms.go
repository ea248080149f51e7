package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/pocket/internal/author"
	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/errors"
)

// Author form field names. Repeated fields are aligned by position.
const (
	fieldTitle       = "title"
	fieldSubject     = "subject"
	fieldLevel       = "level"
	fieldDescription = "description"
	fieldNote        = "note"
	fieldFront       = "front"
	fieldBack        = "back"
	fieldQuestion    = "question"
	fieldCorrect     = "correct"
	fieldExplanation = "explanation"
	fieldAction      = "action"
)

// choiceField names the form field of choice j of every question.
func choiceField(j int) string {
	return "choice" + strconv.Itoa(j)
}

// draftFromForm rebuilds the edited capsule from a submitted author form.
func draftFromForm(r *http.Request, id string) *capsule.Capsule {
	f := r.PostForm
	c := &capsule.Capsule{
		ID: id,
		Meta: capsule.Meta{
			Title:       f.Get(fieldTitle),
			Subject:     f.Get(fieldSubject),
			Level:       capsule.ParseLevel(f.Get(fieldLevel)),
			Description: f.Get(fieldDescription),
		},
		Notes:      append([]string{}, f[fieldNote]...),
		Flashcards: []capsule.Flashcard{},
		Quiz:       []capsule.QuizItem{},
	}

	fronts, backs := f[fieldFront], f[fieldBack]
	for i := 0; i < max(len(fronts), len(backs)); i++ {
		c.Flashcards = append(c.Flashcards, capsule.Flashcard{
			Front: at(fronts, i),
			Back:  at(backs, i),
		})
	}

	questions := f[fieldQuestion]
	for i := range questions {
		q := capsule.QuizItem{
			Question:    questions[i],
			Explanation: at(f[fieldExplanation], i),
		}
		for j := range q.Choices {
			q.Choices[j] = at(f[choiceField(j)], i)
		}
		q.Correct, _ = strconv.Atoi(at(f[fieldCorrect], i))
		c.Quiz = append(c.Quiz, q)
	}
	return c
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

// Author form actions.
const (
	actionSave   = "save"
	actionCancel = "cancel"
)

// applyEdit performs an "add-<kind>" or "remove-<kind>:<index>" action.
func applyEdit(e *author.Editor, action string) error {
	verb, arg, _ := strings.Cut(action, ":")
	idx := -1
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return errors.NewInvalidRequest("invalid position: " + arg)
		}
		idx = n
	}

	switch verb {
	case "add-note":
		e.AddNote("")
	case "remove-note":
		return e.RemoveNote(idx)
	case "add-flashcard":
		e.AddFlashcard(capsule.Flashcard{})
	case "remove-flashcard":
		return e.RemoveFlashcard(idx)
	case "add-quiz":
		e.AddQuiz(capsule.QuizItem{})
	case "remove-quiz":
		return e.RemoveQuiz(idx)
	default:
		return errors.NewInvalidRequest("unknown action: " + action)
	}
	return nil
}

package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/kv"
)

// ProgressInput contains parameters for the GetProgress operation.
type ProgressInput struct {
	ID string
}

// ProgressOutput is a progress record with derived figures.
type ProgressOutput struct {
	ID              string           `json:"id"`
	BestScore       int              `json:"bestScore"`
	KnownFlashcards []int            `json:"knownFlashcards"`
	KnownCount      int              `json:"knownCount"`
	TotalFlashcards int              `json:"totalFlashcards"`
	KnownPercent    int              `json:"knownPercent"`
	Segments        capsule.Segments `json:"segments"`
}

func newProgressOutput(id string, p capsule.Progress, totalFlashcards int) *ProgressOutput {
	known := p.KnownPercent(totalFlashcards)
	return &ProgressOutput{
		ID:              id,
		BestScore:       p.BestScore,
		KnownFlashcards: p.KnownFlashcards,
		KnownCount:      p.KnownCount(totalFlashcards),
		TotalFlashcards: totalFlashcards,
		KnownPercent:    known,
		Segments:        capsule.SplitSegments(p.BestScore, known),
	}
}

// GetProgress returns the progress of a capsule, zero-valued if none was
// recorded yet.
func GetProgress(ctx context.Context, store kv.Reader, input ProgressInput) (*ProgressOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}

	c, err := loadCapsule(ctx, store, id)
	if err != nil {
		return nil, storeErr("progress", err)
	}
	if c == nil {
		return nil, errors.NewNotFound(id)
	}

	p, err := loadProgress(ctx, store, id)
	if err != nil {
		return nil, storeErr("progress", err)
	}
	return newProgressOutput(id, p, len(c.Flashcards)), nil
}

// MarkFlashcardInput contains parameters for the MarkFlashcard operation.
type MarkFlashcardInput struct {
	ID    string
	Index int
	Known bool
}

// MarkFlashcardOutput contains the result of the MarkFlashcard operation.
type MarkFlashcardOutput struct {
	ProgressOutput

	// Changed is false when the card already had the requested state
	Changed bool `json:"changed"`
}

// MarkFlashcard adds the card to or removes it from the known set.
// Repeating a mark is a no-op.
func MarkFlashcard(ctx context.Context, store kv.Store, input MarkFlashcardInput) (*MarkFlashcardOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}

	var out *MarkFlashcardOutput
	err = store.Update(ctx, func(tx kv.Tx) error {
		c, err := loadCapsule(ctx, tx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return errors.NewNotFound(id)
		}
		if input.Index < 0 || input.Index >= len(c.Flashcards) {
			return errors.NewInvalidRequest(fmt.Sprintf("flashcard index %d out of range (capsule has %d)", input.Index, len(c.Flashcards)))
		}

		p, err := loadProgress(ctx, tx, id)
		if err != nil {
			return err
		}
		var changed bool
		if input.Known {
			changed = p.MarkKnown(input.Index)
		} else {
			changed = p.MarkUnknown(input.Index)
		}
		if changed {
			if err := kv.Save(ctx, tx, capsule.ProgressKey(id), p); err != nil {
				return err
			}
		}
		out = &MarkFlashcardOutput{
			ProgressOutput: *newProgressOutput(id, p, len(c.Flashcards)),
			Changed:        changed,
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("mark flashcard", err)
	}
	return out, nil
}

// RecordScoreInput contains parameters for the RecordScore operation.
type RecordScoreInput struct {
	ID    string
	Score int // 0..100
}

// RecordScoreOutput contains the result of a finished quiz attempt.
type RecordScoreOutput struct {
	ID        string `json:"id"`
	Score     int    `json:"score"`
	BestScore int    `json:"bestScore"`
	Improved  bool   `json:"improved"`
}

// RecordScore stores a finished attempt: bestScore becomes the larger of the
// previous best and score.
func RecordScore(ctx context.Context, store kv.Store, input RecordScoreInput) (*RecordScoreOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}
	if input.Score < 0 || input.Score > 100 {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("score must be between 0 and 100, got %d", input.Score))
	}

	out := &RecordScoreOutput{ID: id, Score: input.Score}
	err = store.Update(ctx, func(tx kv.Tx) error {
		_, exists, err := tx.Get(ctx, capsule.RecordKey(id))
		if err != nil {
			return err
		}
		if !exists {
			return errors.NewNotFound(id)
		}

		p, err := loadProgress(ctx, tx, id)
		if err != nil {
			return err
		}
		out.Improved = p.RecordScore(input.Score)
		out.BestScore = p.BestScore
		if !out.Improved {
			return nil
		}
		return kv.Save(ctx, tx, capsule.ProgressKey(id), p)
	})
	if err != nil {
		return nil, storeErr("record score", err)
	}
	return out, nil
}

// SubmitQuizInput contains parameters for the SubmitQuiz operation.
type SubmitQuizInput struct {
	ID      string
	Answers []int // one choice index per question, -1 for unanswered
}

// QuestionResult is the outcome of one answered question.
type QuestionResult struct {
	Index       int    `json:"index"`
	Chosen      int    `json:"chosen"`
	Correct     int    `json:"correct"`
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation,omitempty"`
}

// SubmitQuizOutput contains the graded attempt.
type SubmitQuizOutput struct {
	RecordScoreOutput
	CorrectAnswers int              `json:"correctAnswers"`
	Total          int              `json:"total"`
	Results        []QuestionResult `json:"results"`
}

// SubmitQuiz grades a whole attempt at once and records its score.
func SubmitQuiz(ctx context.Context, store kv.Store, input SubmitQuizInput) (*SubmitQuizOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}

	c, err := loadCapsule(ctx, store, id)
	if err != nil {
		return nil, storeErr("submit quiz", err)
	}
	if c == nil {
		return nil, errors.NewNotFound(id)
	}
	if len(c.Quiz) == 0 {
		return nil, errors.NewInvalidRequest("capsule has no quiz questions")
	}
	if len(input.Answers) != len(c.Quiz) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("expected %d answers, got %d", len(c.Quiz), len(input.Answers)))
	}

	results := make([]QuestionResult, len(c.Quiz))
	correct := 0
	for i, q := range c.Quiz {
		ok := input.Answers[i] == q.Correct
		if ok {
			correct++
		}
		results[i] = QuestionResult{
			Index:       i,
			Chosen:      input.Answers[i],
			Correct:     q.Correct,
			IsCorrect:   ok,
			Explanation: q.Explanation,
		}
	}

	rec, err := RecordScore(ctx, store, RecordScoreInput{ID: id, Score: capsule.Percent(correct, len(c.Quiz))})
	if err != nil {
		return nil, err
	}

	return &SubmitQuizOutput{
		RecordScoreOutput: *rec,
		CorrectAnswers:    correct,
		Total:             len(c.Quiz),
		Results:           results,
	}, nil
}

// Package learn runs a study session over one capsule.
//
// A Session presents the capsule in one of three modes. Flashcard marks
// are persisted as soon as they are made; a quiz attempt is scored and
// persisted when the cursor moves past its last question. A Session is
// not safe for concurrent use.
package learn

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/kv"
	"github.com/hpungsan/pocket/internal/ops"
)

// Mode is a presentation mode of the session.
type Mode string

const (
	ModeNotes      Mode = "notes"
	ModeFlashcards Mode = "flashcards"
	ModeQuiz       Mode = "quiz"
)

// Modes lists the modes in cycling order.
var Modes = []Mode{ModeNotes, ModeFlashcards, ModeQuiz}

// ParseMode returns the mode named s, or false.
func ParseMode(s string) (Mode, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range Modes {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// Session is the state of one learner over one capsule.
type Session struct {
	store    kv.Store
	capsule  *capsule.Capsule
	progress capsule.Progress
	mode     Mode

	flashIndex int
	flipped    bool

	quizIndex int
	correct   int
	chosen    []int // -1 while unanswered
	result    *ops.RecordScoreOutput
}

// NewSession opens a session on the capsule with the given id. A blank id
// selects the first capsule in the index.
func NewSession(ctx context.Context, store kv.Store, id string) (*Session, error) {
	s := &Session{store: store, mode: ModeNotes}
	if err := s.load(ctx, id); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) load(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		first, err := FirstCapsuleID(ctx, s.store)
		if err != nil {
			return err
		}
		id = first
	}

	c, err := ops.Fetch(ctx, s.store, ops.FetchInput{ID: id})
	if err != nil {
		return err
	}
	p, err := ops.GetProgress(ctx, s.store, ops.ProgressInput{ID: id})
	if err != nil {
		return err
	}

	s.capsule = c.Capsule.Clone()
	s.progress = capsule.Progress{BestScore: p.BestScore, KnownFlashcards: p.KnownFlashcards}
	s.flashIndex = 0
	s.flipped = false
	s.resetQuiz()
	return nil
}

// FirstCapsuleID returns the id of the first index entry whose record
// exists. Dangling entries are skipped.
func FirstCapsuleID(ctx context.Context, store kv.Reader) (string, error) {
	for offset := 0; ; offset += ops.MaxListLimit {
		list, err := ops.List(ctx, store, ops.ListInput{Limit: ops.MaxListLimit, Offset: offset})
		if err != nil {
			return "", err
		}
		for _, entry := range list.Items {
			_, err := ops.Fetch(ctx, store, ops.FetchInput{ID: entry.ID})
			if errors.Is(err, errors.ErrNotFound) {
				continue
			}
			if err != nil {
				return "", err
			}
			return entry.ID, nil
		}
		if !list.Pagination.HasMore {
			return "", errors.NewInvalidRequest("no capsules yet; create or import one first")
		}
	}
}

// ID returns the active capsule's id.
func (s *Session) ID() string { return s.capsule.ID }

// Capsule returns a copy of the active capsule.
func (s *Session) Capsule() *capsule.Capsule { return s.capsule.Clone() }

// Mode returns the current mode.
func (s *Session) Mode() Mode { return s.mode }

// SetMode switches mode. Only the flip state is reset.
func (s *Session) SetMode(m Mode) error {
	if _, ok := ParseMode(string(m)); !ok {
		return errors.NewInvalidRequest(fmt.Sprintf("unknown mode %q", m))
	}
	s.mode = m
	s.flipped = false
	return nil
}

// CycleMode moves to the next mode: notes, flashcards, quiz, notes.
func (s *Session) CycleMode() Mode {
	for i, m := range Modes {
		if m == s.mode {
			s.mode = Modes[(i+1)%len(Modes)]
			break
		}
	}
	s.flipped = false
	return s.mode
}

// SwitchCapsule loads another capsule and resets every cursor.
func (s *Session) SwitchCapsule(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.NewInvalidRequest("id is required")
	}
	return s.load(ctx, id)
}

// Flip toggles the current flashcard between front and back.
func (s *Session) Flip() {
	if len(s.capsule.Flashcards) > 0 {
		s.flipped = !s.flipped
	}
}

// Next moves to the next flashcard, stopping at the last one.
func (s *Session) Next() {
	if s.flashIndex < len(s.capsule.Flashcards)-1 {
		s.flashIndex++
		s.flipped = false
	}
}

// Prev moves to the previous flashcard, stopping at the first one.
func (s *Session) Prev() {
	if s.flashIndex > 0 {
		s.flashIndex--
		s.flipped = false
	}
}

// MarkKnown adds the current flashcard to the known set and persists it.
func (s *Session) MarkKnown(ctx context.Context) error {
	return s.mark(ctx, true)
}

// MarkUnknown removes the current flashcard from the known set and persists it.
func (s *Session) MarkUnknown(ctx context.Context) error {
	return s.mark(ctx, false)
}

func (s *Session) mark(ctx context.Context, known bool) error {
	if len(s.capsule.Flashcards) == 0 {
		return errors.NewInvalidRequest("capsule has no flashcards")
	}
	out, err := ops.MarkFlashcard(ctx, s.store, ops.MarkFlashcardInput{
		ID:    s.capsule.ID,
		Index: s.flashIndex,
		Known: known,
	})
	if err != nil {
		return err
	}
	s.progress.KnownFlashcards = out.KnownFlashcards
	s.progress.BestScore = out.BestScore
	return nil
}

// Feedback describes an answered question.
type Feedback struct {
	Index       int    `json:"index"`
	Chosen      int    `json:"chosen"`
	Correct     int    `json:"correct"`
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation,omitempty"`
	// Repeat is true when the question had already been answered; the
	// score did not change.
	Repeat bool `json:"repeat"`
}

// Answer selects choice for the current question. Only the first answer
// to a question counts. The cursor does not move; call Advance.
func (s *Session) Answer(choice int) (*Feedback, error) {
	if err := s.requireOpenQuiz(); err != nil {
		return nil, err
	}
	if choice < 0 || choice > 3 {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("choice must be between 0 and 3, got %d", choice))
	}

	q := s.capsule.Quiz[s.quizIndex]
	fb := &Feedback{
		Index:       s.quizIndex,
		Correct:     q.Correct,
		Explanation: q.Explanation,
	}
	if prev := s.chosen[s.quizIndex]; prev >= 0 {
		fb.Chosen = prev
		fb.IsCorrect = prev == q.Correct
		fb.Repeat = true
		return fb, nil
	}

	s.chosen[s.quizIndex] = choice
	fb.Chosen = choice
	fb.IsCorrect = choice == q.Correct
	if fb.IsCorrect {
		s.correct++
	}
	return fb, nil
}

// Advance moves past the answered current question. Moving past the last
// question scores the attempt, raises the best score if needed and
// persists it; the result is returned, nil before that.
func (s *Session) Advance(ctx context.Context) (*ops.RecordScoreOutput, error) {
	if err := s.requireOpenQuiz(); err != nil {
		return nil, err
	}
	if s.chosen[s.quizIndex] < 0 {
		return nil, errors.NewInvalidRequest("answer the current question first")
	}
	if s.quizIndex < len(s.capsule.Quiz)-1 {
		s.quizIndex++
		return nil, nil
	}

	out, err := ops.RecordScore(ctx, s.store, ops.RecordScoreInput{
		ID:    s.capsule.ID,
		Score: capsule.Percent(s.correct, len(s.capsule.Quiz)),
	})
	if err != nil {
		return nil, err
	}
	s.quizIndex = len(s.capsule.Quiz)
	s.result = out
	s.progress.BestScore = out.BestScore
	return out, nil
}

// Restart clears the quiz attempt.
func (s *Session) Restart() {
	s.resetQuiz()
}

// Finished reports whether the current attempt has been scored.
func (s *Session) Finished() bool {
	return s.result != nil
}

func (s *Session) requireOpenQuiz() error {
	if len(s.capsule.Quiz) == 0 {
		return errors.NewInvalidRequest("capsule has no quiz questions")
	}
	if s.result != nil {
		return errors.NewInvalidRequest("quiz finished; restart to try again")
	}
	return nil
}

func (s *Session) resetQuiz() {
	s.quizIndex = 0
	s.correct = 0
	s.result = nil
	s.chosen = make([]int, len(s.capsule.Quiz))
	for i := range s.chosen {
		s.chosen[i] = -1
	}
}

// Summary is the progress bar of the session.
type Summary struct {
	KnownCount      int `json:"knownCount"`
	TotalFlashcards int `json:"totalFlashcards"`
	KnownPercent    int `json:"knownPercent"`
	BestScore       int `json:"bestScore"`
}

// Summary reports known flashcards and the best quiz score.
func (s *Session) Summary() Summary {
	total := len(s.capsule.Flashcards)
	return Summary{
		KnownCount:      s.progress.KnownCount(total),
		TotalFlashcards: total,
		KnownPercent:    s.progress.KnownPercent(total),
		BestScore:       s.progress.BestScore,
	}
}

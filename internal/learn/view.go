package learn

import "github.com/hpungsan/pocket/internal/capsule"

// View is everything a surface needs to render the session.
type View struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Subject     string        `json:"subject"`
	Level       capsule.Level `json:"level"`
	Description string        `json:"description"`
	Mode        Mode          `json:"mode"`
	Notes       []string      `json:"notes"`
	Card        *CardView     `json:"card,omitempty"`
	Question    *QuestionView `json:"question,omitempty"`
	Result      *ResultView   `json:"result,omitempty"`
	Summary     Summary       `json:"summary"`
}

// CardView is the current flashcard.
type CardView struct {
	Index   int    `json:"index"`
	Total   int    `json:"total"`
	Front   string `json:"front"`
	Back    string `json:"back"`
	Flipped bool   `json:"flipped"`
	Known   bool   `json:"known"`
	IsFirst bool   `json:"isFirst"`
	IsLast  bool   `json:"isLast"`
}

// QuestionView is the current quiz question.
type QuestionView struct {
	Index    int       `json:"index"`
	Total    int       `json:"total"`
	Question string    `json:"question"`
	Choices  [4]string `json:"choices"`
	// Feedback is set once the question has been answered
	Feedback *Feedback `json:"feedback,omitempty"`
}

// ResultView is a finished attempt.
type ResultView struct {
	CorrectAnswers int  `json:"correctAnswers"`
	Total          int  `json:"total"`
	Score          int  `json:"score"`
	BestScore      int  `json:"bestScore"`
	Improved       bool `json:"improved"`
}

// View builds the view model of the current state.
func (s *Session) View() *View {
	c := s.capsule
	v := &View{
		ID:          c.ID,
		Title:       c.Meta.Title,
		Subject:     c.Meta.Subject,
		Level:       c.Meta.Level,
		Description: c.Meta.Description,
		Mode:        s.mode,
		Notes:       append([]string{}, c.Notes...),
		Summary:     s.Summary(),
	}

	if n := len(c.Flashcards); n > 0 {
		f := c.Flashcards[s.flashIndex]
		v.Card = &CardView{
			Index:   s.flashIndex,
			Total:   n,
			Front:   f.Front,
			Back:    f.Back,
			Flipped: s.flipped,
			Known:   s.progress.IsKnown(s.flashIndex),
			IsFirst: s.flashIndex == 0,
			IsLast:  s.flashIndex == n-1,
		}
	}

	switch {
	case s.result != nil:
		v.Result = &ResultView{
			CorrectAnswers: s.correct,
			Total:          len(c.Quiz),
			Score:          s.result.Score,
			BestScore:      s.result.BestScore,
			Improved:       s.result.Improved,
		}
	case len(c.Quiz) > 0:
		q := c.Quiz[s.quizIndex]
		qv := &QuestionView{
			Index:    s.quizIndex,
			Total:    len(c.Quiz),
			Question: q.Question,
			Choices:  q.Choices,
		}
		if chosen := s.chosen[s.quizIndex]; chosen >= 0 {
			qv.Feedback = &Feedback{
				Index:       s.quizIndex,
				Chosen:      chosen,
				Correct:     q.Correct,
				IsCorrect:   chosen == q.Correct,
				Explanation: q.Explanation,
			}
		}
		v.Question = qv
	}
	return v
}

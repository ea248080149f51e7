package capsule

import (
	"math"
	"slices"
)

// Progress is the per-capsule learner state.
type Progress struct {
	BestScore       int   `json:"bestScore"`
	KnownFlashcards []int `json:"knownFlashcards"`
}

// NewProgress returns the zero progress record.
func NewProgress() Progress {
	return Progress{KnownFlashcards: []int{}}
}

// Normalize sorts and dedups the known set and clamps the best score.
func (p *Progress) Normalize() {
	known := make([]int, 0, len(p.KnownFlashcards))
	for _, i := range p.KnownFlashcards {
		if i >= 0 {
			known = append(known, i)
		}
	}
	slices.Sort(known)
	p.KnownFlashcards = slices.Compact(known)
	p.BestScore = clamp(p.BestScore, 0, 100)
}

// IsKnown reports whether flashcard i is in the known set.
func (p *Progress) IsKnown(i int) bool {
	_, found := slices.BinarySearch(p.KnownFlashcards, i)
	return found
}

// MarkKnown adds i to the known set. It returns false if i was already known.
func (p *Progress) MarkKnown(i int) bool {
	pos, found := slices.BinarySearch(p.KnownFlashcards, i)
	if found {
		return false
	}
	p.KnownFlashcards = slices.Insert(p.KnownFlashcards, pos, i)
	return true
}

// MarkUnknown removes i from the known set. It returns false if i was not known.
func (p *Progress) MarkUnknown(i int) bool {
	pos, found := slices.BinarySearch(p.KnownFlashcards, i)
	if !found {
		return false
	}
	p.KnownFlashcards = slices.Delete(p.KnownFlashcards, pos, pos+1)
	return true
}

// KnownCount counts known indices that still point at a flashcard.
func (p *Progress) KnownCount(total int) int {
	n := 0
	for _, i := range p.KnownFlashcards {
		if i < total {
			n++
		}
	}
	return n
}

// KnownPercent is the rounded share of known flashcards, 0 when total is 0.
func (p *Progress) KnownPercent(total int) int {
	return Percent(p.KnownCount(total), total)
}

// RecordScore raises BestScore to score if it is higher and reports
// whether it changed.
func (p *Progress) RecordScore(score int) bool {
	if score > p.BestScore {
		p.BestScore = score
		return true
	}
	return false
}

// Percent returns round(n/total*100), rounding halves up, or 0 when total is 0.
func Percent(n, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(n)*100/float64(total) + 0.5))
}

// Segments splits a progress bar into quiz, flashcard and remaining shares.
type Segments struct {
	Quiz  int `json:"quiz"`
	Flash int `json:"flash"`
	Rest  int `json:"rest"`
}

// SplitSegments clamps quiz and flash so the three segments sum to 100.
func SplitSegments(bestScore, flashPercent int) Segments {
	quiz := clamp(bestScore, 0, 100)
	flash := clamp(flashPercent, 0, 100-quiz)
	return Segments{Quiz: quiz, Flash: flash, Rest: 100 - quiz - flash}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

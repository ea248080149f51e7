// Package library builds the capsule overview and keeps it fresh.
package library

import (
	"context"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/kv"
	"github.com/hpungsan/pocket/internal/ops"
)

// DefaultSubject labels a card whose capsule has no subject.
const DefaultSubject = "No subject"

// Card summarizes one capsule.
type Card struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Subject   string           `json:"subject"`
	Level     capsule.Level    `json:"level"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Updated   string           `json:"updated"` // relative, e.g. "3 minutes ago"
	BestScore int              `json:"bestScore"`
	Known     int              `json:"knownPercent"`
	Segments  capsule.Segments `json:"segments"`
	Counts    Counts           `json:"counts"`
	// Missing is set for an index entry without a capsule record
	Missing bool `json:"missing,omitempty"`
}

// Counts are the collection sizes of a capsule.
type Counts struct {
	Notes      int `json:"notes"`
	Flashcards int `json:"flashcards"`
	Quiz       int `json:"quiz"`
}

// View is the whole library.
type View struct {
	Cards []Card `json:"cards"`
}

// Build reads the index and renders one Card per entry, in index order.
func Build(ctx context.Context, store kv.Reader, now time.Time) (*View, error) {
	list, err := ops.List(ctx, store, ops.ListInput{Limit: ops.MaxListLimit})
	if err != nil {
		return nil, err
	}
	entries := list.Items
	for list.Pagination.HasMore {
		list, err = ops.List(ctx, store, ops.ListInput{
			Limit:  ops.MaxListLimit,
			Offset: list.Pagination.Offset + list.Pagination.Limit,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, list.Items...)
	}

	v := &View{Cards: make([]Card, 0, len(entries))}
	for _, e := range entries {
		card, err := buildCard(ctx, store, e, now)
		if err != nil {
			return nil, err
		}
		v.Cards = append(v.Cards, card)
	}
	return v, nil
}

func buildCard(ctx context.Context, store kv.Reader, e capsule.IndexEntry, now time.Time) (Card, error) {
	card := Card{
		ID:        e.ID,
		Title:     e.Title,
		Subject:   e.Subject,
		Level:     e.Level,
		UpdatedAt: e.UpdatedAt,
	}

	fetched, err := ops.Fetch(ctx, store, ops.FetchInput{ID: e.ID})
	switch {
	case err == nil:
		c := fetched.Capsule
		card.Title = firstNonBlank(card.Title, c.Meta.Title)
		card.Subject = firstNonBlank(card.Subject, c.Meta.Subject)
		card.Level = capsule.Level(firstNonBlank(string(card.Level), string(c.Meta.Level)))
		if card.UpdatedAt.IsZero() {
			card.UpdatedAt = c.Meta.UpdatedAt
		}
		card.Counts = Counts{Notes: len(c.Notes), Flashcards: len(c.Flashcards), Quiz: len(c.Quiz)}

		p, err := ops.GetProgress(ctx, store, ops.ProgressInput{ID: e.ID})
		if err != nil {
			return Card{}, err
		}
		card.BestScore = p.BestScore
		card.Known = p.KnownPercent
		card.Segments = p.Segments
	case errors.Is(err, errors.ErrNotFound):
		card.Missing = true
		card.Segments = capsule.SplitSegments(0, 0)
	default:
		return Card{}, err
	}

	card.Title = firstNonBlank(card.Title, capsule.DefaultTitle)
	card.Subject = firstNonBlank(card.Subject, DefaultSubject)
	card.Level = capsule.Level(firstNonBlank(string(card.Level), string(capsule.LevelBeginner)))
	card.Updated = relative(card.UpdatedAt, now)
	return card, nil
}

func relative(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	if t.After(now) {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

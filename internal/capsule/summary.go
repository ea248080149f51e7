package capsule

import "time"

// IndexEntry is the denormalized summary of a capsule kept in the index.
type IndexEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Subject   string    `json:"subject"`
	Level     Level     `json:"level"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ToIndexEntry builds the index entry for c.
func (c *Capsule) ToIndexEntry() IndexEntry {
	return IndexEntry{
		ID:        c.ID,
		Title:     c.Meta.Title,
		Subject:   c.Meta.Subject,
		Level:     c.Meta.Level,
		UpdatedAt: c.Meta.UpdatedAt,
	}
}

// Index is the ordered list of index entries.
type Index []IndexEntry

// Find returns the position of id, or -1.
func (idx Index) Find(id string) int {
	for i, e := range idx {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Upsert replaces the entry with the same id, or appends e.
func (idx Index) Upsert(e IndexEntry) Index {
	if i := idx.Find(e.ID); i >= 0 {
		out := append(Index{}, idx...)
		out[i] = e
		return out
	}
	return append(append(Index{}, idx...), e)
}

// Remove drops every entry with id, preserving order.
func (idx Index) Remove(id string) Index {
	out := make(Index, 0, len(idx))
	for _, e := range idx {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

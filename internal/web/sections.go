package web

import (
	"net/url"
	"strings"
)

// Section is one of the top-level views. Exactly one is visible.
type Section string

const (
	SectionLibrary Section = "library"
	SectionAuthor  Section = "author"
	SectionLearn   Section = "learn"
)

// Route is a visible section and the capsule it shows, if any.
type Route struct {
	Section Section
	ID      string
}

// Path is the URL that renders the route.
func (r Route) Path() string {
	switch r.Section {
	case SectionAuthor, SectionLearn:
		if r.ID != "" {
			return "/" + string(r.Section) + "/" + url.PathEscape(r.ID)
		}
		return "/" + string(r.Section)
	default:
		return "/library"
	}
}

// Show returns the route that makes section visible. Unknown sections show
// the Library; the Library never carries an id.
func Show(section, id string) Route {
	route := Route{Section: parseSection(section), ID: strings.TrimSpace(id)}
	if route.Section == SectionLibrary {
		route.ID = ""
	}
	return route
}

func parseSection(s string) Section {
	switch Section(strings.ToLower(strings.TrimSpace(s))) {
	case SectionAuthor:
		return SectionAuthor
	case SectionLearn:
		return SectionLearn
	default:
		return SectionLibrary
	}
}

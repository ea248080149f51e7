package web

import (
	"net/http"

	"github.com/hpungsan/pocket/internal/author"
	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/errors"
)

// HandleAuthor handles GET /author and GET /author/{id}. An unknown or
// missing id opens a fresh draft that is not stored until saved.
func (h *Handlers) HandleAuthor(w http.ResponseWriter, r *http.Request) {
	e, err := author.Open(r.Context(), h.store, r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderAuthor(w, r, http.StatusOK, e, e.IsNew(), "")
}

// HandleAuthorPost handles POST /author and POST /author/{id}.
// The "action" field selects save, cancel or an add/remove edit; edits
// re-render the form without storing anything.
func (h *Handlers) HandleAuthorPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	action := r.PostForm.Get(fieldAction)
	if action == "" {
		action = actionSave
	}
	if action == actionCancel {
		redirect(w, r, Show(string(SectionLibrary), "").Path())
		return
	}

	isNew := r.PostForm.Get("new") == "1"
	e := author.Edit(h.store, draftFromForm(r, r.PathValue("id")))

	if action != actionSave {
		if err := applyEdit(e, action); err != nil {
			h.renderAuthorError(w, r, e, isNew, err)
			return
		}
		h.renderAuthor(w, r, http.StatusOK, e, isNew, "")
		return
	}

	out, err := e.Save(r.Context())
	if err != nil {
		h.renderAuthorError(w, r, e, isNew, err)
		return
	}
	h.log.Info("capsule saved", "id", out.ID, "created", out.Created, "dropped", out.Dropped)

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}

	route := Show(string(SectionLibrary), "")
	h.renderer.renderPage(w, r, "saved", SavedPageData{
		PageData: PageData{
			Title:   "Saved",
			Version: h.renderer.version,
			Section: SectionAuthor,
		},
		Saved:      out,
		Redirect:   route.Path(),
		RedirectMS: h.cfg.SaveRedirectDelayMS,
	})
}

// renderAuthorError keeps the user's draft on screen with the problem shown.
func (h *Handlers) renderAuthorError(w http.ResponseWriter, r *http.Request, e *author.Editor, isNew bool, err error) {
	pErr, _ := errors.As(err)
	if wantsJSON(r) || pErr.Code == errors.ErrInternal {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderAuthor(w, r, pErr.Status, e, isNew, pErr.Message)
}

func (h *Handlers) renderAuthor(w http.ResponseWriter, r *http.Request, status int, e *author.Editor, isNew bool, message string) {
	draft := e.Draft()
	title := "Edit capsule"
	if isNew {
		title = "New capsule"
	}

	h.renderer.renderPageStatus(w, r, status, "author", AuthorPageData{
		PageData: PageData{
			Title:   title,
			Version: h.renderer.version,
			Section: SectionAuthor,
			Message: message,
		},
		Draft:    draft,
		IsNew:    isNew,
		Levels:   capsule.Levels,
		Warnings: capsule.Lint(draft).Warnings,
		Action:   Route{Section: SectionAuthor, ID: draft.ID}.Path(),
	})
}

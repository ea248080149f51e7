package web

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/learn"
	"github.com/hpungsan/pocket/internal/ops"
)

// HandleLearn handles GET /learn and GET /learn/{id}. Without an id the
// browser's current session continues, or the first capsule is opened.
func (h *Handlers) HandleLearn(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(w, r)
	ls, unlock, err := h.sessions.Lock(r.Context(), token, r.PathValue("id"))
	if err != nil {
		if pErr, _ := errors.As(err); pErr.Code == errors.ErrInvalidRequest && !wantsJSON(r) {
			// Nothing to study yet
			h.renderLearn(w, r, http.StatusOK, nil, pErr.Message)
			return
		}
		h.renderer.renderError(w, r, err)
		return
	}
	defer unlock()

	if m, ok := learn.ParseMode(r.URL.Query().Get("mode")); ok {
		_ = ls.s.SetMode(m)
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, ls.s.View())
		return
	}
	h.renderLearn(w, r, http.StatusOK, ls.s, "")
}

// HandleLearnAction handles POST /learn/{action}. The form's "id" names
// the capsule the page shows; a different id switches the session to it.
func (h *Handlers) HandleLearnAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	token := sessionToken(w, r)
	ls, unlock, err := h.sessions.Lock(r.Context(), token, r.PostForm.Get("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	defer unlock()

	s := ls.s
	var result any
	switch action := r.PathValue("action"); action {
	case "mode":
		err = s.SetMode(learn.Mode(r.PostForm.Get("mode")))
	case "cycle":
		s.CycleMode()
	case "flip":
		s.Flip()
	case "next":
		s.Next()
	case "prev":
		s.Prev()
	case "known":
		err = s.MarkKnown(r.Context())
	case "unknown":
		err = s.MarkUnknown(r.Context())
	case "answer":
		var choice int
		choice, err = strconv.Atoi(r.PostForm.Get("choice"))
		if err != nil {
			err = errors.NewInvalidRequest("choice must be a number")
			break
		}
		result, err = s.Answer(choice)
	case "advance":
		var out *ops.RecordScoreOutput
		out, err = s.Advance(r.Context())
		if out != nil {
			result = out
		}
	case "restart":
		s.Restart()
	case "switch":
		// Lock already switched to the requested capsule
	default:
		err = errors.NewInvalidRequest("unknown learn action: " + action)
	}

	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			h.sessions.Forget(token)
			h.renderer.renderError(w, r, err)
			return
		}
		pErr, _ := errors.As(err)
		if wantsJSON(r) || pErr.Code == errors.ErrInternal {
			h.renderer.renderError(w, r, err)
			return
		}
		h.renderLearn(w, r, pErr.Status, s, pErr.Message)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"view": s.View(), "result": result})
		return
	}
	if isPartial(r) {
		h.renderLearn(w, r, http.StatusOK, s, "")
		return
	}
	redirect(w, r, Show(string(SectionLearn), s.ID()).Path())
}

func (h *Handlers) renderLearn(w http.ResponseWriter, r *http.Request, status int, s *learn.Session, message string) {
	data := LearnPageData{
		PageData: PageData{
			Title:   "Learn",
			Version: h.renderer.version,
			Section: SectionLearn,
			Message: message,
		},
		Modes:     learn.Modes,
		AdvanceMS: h.cfg.QuizAdvanceDelayMS,
	}

	list, err := ops.List(r.Context(), h.store, ops.ListInput{Limit: ops.MaxListLimit})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	data.Capsules = list.Items

	if s != nil {
		data.View = s.View()
		data.Title = data.View.Title
		data.Notes = make([]template.HTML, len(data.View.Notes))
		for i, n := range data.View.Notes {
			data.Notes[i] = renderMarkdown(n)
		}
	}

	h.renderer.renderPageStatus(w, r, status, "learn", data)
}

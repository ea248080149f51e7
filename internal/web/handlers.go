package web

import (
	"net/http"
	"time"

	"github.com/hpungsan/pocket/internal/config"
	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/kv"
	"github.com/hpungsan/pocket/internal/library"
	"github.com/hpungsan/pocket/internal/logging"
	"github.com/hpungsan/pocket/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	store    kv.Store
	cfg      *config.Config
	renderer *Renderer
	sessions *Sessions
	watcher  *library.Watcher
	log      *logging.Logger
	now      func() time.Time
}

// HandleLibrary handles GET /library: one card per capsule.
func (h *Handlers) HandleLibrary(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		view, err := library.Build(r.Context(), h.store, h.now())
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		renderJSON(w, http.StatusOK, view)
		return
	}

	h.renderLibrary(w, r, http.StatusOK, "")
}

// renderLibrary renders the library page with an optional alert.
func (h *Handlers) renderLibrary(w http.ResponseWriter, r *http.Request, status int, message string) {
	view, err := library.Build(r.Context(), h.store, h.now())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPageStatus(w, r, status, "library", LibraryPageData{
		PageData: PageData{
			Title:   "Library",
			Version: h.renderer.version,
			Section: SectionLibrary,
			Message: message,
		},
		Cards: view.Cards,
	})
}

// libraryError shows a failed library action as an alert on the library
// page. Partial and JSON clients get the usual error response.
func (h *Handlers) libraryError(w http.ResponseWriter, r *http.Request, err error) {
	pErr, _ := errors.As(err)
	if isPartial(r) || wantsJSON(r) || pErr.Code == errors.ErrInternal {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderLibrary(w, r, pErr.Status, pErr.Message)
}

// HandleNew handles POST /library/new: create an empty capsule and open it
// in the editor.
func (h *Handlers) HandleNew(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Create(r.Context(), h.store, ops.CreateInput{})
	if err != nil {
		h.libraryError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusCreated, out)
		return
	}
	redirect(w, r, Show(string(SectionAuthor), out.ID).Path())
}

// HandleImport handles POST /library/import: import an uploaded capsule file.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	limit := h.cfg.ImportMaxBytes
	if limit <= 0 {
		limit = config.DefaultConfig().ImportMaxBytes
	}
	// Leave room for the multipart envelope; the file itself is checked below
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.libraryError(w, r, errors.NewInvalidRequest("choose a capsule file to import"))
		return
	}
	defer file.Close()

	data, err := ops.ReadImport(file, h.cfg)
	if err != nil {
		h.libraryError(w, r, err)
		return
	}

	out, err := ops.ImportData(r.Context(), h.store, ops.ImportDataInput{
		Data:   data,
		Source: header.Filename,
	})
	if err != nil {
		h.libraryError(w, r, err)
		return
	}

	h.log.Info("capsule imported", "id", out.ID, "file", header.Filename)
	if wantsJSON(r) {
		renderJSON(w, http.StatusCreated, out)
		return
	}
	redirect(w, r, Show(string(SectionLibrary), "").Path())
}

// HandleExport handles GET /capsules/{id}/export: download a capsule as JSON.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ExportData(r.Context(), h.store, ops.ExportDataInput{ID: r.PathValue("id")})
	if err != nil {
		h.libraryError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

// HandleDelete handles DELETE /capsules/{id} and POST /capsules/{id}/delete.
// The capsule, its index entry and its progress are removed together.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Delete(r.Context(), h.store, ops.DeleteInput{ID: r.PathValue("id")})
	if err != nil {
		h.libraryError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	redirect(w, r, Show(string(SectionLibrary), "").Path())
}

// redirect sends the client to path: HX-Redirect for htmx, 303 otherwise.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	if isPartial(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

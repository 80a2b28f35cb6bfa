package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Export handles POST /sessions/{id}/export.
//
//	@Summary		Save the current composite to the gallery
//	@Tags			gallery
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		ExportRequest	false	"Optional title"
//	@Success		201		{object}	GalleryPattern
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/export [post]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := sessionID(r)
	p, err := h.svc.Export(r.Context(), id, req.Title)
	if err != nil {
		writeError(w, err, "export", slog.String("session", id))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListGallery handles GET /gallery.
//
//	@Summary		List saved patterns, newest first
//	@Tags			gallery
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			session	query		string	false	"Filter by session ID"
//	@Success		200		{object}	GalleryListResponse
//	@Security		BearerAuth
//	@Router			/gallery [get]
func (h *Handler) ListGallery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.Gallery().List(r.Context(), limit, offset, q.Get("session"))
	if err != nil {
		writeError(w, err, "list gallery")
		return
	}
	writeJSON(w, http.StatusOK, GalleryListResponse{Patterns: items, Total: total})
}

// GetPattern handles GET /gallery/{id}.
//
//	@Summary		Get saved pattern metadata
//	@Tags			gallery
//	@Produce		json
//	@Param			id	path		string	true	"Pattern ID"
//	@Success		200	{object}	GalleryPattern
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/gallery/{id} [get]
func (h *Handler) GetPattern(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Gallery().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "get pattern")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PatternImage handles GET /gallery/{id}/image.png.
//
//	@Summary		Download a saved pattern
//	@Tags			gallery
//	@Produce		png
//	@Param			id	path	string	true	"Pattern ID"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/gallery/{id}/image.png [get]
func (h *Handler) PatternImage(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Gallery().ReadImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "read pattern image")
		return
	}
	writePNG(w, data)
}

// PatternThumbnail handles GET /gallery/{id}/thumb.png.
//
//	@Summary		Download a saved pattern thumbnail
//	@Tags			gallery
//	@Produce		png
//	@Param			id	path	string	true	"Pattern ID"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/gallery/{id}/thumb.png [get]
func (h *Handler) PatternThumbnail(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Gallery().ReadThumbnail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "read pattern thumbnail")
		return
	}
	writePNG(w, data)
}

// DeletePattern handles DELETE /gallery/{id}.
//
//	@Summary		Delete a saved pattern
//	@Tags			gallery
//	@Param			id	path	string	true	"Pattern ID"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/gallery/{id} [delete]
func (h *Handler) DeletePattern(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Gallery().Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, "delete pattern")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

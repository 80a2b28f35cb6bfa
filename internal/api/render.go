package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/tiedye/internal/preset"
	"github.com/starford/tiedye/internal/surface"
)

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Unfold handles POST /sessions/{id}/unfold.
//
//	@Summary		Unfold the garment and render the final pattern
//	@Tags			render
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	PatternSummary
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/unfold [post]
func (h *Handler) Unfold(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	sum, err := h.svc.Unfold(r.Context(), id)
	if err != nil {
		writeError(w, err, "unfold", slog.String("session", id))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Layer handles GET /sessions/{id}/layers/{layer}.png.
//
//	@Summary		Render one drawing layer as PNG
//	@Tags			render
//	@Produce		png
//	@Param			id		path	string	true	"Session ID"
//	@Param			layer	path	string	true	"Layer name"	Enums(folds, dye, final)
//	@Success		200
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/layers/{layer}.png [get]
func (h *Handler) Layer(w http.ResponseWriter, r *http.Request) {
	layer, err := surface.ParseLayer(strings.ToLower(chi.URLParam(r, "layer")))
	if err != nil {
		writeError(w, err, "layer")
		return
	}
	sess, err := h.svc.Session(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err, "layer")
		return
	}
	var buf bytes.Buffer
	if err := sess.EncodeLayer(layer, &buf); err != nil {
		writeError(w, err, "encode layer", slog.String("layer", string(layer)))
		return
	}
	writePNG(w, buf.Bytes())
}

// Composite handles GET /sessions/{id}/composite.png.
//
//	@Summary		Render the composited garment as PNG
//	@Tags			render
//	@Produce		png
//	@Param			id	path	string	true	"Session ID"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/composite.png [get]
func (h *Handler) Composite(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Session(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err, "composite")
		return
	}
	var buf bytes.Buffer
	if err := sess.EncodeComposite(&buf); err != nil {
		writeError(w, err, "encode composite")
		return
	}
	writePNG(w, buf.Bytes())
}

func presetItem(rc preset.Recipe) PresetItem {
	return PresetItem{
		Name:        rc.Name,
		Description: rc.Description,
		Folds:       len(rc.Folds),
		Strokes:     len(rc.Dyes),
		Unfold:      rc.Unfold,
	}
}

// ListPresets handles GET /presets.
//
//	@Summary		List loaded fold-and-dye recipes
//	@Tags			presets
//	@Produce		json
//	@Success		200	{object}	PresetListResponse
//	@Security		BearerAuth
//	@Router			/presets [get]
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	recipes := h.svc.Presets(r.Context())
	items := make([]PresetItem, len(recipes))
	for i, rc := range recipes {
		items[i] = presetItem(rc)
	}
	writeJSON(w, http.StatusOK, PresetListResponse{Presets: items})
}

// ApplyPreset handles POST /sessions/{id}/presets/{name}.
//
//	@Summary		Reset a session to a recipe
//	@Tags			presets
//	@Produce		json
//	@Param			id		path		string	true	"Session ID"
//	@Param			name	path		string	true	"Recipe name"
//	@Success		200		{object}	service.PresetResult
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/presets/{name} [post]
func (h *Handler) ApplyPreset(w http.ResponseWriter, r *http.Request) {
	id, name := sessionID(r), chi.URLParam(r, "name")
	res, err := h.svc.ApplyPreset(r.Context(), id, name)
	if err != nil {
		writeError(w, err, "apply preset", slog.String("session", id), slog.String("preset", name))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ImportPreset handles POST /presets.
//
//	@Summary		Upload a recipe into the preset directory
//	@Tags			presets
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ImportRecipeRequest	true	"Recipe file"
//	@Success		201		{object}	PresetItem
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/presets [post]
func (h *Handler) ImportPreset(w http.ResponseWriter, r *http.Request) {
	var req ImportRecipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Filename == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filename and content are required"))
		return
	}
	rc, err := h.svc.ImportRecipe(r.Context(), req.Filename, []byte(req.Content))
	if err != nil {
		writeError(w, err, "import preset", slog.String("file", req.Filename))
		return
	}
	writeJSON(w, http.StatusCreated, presetItem(rc))
}

package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/tiedye/internal/fold"
	"github.com/starford/tiedye/internal/pigment"
	"github.com/starford/tiedye/internal/service"
	"github.com/starford/tiedye/internal/studio"
)

// Handler holds API route handlers.
type Handler struct {
	svc *service.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// dispatch runs cmd on the session named in the URL and writes errors. ok is
// false when a response has already been written.
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, cmd studio.Command) (any, studio.State, bool) {
	id := sessionID(r)
	res, st, err := h.svc.Dispatch(r.Context(), id, cmd)
	if err != nil {
		writeError(w, err, cmd.Name(), slog.String("session", id))
		return nil, studio.State{}, false
	}
	return res, st, true
}

// CreateSession handles POST /sessions.
//
//	@Summary		Start a new studio session
//	@Tags			sessions
//	@Produce		json
//	@Success		201	{object}	SessionState
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.CreateSession(r.Context())
	if err != nil {
		writeError(w, err, "create session")
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// ListSessions handles GET /sessions.
//
//	@Summary		List live sessions, oldest first
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{object}	SessionListResponse
//	@Security		BearerAuth
//	@Router			/sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: h.svc.ListSessions(r.Context())})
}

// GetSession handles GET /sessions/{id}.
//
//	@Summary		Get a session snapshot
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	SessionState
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Session(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err, "get session")
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

// DeleteSession handles DELETE /sessions/{id}.
//
//	@Summary		End a session
//	@Tags			sessions
//	@Param			id	path	string	true	"Session ID"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSession(r.Context(), sessionID(r)); err != nil {
		writeError(w, err, "delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyFold handles POST /sessions/{id}/folds.
//
//	@Summary		Apply a fold
//	@Tags			folds
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session ID"
//	@Param			body	body		FoldRequest	true	"Fold kind and parameters"
//	@Success		201		{object}	FoldResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/folds [post]
func (h *Handler) ApplyFold(w http.ResponseWriter, r *http.Request) {
	var req FoldRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kind, err := fold.ParseKind(req.Kind)
	if err != nil {
		writeError(w, err, "apply fold")
		return
	}
	res, st, ok := h.dispatch(w, r, studio.ApplyFold{Kind: kind, Params: req.Params})
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, FoldResponse{Fold: res.(fold.Fold), State: st})
}

// UndoFold handles POST /sessions/{id}/folds/undo.
//
//	@Summary		Undo the newest fold
//	@Tags			folds
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	ChangeResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/folds/undo [post]
func (h *Handler) UndoFold(w http.ResponseWriter, r *http.Request) {
	res, st, ok := h.dispatch(w, r, studio.UndoFold{})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ChangeResponse{Changed: res.(bool), State: st})
}

// RedoFold handles POST /sessions/{id}/folds/redo.
//
//	@Summary		Redo the last undone fold
//	@Tags			folds
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	ChangeResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/folds/redo [post]
func (h *Handler) RedoFold(w http.ResponseWriter, r *http.Request) {
	res, st, ok := h.dispatch(w, r, studio.RedoFold{})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ChangeResponse{Changed: res.(bool), State: st})
}

// ClearFolds handles DELETE /sessions/{id}/folds.
//
//	@Summary		Remove every fold
//	@Tags			folds
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	SessionState
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/folds [delete]
func (h *Handler) ClearFolds(w http.ResponseWriter, r *http.Request) {
	if _, st, ok := h.dispatch(w, r, studio.ClearFolds{}); ok {
		writeJSON(w, http.StatusOK, st)
	}
}

// SetBrush handles PUT /sessions/{id}/brush.
//
//	@Summary		Update brush radius, intensity or color
//	@Tags			dye
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		BrushRequest	true	"Brush fields to change"
//	@Success		200		{object}	SessionState
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/brush [put]
func (h *Handler) SetBrush(w http.ResponseWriter, r *http.Request) {
	var req BrushRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var cmds []studio.Command
	if req.Color != nil {
		c, err := pigment.ParseHex(*req.Color)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		cmds = append(cmds, studio.SetColor{Color: c})
	}
	if req.Radius != nil {
		cmds = append(cmds, studio.SetBrush{Radius: *req.Radius})
	}
	if req.Intensity != nil {
		cmds = append(cmds, studio.SetIntensity{Value: *req.Intensity})
	}
	if len(cmds) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("radius, intensity or color is required"))
		return
	}
	var st studio.State
	for _, cmd := range cmds {
		var ok bool
		if _, st, ok = h.dispatch(w, r, cmd); !ok {
			return
		}
	}
	writeJSON(w, http.StatusOK, st)
}

// Stroke handles POST /sessions/{id}/strokes.
//
//	@Summary		Record a dye stroke
//	@Tags			dye
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		StrokeRequest	true	"Stroke points and brush overrides"
//	@Success		201		{object}	StrokeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/strokes [post]
func (h *Handler) Stroke(w http.ResponseWriter, r *http.Request) {
	var req StrokeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Points) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("points are required"))
		return
	}
	cmd := studio.Stroke{Points: req.Points, Intensity: req.Intensity, Radius: req.Radius}
	if req.Color != "" {
		c, err := pigment.ParseHex(req.Color)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		cmd.Color = &c
	}
	res, st, ok := h.dispatch(w, r, cmd)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, StrokeResponse{Recorded: res.(int), State: st})
}

// ClearDye handles DELETE /sessions/{id}/dye.
//
//	@Summary		Remove every dye point
//	@Tags			dye
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	SessionState
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/dye [delete]
func (h *Handler) ClearDye(w http.ResponseWriter, r *http.Request) {
	if _, st, ok := h.dispatch(w, r, studio.ClearDye{}); ok {
		writeJSON(w, http.StatusOK, st)
	}
}

// MixAt handles GET /sessions/{id}/mix.
//
//	@Summary		Sample the mixed dye color at a point
//	@Tags			dye
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Param			x	query		number	true	"X coordinate"
//	@Param			y	query		number	true	"Y coordinate"
//	@Success		200	{object}	MixResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/mix [get]
func (h *Handler) MixAt(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if errX != nil || errY != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("x and y must be numbers"))
		return
	}
	sess, err := h.svc.Session(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err, "mix")
		return
	}
	c := sess.MixAt(x, y)
	writeJSON(w, http.StatusOK, MixResponse{X: x, Y: y, Color: c.Hex(), R: c.R, G: c.G, B: c.B})
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/tiedye/internal/service"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *service.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions", h.ListSessions)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)

		// Folding.
		r.Post("/folds", h.ApplyFold)
		r.Delete("/folds", h.ClearFolds)
		r.Post("/folds/undo", h.UndoFold)
		r.Post("/folds/redo", h.RedoFold)

		// Dyeing.
		r.Put("/brush", h.SetBrush)
		r.Post("/strokes", h.Stroke)
		r.Delete("/dye", h.ClearDye)
		r.Get("/mix", h.MixAt)

		// Rendering.
		r.Post("/unfold", h.Unfold)
		r.Get("/layers/{layer}.png", h.Layer)
		r.Get("/composite.png", h.Composite)

		r.Post("/presets/{name}", h.ApplyPreset)
		r.Post("/export", h.Export)
	})

	r.Get("/presets", h.ListPresets)
	r.Post("/presets", h.ImportPreset)

	r.Get("/gallery", h.ListGallery)
	r.Get("/gallery/{id}", h.GetPattern)
	r.Delete("/gallery/{id}", h.DeletePattern)
	r.Get("/gallery/{id}/image.png", h.PatternImage)
	r.Get("/gallery/{id}/thumb.png", h.PatternThumbnail)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

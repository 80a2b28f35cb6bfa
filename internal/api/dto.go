package api

import (
	"github.com/starford/tiedye/internal/fold"
	"github.com/starford/tiedye/internal/gallery"
	"github.com/starford/tiedye/internal/geom"
	"github.com/starford/tiedye/internal/studio"
)

// SessionState is the full session snapshot (aliased from the domain layer).
type SessionState = studio.State

// SessionSummary is a lightweight item in the session list.
type SessionSummary = studio.Summary

// SessionListResponse wraps the live sessions.
type SessionListResponse struct {
	Sessions []SessionSummary `json:"sessions" validate:"required"`
}

// FoldRequest is the request body for applying a fold. Parameters that do
// not apply to the kind are ignored.
type FoldRequest struct {
	Kind string `json:"kind" example:"accordion" validate:"required"`
	fold.Params
}

// FoldResponse returns the applied fold and the resulting state.
type FoldResponse struct {
	Fold  fold.Fold    `json:"fold" validate:"required"`
	State SessionState `json:"state" validate:"required"`
}

// ChangeResponse reports whether an undo or redo changed anything.
type ChangeResponse struct {
	Changed bool         `json:"changed" example:"true"`
	State   SessionState `json:"state" validate:"required"`
}

// BrushRequest updates any subset of the brush.
type BrushRequest struct {
	Radius    *float64 `json:"radius,omitempty" example:"30"`
	Intensity *float64 `json:"intensity,omitempty" example:"70"`
	Color     *string  `json:"color,omitempty" example:"#d6267a"`
}

// StrokeRequest records a whole stroke. Brush fields override the current
// brush and stay in effect.
type StrokeRequest struct {
	Points    []geom.Point `json:"points" validate:"required"`
	Color     string       `json:"color,omitempty" example:"#3366ff"`
	Intensity *float64     `json:"intensity,omitempty" example:"80"`
	Radius    *float64     `json:"radius,omitempty" example:"25"`
}

// StrokeResponse reports how many points landed on the garment.
type StrokeResponse struct {
	Recorded int          `json:"recorded" example:"12"`
	State    SessionState `json:"state" validate:"required"`
}

// MixResponse is the dye color at a point.
type MixResponse struct {
	X     float64 `json:"x" example:"400"`
	Y     float64 `json:"y" example:"400"`
	Color string  `json:"color" example:"#7f0080"`
	R     uint8   `json:"r"`
	G     uint8   `json:"g"`
	B     uint8   `json:"b"`
}

// PatternSummary describes an unfolded pattern.
type PatternSummary = studio.PatternSummary

// PresetItem is one recipe in the preset list.
type PresetItem struct {
	Name        string `json:"name" example:"bullseye" validate:"required"`
	Description string `json:"description,omitempty"`
	Folds       int    `json:"folds" example:"1"`
	Strokes     int    `json:"strokes" example:"3"`
	Unfold      bool   `json:"unfold"`
}

// PresetListResponse wraps the loaded recipes.
type PresetListResponse struct {
	Presets []PresetItem `json:"presets" validate:"required"`
}

// ImportRecipeRequest uploads a recipe file.
type ImportRecipeRequest struct {
	Filename string `json:"filename" example:"sunburst.yaml" validate:"required"`
	Content  string `json:"content" example:"folds:\n  - kind: spiral\n" validate:"required"`
}

// ExportRequest is the request body for saving a pattern.
type ExportRequest struct {
	Title string `json:"title,omitempty" example:"blue spiral"`
}

// GalleryPattern is a saved pattern (aliased from the gallery layer).
type GalleryPattern = gallery.Pattern

// GalleryListResponse wraps paginated gallery listings.
type GalleryListResponse struct {
	Patterns []GalleryPattern `json:"patterns" validate:"required"`
	Total    int              `json:"total" example:"42" validate:"required"`
}

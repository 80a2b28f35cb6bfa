// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the tie-dye studio as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tiedye/internal/fold"
	"github.com/starford/tiedye/internal/geom"
	"github.com/starford/tiedye/internal/pigment"
	"github.com/starford/tiedye/internal/service"
	"github.com/starford/tiedye/internal/studio"
)

const recipeFormatURI = "tiedye://recipe-format"

// Server wraps the MCP server with the studio tools.
type Server struct {
	mcp *server.MCPServer
	svc *service.Service
}

// New creates a new MCP server with every studio tool registered.
func New(svc *service.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Tie-Dye Studio",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Start a new garment session. Returns the session state including its id."),
	), s.createSession)

	s.mcp.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List live sessions, oldest first."),
	), s.listSessions)

	s.mcp.AddTool(mcp.NewTool("session_state",
		mcp.WithDescription("Return folds, layer count, brush and dye state of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	), s.sessionState)

	s.mcp.AddTool(mcp.NewTool("apply_fold",
		mcp.WithDescription("Fold the garment. Each fold multiplies the layer count; "+
			"folds beyond the layer cap are rejected."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Fold family"),
			mcp.Enum(string(fold.Accordion), string(fold.Spiral), string(fold.Crumple), string(fold.Diagonal))),
		mcp.WithString("direction", mcp.Description("Accordion crease direction"),
			mcp.Enum(string(fold.Horizontal), string(fold.Vertical))),
		mcp.WithNumber("fold_count", mcp.Description("Accordion crease count (default 1)")),
		mcp.WithNumber("rotations", mcp.Description("Spiral turns (minimum 1)")),
		mcp.WithNumber("center_x", mcp.Description("Spiral center x (default garment center)")),
		mcp.WithNumber("center_y", mcp.Description("Spiral center y (default garment center)")),
		mcp.WithNumber("anchor_count", mcp.Description("Number of random crumple anchors (default 5)")),
		mcp.WithNumber("angle_degrees", mcp.Description("Diagonal fold angle")),
	), s.applyFold)

	s.mcp.AddTool(mcp.NewTool("undo_fold",
		mcp.WithDescription("Undo the newest fold."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	), s.undoFold)

	s.mcp.AddTool(mcp.NewTool("redo_fold",
		mcp.WithDescription("Redo the most recently undone fold."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	), s.redoFold)

	s.mcp.AddTool(mcp.NewTool("set_brush",
		mcp.WithDescription("Change brush radius (5-100), intensity (0-100) or color (#rrggbb)."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithNumber("radius", mcp.Description("Brush radius in pixels")),
		mcp.WithNumber("intensity", mcp.Description("Dye intensity")),
		mcp.WithString("color", mcp.Description("Dye color as #rrggbb")),
	), s.setBrush)

	s.mcp.AddTool(mcp.NewTool("dye_stroke",
		mcp.WithDescription("Apply dye along a stroke. Points off the garment are skipped. "+
			"Brush overrides stay in effect for later strokes."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithArray("points", mcp.Required(), mcp.Description("Stroke points in garment pixels"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"x": map[string]any{"type": "number"},
					"y": map[string]any{"type": "number"},
				},
				"required": []string{"x", "y"},
			})),
		mcp.WithString("color", mcp.Description("Dye color as #rrggbb")),
		mcp.WithNumber("intensity", mcp.Description("Dye intensity")),
		mcp.WithNumber("radius", mcp.Description("Brush radius")),
	), s.dyeStroke)

	s.mcp.AddTool(mcp.NewTool("clear_dye",
		mcp.WithDescription("Remove every dye point from a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	), s.clearDye)

	s.mcp.AddTool(mcp.NewTool("unfold",
		mcp.WithDescription("Unfold the garment and render the final symmetric pattern."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	), s.unfold)

	s.mcp.AddTool(mcp.NewTool("mix_at_point",
		mcp.WithDescription("Sample the mixed dye color at a garment point."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("X coordinate")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Y coordinate")),
	), s.mixAtPoint)

	s.mcp.AddTool(mcp.NewTool("list_presets",
		mcp.WithDescription("List loaded fold-and-dye recipes."),
	), s.listPresets)

	s.mcp.AddTool(mcp.NewTool("apply_preset",
		mcp.WithDescription("Reset a session and replay a recipe."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Recipe name")),
	), s.applyPreset)

	s.mcp.AddTool(mcp.NewTool("import_recipe",
		mcp.WithDescription("Add a recipe to the preset directory. The source is inline YAML, "+
			"a base64 data URI or an http(s) URL. Read the format first via get_recipe_format "+
			"or the "+recipeFormatURI+" resource."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Recipe content, data URI or URL")),
		mcp.WithString("filename", mcp.Description("Target file name ending in .yaml, .yml or .md")),
	), s.importRecipe)

	s.mcp.AddTool(mcp.NewTool("get_recipe_format",
		mcp.WithDescription("Returns the recipe file format."),
	), s.getRecipeFormat)

	s.mcp.AddTool(mcp.NewTool("export_pattern",
		mcp.WithDescription("Save the session's current composite image to the gallery."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("title", mcp.Description("Optional title")),
	), s.exportPattern)

	s.mcp.AddResource(
		mcp.NewResource(recipeFormatURI, "Recipe Format",
			mcp.WithResourceDescription("YAML format of fold-and-dye recipes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecipeFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func hasArg(req mcp.CallToolRequest, key string) bool {
	_, ok := req.GetArguments()[key]
	return ok
}

func (s *Server) dispatch(ctx context.Context, req mcp.CallToolRequest, cmd studio.Command) (any, studio.State, *mcp.CallToolResult) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return nil, studio.State{}, mcp.NewToolResultError(err.Error())
	}
	res, st, err := s.svc.Dispatch(ctx, id, cmd)
	if err != nil {
		return nil, studio.State{}, mcp.NewToolResultError(err.Error())
	}
	return res, st, nil
}

func (s *Server) createSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.CreateSession(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st)
}

func (s *Server) listSessions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.ListSessions(ctx))
}

func (s *Server) sessionState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.svc.Session(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sess.State())
}

func (s *Server) applyFold(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := fold.ParseKind(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p := fold.Params{
		Direction:    fold.Direction(req.GetString("direction", "")),
		FoldCount:    req.GetInt("fold_count", 0),
		Rotations:    req.GetFloat("rotations", 0),
		AnchorCount:  req.GetInt("anchor_count", 0),
		AngleDegrees: req.GetFloat("angle_degrees", 0),
	}
	if hasArg(req, "center_x") && hasArg(req, "center_y") {
		p.Center = &geom.Point{X: req.GetFloat("center_x", 0), Y: req.GetFloat("center_y", 0)}
	}
	res, st, fail := s.dispatch(ctx, req, studio.ApplyFold{Kind: kind, Params: p})
	if fail != nil {
		return fail, nil
	}
	return jsonResult(map[string]any{"fold": res, "layer_count": st.LayerCount, "folds": len(st.Folds)})
}

func (s *Server) undoFold(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.change(ctx, req, studio.UndoFold{})
}

func (s *Server) redoFold(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.change(ctx, req, studio.RedoFold{})
}

func (s *Server) change(ctx context.Context, req mcp.CallToolRequest, cmd studio.Command) (*mcp.CallToolResult, error) {
	res, st, fail := s.dispatch(ctx, req, cmd)
	if fail != nil {
		return fail, nil
	}
	return jsonResult(map[string]any{"changed": res, "layer_count": st.LayerCount, "redo_depth": st.RedoDepth})
}

func (s *Server) setBrush(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var cmds []studio.Command
	if hasArg(req, "color") {
		c, err := pigment.ParseHex(req.GetString("color", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		cmds = append(cmds, studio.SetColor{Color: c})
	}
	if hasArg(req, "radius") {
		cmds = append(cmds, studio.SetBrush{Radius: req.GetFloat("radius", 0)})
	}
	if hasArg(req, "intensity") {
		cmds = append(cmds, studio.SetIntensity{Value: req.GetFloat("intensity", 0)})
	}
	if len(cmds) == 0 {
		return mcp.NewToolResultError("radius, intensity or color is required"), nil
	}
	var st studio.State
	for _, cmd := range cmds {
		var fail *mcp.CallToolResult
		if _, st, fail = s.dispatch(ctx, req, cmd); fail != nil {
			return fail, nil
		}
	}
	return jsonResult(st.Brush)
}

// strokePoints decodes the "points" argument, which arrives as generic JSON.
func strokePoints(req mcp.CallToolRequest) ([]geom.Point, error) {
	raw, ok := req.GetArguments()["points"]
	if !ok {
		return nil, fmt.Errorf("required argument \"points\" not found")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var pts []geom.Point
	if err := json.Unmarshal(data, &pts); err != nil {
		return nil, fmt.Errorf("points: %w", err)
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("points must not be empty")
	}
	return pts, nil
}

func (s *Server) dyeStroke(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pts, err := strokePoints(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cmd := studio.Stroke{Points: pts}
	if hasArg(req, "color") {
		c, err := pigment.ParseHex(req.GetString("color", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		cmd.Color = &c
	}
	if hasArg(req, "intensity") {
		v := req.GetFloat("intensity", 0)
		cmd.Intensity = &v
	}
	if hasArg(req, "radius") {
		v := req.GetFloat("radius", 0)
		cmd.Radius = &v
	}
	res, st, fail := s.dispatch(ctx, req, cmd)
	if fail != nil {
		return fail, nil
	}
	return jsonResult(map[string]any{"recorded": res, "dye_points": st.DyePoints, "layer_count": st.LayerCount})
}

func (s *Server) clearDye(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, _, fail := s.dispatch(ctx, req, studio.ClearDye{}); fail != nil {
		return fail, nil
	}
	return mcp.NewToolResultText("dye cleared"), nil
}

func (s *Server) unfold(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sum, err := s.svc.Unfold(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sum)
}

func (s *Server) mixAtPoint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, err := req.RequireFloat("x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	y, err := req.RequireFloat("y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.svc.Session(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(sess.MixAt(x, y).Hex()), nil
}

func (s *Server) listPresets(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recipes := s.svc.Presets(ctx)
	if len(recipes) == 0 {
		return mcp.NewToolResultText("no presets loaded"), nil
	}
	return jsonResult(recipes)
}

func (s *Server) applyPreset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ApplyPreset(ctx, id, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) exportPattern(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.Export(ctx, id, req.GetString("title", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(p)
}

func (s *Server) getRecipeFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecipeFormat), nil
}

func (s *Server) readRecipeFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      recipeFormatURI,
			MIMEType: "text/markdown",
			Text:     RecipeFormat,
		},
	}, nil
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// App holds the server-wide wiring: configuration, the live session and the
// collaborators a replacement session is built from when one ends.
type App struct {
	cfg     *Config
	model   SceneModel
	frames  FrameSource
	memory  *SceneMemory
	archive *SessionArchive
	speech  *SpeechIO
	logger  *log.Logger

	mu      sync.Mutex
	session *Session
	surface *Surface
}

func newApp(cfg *Config, model SceneModel, frames FrameSource, memory *SceneMemory, archive *SessionArchive, speech *SpeechIO, logger *log.Logger) *App {
	a := &App{
		cfg:     cfg,
		model:   model,
		frames:  frames,
		memory:  memory,
		archive: archive,
		speech:  speech,
		logger:  logger,
		surface: NewSurface(1280, 720),
	}
	a.session = a.newSession()
	return a
}

func (a *App) newSession() *Session {
	return NewSession(a.cfg, a.model, a.frames, SessionOptions{
		Memory:  a.memory,
		Archive: a.archive,
		Speech:  a.speech,
		Logger:  a.logger,
	})
}

func (a *App) currentSession() *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func toolArgs(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	return args
}

// scanRoomHandler handles the scan_room tool: one detection pass over the
// current camera frame.
func (a *App) scanRoomHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := a.currentSession().Scan(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scan failed: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Scene: %s\nMood: %s, lighting: %s\n", result.Scene, result.Mood, result.Lighting)
	fmt.Fprintf(&b, "Detected %d objects:\n", len(result.Objects))
	for _, obj := range result.Objects {
		fmt.Fprintf(&b, "- %s (%s): %s\n", obj.Name, obj.Category, obj.Description)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// askAssistantHandler handles the ask_assistant tool: one conversational
// turn against the live scene.
func (a *App) askAssistantHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	question, _ := args["question"].(string)
	if question = strings.TrimSpace(question); question == "" {
		return mcp.NewToolResultError("Question cannot be empty"), nil
	}

	answer, err := a.currentSession().Ask(ctx, question)
	if err != nil {
		if IsQuotaExhausted(err) {
			return mcp.NewToolResultError("Model quota exhausted, please retry shortly"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Assistant failed: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString(answer.Text)
	if len(answer.Sources) > 0 {
		b.WriteString("\n\nSources:\n")
		for _, src := range answer.Sources {
			fmt.Fprintf(&b, "- %s (%s)\n", src.Title, src.URL)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// suggestProductsHandler handles the suggest_products tool.
func (a *App) suggestProductsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	userContext, _ := args["context"].(string)

	result, err := a.currentSession().Suggest(ctx, userContext)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Suggestion failed: %v", err)), nil
	}

	var b strings.Builder
	if result.RoomSummary != "" {
		b.WriteString(result.RoomSummary)
		b.WriteString("\n\n")
	}
	for _, sug := range result.Suggestions {
		fmt.Fprintf(&b, "[%s] %s (%s, impact: %s)\n  %s\n  Placement: %s\n  Shop: %s\n",
			sug.ID, sug.Name, sug.EstimatedPrice, sug.Impact, sug.Reason, sug.Placement, sug.ShoppingURL())
	}
	return mcp.NewToolResultText(b.String()), nil
}

// previewProductHandler handles the preview_product tool: generates an
// in-room preview image for one suggestion and saves it next to the data dir.
func (a *App) previewProductHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	id, _ := args["id"].(string)
	if id = strings.TrimSpace(id); id == "" {
		return mcp.NewToolResultError("Suggestion ID cannot be empty"), nil
	}

	session := a.currentSession()
	if err := session.GeneratePreview(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Preview failed: %v", err)), nil
	}

	for _, sug := range session.Suggestions() {
		if sug.ID == id && sug.PreviewState == PreviewLoaded {
			path := filepath.Join(a.cfg.DataDir, fmt.Sprintf("preview_%s.png", id))
			if err := os.WriteFile(path, sug.PreviewImage, 0o644); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to write preview: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Preview for %s saved to %s", sug.Name, path)), nil
		}
	}
	return mcp.NewToolResultText("Preview result was superseded by a newer suggestion list."), nil
}

// listObjectsHandler handles the list_objects tool.
func (a *App) listObjectsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session := a.currentSession()
	objects := session.Registry().Objects()
	if len(objects) == 0 {
		return mcp.NewToolResultText("No objects detected yet. Run scan_room first."), nil
	}

	selected := ""
	if sel, ok := session.Registry().Selected(); ok {
		selected = sel.Name
	}

	var b strings.Builder
	for _, obj := range objects {
		marker := " "
		if obj.Name == selected {
			marker = "*"
		}
		styled := ""
		if t, ok := session.Registry().Transform(obj.Name); ok {
			styled = fmt.Sprintf(" [styled: %s/%s]", t.Style, t.Fidelity)
		}
		fmt.Fprintf(&b, "%s %s (%s) box=[%.2f %.2f %.2f %.2f]%s\n",
			marker, obj.Name, obj.Category, obj.Box.X1, obj.Box.Y1, obj.Box.X2, obj.Box.Y2, styled)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// selectObjectHandler handles the select_object tool. With a "name" the
// object is selected directly; with "x"/"y" the registry is hit-tested at
// normalized viewport coordinates.
func (a *App) selectObjectHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	session := a.currentSession()

	if name, _ := args["name"].(string); strings.TrimSpace(name) != "" {
		name = strings.TrimSpace(name)
		if !session.Registry().Select(name) {
			return mcp.NewToolResultError(fmt.Sprintf("No detected object named %q", name)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Selected %s.", name)), nil
	}

	x, xok := args["x"].(float64)
	y, yok := args["y"].(float64)
	if !xok || !yok {
		return mcp.NewToolResultError("Provide either an object name or x/y tap coordinates"), nil
	}
	obj, ok := session.Registry().HitTest(x, y)
	if !ok {
		return mcp.NewToolResultText("Nothing at that point."), nil
	}
	session.Registry().Select(obj.Name)
	return mcp.NewToolResultText(fmt.Sprintf("Selected %s.", obj.Name)), nil
}

func (a *App) resolveTarget(args map[string]any) (string, error) {
	session := a.currentSession()
	if name, _ := args["object"].(string); strings.TrimSpace(name) != "" {
		return strings.TrimSpace(name), nil
	}
	if sel, ok := session.Registry().Selected(); ok {
		return sel.Name, nil
	}
	return "", fmt.Errorf("no object given and nothing selected")
}

// applyStyleHandler handles the apply_style tool: instant local restyle of
// one object.
func (a *App) applyStyleHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	target, err := a.resolveTarget(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	styleArg, _ := args["style"].(string)
	style := StyleID(styleArg)
	if style == "" {
		style = a.currentSession().ActiveStyle()
	}

	t, err := a.currentSession().ApplyStyle(ctx, target, style)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Apply failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Applied %s style to %s (instant preview). Use upgrade_style for a high-definition render.", t.Style, t.ObjectName)), nil
}

// upgradeStyleHandler handles the upgrade_style tool: high-definition
// generative restyle of one object.
func (a *App) upgradeStyleHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	target, err := a.resolveTarget(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	styleArg, _ := args["style"].(string)

	session := a.currentSession()
	style := StyleID(styleArg)
	if style == "" {
		style = session.ActiveStyle()
	}
	t, err := session.UpgradeStyle(ctx, target, style)
	if err != nil {
		if notice, ok := session.LastFailureNotice(); ok {
			return mcp.NewToolResultError(notice), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Upgrade failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("High-definition %s render ready for %s.", t.Style, t.ObjectName)), nil
}

// retryUpgradeHandler handles the retry_upgrade tool.
func (a *App) retryUpgradeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session := a.currentSession()
	t, err := session.RetryUpgrade(ctx)
	if err != nil {
		if notice, ok := session.LastFailureNotice(); ok {
			return mcp.NewToolResultError(notice), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Retry failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("High-definition %s render ready for %s.", t.Style, t.ObjectName)), nil
}

// setStyleHandler handles the set_style tool: picks the session-wide
// aesthetic used by chat answers and transforms.
func (a *App) setStyleHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	styleArg, _ := args["style"].(string)

	if err := a.currentSession().SetActiveStyle(StyleID(styleArg)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if styleArg == "" {
		return mcp.NewToolResultText("Active style cleared."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Active style set to %s.", styleArg)), nil
}

// clearOverlaysHandler handles the clear_overlays tool.
func (a *App) clearOverlaysHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := a.currentSession().Registry().ClearTransforms()
	return mcp.NewToolResultText(fmt.Sprintf("Cleared %d overlay(s).", n)), nil
}

// renderViewHandler handles the render_view tool: draws the current overlay
// state onto the surface and writes the PNG to disk.
func (a *App) renderViewHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	if w, ok := args["width"].(float64); ok {
		if h, hok := args["height"].(float64); hok && w > 0 && h > 0 {
			a.mu.Lock()
			a.surface.Resize(int(w), int(h))
			a.mu.Unlock()
		}
	}

	a.mu.Lock()
	surface := a.surface
	a.mu.Unlock()

	RenderOverlay(surface, a.currentSession().Registry().Snapshot())
	data, err := surface.EncodePNG()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Render failed: %v", err)), nil
	}

	path, _ := args["path"].(string)
	if path == "" {
		path = filepath.Join(a.cfg.DataDir, "view.png")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to write render: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Rendered view saved to %s", path)), nil
}

// autoScanHandler handles the auto_scan tool: toggles the periodic
// background detection loop.
func (a *App) autoScanHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)
	enabled, _ := args["enabled"].(bool)

	session := a.currentSession()
	if enabled {
		if session.AutoScanning() {
			return mcp.NewToolResultText("Auto-scan is already running."), nil
		}
		// Detached from the request so the loop outlives this call.
		session.StartAutoScan(context.WithoutCancel(ctx))
		return mcp.NewToolResultText(fmt.Sprintf("Auto-scan started (every %s).", a.cfg.AutoScanInterval())), nil
	}
	session.StopAutoScan()
	return mcp.NewToolResultText("Auto-scan stopped."), nil
}

// statusHandler handles the get_status tool.
func (a *App) statusHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session := a.currentSession()
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s\nStatus: %s\n", session.ID(), session.Status())
	if d := session.ProcessingTime(); d > 0 {
		fmt.Fprintf(&b, "Last answer took %s\n", d.Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "Objects: %d, overlays: %d, suggestions: %d\n",
		len(session.Registry().Objects()), len(session.Registry().Transforms()), len(session.Suggestions()))
	if style := session.ActiveStyle(); style != "" {
		fmt.Fprintf(&b, "Active style: %s\n", style)
	}
	if notice, ok := session.LastFailureNotice(); ok {
		fmt.Fprintf(&b, "Pending notice: %s\n", notice)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// listSessionsHandler handles the list_sessions tool.
func (a *App) listSessionsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if a.archive == nil {
		return mcp.NewToolResultText("No session archive is configured."), nil
	}
	records, err := a.archive.ListSessions()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list sessions: %v", err)), nil
	}
	if len(records) == 0 {
		return mcp.NewToolResultText("No archived sessions."), nil
	}

	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%s  %s  %d objects, %d turns, %d suggestions\n",
			r.ID, r.EndedAt.Format("2006-01-02 15:04"), len(r.Objects), len(r.Transcript), len(r.Suggestions))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// endSessionHandler handles the end_session tool: archives the live session
// and starts a fresh one.
func (a *App) endSessionHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a.mu.Lock()
	old := a.session
	a.session = a.newSession()
	a.mu.Unlock()

	if err := old.End(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Session ended but archiving failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s archived. A new session has started.", old.ID())), nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"google.golang.org/genai"
)

func main() {
	testMode := flag.Bool("t", false, "Run in interactive CLI test mode")
	frameDir := flag.String("frames", "", "Directory of camera frames (overrides config)")
	flag.Parse()

	ctx := context.Background()
	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := LoadConfig(logger)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *frameDir != "" {
		cfg.FrameDir = *frameDir
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		log.Fatalf("Failed to create GenAI client: %v", err)
	}

	var frames FrameSource
	if cfg.FrameDir != "" {
		frames, err = NewDirFrameSource(cfg.FrameDir)
		if err != nil {
			log.Fatalf("Failed to open frame directory: %v", err)
		}
	} else {
		frames = &StaticFrameSource{}
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	embFunc := makeGeminiEmbedder(client, cfg.EmbeddingModel)
	memory, err := NewSceneMemory(filepath.Join(cfg.DataDir, "memory"), embFunc, logger)
	if err != nil {
		logger.Printf("Warning: scene memory unavailable: %v", err)
		memory = nil
	}

	archive, err := NewSessionArchive(filepath.Join(cfg.DataDir, "sessions"))
	if err != nil {
		logger.Printf("Warning: session archive unavailable: %v", err)
		archive = nil
	} else {
		defer archive.Close()
	}

	var speech *SpeechIO
	if cfg.SpeechEnabled && *testMode {
		speech = NewSpeechIO(nil, stdoutSynthesizer{}, cfg.SpeechLocale, logger)
	}

	model := newGeminiModel(client, cfg, logger)
	app := newApp(cfg, model, frames, memory, archive, speech, logger)

	if *testMode {
		app.runInteractiveCLI(ctx)
		return
	}

	s := server.NewMCPServer(ServerName, ServerVersion)

	// --- Tool Registration ---

	s.AddTool(mcp.NewTool("scan_room",
		mcp.WithDescription("Captures the current camera frame and detects the objects in the room."),
	), app.scanRoomHandler)

	s.AddTool(mcp.NewTool("ask_assistant",
		mcp.WithDescription("Asks the assistant a question about the current scene."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to ask")),
	), app.askAssistantHandler)

	s.AddTool(mcp.NewTool("suggest_products",
		mcp.WithDescription("Suggests products that would improve the current room, with shopping links."),
		mcp.WithString("context", mcp.Description("Optional extra context, e.g. budget or taste")),
	), app.suggestProductsHandler)

	s.AddTool(mcp.NewTool("preview_product",
		mcp.WithDescription("Generates an in-room preview image for one product suggestion."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Suggestion ID from suggest_products")),
	), app.previewProductHandler)

	s.AddTool(mcp.NewTool("list_objects",
		mcp.WithDescription("Lists the detected objects and their overlay state."),
	), app.listObjectsHandler)

	s.AddTool(mcp.NewTool("select_object",
		mcp.WithDescription("Selects an object by name, or by tapping normalized viewport coordinates."),
		mcp.WithString("name", mcp.Description("Object name to select")),
		mcp.WithNumber("x", mcp.Description("Normalized tap X in 0..1")),
		mcp.WithNumber("y", mcp.Description("Normalized tap Y in 0..1")),
	), app.selectObjectHandler)

	s.AddTool(mcp.NewTool("set_style",
		mcp.WithDescription("Sets the session-wide style preset used by answers and transforms."),
		mcp.WithString("style", mcp.Description("Style preset ID; empty to clear")),
	), app.setStyleHandler)

	s.AddTool(mcp.NewTool("apply_style",
		mcp.WithDescription("Applies an instant local restyle to an object."),
		mcp.WithString("object", mcp.Description("Object name; defaults to the selection")),
		mcp.WithString("style", mcp.Description("Style preset ID; defaults to the active style")),
	), app.applyStyleHandler)

	s.AddTool(mcp.NewTool("upgrade_style",
		mcp.WithDescription("Upgrades an object's restyle to a high-definition generated render."),
		mcp.WithString("object", mcp.Description("Object name; defaults to the selection")),
		mcp.WithString("style", mcp.Description("Style preset ID; defaults to the active style")),
	), app.upgradeStyleHandler)

	s.AddTool(mcp.NewTool("retry_upgrade",
		mcp.WithDescription("Retries the last failed high-definition restyle with the same parameters."),
	), app.retryUpgradeHandler)

	s.AddTool(mcp.NewTool("clear_overlays",
		mcp.WithDescription("Removes all style overlays."),
	), app.clearOverlaysHandler)

	s.AddTool(mcp.NewTool("render_view",
		mcp.WithDescription("Renders the current overlay state to a PNG file."),
		mcp.WithNumber("width", mcp.Description("Viewport width in pixels")),
		mcp.WithNumber("height", mcp.Description("Viewport height in pixels")),
		mcp.WithString("path", mcp.Description("Output file path")),
	), app.renderViewHandler)

	s.AddTool(mcp.NewTool("auto_scan",
		mcp.WithDescription("Starts or stops periodic background room scanning."),
		mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("true to start, false to stop")),
	), app.autoScanHandler)

	s.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Reports the live session's status line and counters."),
	), app.statusHandler)

	s.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("Lists archived sessions, most recent first."),
	), app.listSessionsHandler)

	s.AddTool(mcp.NewTool("end_session",
		mcp.WithDescription("Archives the live session and starts a fresh one."),
	), app.endSessionHandler)

	logger.Printf("%s starting on Stdio...", ServerName)
	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// stdoutSynthesizer prints spoken lines in test mode instead of rendering
// audio.
type stdoutSynthesizer struct{}

func (stdoutSynthesizer) Speak(text, locale string) error {
	fmt.Printf("[speech %s] %s\n", locale, text)
	return nil
}

package main

import "time"

// Model fallback chains. Each identifier maps to its own quota bucket, so a
// rate-limited candidate is skipped rather than surfaced as an outage.
var (
	DefaultDetectModels  = []string{"gemini-3-flash-preview", "gemini-2.5-flash"}
	DefaultChatModels    = []string{"gemini-2.0-flash", "gemini-2.0-flash-lite", "gemini-flash-latest", "gemini-pro-latest"}
	DefaultSuggestModels = []string{"gemini-3-flash-preview", "gemini-2.5-flash", "gemini-2.0-flash"}
	DefaultImageModels   = []string{"nano-banana-pro-preview", "gemini-3-pro-image-preview", "gemini-2.0-flash-exp-image-generation"}
	DefaultImagenModels  = []string{"imagen-3.0-generate-001", "imagen-3.0-fast-generate-001"}
)

// Embedding configuration for the scene memory store.
const (
	DefaultEmbeddingModel = "gemini-embedding-001"
	EmbeddingDimension    = 768
	TaskTypeDocument      = "RETRIEVAL_DOCUMENT"
	TaskTypeQuery         = "RETRIEVAL_QUERY"
	QueryTaskPrefix       = "QUERY_TASK:"
)

// Orchestrator timing.
const (
	// Longest provider-reported retry delay worth sleeping through before
	// failing over to the next candidate.
	RetryDelayCeiling = 40 * time.Second
	// Pause between candidates after a non-quota failure.
	DetectBackoff  = 500 * time.Millisecond
	ChatBackoff    = 300 * time.Millisecond
	SuggestBackoff = 500 * time.Millisecond
	ImageBackoff   = 300 * time.Millisecond
)

// Per-call timeouts.
const (
	DetectTimeout  = 8 * time.Second
	ChatTimeout    = 8 * time.Second
	SuggestTimeout = 25 * time.Second
	ImageTimeout   = 45 * time.Second
)

// Session behavior.
const (
	// Turns of transcript sent as context on each chat call.
	HistoryWindow = 12
	// Auto-scan tick interval.
	DefaultAutoScanInterval = 6 * time.Second
	// Recalled scene memories folded into a chat prompt.
	MemoryRecallResults = 3
	// Opacity for transform overlays so they read as previews.
	OverlayOpacity = 0.85
	// Synthesized speech is trimmed to this many characters.
	SpeechMaxChars = 250
)

// Storage constants.
const (
	MemoryCollectionName = "zenspace_scene_memory"
	ArchiveKeyPrefix     = "session:"
)

// Server configuration.
const (
	ServerName    = "zenspace-live"
	ServerVersion = "1.0.0"
)

// CLI messages.
const (
	PromptStr  = "zenspace> "
	WelcomeMsg = "=== ZenSpace Live Test Mode ==="
	HelpMsg    = "Commands: scan | ask <q> | tips | rate | suggest [context] | preview <id> | objects | select <name> | style <preset> | apply [obj] <preset> | upgrade [obj] <preset> | retry | overlays | clear | render <file.png> | autoscan on|off | status | sessions | end | exit"

	UnknownCmdMsg = "Unknown command. " + HelpMsg
)

// Welcome turn appended when a session starts.
const WelcomeMessage = "Welcome to ZenSpace Live! I can see your environment through the camera. " +
	"Scan to detect objects, ask about your space, request product suggestions, " +
	"or select an object and a style to transform it."

// Utterances containing any of these route straight to the structured
// suggestion flow instead of free-form chat.
var suggestIntentKeywords = []string{
	"suggest", "recommend", "buy", "purchase", "product", "shop",
	"what should i add", "what do i need",
}

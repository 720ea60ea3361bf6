package main

import (
	"time"
)

// ObjectCategory classifies a detected object for labeling and color coding.
type ObjectCategory string

const (
	CategoryFurniture   ObjectCategory = "furniture"
	CategoryLighting    ObjectCategory = "lighting"
	CategoryDecor       ObjectCategory = "decor"
	CategoryElectronics ObjectCategory = "electronics"
	CategoryStorage     ObjectCategory = "storage"
	CategoryTextiles    ObjectCategory = "textiles"
	CategoryPlants      ObjectCategory = "plants"
	CategoryTech        ObjectCategory = "tech"
	CategoryOther       ObjectCategory = "other"
)

// BoundingBox is a normalized axis-aligned box: 0 <= X1 < X2 <= 1 and
// 0 <= Y1 < Y2 <= 1 after clamping.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Contains reports whether the normalized point (x, y) lies inside the box.
func (b BoundingBox) Contains(x, y float64) bool {
	return x >= b.X1 && x <= b.X2 && y >= b.Y1 && y <= b.Y2
}

// Clamp forces every coordinate into [0, 1] and swaps inverted corners.
// Model output is never trusted to respect the invariant.
func (b BoundingBox) Clamp() BoundingBox {
	clamp01 := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}
	c := BoundingBox{clamp01(b.X1), clamp01(b.Y1), clamp01(b.X2), clamp01(b.Y2)}
	if c.X1 > c.X2 {
		c.X1, c.X2 = c.X2, c.X1
	}
	if c.Y1 > c.Y2 {
		c.Y1, c.Y2 = c.Y2, c.Y1
	}
	return c
}

// DetectedObject is one item reported by a detection pass. Identity is the
// Name string: re-detection replaces objects by name match. BatchIndex is the
// object's position within its detection batch, kept so duplicate names can
// be told apart later without changing the keying scheme.
type DetectedObject struct {
	Name        string         `json:"name"`
	Category    ObjectCategory `json:"category"`
	Box         BoundingBox    `json:"bbox"`
	Description string         `json:"description"`
	BatchIndex  int            `json:"batch_index"`
}

// TransformFidelity distinguishes the local instant preview from a remote
// model-generated overlay.
type TransformFidelity string

const (
	FidelityInstant TransformFidelity = "instant"
	FidelityHighDef TransformFidelity = "highDef"
)

// OverlayTransform is a styled preview image pinned to a detected object.
// Exactly one transform is retained per object name; its box is refreshed
// whenever a later detection batch reports a matching name.
type OverlayTransform struct {
	ObjectName string            `json:"object_name"`
	Style      StyleID           `json:"style"`
	ImageData  []byte            `json:"image_data"`
	MIMEType   string            `json:"mime_type"`
	Box        BoundingBox       `json:"bbox"`
	Fidelity   TransformFidelity `json:"fidelity"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ChatRole identifies the author of a chat turn.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn in the session transcript. The full log is kept
// for display; only the most recent HistoryWindow turns are sent as context.
type ChatMessage struct {
	Role        ChatRole            `json:"role"`
	Content     string              `json:"content"`
	Timestamp   time.Time           `json:"timestamp"`
	Suggestions []ProductSuggestion `json:"suggestions,omitempty"`
	Sources     []GroundingSource   `json:"sources,omitempty"`
}

// GroundingSource is a citation link attached to a model answer, rendered
// separately from the answer text.
type GroundingSource struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ImpactLevel ranks how much difference a suggested product would make.
type ImpactLevel string

const (
	ImpactHigh   ImpactLevel = "high"
	ImpactMedium ImpactLevel = "medium"
	ImpactLow    ImpactLevel = "low"
)

// PreviewState tracks the asynchronous preview-image fetch for a suggestion.
type PreviewState string

const (
	PreviewNone    PreviewState = "none"
	PreviewLoading PreviewState = "loading"
	PreviewLoaded  PreviewState = "loaded"
	PreviewFailed  PreviewState = "failed"
)

// ProductSuggestion is one shoppable recommendation from a suggestion call.
// PreviewImage and PreviewState mutate independently per item as preview
// generations resolve.
type ProductSuggestion struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Category       ObjectCategory `json:"category"`
	Description    string         `json:"description"`
	Reason         string         `json:"reason"`
	Placement      string         `json:"placement"`
	EstimatedPrice string         `json:"estimated_price"`
	Impact         ImpactLevel    `json:"impact"`
	ShoppingQuery  string         `json:"shopping_query"`
	StyleTags      []string       `json:"style_tags"`
	PreviewImage   []byte         `json:"preview_image,omitempty"`
	PreviewState   PreviewState   `json:"preview_state"`
}

// SceneContext is the session-scoped impression of the room, refreshed by
// every successful detection and folded into chat prompts.
type SceneContext struct {
	Mood             string   `json:"mood"`
	Lighting         string   `json:"lighting"`
	ColorPalette     []string `json:"color_palette"`
	SceneDescription string   `json:"scene_description"`
}

// DetectionResult is the full output of one detection pass.
type DetectionResult struct {
	Scene        string           `json:"scene"`
	Lighting     string           `json:"lighting"`
	Mood         string           `json:"mood"`
	ColorPalette []string         `json:"color_palette"`
	Objects      []DetectedObject `json:"objects"`
	UsedModel    string           `json:"used_model"`
}

// SuggestionResult is the full output of one product-suggestion call.
type SuggestionResult struct {
	RoomSummary  string              `json:"room_summary"`
	Mood         string              `json:"mood"`
	ColorPalette []string            `json:"color_palette"`
	Suggestions  []ProductSuggestion `json:"suggestions"`
	Sources      []GroundingSource   `json:"sources"`
	UsedModel    string              `json:"used_model"`
}

// ChatAnswer is the output of one free-form chat call.
type ChatAnswer struct {
	Text      string            `json:"text"`
	Sources   []GroundingSource `json:"sources"`
	UsedModel string            `json:"used_model"`
}

// GeneratedImage is the output of one image-generation call.
type GeneratedImage struct {
	Data      []byte `json:"data"`
	MIMEType  string `json:"mime_type"`
	UsedModel string `json:"used_model"`
}

// SessionRecord is the archived form of a finished session.
type SessionRecord struct {
	ID          string              `json:"id"`
	StartedAt   time.Time           `json:"started_at"`
	EndedAt     time.Time           `json:"ended_at"`
	Scene       SceneContext        `json:"scene"`
	RoomSummary string              `json:"room_summary,omitempty"`
	Objects     []DetectedObject    `json:"objects"`
	Transcript  []ChatMessage       `json:"transcript"`
	Suggestions []ProductSuggestion `json:"suggestions"`
}

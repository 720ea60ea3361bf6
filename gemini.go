package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// ChatRequest carries everything a free-form chat call needs.
type ChatRequest struct {
	Frame   Frame
	Prompt  string
	History []ChatMessage
}

// SceneModel is the remote-capability boundary: given an input, each method
// returns structured output or fails. The production implementation fans out
// over Gemini model candidates; tests substitute deterministic fakes.
type SceneModel interface {
	Detect(ctx context.Context, frame Frame) (*DetectionResult, error)
	Chat(ctx context.Context, req ChatRequest) (*ChatAnswer, error)
	Suggest(ctx context.Context, frame Frame, context string) (*SuggestionResult, error)
	GenerateImage(ctx context.Context, prompt string, style string) (*GeneratedImage, error)
}

const detectPrompt = `You are a spatial object detection system for an AR application. Analyze this image and identify ALL distinct objects/furniture visible.

Return ONLY valid JSON in this exact format:
{
  "scene": "Brief 1-sentence description of the overall space",
  "lighting": "Brief lighting condition (e.g., 'warm artificial', 'natural daylight', 'dim')",
  "mood": "Current mood/ambiance in 2-3 words",
  "color_palette": ["#hex1", "#hex2", "#hex3", "#hex4"],
  "objects": [
    {
      "name": "object name (e.g., 'wooden desk', 'office chair', 'floor lamp')",
      "bbox": [x1, y1, x2, y2],
      "description": "Brief description: color, material, condition, style",
      "category": "furniture|lighting|decor|electronics|storage|textiles|plants|tech|other"
    }
  ]
}

CRITICAL RULES for bounding boxes:
- All values MUST be normalized floats between 0.0 and 1.0
- [x1, y1] = top-left corner, [x2, y2] = bottom-right corner, x1 < x2 and y1 < y2
- Include ALL visible distinct objects (min 2, max 12)
- Do NOT include walls, floor, ceiling as objects
- color_palette should represent the 4 dominant colors in the room`

const suggestPrompt = `You are ZenSpace's product recommendation engine with real-time Google Search.

Look at the room image. Identify what is missing or could be improved, then search Google for REAL products currently for sale that fit this room.

ABSOLUTE RULES:
- Every product MUST come from Google Search results, never invented
- "shopping_query" must be the exact query that finds THIS product (brand + model + key feature)
- Do NOT include any URLs; we build shopping links ourselves
- Prices must come from current listings
- Reference specific things visible in the image in each "reason"

Return ONLY valid JSON:
{
  "room_summary": "2-3 sentences on the room and its biggest improvement opportunities",
  "mood": "detected mood of the space",
  "color_palette": ["#hex1", "#hex2", "#hex3", "#hex4"],
  "suggestions": [
    {
      "name": "Full product name as listed",
      "category": "lighting|furniture|decor|storage|textiles|plants|tech",
      "description": "Real specs from the listing: material, color, dimensions",
      "reason": "Why this fits THIS room",
      "placement": "Exact placement instruction",
      "estimated_price": "Real price or range",
      "impact": "high|medium|low",
      "shopping_query": "brand + exact model + key feature",
      "style_tags": ["tag1", "tag2"]
    }
  ]
}

QUALITY: 4-6 products ordered by impact, mixed price ranges.`

// geminiModel implements SceneModel over the Gemini API, running every call
// through the fallback invoker for its capability.
type geminiModel struct {
	client  *genai.Client
	cfg     *Config
	logger  *log.Logger
	detect  *invoker
	chat    *invoker
	suggest *invoker
	image   *invoker
	imagen  *invoker
}

// newGeminiModel builds the production SceneModel from configuration.
func newGeminiModel(client *genai.Client, cfg *Config, logger *log.Logger) *geminiModel {
	return &geminiModel{
		client:  client,
		cfg:     cfg,
		logger:  logger,
		detect:  newInvoker("detect", cfg.DetectModels, DetectTimeout, DetectBackoff, logger),
		chat:    newInvoker("chat", cfg.ChatModels, ChatTimeout, ChatBackoff, logger),
		suggest: newInvoker("suggest", cfg.SuggestModels, SuggestTimeout, SuggestBackoff, logger),
		image:   newInvoker("image-gen", cfg.ImageModels, ImageTimeout, ImageBackoff, logger),
		imagen:  newInvoker("imagen", cfg.ImagenModels, ImageTimeout, ImageBackoff, logger),
	}
}

func imagePart(frame Frame) *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{MIMEType: frame.MIMEType, Data: frame.Data}}
}

// firstText pulls the first text part out of a response.
func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates from model")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			return part.Text, nil
		}
	}
	return "", fmt.Errorf("no text part in model response")
}

// stripCodeFences removes markdown JSON fences some models wrap around
// structured output.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// groundingSources extracts citation links from a candidate's grounding
// metadata, dropping entries without a URL.
func groundingSources(resp *genai.GenerateContentResponse) []GroundingSource {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}
	var sources []GroundingSource
	for _, chunk := range meta.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		sources = append(sources, GroundingSource{URL: chunk.Web.URI, Title: chunk.Web.Title})
	}
	return sources
}

// detectWire mirrors the detection JSON schema with the bbox as an array.
type detectWire struct {
	Scene        string `json:"scene"`
	Lighting     string `json:"lighting"`
	Mood         string `json:"mood"`
	ColorPalette []string `json:"color_palette"`
	Objects      []struct {
		Name        string    `json:"name"`
		Bbox        []float64 `json:"bbox"`
		Description string    `json:"description"`
		Category    string    `json:"category"`
	} `json:"objects"`
}

func boxFromSlice(v []float64) BoundingBox {
	b := BoundingBox{0, 0, 1, 1}
	if len(v) == 4 {
		b = BoundingBox{v[0], v[1], v[2], v[3]}
	}
	return b.Clamp()
}

// Detect runs object detection over the model chain.
func (g *geminiModel) Detect(ctx context.Context, frame Frame) (*DetectionResult, error) {
	result, used, err := invokeWithFallback(ctx, g.detect, func(ctx context.Context, model string) (*DetectionResult, error) {
		contents := []*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: detectPrompt}, imagePart(frame)},
		}}
		resp, err := g.client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		})
		if err != nil {
			return nil, err
		}
		text, err := firstText(resp)
		if err != nil {
			return nil, err
		}

		var wire detectWire
		if err := json.Unmarshal([]byte(stripCodeFences(text)), &wire); err != nil {
			return nil, fmt.Errorf("malformed detection output: %w", err)
		}

		out := &DetectionResult{
			Scene:        wire.Scene,
			Lighting:     wire.Lighting,
			Mood:         wire.Mood,
			ColorPalette: wire.ColorPalette,
		}
		for i, o := range wire.Objects {
			out.Objects = append(out.Objects, DetectedObject{
				Name:        o.Name,
				Category:    ObjectCategory(o.Category),
				Box:         boxFromSlice(o.Bbox),
				Description: o.Description,
				BatchIndex:  i,
			})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	result.UsedModel = used
	return result, nil
}

// Chat answers a free-form prompt about the current frame, with the bounded
// rolling history threaded through as prior turns.
func (g *geminiModel) Chat(ctx context.Context, req ChatRequest) (*ChatAnswer, error) {
	answer, used, err := invokeWithFallback(ctx, g.chat, func(ctx context.Context, model string) (*ChatAnswer, error) {
		var contents []*genai.Content
		for _, turn := range req.History {
			role := genai.RoleUser
			if turn.Role == RoleAssistant {
				role = genai.RoleModel
			}
			contents = append(contents, &genai.Content{
				Role:  role,
				Parts: []*genai.Part{{Text: turn.Content}},
			})
		}
		contents = append(contents, &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: req.Prompt}, imagePart(req.Frame)},
		})

		resp, err := g.client.Models.GenerateContent(ctx, model, contents, nil)
		if err != nil {
			return nil, err
		}
		text, err := firstText(resp)
		if err != nil {
			return nil, err
		}
		return &ChatAnswer{Text: text, Sources: groundingSources(resp)}, nil
	})
	if err != nil {
		return nil, err
	}
	answer.UsedModel = used
	return answer, nil
}

// suggestWire mirrors the suggestion JSON schema.
type suggestWire struct {
	RoomSummary  string `json:"room_summary"`
	Mood         string `json:"mood"`
	ColorPalette []string `json:"color_palette"`
	Suggestions  []struct {
		Name           string   `json:"name"`
		Category       string   `json:"category"`
		Description    string   `json:"description"`
		Reason         string   `json:"reason"`
		Placement      string   `json:"placement"`
		EstimatedPrice string   `json:"estimated_price"`
		Impact         string   `json:"impact"`
		ShoppingQuery  string   `json:"shopping_query"`
		StyleTags      []string `json:"style_tags"`
	} `json:"suggestions"`
}

// Suggest runs the structured product-suggestion call with Google Search
// grounding enabled.
func (g *geminiModel) Suggest(ctx context.Context, frame Frame, userContext string) (*SuggestionResult, error) {
	prompt := suggestPrompt
	if userContext != "" {
		prompt += fmt.Sprintf("\n\nUser's specific request: %q. Prioritize suggestions that align with this.", userContext)
	}

	result, used, err := invokeWithFallback(ctx, g.suggest, func(ctx context.Context, model string) (*SuggestionResult, error) {
		contents := []*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: prompt}, imagePart(frame)},
		}}
		resp, err := g.client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
			Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		})
		if err != nil {
			return nil, err
		}
		text, err := firstText(resp)
		if err != nil {
			return nil, err
		}

		var wire suggestWire
		if err := json.Unmarshal([]byte(stripCodeFences(text)), &wire); err != nil {
			return nil, fmt.Errorf("malformed suggestion output: %w", err)
		}
		if len(wire.Suggestions) == 0 {
			return nil, fmt.Errorf("suggestion output missing suggestions array")
		}

		out := &SuggestionResult{
			RoomSummary:  wire.RoomSummary,
			Mood:         wire.Mood,
			ColorPalette: wire.ColorPalette,
			Sources:      groundingSources(resp),
		}
		for _, s := range wire.Suggestions {
			out.Suggestions = append(out.Suggestions, ProductSuggestion{
				ID:             uuid.New().String(),
				Name:           s.Name,
				Category:       ObjectCategory(s.Category),
				Description:    s.Description,
				Reason:         s.Reason,
				Placement:      s.Placement,
				EstimatedPrice: s.EstimatedPrice,
				Impact:         ImpactLevel(s.Impact),
				ShoppingQuery:  s.ShoppingQuery,
				StyleTags:      s.StyleTags,
				PreviewState:   PreviewNone,
			})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	result.UsedModel = used
	return result, nil
}

// GenerateImage produces an encoded image for a transform or product
// preview. A textual-only response is a failure, not a degraded success.
// After the Gemini image chain is exhausted it falls through to Imagen,
// which draws from a separate quota pool.
func (g *geminiModel) GenerateImage(ctx context.Context, prompt string, style string) (*GeneratedImage, error) {
	styleLine := ""
	if style != "" {
		styleLine = fmt.Sprintf("Style: %s. ", style)
	}
	fullPrompt := fmt.Sprintf(`Generate a photorealistic product image: %s%s.
The image should have a clean, transparent or neutral background suitable for overlaying on room photos.
Focus on high detail, realistic textures, and professional product photography style.
The lighting should be soft and natural, matching typical indoor room lighting.`, styleLine, prompt)

	img, used, err := invokeWithFallback(ctx, g.image, func(ctx context.Context, model string) (*GeneratedImage, error) {
		contents := []*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: fullPrompt}},
		}}
		resp, err := g.client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return nil, fmt.Errorf("no response parts received")
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &GeneratedImage{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
			}
		}
		return nil, fmt.Errorf("model returned text instead of image")
	})
	if err == nil {
		img.UsedModel = used
		return img, nil
	}
	g.logger.Printf("[image-gen] gemini chain exhausted, falling back to imagen: %v", err)

	img, used, ierr := invokeWithFallback(ctx, g.imagen, func(ctx context.Context, model string) (*GeneratedImage, error) {
		resp, err := g.client.Models.GenerateImages(ctx, model, fullPrompt, &genai.GenerateImagesConfig{
			NumberOfImages: 1,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil ||
			len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
			return nil, fmt.Errorf("imagen returned no image data")
		}
		return &GeneratedImage{Data: resp.GeneratedImages[0].Image.ImageBytes, MIMEType: "image/png"}, nil
	})
	if ierr != nil {
		// Surface the Gemini-chain error; it carries the retry hints the
		// user can act on.
		return nil, err
	}
	img.UsedModel = used
	return img, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	errSuggestBusy = errors.New("suggestion call already in flight")
	errPreviewBusy = errors.New("a preview is already being generated")
)

// ShoppingURL synthesizes a shopping search link for the suggestion. The
// model supplies a search query; the link itself is built locally so a
// hallucinated URL can never reach the user.
func (p ProductSuggestion) ShoppingURL() string {
	query := p.ShoppingQuery
	if query == "" {
		query = p.Name
	}
	return "https://www.google.com/search?tbm=shop&q=" + url.QueryEscape(query)
}

// Suggest captures a frame and asks the model for product suggestions fitted
// to the current room. The suggestion list is replaced wholesale on success;
// a failed call leaves the previous list untouched.
func (s *Session) Suggest(ctx context.Context, userContext string) (*SuggestionResult, error) {
	s.mu.Lock()
	if s.suggesting {
		s.mu.Unlock()
		return nil, errSuggestBusy
	}
	s.suggesting = true
	s.status = "SEARCHING PRODUCTS"
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.suggesting = false
		s.mu.Unlock()
	}()

	frame, err := s.frames.CaptureFrame(ctx)
	if err != nil {
		s.setStatus("CAPTURE FAILED")
		return nil, fmt.Errorf("suggestion capture: %w", err)
	}

	result, err := s.model.Suggest(ctx, frame, s.suggestContext(userContext))
	if err != nil {
		s.setStatus("SUGGEST FAILED")
		return nil, err
	}

	s.mu.Lock()
	s.suggestions = append([]ProductSuggestion(nil), result.Suggestions...)
	s.roomSummary = result.RoomSummary
	if result.Mood != "" {
		s.scene.Mood = result.Mood
	}
	if len(result.ColorPalette) > 0 {
		s.scene.ColorPalette = append([]string(nil), result.ColorPalette...)
	}
	s.status = fmt.Sprintf("%d SUGGESTIONS", len(result.Suggestions))
	s.mu.Unlock()

	if s.memory != nil {
		if err := s.memory.RememberSuggestions(context.WithoutCancel(ctx), s.id, result); err != nil {
			s.logger.Printf("Warning: failed to persist suggestions to memory: %v", err)
		}
	}
	return result, nil
}

// suggestContext folds scene state and the active style into the user's
// request so suggestions match the room the model is looking at.
func (s *Session) suggestContext(userContext string) string {
	s.mu.Lock()
	scene := s.scene
	style := s.activeStyle
	s.mu.Unlock()

	var b strings.Builder
	if userContext != "" {
		b.WriteString(userContext)
	}
	if scene.Mood != "" || scene.SceneDescription != "" {
		fmt.Fprintf(&b, "\nThe room: %s. Mood: %s. Lighting: %s.",
			scene.SceneDescription, scene.Mood, scene.Lighting)
	}
	if len(scene.ColorPalette) > 0 {
		fmt.Fprintf(&b, " Palette: %s.", strings.Join(scene.ColorPalette, ", "))
	}
	if style != "" {
		if preset, err := LookupStyle(style); err == nil {
			fmt.Fprintf(&b, "\nThe user wants a %s look: %s", preset.Label, preset.Descriptor)
		}
	}
	return b.String()
}

// GeneratePreview renders a product-in-room preview image for one
// suggestion. One preview runs at a time. The continuation looks the
// suggestion up by ID again before writing: if the list was replaced while
// the image generated, the stale result is dropped.
func (s *Session) GeneratePreview(ctx context.Context, suggestionID string) error {
	s.mu.Lock()
	if s.previewingID != "" {
		s.mu.Unlock()
		return errPreviewBusy
	}
	idx := suggestionIndex(s.suggestions, suggestionID)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("unknown suggestion %q", suggestionID)
	}
	target := s.suggestions[idx]
	s.suggestions[idx].PreviewState = PreviewLoading
	s.previewingID = suggestionID
	scene := s.scene
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.previewingID = ""
		s.mu.Unlock()
	}()

	prompt := previewPrompt(target, scene)
	img, err := s.model.GenerateImage(ctx, prompt, string(s.ActiveStyle()))

	s.mu.Lock()
	defer s.mu.Unlock()
	idx = suggestionIndex(s.suggestions, suggestionID)
	if idx < 0 {
		// Suggestion list replaced mid-flight; nothing to attach to.
		return nil
	}
	if err != nil {
		s.suggestions[idx].PreviewState = PreviewFailed
		s.logger.Printf("Warning: preview generation failed for %s: %v", target.Name, err)
		return err
	}
	s.suggestions[idx].PreviewImage = img.Data
	s.suggestions[idx].PreviewState = PreviewLoaded
	return nil
}

func suggestionIndex(list []ProductSuggestion, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func previewPrompt(p ProductSuggestion, scene SceneContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Photorealistic product visualization: a %s placed in a room. %s",
		p.Name, p.Description)
	if p.Placement != "" {
		fmt.Fprintf(&b, " Placement: %s.", p.Placement)
	}
	if scene.SceneDescription != "" {
		fmt.Fprintf(&b, " The room looks like: %s.", scene.SceneDescription)
	}
	if len(scene.ColorPalette) > 0 {
		fmt.Fprintf(&b, " Match the room's palette of %s.", strings.Join(scene.ColorPalette, ", "))
	}
	return b.String()
}

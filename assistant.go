package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var errChatBusy = errors.New("assistant is already answering")

// Ask runs one conversational turn. The chat busy flag rejects double
// submission and the remote call runs outside the session mutex. Utterances
// that explicitly ask for product suggestions route to the structured
// suggestion flow instead of free chat, without a user turn of their own.
func (s *Session) Ask(ctx context.Context, utterance string) (*ChatAnswer, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, errors.New("empty utterance")
	}

	s.mu.Lock()
	if s.chatting {
		s.mu.Unlock()
		return nil, errChatBusy
	}
	s.chatting = true
	s.status = "THINKING"
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.chatting = false
		s.mu.Unlock()
	}()

	// Explicit shopping requests divert before the user turn is recorded;
	// the suggestion turn carries the request as its context instead.
	if isSuggestIntent(utterance) {
		return s.askViaSuggest(ctx, utterance)
	}

	s.appendTurn(ChatMessage{Role: RoleUser, Content: utterance})

	history := s.historyWindow()
	// History already holds the user turn; the prompt carries it too, so
	// trim it from the window to avoid sending the utterance twice.
	if n := len(history); n > 0 && history[n-1].Role == RoleUser {
		history = history[:n-1]
	}

	frame, err := s.frames.CaptureFrame(ctx)
	if err != nil {
		// Chat degrades to text-only when no frame is available.
		s.logger.Printf("Warning: chat proceeding without frame: %v", err)
		frame = Frame{}
	}

	started := time.Now()
	answer, err := s.model.Chat(ctx, ChatRequest{
		Frame:   frame,
		Prompt:  s.chatPrompt(ctx, utterance),
		History: history,
	})
	elapsed := time.Since(started)

	s.mu.Lock()
	s.processing = elapsed
	s.mu.Unlock()

	if err != nil {
		if IsQuotaExhausted(err) {
			// Quota exhaustion is not a conversational failure: no
			// assistant turn is appended, the transcript stays clean
			// for a later retry.
			s.setStatus("QUOTA EXHAUSTED")
			s.logger.Printf("Warning: chat quota exhausted: %v", err)
			return nil, err
		}
		s.setStatus("CHAT FAILED")
		s.appendTurn(ChatMessage{
			Role:    RoleAssistant,
			Content: "Sorry, I couldn't process that. Please try again.",
		})
		return nil, err
	}

	s.appendTurn(ChatMessage{
		Role:    RoleAssistant,
		Content: answer.Text,
		Sources: answer.Sources,
	})
	s.setStatus("READY")

	if s.speech != nil {
		s.speech.Speak(answer.Text)
	}

	s.maybeEscalate(ctx, utterance+" "+answer.Text)
	return answer, nil
}

// askViaSuggest services an explicit shopping request through the structured
// suggestion flow and folds the outcome back into the transcript.
func (s *Session) askViaSuggest(ctx context.Context, utterance string) (*ChatAnswer, error) {
	result, err := s.Suggest(ctx, utterance)
	if err != nil {
		if IsQuotaExhausted(err) {
			s.setStatus("QUOTA EXHAUSTED")
			return nil, err
		}
		if !errors.Is(err, errSuggestBusy) {
			s.appendTurn(ChatMessage{
				Role:    RoleAssistant,
				Content: "Sorry, I couldn't put together suggestions right now.",
			})
		}
		return nil, err
	}

	text := suggestionSummary(result)
	s.appendTurn(ChatMessage{
		Role:        RoleAssistant,
		Content:     text,
		Suggestions: append([]ProductSuggestion(nil), result.Suggestions...),
		Sources:     append([]GroundingSource(nil), result.Sources...),
	})
	s.setStatus("READY")

	if s.speech != nil {
		s.speech.Speak(text)
	}
	return &ChatAnswer{Text: text, Sources: result.Sources, UsedModel: result.UsedModel}, nil
}

// maybeEscalate kicks off a background suggestion call when the exchange,
// utterance and answer combined, talks about purchasable items and no
// suggestions exist yet. Failures are logged and dropped; the chat turn
// already succeeded.
func (s *Session) maybeEscalate(ctx context.Context, exchange string) {
	if !mentionsPurchasableItems(exchange) {
		return
	}
	s.mu.Lock()
	skip := len(s.suggestions) > 0 || s.suggesting
	s.mu.Unlock()
	if skip {
		return
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		if _, err := s.Suggest(bg, exchange); err != nil {
			s.logger.Printf("Warning: background suggestion escalation failed: %v", err)
		}
	}()
}

// chatPrompt folds session state into the user utterance: scene impression,
// known objects, the selected object, the active style and recalled context
// from earlier scans.
func (s *Session) chatPrompt(ctx context.Context, utterance string) string {
	s.mu.Lock()
	scene := s.scene
	style := s.activeStyle
	s.mu.Unlock()

	var b strings.Builder
	b.WriteString("You are a live interior design assistant watching the user's room through a camera.\n")

	if scene.SceneDescription != "" {
		fmt.Fprintf(&b, "Current scene: %s (mood: %s, lighting: %s)\n",
			scene.SceneDescription, scene.Mood, scene.Lighting)
	}
	if names := objectNames(s.registry.Objects()); len(names) > 0 {
		fmt.Fprintf(&b, "Visible objects: %s\n", strings.Join(names, ", "))
	}
	if sel, ok := s.registry.Selected(); ok {
		fmt.Fprintf(&b, "The user has selected the %s.\n", sel.Name)
	}
	if style != "" {
		if preset, err := LookupStyle(style); err == nil {
			fmt.Fprintf(&b, "Answer with a %s aesthetic in mind: %s\n", preset.Label, preset.Descriptor)
		}
	}
	if s.memory != nil {
		if recalled, err := s.memory.Recall(ctx, utterance, MemoryRecallResults); err == nil && len(recalled) > 0 {
			fmt.Fprintf(&b, "Earlier observations of this room:\n%s\n", strings.Join(recalled, "\n"))
		}
	}

	b.WriteString("\nUser: ")
	b.WriteString(utterance)
	return b.String()
}

func objectNames(objects []DetectedObject) []string {
	names := make([]string, 0, len(objects))
	for _, o := range objects {
		names = append(names, o.Name)
	}
	return names
}

// suggestionSummary renders a suggestion result as a short assistant answer.
func suggestionSummary(r *SuggestionResult) string {
	if len(r.Suggestions) == 0 {
		return r.RoomSummary
	}
	var b strings.Builder
	if r.RoomSummary != "" {
		b.WriteString(r.RoomSummary)
		b.WriteString("\n\n")
	}
	b.WriteString("Here's what I'd add:\n")
	for _, sug := range r.Suggestions {
		fmt.Fprintf(&b, "- %s (%s): %s\n", sug.Name, sug.EstimatedPrice, sug.Reason)
	}
	return b.String()
}

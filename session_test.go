package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
)

// fakeModel is a deterministic SceneModel used across session tests.
type fakeModel struct {
	mu           sync.Mutex
	detectFn     func() (*DetectionResult, error)
	chatFn       func(req ChatRequest) (*ChatAnswer, error)
	suggestFn    func(userContext string) (*SuggestionResult, error)
	imageFn      func(prompt, style string) (*GeneratedImage, error)
	detectCalls  int
	chatCalls    int
	suggestCalls int
	imageCalls   int
}

func (m *fakeModel) Detect(ctx context.Context, frame Frame) (*DetectionResult, error) {
	m.mu.Lock()
	m.detectCalls++
	fn := m.detectFn
	m.mu.Unlock()
	if fn == nil {
		return &DetectionResult{}, nil
	}
	return fn()
}

func (m *fakeModel) Chat(ctx context.Context, req ChatRequest) (*ChatAnswer, error) {
	m.mu.Lock()
	m.chatCalls++
	fn := m.chatFn
	m.mu.Unlock()
	if fn == nil {
		return &ChatAnswer{Text: "ok"}, nil
	}
	return fn(req)
}

func (m *fakeModel) Suggest(ctx context.Context, frame Frame, userContext string) (*SuggestionResult, error) {
	m.mu.Lock()
	m.suggestCalls++
	fn := m.suggestFn
	m.mu.Unlock()
	if fn == nil {
		return &SuggestionResult{}, nil
	}
	return fn(userContext)
}

func (m *fakeModel) GenerateImage(ctx context.Context, prompt, style string) (*GeneratedImage, error) {
	m.mu.Lock()
	m.imageCalls++
	fn := m.imageFn
	m.mu.Unlock()
	if fn == nil {
		return &GeneratedImage{Data: []byte{1}, MIMEType: "image/png"}, nil
	}
	return fn(prompt, style)
}

func (m *fakeModel) calls() (detect, chat, suggest, img int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detectCalls, m.chatCalls, m.suggestCalls, m.imageCalls
}

// testFramePNG encodes a small solid-color PNG frame.
func testFramePNG(t *testing.T, w, h int, c color.RGBA) Frame {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test frame: %v", err)
	}
	return Frame{Data: buf.Bytes(), MIMEType: "image/png"}
}

func newTestSession(t *testing.T, model SceneModel) *Session {
	t.Helper()
	frames := &StaticFrameSource{Frame: testFramePNG(t, 64, 48, color.RGBA{120, 100, 80, 255})}
	return NewSession(&Config{}, model, frames, SessionOptions{})
}

// --- session lifecycle ---

func TestNewSession_WhenStarted_ShouldOpenWithWelcomeTurn(t *testing.T) {
	s := newTestSession(t, &fakeModel{})
	log := s.Transcript()
	if len(log) != 1 {
		t.Fatalf("expected one opening turn, got %d", len(log))
	}
	if log[0].Role != RoleAssistant || log[0].Content != WelcomeMessage {
		t.Errorf("expected assistant welcome turn, got %+v", log[0])
	}
}

func TestEnd_WhenCalled_ShouldResetTranscriptAndRegistry(t *testing.T) {
	s := newTestSession(t, &fakeModel{})
	s.Registry().Merge([]DetectedObject{obj("sofa", 0.1, 0.1, 0.4, 0.4)})

	if err := s.End(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Transcript()) != 0 {
		t.Error("expected transcript cleared")
	}
	if len(s.Registry().Objects()) != 0 {
		t.Error("expected registry reset")
	}
	if s.Status() != "ENDED" {
		t.Errorf("expected ENDED status, got %q", s.Status())
	}
}

func TestEnd_WhenCalledTwice_ShouldBeIdempotent(t *testing.T) {
	s := newTestSession(t, &fakeModel{})
	if err := s.End(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.End(); err != nil {
		t.Fatalf("expected second End to be a no-op, got %v", err)
	}
}

func TestSetActiveStyle_WhenUnknownPreset_ShouldReject(t *testing.T) {
	s := newTestSession(t, &fakeModel{})
	if err := s.SetActiveStyle("vaporwave"); err == nil {
		t.Error("expected unknown preset to be rejected")
	}
	if err := s.SetActiveStyle(StyleZen); err != nil {
		t.Errorf("expected known preset to be accepted, got %v", err)
	}
	if err := s.SetActiveStyle(""); err != nil {
		t.Errorf("expected clearing to be accepted, got %v", err)
	}
}

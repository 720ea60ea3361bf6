package main

import (
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the explicit per-session state container: it owns the chat log,
// suggestion list, scene context and busy flags, and holds the registry,
// frame source and model boundary for every component. Constructed at
// session start, torn down by End; no ambient globals.
//
// One mutex guards the session's own fields. Each logical flow (detect,
// chat, suggest, transform, preview) has a busy flag checked and set under
// the mutex; remote calls run outside it and their continuations re-acquire
// it before writing, validating identity so superseded results are dropped.
type Session struct {
	id        string
	startedAt time.Time
	cfg       *Config
	logger    *log.Logger

	model    SceneModel
	frames   FrameSource
	registry *OverlayRegistry
	memory   *SceneMemory    // optional
	archive  *SessionArchive // optional
	speech   *SpeechIO       // optional

	mu           sync.Mutex
	chatLog      []ChatMessage
	suggestions  []ProductSuggestion
	roomSummary  string
	scene        SceneContext
	activeStyle  StyleID
	status       string
	processing   time.Duration
	lastFailure  *failedUpgrade
	detectState  DetectState
	detecting    bool
	chatting     bool
	suggesting   bool
	transforming bool
	previewingID string
	ended        bool

	autoScanStop chan struct{}
}

// SessionOptions configures optional session collaborators.
type SessionOptions struct {
	Memory  *SceneMemory
	Archive *SessionArchive
	Speech  *SpeechIO
	Logger  *log.Logger
}

// NewSession starts a live assistant session and appends the welcome turn.
func NewSession(cfg *Config, model SceneModel, frames FrameSource, opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	s := &Session{
		id:          uuid.New().String(),
		startedAt:   time.Now(),
		cfg:         cfg,
		logger:      logger,
		model:       model,
		frames:      frames,
		registry:    NewOverlayRegistry(),
		memory:      opts.Memory,
		archive:     opts.Archive,
		speech:      opts.Speech,
		status:      "STANDBY",
		detectState: DetectIdle,
	}
	s.chatLog = append(s.chatLog, ChatMessage{
		Role:      RoleAssistant,
		Content:   WelcomeMessage,
		Timestamp: time.Now(),
	})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Registry exposes the overlay registry.
func (s *Session) Registry() *OverlayRegistry { return s.registry }

// Status returns the current status line.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// ProcessingTime reports the duration of the last completed chat call.
func (s *Session) ProcessingTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// SetActiveStyle records the style preset used to flavor chat answers and
// transforms. An empty ID clears it.
func (s *Session) SetActiveStyle(id StyleID) error {
	if id != "" {
		if _, err := LookupStyle(id); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.activeStyle = id
	s.mu.Unlock()
	return nil
}

// ActiveStyle returns the active style preset ID, if any.
func (s *Session) ActiveStyle() StyleID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeStyle
}

// Transcript returns a copy of the full chat log.
func (s *Session) Transcript() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatMessage(nil), s.chatLog...)
}

// Suggestions returns a copy of the current suggestion list.
func (s *Session) Suggestions() []ProductSuggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ProductSuggestion(nil), s.suggestions...)
}

// Scene returns a copy of the current scene context.
func (s *Session) Scene() SceneContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.scene
	sc.ColorPalette = append([]string(nil), s.scene.ColorPalette...)
	return sc
}

// LastFailureNotice returns the dismissable notice for the most recent
// failed upgrade, if one is pending.
func (s *Session) LastFailureNotice() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastFailure == nil {
		return "", false
	}
	return s.lastFailure.Notice, true
}

// appendTurn adds a message to the transcript.
func (s *Session) appendTurn(msg ChatMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.mu.Lock()
	s.chatLog = append(s.chatLog, msg)
	s.mu.Unlock()
}

// historyWindow returns up to HistoryWindow recent turns for call context.
// The full log is retained for display regardless.
func (s *Session) historyWindow() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := len(s.chatLog) - HistoryWindow
	if start < 0 {
		start = 0
	}
	return append([]ChatMessage(nil), s.chatLog[start:]...)
}

// End tears the session down: auto-scan stops, the finished session is
// archived if an archive is attached, and per-session state is reset.
func (s *Session) End() error {
	s.StopAutoScan()

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil
	}
	s.ended = true
	record := SessionRecord{
		ID:          s.id,
		StartedAt:   s.startedAt,
		EndedAt:     time.Now(),
		Scene:       s.scene,
		RoomSummary: s.roomSummary,
		Objects:     s.registry.Objects(),
		Transcript:  append([]ChatMessage(nil), s.chatLog...),
		Suggestions: append([]ProductSuggestion(nil), s.suggestions...),
	}
	s.chatLog = nil
	s.suggestions = nil
	s.scene = SceneContext{}
	s.roomSummary = ""
	s.lastFailure = nil
	s.status = "ENDED"
	s.mu.Unlock()

	s.registry.Reset()

	if s.archive != nil {
		if err := s.archive.SaveSession(record); err != nil {
			s.logger.Printf("Warning: failed to archive session %s: %v", s.id, err)
			return err
		}
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DetectState is the detection loop's position in its cycle.
type DetectState string

const (
	DetectIdle      DetectState = "idle"
	DetectCapturing DetectState = "capturing"
	DetectAwaiting  DetectState = "awaiting_result"
	DetectMerging   DetectState = "merging"
	DetectFailed    DetectState = "failed"
)

var errDetectionBusy = errors.New("a detection pass is already in flight")

// DetectionState returns the loop's current state.
func (s *Session) DetectionState() DetectState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detectState
}

// Scan runs one detection pass: capture, detect, merge. At most one pass is
// in flight at a time; a second explicit request while busy fails with
// errDetectionBusy and timer ticks are dropped by the auto-scan loop.
// Detection failures leave the previous object set intact and are only
// logged; they never surface as a blocking error on the auto path.
func (s *Session) Scan(ctx context.Context) (*DetectionResult, error) {
	return s.scan(ctx, false)
}

func (s *Session) scan(ctx context.Context, auto bool) (*DetectionResult, error) {
	s.mu.Lock()
	if s.detecting {
		s.mu.Unlock()
		return nil, errDetectionBusy
	}
	s.detecting = true
	s.detectState = DetectCapturing
	s.status = "SCANNING_ENVIRONMENT"
	s.mu.Unlock()

	// Both the Merging and Failed states resolve back to Idle; the loop
	// never parks anywhere else.
	finish := func() {
		s.mu.Lock()
		s.detectState = DetectIdle
		s.detecting = false
		s.mu.Unlock()
	}

	frame, err := s.frames.CaptureFrame(ctx)
	if err != nil {
		s.logger.Printf("Warning: frame capture failed: %v", err)
		s.setStatus("CAPTURE_FAILED")
		finish()
		return nil, fmt.Errorf("%w: %v", ErrInputCapture, err)
	}

	s.mu.Lock()
	s.detectState = DetectAwaiting
	s.mu.Unlock()

	result, err := s.model.Detect(ctx, frame)
	if err != nil {
		// Silent failure policy: keep the previous object set.
		s.logger.Printf("Warning: detection failed, keeping previous objects: %v", err)
		s.setStatus("SCAN_FAILED")
		finish()
		return nil, err
	}

	s.mu.Lock()
	s.detectState = DetectMerging
	s.mu.Unlock()

	s.registry.Merge(result.Objects)

	s.mu.Lock()
	s.scene = SceneContext{
		Mood:             result.Mood,
		Lighting:         result.Lighting,
		ColorPalette:     append([]string(nil), result.ColorPalette...),
		SceneDescription: result.Scene,
	}
	s.status = fmt.Sprintf("DETECTED %d OBJECTS", len(result.Objects))
	s.mu.Unlock()

	// Chat summaries are suppressed during auto-scan to avoid spamming the
	// transcript every tick.
	if !auto {
		s.appendTurn(ChatMessage{
			Role:    RoleAssistant,
			Content: scanSummary(result),
		})
	}

	if s.memory != nil {
		if err := s.memory.RememberScan(context.WithoutCancel(ctx), s.id, result); err != nil {
			s.logger.Printf("Warning: failed to store scan in scene memory: %v", err)
		}
	}

	finish()
	return result, nil
}

// scanSummary formats the system-style transcript entry for a manual scan.
func scanSummary(r *DetectionResult) string {
	names := make([]string, len(r.Objects))
	for i, o := range r.Objects {
		names[i] = o.Name
	}
	summary := fmt.Sprintf("Scan complete. Found %d objects: %s.", len(r.Objects), strings.Join(names, ", "))
	if r.Mood != "" {
		summary += " Mood: " + r.Mood + "."
	}
	if r.Scene != "" {
		summary += "\n" + r.Scene
	}
	return summary
}

// StartAutoScan begins timer-driven detection. Ticks that arrive while a
// pass is in flight are dropped, not queued.
func (s *Session) StartAutoScan(ctx context.Context) {
	s.mu.Lock()
	if s.autoScanStop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.autoScanStop = stop
	s.mu.Unlock()

	go func() {
		// Immediate first pass, then the interval cadence.
		if _, err := s.scan(ctx, true); err != nil && !errors.Is(err, errDetectionBusy) {
			s.logger.Printf("auto-scan pass failed: %v", err)
		}
		ticker := time.NewTicker(s.cfg.AutoScanInterval())
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.scan(ctx, true); err != nil && !errors.Is(err, errDetectionBusy) {
					s.logger.Printf("auto-scan pass failed: %v", err)
				}
			}
		}
	}()
}

// StopAutoScan halts timer-driven detection.
func (s *Session) StopAutoScan() {
	s.mu.Lock()
	if s.autoScanStop != nil {
		close(s.autoScanStop)
		s.autoScanStop = nil
	}
	s.mu.Unlock()
}

// AutoScanning reports whether the auto-scan timer is running.
func (s *Session) AutoScanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoScanStop != nil
}

package main

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"strings"
	"testing"
)

// --- applyInstantFilter ---

func TestApplyInstantFilter_WhenSameFrameAndPreset_ShouldProduceIdenticalBytes(t *testing.T) {
	frame := testFramePNG(t, 80, 60, color.RGBA{180, 140, 90, 255})
	o := obj("desk lamp", 0.25, 0.25, 0.75, 0.75)
	preset, _ := LookupStyle(StyleZen)

	first, err := applyInstantFilter(frame, o, preset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := applyInstantFilter(frame, o, preset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(first.ImageData, second.ImageData) {
		t.Error("expected deterministic byte-identical output")
	}
	if first.Fidelity != FidelityInstant {
		t.Errorf("expected instant fidelity, got %s", first.Fidelity)
	}
	if !first.CreatedAt.Equal(second.CreatedAt) {
		t.Error("expected fixed timestamp")
	}
}

func TestApplyInstantFilter_WhenPresetsDiffer_ShouldProduceDifferentOutput(t *testing.T) {
	frame := testFramePNG(t, 80, 60, color.RGBA{180, 140, 90, 255})
	o := obj("desk lamp", 0.25, 0.25, 0.75, 0.75)
	zen, _ := LookupStyle(StyleZen)
	cyber, _ := LookupStyle(StyleCyberpunk)

	a, err := applyInstantFilter(frame, o, zen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := applyInstantFilter(frame, o, cyber)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bytes.Equal(a.ImageData, b.ImageData) {
		t.Error("expected different presets to yield different pixels")
	}
}

func TestApplyInstantFilter_WhenFrameUndecodable_ShouldFail(t *testing.T) {
	frame := Frame{Data: []byte("not an image"), MIMEType: "image/png"}
	preset, _ := LookupStyle(StyleZen)

	if _, err := applyInstantFilter(frame, obj("sofa", 0, 0, 1, 1), preset); err == nil {
		t.Error("expected decode failure")
	}
}

// --- ApplyStyle ---

func TestApplyStyle_WhenObjectDetected_ShouldStoreInstantTransform(t *testing.T) {
	s := newTestSession(t, &fakeModel{})
	s.Registry().Merge([]DetectedObject{obj("sofa", 0.1, 0.1, 0.5, 0.5)})

	tr, err := s.ApplyStyle(context.Background(), "sofa", StyleZen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Fidelity != FidelityInstant || tr.Style != StyleZen {
		t.Errorf("unexpected transform %+v", tr)
	}
	stored, ok := s.Registry().Transform("sofa")
	if !ok || !bytes.Equal(stored.ImageData, tr.ImageData) {
		t.Error("expected transform stored in registry")
	}
}

func TestApplyStyle_WhenObjectUnknown_ShouldFailWithoutTransform(t *testing.T) {
	s := newTestSession(t, &fakeModel{})

	if _, err := s.ApplyStyle(context.Background(), "ghost", StyleZen); err == nil {
		t.Error("expected unknown object rejection")
	}
	if len(s.Registry().Transforms()) != 0 {
		t.Error("expected no transform stored")
	}
}

func TestApplyStyle_WhenStyleUnknown_ShouldFail(t *testing.T) {
	s := newTestSession(t, &fakeModel{})
	s.Registry().Merge([]DetectedObject{obj("sofa", 0.1, 0.1, 0.5, 0.5)})

	if _, err := s.ApplyStyle(context.Background(), "sofa", "vaporwave"); err == nil {
		t.Error("expected unknown style rejection")
	}
}

// --- UpgradeStyle ---

func TestUpgradeStyle_WhenGenerationSucceeds_ShouldReplaceWithHighDef(t *testing.T) {
	model := &fakeModel{imageFn: func(prompt, style string) (*GeneratedImage, error) {
		if !strings.Contains(prompt, "sofa") {
			t.Errorf("expected prompt to describe the object, got %q", prompt)
		}
		return &GeneratedImage{Data: []byte{0xAB}, MIMEType: "image/png", UsedModel: "img-1"}, nil
	}}
	s := newTestSession(t, model)
	s.Registry().Merge([]DetectedObject{obj("sofa", 0.1, 0.1, 0.5, 0.5)})

	if _, err := s.ApplyStyle(context.Background(), "sofa", StyleZen); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr, err := s.UpgradeStyle(context.Background(), "sofa", StyleZen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Fidelity != FidelityHighDef {
		t.Errorf("expected highDef fidelity, got %s", tr.Fidelity)
	}
	stored, _ := s.Registry().Transform("sofa")
	if stored.Fidelity != FidelityHighDef || !bytes.Equal(stored.ImageData, []byte{0xAB}) {
		t.Error("expected highDef result to replace instant overlay")
	}
}

func TestUpgradeStyle_WhenGenerationFails_ShouldPreserveInstantOverlay(t *testing.T) {
	model := &fakeModel{imageFn: func(prompt, style string) (*GeneratedImage, error) {
		return nil, errors.New("generation refused")
	}}
	s := newTestSession(t, model)
	s.Registry().Merge([]DetectedObject{obj("sofa", 0.1, 0.1, 0.5, 0.5)})

	instant, err := s.ApplyStyle(context.Background(), "sofa", StyleZen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.UpgradeStyle(context.Background(), "sofa", StyleZen); err == nil {
		t.Fatal("expected upgrade failure")
	}

	stored, ok := s.Registry().Transform("sofa")
	if !ok || !bytes.Equal(stored.ImageData, instant.ImageData) {
		t.Error("expected instant overlay untouched after failed upgrade")
	}
	if _, ok := s.LastFailureNotice(); !ok {
		t.Error("expected a dismissable failure notice")
	}
}

func TestUpgradeStyle_WhenFailsTwice_ShouldKeepOnlyLatestNotice(t *testing.T) {
	model := &fakeModel{imageFn: func(prompt, style string) (*GeneratedImage, error) {
		return nil, errors.New("generation refused")
	}}
	s := newTestSession(t, model)
	s.Registry().Merge([]DetectedObject{
		obj("sofa", 0.1, 0.1, 0.5, 0.5),
		obj("plant", 0.6, 0.6, 0.8, 0.9),
	})

	s.UpgradeStyle(context.Background(), "sofa", StyleZen)
	s.UpgradeStyle(context.Background(), "plant", StyleCozy)

	notice, ok := s.LastFailureNotice()
	if !ok || !strings.Contains(notice, "plant") {
		t.Errorf("expected latest failure notice to win, got %q ok=%v", notice, ok)
	}
}

func TestUpgradeStyle_WhenObjectVanishedMidFlight_ShouldDropResult(t *testing.T) {
	model := &fakeModel{}
	s := newTestSession(t, model)
	model.mu.Lock()
	model.imageFn = func(prompt, style string) (*GeneratedImage, error) {
		// Simulate a detection batch landing while the render runs.
		s.Registry().Merge([]DetectedObject{obj("plant", 0.6, 0.6, 0.8, 0.9)})
		return &GeneratedImage{Data: []byte{1}, MIMEType: "image/png"}, nil
	}
	model.mu.Unlock()
	s.Registry().Merge([]DetectedObject{obj("sofa", 0.1, 0.1, 0.5, 0.5)})

	if _, err := s.UpgradeStyle(context.Background(), "sofa", StyleZen); err == nil {
		t.Fatal("expected stale-result rejection")
	}
	if _, ok := s.Registry().Transform("sofa"); ok {
		t.Error("expected no transform stored for a vanished object")
	}
}

// --- RetryUpgrade ---

func TestRetryUpgrade_WhenPriorFailureExists_ShouldReplayExactPair(t *testing.T) {
	var prompts []string
	fail := true
	model := &fakeModel{}
	model.imageFn = func(prompt, style string) (*GeneratedImage, error) {
		prompts = append(prompts, prompt)
		if fail {
			return nil, errors.New("generation refused")
		}
		return &GeneratedImage{Data: []byte{2}, MIMEType: "image/png"}, nil
	}
	s := newTestSession(t, model)
	s.Registry().Merge([]DetectedObject{obj("sofa", 0.1, 0.1, 0.5, 0.5)})

	s.UpgradeStyle(context.Background(), "sofa", StyleCozy)
	fail = false
	tr, err := s.RetryUpgrade(context.Background())
	if err != nil {
		t.Fatalf("unexpected retry error: %v", err)
	}
	if tr.ObjectName != "sofa" || tr.Style != StyleCozy {
		t.Errorf("expected exact replay of sofa/cozy, got %s/%s", tr.ObjectName, tr.Style)
	}
	if len(prompts) != 2 || prompts[0] != prompts[1] {
		t.Error("expected identical prompt on retry")
	}
	if _, ok := s.LastFailureNotice(); ok {
		t.Error("expected failure notice cleared after successful retry")
	}
}

func TestRetryUpgrade_WhenNoPriorFailure_ShouldReject(t *testing.T) {
	s := newTestSession(t, &fakeModel{})
	if _, err := s.RetryUpgrade(context.Background()); err == nil {
		t.Error("expected rejection without a prior failure")
	}
}

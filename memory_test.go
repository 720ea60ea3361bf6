package main

import (
	"context"
	"strings"
	"testing"

	"github.com/philippgille/chromem-go"
)

// stubEmbedder maps text to a tiny deterministic vector so memory tests run
// without network access.
func stubEmbedder() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		text = strings.TrimPrefix(text, QueryTaskPrefix)
		v := make([]float32, 8)
		for i, r := range strings.ToLower(text) {
			v[i%8] += float32(r % 13)
		}
		normalize(v)
		return v, nil
	}
}

func openTestMemory(t *testing.T) *SceneMemory {
	t.Helper()
	m, err := NewSceneMemory(t.TempDir(), stubEmbedder(), nil)
	if err != nil {
		t.Fatalf("failed to open memory: %v", err)
	}
	return m
}

func TestRecall_WhenNothingStored_ShouldReturnEmpty(t *testing.T) {
	m := openTestMemory(t)
	got, err := m.Recall(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no recall, got %v", got)
	}
}

func TestRememberScan_WhenStored_ShouldBeRecallable(t *testing.T) {
	m := openTestMemory(t)
	err := m.RememberScan(context.Background(), "session-1", detection("standing desk", "monstera"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.Recall(context.Background(), "standing desk", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || !strings.Contains(got[0], "standing desk") {
		t.Errorf("expected stored scan recalled, got %v", got)
	}
}

func TestRecall_WhenFewerDocumentsThanAsked_ShouldCapResultCount(t *testing.T) {
	m := openTestMemory(t)
	if err := m.RememberScan(context.Background(), "session-1", detection("sofa")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.Recall(context.Background(), "sofa", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected capped single result, got %d", len(got))
	}
}

func TestNormalize_WhenVectorNonZero_ShouldProduceUnitLength(t *testing.T) {
	v := []float32{3, 4}
	normalize(v)
	if v[0] != 0.6 || v[1] != 0.8 {
		t.Errorf("expected unit vector, got %v", v)
	}
}

func TestNormalize_WhenZeroVector_ShouldLeaveUntouched(t *testing.T) {
	v := []float32{0, 0, 0}
	normalize(v)
	for _, x := range v {
		if x != 0 {
			t.Errorf("expected zero vector unchanged, got %v", v)
		}
	}
}

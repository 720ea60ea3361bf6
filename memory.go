package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"google.golang.org/genai"
)

// SceneMemory is a persistent semantic store of what the assistant has seen
// and suggested across sessions. Scan results and suggestion batches are
// written as documents; chat enrichment recalls the closest matches to the
// current utterance.
type SceneMemory struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	logger     *log.Logger
}

// NewSceneMemory opens (or creates) the persistent memory store at dbPath.
func NewSceneMemory(dbPath string, embFunc chromem.EmbeddingFunc, logger *log.Logger) (*SceneMemory, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	db, err := chromem.NewPersistentDB(dbPath, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}
	col, err := db.GetOrCreateCollection(MemoryCollectionName, nil, embFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory collection: %w", err)
	}
	return &SceneMemory{db: db, collection: col, logger: logger}, nil
}

// RememberScan stores one detection pass as a memory document.
func (m *SceneMemory) RememberScan(ctx context.Context, sessionID string, result *DetectionResult) error {
	names := make([]string, 0, len(result.Objects))
	for _, o := range result.Objects {
		names = append(names, o.Name)
	}
	content := fmt.Sprintf("Scene: %s. Mood: %s. Lighting: %s. Objects: %s.",
		result.Scene, result.Mood, result.Lighting, strings.Join(names, ", "))

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collection.AddDocument(ctx, chromem.Document{
		ID:      uuid.New().String(),
		Content: content,
		Metadata: map[string]string{
			"kind":       "scan",
			"session_id": sessionID,
			"observed":   time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// RememberSuggestions stores a suggestion batch as a memory document.
func (m *SceneMemory) RememberSuggestions(ctx context.Context, sessionID string, result *SuggestionResult) error {
	names := make([]string, 0, len(result.Suggestions))
	for _, sug := range result.Suggestions {
		names = append(names, sug.Name)
	}
	content := fmt.Sprintf("Suggested for this room: %s. Summary: %s",
		strings.Join(names, ", "), result.RoomSummary)

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collection.AddDocument(ctx, chromem.Document{
		ID:      uuid.New().String(),
		Content: content,
		Metadata: map[string]string{
			"kind":       "suggestion",
			"session_id": sessionID,
			"observed":   time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// Recall returns up to n stored observations closest to the query.
func (m *SceneMemory) Recall(ctx context.Context, query string, n int) ([]string, error) {
	m.mu.RLock()
	count := m.collection.Count()
	m.mu.RUnlock()
	if count == 0 {
		return nil, nil
	}
	if n > count {
		n = count
	}

	m.mu.RLock()
	results, err := m.collection.Query(ctx, QueryTaskPrefix+query, n, nil, nil)
	m.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("memory recall failed: %w", err)
	}

	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Content)
	}
	return out, nil
}

// makeGeminiEmbedder builds the embedding function for the memory store.
// Documents embed with the retrieval-document task type; queries carry the
// QueryTaskPrefix marker and embed with the retrieval-query task type.
func makeGeminiEmbedder(client *genai.Client, modelName string) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		taskType := TaskTypeDocument
		if strings.HasPrefix(text, QueryTaskPrefix) {
			taskType = TaskTypeQuery
			text = strings.TrimPrefix(text, QueryTaskPrefix)
		}

		contents := []*genai.Content{{Parts: []*genai.Part{{Text: text}}}}
		dim := int32(EmbeddingDimension)
		res, err := client.Models.EmbedContent(ctx, modelName, contents, &genai.EmbedContentConfig{
			TaskType:             taskType,
			OutputDimensionality: &dim,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding failed: %w", err)
		}
		if len(res.Embeddings) == 0 {
			return nil, fmt.Errorf("no embeddings returned")
		}
		normalize(res.Embeddings[0].Values)
		return res.Embeddings[0].Values, nil
	}
}

func normalize(v []float32) {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}
	magnitude := float32(math.Sqrt(sum))
	if magnitude <= 0 {
		return
	}
	for i := range v {
		v[i] /= magnitude
	}
}

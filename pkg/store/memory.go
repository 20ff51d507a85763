package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/xhad/tutor/internal/models"
)

// MemoryIndex holds vectors in process memory, partitioned by
// namespace. Meant for development and tests; same contract as the
// persistent backends.
type MemoryIndex struct {
	mu         sync.RWMutex
	dim        int
	namespaces map[string]map[string]models.VectorRecord
}

func NewMemoryIndex(dim int) *MemoryIndex {
	if dim == 0 {
		dim = 1536
	}
	return &MemoryIndex{
		dim:        dim,
		namespaces: make(map[string]map[string]models.VectorRecord),
	}
}

func (m *MemoryIndex) Upsert(_ context.Context, namespace string, records []models.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = make(map[string]models.VectorRecord)
		m.namespaces[namespace] = ns
	}
	for _, rec := range records {
		ns[rec.ID] = rec
	}
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, namespace string, vector []float32, topK int) ([]models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns := m.namespaces[namespace]
	matches := make([]models.Match, 0, len(ns))
	for _, rec := range ns {
		matches = append(matches, models.Match{
			ID:    rec.ID,
			Score: cosineSimilarity(vector, rec.Values),
			Chunk: rec.Chunk,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) Sample(_ context.Context, namespace string, limit int) ([]models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns := m.namespaces[namespace]
	matches := make([]models.Match, 0, len(ns))
	for _, rec := range ns {
		matches = append(matches, models.Match{ID: rec.ID, Chunk: rec.Chunk})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Chunk.Index < matches[j].Chunk.Index
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (m *MemoryIndex) Delete(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.namespaces, namespace)
	return nil
}

func (m *MemoryIndex) Dimensions() int {
	return m.dim
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

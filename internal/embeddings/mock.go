package embeddings

import (
	"context"
	"crypto/sha256"
	"errors"
	"strings"
	"sync/atomic"

	pkgembeddings "github.com/surfreport/hub/pkg/embeddings"
)

// MockEmbedder implements TextEmbedder for tests. It derives a deterministic unit vector from the
// input hash, or returns Err when set.
type MockEmbedder struct {
	Dimensions int
	Err        error

	calls atomic.Int64
}

// NewMockEmbedder creates a mock returning vectors of the given length.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	return &MockEmbedder{Dimensions: dimensions}
}

// CreateEmbedding implements TextEmbedder.
func (m *MockEmbedder) CreateEmbedding(_ context.Context, input string) ([]float32, error) {
	m.calls.Add(1)

	if m.Err != nil {
		return nil, m.Err
	}

	if strings.TrimSpace(input) == "" {
		return nil, errors.New("mock embedder: input text is empty")
	}

	hash := sha256.Sum256([]byte(input))
	vector := make([]float32, m.Dimensions)

	for i := range vector {
		// Map hash bytes cyclically into [-1, 1].
		vector[i] = float32(hash[i%len(hash)])/127.5 - 1.0
	}

	pkgembeddings.NormalizeL2(vector)

	return vector, nil
}

// Calls returns how many times CreateEmbedding ran.
func (m *MockEmbedder) Calls() int64 {
	return m.calls.Load()
}

var _ TextEmbedder = (*MockEmbedder)(nil)

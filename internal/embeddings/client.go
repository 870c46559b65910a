package embeddings

import "context"

// TextEmbedder turns a phrase into a vector. The remote backends (openai, googleai) and the local
// ones (localembed) implement it; the returned length may differ from the engine's dimensionality.
type TextEmbedder interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}

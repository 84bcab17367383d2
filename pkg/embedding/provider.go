package embedding

import "context"

// EmbeddingProvider defines the interface for turning text into vectors.
type EmbeddingProvider interface {
	// EmbedBatch embeds all inputs in one request, returning one vector
	// per input in input order.
	EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error)
}

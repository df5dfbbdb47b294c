package embed

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrUnavailable marks recoverable embedder failures: the external capability
// is unreachable or returned malformed output. Retry/backoff is the caller's
// concern.
var ErrUnavailable = errors.New("embedding unavailable")

// Embedder turns text into fixed-dimension vectors. EmbedBatch exists for
// throughput only and is semantically identical to calling Embed per item.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// validate rejects vectors of the wrong dimensionality or with non-finite
// components before they can reach the index.
func validate(vec []float32, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("%w: got %d dimensions, expected %d", ErrUnavailable, len(vec), dim)
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite value at dimension %d", ErrUnavailable, i)
		}
	}
	return nil
}

func validateBatch(vecs [][]float32, want, dim int) error {
	if len(vecs) != want {
		return fmt.Errorf("%w: got %d vectors for %d inputs", ErrUnavailable, len(vecs), want)
	}
	for _, v := range vecs {
		if err := validate(v, dim); err != nil {
			return err
		}
	}
	return nil
}

package ports

import (
	"context"

	"gocoherence/domain/entropy"
)

// StreamSourcePort supplies the per-device read streams of one recording session.
// Implementations return reads in non-decreasing timestamp order per device.
type StreamSourcePort interface {
	Load(ctx context.Context) (entropy.StreamSet, error)

	// Describe names the source for logs and report labels
	Describe() string
}

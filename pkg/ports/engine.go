package ports

import (
	"context"

	"github.com/aretw0/weft/pkg/domain"
)

// Engine is the surface adapters (CLI, demo servers) use to drive runs.
type Engine interface {
	// Run walks frames from start until a Terminal routing.
	// On failure the partial Result is returned together with the error.
	Run(ctx context.Context, start any, input map[string]any) (*domain.Result, error)
}

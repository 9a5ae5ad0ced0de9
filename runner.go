package weft

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/weft/pkg/domain"
)

// Runner executes runs and streams their History as JSON lines, one frame
// per line, followed by a response line when the run succeeds.
// This allows for easy testing and integration with different frontends.
type Runner struct {
	Output io.Writer
}

// NewRunner creates a runner writing to w.
func NewRunner(w io.Writer) *Runner {
	return &Runner{Output: w}
}

type responseLine struct {
	RunID    string `json:"run_id"`
	Frames   int    `json:"frames"`
	Response any    `json:"response"`
}

// Run executes one run and writes its trace. Partial histories of failed runs
// are written before the error is returned.
func (r *Runner) Run(ctx context.Context, engine *Engine, start any, input Input) (*domain.Result, error) {
	if r.Output == nil {
		return nil, fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	res, runErr := engine.Run(ctx, start, input)

	enc := json.NewEncoder(r.Output)
	for _, inst := range res.History {
		if err := enc.Encode(inst); err != nil {
			return res, fmt.Errorf("write frame %d: %w", inst.Index, err)
		}
	}
	if runErr != nil {
		return res, runErr
	}
	if err := enc.Encode(responseLine{RunID: res.RunID, Frames: len(res.History), Response: res.Response}); err != nil {
		return res, fmt.Errorf("write response: %w", err)
	}
	return res, nil
}

package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/frame"
	"github.com/aretw0/weft/pkg/ports"
)

// route picks the successor of a produced frame. It returns nil when the
// frame is terminal.
func (e *Engine) route(ctx context.Context, rs *runState, ft *frame.Type, inst domain.FrameInstance, logger *slog.Logger) (*frame.Type, error) {
	routing := frame.Route(ft)

	switch routing.Kind {
	case domain.RoutingDirect:
		nextFrame, err := e.lookupNext(routing.Next[0])
		if err != nil {
			return nil, err
		}
		rs.events.routed(ctx, rs.id, ft.Name, routing.Kind, nextFrame.Name)
		return nextFrame, nil

	case domain.RoutingDecision:
		rs.enter(PhaseDeciding)
		chosen, err := e.decide(ctx, rs, ft, inst, routing)
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "successor chosen", "frame", ft.Name, "next", chosen.Name)
		rs.events.routed(ctx, rs.id, ft.Name, routing.Kind, chosen.Name)
		return chosen, nil

	default:
		rs.events.routed(ctx, rs.id, ft.Name, domain.RoutingTerminal, "")
		return nil, nil
	}
}

// decide asks the filler to select one of the declared successors.
func (e *Engine) decide(ctx context.Context, rs *runState, ft *frame.Type, inst domain.FrameInstance, routing domain.Routing) (*frame.Type, error) {
	if e.filler == nil {
		return nil, &domain.FillError{Frame: ft.Name, Err: errors.New("no filler configured to choose a successor")}
	}

	candidates := make([]ports.Candidate, 0, len(routing.Next))
	byName := make(map[string]*frame.Type, len(routing.Next))
	for _, name := range routing.Next {
		ct, err := e.lookupNext(name)
		if err != nil {
			return nil, err
		}
		byName[name] = ct
		candidates = append(candidates, ports.Candidate{
			Name:        ct.Name,
			Instruction: ct.Instruction,
			Schema:      ct.Schema,
		})
	}

	ctx, span := tracer.Start(ctx, "weft.decide", trace.WithAttributes(
		attribute.String("frame.name", ft.Name),
		attribute.StringSlice("decide.candidates", routing.Next),
	))
	defer span.End()

	name, err := e.filler.Choose(ctx, ports.ChooseRequest{
		RunID:      rs.id,
		Current:    inst,
		Candidates: candidates,
		History:    rs.history.Snapshot(),
	})
	if err != nil {
		return nil, interrupted(ctx, ft.Name, err, func(err error) error {
			return &domain.FillError{Frame: ft.Name, Err: fmt.Errorf("choose successor: %w", err)}
		})
	}
	if !routing.Allows(name) {
		return nil, &domain.FillError{Frame: ft.Name, Err: fmt.Errorf("chose %q, expected one of %v", name, routing.Next)}
	}
	chosen := byName[name]
	span.SetAttributes(attribute.String("decide.chosen", name))
	return chosen, nil
}

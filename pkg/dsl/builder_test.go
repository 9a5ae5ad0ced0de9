package dsl

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/weft/pkg/dependency"
	"github.com/aretw0/weft/pkg/domain"
)

type Ask struct {
	Question string `json:"question" frame:"input"`
	Topic    string `json:"topic" frame:"dep:classify"`
}

type Answer struct {
	Text string `json:"text"`
}

type Handoff struct {
	Team string `json:"team"`
}

func classify(ctx context.Context, args dependency.Args) (string, error) {
	return "billing", nil
}

func TestBuilder_DecisionFlow(t *testing.T) {
	b := New("support")
	b.Dependency(dependency.Of("classify", classify, dependency.FromField("q", "question")))

	b.Frame(Ask{}).
		Instruct("Understand the customer question").
		Decide(Answer{}, Handoff{}, nil)
	b.Frame(Answer{}).Respond("text")
	b.Frame(Handoff{}).Named("HumanHandoff")

	flow, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if flow.Name != "support" || flow.Start != "Ask" {
		t.Errorf("unexpected flow identity: %q start %q", flow.Name, flow.Start)
	}

	ask, err := flow.Frames.Lookup("Ask")
	if err != nil {
		t.Fatalf("Lookup(Ask) failed: %v", err)
	}
	if ask.Routing.Kind != domain.RoutingDecision {
		t.Fatalf("expected decision routing, got %s", ask.Routing)
	}
	if got := strings.Join(ask.Routing.Next, ","); got != "Answer,HumanHandoff" {
		t.Errorf("expected candidates Answer,HumanHandoff, got %s", got)
	}
	if ask.Instruction != "Understand the customer question" {
		t.Errorf("instruction not applied: %q", ask.Instruction)
	}

	answer, _ := flow.Frames.Lookup("Answer")
	if answer.Routing.Kind != domain.RoutingTerminal || answer.Response != "text" {
		t.Errorf("unexpected Answer frame: %+v", answer.Routing)
	}
	if _, ok := flow.Deps.Lookup("classify"); !ok {
		t.Error("classify dependency not registered")
	}
}

func TestBuilder_FrameIsIdempotent(t *testing.T) {
	b := New("x")
	first := b.Frame(Answer{})
	if second := b.Frame(&Answer{}); first != second {
		t.Error("declaring the same type twice must return the same builder")
	}
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Builder
		message string
	}{
		{
			name:    "empty flow",
			build:   func() *Builder { return New("empty") },
			message: "no frames",
		},
		{
			name: "unknown dependency",
			build: func() *Builder {
				b := New("f")
				b.Frame(Ask{})
				return b
			},
			message: `unknown dependency "classify"`,
		},
		{
			name: "unregistered successor",
			build: func() *Builder {
				b := New("f")
				b.Frame(Answer{}).Next(Handoff{})
				return b
			},
			message: "unknown frame",
		},
		{
			name: "decision with one candidate",
			build: func() *Builder {
				b := New("f")
				b.Frame(Answer{}).Decide(Handoff{}, nil)
				b.Frame(Handoff{})
				return b
			},
			message: "two or more successors",
		},
		{
			name: "dependency without function",
			build: func() *Builder {
				b := New("f")
				b.Dependency(
					dependency.New("classify", nil, dependency.FromDependency("x", "route")),
				)
				b.Frame(Ask{})
				return b
			},
			message: "has no function",
		},
		{
			name: "field parameter on unknown field",
			build: func() *Builder {
				b := New("f")
				b.Dependency(dependency.Of("classify", classify, dependency.FromField("q", "nowhere")))
				b.Frame(Ask{})
				return b
			},
			message: `unknown field "nowhere"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Build()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("expected error containing %q, got %v", tt.message, err)
			}
		})
	}
}

func TestBuilder_DependencyCycle(t *testing.T) {
	echo := func(ctx context.Context, args dependency.Args) (any, error) { return args["x"], nil }

	b := New("cyclic")
	b.Dependency(
		dependency.New("classify", echo, dependency.FromDependency("x", "route")),
		dependency.New("route", echo, dependency.FromDependency("x", "classify")),
	)
	b.Frame(Ask{})

	_, err := b.Build()
	var cycle *domain.DependencyCycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected a DependencyCycleError, got %v", err)
	}
	if !errors.Is(err, domain.ErrDefinition) {
		t.Error("cycles are definition errors")
	}
}

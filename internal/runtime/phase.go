package runtime

// Phase is the lifecycle position of the frame currently being produced.
type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseResolving Phase = "resolving"
	PhaseFilling   Phase = "filling"
	PhaseProduced  Phase = "produced"
	PhaseDeciding  Phase = "deciding"
	PhaseTerminal  Phase = "terminal"
)

// next lists the legal transitions out of each phase.
var next = map[Phase][]Phase{
	PhasePending:   {PhaseResolving},
	PhaseResolving: {PhaseFilling},
	PhaseFilling:   {PhaseProduced},
	PhaseProduced:  {PhasePending, PhaseDeciding, PhaseTerminal},
	PhaseDeciding:  {PhasePending},
}

// CanTransition reports whether the scheduler may move from one phase to another.
func CanTransition(from, to Phase) bool {
	for _, p := range next[from] {
		if p == to {
			return true
		}
	}
	return false
}

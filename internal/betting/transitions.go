package betting

// validTransitions lists the permitted phase changes besides cancellation and
// resets to idle, which are allowed from anywhere.
var validTransitions = map[Phase][]Phase{
	PhaseIdle: {
		PhaseAwaitingField,
		PhaseAwaitingWagerAmount,
		PhaseComplete,
	},
	PhaseAwaitingField: {
		PhaseAwaitingField,
		PhaseAwaitingWagerAmount,
		PhaseComplete,
	},
	PhaseAwaitingWagerAmount: {
		PhaseAwaitingField,
		PhaseComplete,
	},
	PhaseComplete: {
		PhaseAwaitingField,
		PhaseAwaitingWagerAmount,
		PhaseComplete,
	},
	PhaseCancelled: {
		PhaseAwaitingField,
		PhaseAwaitingWagerAmount,
		PhaseComplete,
	},
}

// IsTransitionAllowed reports whether moving from one phase to another is valid.
func IsTransitionAllowed(from, to Phase) bool {
	if from == to || to == PhaseCancelled || to == PhaseIdle {
		return true
	}

	for _, p := range validTransitions[from] {
		if p == to {
			return true
		}
	}

	return false
}

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe phase changes.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

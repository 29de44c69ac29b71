package ripjob

// Phase is one state of the rip job machine. The set is closed; transitions
// outside the table below are programming errors and panic in the recorder.
type Phase int

const (
	PhaseWaitForDisc Phase = iota
	PhaseDiscDetected
	PhaseRip
	PhaseVerifyOutputs
	PhasePlanRename
	PhaseCommitMoves
	PhaseEject
	PhaseDone
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseWaitForDisc:   "WAIT_FOR_DISC",
	PhaseDiscDetected:  "DISC_DETECTED",
	PhaseRip:           "RIP",
	PhaseVerifyOutputs: "VERIFY_OUTPUTS",
	PhasePlanRename:    "PLAN_RENAME",
	PhaseCommitMoves:   "COMMIT_MOVES",
	PhaseEject:         "EJECT",
	PhaseDone:          "DONE",
	PhaseFailed:        "FAILED",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "UNKNOWN"
}

// phaseTransitions is the closed transition table. Every phase may also move
// to PhaseFailed; that edge is implicit.
var phaseTransitions = map[Phase][]Phase{
	PhaseWaitForDisc:   {PhaseDiscDetected},
	PhaseDiscDetected:  {PhaseRip},
	PhaseRip:           {PhaseVerifyOutputs},
	PhaseVerifyOutputs: {PhasePlanRename},
	PhasePlanRename:    {PhaseCommitMoves},
	PhaseCommitMoves:   {PhaseEject, PhaseDone},
	PhaseEject:         {PhaseDone},
}

func legalTransition(from, to Phase) bool {
	if to == PhaseFailed {
		return true
	}
	if from == PhaseFailed && to == PhaseEject {
		return true
	}
	for _, next := range phaseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

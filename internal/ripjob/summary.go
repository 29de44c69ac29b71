package ripjob

import (
	"fmt"
	"time"

	"discmapper/internal/queue"
)

// Transition is one recorded phase change.
type Transition struct {
	At     time.Time
	From   Phase
	To     Phase
	Detail string
}

// ReviewEntry flags something the matcher or keeper selection could not
// place automatically. Review entries accompany a successful job; they are
// not failures.
type ReviewEntry struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// Summary is the one record a finished job leaves behind: where time went,
// how it ended, and what actually happened (not just what policy asked for).
type Summary struct {
	JobID       int64
	RunID       string
	FinalStatus queue.Status
	Failure     *Failure

	WaitDuration   time.Duration
	RipDuration    time.Duration
	VerifyDuration time.Duration
	MoveDuration   time.Duration

	RawKept bool
	Ejected bool

	Review      []ReviewEntry
	Transitions []Transition
}

// Phases returns the recorded phase entry sequence.
func (s *Summary) Phases() []Phase {
	out := make([]Phase, 0, len(s.Transitions))
	for _, tr := range s.Transitions {
		out = append(out, tr.To)
	}
	return out
}

// recorder observes phase transitions and accumulates the summary. It is
// the machine's only writer of enteredAt timestamps.
type recorder struct {
	clock     func() time.Time
	phase     Phase
	started   bool
	enteredAt map[Phase]time.Time
	summary   *Summary
}

func newRecorder(clock func() time.Time) *recorder {
	return &recorder{
		clock:     clock,
		enteredAt: make(map[Phase]time.Time),
		summary:   &Summary{},
	}
}

// transition moves the recorder to the next phase, stamping its entry time
// and closing out the duration of the phase being left.
func (r *recorder) transition(to Phase, detail string) {
	now := r.clock()
	from := r.phase
	if r.started {
		if !legalTransition(from, to) {
			panic(fmt.Sprintf("illegal phase transition %s -> %s", from, to))
		}
		r.recordDuration(from, now)
	}
	if _, seen := r.enteredAt[to]; !seen {
		r.enteredAt[to] = now
	}
	r.summary.Transitions = append(r.summary.Transitions, Transition{At: now, From: from, To: to, Detail: detail})
	r.phase = to
	r.started = true
}

func (r *recorder) recordDuration(phase Phase, now time.Time) {
	entered, ok := r.enteredAt[phase]
	if !ok {
		return
	}
	elapsed := now.Sub(entered)
	switch phase {
	case PhaseWaitForDisc:
		r.summary.WaitDuration = elapsed
	case PhaseRip:
		r.summary.RipDuration = elapsed
	case PhaseVerifyOutputs:
		r.summary.VerifyDuration = elapsed
	case PhaseCommitMoves:
		r.summary.MoveDuration = elapsed
	}
}

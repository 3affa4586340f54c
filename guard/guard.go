// Package guard decides, before any expensive work begins, whether an
// incoming event refers to work already completed or to a file with no
// business record to attach results to.
package guard

import (
	"context"

	"github.com/atento-labs/callaudit/storage"
)

// Outcome is the guard's verdict for a file name.
type Outcome int

const (
	// Proceed: no result yet and an untreated evaluation exists.
	Proceed Outcome = iota
	// AlreadyDone: a result exists or the evaluation is already treated.
	// The message is acknowledged as a no-op.
	AlreadyDone
	// Unassociated: no evaluation record resolves from the file name.
	// Always terminal; there is nothing to attach a result to.
	Unassociated
)

func (o Outcome) String() string {
	switch o {
	case AlreadyDone:
		return "already_done"
	case Unassociated:
		return "unassociated"
	default:
		return "proceed"
	}
}

// Decision carries the outcome and, for Proceed, the resolved evaluation.
type Decision struct {
	Outcome    Outcome
	Evaluation *storage.Evaluation
}

// Guard performs the idempotency check. Concurrent checks for the same
// file name are collapsed to a single store round trip; the store's
// conditional treated-flag write remains the authoritative race breaker.
type Guard struct {
	store  storage.Store
	flight flightGroup[string, Decision]
}

func New(store storage.Store) *Guard {
	return &Guard{store: store}
}

// Check resolves the guard decision for a file name.
func (g *Guard) Check(ctx context.Context, fileName string) (Decision, error) {
	return g.flight.Do(fileName, func() (Decision, error) {
		return g.check(ctx, fileName)
	})
}

func (g *Guard) check(ctx context.Context, fileName string) (Decision, error) {
	exists, err := g.store.ResultExists(ctx, fileName)
	if err != nil {
		return Decision{}, err
	}
	if exists {
		return Decision{Outcome: AlreadyDone}, nil
	}

	eval, err := g.store.FindEvaluation(ctx, fileName)
	if err == storage.ErrNotFound {
		return Decision{Outcome: Unassociated}, nil
	}
	if err != nil {
		return Decision{}, err
	}

	if eval.Treated {
		return Decision{Outcome: AlreadyDone, Evaluation: eval}, nil
	}
	return Decision{Outcome: Proceed, Evaluation: eval}, nil
}

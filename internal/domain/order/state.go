package order

import (
	"errors"
	"fmt"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCanceled  Status = "canceled"
	StatusShipped   Status = "shipped"
	StatusCompleted Status = "completed"
	StatusRefunded  Status = "refunded"
)

var ErrIllegalTransition = errors.New("order: illegal status transition")

// transitions lists the allowed outgoing statuses. Statuses without an
// entry are terminal.
var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCanceled},
	StatusPaid:    {StatusShipped, StatusRefunded},
	StatusShipped: {StatusCompleted},
}

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusPaid, StatusCanceled, StatusShipped, StatusCompleted, StatusRefunded}
}

func ParseStatus(s string) (Status, bool) {
	for _, st := range Statuses() {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s Status) String() string { return string(s) }

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// TransitionError reports a status change that the lifecycle forbids.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrIllegalTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

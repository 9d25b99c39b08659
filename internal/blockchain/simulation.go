package blockchain

import (
	"context"
	"fmt"
)

type SimulationOutcome int

const (
	// SimulationOK means the call executed without reverting.
	SimulationOK SimulationOutcome = iota
	// SimulationRejected means the call will revert with Reason.
	SimulationRejected
	// SimulationUnknown means the node could not be asked, callers may proceed.
	SimulationUnknown
)

func (o SimulationOutcome) String() string {
	switch o {
	case SimulationOK:
		return "ok"
	case SimulationRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// SimulationResult tells "definitely fails" apart from "could not determine".
type SimulationResult struct {
	Outcome SimulationOutcome
	Method  string
	Reason  string
	// Err is set for SimulationUnknown.
	Err error
}

// Error is non-nil only for a rejected simulation.
func (r SimulationResult) Error() error {
	if r.Outcome != SimulationRejected {
		return nil
	}
	return &SimulationError{Method: r.Method, Reason: r.Reason}
}

func (r SimulationResult) String() string {
	switch r.Outcome {
	case SimulationRejected:
		return fmt.Sprintf("%s rejected: %s", r.Method, r.Reason)
	case SimulationUnknown:
		return fmt.Sprintf("%s unknown: %v", r.Method, r.Err)
	default:
		return r.Method + " ok"
	}
}

// Simulate executes the call against the latest state without committing it.
func (c *Client) Simulate(ctx context.Context, call Call) SimulationResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.backend.CallContract(ctx, call.msg(c.key.Address), nil)
	if err == nil {
		return SimulationResult{Outcome: SimulationOK, Method: call.Method}
	}

	if reason, ok := revertReason(err); ok {
		return SimulationResult{Outcome: SimulationRejected, Method: call.Method, Reason: reason}
	}

	return SimulationResult{Outcome: SimulationUnknown, Method: call.Method, Err: classify(err)}
}

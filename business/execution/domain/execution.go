package domain

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	arbitragedomain "github.com/replitcryptobots-blip/Sonicarbi/business/arbitrage/domain"
)

// Status is the lifecycle state of one settlement attempt.
type Status string

const (
	StatusDiscovered      Status = "discovered"
	StatusSimulated       Status = "simulated"
	StatusSlippageChecked Status = "slippage_checked"
	StatusSubmitted       Status = "submitted"
	StatusConfirmed       Status = "confirmed"
	StatusReverted        Status = "reverted"
	StatusFailed          Status = "failed"
)

// terminal statuses end the attempt.
func (s Status) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusReverted, StatusFailed:
		return true
	}
	return false
}

// validTransitions is the forward-only settlement pipeline. Failed is
// reachable from any non-terminal state.
var validTransitions = map[Status][]Status{
	StatusDiscovered:      {StatusSimulated, StatusFailed},
	StatusSimulated:       {StatusSlippageChecked, StatusFailed},
	StatusSlippageChecked: {StatusSubmitted, StatusFailed},
	StatusSubmitted:       {StatusConfirmed, StatusReverted, StatusFailed},
}

// Execution tracks one settlement attempt through the pipeline.
type Execution struct {
	Opportunity *arbitragedomain.Opportunity
	Status      Status
	StartedAt   time.Time
	UpdatedAt   time.Time

	// SimulatedProfit is the borrow-token profit the on-chain
	// simulation reported.
	SimulatedProfit decimal.Decimal

	// TxHash is set once the transaction is submitted.
	TxHash common.Hash

	// GasUsed is set from the receipt on confirmation.
	GasUsed uint64

	// FailReason records why a terminal failure happened.
	FailReason string
}

// NewExecution starts an attempt in the discovered state.
func NewExecution(opp *arbitragedomain.Opportunity) *Execution {
	now := time.Now()
	return &Execution{
		Opportunity: opp,
		Status:      StatusDiscovered,
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

// Transition moves the attempt to the next state, rejecting moves the
// pipeline does not allow.
func (e *Execution) Transition(to Status) error {
	for _, allowed := range validTransitions[e.Status] {
		if allowed == to {
			e.Status = to
			e.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("invalid execution transition %s -> %s", e.Status, to)
}

// Fail moves the attempt to failed with a reason, from any
// non-terminal state.
func (e *Execution) Fail(reason string) {
	if e.Status.Terminal() {
		return
	}
	e.Status = StatusFailed
	e.FailReason = reason
	e.UpdatedAt = time.Now()
}

// Duration returns how long the attempt has been running.
func (e *Execution) Duration() time.Duration {
	return e.UpdatedAt.Sub(e.StartedAt)
}

package events

import (
	"github.com/holiman/uint256"

	"magni/core/types"
	"magni/crypto"
)

const (
	// TypeTokenTransfer captures a DEBT balance movement, including mints and burns.
	TypeTokenTransfer = "token.transfer"
	// TypeTokenApproval captures an allowance update.
	TypeTokenApproval = "token.approval"
)

// Transfer captures a DEBT movement. Mints carry a zero From; burns a zero To.
type Transfer struct {
	From      crypto.Address
	To        crypto.Address
	AmountWad *uint256.Int
}

// EventType satisfies the Event interface.
func (Transfer) EventType() string { return TypeTokenTransfer }

// Event converts the structured payload into a broadcastable event.
func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"amount": formatWad(e.AmountWad),
	}
	if !e.From.IsZero() {
		attrs["from"] = e.From.String()
	}
	if !e.To.IsZero() {
		attrs["to"] = e.To.String()
	}
	return &types.Event{Type: TypeTokenTransfer, Attributes: attrs}
}

// Approval captures an allowance granted from owner to spender.
type Approval struct {
	Owner     crypto.Address
	Spender   crypto.Address
	AmountWad *uint256.Int
}

// EventType satisfies the Event interface.
func (Approval) EventType() string { return TypeTokenApproval }

// Event converts the structured payload into a broadcastable event.
func (e Approval) Event() *types.Event {
	return &types.Event{Type: TypeTokenApproval, Attributes: map[string]string{
		"owner":   e.Owner.String(),
		"spender": e.Spender.String(),
		"amount":  formatWad(e.AmountWad),
	}}
}

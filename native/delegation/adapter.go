package delegation

import (
	"errors"
	"math/big"

	"magni/core/events"
	"magni/crypto"
)

var (
	// ErrUnbondingNotComplete is returned by TrySettle while the host has not
	// released enough liquidity to cover the ticket. Callers are expected to
	// wait and retry.
	ErrUnbondingNotComplete = errors.New("delegation adapter: unbonding not complete")

	errNilHost       = errors.New("delegation adapter: host not configured")
	errNilState      = errors.New("delegation adapter: state not configured")
	errInvalidAmount = errors.New("delegation adapter: amount must be positive")
	errNilTicket     = errors.New("delegation adapter: ticket must not be nil")
)

// TicketMode distinguishes immediately settleable outbound requests from
// requests waiting on the host's unbonding delay.
type TicketMode uint8

const (
	// TicketLiquid marks an outbound request covered by current liquidity.
	TicketLiquid TicketMode = iota
	// TicketUnbonding marks an outbound request waiting for undelegated
	// motes to become liquid.
	TicketUnbonding
)

// Ticket is the adapter's promise for an outbound amount. Unbonding tickets
// are settled by retrying TrySettle until the host reports enough liquidity.
type Ticket struct {
	Mode   TicketMode
	Amount *big.Int
}

// IsLiquid reports whether the ticket can settle immediately.
func (t *Ticket) IsLiquid() bool { return t != nil && t.Mode == TicketLiquid }

// LiquidTicket builds a ticket covered by current liquidity.
func LiquidTicket(amount *big.Int) *Ticket {
	return &Ticket{Mode: TicketLiquid, Amount: new(big.Int).Set(amount)}
}

// UnbondingTicket builds a ticket waiting on the unbonding delay.
func UnbondingTicket(amount *big.Int) *Ticket {
	return &Ticket{Mode: TicketUnbonding, Amount: new(big.Int).Set(amount)}
}

type adapterState interface {
	DelegationGetPending() (*big.Int, error)
	DelegationPutPending(amount *big.Int) error
}

// Adapter pools inbound deposits until the batching threshold is met and
// mediates outbound withdrawals against the host's observable liquidity. It
// owns the pending-to-delegate counter.
type Adapter struct {
	host      Host
	state     adapterState
	threshold *big.Int
	emitter   events.Emitter
}

// NewAdapter constructs an adapter batching at the provided threshold.
func NewAdapter(host Host, threshold *big.Int) *Adapter {
	a := &Adapter{host: host, emitter: events.NoopEmitter{}}
	if threshold != nil {
		a.threshold = new(big.Int).Set(threshold)
	} else {
		a.threshold = big.NewInt(0)
	}
	return a
}

// SetState wires the adapter to the external persistence layer.
func (a *Adapter) SetState(state adapterState) { a.state = state }

// SetEmitter routes the adapter's events. The vault engine installs its
// per-entrypoint recorder here so adapter events flush only on success.
func (a *Adapter) SetEmitter(em events.Emitter) {
	if em == nil {
		em = events.NoopEmitter{}
	}
	a.emitter = em
}

// Pending reports the motes awaiting the next batch delegation.
func (a *Adapter) Pending() (*big.Int, error) {
	if a == nil || a.state == nil {
		return nil, errNilState
	}
	pending, err := a.state.DelegationGetPending()
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return big.NewInt(0), nil
	}
	return pending, nil
}

// RecordInbound adds the attached motes to the delegation pool. When the pool
// reaches the batching threshold it is delegated in full and reset.
func (a *Adapter) RecordInbound(validator crypto.ValidatorKey, amount *big.Int) error {
	if a == nil || a.host == nil {
		return errNilHost
	}
	if a.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	pending, err := a.Pending()
	if err != nil {
		return err
	}
	pending = new(big.Int).Add(pending, amount)
	if pending.Cmp(a.threshold) >= 0 {
		if err := a.host.Delegate(validator, pending); err != nil {
			return err
		}
		a.emitter.Emit(events.DelegationBatched{AmountMotes: new(big.Int).Set(pending)})
		pending = big.NewInt(0)
	}
	return a.state.DelegationPutPending(pending)
}

// RequestOutbound reserves motes for a withdrawal. When current liquidity
// covers the amount the reservation consumes the pending pool first and the
// ticket settles immediately; otherwise the shortfall is undelegated and the
// ticket waits on unbonding.
func (a *Adapter) RequestOutbound(validator crypto.ValidatorKey, amount *big.Int) (*Ticket, error) {
	if a == nil || a.host == nil {
		return nil, errNilHost
	}
	if a.state == nil {
		return nil, errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	pending, err := a.Pending()
	if err != nil {
		return nil, err
	}
	liquid, err := a.host.LiquidBalance()
	if err != nil {
		return nil, err
	}
	available := new(big.Int).Add(liquid, pending)
	if available.Cmp(amount) >= 0 {
		drawn := new(big.Int).Set(amount)
		if drawn.Cmp(pending) > 0 {
			drawn.Set(pending)
		}
		remaining := new(big.Int).Sub(pending, drawn)
		if err := a.state.DelegationPutPending(remaining); err != nil {
			return nil, err
		}
		return LiquidTicket(amount), nil
	}
	shortfall := new(big.Int).Sub(amount, available)
	if err := a.host.Undelegate(validator, shortfall); err != nil {
		return nil, err
	}
	a.emitter.Emit(events.UndelegationRequested{AmountMotes: new(big.Int).Set(shortfall)})
	return UnbondingTicket(amount), nil
}

// TrySettle pays the ticket's amount to the recipient. Unbonding tickets fail
// with ErrUnbondingNotComplete until the host reports enough liquidity; a
// failed settle changes no state.
func (a *Adapter) TrySettle(ticket *Ticket, recipient crypto.Address) error {
	if a == nil || a.host == nil {
		return errNilHost
	}
	if ticket == nil || ticket.Amount == nil {
		return errNilTicket
	}
	if ticket.Mode == TicketUnbonding {
		liquid, err := a.host.LiquidBalance()
		if err != nil {
			return err
		}
		if liquid.Cmp(ticket.Amount) < 0 {
			return ErrUnbondingNotComplete
		}
	}
	return a.host.TransferTo(recipient, ticket.Amount)
}

package delegation

import (
	"errors"
	"math/big"
	"testing"

	"magni/core/events"
	"magni/crypto"
)

const testValidator = crypto.ValidatorKey("mgnval1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq83tgjw")

type mockAdapterState struct {
	pending *big.Int
}

func (m *mockAdapterState) DelegationGetPending() (*big.Int, error) { return m.pending, nil }

func (m *mockAdapterState) DelegationPutPending(amount *big.Int) error {
	m.pending = amount
	return nil
}

type mockHost struct {
	liquid        *big.Int
	delegations   []*big.Int
	undelegations []*big.Int
	transfers     []*big.Int
}

func newMockHost() *mockHost { return &mockHost{liquid: big.NewInt(0)} }

func (h *mockHost) Delegate(_ crypto.ValidatorKey, amount *big.Int) error {
	h.delegations = append(h.delegations, new(big.Int).Set(amount))
	return nil
}

func (h *mockHost) Undelegate(_ crypto.ValidatorKey, amount *big.Int) error {
	h.undelegations = append(h.undelegations, new(big.Int).Set(amount))
	return nil
}

func (h *mockHost) DelegatedAmount(crypto.ValidatorKey) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (h *mockHost) LiquidBalance() (*big.Int, error) { return new(big.Int).Set(h.liquid), nil }

func (h *mockHost) TransferTo(_ crypto.Address, amount *big.Int) error {
	h.transfers = append(h.transfers, new(big.Int).Set(amount))
	return nil
}

func makeAddress(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.MustNewAddress(crypto.MGNPrefix, raw)
}

func newTestAdapter(threshold int64) (*Adapter, *mockHost, *mockAdapterState, *events.Log) {
	host := newMockHost()
	state := &mockAdapterState{}
	log := events.NewLog()
	adapter := NewAdapter(host, big.NewInt(threshold))
	adapter.SetState(state)
	adapter.SetEmitter(log)
	return adapter, host, state, log
}

func TestRecordInboundBatchesAtThreshold(t *testing.T) {
	adapter, host, state, log := newTestAdapter(500)

	if err := adapter.RecordInbound(testValidator, big.NewInt(300)); err != nil {
		t.Fatalf("record inbound: %v", err)
	}
	if len(host.delegations) != 0 {
		t.Fatalf("unexpected delegation below threshold")
	}
	if state.pending.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("unexpected pending: %s", state.pending)
	}

	if err := adapter.RecordInbound(testValidator, big.NewInt(400)); err != nil {
		t.Fatalf("record inbound: %v", err)
	}
	if len(host.delegations) != 1 || host.delegations[0].Cmp(big.NewInt(700)) != 0 {
		t.Fatalf("expected delegation of 700, got %v", host.delegations)
	}
	if state.pending.Sign() != 0 {
		t.Fatalf("pending not reset: %s", state.pending)
	}
	records := log.Records(0)
	if len(records) != 1 || records[0].Type != events.TypeVaultDelegationBatched {
		t.Fatalf("expected DelegationBatched event, got %v", records)
	}
	if records[0].Event.Attributes["amount"] != "700" {
		t.Fatalf("unexpected batch amount: %v", records[0].Event.Attributes)
	}
}

func TestRequestOutboundConsumesPendingFirst(t *testing.T) {
	adapter, host, state, _ := newTestAdapter(500)
	host.liquid = big.NewInt(50)
	state.pending = big.NewInt(100)

	ticket, err := adapter.RequestOutbound(testValidator, big.NewInt(120))
	if err != nil {
		t.Fatalf("request outbound: %v", err)
	}
	if !ticket.IsLiquid() {
		t.Fatalf("expected liquid ticket")
	}
	if state.pending.Sign() != 0 {
		t.Fatalf("expected pending drained, got %s", state.pending)
	}
	if len(host.undelegations) != 0 {
		t.Fatalf("unexpected undelegation: %v", host.undelegations)
	}
}

func TestRequestOutboundUndelegatesShortfall(t *testing.T) {
	adapter, host, state, log := newTestAdapter(500)
	host.liquid = big.NewInt(25)
	state.pending = big.NewInt(15)

	ticket, err := adapter.RequestOutbound(testValidator, big.NewInt(100))
	if err != nil {
		t.Fatalf("request outbound: %v", err)
	}
	if ticket.IsLiquid() {
		t.Fatalf("expected unbonding ticket")
	}
	if len(host.undelegations) != 1 || host.undelegations[0].Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("expected shortfall undelegation of 60, got %v", host.undelegations)
	}
	records := log.Records(0)
	if len(records) != 1 || records[0].Type != events.TypeVaultUndelegationRequested {
		t.Fatalf("expected UndelegationRequested, got %v", records)
	}
	if records[0].Event.Attributes["amount"] != "60" {
		t.Fatalf("unexpected shortfall amount: %v", records[0].Event.Attributes)
	}
}

func TestTrySettle(t *testing.T) {
	adapter, host, _, _ := newTestAdapter(500)
	recipient := makeAddress(0x20)

	ticket := UnbondingTicket(big.NewInt(100))
	if err := adapter.TrySettle(ticket, recipient); !errors.Is(err, ErrUnbondingNotComplete) {
		t.Fatalf("expected ErrUnbondingNotComplete, got %v", err)
	}
	if len(host.transfers) != 0 {
		t.Fatalf("failed settle transferred funds")
	}

	host.liquid = big.NewInt(100)
	if err := adapter.TrySettle(ticket, recipient); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(host.transfers) != 1 || host.transfers[0].Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected transfer of 100, got %v", host.transfers)
	}

	// Liquid tickets settle without consulting the liquid balance.
	host.liquid = big.NewInt(0)
	if err := adapter.TrySettle(LiquidTicket(big.NewInt(40)), recipient); err != nil {
		t.Fatalf("liquid settle: %v", err)
	}
}

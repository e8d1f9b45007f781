package events

import (
	"math/big"
	"testing"

	"magni/crypto"
)

func testAddress(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.MustNewAddress(crypto.MGNPrefix, raw)
}

func TestLogAssignsSequentialOrder(t *testing.T) {
	log := NewLog()
	user := testAddress(0x01)

	log.Emit(Deposited{User: user, AmountMotes: big.NewInt(100), NewCollateral: big.NewInt(100)})
	log.Emit(WithdrawRequested{User: user, AmountMotes: big.NewInt(40)})
	log.Emit(WithdrawFinalized{User: user, AmountMotes: big.NewInt(40)})

	records := log.Records(0)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.Sequence != uint64(i) {
			t.Fatalf("record %d has sequence %d", i, rec.Sequence)
		}
	}
	if records[0].Type != TypeVaultDeposited {
		t.Fatalf("unexpected first record: %s", records[0].Type)
	}
	if records[0].Event.Attributes["amount"] != "100" {
		t.Fatalf("unexpected payload: %v", records[0].Event.Attributes)
	}

	tail := log.Records(2)
	if len(tail) != 1 || tail[0].Type != TypeVaultWithdrawFinalized {
		t.Fatalf("unexpected tail: %v", tail)
	}
	if log.Records(10) != nil {
		t.Fatalf("expected nil past the end")
	}
}

func TestLogFanout(t *testing.T) {
	log := NewLog()
	var forwarded []string
	log.SetFanout(emitterFunc(func(ev Event) {
		forwarded = append(forwarded, ev.EventType())
	}))

	log.Emit(DelegationBatched{AmountMotes: big.NewInt(700)})
	if len(forwarded) != 1 || forwarded[0] != TypeVaultDelegationBatched {
		t.Fatalf("fanout not invoked: %v", forwarded)
	}
}

type emitterFunc func(Event)

func (f emitterFunc) Emit(ev Event) { f(ev) }

package vault

import (
	"errors"
	"testing"

	nativecommon "magni/native/common"
)

func TestModulePauseBlocksMutation(t *testing.T) {
	env := newTestEnv(t)
	user := makeAddress(0x30)

	switchboard := nativecommon.NewSwitchboard()
	switchboard.SetPaused("vault", true)
	env.engine.SetPauses(switchboard)

	if err := env.engine.Deposit(user, cspr(100)); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	if pos := env.state.positions[env.state.key(user)]; pos != nil {
		t.Fatalf("expected no position persisted, got %+v", pos)
	}
	if env.log.Len() != 0 {
		t.Fatalf("expected no events, got %d", env.log.Len())
	}

	switchboard.SetPaused("vault", false)
	if err := env.engine.Deposit(user, cspr(100)); err != nil {
		t.Fatalf("deposit after clearing pause: %v", err)
	}
}

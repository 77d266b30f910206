package ledger

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	tokenAddr = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	alice     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob       = common.HexToAddress("0x2222222222222222222222222222222222222222")
	carol     = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestTransfer(t *testing.T) {
	l := New(tokenAddr, "TKA")
	if err := l.Mint(alice, u(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Transfer(alice, bob, u(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if got := l.BalanceOf(alice).Uint64(); got != 60 {
		t.Fatalf("alice balance = %d", got)
	}
	if got := l.BalanceOf(bob).Uint64(); got != 40 {
		t.Fatalf("bob balance = %d", got)
	}
	if got := l.TotalSupply().Uint64(); got != 100 {
		t.Fatalf("supply = %d", got)
	}

	err := l.Transfer(bob, carol, u(41))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if got := l.BalanceOf(bob).Uint64(); got != 40 {
		t.Fatalf("failed transfer changed balance: %d", got)
	}

	logs := l.DrainLogs()
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if logs[0].From != (common.Address{}) || logs[0].To != alice || logs[0].Token != tokenAddr {
		t.Fatalf("mint log mismatch: %+v", logs[0])
	}
	if logs[1].From != alice || logs[1].To != bob || logs[1].Value.Uint64() != 40 {
		t.Fatalf("transfer log mismatch: %+v", logs[1])
	}
	if len(l.Logs()) != 0 {
		t.Fatalf("logs not drained")
	}
}

func TestSelfTransfer(t *testing.T) {
	l := New(tokenAddr, "TKA")
	if err := l.Mint(alice, u(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Transfer(alice, alice, u(10)); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	if got := l.BalanceOf(alice).Uint64(); got != 10 {
		t.Fatalf("self transfer changed balance: %d", got)
	}
}

func TestTransferFrom(t *testing.T) {
	l := New(tokenAddr, "TKA")
	if err := l.Mint(alice, u(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	l.Approve(alice, bob, u(30))

	if err := l.TransferFrom(bob, alice, carol, u(31)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected insufficient allowance, got %v", err)
	}
	if err := l.TransferFrom(bob, alice, carol, u(20)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if got := l.Allowance(alice, bob).Uint64(); got != 10 {
		t.Fatalf("allowance = %d", got)
	}

	l.Approve(alice, bob, maxAllowance)
	if err := l.TransferFrom(bob, alice, carol, u(50)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if !l.Allowance(alice, bob).Eq(maxAllowance) {
		t.Fatalf("unlimited allowance was decreased")
	}
	if got := l.BalanceOf(carol).Uint64(); got != 70 {
		t.Fatalf("carol balance = %d", got)
	}
}

func TestBurn(t *testing.T) {
	l := New(tokenAddr, "LP")
	if err := l.Mint(alice, u(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Burn(alice, u(101)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := l.Burn(alice, u(60)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := l.TotalSupply().Uint64(); got != 40 {
		t.Fatalf("supply = %d", got)
	}
}

func TestMintOverflow(t *testing.T) {
	l := New(tokenAddr, "TKA")
	if err := l.Mint(alice, maxAllowance); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Mint(bob, u(1)); !errors.Is(err, ErrSupplyOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestRevertToSnapshot(t *testing.T) {
	l := New(tokenAddr, "TKA")
	if err := l.Mint(alice, u(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	l.DrainLogs()

	outer := l.Snapshot()
	if err := l.Transfer(alice, bob, u(10)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	inner := l.Snapshot()
	if err := l.Mint(carol, u(5)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	l.Approve(bob, carol, u(3))

	l.RevertToSnapshot(inner)
	if got := l.BalanceOf(carol).Uint64(); got != 0 {
		t.Fatalf("carol balance after inner revert = %d", got)
	}
	if got := l.TotalSupply().Uint64(); got != 100 {
		t.Fatalf("supply after inner revert = %d", got)
	}
	if got := l.Allowance(bob, carol).Uint64(); got != 0 {
		t.Fatalf("allowance after inner revert = %d", got)
	}
	if got := l.BalanceOf(bob).Uint64(); got != 10 {
		t.Fatalf("bob balance after inner revert = %d", got)
	}
	if got := len(l.Logs()); got != 1 {
		t.Fatalf("logs after inner revert = %d", got)
	}

	l.RevertToSnapshot(outer)
	if got := l.BalanceOf(alice).Uint64(); got != 100 {
		t.Fatalf("alice balance after outer revert = %d", got)
	}
	if got := len(l.DrainLogs()); got != 0 {
		t.Fatalf("logs after outer revert = %d", got)
	}
	if len(l.journal) != 0 {
		t.Fatalf("journal should be empty without open snapshots")
	}
}

func TestDiscardSnapshot(t *testing.T) {
	l := New(tokenAddr, "TKA")
	id := l.Snapshot()
	if err := l.Mint(alice, u(7)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := len(l.DrainLogs()); got != 1 {
		t.Fatalf("logs visible during snapshot = %d", got)
	}
	l.DiscardSnapshot(id)
	if got := l.BalanceOf(alice).Uint64(); got != 7 {
		t.Fatalf("balance after discard = %d", got)
	}
	if got := len(l.DrainLogs()); got != 1 {
		t.Fatalf("logs after discard = %d", got)
	}
	if got := len(l.DrainLogs()); got != 0 {
		t.Fatalf("logs after drain = %d", got)
	}
}

func TestStateRoundTrip(t *testing.T) {
	l := New(tokenAddr, "TKA")
	if err := l.Mint(alice, u(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Transfer(alice, bob, u(100)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	state := l.State()
	if _, ok := state.Balances[alice.Hex()]; ok {
		t.Fatalf("zero balances should be omitted")
	}

	restored, err := Restore(state)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := restored.BalanceOf(bob).Uint64(); got != 100 {
		t.Fatalf("restored balance = %d", got)
	}

	state.TotalSupply = "99"
	if _, err := Restore(state); err == nil {
		t.Fatalf("expected supply mismatch error")
	}
}

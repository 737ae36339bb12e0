package ledger

import (
	"math"
	"testing"
)

func TestAccountReserveRelease(t *testing.T) {
	a := NewAccount(10_000)

	if err := a.Reserve(3_000); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if a.Free() != 7_000 || a.Reserved() != 3_000 {
		t.Fatalf("after reserve: free=%.2f reserved=%.2f", a.Free(), a.Reserved())
	}
	if a.Total() != 10_000 {
		t.Fatalf("total changed on reserve: %.2f", a.Total())
	}

	a.Release(3_000, 450)
	if a.Reserved() != 0 {
		t.Fatalf("reserved not returned: %.2f", a.Reserved())
	}
	if a.Total() != 10_450 {
		t.Fatalf("total should carry realized pnl: %.2f", a.Total())
	}
}

func TestAccountReserveRejectsOverdraft(t *testing.T) {
	a := NewAccount(1_000)

	if err := a.Reserve(1_001); err == nil {
		t.Fatal("expected overdraft rejection")
	}
	if err := a.Reserve(0); err == nil {
		t.Fatal("expected zero-margin rejection")
	}
	if err := a.Reserve(-5); err == nil {
		t.Fatal("expected negative-margin rejection")
	}
	if a.Free() != 1_000 {
		t.Fatalf("failed reserve must not touch capital: %.2f", a.Free())
	}
}

func TestAccountReleaseWithLoss(t *testing.T) {
	a := NewAccount(5_000)
	if err := a.Reserve(2_000); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	a.Release(2_000, -750)
	if math.Abs(a.Total()-4_250) > 1e-9 {
		t.Fatalf("total after loss: %.2f", a.Total())
	}
	if a.Free() != 4_250 {
		t.Fatalf("free after loss: %.2f", a.Free())
	}
}

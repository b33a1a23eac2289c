package core

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestSaldoNoHistory(t *testing.T) {
	a := Account{ID: 1, UserID: 1, Name: "Checking", StartingBalance: dec("1000"), OnBudget: true}
	if got := Saldo(a, nil, nil); !got.Equal(dec("1000")) {
		t.Fatalf("expected starting balance, got %s", got)
	}
}

func TestSaldoFlows(t *testing.T) {
	a := Account{ID: 1, StartingBalance: dec("100")}
	txns := []Transaction{
		{AccountID: 1, Date: day(1), Outflow: dec("30")},
		{AccountID: 1, Date: day(2), Inflow: dec("10")},
		{AccountID: 1, Date: day(3), Outflow: dec("5.50"), Inflow: dec("0")},
	}
	if got := Saldo(a, txns, nil); !got.Equal(dec("74.50")) {
		t.Fatalf("expected 74.50, got %s", got)
	}
}

func TestSaldoOrderIndependent(t *testing.T) {
	a := Account{ID: 1, StartingBalance: dec("250")}
	txns := []Transaction{
		{AccountID: 1, Date: day(1), Outflow: dec("12.34")},
		{AccountID: 1, Date: day(2), Inflow: dec("56.78")},
		{AccountID: 1, Date: day(3), Outflow: dec("9")},
		{AccountID: 1, Date: day(4), Inflow: dec("0.01")},
	}
	want := Saldo(a, txns, nil)
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := append([]Transaction(nil), txns...)
		r.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		if got := Saldo(a, shuffled, nil); !got.Equal(want) {
			t.Fatalf("saldo changed under reordering: %s vs %s", got, want)
		}
	}
}

func TestSaldoTransferSymmetry(t *testing.T) {
	src := Account{ID: 1, StartingBalance: dec("500")}
	dst := Account{ID: 2, StartingBalance: dec("200")}
	to := dst.ID
	// Stored once, on the source account, outflow from its perspective.
	transfer := Transaction{AccountID: src.ID, Kind: KindTransfer, ToAccountID: &to, Date: day(5), Outflow: dec("75")}

	srcSaldo := Saldo(src, []Transaction{transfer}, nil)
	dstSaldo := Saldo(dst, nil, []Transaction{transfer})

	if !srcSaldo.Equal(dec("425")) {
		t.Fatalf("source expected 425, got %s", srcSaldo)
	}
	if !dstSaldo.Equal(dec("275")) {
		t.Fatalf("destination expected 275, got %s", dstSaldo)
	}
	// Net zero across the pair.
	moved := srcSaldo.Sub(src.StartingBalance).Add(dstSaldo.Sub(dst.StartingBalance))
	if !moved.IsZero() {
		t.Fatalf("transfer created or destroyed money: %s", moved)
	}
}

func TestSaldoExcludesScheduled(t *testing.T) {
	a := Account{ID: 1, StartingBalance: dec("100")}
	txns := []Transaction{
		{AccountID: 1, Date: day(1), Outflow: dec("40")},
		{AccountID: 1, Date: day(20), Outflow: dec("999"), Scheduled: true},
	}
	to := a.ID
	in := []Transaction{
		{AccountID: 2, Kind: KindTransfer, ToAccountID: &to, Date: day(21), Outflow: dec("500"), Scheduled: true},
	}
	if got := Saldo(a, txns, in); !got.Equal(dec("60")) {
		t.Fatalf("scheduled rows must not count, got %s", got)
	}
}

package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/loguvo/loguvo/internal/domain"
)

// ─── Accounts ───────────────────────────────────────────────────────────────

func TestCreateAccount_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created := newTestAccount(t, db, "alice")

	got, err := db.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAccount() error: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "alice@example.com")
	}
	if got.Balance != 0 {
		t.Errorf("Balance = %d, want 0", got.Balance)
	}
	if got.ReferralCode != created.ReferralCode {
		t.Errorf("ReferralCode = %q, want %q", got.ReferralCode, created.ReferralCode)
	}
	if got.ReferredBy != nil {
		t.Errorf("ReferredBy = %v, want nil", *got.ReferredBy)
	}
}

func TestGetAccountByReferralCode(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	acc := newTestAccount(t, db, "alice")

	got, err := db.GetAccountByReferralCode(ctx, acc.ReferralCode)
	if err != nil {
		t.Fatalf("GetAccountByReferralCode() error: %v", err)
	}
	if got.ID != "alice" {
		t.Errorf("ID = %q, want %q", got.ID, "alice")
	}

	_, err = db.GetAccountByReferralCode(ctx, "NOPE1234")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("unknown code error = %v, want ErrAccountNotFound", err)
	}
}

func TestCreateAccount_Duplicate(t *testing.T) {
	db := newTestDB(t)
	newTestAccount(t, db, "alice")

	err := db.CreateAccount(context.Background(), &domain.Account{
		ID:           "alice",
		ReferralCode: domain.NewReferralCode(),
	})
	if !errors.Is(err, domain.ErrAccountExists) {
		t.Errorf("duplicate create error = %v, want ErrAccountExists", err)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetAccount(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("GetAccount(ghost) error = %v, want ErrAccountNotFound", err)
	}
}

func TestSetReferredBy(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	newTestAccount(t, db, "referrer")
	newTestAccount(t, db, "referred")

	if err := db.SetReferredBy(ctx, "referred", "referrer"); err != nil {
		t.Fatalf("SetReferredBy() error: %v", err)
	}

	got, err := db.GetAccount(ctx, "referred")
	if err != nil {
		t.Fatal(err)
	}
	if got.ReferredBy == nil || *got.ReferredBy != "referrer" {
		t.Errorf("ReferredBy = %v, want referrer", got.ReferredBy)
	}

	// A second referrer is rejected.
	newTestAccount(t, db, "other")
	err = db.SetReferredBy(ctx, "referred", "other")
	if !errors.Is(err, domain.ErrReferralExists) {
		t.Errorf("second SetReferredBy error = %v, want ErrReferralExists", err)
	}
}

// ─── ApplyDelta ─────────────────────────────────────────────────────────────

func TestApplyDelta_CreditAndDebit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	newTestAccount(t, db, "alice")

	bal, tx, err := db.ApplyDelta(ctx, "alice", 10, domain.KindEarned, "signup bonus")
	if err != nil {
		t.Fatalf("ApplyDelta(+10) error: %v", err)
	}
	if bal != 10 {
		t.Errorf("balance = %d, want 10", bal)
	}
	if tx.Amount != 10 || tx.Kind != domain.KindEarned {
		t.Errorf("transaction = %+v, want amount 10 kind earned", tx)
	}

	bal, tx, err = db.ApplyDelta(ctx, "alice", -1, domain.KindSpent, "generated logo")
	if err != nil {
		t.Fatalf("ApplyDelta(-1) error: %v", err)
	}
	if bal != 9 {
		t.Errorf("balance = %d, want 9", bal)
	}
	if tx.Amount != -1 {
		t.Errorf("transaction amount = %d, want -1", tx.Amount)
	}
}

func TestApplyDelta_InsufficientFunds(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	newTestAccount(t, db, "alice")

	_, _, err := db.ApplyDelta(ctx, "alice", -1, domain.KindSpent, "generated logo")
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("ApplyDelta on empty account error = %v, want ErrInsufficientFunds", err)
	}

	// A rejected apply leaves no trace in the ledger.
	txs, err := db.ListTransactions(ctx, "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 0 {
		t.Errorf("transactions after rejected debit = %d, want 0", len(txs))
	}
}

func TestApplyDelta_AccountNotFound(t *testing.T) {
	db := newTestDB(t)
	_, _, err := db.ApplyDelta(context.Background(), "ghost", 5, domain.KindEarned, "x")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("ApplyDelta(ghost) error = %v, want ErrAccountNotFound", err)
	}
}

// Two concurrent debits racing over the last credit: exactly one wins.
func TestApplyDelta_ConcurrentDebit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	newTestAccount(t, db, "alice")
	if _, _, err := db.ApplyDelta(ctx, "alice", 1, domain.KindEarned, "seed"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = db.ApplyDelta(ctx, "alice", -1, domain.KindSpent, "generated logo")
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Errorf("ok = %d, insufficient = %d, want 1 and 1", ok, insufficient)
	}

	acc, err := db.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if acc.Balance != 0 {
		t.Errorf("final balance = %d, want 0", acc.Balance)
	}
}

// The ledger-consistency invariant: balance always equals the transaction sum.
func TestApplyDelta_SumInvariant(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	newTestAccount(t, db, "alice")

	deltas := []struct {
		amount int64
		kind   domain.TxKind
	}{
		{10, domain.KindEarned},
		{-1, domain.KindSpent},
		{25, domain.KindPurchased},
		{-1, domain.KindSpent},
		{1, domain.KindRefund},
		{5, domain.KindEarned},
	}
	for _, d := range deltas {
		if _, _, err := db.ApplyDelta(ctx, "alice", d.amount, d.kind, "t"); err != nil {
			t.Fatalf("ApplyDelta(%d) error: %v", d.amount, err)
		}
		acc, err := db.GetAccount(ctx, "alice")
		if err != nil {
			t.Fatal(err)
		}
		sum, err := db.SumTransactions(ctx, "alice")
		if err != nil {
			t.Fatal(err)
		}
		if acc.Balance != sum {
			t.Fatalf("balance %d != transaction sum %d", acc.Balance, sum)
		}
	}
}

// ─── Reads ──────────────────────────────────────────────────────────────────

func TestListTransactions_Order(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	newTestAccount(t, db, "alice")
	db.ApplyDelta(ctx, "alice", 10, domain.KindEarned, "first")
	db.ApplyDelta(ctx, "alice", -1, domain.KindSpent, "second")

	txs, err := db.ListTransactions(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("ListTransactions() error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("len(txs) = %d, want 2", len(txs))
	}
	// Most recent first.
	if txs[0].Reason != "second" || txs[1].Reason != "first" {
		t.Errorf("order = [%s, %s], want [second, first]", txs[0].Reason, txs[1].Reason)
	}
}

func TestLeaderboard(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	newTestAccount(t, db, "low")
	newTestAccount(t, db, "high")
	newTestAccount(t, db, "mid")
	db.ApplyDelta(ctx, "low", 1, domain.KindEarned, "t")
	db.ApplyDelta(ctx, "high", 50, domain.KindPurchased, "t")
	db.ApplyDelta(ctx, "mid", 10, domain.KindEarned, "t")

	top, err := db.Leaderboard(ctx, 2)
	if err != nil {
		t.Fatalf("Leaderboard() error: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("len(top) = %d, want 2", len(top))
	}
	if top[0].ID != "high" || top[1].ID != "mid" {
		t.Errorf("top = [%s, %s], want [high, mid]", top[0].ID, top[1].ID)
	}
}

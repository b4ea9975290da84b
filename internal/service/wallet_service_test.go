package service_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/blog-content-api/internal/config"
	"github.com/blog-content-api/internal/models"
)

func balanceOf(t *testing.T, env *testEnv, userID string) *models.Wallet {
	t.Helper()
	wallet, err := env.services.Wallet.GetWallet(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetWallet failed: %v", err)
	}
	return wallet
}

func TestWalletService_TopUpAtZeroBalanceAddsBonus(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.register(t, "alice")

	entry, err := env.services.Wallet.TopUp(context.Background(), alice.ID, &models.TopUpRequest{Amount: 30})
	if err != nil {
		t.Fatalf("TopUp failed: %v", err)
	}
	if entry.Change != 345 || entry.Bonus != 45 || entry.BalanceAfter != 345 {
		t.Errorf("Unexpected entry: %+v", entry)
	}
	if got := balanceOf(t, env, alice.ID).Balance; got != 345 {
		t.Errorf("Expected balance 345, got %d", got)
	}
}

func TestWalletService_TopUpAboveZeroHasNoBonus(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.register(t, "alice")
	env.setWallet(t, alice.ID, 5, false)

	entry, err := env.services.Wallet.TopUp(context.Background(), alice.ID, &models.TopUpRequest{Amount: 30})
	if err != nil {
		t.Fatalf("TopUp failed: %v", err)
	}
	if entry.Change != 300 || entry.Bonus != 0 {
		t.Errorf("Expected 300 coins without bonus, got %+v", entry)
	}
	if got := balanceOf(t, env, alice.ID).Balance; got != 305 {
		t.Errorf("Expected balance 305, got %d", got)
	}
}

func TestWalletService_BonusPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("zero_balance re-triggers after spending down", func(t *testing.T) {
		env := newTestEnv(t, nil)
		alice := env.register(t, "alice")

		if _, err := env.services.Wallet.TopUp(ctx, alice.ID, &models.TopUpRequest{Amount: 30}); err != nil {
			t.Fatalf("TopUp failed: %v", err)
		}
		env.setWallet(t, alice.ID, 0, false)

		entry, err := env.services.Wallet.TopUp(ctx, alice.ID, &models.TopUpRequest{Amount: 30})
		if err != nil {
			t.Fatalf("TopUp failed: %v", err)
		}
		if entry.Bonus != 45 {
			t.Errorf("Expected bonus again at zero balance, got %d", entry.Bonus)
		}
	})

	t.Run("first_topup grants the bonus once", func(t *testing.T) {
		cfg := testConfig()
		cfg.Wallet.BonusPolicy = config.BonusFirstTopUp
		env := newTestEnv(t, cfg)
		alice := env.register(t, "alice")

		first, err := env.services.Wallet.TopUp(ctx, alice.ID, &models.TopUpRequest{Amount: 30})
		if err != nil {
			t.Fatalf("TopUp failed: %v", err)
		}
		if first.Bonus != 45 {
			t.Errorf("Expected first bonus 45, got %d", first.Bonus)
		}

		env.setWallet(t, alice.ID, 0, false)
		second, err := env.services.Wallet.TopUp(ctx, alice.ID, &models.TopUpRequest{Amount: 30})
		if err != nil {
			t.Fatalf("TopUp failed: %v", err)
		}
		if second.Bonus != 0 {
			t.Errorf("Expected no second bonus, got %d", second.Bonus)
		}
	})

	t.Run("first_topup under concurrent top-ups", func(t *testing.T) {
		cfg := testConfig()
		cfg.Wallet.BonusPolicy = config.BonusFirstTopUp
		env := newTestEnv(t, cfg)
		alice := env.register(t, "alice")

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := env.services.Wallet.TopUp(ctx, alice.ID, &models.TopUpRequest{Amount: 30}); err != nil {
					t.Errorf("TopUp failed: %v", err)
				}
			}()
		}
		wg.Wait()

		entries, err := env.services.Wallet.Ledger(ctx, alice.ID, 50)
		if err != nil {
			t.Fatalf("Ledger failed: %v", err)
		}
		bonuses := 0
		for _, e := range entries {
			if e.Bonus > 0 {
				bonuses++
			}
		}
		if len(entries) != 10 || bonuses != 1 {
			t.Errorf("Expected 10 entries with one bonus, got %d entries and %d bonuses", len(entries), bonuses)
		}
		if w := balanceOf(t, env, alice.ID); w.Balance != 3045 {
			t.Errorf("Expected balance 3045, got %d", w.Balance)
		}
	})
}

func TestWalletService_TopUpValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.register(t, "alice")

	for _, amount := range []int64{0, -1, models.MaxTopUpAmount + 1} {
		_, err := env.services.Wallet.TopUp(context.Background(), alice.ID, &models.TopUpRequest{Amount: amount})
		if models.KindOf(err) != models.KindValidation {
			t.Errorf("amount %d: expected validation error, got %v", amount, err)
		}
	}
	if got := balanceOf(t, env, alice.ID).Balance; got != 0 {
		t.Errorf("Rejected top-ups must not change the balance, got %d", got)
	}
}

func TestWalletService_PurchaseVIP(t *testing.T) {
	ctx := context.Background()

	t.Run("299 coins is not enough", func(t *testing.T) {
		env := newTestEnv(t, nil)
		alice := env.register(t, "alice")
		env.setWallet(t, alice.ID, 299, false)

		_, err := env.services.Wallet.PurchaseVIP(ctx, alice.ID)
		if !errors.Is(err, models.ErrInsufficientBalance) {
			t.Errorf("Expected ErrInsufficientBalance, got %v", err)
		}
		wallet := balanceOf(t, env, alice.ID)
		if wallet.Balance != 299 || wallet.IsVIP {
			t.Errorf("Failed purchase must leave the wallet unchanged, got %+v", wallet)
		}
	})

	t.Run("300 coins buys VIP", func(t *testing.T) {
		env := newTestEnv(t, nil)
		alice := env.register(t, "alice")
		env.setWallet(t, alice.ID, 300, false)

		entry, err := env.services.Wallet.PurchaseVIP(ctx, alice.ID)
		if err != nil {
			t.Fatalf("PurchaseVIP failed: %v", err)
		}
		if entry.Change != -300 || entry.BalanceAfter != 0 {
			t.Errorf("Unexpected entry: %+v", entry)
		}
		wallet := balanceOf(t, env, alice.ID)
		if wallet.Balance != 0 || !wallet.IsVIP {
			t.Errorf("Expected balance 0 and VIP, got %+v", wallet)
		}
	})

	t.Run("already VIP is rejected without debit", func(t *testing.T) {
		env := newTestEnv(t, nil)
		alice := env.register(t, "alice")
		env.setWallet(t, alice.ID, 1000, true)

		_, err := env.services.Wallet.PurchaseVIP(ctx, alice.ID)
		if !errors.Is(err, models.ErrAlreadyVIP) {
			t.Errorf("Expected ErrAlreadyVIP, got %v", err)
		}
		if got := balanceOf(t, env, alice.ID).Balance; got != 1000 {
			t.Errorf("Expected balance 1000, got %d", got)
		}
	})
}

func TestWalletService_ConcurrentPurchasesDebitOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.register(t, "alice")
	env.setWallet(t, alice.ID, 600, false)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.services.Wallet.PurchaseVIP(context.Background(), alice.ID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("Expected exactly one successful purchase, got %d", succeeded)
	}
	if got := balanceOf(t, env, alice.ID).Balance; got != 300 {
		t.Errorf("Expected balance 300, got %d", got)
	}
}

func TestWalletService_LedgerAndExport(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")

	env.services.Wallet.TopUp(ctx, alice.ID, &models.TopUpRequest{Amount: 30})
	env.services.Wallet.PurchaseVIP(ctx, alice.ID)

	entries, err := env.services.Wallet.Ledger(ctx, alice.ID, 10)
	if err != nil {
		t.Fatalf("Ledger failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Kind != models.LedgerKindVIPPurchase {
		t.Fatalf("Expected newest-first ledger with 2 entries, got %+v", entries)
	}
	if entries[0].BalanceAfter != 45 {
		t.Errorf("Expected 45 coins left after VIP, got %d", entries[0].BalanceAfter)
	}

	rec := httptest.NewRecorder()
	if err := env.services.Wallet.StreamLedger(ctx, rec, alice.ID, "csv"); err != nil {
		t.Fatalf("StreamLedger failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "id,kind") {
		t.Errorf("Unexpected CSV export: %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	if err := env.services.Wallet.StreamLedger(ctx, rec, alice.ID, "ndjson"); err != nil {
		t.Fatalf("StreamLedger failed: %v", err)
	}
	if n := strings.Count(rec.Body.String(), "\n"); n != 2 {
		t.Errorf("Expected 2 NDJSON lines, got %d", n)
	}

	if err := env.services.Wallet.StreamLedger(ctx, httptest.NewRecorder(), alice.ID, "xml"); err == nil {
		t.Error("Expected an error for an unsupported format")
	}
}

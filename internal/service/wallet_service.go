package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/blog-content-api/internal/config"
	"github.com/blog-content-api/internal/models"
	"github.com/blog-content-api/internal/repository"
	"github.com/blog-content-api/internal/validation"
	"github.com/rs/zerolog"
)

// walletService is the concrete implementation of WalletService
type walletService struct {
	repos     *repository.Repositories
	validator *validation.Validator
	cfg       config.WalletConfig
	log       zerolog.Logger
}

// newWalletService creates a new WalletService
func newWalletService(repos *repository.Repositories, validator *validation.Validator, cfg config.WalletConfig, log zerolog.Logger) *walletService {
	return &walletService{
		repos:     repos,
		validator: validator,
		cfg:       cfg,
		log:       log.With().Str("service", "wallet").Logger(),
	}
}

// TopUp converts money into coins, adding the bonus when the policy allows it
func (s *walletService) TopUp(ctx context.Context, userID string, req *models.TopUpRequest) (*models.LedgerEntry, error) {
	if errs := s.validator.ValidateTopUp(req); len(errs) > 0 {
		return nil, models.NewValidationError(errs)
	}

	entry, err := s.repos.Wallet.Apply(ctx, userID, func(acct *models.Account) (*models.LedgerEntry, error) {
		coins := req.Amount * s.cfg.CoinsPerUnit
		var bonus int64
		if s.bonusEligible(acct) {
			bonus = coins * s.cfg.BonusPercent / 100
		}
		acct.Balance += coins + bonus

		return &models.LedgerEntry{
			Kind:        models.LedgerKindTopUp,
			MoneyAmount: req.Amount,
			Change:      coins + bonus,
			Bonus:       bonus,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", userID).
		Int64("amount", req.Amount).
		Int64("coins", entry.Change).
		Int64("bonus", entry.Bonus).
		Int64("balance", entry.BalanceAfter).
		Msg("Wallet topped up")
	return entry, nil
}

func (s *walletService) bonusEligible(acct *models.Account) bool {
	if s.cfg.BonusPolicy == config.BonusFirstTopUp {
		return !acct.BonusGranted
	}
	return acct.Balance == 0
}

// PurchaseVIP debits the VIP price and grants the VIP tier
func (s *walletService) PurchaseVIP(ctx context.Context, userID string) (*models.LedgerEntry, error) {
	price := s.cfg.VIPPrice

	entry, err := s.repos.Wallet.Apply(ctx, userID, func(acct *models.Account) (*models.LedgerEntry, error) {
		if acct.IsVIP {
			return nil, models.ErrAlreadyVIP
		}
		if acct.Balance < price {
			return nil, models.ErrInsufficientBalance
		}
		acct.Balance -= price
		acct.IsVIP = true

		return &models.LedgerEntry{Kind: models.LedgerKindVIPPurchase, Change: -price}, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", userID).Int64("balance", entry.BalanceAfter).Msg("VIP purchased")
	return entry, nil
}

// GetWallet returns the balance and VIP flag
func (s *walletService) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	return &models.Wallet{
		UserID:   user.ID,
		Balance:  user.WalletBalance,
		IsVIP:    user.IsVIP,
		VIPPrice: s.cfg.VIPPrice,
	}, nil
}

// Ledger returns the most recent entries
func (s *walletService) Ledger(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error) {
	return s.repos.Wallet.ListEntries(ctx, userID, limit)
}

// StreamLedger writes the full ledger in the requested format
func (s *walletService) StreamLedger(ctx context.Context, w http.ResponseWriter, userID, format string) error {
	s.log.Info().Str("user_id", userID).Str("format", format).Msg("Starting ledger export")

	switch format {
	case "ndjson":
		return s.streamLedgerNDJSON(ctx, w, userID)
	case "json":
		return s.streamLedgerJSON(ctx, w, userID)
	case "csv":
		return s.streamLedgerCSV(ctx, w, userID)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func (s *walletService) streamLedgerNDJSON(ctx context.Context, w http.ResponseWriter, userID string) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename=ledger.ndjson")

	flusher, _ := w.(http.Flusher)
	count := 0

	err := s.repos.Wallet.StreamEntries(ctx, userID, func(entry *models.LedgerEntry) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		w.Write(data)
		w.Write([]byte("\n"))
		count++

		// Flush every 100 records for streaming
		if count%100 == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	s.log.Info().Int("count", count).Msg("Ledger export completed")
	return err
}

func (s *walletService) streamLedgerJSON(ctx context.Context, w http.ResponseWriter, userID string) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=ledger.json")

	w.Write([]byte("["))
	first := true

	err := s.repos.Wallet.StreamEntries(ctx, userID, func(entry *models.LedgerEntry) error {
		if !first {
			w.Write([]byte(","))
		}
		first = false

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		w.Write(data)
		return nil
	})

	w.Write([]byte("]"))
	return err
}

func (s *walletService) streamLedgerCSV(ctx context.Context, w http.ResponseWriter, userID string) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=ledger.csv")

	writer := csv.NewWriter(w)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"id", "kind", "money_amount", "change", "bonus", "balance_after", "created_at"})

	return s.repos.Wallet.StreamEntries(ctx, userID, func(entry *models.LedgerEntry) error {
		return writer.Write([]string{
			entry.ID,
			string(entry.Kind),
			strconv.FormatInt(entry.MoneyAmount, 10),
			strconv.FormatInt(entry.Change, 10),
			strconv.FormatInt(entry.Bonus, 10),
			strconv.FormatInt(entry.BalanceAfter, 10),
			entry.CreatedAt.Format(time.RFC3339),
		})
	})
}

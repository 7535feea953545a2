package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"onebid/internal/domain"
	applog "onebid/internal/log"
	"onebid/internal/metrics"
	"onebid/internal/money"
	"onebid/internal/realtime"
	"onebid/internal/repos"
)

// Notifier receives change notifications after commit.
type Notifier interface {
	Publish(topic, kind, id string)
}

// LedgerService owns every balance change. The profile balance column is a
// cache of the fold over the transaction log and is only written here,
// inside the same transaction as the log append.
type LedgerService struct {
	DB       *sqlx.DB
	Ledger   *repos.LedgerRepo
	Profiles *repos.ProfileRepo
	Metrics  *metrics.Metrics
	Notify   Notifier
	// VIP, when set, re-evaluates the party's VIP flag after each wallet
	// deposit or withdrawal.
	VIP VIPChecker
}

func NewLedgerService(db *sqlx.DB, ledger *repos.LedgerRepo, profiles *repos.ProfileRepo) *LedgerService {
	return &LedgerService{DB: db, Ledger: ledger, Profiles: profiles}
}

// Balance derives userID's spendable balance from the log.
func (s *LedgerService) Balance(userID string) (money.Amount, error) {
	return s.balanceTx(s.DB, userID)
}

func (s *LedgerService) balanceTx(e sqlx.Ext, userID string) (money.Amount, error) {
	entries, err := s.Ledger.Entries(e, userID)
	if err != nil {
		return 0, fmt.Errorf("ledger entries: %w", err)
	}
	return domain.Fold(userID, entries), nil
}

// History returns the wallet entries that move userID's money.
func (s *LedgerService) History(userID string) ([]domain.Transaction, error) {
	entries, err := s.Ledger.Entries(s.DB, userID)
	if err != nil {
		return nil, fmt.Errorf("ledger entries: %w", err)
	}
	out := make([]domain.Transaction, 0, len(entries))
	for _, t := range entries {
		if domain.Visible(userID, t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Deposit credits userID from outside the marketplace.
func (s *LedgerService) Deposit(userID string, amt money.Amount) (money.Amount, error) {
	return s.Apply(domain.Transaction{Type: domain.TxDeposit, Amount: amt, SellerID: &userID})
}

// Withdraw debits userID to outside the marketplace.
func (s *LedgerService) Withdraw(userID string, amt money.Amount) (money.Amount, error) {
	return s.Apply(domain.Transaction{Type: domain.TxWithdrawal, Amount: amt, BuyerID: &userID})
}

// Apply appends t in its own transaction and returns the party's new balance.
func (s *LedgerService) Apply(t domain.Transaction) (money.Amount, error) {
	var bal money.Amount
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		var err error
		bal, err = s.ApplyTx(tx, &t)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.committed(t)
	s.recheckVIP(t)
	return bal, nil
}

// recheckVIP is best effort; the entry is already durable.
func (s *LedgerService) recheckVIP(ts ...domain.Transaction) {
	if s.VIP == nil {
		return
	}
	for _, t := range ts {
		party, _ := domain.Party(t)
		if party == "" {
			continue
		}
		if _, err := s.VIP.CheckVIP(party); err != nil {
			applog.Error(nil, "vip.recompute.fail", err, map[string]any{"user_id": party, "tx_type": t.Type})
		}
	}
}

// ApplyTx appends t inside the caller's transaction. A debit that would take
// the party below zero fails with ErrInsufficientFunds and writes nothing.
func (s *LedgerService) ApplyTx(tx sqlx.Ext, t *domain.Transaction) (money.Amount, error) {
	if t.Amount <= 0 {
		return 0, domain.Invalid("invalid amount")
	}
	party, delta := domain.Party(*t)
	if party == "" {
		return 0, domain.Invalid("transaction has no party for its type")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt == "" {
		t.CreatedAt = domain.Stamp(time.Now())
	}

	var ok bool
	var err error
	if delta < 0 {
		ok, err = s.Profiles.Debit(tx, party, -delta)
	} else {
		ok, err = s.Profiles.Credit(tx, party, delta)
	}
	if err != nil {
		return 0, fmt.Errorf("update balance: %w", err)
	}
	if !ok {
		if _, err := s.Profiles.ByIDTx(tx, party); errors.Is(err, sql.ErrNoRows) {
			return 0, domain.NotFound("account not found")
		}
		if delta > 0 {
			return 0, domain.Invalid("balance limit exceeded")
		}
		return 0, domain.ErrInsufficientFunds
	}
	if err := s.Ledger.Append(tx, t); err != nil {
		return 0, fmt.Errorf("append ledger: %w", err)
	}
	p, err := s.Profiles.ByIDTx(tx, party)
	if err != nil {
		return 0, fmt.Errorf("reload balance: %w", err)
	}
	return p.WalletBalance, nil
}

// committed records metrics and notifications for entries that are durable.
func (s *LedgerService) committed(ts ...domain.Transaction) {
	for _, t := range ts {
		s.Metrics.Ledger(t.Type)
		if s.Notify != nil {
			s.Notify.Publish(realtime.TableTopic("transactions"), t.Type, t.ID)
		}
	}
}

package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"onebid/internal/domain"
	applog "onebid/internal/log"
	"onebid/internal/money"
	"onebid/internal/realtime"
	"onebid/internal/repos"
)

// ModerationService covers ratings, complaints, VIP membership and the
// suspension lifecycle.
type ModerationService struct {
	DB         *sqlx.DB
	Profiles   *repos.ProfileRepo
	Listings   *repos.ListingRepo
	Moderation *repos.ModerationRepo
	Ledger     *LedgerService
	Notify     Notifier

	VIPPolicy        domain.VIPPolicy
	SuspensionPolicy domain.SuspensionPolicy
	ReactivationFee  money.Amount
}

func NewModerationService(db *sqlx.DB, profiles *repos.ProfileRepo, listings *repos.ListingRepo, mod *repos.ModerationRepo, ledger *LedgerService) *ModerationService {
	return &ModerationService{
		DB:               db,
		Profiles:         profiles,
		Listings:         listings,
		Moderation:       mod,
		Ledger:           ledger,
		VIPPolicy:        domain.VIPPolicy{MinBalance: money.Must("5000"), MinTransactions: 5},
		SuspensionPolicy: domain.SuspensionPolicy{LowAverage: 2, HighAverage: 4, MinRatings: 3, BanAfter: 3},
		ReactivationFee:  money.Must("50"),
	}
}

// CheckVIP recomputes userID's VIP flag from current facts. Running it again
// without intervening changes leaves the flag as it is.
func (s *ModerationService) CheckVIP(userID string) (bool, error) {
	var vip bool
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		p, err := s.Profiles.ByIDTx(tx, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound("user not found")
		}
		if err != nil {
			return err
		}
		facts := domain.VIPFacts{Status: p.Status}
		if facts.Balance, err = s.Ledger.balanceTx(tx, userID); err != nil {
			return err
		}
		if facts.Transactions, err = s.Profiles.CompletedTransactions(tx, userID); err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}
		if facts.Complaints, err = s.Profiles.OpenComplaints(tx, userID); err != nil {
			return fmt.Errorf("count complaints: %w", err)
		}
		vip = s.VIPPolicy.Eligible(facts)
		if vip == p.VIP {
			return nil
		}
		return s.Profiles.SetVIP(tx, userID, vip)
	})
	return vip, err
}

// SubmitRating records rater's score for the counterpart of a sold listing.
func (s *ModerationService) SubmitRating(rater *domain.Profile, listingID string, score int) (*domain.Rating, error) {
	l, err := s.Listings.Get(listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("listing not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}
	if score < 1 || score > 5 {
		return nil, domain.Invalid("rating must be between 1 and 5")
	}
	if l.Status != domain.ListingSold || l.BuyerID == nil {
		return nil, domain.Forbidden("can only rate completed transactions")
	}
	var rated string
	switch rater.ID {
	case *l.BuyerID:
		rated = l.OwnerID
	case l.OwnerID:
		rated = *l.BuyerID
	default:
		return nil, domain.Forbidden("only the buyer and seller can rate")
	}

	r := &domain.Rating{
		ID:        uuid.NewString(),
		ListingID: l.ID,
		RaterID:   rater.ID,
		RatedID:   rated,
		Score:     score,
		CreatedAt: domain.Stamp(time.Now()),
	}
	err = repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		ok, err := s.Moderation.InsertRating(tx, r)
		if err != nil {
			return fmt.Errorf("insert rating: %w", err)
		}
		if !ok {
			return domain.Conflict("you have already rated this transaction")
		}
		return s.evaluateSuspension(tx, rated)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// evaluateSuspension applies the suspension policy to userID's received
// ratings.
func (s *ModerationService) evaluateSuspension(tx sqlx.Ext, userID string) error {
	p, err := s.Profiles.ByIDTx(tx, userID)
	if err != nil {
		return err
	}
	n, avg, err := s.Profiles.RatingStats(tx, userID)
	if err != nil {
		return fmt.Errorf("rating stats: %w", err)
	}
	next := s.SuspensionPolicy.Outcome(p, n, avg)
	if next == "" {
		return nil
	}
	if _, err := s.Profiles.Suspend(tx, userID, next); err != nil {
		return fmt.Errorf("suspend: %w", err)
	}
	applog.Audit(nil, "account.suspended", map[string]any{"user_id": userID, "status": next, "ratings": n, "average": avg})
	return nil
}

// SubmitComplaint files a complaint about accused on a listing.
func (s *ModerationService) SubmitComplaint(complainant *domain.Profile, listingID, accusedID, content string) (*domain.Complaint, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.Invalid("complaint content is required")
	}
	if accusedID == complainant.ID {
		return nil, domain.Forbidden("cannot file a complaint against yourself")
	}
	if _, err := s.Listings.Get(listingID); errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("listing not found")
	} else if err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}
	if _, err := s.Profiles.ByID(accusedID); errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("user not found")
	} else if err != nil {
		return nil, fmt.Errorf("load accused: %w", err)
	}

	at := domain.Stamp(time.Now())
	c := &domain.Complaint{
		ID:            uuid.NewString(),
		ListingID:     listingID,
		ComplainantID: complainant.ID,
		AccusedID:     accusedID,
		Content:       content,
		Status:        domain.ComplaintPending,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		dup, err := s.Moderation.HasPendingComplaint(tx, listingID, complainant.ID, accusedID)
		if err != nil {
			return err
		}
		if dup {
			return domain.Conflict("you already have a pending complaint about this user on this listing")
		}
		return s.Moderation.InsertComplaint(tx, c)
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.CheckVIP(accusedID); err != nil {
		applog.Error(nil, "vip.recompute.fail", err, map[string]any{"user_id": accusedID})
	}
	s.publish("complaints", c.ID)
	return c, nil
}

// Reactivate charges the reactivation fee and lifts the caller's suspension
// in one transaction.
func (s *ModerationService) Reactivate(p *domain.Profile) (money.Amount, error) {
	var bal money.Amount
	var fee domain.Transaction
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		cur, err := s.Profiles.ByIDTx(tx, p.ID)
		if err != nil {
			return err
		}
		if cur.Status == domain.AccountBanned {
			return domain.Forbidden("banned accounts cannot be reactivated")
		}
		if !cur.Suspended {
			return domain.Conflict("account is not suspended")
		}
		fee = domain.Transaction{Type: domain.TxWithdrawal, Amount: s.ReactivationFee, BuyerID: &cur.ID}
		if bal, err = s.Ledger.ApplyTx(tx, &fee); err != nil {
			return err
		}
		ok, err := s.Profiles.ClearSuspension(tx, cur.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflict("account is not suspended")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.Ledger.committed(fee)
	if _, err := s.CheckVIP(p.ID); err != nil {
		applog.Error(nil, "vip.recompute.fail", err, map[string]any{"user_id": p.ID, "tx_type": fee.Type})
	}
	return bal, nil
}

// ---------- super user actions ----------

func requireSuper(p *domain.Profile) error {
	if !p.IsSuper() {
		return domain.Forbidden("super user access required")
	}
	return nil
}

func (s *ModerationService) Complaints(actor *domain.Profile, status string) ([]domain.Complaint, error) {
	if err := requireSuper(actor); err != nil {
		return nil, err
	}
	return s.Moderation.Complaints(status)
}

// SetComplaintStatus moves an open complaint to INVESTIGATING or REJECTED.
func (s *ModerationService) SetComplaintStatus(actor *domain.Profile, id, status string) error {
	if err := requireSuper(actor); err != nil {
		return err
	}
	if status != domain.ComplaintInvestigating && status != domain.ComplaintRejected {
		return domain.Invalid("status must be INVESTIGATING or REJECTED")
	}
	var accused string
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		c, err := s.Moderation.Complaint(tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound("complaint not found")
		}
		if err != nil {
			return err
		}
		accused = c.AccusedID
		ok, err := s.Moderation.SetComplaintStatus(tx, id, status, nil, domain.Stamp(time.Now()))
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflict("complaint is already closed")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if status == domain.ComplaintRejected {
		if _, err := s.CheckVIP(accused); err != nil {
			applog.Error(nil, "vip.recompute.fail", err, map[string]any{"user_id": accused})
		}
	}
	s.publish("complaints", id)
	return nil
}

// ResolveComplaint closes a complaint and applies action to the accused.
func (s *ModerationService) ResolveComplaint(actor *domain.Profile, id, action string) error {
	if err := requireSuper(actor); err != nil {
		return err
	}
	action = strings.ToUpper(strings.TrimSpace(action))
	if action != domain.ResolveSuspend && action != domain.ResolveBan && action != domain.ResolveNone {
		return domain.Invalid("action must be SUSPEND, BAN or NONE")
	}
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		c, err := s.Moderation.Complaint(tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound("complaint not found")
		}
		if err != nil {
			return err
		}
		ok, err := s.Moderation.SetComplaintStatus(tx, id, domain.ComplaintResolved, &action, domain.Stamp(time.Now()))
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflict("complaint is already closed")
		}
		switch action {
		case domain.ResolveSuspend:
			accused, err := s.Profiles.ByIDTx(tx, c.AccusedID)
			if err != nil {
				return err
			}
			next := domain.AccountSuspended
			if accused.SuspensionCount+1 >= s.SuspensionPolicy.BanAfter {
				next = domain.AccountBanned
			}
			_, err = s.Profiles.Suspend(tx, c.AccusedID, next)
			return err
		case domain.ResolveBan:
			return s.Profiles.Ban(tx, c.AccusedID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish("complaints", id)
	return nil
}

func (s *ModerationService) Suspended(actor *domain.Profile) ([]domain.Profile, error) {
	if err := requireSuper(actor); err != nil {
		return nil, err
	}
	return s.Profiles.ListSuspended()
}

// AdminReactivate lifts a suspension without charging the fee.
func (s *ModerationService) AdminReactivate(actor *domain.Profile, userID string) error {
	if err := requireSuper(actor); err != nil {
		return err
	}
	ok, err := s.Profiles.ClearSuspension(s.DB, userID)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.Profiles.ByID(userID); errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound("user not found")
		}
		return domain.Conflict("account is not suspended")
	}
	return nil
}

func (s *ModerationService) publish(table, id string) {
	if s.Notify != nil {
		s.Notify.Publish(realtime.TableTopic(table), "changed", id)
	}
}

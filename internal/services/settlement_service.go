package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"onebid/internal/domain"
	applog "onebid/internal/log"
	"onebid/internal/metrics"
	"onebid/internal/money"
	"onebid/internal/realtime"
	"onebid/internal/repos"
)

const (
	SaleBid   = "BID"
	SaleOffer = "OFFER"
)

// VIPChecker re-evaluates a user's VIP flag.
type VIPChecker interface {
	CheckVIP(userID string) (bool, error)
}

type SettleRequest struct {
	ListingID string
	SellerID  string
	BuyerID   string
	Amount    money.Amount
	SaleType  string // BID | OFFER
	WinnerID  string // the bid or offer being accepted
}

type Sale struct {
	ListingID  string       `json:"listing_id"`
	SellerID   string       `json:"seller_id"`
	BuyerID    string       `json:"buyer_id"`
	SaleType   string       `json:"sale_type"`
	WinnerID   string       `json:"winner_id"`
	Amount     money.Amount `json:"amount"`
	FinalPrice money.Amount `json:"final_price"`
	Discounted bool         `json:"vip_discount"`
}

// SettlementService finalizes a sale in one transaction: the listing leaves
// ACTIVE, the buyer pays, the seller is paid, and the winning bid or offer is
// accepted with its siblings rejected.
type SettlementService struct {
	DB       *sqlx.DB
	Listings *repos.ListingRepo
	Bids     *repos.BidRepo
	Profiles *repos.ProfileRepo
	Ledger   *LedgerService
	VIP      VIPChecker
	Metrics  *metrics.Metrics
	Notify   Notifier

	DiscountPercent int64

	// hook runs between transaction stages; tests use it to inject faults.
	hook func(stage string) error
}

func NewSettlementService(db *sqlx.DB, listings *repos.ListingRepo, bids *repos.BidRepo, profiles *repos.ProfileRepo, ledger *LedgerService) *SettlementService {
	return &SettlementService{DB: db, Listings: listings, Bids: bids, Profiles: profiles, Ledger: ledger, DiscountPercent: 10}
}

// Price applies the VIP discount to raw.
func (s *SettlementService) Price(raw money.Amount, buyerVIP bool) money.Amount {
	if !buyerVIP || s.DiscountPercent <= 0 {
		return raw
	}
	return raw.Percent(100 - s.DiscountPercent)
}

func (s *SettlementService) Settle(req SettleRequest) (*Sale, error) {
	started := time.Now()
	sale, err := s.settle(req)
	status := "ok"
	if err != nil {
		status = domain.KindOf(err).String()
	}
	s.Metrics.Settlement(req.SaleType, status, started)
	if err != nil {
		return nil, err
	}

	// best effort; the sale is already durable
	if s.VIP != nil {
		for _, id := range []string{sale.BuyerID, sale.SellerID} {
			if _, err := s.VIP.CheckVIP(id); err != nil {
				applog.Error(nil, "vip.recompute.fail", err, map[string]any{"user_id": id, "listing_id": sale.ListingID})
			}
		}
	}
	if s.Notify != nil {
		s.Notify.Publish(realtime.ListingTopic(sale.ListingID), "listing.sold", sale.ListingID)
		s.Notify.Publish(realtime.TableTopic("listings"), "listing.sold", sale.ListingID)
		if req.SaleType == SaleBid {
			s.Notify.Publish(realtime.TableTopic("bids"), "bid.accepted", sale.WinnerID)
		} else {
			s.Notify.Publish(realtime.TableTopic("offers"), "offer.accepted", sale.WinnerID)
		}
	}
	return sale, nil
}

func (s *SettlementService) settle(req SettleRequest) (*Sale, error) {
	if req.Amount <= 0 {
		return nil, domain.Invalid("invalid amount")
	}
	if req.BuyerID == req.SellerID {
		return nil, domain.Forbidden("cannot buy your own listing")
	}
	var sale *Sale
	var entries []domain.Transaction
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		l, err := s.Listings.GetTx(tx, req.ListingID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound("listing not found")
		}
		if err != nil {
			return fmt.Errorf("load listing: %w", err)
		}
		if l.OwnerID != req.SellerID {
			return domain.Forbidden("only the seller can accept")
		}
		buyer, err := s.Profiles.ByIDTx(tx, req.BuyerID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound("buyer not found")
		}
		if err != nil {
			return fmt.Errorf("load buyer: %w", err)
		}

		final := s.Price(req.Amount, buyer.VIP)
		at := domain.Stamp(time.Now())

		ok, err := s.Listings.MarkSold(tx, l.ID, buyer.ID, final, at)
		if err != nil {
			return fmt.Errorf("mark sold: %w", err)
		}
		if !ok {
			return domain.ErrAlreadySold
		}

		listingID := l.ID
		purchase := domain.Transaction{Type: domain.TxPurchase, Amount: final, BuyerID: &buyer.ID, SellerID: &l.OwnerID, ListingID: &listingID, CreatedAt: at}
		if _, err := s.Ledger.ApplyTx(tx, &purchase); err != nil {
			return err
		}
		saleTx := domain.Transaction{Type: domain.TxSale, Amount: final, BuyerID: &buyer.ID, SellerID: &l.OwnerID, ListingID: &listingID, CreatedAt: at}
		if _, err := s.Ledger.ApplyTx(tx, &saleTx); err != nil {
			return err
		}
		if s.hook != nil {
			if err := s.hook("ledger"); err != nil {
				return err
			}
		}

		switch req.SaleType {
		case SaleBid:
			ok, err = s.Bids.SettleBids(tx, l.ID, req.WinnerID)
		case SaleOffer:
			ok, err = s.Bids.SettleOffers(tx, l.ID, req.WinnerID)
		default:
			return domain.Invalid("unknown sale type")
		}
		if err != nil {
			return fmt.Errorf("settle %s: %w", req.SaleType, err)
		}
		if !ok {
			return domain.Conflict(strings.ToLower(req.SaleType) + " is no longer pending")
		}
		if err := s.Bids.RejectAll(tx, l.ID); err != nil {
			return fmt.Errorf("reject leftovers: %w", err)
		}

		entries = []domain.Transaction{purchase, saleTx}
		sale = &Sale{
			ListingID:  l.ID,
			SellerID:   l.OwnerID,
			BuyerID:    buyer.ID,
			SaleType:   req.SaleType,
			WinnerID:   req.WinnerID,
			Amount:     req.Amount,
			FinalPrice: final,
			Discounted: final != req.Amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Ledger.committed(entries...)
	return sale, nil
}

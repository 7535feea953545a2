package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"onebid/internal/domain"
	"onebid/internal/metrics"
	"onebid/internal/money"
	"onebid/internal/realtime"
	"onebid/internal/repos"
)

type BidService struct {
	DB         *sqlx.DB
	Listings   *repos.ListingRepo
	Bids       *repos.BidRepo
	Ledger     *LedgerService
	Settlement *SettlementService
	Metrics    *metrics.Metrics
	Notify     Notifier

	// Now is the clock; tests replace it to cross an auction's end time.
	Now func() time.Time
}

func NewBidService(db *sqlx.DB, listings *repos.ListingRepo, bids *repos.BidRepo, ledger *LedgerService, settlement *SettlementService) *BidService {
	return &BidService{DB: db, Listings: listings, Bids: bids, Ledger: ledger, Settlement: settlement, Now: time.Now}
}

func (s *BidService) auction(listingID string) (*domain.Listing, error) {
	l, err := s.Listings.Get(listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("listing not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}
	if l.Type != domain.ListingAuction {
		return nil, domain.NotFound("auction not found")
	}
	return l, nil
}

// Place records a bid that raises the auction's current bid. Concurrent
// bids race on a conditional update: the first to commit wins and the other
// sees a stale floor and fails with ErrBidTooLow.
func (s *BidService) Place(bidder *domain.Profile, listingID string, amount money.Amount) (*domain.Bid, error) {
	b, err := s.place(bidder, listingID, amount)
	if err != nil {
		s.Metrics.Bid(domain.KindOf(err).String())
		return nil, err
	}
	s.Metrics.Bid("accepted")
	if s.Notify != nil {
		s.Notify.Publish(realtime.ListingTopic(listingID), "bid.placed", b.ID)
		s.Notify.Publish(realtime.TableTopic("bids"), "bid.placed", b.ID)
	}
	return b, nil
}

func (s *BidService) place(bidder *domain.Profile, listingID string, amount money.Amount) (*domain.Bid, error) {
	if amount <= 0 {
		return nil, domain.Invalid("invalid amount")
	}
	l, err := s.auction(listingID)
	if err != nil {
		return nil, err
	}
	if l.Status != domain.ListingActive {
		return nil, domain.ErrAlreadySold
	}
	if l.OwnerID == bidder.ID {
		return nil, domain.Forbidden("cannot bid on your own listing")
	}
	if !bidder.CanTrade() {
		return nil, domain.Forbidden("account is suspended")
	}
	d, err := s.Listings.Auction(s.DB, l.ID)
	if err != nil {
		return nil, fmt.Errorf("load auction: %w", err)
	}
	now := s.Now()
	if d.Ended(now) {
		return nil, domain.ErrAuctionEnded
	}
	floor := d.Floor()
	if amount <= floor || amount < floor+d.MinIncrement {
		return nil, &domain.Error{Kind: domain.KindBidTooLow, Msg: "bid must be at least " + (floor + d.MinIncrement).String()}
	}
	bal, err := s.Ledger.Balance(bidder.ID)
	if err != nil {
		return nil, err
	}
	if bal < amount {
		return nil, domain.ErrInsufficientFunds
	}

	b := &domain.Bid{
		ID:        uuid.NewString(),
		ListingID: l.ID,
		BidderID:  bidder.ID,
		Amount:    amount,
		Status:    domain.BidPending,
		CreatedAt: domain.Stamp(now),
	}
	err = repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		ok, err := s.Listings.RaiseBid(tx, l.ID, d.CurrentBid, amount, b.ID, domain.Stamp(now))
		if err != nil {
			return fmt.Errorf("raise bid: %w", err)
		}
		if !ok {
			return s.lostRace(tx, l.ID)
		}
		return s.Bids.InsertBid(tx, b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// lostRace explains why a conditional bid update matched nothing.
func (s *BidService) lostRace(tx sqlx.Ext, listingID string) error {
	l, err := s.Listings.GetTx(tx, listingID)
	if err == nil && l.Status != domain.ListingActive {
		return domain.ErrAlreadySold
	}
	d, err := s.Listings.Auction(tx, listingID)
	if err == nil && d.Ended(s.Now()) {
		return domain.ErrAuctionEnded
	}
	return domain.ErrBidTooLow
}

// Accept sells the listing to the bidder at the bid amount.
func (s *BidService) Accept(seller *domain.Profile, listingID, bidID string) (*Sale, error) {
	l, err := s.auction(listingID)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != seller.ID {
		return nil, domain.Forbidden("only the seller can accept bids")
	}
	b, err := s.Bids.Bid(s.DB, bidID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && b.ListingID != l.ID) {
		return nil, domain.NotFound("bid not found on this listing")
	}
	if err != nil {
		return nil, fmt.Errorf("load bid: %w", err)
	}
	if l.Status != domain.ListingActive {
		return nil, domain.ErrAlreadySold
	}
	if b.Status != domain.BidPending {
		return nil, domain.Conflict("bid is no longer pending")
	}
	return s.Settlement.Settle(SettleRequest{
		ListingID: l.ID,
		SellerID:  seller.ID,
		BuyerID:   b.BidderID,
		Amount:    b.Amount,
		SaleType:  SaleBid,
		WinnerID:  b.ID,
	})
}

// ForListing lists bids highest first. Only the seller sees who bid; other
// viewers see bidder ids for their own bids only.
func (s *BidService) ForListing(viewer *domain.Profile, listingID string) ([]domain.Bid, error) {
	l, err := s.auction(listingID)
	if err != nil {
		return nil, err
	}
	bids, err := s.Bids.BidsFor(l.ID)
	if err != nil {
		return nil, err
	}
	if viewer != nil && viewer.ID == l.OwnerID {
		return bids, nil
	}
	for i := range bids {
		if viewer == nil || bids[i].BidderID != viewer.ID {
			bids[i].BidderID = ""
		}
	}
	return bids, nil
}

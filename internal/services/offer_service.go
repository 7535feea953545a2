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

// OfferService handles offers on fixed-price listings. Offers do not compete:
// any number may be pending until the seller accepts one.
type OfferService struct {
	DB         *sqlx.DB
	Listings   *repos.ListingRepo
	Bids       *repos.BidRepo
	Ledger     *LedgerService
	Settlement *SettlementService
	Metrics    *metrics.Metrics
	Notify     Notifier
}

func NewOfferService(db *sqlx.DB, listings *repos.ListingRepo, bids *repos.BidRepo, ledger *LedgerService, settlement *SettlementService) *OfferService {
	return &OfferService{DB: db, Listings: listings, Bids: bids, Ledger: ledger, Settlement: settlement}
}

func (s *OfferService) fixed(listingID string) (*domain.Listing, error) {
	l, err := s.Listings.Get(listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("listing not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}
	if l.Type != domain.ListingFixed {
		return nil, domain.NotFound("fixed-price listing not found")
	}
	return l, nil
}

func (s *OfferService) Place(buyer *domain.Profile, listingID string, amount money.Amount) (*domain.Offer, error) {
	o, err := s.place(buyer, listingID, amount)
	if err != nil {
		s.Metrics.Offer(domain.KindOf(err).String())
		return nil, err
	}
	s.Metrics.Offer("accepted")
	if s.Notify != nil {
		s.Notify.Publish(realtime.ListingTopic(listingID), "offer.placed", o.ID)
		s.Notify.Publish(realtime.TableTopic("offers"), "offer.placed", o.ID)
	}
	return o, nil
}

func (s *OfferService) place(buyer *domain.Profile, listingID string, amount money.Amount) (*domain.Offer, error) {
	if amount <= 0 {
		return nil, domain.Invalid("invalid amount")
	}
	l, err := s.fixed(listingID)
	if err != nil {
		return nil, err
	}
	if l.Status != domain.ListingActive {
		return nil, domain.ErrAlreadySold
	}
	if l.OwnerID == buyer.ID {
		return nil, domain.Forbidden("cannot make an offer on your own listing")
	}
	if !buyer.CanTrade() {
		return nil, domain.Forbidden("account is suspended")
	}
	bal, err := s.Ledger.Balance(buyer.ID)
	if err != nil {
		return nil, err
	}
	if bal < amount {
		return nil, domain.ErrInsufficientFunds
	}
	d, err := s.Listings.Fixed(s.DB, l.ID)
	if err != nil {
		return nil, fmt.Errorf("load price: %w", err)
	}
	if d.MinOffer != nil && amount < *d.MinOffer {
		return nil, &domain.Error{Kind: domain.KindOfferTooLow, Msg: "offer must be at least " + d.MinOffer.String()}
	}
	o := &domain.Offer{
		ID:        uuid.NewString(),
		ListingID: l.ID,
		BuyerID:   buyer.ID,
		Amount:    amount,
		Status:    domain.BidPending,
		CreatedAt: domain.Stamp(time.Now()),
	}
	if err := s.Bids.InsertOffer(s.DB, o); err != nil {
		return nil, fmt.Errorf("insert offer: %w", err)
	}
	return o, nil
}

// Accept sells the listing to the offer's buyer at the offered amount.
func (s *OfferService) Accept(seller *domain.Profile, listingID, offerID string) (*Sale, error) {
	l, err := s.fixed(listingID)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != seller.ID {
		return nil, domain.Forbidden("only the seller can accept offers")
	}
	o, err := s.Bids.Offer(s.DB, offerID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && o.ListingID != l.ID) {
		return nil, domain.NotFound("offer not found on this listing")
	}
	if err != nil {
		return nil, fmt.Errorf("load offer: %w", err)
	}
	if l.Status != domain.ListingActive {
		return nil, domain.ErrAlreadySold
	}
	if o.Status != domain.BidPending {
		return nil, domain.Conflict("offer is no longer pending")
	}
	return s.Settlement.Settle(SettleRequest{
		ListingID: l.ID,
		SellerID:  seller.ID,
		BuyerID:   o.BuyerID,
		Amount:    o.Amount,
		SaleType:  SaleOffer,
		WinnerID:  o.ID,
	})
}

// ForListing returns offers newest first: all of them for the seller, only
// the viewer's own otherwise.
func (s *OfferService) ForListing(viewer *domain.Profile, listingID string) ([]domain.Offer, error) {
	l, err := s.fixed(listingID)
	if err != nil {
		return nil, err
	}
	offers, err := s.Bids.OffersFor(l.ID)
	if err != nil {
		return nil, err
	}
	if viewer.ID == l.OwnerID {
		return offers, nil
	}
	mine := offers[:0]
	for _, o := range offers {
		if o.BuyerID == viewer.ID {
			mine = append(mine, o)
		}
	}
	return mine, nil
}

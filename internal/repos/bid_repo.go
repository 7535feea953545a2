package repos

import (
	"onebid/internal/domain"

	"github.com/jmoiron/sqlx"
)

// BidRepo stores bids and offers. The two tables share a shape and a
// lifecycle (PENDING, then exactly one ACCEPTED with the rest REJECTED).
type BidRepo struct{ db *sqlx.DB }

func NewBidRepo(db *sqlx.DB) *BidRepo { return &BidRepo{db: db} }

func (r *BidRepo) InsertBid(e sqlx.Ext, b *domain.Bid) error {
	_, err := exec(e, `
		INSERT INTO bids(id,listing_id,bidder_id,amount,status,created_at)
		VALUES(?,?,?,?,'PENDING',?)`, b.ID, b.ListingID, b.BidderID, b.Amount, b.CreatedAt)
	return err
}

func (r *BidRepo) Bid(e sqlx.Ext, id string) (*domain.Bid, error) {
	var b domain.Bid
	if err := get(e, &b, `SELECT id,listing_id,bidder_id,amount,status,created_at FROM bids WHERE id=?`, id); err != nil {
		return nil, err
	}
	return &b, nil
}

// BidsFor lists bids on a listing, highest first.
func (r *BidRepo) BidsFor(listingID string) ([]domain.Bid, error) {
	var out []domain.Bid
	err := selectAll(r.db, &out, `
		SELECT id,listing_id,bidder_id,amount,status,created_at FROM bids
		WHERE listing_id=? ORDER BY amount DESC, created_at`, listingID)
	return out, err
}

// PendingBids lists pending bids on a listing, highest first.
func (r *BidRepo) PendingBids(listingID string) ([]domain.Bid, error) {
	var out []domain.Bid
	err := selectAll(r.db, &out, `
		SELECT id,listing_id,bidder_id,amount,status,created_at FROM bids
		WHERE listing_id=? AND status='PENDING' ORDER BY amount DESC, created_at`, listingID)
	return out, err
}

func (r *BidRepo) RejectBid(e sqlx.Ext, id string) error {
	_, err := exec(e, `UPDATE bids SET status='REJECTED' WHERE id=? AND status='PENDING'`, id)
	return err
}

// SettleBids marks winner ACCEPTED and every other pending bid REJECTED.
func (r *BidRepo) SettleBids(e sqlx.Ext, listingID, winner string) (bool, error) {
	ok, err := execOne(e, `UPDATE bids SET status='ACCEPTED' WHERE id=? AND listing_id=? AND status='PENDING'`, winner, listingID)
	if err != nil || !ok {
		return ok, err
	}
	_, err = exec(e, `UPDATE bids SET status='REJECTED' WHERE listing_id=? AND id<>? AND status='PENDING'`, listingID, winner)
	return true, err
}

func (r *BidRepo) InsertOffer(e sqlx.Ext, o *domain.Offer) error {
	_, err := exec(e, `
		INSERT INTO offers(id,listing_id,buyer_id,amount,status,created_at)
		VALUES(?,?,?,?,'PENDING',?)`, o.ID, o.ListingID, o.BuyerID, o.Amount, o.CreatedAt)
	return err
}

func (r *BidRepo) Offer(e sqlx.Ext, id string) (*domain.Offer, error) {
	var o domain.Offer
	if err := get(e, &o, `SELECT id,listing_id,buyer_id,amount,status,created_at FROM offers WHERE id=?`, id); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *BidRepo) OffersFor(listingID string) ([]domain.Offer, error) {
	var out []domain.Offer
	err := selectAll(r.db, &out, `
		SELECT id,listing_id,buyer_id,amount,status,created_at FROM offers
		WHERE listing_id=? ORDER BY created_at DESC`, listingID)
	return out, err
}

// SettleOffers marks winner ACCEPTED and every other pending offer REJECTED.
func (r *BidRepo) SettleOffers(e sqlx.Ext, listingID, winner string) (bool, error) {
	ok, err := execOne(e, `UPDATE offers SET status='ACCEPTED' WHERE id=? AND listing_id=? AND status='PENDING'`, winner, listingID)
	if err != nil || !ok {
		return ok, err
	}
	_, err = exec(e, `UPDATE offers SET status='REJECTED' WHERE listing_id=? AND id<>? AND status='PENDING'`, listingID, winner)
	return true, err
}

// RejectAll rejects leftover pending bids and offers on a listing.
func (r *BidRepo) RejectAll(e sqlx.Ext, listingID string) error {
	if _, err := exec(e, `UPDATE bids SET status='REJECTED' WHERE listing_id=? AND status='PENDING'`, listingID); err != nil {
		return err
	}
	_, err := exec(e, `UPDATE offers SET status='REJECTED' WHERE listing_id=? AND status='PENDING'`, listingID)
	return err
}

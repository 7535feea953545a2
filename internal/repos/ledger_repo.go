package repos

import (
	"onebid/internal/domain"

	"github.com/jmoiron/sqlx"
)

// LedgerRepo is the append-only transaction log. There is no update or
// delete.
type LedgerRepo struct{ db *sqlx.DB }

func NewLedgerRepo(db *sqlx.DB) *LedgerRepo { return &LedgerRepo{db: db} }

func (r *LedgerRepo) Append(e sqlx.Ext, t *domain.Transaction) error {
	_, err := exec(e, `
		INSERT INTO transactions(id,type,amount,buyer_id,seller_id,listing_id,created_at)
		VALUES(?,?,?,?,?,?,?)`, t.ID, t.Type, t.Amount, t.BuyerID, t.SellerID, t.ListingID, t.CreatedAt)
	return err
}

// Entries returns every entry userID is a party to, newest first.
func (r *LedgerRepo) Entries(e sqlx.Ext, userID string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := selectAll(e, &out, `
		SELECT id,type,amount,buyer_id,seller_id,listing_id,created_at FROM transactions
		WHERE buyer_id=? OR seller_id=?
		ORDER BY created_at DESC, id`, userID, userID)
	return out, err
}

// ForListing returns the entries recorded against a listing.
func (r *LedgerRepo) ForListing(listingID string) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := selectAll(r.db, &out, `
		SELECT id,type,amount,buyer_id,seller_id,listing_id,created_at FROM transactions
		WHERE listing_id=? ORDER BY created_at, type`, listingID)
	return out, err
}

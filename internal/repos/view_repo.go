package repos

import (
	"onebid/internal/money"

	"github.com/jmoiron/sqlx"
)

type ViewRepo struct{ db *sqlx.DB }

func NewViewRepo(db *sqlx.DB) *ViewRepo { return &ViewRepo{db: db} }

func (r *ViewRepo) Insert(e sqlx.Ext, id, listingID string, viewerID *string, at string) error {
	_, err := exec(e, `INSERT INTO listing_views(id,listing_id,viewer_id,created_at) VALUES(?,?,?,?)`, id, listingID, viewerID, at)
	return err
}

// FrequentRow is a listing the user viewed, with how many times.
type FrequentRow struct {
	ListingID string       `db:"listing_id" json:"listing_id"`
	Title     string       `db:"title" json:"title"`
	Type      string       `db:"listing_type" json:"listing_type"`
	Price     money.Amount `db:"price" json:"price"`
	ImageURL  *string      `db:"image_url" json:"image_url,omitempty"`
	Count     int64        `db:"view_count" json:"view_count"`
}

// ByViewer returns the listings viewerID looked at most, most first.
func (r *ViewRepo) ByViewer(viewerID string, limit int) ([]FrequentRow, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []FrequentRow
	err := selectAll(r.db, &out, `
		SELECT v.listing_id, l.title, l.listing_type,
		       COALESCE(a.current_bid, a.starting_price, f.asking_price, 0) AS price,
		       i.url AS image_url, COUNT(*) AS view_count
		FROM listing_views v
		JOIN listings l ON l.id = v.listing_id
		LEFT JOIN auction_details a ON a.listing_id = l.id
		LEFT JOIN fixed_price_details f ON f.listing_id = l.id
		LEFT JOIN listing_images i ON i.listing_id = l.id AND i.position = 1
		WHERE v.viewer_id=? AND l.status='ACTIVE'
		GROUP BY v.listing_id, l.title, l.listing_type, a.current_bid, a.starting_price, f.asking_price, i.url
		ORDER BY view_count DESC, MAX(v.created_at) DESC
		LIMIT ?`, viewerID, limit)
	return out, err
}

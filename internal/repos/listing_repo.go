package repos

import (
	"strings"

	"onebid/internal/domain"
	"onebid/internal/money"

	"github.com/jmoiron/sqlx"
)

type ListingRepo struct{ db *sqlx.DB }

func NewListingRepo(db *sqlx.DB) *ListingRepo { return &ListingRepo{db: db} }

const listingCols = `l.id,l.owner_id,l.title,l.description,l.category,l.listing_type,l.is_service,l.for_rent,l.status,l.views,l.buyer_id,l.sold_price,l.created_at,l.updated_at`

// Card is the summary row used by search and the home page carousels.
type Card struct {
	ID         string        `db:"id" json:"id"`
	OwnerID    string        `db:"owner_id" json:"owner_id"`
	Title      string        `db:"title" json:"title"`
	Category   string        `db:"category" json:"category"`
	Type       string        `db:"listing_type" json:"listing_type"`
	IsService  bool          `db:"is_service" json:"is_service"`
	ForRent    bool          `db:"for_rent" json:"for_rent"`
	Status     string        `db:"status" json:"status"`
	Views      int64         `db:"views" json:"views"`
	Price      money.Amount  `db:"price" json:"price"`
	CurrentBid *money.Amount `db:"current_bid" json:"current_bid,omitempty"`
	EndTime    *string       `db:"end_time" json:"end_time,omitempty"`
	ImageURL   *string       `db:"image_url" json:"image_url,omitempty"`
	SoldPrice  *money.Amount `db:"sold_price" json:"sold_price,omitempty"`
	CreatedAt  string        `db:"created_at" json:"created_at"`
	Relation   string        `db:"relation" json:"relation,omitempty"`
}

// cardSelect joins the detail and cover image for a listing aliased l.
const cardSelect = `
	SELECT l.id, l.owner_id, l.title, l.category, l.listing_type, l.is_service, l.for_rent, l.status, l.views,
	       COALESCE(a.current_bid, a.starting_price, f.asking_price, 0) AS price,
	       a.current_bid, a.end_time, i.url AS image_url, l.sold_price, l.created_at
	FROM listings l
	LEFT JOIN auction_details a ON a.listing_id = l.id
	LEFT JOIN fixed_price_details f ON f.listing_id = l.id
	LEFT JOIN listing_images i ON i.listing_id = l.id AND i.position = 1`

func (r *ListingRepo) Insert(e sqlx.Ext, l *domain.Listing) error {
	_, err := exec(e, `
		INSERT INTO listings(id,owner_id,title,description,category,listing_type,is_service,for_rent,status,views,created_at,updated_at)
		VALUES(?,?,?,?,?,?,?,?,'ACTIVE',0,?,?)`,
		l.ID, l.OwnerID, l.Title, l.Description, l.Category, l.Type, flag(l.IsService), flag(l.ForRent), l.CreatedAt, l.UpdatedAt)
	return err
}

func (r *ListingRepo) InsertAuction(e sqlx.Ext, d *domain.AuctionDetail) error {
	_, err := exec(e, `
		INSERT INTO auction_details(listing_id,starting_price,min_increment,end_time)
		VALUES(?,?,?,?)`, d.ListingID, d.StartingPrice, d.MinIncrement, d.EndTime)
	return err
}

func (r *ListingRepo) InsertFixed(e sqlx.Ext, d *domain.FixedDetail) error {
	_, err := exec(e, `
		INSERT INTO fixed_price_details(listing_id,asking_price,min_offer)
		VALUES(?,?,?)`, d.ListingID, d.AskingPrice, d.MinOffer)
	return err
}

func (r *ListingRepo) InsertImage(e sqlx.Ext, img *domain.Image) error {
	_, err := exec(e, `
		INSERT INTO listing_images(listing_id,position,storage_key,url)
		VALUES(?,?,?,?)`, img.ListingID, img.Position, img.Key, img.URL)
	return err
}

func (r *ListingRepo) Get(id string) (*domain.Listing, error) { return r.GetTx(r.db, id) }

func (r *ListingRepo) GetTx(e sqlx.Ext, id string) (*domain.Listing, error) {
	var l domain.Listing
	if err := get(e, &l, `SELECT `+listingCols+` FROM listings l WHERE l.id=?`, id); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *ListingRepo) Auction(e sqlx.Ext, listingID string) (*domain.AuctionDetail, error) {
	var d domain.AuctionDetail
	if err := get(e, &d, `
		SELECT listing_id,starting_price,current_bid,current_bid_id,min_increment,end_time
		FROM auction_details WHERE listing_id=?`, listingID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *ListingRepo) Fixed(e sqlx.Ext, listingID string) (*domain.FixedDetail, error) {
	var d domain.FixedDetail
	if err := get(e, &d, `SELECT listing_id,asking_price,min_offer FROM fixed_price_details WHERE listing_id=?`, listingID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *ListingRepo) Images(listingID string) ([]domain.Image, error) {
	var out []domain.Image
	err := selectAll(r.db, &out, `
		SELECT listing_id,position,storage_key,url FROM listing_images
		WHERE listing_id=? ORDER BY position`, listingID)
	return out, err
}

// RaiseBid moves the current bid from expected to amount. It matches nothing
// when another bid committed first, when the auction is over, or when the
// listing is no longer active.
func (r *ListingRepo) RaiseBid(e sqlx.Ext, listingID string, expected *money.Amount, amount money.Amount, bidID, at string) (bool, error) {
	q := `
		UPDATE auction_details SET current_bid=?, current_bid_id=?
		WHERE listing_id=? AND end_time > ?
		  AND EXISTS (SELECT 1 FROM listings WHERE id=? AND status='ACTIVE')`
	args := []any{amount, bidID, listingID, at, listingID}
	if expected == nil {
		q += ` AND current_bid IS NULL`
	} else {
		q += ` AND current_bid = ?`
		args = append(args, *expected)
	}
	return execOne(e, q, args...)
}

// MarkSold flips ACTIVE to SOLD; false means the listing was already sold.
func (r *ListingRepo) MarkSold(e sqlx.Ext, id, buyerID string, price money.Amount, at string) (bool, error) {
	return execOne(e, `
		UPDATE listings SET status='SOLD', buyer_id=?, sold_price=?, updated_at=?
		WHERE id=? AND status='ACTIVE'`, buyerID, price, at, id)
}

func (r *ListingRepo) IncrementViews(e sqlx.Ext, id string) (bool, error) {
	return execOne(e, `UPDATE listings SET views = views + 1 WHERE id=?`, id)
}

// SearchFilter narrows active listings.
type SearchFilter struct {
	Query    string
	Category string
	Type     string // AUCTION | FIXED_PRICE
	Service  *bool
	ForRent  *bool
	MinPrice *money.Amount
	MaxPrice *money.Amount
	Sort     string // latest | popular | price_asc | price_desc
	Limit    int
}

func (r *ListingRepo) Search(f SearchFilter) ([]Card, error) {
	var where []string
	var args []any
	where = append(where, `l.status='ACTIVE'`)
	if f.Query != "" {
		where = append(where, `(LOWER(l.title) LIKE ? OR LOWER(l.description) LIKE ?)`)
		like := "%" + strings.ToLower(f.Query) + "%"
		args = append(args, like, like)
	}
	if f.Category != "" {
		where = append(where, `LOWER(l.category)=LOWER(?)`)
		args = append(args, f.Category)
	}
	if f.Type != "" {
		where = append(where, `l.listing_type=?`)
		args = append(args, f.Type)
	}
	if f.Service != nil {
		where = append(where, `l.is_service=?`)
		args = append(args, flag(*f.Service))
	}
	if f.ForRent != nil {
		where = append(where, `l.for_rent=?`)
		args = append(args, flag(*f.ForRent))
	}
	const price = `COALESCE(a.current_bid, a.starting_price, f.asking_price, 0)`
	if f.MinPrice != nil {
		where = append(where, price+` >= ?`)
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, price+` <= ?`)
		args = append(args, *f.MaxPrice)
	}
	order := `l.created_at DESC`
	switch f.Sort {
	case "popular":
		order = `l.views DESC, l.created_at DESC`
	case "price_asc":
		order = price + ` ASC, l.created_at DESC`
	case "price_desc":
		order = price + ` DESC, l.created_at DESC`
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit)

	var out []Card
	err := selectAll(r.db, &out, cardSelect+`
	WHERE `+strings.Join(where, " AND ")+`
	ORDER BY `+order+`
	LIMIT ?`, args...)
	return out, err
}

// TopAuctions returns active auctions that have been viewed, most viewed first.
func (r *ListingRepo) TopAuctions(limit int) ([]Card, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []Card
	err := selectAll(r.db, &out, cardSelect+`
	WHERE l.status='ACTIVE' AND l.listing_type='AUCTION' AND l.views > 0
	ORDER BY l.views DESC, l.created_at DESC
	LIMIT ?`, limit)
	return out, err
}

// MostViewed returns active listings of one type ordered by views.
func (r *ListingRepo) MostViewed(listingType string, limit int) ([]Card, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []Card
	err := selectAll(r.db, &out, cardSelect+`
	WHERE l.status='ACTIVE' AND l.listing_type=?
	ORDER BY l.views DESC, l.created_at DESC
	LIMIT ?`, listingType, limit)
	return out, err
}

// Mine returns listings userID owns plus listings they bought.
func (r *ListingRepo) Mine(userID string) ([]Card, error) {
	var out []Card
	err := selectAll(r.db, &out, `
	SELECT * FROM (
	  SELECT c.*, 'OWNED' AS relation FROM (`+cardSelect+` WHERE l.owner_id=?) c
	  UNION ALL
	  SELECT c.*, 'PURCHASED' AS relation FROM (`+cardSelect+` WHERE l.buyer_id=?) c
	) m
	ORDER BY created_at DESC`, userID, userID)
	return out, err
}

// ExpiredAuctions lists active auctions whose end time has passed and that
// still have pending bids.
func (r *ListingRepo) ExpiredAuctions(at string, limit int) ([]string, error) {
	var ids []string
	err := selectAll(r.db, &ids, `
		SELECT l.id FROM listings l
		JOIN auction_details a ON a.listing_id = l.id
		WHERE l.status='ACTIVE' AND a.end_time <= ?
		  AND EXISTS (SELECT 1 FROM bids b WHERE b.listing_id = l.id AND b.status='PENDING')
		ORDER BY a.end_time
		LIMIT ?`, at, limit)
	return ids, err
}

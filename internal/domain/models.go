package domain

import (
	"time"

	"onebid/internal/money"
)

const (
	ListingAuction = "AUCTION"
	ListingFixed   = "FIXED_PRICE"

	ListingActive = "ACTIVE"
	ListingSold   = "SOLD"

	BidPending  = "PENDING"
	BidAccepted = "ACCEPTED"
	BidRejected = "REJECTED"
)

// TimeLayout is fixed width so stored timestamps sort lexically.
const TimeLayout = "2006-01-02T15:04:05.000Z"

func Stamp(t time.Time) string { return t.UTC().Format(TimeLayout) }

func ParseStamp(s string) (time.Time, error) { return time.Parse(TimeLayout, s) }

type Listing struct {
	ID          string        `db:"id" json:"id"`
	OwnerID     string        `db:"owner_id" json:"owner_id"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	Category    string        `db:"category" json:"category"`
	Type        string        `db:"listing_type" json:"listing_type"` // AUCTION | FIXED_PRICE
	IsService   bool          `db:"is_service" json:"is_service"`
	ForRent     bool          `db:"for_rent" json:"for_rent"`
	Status      string        `db:"status" json:"status"`
	Views       int64         `db:"views" json:"views"`
	BuyerID     *string       `db:"buyer_id" json:"buyer_id,omitempty"`
	SoldPrice   *money.Amount `db:"sold_price" json:"sold_price,omitempty"`
	CreatedAt   string        `db:"created_at" json:"created_at"`
	UpdatedAt   string        `db:"updated_at" json:"updated_at"`
}

type AuctionDetail struct {
	ListingID     string        `db:"listing_id" json:"-"`
	StartingPrice money.Amount  `db:"starting_price" json:"starting_price"`
	CurrentBid    *money.Amount `db:"current_bid" json:"current_bid,omitempty"`
	CurrentBidID  *string       `db:"current_bid_id" json:"current_bid_id,omitempty"`
	MinIncrement  money.Amount  `db:"min_increment" json:"min_increment"`
	EndTime       string        `db:"end_time" json:"end_time"`
}

// Floor is the amount a new bid must exceed.
func (a *AuctionDetail) Floor() money.Amount {
	if a.CurrentBid != nil && *a.CurrentBid > a.StartingPrice {
		return *a.CurrentBid
	}
	return a.StartingPrice
}

// Ended reports whether bidding is closed at now.
func (a *AuctionDetail) Ended(now time.Time) bool {
	end, err := ParseStamp(a.EndTime)
	if err != nil {
		return true
	}
	return !now.Before(end)
}

type FixedDetail struct {
	ListingID   string        `db:"listing_id" json:"-"`
	AskingPrice money.Amount  `db:"asking_price" json:"asking_price"`
	MinOffer    *money.Amount `db:"min_offer" json:"min_offer,omitempty"`
}

type Image struct {
	ListingID string `db:"listing_id" json:"-"`
	Position  int    `db:"position" json:"position"`
	Key       string `db:"storage_key" json:"-"`
	URL       string `db:"url" json:"url"`
}

type Bid struct {
	ID        string       `db:"id" json:"id"`
	ListingID string       `db:"listing_id" json:"listing_id"`
	BidderID  string       `db:"bidder_id" json:"bidder_id"`
	Amount    money.Amount `db:"amount" json:"amount"`
	Status    string       `db:"status" json:"status"`
	CreatedAt string       `db:"created_at" json:"created_at"`
}

type Offer struct {
	ID        string       `db:"id" json:"id"`
	ListingID string       `db:"listing_id" json:"listing_id"`
	BuyerID   string       `db:"buyer_id" json:"buyer_id"`
	Amount    money.Amount `db:"amount" json:"amount"`
	Status    string       `db:"status" json:"status"`
	CreatedAt string       `db:"created_at" json:"created_at"`
}

type Rating struct {
	ID        string `db:"id" json:"id"`
	ListingID string `db:"listing_id" json:"listing_id"`
	RaterID   string `db:"rater_id" json:"rater_id"`
	RatedID   string `db:"rated_id" json:"rated_id"`
	Score     int    `db:"score" json:"score"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

const (
	ComplaintPending       = "PENDING"
	ComplaintInvestigating = "INVESTIGATING"
	ComplaintResolved      = "RESOLVED"
	ComplaintRejected      = "REJECTED"

	ResolveSuspend = "SUSPEND"
	ResolveBan     = "BAN"
	ResolveNone    = "NONE"
)

type Complaint struct {
	ID            string  `db:"id" json:"id"`
	ListingID     string  `db:"listing_id" json:"listing_id"`
	ComplainantID string  `db:"complainant_id" json:"complainant_id"`
	AccusedID     string  `db:"accused_id" json:"accused_id"`
	Content       string  `db:"content" json:"content"`
	Status        string  `db:"status" json:"status"`
	Resolution    *string `db:"resolution" json:"resolution,omitempty"`
	CreatedAt     string  `db:"created_at" json:"created_at"`
	UpdatedAt     string  `db:"updated_at" json:"updated_at"`
}

// Comment is authored by exactly one of UserID or VisitorID.
type Comment struct {
	ID        string  `db:"id" json:"id"`
	ListingID string  `db:"listing_id" json:"listing_id"`
	UserID    *string `db:"user_id" json:"user_id,omitempty"`
	VisitorID *string `db:"visitor_id" json:"visitor_id,omitempty"`
	Content   string  `db:"content" json:"content"`
	CreatedAt string  `db:"created_at" json:"created_at"`
	UpdatedAt string  `db:"updated_at" json:"updated_at"`
}

const (
	ApplicationPending  = "PENDING"
	ApplicationApproved = "APPROVED"
	ApplicationDenied   = "DENIED"
)

type SuperApplication struct {
	ID        string  `db:"id" json:"id"`
	UserID    string  `db:"user_id" json:"user_id"`
	Reason    string  `db:"reason" json:"reason"`
	Rating    float64 `db:"rating" json:"rating"`
	Status    string  `db:"status" json:"status"`
	CreatedAt string  `db:"created_at" json:"created_at"`
	UpdatedAt string  `db:"updated_at" json:"updated_at"`
}

package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"onebid/internal/domain"
	applog "onebid/internal/log"
	"onebid/internal/money"
	"onebid/internal/realtime"
	"onebid/internal/repos"
	"onebid/internal/storage"
)

// Blobs stores uploaded listing images.
type Blobs interface {
	Put(key string, data []byte) (string, error)
	Delete(key string) error
}

type Upload struct {
	Name string
	Data []byte
}

type ListingInput struct {
	Title       string
	Description string
	Category    string
	Type        string // AUCTION | FIXED_PRICE
	IsService   bool
	ForRent     bool

	StartingPrice *money.Amount
	MinIncrement  *money.Amount
	EndTime       *time.Time

	AskingPrice *money.Amount
	MinOffer    *money.Amount
}

// ListingDetail is a listing with its type-specific record and images.
type ListingDetail struct {
	domain.Listing
	Price   money.Amount          `json:"price"`
	Auction *domain.AuctionDetail `json:"auction,omitempty"`
	Fixed   *domain.FixedDetail   `json:"fixed_price,omitempty"`
	Images  []domain.Image        `json:"images"`
}

var DefaultMinIncrement = money.Must("1.00")

type ListingService struct {
	DB       *sqlx.DB
	Listings *repos.ListingRepo
	Blobs    Blobs
	Notify   Notifier
	Now      func() time.Time
}

func NewListingService(db *sqlx.DB, listings *repos.ListingRepo, blobs Blobs) *ListingService {
	return &ListingService{DB: db, Listings: listings, Blobs: blobs, Now: time.Now}
}

func (s *ListingService) validate(in *ListingInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if in.Title == "" || len(in.Title) > 120 {
		return domain.Invalid("title is required (max 120 characters)")
	}
	if len(in.Description) > 4000 {
		return domain.Invalid("description is too long")
	}
	switch in.Type {
	case domain.ListingAuction:
		if in.StartingPrice == nil || *in.StartingPrice <= 0 {
			return domain.Invalid("auction requires a starting price")
		}
		if in.EndTime == nil {
			return domain.Invalid("auction requires an end time")
		}
		if !in.EndTime.After(s.Now()) {
			return domain.Invalid("end time must be in the future")
		}
		if in.MinIncrement != nil && *in.MinIncrement <= 0 {
			return domain.Invalid("minimum increment must be positive")
		}
	case domain.ListingFixed:
		if in.AskingPrice == nil || *in.AskingPrice <= 0 {
			return domain.Invalid("fixed-price listing requires an asking price")
		}
		if in.MinOffer != nil && *in.MinOffer <= 0 {
			return domain.Invalid("minimum offer must be positive")
		}
	default:
		return domain.Invalid("listing type must be AUCTION or FIXED_PRICE")
	}
	return nil
}

// Create stores the listing, its detail record and its images together.
// When anything fails the transaction rolls back and every image already
// uploaded is deleted.
func (s *ListingService) Create(owner *domain.Profile, in ListingInput, images []Upload) (*ListingDetail, error) {
	if !owner.CanTrade() {
		return nil, domain.Forbidden("suspended accounts cannot create listings")
	}
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, domain.Invalid("at least one image is required")
	}
	exts := make([]string, len(images))
	for i, img := range images {
		ext, err := storage.ImageExt(img.Data)
		if err != nil {
			return nil, domain.Invalid(fmt.Sprintf("image %d is not a supported image", i+1))
		}
		exts[i] = ext
	}

	at := domain.Stamp(s.Now())
	l := &domain.Listing{
		ID:          uuid.NewString(),
		OwnerID:     owner.ID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Type:        in.Type,
		IsService:   in.IsService,
		ForRent:     in.ForRent,
		Status:      domain.ListingActive,
		CreatedAt:   at,
		UpdatedAt:   at,
	}

	var uploaded []string
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		if err := s.Listings.Insert(tx, l); err != nil {
			return fmt.Errorf("insert listing: %w", err)
		}
		switch in.Type {
		case domain.ListingAuction:
			inc := DefaultMinIncrement
			if in.MinIncrement != nil {
				inc = *in.MinIncrement
			}
			d := &domain.AuctionDetail{ListingID: l.ID, StartingPrice: *in.StartingPrice, MinIncrement: inc, EndTime: domain.Stamp(*in.EndTime)}
			if err := s.Listings.InsertAuction(tx, d); err != nil {
				return fmt.Errorf("insert auction: %w", err)
			}
		case domain.ListingFixed:
			d := &domain.FixedDetail{ListingID: l.ID, AskingPrice: *in.AskingPrice, MinOffer: in.MinOffer}
			if err := s.Listings.InsertFixed(tx, d); err != nil {
				return fmt.Errorf("insert price: %w", err)
			}
		}
		for i, img := range images {
			key := "listings/" + l.ID + "/" + strconv.Itoa(i+1) + exts[i]
			url, err := s.Blobs.Put(key, img.Data)
			if err != nil {
				return fmt.Errorf("upload image %d: %w", i+1, err)
			}
			uploaded = append(uploaded, key)
			if err := s.Listings.InsertImage(tx, &domain.Image{ListingID: l.ID, Position: i + 1, Key: key, URL: url}); err != nil {
				return fmt.Errorf("insert image: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		for _, key := range uploaded {
			if derr := s.Blobs.Delete(key); derr != nil {
				applog.Error(nil, "listing.create.cleanup.fail", derr, map[string]any{"key": key})
			}
		}
		return nil, err
	}
	if s.Notify != nil {
		s.Notify.Publish(realtime.TableTopic("listings"), "listing.created", l.ID)
	}
	return s.Get(l.ID)
}

func (s *ListingService) Get(id string) (*ListingDetail, error) {
	l, err := s.Listings.Get(id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("listing not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load listing: %w", err)
	}
	out := &ListingDetail{Listing: *l}
	switch l.Type {
	case domain.ListingAuction:
		if out.Auction, err = s.Listings.Auction(s.DB, l.ID); err != nil {
			return nil, fmt.Errorf("load auction: %w", err)
		}
		out.Price = out.Auction.StartingPrice
		if out.Auction.CurrentBid != nil {
			out.Price = *out.Auction.CurrentBid
		}
	case domain.ListingFixed:
		if out.Fixed, err = s.Listings.Fixed(s.DB, l.ID); err != nil {
			return nil, fmt.Errorf("load price: %w", err)
		}
		out.Price = out.Fixed.AskingPrice
	}
	if out.Images, err = s.Listings.Images(l.ID); err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	if out.Images == nil {
		out.Images = []domain.Image{}
	}
	return out, nil
}

// Mine returns what p listed and what p bought.
func (s *ListingService) Mine(p *domain.Profile) ([]repos.Card, error) {
	return s.Listings.Mine(p.ID)
}

package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"onebid/internal/domain"
	"onebid/internal/realtime"
	"onebid/internal/repos"
)

// CatalogService serves the read side: search, carousels and view tracking.
type CatalogService struct {
	DB       *sqlx.DB
	Listings *repos.ListingRepo
	Views    *repos.ViewRepo
	Notify   Notifier
}

func NewCatalogService(db *sqlx.DB, listings *repos.ListingRepo, views *repos.ViewRepo) *CatalogService {
	return &CatalogService{DB: db, Listings: listings, Views: views}
}

func (s *CatalogService) Search(f repos.SearchFilter) ([]repos.Card, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, domain.Invalid("minPrice cannot exceed maxPrice")
	}
	out, err := s.Listings.Search(f)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return out, nil
}

// TopAuctions feeds the home page carousel.
func (s *CatalogService) TopAuctions(limit int) ([]repos.Card, error) {
	return s.Listings.TopAuctions(limit)
}

type MostViewed struct {
	Auctions []repos.Card `json:"bids"`
	Fixed    []repos.Card `json:"buys"`
}

func (s *CatalogService) MostViewed(limit int) (*MostViewed, error) {
	a, err := s.Listings.MostViewed(domain.ListingAuction, limit)
	if err != nil {
		return nil, err
	}
	f, err := s.Listings.MostViewed(domain.ListingFixed, limit)
	if err != nil {
		return nil, err
	}
	return &MostViewed{Auctions: a, Fixed: f}, nil
}

// FrequentlyViewed lists the listings p opened most often.
func (s *CatalogService) FrequentlyViewed(p *domain.Profile, limit int) ([]repos.FrequentRow, error) {
	return s.Views.ByViewer(p.ID, limit)
}

// RecordView counts a view of listingID. viewer is nil for visitors.
func (s *CatalogService) RecordView(listingID string, viewer *domain.Profile) error {
	var viewerID *string
	if viewer != nil {
		viewerID = &viewer.ID
	}
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		ok, err := s.Listings.IncrementViews(tx, listingID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFound("listing not found")
		}
		return s.Views.Insert(tx, uuid.NewString(), listingID, viewerID, domain.Stamp(time.Now()))
	})
	if err != nil {
		return err
	}
	if s.Notify != nil {
		s.Notify.Publish(realtime.ListingTopic(listingID), "listing.viewed", listingID)
	}
	return nil
}

// Exists reports whether a listing id is known.
func (s *CatalogService) Exists(listingID string) (bool, error) {
	_, err := s.Listings.Get(listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

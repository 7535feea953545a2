package services

import (
	"context"
	"time"

	"onebid/internal/domain"
	applog "onebid/internal/log"
	"onebid/internal/repos"
)

// Finalizer settles auctions after their end time by accepting the highest
// pending bid on the seller's behalf. A bid that can no longer be settled
// (the bidder cannot pay) is rejected and the next highest is tried.
type Finalizer struct {
	Listings   *repos.ListingRepo
	Bids       *repos.BidRepo
	Settlement *SettlementService
	Interval   time.Duration
	Batch      int
	Now        func() time.Time
}

func NewFinalizer(listings *repos.ListingRepo, bids *repos.BidRepo, settlement *SettlementService, interval time.Duration) *Finalizer {
	return &Finalizer{Listings: listings, Bids: bids, Settlement: settlement, Interval: interval, Batch: 50, Now: time.Now}
}

// Run ticks until ctx is done. A zero interval disables it.
func (f *Finalizer) Run(ctx context.Context) {
	if f.Interval <= 0 {
		return
	}
	t := time.NewTicker(f.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n, err := f.RunOnce(); err != nil {
				applog.Error(nil, "finalizer.tick", err, nil)
			} else if n > 0 {
				applog.Info(nil, "finalizer.tick", map[string]any{"settled": n})
			}
		}
	}
}

// RunOnce settles every expired auction it finds and returns how many sold.
func (f *Finalizer) RunOnce() (int, error) {
	ids, err := f.Listings.ExpiredAuctions(domain.Stamp(f.Now()), f.Batch)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, id := range ids {
		ok, err := f.finalize(id)
		if err != nil {
			applog.Error(nil, "finalizer.listing", err, map[string]any{"listing_id": id})
			continue
		}
		if ok {
			settled++
		}
	}
	return settled, nil
}

func (f *Finalizer) finalize(listingID string) (bool, error) {
	l, err := f.Listings.Get(listingID)
	if err != nil {
		return false, err
	}
	bids, err := f.Bids.PendingBids(listingID)
	if err != nil {
		return false, err
	}
	for _, b := range bids {
		sale, err := f.Settlement.Settle(SettleRequest{
			ListingID: listingID,
			SellerID:  l.OwnerID,
			BuyerID:   b.BidderID,
			Amount:    b.Amount,
			SaleType:  SaleBid,
			WinnerID:  b.ID,
		})
		if err == nil {
			applog.Audit(nil, "auction.finalized", map[string]any{
				"listing_id": listingID, "bid_id": b.ID, "buyer_id": sale.BuyerID, "final_price": sale.FinalPrice.String(),
			})
			return true, nil
		}
		switch domain.KindOf(err) {
		case domain.KindInternal:
			return false, err
		case domain.KindAlreadySold:
			return false, nil
		}
		applog.Security(nil, "auction.finalize.skip_bid", map[string]any{"listing_id": listingID, "bid_id": b.ID, "reason": err.Error()})
		if err := f.Bids.RejectBid(f.Settlement.DB, b.ID); err != nil {
			return false, err
		}
	}
	return false, nil
}

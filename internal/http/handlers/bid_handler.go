package handlers

import (
	"github.com/gofiber/fiber/v2"

	"onebid/internal/log"
	"onebid/internal/money"
	"onebid/internal/services"
	"onebid/internal/validate"
)

// BidHandler serves bids on auctions and offers on fixed-price listings.
type BidHandler struct {
	Bids   *services.BidService
	Offers *services.OfferService
}

type placeReq struct {
	ListingID string       `json:"listingId"`
	Amount    money.Amount `json:"amount"`
}

type acceptReq struct {
	ListingID string `json:"listingId"`
	BidID     string `json:"bidId"`
	OfferID   string `json:"offerId"`
}

func parsePlace(c *fiber.Ctx) (*placeReq, error) {
	var req placeReq
	if err := c.BodyParser(&req); err != nil {
		return nil, invalid(c, "body", "invalid request body")
	}
	if _, ok := validate.ID(req.ListingID); !ok {
		return nil, invalid(c, "listingId", "listingId is required")
	}
	if req.Amount <= 0 {
		return nil, invalid(c, "amount", "amount must be positive")
	}
	return &req, nil
}

// POST /bids
func (h *BidHandler) PlaceBid(c *fiber.Ctx) error {
	req, err := parsePlace(c)
	if req == nil {
		return err
	}
	b, err := h.Bids.Place(current(c), req.ListingID, req.Amount)
	if err != nil {
		return fail(c, "bid.place", err)
	}
	if err := created(c, b); err != nil {
		return err
	}
	log.Audit(c, "bid.place", map[string]any{"listing_id": b.ListingID, "bid_id": b.ID, "amount": b.Amount.String()})
	return nil
}

// POST /bids/accept
func (h *BidHandler) AcceptBid(c *fiber.Ctx) error {
	var req acceptReq
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	_, okL := validate.ID(req.ListingID)
	_, okB := validate.ID(req.BidID)
	if !okL || !okB {
		return invalid(c, "bidId", "listingId and bidId are required")
	}
	sale, err := h.Bids.Accept(current(c), req.ListingID, req.BidID)
	if err != nil {
		return fail(c, "bid.accept", err)
	}
	auditSale(c, "bid.accept", sale)
	return send(c, sale)
}

// GET /listings/:id/bids
func (h *BidHandler) ListBids(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", "invalid listing id")
	}
	bids, err := h.Bids.ForListing(current(c), id)
	if err != nil {
		return fail(c, "bid.list", err)
	}
	return send(c, nonNil(bids))
}

// POST /offers
func (h *BidHandler) PlaceOffer(c *fiber.Ctx) error {
	req, err := parsePlace(c)
	if req == nil {
		return err
	}
	o, err := h.Offers.Place(current(c), req.ListingID, req.Amount)
	if err != nil {
		return fail(c, "offer.place", err)
	}
	if err := created(c, o); err != nil {
		return err
	}
	log.Audit(c, "offer.place", map[string]any{"listing_id": o.ListingID, "offer_id": o.ID, "amount": o.Amount.String()})
	return nil
}

// POST /offers/accept
func (h *BidHandler) AcceptOffer(c *fiber.Ctx) error {
	var req acceptReq
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	_, okL := validate.ID(req.ListingID)
	_, okO := validate.ID(req.OfferID)
	if !okL || !okO {
		return invalid(c, "offerId", "listingId and offerId are required")
	}
	sale, err := h.Offers.Accept(current(c), req.ListingID, req.OfferID)
	if err != nil {
		return fail(c, "offer.accept", err)
	}
	auditSale(c, "offer.accept", sale)
	return send(c, sale)
}

// GET /listings/:id/offers
func (h *BidHandler) ListOffers(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", "invalid listing id")
	}
	offers, err := h.Offers.ForListing(current(c), id)
	if err != nil {
		return fail(c, "offer.list", err)
	}
	return send(c, nonNil(offers))
}

func auditSale(c *fiber.Ctx, action string, s *services.Sale) {
	log.Audit(c, action, map[string]any{
		"listing_id":   s.ListingID,
		"buyer_id":     s.BuyerID,
		"winner_id":    s.WinnerID,
		"amount":       s.Amount.String(),
		"final_price":  s.FinalPrice.String(),
		"vip_discount": s.Discounted,
	})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"onebid/internal/services"
	"onebid/internal/validate"
)

type ViewHandler struct {
	Catalog *services.CatalogService
}

type viewReq struct {
	ListingID string `json:"listingId"`
}

// POST /views counts a view; visitors are recorded without a viewer.
func (h *ViewHandler) Record(c *fiber.Ctx) error {
	var req viewReq
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	id, ok := validate.ID(req.ListingID)
	if !ok {
		return invalid(c, "listingId", "listingId is required")
	}
	if err := h.Catalog.RecordView(id, current(c)); err != nil {
		return fail(c, "view.record", err)
	}
	return send(c, fiber.Map{"listing_id": id})
}

// GET /views/most
func (h *ViewHandler) Most(c *fiber.Ctx) error {
	mv, err := h.Catalog.MostViewed(validate.Limit(c.QueryInt("limit"), 10, 50))
	if err != nil {
		return fail(c, "view.most", err)
	}
	mv.Auctions, mv.Fixed = nonNil(mv.Auctions), nonNil(mv.Fixed)
	return send(c, mv)
}

// GET /views/frequent
func (h *ViewHandler) Frequent(c *fiber.Ctx) error {
	rows, err := h.Catalog.FrequentlyViewed(current(c), validate.Limit(c.QueryInt("limit"), 10, 50))
	if err != nil {
		return fail(c, "view.frequent", err)
	}
	return send(c, nonNil(rows))
}

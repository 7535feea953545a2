package handlers

import (
	"github.com/gofiber/fiber/v2"

	"onebid/internal/log"
	"onebid/internal/services"
	"onebid/internal/validate"
)

type ModerationHandler struct {
	Moderation *services.ModerationService
}

type ratingReq struct {
	ListingID string `json:"listingId"`
	Score     int    `json:"score"`
}

type complaintReq struct {
	ListingID string `json:"listingId"`
	AccusedID string `json:"accusedId"`
	Content   string `json:"content"`
}

// POST /ratings
func (h *ModerationHandler) Rate(c *fiber.Ctx) error {
	var req ratingReq
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	if _, ok := validate.ID(req.ListingID); !ok {
		return invalid(c, "listingId", "listingId is required")
	}
	if !validate.Score(req.Score) {
		return invalid(c, "score", "rating must be between 1 and 5")
	}
	r, err := h.Moderation.SubmitRating(current(c), req.ListingID, req.Score)
	if err != nil {
		return fail(c, "rating.submit", err)
	}
	if err := created(c, r); err != nil {
		return err
	}
	log.Audit(c, "rating.submit", map[string]any{"listing_id": r.ListingID, "rated_id": r.RatedID, "score": r.Score})
	return nil
}

// POST /complaints
func (h *ModerationHandler) Complain(c *fiber.Ctx) error {
	var req complaintReq
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	_, okL := validate.ID(req.ListingID)
	_, okA := validate.ID(req.AccusedID)
	if !okL || !okA {
		return invalid(c, "accusedId", "listingId and accusedId are required")
	}
	if len(req.Content) > 2000 {
		return invalid(c, "content", "complaint is too long")
	}
	cp, err := h.Moderation.SubmitComplaint(current(c), req.ListingID, req.AccusedID, req.Content)
	if err != nil {
		return fail(c, "complaint.submit", err)
	}
	if err := created(c, cp); err != nil {
		return err
	}
	log.Audit(c, "complaint.submit", map[string]any{"complaint_id": cp.ID, "listing_id": cp.ListingID, "accused_id": cp.AccusedID})
	return nil
}

// POST /suspension/reactivate pays the fee and lifts the caller's suspension.
func (h *ModerationHandler) Reactivate(c *fiber.Ctx) error {
	bal, err := h.Moderation.Reactivate(current(c))
	if err != nil {
		return fail(c, "suspension.reactivate", err)
	}
	log.Audit(c, "suspension.reactivate", map[string]any{"fee": h.Moderation.ReactivationFee.String(), "balance": bal.String()})
	return send(c, fiber.Map{"balance": bal, "fee": h.Moderation.ReactivationFee})
}

// POST /vip/check
func (h *ModerationHandler) CheckVIP(c *fiber.Ctx) error {
	vip, err := h.Moderation.CheckVIP(current(c).ID)
	if err != nil {
		return fail(c, "vip.check", err)
	}
	return send(c, fiber.Map{"is_vip": vip})
}

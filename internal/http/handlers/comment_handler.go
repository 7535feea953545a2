package handlers

import (
	"github.com/gofiber/fiber/v2"

	"onebid/internal/services"
	"onebid/internal/validate"
)

type CommentHandler struct {
	Comments *services.CommentService
}

type commentReq struct {
	ListingID string `json:"listingId"`
	Content   string `json:"content"`
	VisitorID string `json:"visitorId"`
}

// GET /listings/:id/comments
func (h *CommentHandler) List(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", "invalid listing id")
	}
	out, err := h.Comments.List(id)
	if err != nil {
		return fail(c, "comment.list", err)
	}
	return send(c, out)
}

// POST /comments accepts signed-in users and anonymous visitors. A visitor
// without an id is issued one in the response.
func (h *CommentHandler) Add(c *fiber.Ctx) error {
	var req commentReq
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	id, ok := validate.ID(req.ListingID)
	if !ok {
		return invalid(c, "listingId", "listingId is required")
	}
	if req.VisitorID != "" {
		if _, ok := validate.ID(req.VisitorID); !ok {
			return invalid(c, "visitorId", "invalid visitor id")
		}
	}
	cm, err := h.Comments.Add(current(c), req.VisitorID, id, req.Content)
	if err != nil {
		return fail(c, "comment.add", err)
	}
	return created(c, cm)
}

// PATCH /comments/:id
func (h *CommentHandler) Edit(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", "invalid comment id")
	}
	var req commentReq
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	cm, err := h.Comments.Edit(current(c), req.VisitorID, id, req.Content)
	if err != nil {
		return fail(c, "comment.edit", err)
	}
	return send(c, cm)
}

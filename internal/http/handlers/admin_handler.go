package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "onebid/internal/log"
	"onebid/internal/services"
	"onebid/internal/validate"
)

// AdminHandler serves the super-user moderation console and the super-user
// application flow.
type AdminHandler struct {
	Moderation   *services.ModerationService
	Applications *services.ApplicationService
}

type statusReq struct {
	Status string `json:"status"`
}

type resolveReq struct {
	Action string `json:"action"` // SUSPEND | BAN | NONE
}

type reviewReq struct {
	Approve bool `json:"approve"`
}

type applyReq struct {
	Reason string `json:"reason"`
}

// GET /admin/complaints
func (h *AdminHandler) Complaints(c *fiber.Ctx) error {
	list, err := h.Moderation.Complaints(current(c), c.Query("status"))
	if err != nil {
		return fail(c, "admin.complaints", err)
	}
	return send(c, nonNil(list))
}

// POST /admin/complaints/:id/status
func (h *AdminHandler) ComplaintStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", "invalid complaint id")
	}
	var req statusReq
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	if err := h.Moderation.SetComplaintStatus(current(c), id, req.Status); err != nil {
		return fail(c, "admin.complaints.status", err)
	}
	applog.Audit(c, "admin.complaints.status", map[string]any{"complaint_id": id, "status": req.Status})
	return send(c, fiber.Map{"id": id, "status": req.Status})
}

// POST /admin/complaints/:id/resolve
func (h *AdminHandler) Resolve(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", "invalid complaint id")
	}
	var req resolveReq
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	if err := h.Moderation.ResolveComplaint(current(c), id, req.Action); err != nil {
		return fail(c, "admin.complaints.resolve", err)
	}
	applog.Audit(c, "admin.complaints.resolve", map[string]any{"complaint_id": id, "action": req.Action})
	return send(c, fiber.Map{"id": id, "status": "RESOLVED"})
}

// GET /admin/suspended
func (h *AdminHandler) Suspended(c *fiber.Ctx) error {
	list, err := h.Moderation.Suspended(current(c))
	if err != nil {
		return fail(c, "admin.suspended", err)
	}
	return send(c, nonNil(list))
}

// POST /admin/users/:id/reactivate
func (h *AdminHandler) Reactivate(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", "invalid user id")
	}
	if err := h.Moderation.AdminReactivate(current(c), id); err != nil {
		return fail(c, "admin.users.reactivate", err)
	}
	applog.Audit(c, "admin.users.reactivate", map[string]any{"target_id": id})
	return send(c, fiber.Map{"id": id, "account_status": "ACTIVE"})
}

// GET /admin/superapplications
func (h *AdminHandler) ListApplications(c *fiber.Ctx) error {
	list, err := h.Applications.List(current(c), c.Query("status"))
	if err != nil {
		return fail(c, "admin.applications", err)
	}
	return send(c, nonNil(list))
}

// POST /admin/superapplications/:id
func (h *AdminHandler) Review(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return invalid(c, "id", "invalid application id")
	}
	var req reviewReq
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	a, err := h.Applications.Review(current(c), id, req.Approve)
	if err != nil {
		return fail(c, "admin.applications.review", err)
	}
	applog.Audit(c, "admin.applications.review", map[string]any{"application_id": id, "status": a.Status, "target_id": a.UserID})
	return send(c, a)
}

// POST /superapplications
func (h *AdminHandler) Apply(c *fiber.Ctx) error {
	var req applyReq
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	a, err := h.Applications.Apply(current(c), req.Reason)
	if err != nil {
		return fail(c, "superapplication.submit", err)
	}
	if err := created(c, a); err != nil {
		return err
	}
	applog.Audit(c, "superapplication.submit", map[string]any{"application_id": a.ID})
	return nil
}

// GET /superapplications lists the caller's own applications.
func (h *AdminHandler) MyApplications(c *fiber.Ctx) error {
	list, err := h.Applications.Mine(current(c))
	if err != nil {
		return fail(c, "superapplication.mine", err)
	}
	return send(c, nonNil(list))
}

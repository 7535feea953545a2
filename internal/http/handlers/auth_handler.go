package handlers

import (
	"github.com/gofiber/fiber/v2"

	"onebid/internal/domain"
	"onebid/internal/log"
	"onebid/internal/money"
	"onebid/internal/services"
	"onebid/internal/validate"
)

type AuthHandler struct {
	Auth   *services.AuthService
	Ledger *services.LedgerService
}

type signupReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type session struct {
	Token   string          `json:"token"`
	Profile *domain.Profile `json:"profile"`
}

// POST /auth/signup
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req signupReq
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	email, ok := validate.Email(req.Email)
	if !ok {
		return invalid(c, "email", "enter a valid email address")
	}
	if !validate.Password(req.Password) {
		return invalid(c, "password", "password needs 8+ characters with upper, lower, digit and symbol")
	}
	first, okF := validate.Name(req.FirstName)
	last, okL := validate.Name(req.LastName)
	if !okF || !okL {
		return invalid(c, "name", "first and last name are required")
	}
	p, tok, err := h.Auth.Signup(services.Signup{Email: email, Password: req.Password, FirstName: first, LastName: last})
	if err != nil {
		return fail(c, "auth.signup", err)
	}
	c.Locals("user", p)
	if err := created(c, session{Token: tok, Profile: p}); err != nil {
		return err
	}
	log.Audit(c, "auth.signup", map[string]any{"email": email})
	return nil
}

// POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	email, ok := validate.Email(req.Email)
	if !ok || req.Password == "" || len(req.Password) > 72 {
		log.Security(c, "auth.login.fail", map[string]any{"email": req.Email, "reason": "bad_format"})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": services.ErrBadCreds.Error(), "code": domain.KindUnauthorized.String()})
	}
	p, tok, err := h.Auth.Login(email, req.Password)
	if err != nil {
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": domain.KindOf(err).String()})
		return fail(c, "auth.login", err)
	}
	c.Locals("user", p)
	log.Audit(c, "auth.login.success", map[string]any{"email": email})
	return send(c, session{Token: tok, Profile: p})
}

type me struct {
	*domain.Profile
	Balance money.Amount `json:"balance"`
}

// GET /me returns the profile with its balance derived from the ledger.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	u := current(c)
	bal, err := h.Ledger.Balance(u.ID)
	if err != nil {
		return fail(c, "me", err)
	}
	return send(c, me{Profile: u, Balance: bal})
}

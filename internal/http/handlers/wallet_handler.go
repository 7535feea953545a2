package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"onebid/internal/log"
	"onebid/internal/money"
	"onebid/internal/services"
)

type WalletHandler struct {
	Ledger *services.LedgerService
}

type walletReq struct {
	Type   string       `json:"type"` // deposit | withdraw
	Amount money.Amount `json:"amount"`
}

// GET /wallet/transaction
func (h *WalletHandler) History(c *fiber.Ctx) error {
	u := current(c)
	hist, err := h.Ledger.History(u.ID)
	if err != nil {
		return fail(c, "wallet.history", err)
	}
	bal, err := h.Ledger.Balance(u.ID)
	if err != nil {
		return fail(c, "wallet.history", err)
	}
	return send(c, fiber.Map{"balance": bal, "transactions": hist})
}

// POST /wallet/transaction
func (h *WalletHandler) Transact(c *fiber.Ctx) error {
	var req walletReq
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, "body", "invalid request body")
	}
	if req.Amount <= 0 {
		return invalid(c, "amount", "amount must be positive")
	}
	u := current(c)
	var bal money.Amount
	var err error
	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case "deposit":
		bal, err = h.Ledger.Deposit(u.ID, req.Amount)
	case "withdraw", "withdrawal":
		bal, err = h.Ledger.Withdraw(u.ID, req.Amount)
	default:
		return invalid(c, "type", "type must be deposit or withdraw")
	}
	if err != nil {
		return fail(c, "wallet."+strings.ToLower(req.Type), err)
	}
	log.Audit(c, "wallet."+strings.ToLower(req.Type), map[string]any{"amount": req.Amount.String(), "balance": bal.String()})
	return send(c, fiber.Map{"balance": bal})
}

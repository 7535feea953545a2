package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"onebid/internal/domain"
	applog "onebid/internal/log"
)

const genericError = "Something went wrong. Please try again."

// Status maps an error kind to its HTTP status.
func Status(k domain.Kind) int {
	switch k {
	case domain.KindUnauthorized:
		return fiber.StatusUnauthorized
	case domain.KindForbidden:
		return fiber.StatusForbidden
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindValidation, domain.KindBidTooLow, domain.KindOfferTooLow,
		domain.KindAuctionEnded, domain.KindAlreadySold, domain.KindInsufficientFunds:
		return fiber.StatusBadRequest
	case domain.KindConflict:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

func send(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"data": data})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": data})
}

// fail writes err as a JSON error. Rule violations keep their message;
// anything else is logged and hidden behind a generic one.
func fail(c *fiber.Ctx, action string, err error) error {
	k := domain.KindOf(err)
	status := Status(k)
	if status == fiber.StatusInternalServerError {
		c.Status(status)
		applog.Error(c, action+".fail", err, nil)
		return c.JSON(fiber.Map{"error": genericError, "code": k.String()})
	}
	c.Status(status)
	if status == fiber.StatusForbidden || status == fiber.StatusUnauthorized {
		applog.Security(c, action+".denied", map[string]any{"reason": err.Error()})
	}
	return c.JSON(fiber.Map{"error": err.Error(), "code": k.String()})
}

func invalid(c *fiber.Ctx, field, msg string) error {
	applog.Security(c, "validation.fail", map[string]any{"field": field})
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg, "code": domain.KindValidation.String()})
}

// ErrorHandler is the app-level fallback for errors handlers return
// instead of writing. Client errors raised by fiber keep their message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	c.Status(fiber.StatusInternalServerError)
	applog.Error(c, "server.error", err, nil)
	return c.JSON(fiber.Map{"error": genericError})
}

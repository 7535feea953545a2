package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"onebid/internal/metrics"
)

// RequestMetrics counts requests by method and final status.
func RequestMetrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		m.Request(c.Method(), strconv.Itoa(status))
		return err
	}
}

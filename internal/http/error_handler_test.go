package handlers_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"onebid/internal/http/handlers"
)

// friendly error surface, no internal leakage
func TestErrorHandlerFriendlyMessage(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Use(requestid.New())
	app.Get("/err", func(c *fiber.Ctx) error {
		return errors.New("db timeout: secret trace")
	})
	app.Get("/bad", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "malformed input")
	})

	var body string
	logs := captureLogs(t, func() {
		resp, err := app.Test(httptest.NewRequest("GET", "/err", nil))
		if err != nil {
			t.Fatalf("test request failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", resp.StatusCode)
		}
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
	})
	if !strings.Contains(body, "Something went wrong") {
		t.Fatalf("friendly message missing; body=%s", body)
	}
	if strings.Contains(body, "db timeout") || strings.Contains(body, "secret") {
		t.Fatalf("internal details leaked to user; body=%s", body)
	}
	if findLog(logs, "server.error") == nil {
		t.Fatal("server.error not logged")
	}

	resp, _ := app.Test(httptest.NewRequest("GET", "/bad", nil))
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusBadRequest || !strings.Contains(string(b), "malformed input") {
		t.Fatalf("client error: got %d %s", resp.StatusCode, b)
	}
}

func TestStatusMapping(t *testing.T) {
	app := newApp(t, handlers.Limits{})
	resp, env := app.call(t, "GET", "/listings/does-not-exist", "", nil)
	if resp.StatusCode != fiber.StatusNotFound || env.Code != "not_found" {
		t.Fatalf("missing listing: got %d %q", resp.StatusCode, env.Code)
	}
}

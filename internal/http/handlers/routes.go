package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applog "onebid/internal/log"
)

// Limits are the per-route throttles; zero values fall back to defaults.
type Limits struct {
	Login int // attempts per 10 minutes per IP
	Write int // bids and offers per minute per IP
}

func throttle(n int, window time.Duration, action string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        n,
		Expiration: window,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, action, nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many requests, retry soon"})
		},
	})
}

// Register mounts the API on app.
func Register(app *fiber.App, d *Deps, lim Limits) {
	if lim.Login <= 0 {
		lim.Login = 5
	}
	if lim.Write <= 0 {
		lim.Write = 30
	}
	requireUser := RequireUser(d.Auth)
	optionalUser := OptionalUser(d.Auth)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{})))
	}
	app.Get("/media/*", d.MediaHandler.Serve)

	// auth
	app.Post("/auth/signup", d.AuthHandler.Signup)
	app.Post("/auth/login", throttle(lim.Login, 10*time.Minute, "rate.login.hit"), d.AuthHandler.Login)
	app.Get("/me", requireUser, d.AuthHandler.Me)

	// listings; static paths before :id
	app.Get("/listings/search", d.ListingHandler.Search)
	app.Get("/listings/top", d.ListingHandler.Top)
	app.Get("/listings/mine", requireUser, d.ListingHandler.Mine)
	app.Post("/listings", requireUser, d.ListingHandler.Create)
	app.Get("/listings/:id", d.ListingHandler.Get)
	app.Get("/listings/:id/comments", d.CommentHandler.List)
	app.Get("/listings/:id/bids", requireUser, d.BidHandler.ListBids)
	app.Get("/listings/:id/offers", requireUser, d.BidHandler.ListOffers)

	// trading
	write := throttle(lim.Write, time.Minute, "rate.trade.hit")
	app.Post("/bids", requireUser, write, d.BidHandler.PlaceBid)
	app.Post("/bids/accept", requireUser, d.BidHandler.AcceptBid)
	app.Post("/offers", requireUser, write, d.BidHandler.PlaceOffer)
	app.Post("/offers/accept", requireUser, d.BidHandler.AcceptOffer)

	// wallet
	app.Get("/wallet/transaction", requireUser, d.WalletHandler.History)
	app.Post("/wallet/transaction", requireUser, d.WalletHandler.Transact)

	// reputation
	app.Post("/ratings", requireUser, d.ModerationHandler.Rate)
	app.Post("/complaints", requireUser, d.ModerationHandler.Complain)
	app.Post("/suspension/reactivate", requireUser, d.ModerationHandler.Reactivate)
	app.Post("/vip/check", requireUser, d.ModerationHandler.CheckVIP)
	app.Get("/superapplications", requireUser, d.AdminHandler.MyApplications)
	app.Post("/superapplications", requireUser, d.AdminHandler.Apply)

	// views and comments
	app.Post("/views", optionalUser, d.ViewHandler.Record)
	app.Get("/views/most", d.ViewHandler.Most)
	app.Get("/views/frequent", requireUser, d.ViewHandler.Frequent)
	app.Post("/comments", optionalUser, d.CommentHandler.Add)
	app.Patch("/comments/:id", optionalUser, d.CommentHandler.Edit)

	// change feed
	if d.Hub != nil {
		app.Get("/ws/listings/:id", d.WSHandler.Upgrade, d.WSHandler.Stream())
		app.Get("/ws/tables/:table", d.WSHandler.Upgrade, d.WSHandler.Stream())
	}

	admin := app.Group("/admin", requireUser, RequireSuper())
	admin.Get("/complaints", d.AdminHandler.Complaints)
	admin.Post("/complaints/:id/status", d.AdminHandler.ComplaintStatus)
	admin.Post("/complaints/:id/resolve", d.AdminHandler.Resolve)
	admin.Get("/suspended", d.AdminHandler.Suspended)
	admin.Post("/users/:id/reactivate", d.AdminHandler.Reactivate)
	admin.Get("/superapplications", d.AdminHandler.ListApplications)
	admin.Post("/superapplications/:id", d.AdminHandler.Review)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})
}

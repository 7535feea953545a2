package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"onebid/internal/config"
	"onebid/internal/http/handlers"
	"onebid/internal/metrics"
	"onebid/internal/realtime"
	"onebid/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	if !filepath.IsAbs(cfg.MediaDir) {
		if abs, err := filepath.Abs(cfg.MediaDir); err == nil {
			cfg.MediaDir = abs
		}
	}
	log.Printf("[static] /media -> %s", cfg.MediaDir)

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := repos.SeedSuper(db, cfg.SeedSuperEmail, cfg.SeedSuperPassword); err != nil {
		log.Fatal(err)
	}

	m := metrics.New()
	hub := realtime.NewHub()
	deps := handlers.NewDeps(db, cfg, m, hub, nil)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    cfg.MaxUploadBytes + 1<<20,
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(handlers.RequestMetrics(m))
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := string(c.Request().URI().Path())
			return strings.HasPrefix(p, "/media/") || strings.HasPrefix(p, "/ws/") || p == "/metrics"
		},
	}))

	handlers.Register(app, deps, handlers.Limits{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go deps.Finalizer.Run(ctx)
	go func() {
		<-ctx.Done()
		log.Printf("[shutdown] draining connections")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}

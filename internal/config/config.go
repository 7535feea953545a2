package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"onebid/internal/money"
)

type Config struct {
	Port         string
	DBDSN        string
	MediaDir     string
	MediaBaseURL string
	LogFile      string

	JWTSecret string
	TokenTTL  time.Duration

	ReactivationFee    money.Amount
	VIPMinBalance      money.Amount
	VIPMinTransactions int
	VIPDiscountPercent int64

	SuspendLowRating    float64
	SuspendHighRating   float64
	SuspendMinRatings   int
	BanAfterSuspensions int

	FinalizeInterval time.Duration
	MaxUploadBytes   int

	SeedSuperEmail    string
	SeedSuperPassword string
}

// Defaults returns the configuration used when no environment is set.
func Defaults() Config {
	return Config{
		Port:                "8080",
		DBDSN:               "onebid.db", // sqlite file in project root
		MediaDir:            "./media",
		MediaBaseURL:        "/media",
		JWTSecret:           "dev-secret-change-me",
		TokenTTL:            24 * time.Hour,
		ReactivationFee:     money.Must("50"),
		VIPMinBalance:       money.Must("5000"),
		VIPMinTransactions:  5,
		VIPDiscountPercent:  10,
		SuspendLowRating:    2,
		SuspendHighRating:   4,
		SuspendMinRatings:   3,
		BanAfterSuspensions: 3,
		FinalizeInterval:    time.Minute,
		MaxUploadBytes:      8 << 20,
	}
}

func Load() Config {
	// .env is optional
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env")
	}

	cfg := Defaults()
	str(&cfg.Port, "PORT")
	str(&cfg.DBDSN, "DB_DSN")
	str(&cfg.MediaDir, "MEDIA_DIR")
	str(&cfg.MediaBaseURL, "MEDIA_BASE_URL")
	str(&cfg.LogFile, "LOG_FILE")
	str(&cfg.JWTSecret, "JWT_SECRET")
	dur(&cfg.TokenTTL, "TOKEN_TTL")
	amount(&cfg.ReactivationFee, "REACTIVATION_FEE")
	amount(&cfg.VIPMinBalance, "VIP_MIN_BALANCE")
	num(&cfg.VIPMinTransactions, "VIP_MIN_TRANSACTIONS")
	if v := os.Getenv("VIP_DISCOUNT_PERCENT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 && n <= 100 {
			cfg.VIPDiscountPercent = n
		}
	}
	float(&cfg.SuspendLowRating, "SUSPEND_LOW_RATING")
	float(&cfg.SuspendHighRating, "SUSPEND_HIGH_RATING")
	num(&cfg.SuspendMinRatings, "SUSPEND_MIN_RATINGS")
	num(&cfg.BanAfterSuspensions, "BAN_AFTER_SUSPENSIONS")
	dur(&cfg.FinalizeInterval, "FINALIZE_INTERVAL")
	num(&cfg.MaxUploadBytes, "MAX_UPLOAD_BYTES")
	str(&cfg.SeedSuperEmail, "SEED_SUPER_EMAIL")
	str(&cfg.SeedSuperPassword, "SEED_SUPER_PASSWORD")

	if cfg.JWTSecret == Defaults().JWTSecret {
		log.Printf("[config] JWT_SECRET not set, using development secret")
	}
	log.Printf("[config] PORT=%s DB_DSN=%s MEDIA_DIR=%s LOG_FILE=%s FINALIZE_INTERVAL=%s",
		cfg.Port, cfg.DBDSN, cfg.MediaDir, cfg.LogFile, cfg.FinalizeInterval)
	return cfg
}

func str(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func num(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		} else {
			log.Printf("[config] ignoring %s=%q: %v", key, v, err)
		}
	}
}

func float(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		} else {
			log.Printf("[config] ignoring %s=%q: %v", key, v, err)
		}
	}
}

// dur accepts Go durations; "0" disables the feature it controls.
func dur(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		} else {
			log.Printf("[config] ignoring %s=%q: %v", key, v, err)
		}
	}
}

func amount(dst *money.Amount, key string) {
	if v := os.Getenv(key); v != "" {
		if a, err := money.Parse(v); err == nil {
			*dst = a
		} else {
			log.Printf("[config] ignoring %s=%q: %v", key, v, err)
		}
	}
}

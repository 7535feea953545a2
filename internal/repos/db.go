package repos

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"onebid/internal/domain"
)

// OpenDB connects to sqlite by default or to Postgres through pgx when the
// DSN is a postgres URL, then applies the schema.
func OpenDB(dsn string) (*sqlx.DB, error) {
	driver := "sqlite"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "pgx"
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// one connection: :memory: stays a single database and writers serialize
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			return nil, err
		}
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Statements are run one at a time; pgx rejects multi-statement Exec with args.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'ordinary' CHECK (role IN ('ordinary','super')),
  wallet_balance BIGINT NOT NULL DEFAULT 0 CHECK (wallet_balance >= 0),
  is_vip INTEGER NOT NULL DEFAULT 0,
  is_suspended INTEGER NOT NULL DEFAULT 0,
  suspension_count INTEGER NOT NULL DEFAULT 0,
  account_status TEXT NOT NULL DEFAULT 'ACTIVE' CHECK (account_status IN ('ACTIVE','SUSPENDED','BANNED')),
  created_at TEXT NOT NULL
)`,

	`CREATE TABLE IF NOT EXISTS listings(
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL REFERENCES profiles(id),
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  listing_type TEXT NOT NULL CHECK (listing_type IN ('AUCTION','FIXED_PRICE')),
  is_service INTEGER NOT NULL DEFAULT 0,
  for_rent INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE','SOLD')),
  views BIGINT NOT NULL DEFAULT 0,
  buyer_id TEXT REFERENCES profiles(id),
  sold_price BIGINT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_owner ON listings(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at)`,

	`CREATE TABLE IF NOT EXISTS auction_details(
  listing_id TEXT PRIMARY KEY REFERENCES listings(id) ON DELETE CASCADE,
  starting_price BIGINT NOT NULL CHECK (starting_price > 0),
  current_bid BIGINT,
  current_bid_id TEXT,
  min_increment BIGINT NOT NULL DEFAULT 100 CHECK (min_increment > 0),
  end_time TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_auction_end ON auction_details(end_time)`,

	`CREATE TABLE IF NOT EXISTS fixed_price_details(
  listing_id TEXT PRIMARY KEY REFERENCES listings(id) ON DELETE CASCADE,
  asking_price BIGINT NOT NULL CHECK (asking_price > 0),
  min_offer BIGINT
)`,

	`CREATE TABLE IF NOT EXISTS listing_images(
  listing_id TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  storage_key TEXT NOT NULL,
  url TEXT NOT NULL,
  PRIMARY KEY (listing_id, position)
)`,

	`CREATE TABLE IF NOT EXISTS bids(
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
  bidder_id TEXT NOT NULL REFERENCES profiles(id),
  amount BIGINT NOT NULL CHECK (amount > 0),
  status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING','ACCEPTED','REJECTED')),
  created_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_bids_listing ON bids(listing_id)`,

	`CREATE TABLE IF NOT EXISTS offers(
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
  buyer_id TEXT NOT NULL REFERENCES profiles(id),
  amount BIGINT NOT NULL CHECK (amount > 0),
  status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING','ACCEPTED','REJECTED')),
  created_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_offers_listing ON offers(listing_id)`,

	`CREATE TABLE IF NOT EXISTS transactions(
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL CHECK (type IN ('DEPOSIT','WITHDRAWAL','PURCHASE','SALE')),
  amount BIGINT NOT NULL CHECK (amount > 0),
  buyer_id TEXT REFERENCES profiles(id),
  seller_id TEXT REFERENCES profiles(id),
  listing_id TEXT REFERENCES listings(id),
  created_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_tx_buyer ON transactions(buyer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tx_seller ON transactions(seller_id)`,

	`CREATE TABLE IF NOT EXISTS ratings(
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL REFERENCES listings(id),
  rater_id TEXT NOT NULL REFERENCES profiles(id),
  rated_id TEXT NOT NULL REFERENCES profiles(id),
  score INTEGER NOT NULL CHECK (score BETWEEN 1 AND 5),
  created_at TEXT NOT NULL,
  UNIQUE (listing_id, rater_id)
)`,

	`CREATE TABLE IF NOT EXISTS complaints(
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL REFERENCES listings(id),
  complainant_id TEXT NOT NULL REFERENCES profiles(id),
  accused_id TEXT NOT NULL REFERENCES profiles(id),
  content TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING','INVESTIGATING','RESOLVED','REJECTED')),
  resolution TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_complaints_accused ON complaints(accused_id)`,

	`CREATE TABLE IF NOT EXISTS comments(
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
  user_id TEXT REFERENCES profiles(id),
  visitor_id TEXT,
  content TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  CHECK ((user_id IS NULL) <> (visitor_id IS NULL))
)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_listing ON comments(listing_id)`,

	`CREATE TABLE IF NOT EXISTS listing_views(
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
  viewer_id TEXT REFERENCES profiles(id),
  created_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_views_viewer ON listing_views(viewer_id)`,

	`CREATE TABLE IF NOT EXISTS super_applications(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES profiles(id),
  reason TEXT NOT NULL,
  rating DOUBLE PRECISION NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING','APPROVED','DENIED')),
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
)`,
}

func ensureSchema(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

// SeedSuper ensures a super user exists with the given credentials
// (idempotent; safe to run every start).
func SeedSuper(db *sqlx.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	res, err := exec(db, `
		INSERT INTO profiles(id,email,first_name,last_name,password_hash,role,created_at)
		VALUES(?,?,?,?,?,'super',?)
		ON CONFLICT(email) DO NOTHING`,
		uuid.NewString(), strings.ToLower(email), "Super", "User", string(h), now())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("[seed] created super user %s", email)
	}
	return nil
}

// InTx runs fn in a transaction, committing only when fn returns nil.
func InTx(db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Helpers shared by the repos. Queries are written with ? placeholders and
// rebound for the active driver; e may be the DB or a transaction.

func get(e sqlx.Ext, dest any, query string, args ...any) error {
	return sqlx.Get(e, dest, e.Rebind(query), args...)
}

func selectAll(e sqlx.Ext, dest any, query string, args ...any) error {
	return sqlx.Select(e, dest, e.Rebind(query), args...)
}

func exec(e sqlx.Ext, query string, args ...any) (sql.Result, error) {
	return e.Exec(e.Rebind(query), args...)
}

// execOne runs a conditional write and reports whether it matched a row.
func execOne(e sqlx.Ext, query string, args ...any) (bool, error) {
	res, err := exec(e, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func now() string { return domain.Stamp(time.Now()) }

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

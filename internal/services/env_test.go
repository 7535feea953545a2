package services_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"onebid/internal/domain"
	"onebid/internal/money"
	"onebid/internal/repos"
	"onebid/internal/services"
)

// smallest valid PNG header is enough for sniffing
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// memBlobs keeps uploads in memory. failAt makes the nth Put (1-based) fail.
type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	failAt  int
}

func newMemBlobs() *memBlobs { return &memBlobs{objects: map[string][]byte{}} }

func (m *memBlobs) Put(key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.failAt > 0 && m.puts == m.failAt {
		return "", errors.New("blob store unavailable")
	}
	m.objects[key] = data
	return "/media/" + key, nil
}

func (m *memBlobs) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memBlobs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type env struct {
	db       *sqlx.DB
	profiles *repos.ProfileRepo
	listings *repos.ListingRepo
	bidRepo  *repos.BidRepo
	ledgerDB *repos.LedgerRepo
	modRepo  *repos.ModerationRepo
	blobs    *memBlobs

	ledger     *services.LedgerService
	settlement *services.SettlementService
	moderation *services.ModerationService
	bids       *services.BidService
	offers     *services.OfferService
	listingSvc *services.ListingService
	catalog    *services.CatalogService
	comments   *services.CommentService
	apps       *services.ApplicationService
	auth       *services.AuthService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	e := &env{
		db:       db,
		profiles: repos.NewProfileRepo(db),
		listings: repos.NewListingRepo(db),
		bidRepo:  repos.NewBidRepo(db),
		ledgerDB: repos.NewLedgerRepo(db),
		modRepo:  repos.NewModerationRepo(db),
		blobs:    newMemBlobs(),
	}
	e.ledger = services.NewLedgerService(db, e.ledgerDB, e.profiles)
	e.settlement = services.NewSettlementService(db, e.listings, e.bidRepo, e.profiles, e.ledger)
	e.moderation = services.NewModerationService(db, e.profiles, e.listings, e.modRepo, e.ledger)
	e.settlement.VIP = e.moderation
	e.bids = services.NewBidService(db, e.listings, e.bidRepo, e.ledger, e.settlement)
	e.offers = services.NewOfferService(db, e.listings, e.bidRepo, e.ledger, e.settlement)
	e.listingSvc = services.NewListingService(db, e.listings, e.blobs)
	e.catalog = services.NewCatalogService(db, e.listings, repos.NewViewRepo(db))
	e.comments = services.NewCommentService(repos.NewCommentRepo(db), e.catalog)
	e.apps = services.NewApplicationService(db, repos.NewApplicationRepo(db), e.profiles)
	e.auth = services.NewAuthService(e.profiles, "test-secret", time.Hour)
	e.auth.Cost = bcrypt.MinCost
	return e
}

// user creates an active profile funded with balance.
func (e *env) user(t *testing.T, email, balance string) *domain.Profile {
	t.Helper()
	p := &domain.Profile{ID: email, Email: email, FirstName: "Test", LastName: "User", Hash: "x"}
	if err := e.profiles.Create(p); err != nil {
		t.Fatal(err)
	}
	if amt := money.Must(balance); amt > 0 {
		if _, err := e.ledger.Deposit(p.ID, amt); err != nil {
			t.Fatal(err)
		}
	}
	return e.reload(t, p.ID)
}

func (e *env) reload(t *testing.T, id string) *domain.Profile {
	t.Helper()
	p, err := e.profiles.ByID(id)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func (e *env) auction(t *testing.T, owner *domain.Profile, start, inc string, end time.Time) string {
	t.Helper()
	sp, mi := money.Must(start), money.Must(inc)
	d, err := e.listingSvc.Create(owner, services.ListingInput{
		Title:         "Vintage camera",
		Category:      "electronics",
		Type:          domain.ListingAuction,
		StartingPrice: &sp,
		MinIncrement:  &mi,
		EndTime:       &end,
	}, []services.Upload{{Name: "cover.png", Data: pngHeader}})
	if err != nil {
		t.Fatal(err)
	}
	return d.ID
}

func (e *env) fixed(t *testing.T, owner *domain.Profile, asking, minOffer string) string {
	t.Helper()
	ap := money.Must(asking)
	in := services.ListingInput{Title: "Road bike", Category: "sports", Type: domain.ListingFixed, AskingPrice: &ap}
	if minOffer != "" {
		mo := money.Must(minOffer)
		in.MinOffer = &mo
	}
	d, err := e.listingSvc.Create(owner, in, []services.Upload{{Name: "bike.png", Data: pngHeader}})
	if err != nil {
		t.Fatal(err)
	}
	return d.ID
}

// balanceAgrees checks the cached balance against the ledger fold.
func (e *env) balanceAgrees(t *testing.T, id, want string) {
	t.Helper()
	folded, err := e.ledger.Balance(id)
	if err != nil {
		t.Fatal(err)
	}
	cached := e.reload(t, id).WalletBalance
	if folded != cached {
		t.Fatalf("%s: fold %s != cached %s", id, folded, cached)
	}
	if want != "" && folded != money.Must(want) {
		t.Fatalf("%s: balance %s, want %s", id, folded, want)
	}
}

func wantKind(t *testing.T, err error, k domain.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", k)
	}
	if got := domain.KindOf(err); got != k {
		t.Fatalf("expected %s, got %s (%v)", k, got, err)
	}
}

func countRows(t *testing.T, db *sqlx.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.Get(&n, db.Rebind(query), args...); err != nil {
		t.Fatal(err)
	}
	return n
}

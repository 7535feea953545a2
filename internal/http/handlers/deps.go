package handlers

import (
	"github.com/jmoiron/sqlx"

	"onebid/internal/config"
	"onebid/internal/domain"
	"onebid/internal/metrics"
	"onebid/internal/realtime"
	"onebid/internal/repos"
	"onebid/internal/services"
	"onebid/internal/storage"
)

// Deps holds the wired services and the handlers built on them.
type Deps struct {
	Config  config.Config
	Metrics *metrics.Metrics
	Hub     *realtime.Hub

	Auth       *services.AuthService
	Ledger     *services.LedgerService
	Settlement *services.SettlementService
	Moderation *services.ModerationService
	Finalizer  *services.Finalizer

	AuthHandler       *AuthHandler
	ListingHandler    *ListingHandler
	BidHandler        *BidHandler
	WalletHandler     *WalletHandler
	ModerationHandler *ModerationHandler
	ViewHandler       *ViewHandler
	CommentHandler    *CommentHandler
	AdminHandler      *AdminHandler
	WSHandler         *WSHandler
	MediaHandler      *MediaHandler
}

// NewDeps wires repositories, services and handlers. blobs may be nil to use
// the filesystem store under cfg.MediaDir.
func NewDeps(db *sqlx.DB, cfg config.Config, m *metrics.Metrics, hub *realtime.Hub, blobs services.Blobs) *Deps {
	if blobs == nil {
		blobs = storage.NewMediaStore(cfg.MediaDir, cfg.MediaBaseURL)
	}
	if hub != nil && m != nil {
		hub.OnChange = m.Subscribed
	}
	var notify services.Notifier
	if hub != nil {
		notify = hub
	}

	profileRepo := repos.NewProfileRepo(db)
	listingRepo := repos.NewListingRepo(db)
	bidRepo := repos.NewBidRepo(db)

	auth := services.NewAuthService(profileRepo, cfg.JWTSecret, cfg.TokenTTL)

	ledger := services.NewLedgerService(db, repos.NewLedgerRepo(db), profileRepo)
	ledger.Metrics, ledger.Notify = m, notify

	mod := services.NewModerationService(db, profileRepo, listingRepo, repos.NewModerationRepo(db), ledger)
	mod.Notify = notify
	mod.VIPPolicy = domain.VIPPolicy{MinBalance: cfg.VIPMinBalance, MinTransactions: cfg.VIPMinTransactions}
	mod.SuspensionPolicy = domain.SuspensionPolicy{
		LowAverage:  cfg.SuspendLowRating,
		HighAverage: cfg.SuspendHighRating,
		MinRatings:  cfg.SuspendMinRatings,
		BanAfter:    cfg.BanAfterSuspensions,
	}
	mod.ReactivationFee = cfg.ReactivationFee

	settle := services.NewSettlementService(db, listingRepo, bidRepo, profileRepo, ledger)
	settle.VIP, settle.Metrics, settle.Notify = mod, m, notify
	ledger.VIP = mod
	settle.DiscountPercent = cfg.VIPDiscountPercent

	bids := services.NewBidService(db, listingRepo, bidRepo, ledger, settle)
	bids.Metrics, bids.Notify = m, notify
	offers := services.NewOfferService(db, listingRepo, bidRepo, ledger, settle)
	offers.Metrics, offers.Notify = m, notify

	listings := services.NewListingService(db, listingRepo, blobs)
	listings.Notify = notify
	catalog := services.NewCatalogService(db, listingRepo, repos.NewViewRepo(db))
	catalog.Notify = notify
	comments := services.NewCommentService(repos.NewCommentRepo(db), catalog)
	comments.Notify = notify
	apps := services.NewApplicationService(db, repos.NewApplicationRepo(db), profileRepo)

	return &Deps{
		Config:     cfg,
		Metrics:    m,
		Hub:        hub,
		Auth:       auth,
		Ledger:     ledger,
		Settlement: settle,
		Moderation: mod,
		Finalizer:  services.NewFinalizer(listingRepo, bidRepo, settle, cfg.FinalizeInterval),

		AuthHandler:       &AuthHandler{Auth: auth, Ledger: ledger},
		ListingHandler:    &ListingHandler{Listings: listings, Catalog: catalog},
		BidHandler:        &BidHandler{Bids: bids, Offers: offers},
		WalletHandler:     &WalletHandler{Ledger: ledger},
		ModerationHandler: &ModerationHandler{Moderation: mod},
		ViewHandler:       &ViewHandler{Catalog: catalog},
		CommentHandler:    &CommentHandler{Comments: comments},
		AdminHandler:      &AdminHandler{Moderation: mod, Applications: apps},
		WSHandler:         &WSHandler{Hub: hub},
		MediaHandler:      &MediaHandler{Dir: cfg.MediaDir},
	}
}

package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"onebid/internal/domain"
	"onebid/internal/repos"
)

// ApplicationService handles requests to become a super user.
type ApplicationService struct {
	DB           *sqlx.DB
	Applications *repos.ApplicationRepo
	Profiles     *repos.ProfileRepo
}

func NewApplicationService(db *sqlx.DB, apps *repos.ApplicationRepo, profiles *repos.ProfileRepo) *ApplicationService {
	return &ApplicationService{DB: db, Applications: apps, Profiles: profiles}
}

func (s *ApplicationService) Apply(p *domain.Profile, reason string) (*domain.SuperApplication, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" || len(reason) > 2000 {
		return nil, domain.Invalid("reason is required (max 2000 characters)")
	}
	if p.IsSuper() {
		return nil, domain.Conflict("you are already a super user")
	}
	if !p.CanTrade() {
		return nil, domain.Forbidden("account is suspended")
	}
	pending, err := s.Applications.HasPending(p.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, domain.Conflict("you already have a pending application")
	}
	_, avg, err := s.Profiles.RatingStats(s.DB, p.ID)
	if err != nil {
		return nil, fmt.Errorf("rating stats: %w", err)
	}
	at := domain.Stamp(time.Now())
	a := &domain.SuperApplication{
		ID:        uuid.NewString(),
		UserID:    p.ID,
		Reason:    reason,
		Rating:    avg,
		Status:    domain.ApplicationPending,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := s.Applications.Insert(a); err != nil {
		return nil, fmt.Errorf("insert application: %w", err)
	}
	return a, nil
}

func (s *ApplicationService) Mine(p *domain.Profile) ([]domain.SuperApplication, error) {
	return s.Applications.ForUser(p.ID)
}

func (s *ApplicationService) List(actor *domain.Profile, status string) ([]domain.SuperApplication, error) {
	if err := requireSuper(actor); err != nil {
		return nil, err
	}
	return s.Applications.List(status)
}

// Review approves or denies a pending application; approval promotes the
// applicant in the same transaction.
func (s *ApplicationService) Review(actor *domain.Profile, id string, approve bool) (*domain.SuperApplication, error) {
	if err := requireSuper(actor); err != nil {
		return nil, err
	}
	status := domain.ApplicationDenied
	if approve {
		status = domain.ApplicationApproved
	}
	var out *domain.SuperApplication
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		a, err := s.Applications.Get(tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound("application not found")
		}
		if err != nil {
			return err
		}
		ok, err := s.Applications.Decide(tx, id, status, domain.Stamp(time.Now()))
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflict("application was already reviewed")
		}
		if approve {
			if err := s.Profiles.SetRole(tx, a.UserID, domain.RoleSuper); err != nil {
				return err
			}
		}
		out, err = s.Applications.Get(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

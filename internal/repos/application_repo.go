package repos

import (
	"onebid/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ApplicationRepo struct{ db *sqlx.DB }

func NewApplicationRepo(db *sqlx.DB) *ApplicationRepo { return &ApplicationRepo{db: db} }

const applicationCols = `id,user_id,reason,rating,status,created_at,updated_at`

func (r *ApplicationRepo) Insert(a *domain.SuperApplication) error {
	_, err := exec(r.db, `
		INSERT INTO super_applications(id,user_id,reason,rating,status,created_at,updated_at)
		VALUES(?,?,?,?,'PENDING',?,?)`, a.ID, a.UserID, a.Reason, a.Rating, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *ApplicationRepo) HasPending(userID string) (bool, error) {
	var n int
	err := get(r.db, &n, `SELECT COUNT(*) FROM super_applications WHERE user_id=? AND status='PENDING'`, userID)
	return n > 0, err
}

func (r *ApplicationRepo) Get(e sqlx.Ext, id string) (*domain.SuperApplication, error) {
	var a domain.SuperApplication
	if err := get(e, &a, `SELECT `+applicationCols+` FROM super_applications WHERE id=?`, id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ApplicationRepo) List(status string) ([]domain.SuperApplication, error) {
	var out []domain.SuperApplication
	if status == "" {
		err := selectAll(r.db, &out, `SELECT `+applicationCols+` FROM super_applications ORDER BY created_at DESC`)
		return out, err
	}
	err := selectAll(r.db, &out, `SELECT `+applicationCols+` FROM super_applications WHERE status=? ORDER BY created_at DESC`, status)
	return out, err
}

func (r *ApplicationRepo) ForUser(userID string) ([]domain.SuperApplication, error) {
	var out []domain.SuperApplication
	err := selectAll(r.db, &out, `SELECT `+applicationCols+` FROM super_applications WHERE user_id=? ORDER BY created_at DESC`, userID)
	return out, err
}

// Decide closes a pending application; false means it was already decided.
func (r *ApplicationRepo) Decide(e sqlx.Ext, id, status, at string) (bool, error) {
	return execOne(e, `UPDATE super_applications SET status=?, updated_at=? WHERE id=? AND status='PENDING'`, status, at, id)
}

package repos

import (
	"errors"
	"strings"

	"onebid/internal/domain"
	"onebid/internal/money"

	"github.com/jmoiron/sqlx"
)

type ProfileRepo struct{ DB *sqlx.DB }

func NewProfileRepo(db *sqlx.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

const profileCols = `id,email,first_name,last_name,password_hash,role,wallet_balance,is_vip,is_suspended,suspension_count,account_status,created_at`

// ErrDuplicateEmail is returned by Create when the email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

func (r *ProfileRepo) Create(p *domain.Profile) error {
	p.Email = strings.ToLower(p.Email)
	if p.Role == "" {
		p.Role = domain.RoleOrdinary
	}
	if p.Status == "" {
		p.Status = domain.AccountActive
	}
	if p.CreatedAt == "" {
		p.CreatedAt = now()
	}
	ok, err := execOne(r.DB, `
		INSERT INTO profiles(id,email,first_name,last_name,password_hash,role,account_status,created_at)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(email) DO NOTHING`,
		p.ID, p.Email, p.FirstName, p.LastName, p.Hash, p.Role, p.Status, p.CreatedAt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateEmail
	}
	return nil
}

func (r *ProfileRepo) ByEmail(email string) (*domain.Profile, error) {
	var p domain.Profile
	if err := get(r.DB, &p, `SELECT `+profileCols+` FROM profiles WHERE email=?`, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) ByID(id string) (*domain.Profile, error) {
	return r.ByIDTx(r.DB, id)
}

func (r *ProfileRepo) ByIDTx(e sqlx.Ext, id string) (*domain.Profile, error) {
	var p domain.Profile
	if err := get(e, &p, `SELECT `+profileCols+` FROM profiles WHERE id=?`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// Credit adds to the cached balance; false means the result would pass
// money.Max (or the profile does not exist).
func (r *ProfileRepo) Credit(e sqlx.Ext, id string, amt money.Amount) (bool, error) {
	if amt > money.Max {
		return false, nil
	}
	return execOne(e, `UPDATE profiles SET wallet_balance = wallet_balance + ? WHERE id=? AND wallet_balance <= ?`, amt, id, money.Max-amt)
}

// Debit subtracts from the cached balance only when it covers amt; false
// means the balance was insufficient (or the profile does not exist).
func (r *ProfileRepo) Debit(e sqlx.Ext, id string, amt money.Amount) (bool, error) {
	return execOne(e, `UPDATE profiles SET wallet_balance = wallet_balance - ? WHERE id=? AND wallet_balance >= ?`, amt, id, amt)
}

func (r *ProfileRepo) SetVIP(e sqlx.Ext, id string, vip bool) error {
	_, err := exec(e, `UPDATE profiles SET is_vip=? WHERE id=?`, flag(vip), id)
	return err
}

func (r *ProfileRepo) SetRole(e sqlx.Ext, id, role string) error {
	_, err := exec(e, `UPDATE profiles SET role=? WHERE id=?`, role, id)
	return err
}

// Suspend moves an active account to status (SUSPENDED or BANNED) and bumps
// the suspension count. It only matches accounts that are still active.
func (r *ProfileRepo) Suspend(e sqlx.Ext, id, status string) (bool, error) {
	return execOne(e, `
		UPDATE profiles
		SET is_suspended=1, suspension_count=suspension_count+1, account_status=?, is_vip=0
		WHERE id=? AND account_status='ACTIVE'`, status, id)
}

// Ban marks the account banned regardless of its current state.
func (r *ProfileRepo) Ban(e sqlx.Ext, id string) error {
	_, err := exec(e, `UPDATE profiles SET is_suspended=1, account_status='BANNED', is_vip=0 WHERE id=?`, id)
	return err
}

// ClearSuspension reactivates a suspended (not banned) account.
func (r *ProfileRepo) ClearSuspension(e sqlx.Ext, id string) (bool, error) {
	return execOne(e, `
		UPDATE profiles SET is_suspended=0, account_status='ACTIVE'
		WHERE id=? AND is_suspended=1 AND account_status='SUSPENDED'`, id)
}

func (r *ProfileRepo) ListSuspended() ([]domain.Profile, error) {
	var out []domain.Profile
	err := selectAll(r.DB, &out, `SELECT `+profileCols+` FROM profiles WHERE is_suspended=1 ORDER BY email`)
	return out, err
}

// RatingStats returns how many ratings userID received and their average.
func (r *ProfileRepo) RatingStats(e sqlx.Ext, userID string) (int, float64, error) {
	var row struct {
		N   int     `db:"n"`
		Avg float64 `db:"avg"`
	}
	err := get(e, &row, `SELECT COUNT(*) AS n, COALESCE(AVG(score),0) AS avg FROM ratings WHERE rated_id=?`, userID)
	return row.N, row.Avg, err
}

// CompletedTransactions counts purchases as buyer plus sales as seller.
func (r *ProfileRepo) CompletedTransactions(e sqlx.Ext, userID string) (int, error) {
	var n int
	err := get(e, &n, `
		SELECT COUNT(*) FROM transactions
		WHERE (type='PURCHASE' AND buyer_id=?) OR (type='SALE' AND seller_id=?)`, userID, userID)
	return n, err
}

// OpenComplaints counts complaints against userID that were not rejected.
func (r *ProfileRepo) OpenComplaints(e sqlx.Ext, userID string) (int, error) {
	var n int
	err := get(e, &n, `SELECT COUNT(*) FROM complaints WHERE accused_id=? AND status<>'REJECTED'`, userID)
	return n, err
}

package repos

import (
	"onebid/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ModerationRepo struct{ db *sqlx.DB }

func NewModerationRepo(db *sqlx.DB) *ModerationRepo { return &ModerationRepo{db: db} }

// ---------- Ratings ----------

// InsertRating stores rt unless the rater already rated that listing; false
// means a rating was already there.
func (r *ModerationRepo) InsertRating(e sqlx.Ext, rt *domain.Rating) (bool, error) {
	return execOne(e, `
		INSERT INTO ratings(id,listing_id,rater_id,rated_id,score,created_at)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(listing_id,rater_id) DO NOTHING`, rt.ID, rt.ListingID, rt.RaterID, rt.RatedID, rt.Score, rt.CreatedAt)
}

func (r *ModerationRepo) RatingsFor(listingID string) ([]domain.Rating, error) {
	var out []domain.Rating
	err := selectAll(r.db, &out, `
		SELECT id,listing_id,rater_id,rated_id,score,created_at FROM ratings
		WHERE listing_id=? ORDER BY created_at`, listingID)
	return out, err
}

// ---------- Complaints ----------

const complaintCols = `id,listing_id,complainant_id,accused_id,content,status,resolution,created_at,updated_at`

func (r *ModerationRepo) InsertComplaint(e sqlx.Ext, c *domain.Complaint) error {
	_, err := exec(e, `
		INSERT INTO complaints(id,listing_id,complainant_id,accused_id,content,status,created_at,updated_at)
		VALUES(?,?,?,?,?,'PENDING',?,?)`,
		c.ID, c.ListingID, c.ComplainantID, c.AccusedID, c.Content, c.CreatedAt, c.UpdatedAt)
	return err
}

// HasPendingComplaint reports whether complainant already has a pending
// complaint against accused on the listing.
func (r *ModerationRepo) HasPendingComplaint(e sqlx.Ext, listingID, complainantID, accusedID string) (bool, error) {
	var n int
	err := get(e, &n, `
		SELECT COUNT(*) FROM complaints
		WHERE listing_id=? AND complainant_id=? AND accused_id=? AND status='PENDING'`,
		listingID, complainantID, accusedID)
	return n > 0, err
}

func (r *ModerationRepo) Complaint(e sqlx.Ext, id string) (*domain.Complaint, error) {
	var c domain.Complaint
	if err := get(e, &c, `SELECT `+complaintCols+` FROM complaints WHERE id=?`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// Complaints lists complaints, optionally filtered by status, newest first.
func (r *ModerationRepo) Complaints(status string) ([]domain.Complaint, error) {
	var out []domain.Complaint
	if status == "" {
		err := selectAll(r.db, &out, `SELECT `+complaintCols+` FROM complaints ORDER BY created_at DESC`)
		return out, err
	}
	err := selectAll(r.db, &out, `SELECT `+complaintCols+` FROM complaints WHERE status=? ORDER BY created_at DESC`, status)
	return out, err
}

// SetComplaintStatus changes status unless the complaint is already closed.
func (r *ModerationRepo) SetComplaintStatus(e sqlx.Ext, id, status string, resolution *string, at string) (bool, error) {
	return execOne(e, `
		UPDATE complaints SET status=?, resolution=?, updated_at=?
		WHERE id=? AND status IN ('PENDING','INVESTIGATING')`, status, resolution, at, id)
}

package repos

import (
	"onebid/internal/domain"

	"github.com/jmoiron/sqlx"
)

type CommentRepo struct{ db *sqlx.DB }

func NewCommentRepo(db *sqlx.DB) *CommentRepo { return &CommentRepo{db: db} }

// CommentView is a comment joined with its author's public profile fields.
// The visitor id proves authorship of anonymous comments, so it is never
// loaded into a view.
type CommentView struct {
	domain.Comment
	Anonymous bool    `db:"anonymous" json:"anonymous"`
	FirstName *string `db:"first_name" json:"first_name,omitempty"`
	LastName  *string `db:"last_name" json:"last_name,omitempty"`
	Role      *string `db:"role" json:"role,omitempty"`
	VIP       *bool   `db:"is_vip" json:"is_vip,omitempty"`
}

func (r *CommentRepo) Insert(c *domain.Comment) error {
	_, err := exec(r.db, `
		INSERT INTO comments(id,listing_id,user_id,visitor_id,content,created_at,updated_at)
		VALUES(?,?,?,?,?,?,?)`, c.ID, c.ListingID, c.UserID, c.VisitorID, c.Content, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *CommentRepo) Get(id string) (*domain.Comment, error) {
	var c domain.Comment
	if err := get(r.db, &c, `
		SELECT id,listing_id,user_id,visitor_id,content,created_at,updated_at
		FROM comments WHERE id=?`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommentRepo) UpdateContent(id, content, at string) error {
	_, err := exec(r.db, `UPDATE comments SET content=?, updated_at=? WHERE id=?`, content, at, id)
	return err
}

// ForListing returns comments newest first, without visitor ids.
func (r *CommentRepo) ForListing(listingID string) ([]CommentView, error) {
	var out []CommentView
	err := selectAll(r.db, &out, `
		SELECT c.id,c.listing_id,c.user_id,NULL AS visitor_id,c.content,c.created_at,c.updated_at,
		       CASE WHEN c.visitor_id IS NULL THEN 0 ELSE 1 END AS anonymous,
		       p.first_name,p.last_name,p.role,p.is_vip
		FROM comments c
		LEFT JOIN profiles p ON p.id = c.user_id
		WHERE c.listing_id=?
		ORDER BY c.created_at DESC`, listingID)
	return out, err
}

package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"onebid/internal/domain"
	"onebid/internal/realtime"
	"onebid/internal/repos"
)

const maxCommentLen = 1000

type CommentService struct {
	Comments *repos.CommentRepo
	Catalog  *CatalogService
	Notify   Notifier
}

func NewCommentService(comments *repos.CommentRepo, catalog *CatalogService) *CommentService {
	return &CommentService{Comments: comments, Catalog: catalog}
}

func cleanComment(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", domain.Invalid("comment cannot be empty")
	}
	if len(s) > maxCommentLen {
		return "", domain.Invalid("comment is too long")
	}
	return s, nil
}

func (s *CommentService) List(listingID string) ([]repos.CommentView, error) {
	ok, err := s.Catalog.Exists(listingID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NotFound("listing not found")
	}
	out, err := s.Comments.ForListing(listingID)
	if out == nil {
		out = []repos.CommentView{}
	}
	return out, err
}

// Add posts a comment as author, or anonymously when author is nil. An
// anonymous caller without a visitor id is issued one, returned on the
// comment so later edits can prove authorship.
func (s *CommentService) Add(author *domain.Profile, visitorID, listingID, content string) (*domain.Comment, error) {
	content, err := cleanComment(content)
	if err != nil {
		return nil, err
	}
	ok, err := s.Catalog.Exists(listingID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NotFound("listing not found")
	}
	at := domain.Stamp(time.Now())
	c := &domain.Comment{ID: uuid.NewString(), ListingID: listingID, Content: content, CreatedAt: at, UpdatedAt: at}
	if author != nil {
		c.UserID = &author.ID
	} else {
		if visitorID == "" {
			visitorID = uuid.NewString()
		}
		c.VisitorID = &visitorID
	}
	if err := s.Comments.Insert(c); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	if s.Notify != nil {
		s.Notify.Publish(realtime.ListingTopic(listingID), "comment.added", c.ID)
	}
	return c, nil
}

// Edit replaces a comment's content. Only its author (by user id or by
// visitor id) may edit it.
func (s *CommentService) Edit(editor *domain.Profile, visitorID, commentID, content string) (*domain.Comment, error) {
	content, err := cleanComment(content)
	if err != nil {
		return nil, err
	}
	c, err := s.Comments.Get(commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("comment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load comment: %w", err)
	}
	owns := (c.UserID != nil && editor != nil && *c.UserID == editor.ID) ||
		(c.VisitorID != nil && visitorID != "" && *c.VisitorID == visitorID)
	if !owns {
		return nil, domain.Forbidden("you can only edit your own comments")
	}
	at := domain.Stamp(time.Now())
	if err := s.Comments.UpdateContent(c.ID, content, at); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	c.Content, c.UpdatedAt = content, at
	if s.Notify != nil {
		s.Notify.Publish(realtime.ListingTopic(c.ListingID), "comment.edited", c.ID)
	}
	return c, nil
}

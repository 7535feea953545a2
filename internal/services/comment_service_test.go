package services_test

import (
	"testing"
	"time"

	"onebid/internal/domain"
)

func TestComment_AnonymousAndSignedIn(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "owner@example.com", "0")
	reader := e.user(t, "reader@example.com", "0")
	id := e.auction(t, owner, "10", "1", time.Now().Add(time.Hour))

	anon, err := e.comments.Add(nil, "", id, "  is it still working?  ")
	if err != nil {
		t.Fatal(err)
	}
	if anon.VisitorID == nil || *anon.VisitorID == "" || anon.UserID != nil {
		t.Fatalf("anonymous comment should get a visitor id: %+v", anon)
	}
	if anon.Content != "is it still working?" {
		t.Fatalf("content not trimmed: %q", anon.Content)
	}
	signed, err := e.comments.Add(reader, "", id, "nice")
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.comments.Edit(nil, "someone-else", anon.ID, "edited")
	wantKind(t, err, domain.KindForbidden)
	_, err = e.comments.Edit(owner, "", signed.ID, "edited")
	wantKind(t, err, domain.KindForbidden)
	if _, err := e.comments.Edit(nil, *anon.VisitorID, anon.ID, "yes it works"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.comments.Edit(reader, "", signed.ID, "very nice"); err != nil {
		t.Fatal(err)
	}

	list, err := e.comments.List(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("comments: %+v", list)
	}
	got := map[string]string{}
	for _, c := range list {
		got[c.ID] = c.Content
		if c.VisitorID != nil {
			t.Fatalf("listed comment %s exposes its visitor id", c.ID)
		}
		if c.Anonymous != (c.ID == anon.ID) {
			t.Fatalf("comment %s anonymous = %v", c.ID, c.Anonymous)
		}
	}
	if got[anon.ID] != "yes it works" || got[signed.ID] != "very nice" {
		t.Fatalf("contents: %v", got)
	}
}

func TestComment_Rejections(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "owner@example.com", "0")
	id := e.auction(t, owner, "10", "1", time.Now().Add(time.Hour))

	_, err := e.comments.Add(owner, "", id, "   ")
	wantKind(t, err, domain.KindValidation)
	_, err = e.comments.Add(owner, "", "missing", "hello")
	wantKind(t, err, domain.KindNotFound)
	_, err = e.comments.Edit(owner, "", "missing", "hello")
	wantKind(t, err, domain.KindNotFound)
	_, err = e.comments.List("missing")
	wantKind(t, err, domain.KindNotFound)
}

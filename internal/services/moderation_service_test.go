package services_test

import (
	"sync"
	"testing"
	"time"

	"onebid/internal/domain"
	"onebid/internal/money"
)

// sold creates a fixed-price listing owned by seller and sells it to buyer.
func (e *env) sold(t *testing.T, seller, buyer *domain.Profile, price string) string {
	t.Helper()
	id := e.fixed(t, seller, price, "")
	o, err := e.offers.Place(buyer, id, money.Must(price))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.offers.Accept(seller, id, o.ID); err != nil {
		t.Fatal(err)
	}
	return id
}

func TestRating_OncePerTransaction(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, "seller@example.com", "0")
	buyer := e.user(t, "buyer@example.com", "100")
	id := e.sold(t, seller, buyer, "20")

	if _, err := e.moderation.SubmitRating(buyer, id, 5); err != nil {
		t.Fatal(err)
	}
	_, err := e.moderation.SubmitRating(buyer, id, 4)
	wantKind(t, err, domain.KindConflict)

	rs, err := e.modRepo.RatingsFor(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 1 || rs[0].Score != 5 || rs[0].RatedID != seller.ID {
		t.Fatalf("ratings: %+v", rs)
	}

	// the seller rates the buyer separately
	if _, err := e.moderation.SubmitRating(seller, id, 4); err != nil {
		t.Fatal(err)
	}
}

func TestRating_DuplicateInsertIsSkipped(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, "seller@example.com", "0")
	buyer := e.user(t, "buyer@example.com", "100")
	id := e.sold(t, seller, buyer, "20")

	r := &domain.Rating{ID: "r1", ListingID: id, RaterID: buyer.ID, RatedID: seller.ID, Score: 5, CreatedAt: domain.Stamp(time.Now())}
	ok, err := e.modRepo.InsertRating(e.db, r)
	if err != nil || !ok {
		t.Fatalf("first insert: ok=%v err=%v", ok, err)
	}
	dup := *r
	dup.ID, dup.Score = "r2", 1
	ok, err = e.modRepo.InsertRating(e.db, &dup)
	if err != nil || ok {
		t.Fatalf("duplicate insert: ok=%v err=%v", ok, err)
	}
	if n := countRows(t, e.db, `SELECT COUNT(*) FROM ratings WHERE listing_id=?`, id); n != 1 {
		t.Fatalf("ratings rows = %d", n)
	}
}

func TestRating_ConcurrentSubmissions(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, "seller@example.com", "0")
	buyer := e.user(t, "buyer@example.com", "100")
	id := e.sold(t, seller, buyer, "20")

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.moderation.SubmitRating(buyer, id, 1+i%5)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		wantKind(t, err, domain.KindConflict)
	}
	if ok != 1 {
		t.Fatalf("accepted ratings = %d, want 1", ok)
	}
}

func TestRating_Rejections(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, "seller@example.com", "0")
	buyer := e.user(t, "buyer@example.com", "100")
	stranger := e.user(t, "stranger@example.com", "0")
	active := e.fixed(t, seller, "20", "")
	id := e.sold(t, seller, buyer, "20")

	_, err := e.moderation.SubmitRating(buyer, active, 5)
	wantKind(t, err, domain.KindForbidden)
	_, err = e.moderation.SubmitRating(stranger, id, 5)
	wantKind(t, err, domain.KindForbidden)
	_, err = e.moderation.SubmitRating(buyer, id, 6)
	wantKind(t, err, domain.KindValidation)
	_, err = e.moderation.SubmitRating(buyer, "missing", 3)
	wantKind(t, err, domain.KindNotFound)
}

func TestRating_LowAverageSuspends(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, "seller@example.com", "0")
	buyer := e.user(t, "buyer@example.com", "100")
	for i := 0; i < 3; i++ {
		id := e.sold(t, seller, buyer, "10")
		if _, err := e.moderation.SubmitRating(buyer, id, 1); err != nil {
			t.Fatal(err)
		}
	}
	p := e.reload(t, seller.ID)
	if p.Status != domain.AccountSuspended || !p.Suspended || p.SuspensionCount != 1 {
		t.Fatalf("seller after low ratings: %+v", p)
	}
	_, err := e.listingSvc.Create(p, fixedInput("5"), nil)
	wantKind(t, err, domain.KindForbidden)
}

func TestReactivate_Fee(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "u@example.com", "40")
	if _, err := e.profiles.Suspend(e.db, u.ID, domain.AccountSuspended); err != nil {
		t.Fatal(err)
	}

	_, err := e.moderation.Reactivate(e.reload(t, u.ID))
	wantKind(t, err, domain.KindInsufficientFunds)
	p := e.reload(t, u.ID)
	if p.Status != domain.AccountSuspended || !p.Suspended {
		t.Fatalf("account should stay suspended: %+v", p)
	}
	e.balanceAgrees(t, u.ID, "40")

	if _, err := e.ledger.Deposit(u.ID, money.Must("60")); err != nil {
		t.Fatal(err)
	}
	bal, err := e.moderation.Reactivate(e.reload(t, u.ID))
	if err != nil {
		t.Fatal(err)
	}
	if bal != money.Must("50") {
		t.Fatalf("balance after fee %s", bal)
	}
	p = e.reload(t, u.ID)
	if p.Status != domain.AccountActive || p.Suspended {
		t.Fatalf("account should be active: %+v", p)
	}
	e.balanceAgrees(t, u.ID, "50")

	_, err = e.moderation.Reactivate(p)
	wantKind(t, err, domain.KindConflict)
}

func TestReactivate_BannedStaysBanned(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "u@example.com", "100")
	if err := e.profiles.Ban(e.db, u.ID); err != nil {
		t.Fatal(err)
	}
	_, err := e.moderation.Reactivate(e.reload(t, u.ID))
	wantKind(t, err, domain.KindForbidden)
	e.balanceAgrees(t, u.ID, "100")
}

func TestCheckVIP_Idempotent(t *testing.T) {
	e := newEnv(t)
	e.moderation.VIPPolicy = domain.VIPPolicy{MinBalance: money.Must("50"), MinTransactions: 0}
	seller := e.user(t, "seller@example.com", "0")
	buyer := e.user(t, "buyer@example.com", "100")
	e.sold(t, seller, buyer, "20")

	for i := 0; i < 2; i++ {
		vip, err := e.moderation.CheckVIP(buyer.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !vip || !e.reload(t, buyer.ID).VIP {
			t.Fatalf("run %d: buyer should be VIP", i+1)
		}
	}
	// the seller has a sale but the balance is only 20
	vip, err := e.moderation.CheckVIP(seller.ID)
	if err != nil {
		t.Fatal(err)
	}
	if vip {
		t.Fatal("seller below the balance threshold should not be VIP")
	}
}

func TestCheckVIP_ComplaintRevokes(t *testing.T) {
	e := newEnv(t)
	e.moderation.VIPPolicy = domain.VIPPolicy{MinBalance: money.Must("50"), MinTransactions: 0}
	seller := e.user(t, "seller@example.com", "0")
	buyer := e.user(t, "buyer@example.com", "100")
	id := e.sold(t, seller, buyer, "20")
	if vip, err := e.moderation.CheckVIP(buyer.ID); err != nil || !vip {
		t.Fatalf("vip=%v err=%v", vip, err)
	}

	c, err := e.moderation.SubmitComplaint(seller, id, buyer.ID, "never confirmed delivery")
	if err != nil {
		t.Fatal(err)
	}
	if e.reload(t, buyer.ID).VIP {
		t.Fatal("open complaint should revoke VIP")
	}
	_, err = e.moderation.SubmitComplaint(seller, id, buyer.ID, "again")
	wantKind(t, err, domain.KindConflict)

	super := e.user(t, "admin@example.com", "0")
	super.Role = domain.RoleSuper
	if err := e.moderation.SetComplaintStatus(super, c.ID, domain.ComplaintRejected); err != nil {
		t.Fatal(err)
	}
	if !e.reload(t, buyer.ID).VIP {
		t.Fatal("rejected complaint should restore VIP")
	}
}

func TestComplaint_ResolveSuspends(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, "seller@example.com", "0")
	buyer := e.user(t, "buyer@example.com", "100")
	id := e.sold(t, seller, buyer, "20")
	c, err := e.moderation.SubmitComplaint(buyer, id, seller.ID, "item not as described")
	if err != nil {
		t.Fatal(err)
	}

	err = e.moderation.ResolveComplaint(buyer, c.ID, domain.ResolveSuspend)
	wantKind(t, err, domain.KindForbidden)

	super := e.user(t, "admin@example.com", "0")
	super.Role = domain.RoleSuper
	if err := e.moderation.ResolveComplaint(super, c.ID, "suspend"); err != nil {
		t.Fatal(err)
	}
	if p := e.reload(t, seller.ID); p.Status != domain.AccountSuspended {
		t.Fatalf("seller status %s", p.Status)
	}
	err = e.moderation.ResolveComplaint(super, c.ID, domain.ResolveBan)
	wantKind(t, err, domain.KindConflict)

	list, err := e.moderation.Suspended(super)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != seller.ID {
		t.Fatalf("suspended list: %+v", list)
	}
	if err := e.moderation.AdminReactivate(super, seller.ID); err != nil {
		t.Fatal(err)
	}
	if p := e.reload(t, seller.ID); p.Status != domain.AccountActive {
		t.Fatalf("seller status after reactivation %s", p.Status)
	}
}

func TestComplaint_AgainstSelf(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "u@example.com", "0")
	id := e.auction(t, u, "10", "1", time.Now().Add(time.Hour))
	_, err := e.moderation.SubmitComplaint(u, id, u.ID, "hmm")
	wantKind(t, err, domain.KindForbidden)
}

func TestVIP_WithdrawalBelowThresholdRevokes(t *testing.T) {
	e := newEnv(t)
	e.ledger.VIP = e.moderation
	u := e.user(t, "vip@example.com", "6000")
	if err := e.profiles.SetVIP(e.db, u.ID, true); err != nil {
		t.Fatal(err)
	}

	if _, err := e.ledger.Withdraw(u.ID, money.Must("5900")); err != nil {
		t.Fatal(err)
	}
	if p := e.reload(t, u.ID); p.VIP {
		t.Fatal("VIP kept after balance fell below the threshold")
	}
}

func TestReactivate_RechecksVIP(t *testing.T) {
	e := newEnv(t)
	u := e.user(t, "stale@example.com", "100")
	if _, err := e.profiles.Suspend(e.db, u.ID, domain.AccountSuspended); err != nil {
		t.Fatal(err)
	}
	if err := e.profiles.SetVIP(e.db, u.ID, true); err != nil {
		t.Fatal(err)
	}

	if _, err := e.moderation.Reactivate(e.reload(t, u.ID)); err != nil {
		t.Fatal(err)
	}
	if p := e.reload(t, u.ID); p.VIP || p.Status != domain.AccountActive {
		t.Fatalf("after reactivation: vip=%v status=%s", p.VIP, p.Status)
	}
}

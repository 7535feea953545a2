package services_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"onebid/internal/domain"
	"onebid/internal/money"
	"onebid/internal/services"
)

func TestSettle_AcceptBidMovesMoney(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, "seller@example.com", "0")
	buyer := e.user(t, "buyer@example.com", "200")
	id := e.auction(t, seller, "100", "5", time.Now().Add(time.Hour))
	bid, err := e.bids.Place(buyer, id, money.Must("105"))
	if err != nil {
		t.Fatal(err)
	}

	sale, err := e.bids.Accept(seller, id, bid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sale.FinalPrice != money.Must("105") || sale.Discounted {
		t.Fatalf("sale: %+v", sale)
	}

	l, err := e.listings.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if l.Status != domain.ListingSold || l.BuyerID == nil || *l.BuyerID != buyer.ID {
		t.Fatalf("listing after sale: %+v", l)
	}
	e.balanceAgrees(t, buyer.ID, "95")
	e.balanceAgrees(t, seller.ID, "105")

	entries, err := e.ledgerDB.ForListing(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("want PURCHASE and SALE, got %+v", entries)
	}
	for _, en := range entries {
		if en.Amount != money.Must("105") {
			t.Fatalf("entry amount %s", en.Amount)
		}
	}
	if entries[0].Type != domain.TxPurchase || entries[1].Type != domain.TxSale {
		t.Fatalf("entry types: %s, %s", entries[0].Type, entries[1].Type)
	}

	b, err := e.bidRepo.Bid(e.db, bid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != domain.BidAccepted {
		t.Fatalf("bid status %s", b.Status)
	}
}

func TestSettle_VIPDiscount(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, "seller@example.com", "0")
	buyer := e.user(t, "vip@example.com", "200")
	if err := e.profiles.SetVIP(e.db, buyer.ID, true); err != nil {
		t.Fatal(err)
	}
	id := e.auction(t, seller, "100", "5", time.Now().Add(time.Hour))
	bid, err := e.bids.Place(e.reload(t, buyer.ID), id, money.Must("105"))
	if err != nil {
		t.Fatal(err)
	}

	sale, err := e.bids.Accept(seller, id, bid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sale.FinalPrice != money.Must("94.50") || !sale.Discounted {
		t.Fatalf("vip sale: %+v", sale)
	}
	e.balanceAgrees(t, buyer.ID, "105.50")
	e.balanceAgrees(t, seller.ID, "94.50")
}

func TestSettle_RollsBackOnFault(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, "seller@example.com", "0")
	buyer := e.user(t, "buyer@example.com", "200")
	id := e.auction(t, seller, "100", "5", time.Now().Add(time.Hour))
	bid, err := e.bids.Place(buyer, id, money.Must("105"))
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("injected fault")
	services.SetSettleHook(e.settlement, func(stage string) error {
		if stage == "ledger" {
			return boom
		}
		return nil
	})
	if _, err := e.bids.Accept(seller, id, bid.ID); !errors.Is(err, boom) {
		t.Fatalf("expected injected fault, got %v", err)
	}

	l, err := e.listings.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if l.Status != domain.ListingActive || l.BuyerID != nil {
		t.Fatalf("listing should be untouched: %+v", l)
	}
	e.balanceAgrees(t, buyer.ID, "200")
	e.balanceAgrees(t, seller.ID, "0")
	if n := countRows(t, e.db, `SELECT COUNT(*) FROM transactions WHERE listing_id=?`, id); n != 0 {
		t.Fatalf("rolled back sale left %d ledger rows", n)
	}
	b, err := e.bidRepo.Bid(e.db, bid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != domain.BidPending {
		t.Fatalf("bid status %s", b.Status)
	}

	services.SetSettleHook(e.settlement, nil)
	if _, err := e.bids.Accept(seller, id, bid.ID); err != nil {
		t.Fatalf("retry after fault: %v", err)
	}
}

func TestSettle_OnlyOneAcceptance(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, "seller@example.com", "0")
	a := e.user(t, "a@example.com", "500")
	b := e.user(t, "b@example.com", "500")
	id := e.auction(t, seller, "100", "5", time.Now().Add(time.Hour))
	bidA, err := e.bids.Place(a, id, money.Must("105"))
	if err != nil {
		t.Fatal(err)
	}
	bidB, err := e.bids.Place(b, id, money.Must("120"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.bids.Accept(seller, id, bidB.ID); err != nil {
		t.Fatal(err)
	}
	_, err = e.bids.Accept(seller, id, bidA.ID)
	wantKind(t, err, domain.KindAlreadySold)

	loser, err := e.bidRepo.Bid(e.db, bidA.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loser.Status != domain.BidRejected {
		t.Fatalf("losing bid status %s", loser.Status)
	}
	e.balanceAgrees(t, a.ID, "500")
	e.balanceAgrees(t, b.ID, "380")
	e.balanceAgrees(t, seller.ID, "120")
}

func TestSettle_ConcurrentAcceptsSellOnce(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, "seller@example.com", "0")
	a := e.user(t, "a@example.com", "500")
	b := e.user(t, "b@example.com", "500")
	id := e.fixed(t, seller, "100", "")
	oa, err := e.offers.Place(a, id, money.Must("90"))
	if err != nil {
		t.Fatal(err)
	}
	ob, err := e.offers.Place(b, id, money.Must("95"))
	if err != nil {
		t.Fatal(err)
	}

	reqs := []services.SettleRequest{
		{ListingID: id, SellerID: seller.ID, BuyerID: a.ID, Amount: oa.Amount, SaleType: services.SaleOffer, WinnerID: oa.ID},
		{ListingID: id, SellerID: seller.ID, BuyerID: b.ID, Amount: ob.Amount, SaleType: services.SaleOffer, WinnerID: ob.ID},
	}
	var wg sync.WaitGroup
	errs := make([]error, len(reqs))
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.settlement.Settle(reqs[i])
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		wantKind(t, err, domain.KindAlreadySold)
	}
	if ok != 1 {
		t.Fatalf("one settlement should win: %v", errs)
	}
	if n := countRows(t, e.db, `SELECT COUNT(*) FROM transactions WHERE listing_id=?`, id); n != 2 {
		t.Fatalf("ledger rows for listing = %d, want 2", n)
	}
	if n := countRows(t, e.db, `SELECT COUNT(*) FROM offers WHERE listing_id=? AND status='ACCEPTED'`, id); n != 1 {
		t.Fatalf("accepted offers = %d", n)
	}
	e.balanceAgrees(t, seller.ID, "")
}

func TestSettle_BuyerWhoCannotPay(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, "seller@example.com", "0")
	buyer := e.user(t, "buyer@example.com", "200")
	id := e.auction(t, seller, "100", "5", time.Now().Add(time.Hour))
	bid, err := e.bids.Place(buyer, id, money.Must("150"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.ledger.Withdraw(buyer.ID, money.Must("100")); err != nil {
		t.Fatal(err)
	}

	_, err = e.bids.Accept(seller, id, bid.ID)
	wantKind(t, err, domain.KindInsufficientFunds)
	l, err := e.listings.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if l.Status != domain.ListingActive {
		t.Fatalf("listing should stay active: %s", l.Status)
	}
	e.balanceAgrees(t, buyer.ID, "100")
}

func TestSettle_OnlySellerAccepts(t *testing.T) {
	e := newEnv(t)
	seller := e.user(t, "seller@example.com", "0")
	buyer := e.user(t, "buyer@example.com", "200")
	id := e.auction(t, seller, "100", "5", time.Now().Add(time.Hour))
	bid, err := e.bids.Place(buyer, id, money.Must("105"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.bids.Accept(buyer, id, bid.ID)
	wantKind(t, err, domain.KindForbidden)
}

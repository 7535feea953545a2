package domain

import "onebid/internal/money"

const (
	TxDeposit    = "DEPOSIT"
	TxWithdrawal = "WITHDRAWAL"
	TxPurchase   = "PURCHASE"
	TxSale       = "SALE"
)

// Transaction is an immutable ledger entry. Deposits and sales credit the
// seller party; withdrawals and purchases debit the buyer party.
type Transaction struct {
	ID        string       `db:"id" json:"id"`
	Type      string       `db:"type" json:"type"`
	Amount    money.Amount `db:"amount" json:"amount"`
	BuyerID   *string      `db:"buyer_id" json:"buyer_id,omitempty"`
	SellerID  *string      `db:"seller_id" json:"seller_id,omitempty"`
	ListingID *string      `db:"listing_id" json:"listing_id,omitempty"`
	CreatedAt string       `db:"created_at" json:"created_at"`
}

func is(p *string, id string) bool { return p != nil && *p == id }

// Effect is the signed change entry t makes to userID's balance.
func Effect(userID string, t Transaction) money.Amount {
	switch t.Type {
	case TxDeposit, TxSale:
		if is(t.SellerID, userID) {
			return t.Amount
		}
	case TxWithdrawal, TxPurchase:
		if is(t.BuyerID, userID) {
			return -t.Amount
		}
	}
	return 0
}

// Party returns the single user t moves money for and the signed amount.
func Party(t Transaction) (string, money.Amount) {
	switch t.Type {
	case TxDeposit, TxSale:
		if t.SellerID != nil {
			return *t.SellerID, t.Amount
		}
	case TxWithdrawal, TxPurchase:
		if t.BuyerID != nil {
			return *t.BuyerID, -t.Amount
		}
	}
	return "", 0
}

// Fold derives userID's balance from the entries they are a party to.
func Fold(userID string, entries []Transaction) money.Amount {
	var bal money.Amount
	for _, t := range entries {
		bal += Effect(userID, t)
	}
	return bal
}

// Visible reports whether t belongs in userID's wallet history.
func Visible(userID string, t Transaction) bool {
	return Effect(userID, t) != 0
}

package domain

import "onebid/internal/money"

const (
	RoleOrdinary = "ordinary"
	RoleSuper    = "super"

	AccountActive    = "ACTIVE"
	AccountSuspended = "SUSPENDED"
	AccountBanned    = "BANNED"
)

// Profile is a registered user. WalletBalance is a cache of the ledger fold
// and is only written inside ledger transactions.
type Profile struct {
	ID              string       `db:"id" json:"id"`
	Email           string       `db:"email" json:"email"`
	FirstName       string       `db:"first_name" json:"first_name"`
	LastName        string       `db:"last_name" json:"last_name"`
	Hash            string       `db:"password_hash" json:"-"`
	Role            string       `db:"role" json:"role"`
	WalletBalance   money.Amount `db:"wallet_balance" json:"wallet_balance"`
	VIP             bool         `db:"is_vip" json:"is_vip"`
	Suspended       bool         `db:"is_suspended" json:"is_suspended"`
	SuspensionCount int          `db:"suspension_count" json:"suspension_count"`
	Status          string       `db:"account_status" json:"account_status"`
	CreatedAt       string       `db:"created_at" json:"created_at"`
}

func (p *Profile) IsSuper() bool { return p != nil && p.Role == RoleSuper }

// CanTrade reports whether the account may list, bid or offer.
func (p *Profile) CanTrade() bool {
	return p != nil && !p.Suspended && p.Status == AccountActive
}

package domain

import "onebid/internal/money"

// VIPPolicy decides VIP membership from a snapshot of account facts.
type VIPPolicy struct {
	MinBalance      money.Amount
	MinTransactions int
}

type VIPFacts struct {
	Balance      money.Amount
	Transactions int // completed purchases and sales
	Complaints   int // complaints against the user not rejected
	Status       string
}

func (p VIPPolicy) Eligible(f VIPFacts) bool {
	return f.Status == AccountActive &&
		f.Balance >= p.MinBalance &&
		f.Transactions > p.MinTransactions &&
		f.Complaints == 0
}

// SuspensionPolicy suspends users whose received ratings are extreme and bans
// them once they have been suspended enough times.
type SuspensionPolicy struct {
	LowAverage  float64
	HighAverage float64
	MinRatings  int
	BanAfter    int
}

// Outcome returns the account status a user should move to, or "" when no
// change applies.
func (p SuspensionPolicy) Outcome(pr *Profile, count int, avg float64) string {
	if pr.Status != AccountActive || count < p.MinRatings {
		return ""
	}
	if avg >= p.LowAverage && avg <= p.HighAverage {
		return ""
	}
	if pr.SuspensionCount+1 >= p.BanAfter {
		return AccountBanned
	}
	return AccountSuspended
}

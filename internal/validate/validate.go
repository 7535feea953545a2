package validate

import (
	"regexp"
	"strconv"
	"strings"

	"onebid/internal/domain"
	"onebid/internal/money"
)

var (
	reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reQ     = regexp.MustCompile(`^[A-Za-z0-9 _'.,&\\-]{1,80}$`)
	reID    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reCat   = regexp.MustCompile(`^[A-Za-z0-9 &_-]{1,40}$`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 254 {
		return "", false
	}
	return strings.ToLower(s), reEmail.MatchString(s)
}

// Q validates a search query: trims, enforces allowed characters and max length
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s, reQ.MatchString(s)
}

// ID validates a resource identifier (uuids and seeded ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

func Category(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reCat.MatchString(s)
}

// Name validates a displayable name with a reasonable max length.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 50 {
		return "", false
	}
	return s, true
}

// Password requires 8 to 72 bytes (the bcrypt limit) with lower, upper,
// digit and symbol classes.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 72 {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}

// Amount parses a positive money amount.
func Amount(s string) (money.Amount, bool) {
	a, err := money.Parse(strings.TrimSpace(s))
	if err != nil || a <= 0 {
		return 0, false
	}
	return a, true
}

// ListingType accepts the API spellings and returns the stored value.
func ListingType(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auction":
		return domain.ListingAuction, true
	case "fixed", "fixed_price":
		return domain.ListingFixed, true
	}
	return "", false
}

func Sort(s string) (string, bool) {
	switch s = strings.TrimSpace(s); s {
	case "", "latest", "popular", "price_asc", "price_desc":
		return s, true
	}
	return "", false
}

// Bool parses an optional boolean query flag; empty means unset.
func Bool(s string) (*bool, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, false
	}
	return &b, true
}

// Score validates a 1 to 5 star rating.
func Score(n int) bool { return n >= 1 && n <= 5 }

// Limit clamps a page size.
func Limit(n, def, ceiling int) int {
	if n <= 0 {
		return def
	}
	if n > ceiling {
		return ceiling
	}
	return n
}

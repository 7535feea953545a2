package domain

import "errors"

// Kind classifies an error for the HTTP layer.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindBidTooLow
	KindOfferTooLow
	KindAuctionEnded
	KindAlreadySold
	KindInsufficientFunds
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindBidTooLow:
		return "bid_too_low"
	case KindOfferTooLow:
		return "offer_too_low"
	case KindAuctionEnded:
		return "auction_ended"
	case KindAlreadySold:
		return "already_sold"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindConflict:
		return "conflict"
	}
	return "internal"
}

// Error is a rule violation whose message is safe to show to the caller.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Is matches on kind so callers can compare against the sentinels below
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrUnauthorized      = &Error{KindUnauthorized, "unauthorized"}
	ErrForbidden         = &Error{KindForbidden, "forbidden"}
	ErrNotFound          = &Error{KindNotFound, "not found"}
	ErrValidation        = &Error{KindValidation, "invalid request"}
	ErrBidTooLow         = &Error{KindBidTooLow, "bid too low"}
	ErrOfferTooLow       = &Error{KindOfferTooLow, "offer below minimum"}
	ErrAuctionEnded      = &Error{KindAuctionEnded, "auction has ended"}
	ErrAlreadySold       = &Error{KindAlreadySold, "listing is no longer active"}
	ErrInsufficientFunds = &Error{KindInsufficientFunds, "insufficient balance"}
	ErrConflict          = &Error{KindConflict, "conflict"}
)

func Forbidden(msg string) error { return &Error{KindForbidden, msg} }
func NotFound(msg string) error  { return &Error{KindNotFound, msg} }
func Invalid(msg string) error   { return &Error{KindValidation, msg} }
func Conflict(msg string) error  { return &Error{KindConflict, msg} }

// KindOf reports the kind of err; anything unclassified is internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

package ticket

import "errors"

var (
	ErrWrongChannel        = errors.New("not a ticket channel")
	ErrAlreadyClaimed      = errors.New("ticket already claimed")
	ErrAlreadyClaimedByYou = errors.New("ticket already claimed by you")
	ErrInvalidPurchase     = errors.New("invalid purchase request")
)

// ClaimedError reports the current owner of a ticket someone else tried to
// claim. It matches ErrAlreadyClaimed.
type ClaimedError struct {
	Owner string
}

func (e *ClaimedError) Error() string {
	return "ticket already claimed by " + e.Owner
}

func (e *ClaimedError) Is(target error) bool {
	return target == ErrAlreadyClaimed
}

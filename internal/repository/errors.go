package repository

import "errors"

// Domain errors surfaced by repositories. Services wrap these; handlers map
// them to HTTP statuses with errors.Is.
var (
	ErrNotFound = errors.New("not found")

	// Waitlist membership
	ErrWaitlistFull      = errors.New("waitlist is full")
	ErrAlreadyOnWaitlist = errors.New("already on waitlist")
	ErrNotOnWaitlist     = errors.New("not on waitlist")
	ErrEventNotOpen      = errors.New("event is not open for entrants")

	// Lottery lifecycle
	ErrLotteryAlreadyRun = errors.New("lottery has already been run for this event")
	ErrInvalidState      = errors.New("member was never selected")
	ErrAlreadyResponded  = errors.New("invitation has already been responded to")

	// Users
	ErrEmailTaken = errors.New("email already registered")
)

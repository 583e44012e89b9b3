package models

import "errors"

// Domain errors shared by the repositories and services. The first group
// are expected business rejections surfaced to the caller; they are never
// logged as failures.
var (
	ErrPollNotFound   = errors.New("poll not found")
	ErrOptionNotFound = errors.New("option not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrAlreadyVoted   = errors.New("user already voted on this poll")
	ErrPollClosed     = errors.New("poll is closed")
	ErrLimitExceeded  = errors.New("daily limit exceeded")

	ErrNotPollCreator   = errors.New("only the poll creator can do this")
	ErrNotSystemAccount = errors.New("only a system account can do this")
	ErrUserExists       = errors.New("user already exists")
	ErrBadCredentials   = errors.New("invalid credentials")

	// ErrLimiterUnavailable means the rate-limit store could not be
	// reached. The action is rejected (fail closed): an unreachable
	// limiter must not mean unlimited quota.
	ErrLimiterUnavailable = errors.New("rate limiter unavailable")
)

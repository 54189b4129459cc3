package session

import "errors"

// Failure taxonomy. Every rejected operation returns one of these sentinels
// (possibly wrapped) and leaves session state untouched.
var (
	// ErrNotFound: the session, activity or question does not resolve, or an
	// activity of the wrong kind was targeted.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized: a presenter-only operation from a non-presenter identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidTransition: navigation past either boundary, or a launch with
	// an out-of-range index.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrDuplicateAnswer: a second quiz answer from the same participant on
	// the same activity. The first answer stands.
	ErrDuplicateAnswer = errors.New("already answered")

	// ErrSessionEnded: a join or mutating submission after the session ended.
	ErrSessionEnded = errors.New("session has ended")

	// ErrEmptySubmission: a word or question that is empty after trimming.
	ErrEmptySubmission = errors.New("empty submission")
)

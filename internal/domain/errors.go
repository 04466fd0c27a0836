package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz or review session does not exist.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrNotAccepting is returned when an answer or advance arrives in the wrong state.
	ErrNotAccepting = errors.New("session is not accepting this action")
	// ErrForbidden is returned when a caller acts on another user's session.
	ErrForbidden = errors.New("session belongs to another user")

	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user id already registered")
	ErrNicknameTaken     = errors.New("nickname already taken")
	ErrInvalidUserID     = errors.New("user id must contain digits only")
	ErrInvalidNickname   = errors.New("nickname must not be empty")
	ErrInvalidPassphrase = errors.New("passphrase does not match")

	// ErrTransferNotFound means the read-once result payload was never written or already consumed.
	ErrTransferNotFound = errors.New("transfer payload not found")
	// ErrTransferInvalid means the stored payload could not be decoded.
	ErrTransferInvalid = errors.New("transfer payload invalid")
	// ErrNoReviewSet is returned when a review is requested with nothing to review.
	ErrNoReviewSet = errors.New("no questions to review")
)

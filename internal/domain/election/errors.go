package election

import "errors"

var (
	ErrValidation             = errors.New("validation failed")
	ErrPositionNotFound       = errors.New("position not found")
	ErrPositionClosed         = errors.New("position is closed for nominations")
	ErrAlreadyClosed          = errors.New("position is already closed")
	ErrInsufficientCandidates = errors.New("not enough accepted candidates to create a poll")
	ErrDuplicateNomination    = errors.New("nomination already exists for this user and position")
	ErrNominationNotFound     = errors.New("nomination not found")
	ErrMeetingNotFound        = errors.New("meeting not found")
	ErrUpstreamUnavailable    = errors.New("upstream service unavailable")
	ErrPollCreationFailed     = errors.New("failed to create poll in voting service")
	ErrStore                  = errors.New("store error")
)

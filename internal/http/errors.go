package api

import (
	"errors"
	"net/http"

	"election-service/internal/domain/election"
	"election-service/internal/platform/apperr"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	writeJSON(w, appErr.StatusCode(), appErr)
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	switch {
	case errors.Is(err, election.ErrValidation):
		return apperr.BadRequest("invalid_input", err.Error(), err)
	case errors.Is(err, election.ErrPositionNotFound):
		return apperr.NotFound("position_not_found", "Could not find position with the provided id", err)
	case errors.Is(err, election.ErrPositionClosed):
		return apperr.BadRequest("position_closed", "Position is closed for nominations", err)
	case errors.Is(err, election.ErrAlreadyClosed):
		return apperr.BadRequest("already_closed", "Position is already closed", err)
	case errors.Is(err, election.ErrInsufficientCandidates):
		return apperr.BadRequest("insufficient_candidates",
			"Cannot close position with fewer than 2 accepted candidates. Need at least 2 candidates to create a poll.", err)
	case errors.Is(err, election.ErrDuplicateNomination):
		return apperr.Conflict("duplicate_nomination", "Nomination already exists for this user and position", err)
	case errors.Is(err, election.ErrNominationNotFound):
		return apperr.NotFound("nomination_not_found", "Could not find nomination for this candidate and position", err)
	case errors.Is(err, election.ErrMeetingNotFound):
		return apperr.NotFound("meeting_not_found", "Could not find meeting with the provided code", err)
	case errors.Is(err, election.ErrUpstreamUnavailable):
		return apperr.BadGateway("upstream_unavailable", "Meeting service is unavailable", err)
	case errors.Is(err, election.ErrPollCreationFailed):
		return apperr.Internal("poll_creation_failed", "Failed to create poll in voting service. Position not closed.", err)
	default:
		return apperr.FromError(err)
	}
}

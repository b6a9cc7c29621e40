package api

import (
	"encoding/json"
	"net/http"

	"election-service/internal/domain/election"
	"election-service/internal/platform/apperr"
)

type nominateRequest struct {
	Username string `json:"username"`
}

// @Summary     Nominate a candidate
// @Tags        nominations
// @Accept      json
// @Produce     json
// @Param       positionID  path      int64            true  "Position ID"
// @Param       request     body      nominateRequest  true  "Nomination payload"
// @Success     201         {object}  election.Nomination
// @Failure     400         {object}  apperr.AppError  "invalid input or position closed"
// @Failure     404         {object}  apperr.AppError  "position not found"
// @Failure     409         {object}  apperr.AppError  "already nominated"
// @Failure     429         {object}  apperr.AppError  "rate limited"
// @Router      /positions/{positionID}/nominations [post]
func (h *Handler) handleNominate(w http.ResponseWriter, r *http.Request) {
	positionID, err := parseIDParam(r, "positionID")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid position id", err))
		return
	}

	var req nominateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	n, err := h.svc.NominateCandidate(r.Context(), positionID, req.Username)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// @Summary     List nominations for a position
// @Tags        nominations
// @Produce     json
// @Param       positionID  path      int64  true  "Position ID"
// @Success     200         {array}   election.Nomination
// @Failure     400         {object}  apperr.AppError  "invalid id"
// @Router      /positions/{positionID}/nominations [get]
func (h *Handler) handleListNominations(w http.ResponseWriter, r *http.Request) {
	positionID, err := parseIDParam(r, "positionID")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid position id", err))
		return
	}
	noms, err := h.svc.ListNominations(r.Context(), positionID)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(noms))
}

// @Summary     Nomination status for a candidate
// @Description Returns a list with zero or one nomination.
// @Tags        nominations
// @Produce     json
// @Param       positionID  path      int64   true  "Position ID"
// @Param       username    path      string  true  "Candidate username"
// @Success     200         {array}   election.Nomination
// @Failure     400         {object}  apperr.AppError  "invalid id"
// @Router      /positions/{positionID}/nominations/{username}/status [get]
func (h *Handler) handleNominationStatus(w http.ResponseWriter, r *http.Request) {
	positionID, err := parseIDParam(r, "positionID")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid position id", err))
		return
	}
	noms, err := h.svc.GetNominationStatus(r.Context(), positionID, pathParam(r, "username"))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(noms))
}

// @Summary     Accept a nomination
// @Tags        nominations
// @Produce     json
// @Param       positionID  path      int64   true  "Position ID"
// @Param       username    path      string  true  "Candidate username"
// @Success     200         {object}  election.Nomination
// @Failure     400         {object}  apperr.AppError  "invalid id"
// @Failure     404         {object}  apperr.AppError  "nomination not found"
// @Router      /positions/{positionID}/nominations/{username}/accept [post]
func (h *Handler) handleAcceptNomination(w http.ResponseWriter, r *http.Request) {
	positionID, err := parseIDParam(r, "positionID")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid position id", err))
		return
	}
	n, err := h.svc.AcceptNomination(r.Context(), positionID, pathParam(r, "username"))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func nonNil(noms []election.Nomination) []election.Nomination {
	if noms == nil {
		return []election.Nomination{}
	}
	return noms
}

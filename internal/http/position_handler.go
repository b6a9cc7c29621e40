package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"election-service/internal/domain/election"
	"election-service/internal/platform/apperr"
)

type createPositionRequest struct {
	MeetingID    *int64  `json:"meeting_id"`
	MeetingCode  string  `json:"meeting_code"`
	PositionName string  `json:"position_name"`
	AgendaItemID *string `json:"agenda_item_id"`
}

// @Summary     Create a position
// @Description Exactly one of meeting_id or meeting_code must be given. A code is resolved through the meeting service.
// @Tags        positions
// @Accept      json
// @Produce     json
// @Param       request  body      createPositionRequest  true  "Position payload"
// @Success     201      {object}  election.Position
// @Failure     400      {object}  apperr.AppError  "invalid input"
// @Failure     404      {object}  apperr.AppError  "meeting not found"
// @Failure     502      {object}  apperr.AppError  "meeting service unreachable or erroring; only a real 404 from it is reported as meeting not found"
// @Router      /positions [post]
func (h *Handler) handleCreatePosition(w http.ResponseWriter, r *http.Request) {
	var req createPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	in := election.CreatePositionInput{
		Meeting:      election.MeetingRef{Code: req.MeetingCode},
		Name:         req.PositionName,
		AgendaItemID: req.AgendaItemID,
	}
	if req.MeetingID != nil {
		if *req.MeetingID <= 0 {
			errorResponse(w, apperr.BadRequest("invalid_input", "meeting_id must be a positive integer", nil))
			return
		}
		in.Meeting.ID = *req.MeetingID
	}

	p, err := h.svc.CreatePosition(r.Context(), in)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// @Summary     List positions
// @Tags        positions
// @Produce     json
// @Param       meeting_id      query     int64   false  "Filter by meeting"
// @Param       agenda_item_id  query     string  false  "Filter by agenda item"
// @Param       is_open         query     bool    false  "Filter by open state"
// @Success     200             {array}   election.Position
// @Failure     400             {object}  apperr.AppError  "malformed filter"
// @Router      /positions [get]
func (h *Handler) handleListPositions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f election.PositionFilter

	if v := q.Get("meeting_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errorResponse(w, apperr.BadRequest("invalid_input", "meeting_id must be an integer", err))
			return
		}
		f.MeetingID = &id
	}
	if v := q.Get("agenda_item_id"); v != "" {
		f.AgendaItemID = &v
	}
	if v := q.Get("is_open"); v != "" {
		open, err := strconv.ParseBool(v)
		if err != nil {
			errorResponse(w, apperr.BadRequest("invalid_input", "is_open must be true or false", err))
			return
		}
		f.IsOpen = &open
	}

	positions, err := h.svc.ListPositions(r.Context(), f)
	if err != nil {
		errorResponse(w, err)
		return
	}
	if positions == nil {
		positions = []election.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// @Summary     Get a position
// @Tags        positions
// @Produce     json
// @Param       positionID  path      int64  true  "Position ID"
// @Success     200         {object}  election.Position
// @Failure     400         {object}  apperr.AppError  "invalid id"
// @Failure     404         {object}  apperr.AppError  "not found"
// @Router      /positions/{positionID} [get]
func (h *Handler) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "positionID")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid position id", err))
		return
	}
	p, err := h.svc.GetPosition(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// @Summary     Close a position and open its poll
// @Description Requires at least two accepted nominations. The poll is created in the voting service before the position is marked closed.
// @Tags        positions
// @Produce     json
// @Param       positionID  path      int64  true  "Position ID"
// @Success     200         {object}  election.ClosedPosition
// @Failure     400         {object}  apperr.AppError  "already closed or not enough candidates"
// @Failure     404         {object}  apperr.AppError  "not found"
// @Failure     500         {object}  apperr.AppError  "poll creation failed"
// @Router      /positions/{positionID}/close [post]
func (h *Handler) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "positionID")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid position id", err))
		return
	}
	closed, err := h.svc.ClosePosition(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, closed)
}

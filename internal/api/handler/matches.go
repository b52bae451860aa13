package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avelins/dotalog/internal/api/respond"
	"github.com/avelins/dotalog/internal/fetch"
	"github.com/avelins/dotalog/internal/match"
	"github.com/avelins/dotalog/internal/statustext"
)

type createMatchRequest struct {
	StatusText  string     `json:"status_text"`
	OurTeamSlot *int       `json:"our_team_slot,omitempty"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	Overwrite   bool       `json:"overwrite,omitempty"`
}

type matchDetail struct {
	Match  *match.Match      `json:"match"`
	Roster []match.RosterRow `json:"roster"`
}

// ListMatches returns all logged matches, newest first.
// @Summary List matches
// @Tags matches
// @Produce json
// @Success 200 {array} match.Match
// @Router /matches [get]
func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := match.List(r.Context(), h.pool)
	if err != nil {
		h.logger.Error("list matches", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to list matches")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, matches)
}

// CreateMatch persists a confirmed status paste with its full roster.
// @Summary Log a match
// @Description Parses the status text and creates the match plus its roster rows, resolving each parsed name to a persistent player identity. Fails with 409 when the Dota match id is already logged, unless overwrite is set.
// @Tags matches
// @Accept json
// @Produce json
// @Param request body createMatchRequest true "Status text and options"
// @Success 201 {object} matchDetail
// @Failure 400 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Failure 422 {object} respond.ErrorResponse
// @Router /matches [post]
func (h *Handler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a status_text field")
		return
	}
	if req.StatusText == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_STATUS_TEXT", "status_text is required")
		return
	}

	m, err := match.Create(r.Context(), h.pool, match.CreateInput{
		RawStatusText: req.StatusText,
		OurTeamSlot:   req.OurTeamSlot,
		CreatedBy:     req.CreatedBy,
		Overwrite:     req.Overwrite,
	})
	if err != nil {
		var dup *statustext.DuplicateSlotError
		switch {
		case errors.As(err, &dup):
			respond.WriteError(w, http.StatusUnprocessableEntity, "DUPLICATE_SLOT", err.Error())
		case errors.Is(err, match.ErrMatchExists):
			respond.WriteErrorDetail(w, http.StatusConflict, "MATCH_EXISTS",
				"a match with this dota match id is already logged",
				"set overwrite=true to replace the existing log")
		default:
			h.logger.Error("create match", "error", err)
			respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to create match")
		}
		return
	}

	roster, err := match.Roster(r.Context(), h.pool, m.ID)
	if err != nil {
		h.logger.Error("load roster after create", "match_id", m.ID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "match created but roster load failed")
		return
	}
	respond.WriteJSONObject(w, http.StatusCreated, matchDetail{Match: m, Roster: roster})
}

// GetMatch returns one match with its roster.
// @Summary Get a match
// @Tags matches
// @Produce json
// @Param matchID path string true "Match UUID"
// @Success 200 {object} matchDetail
// @Failure 404 {object} respond.ErrorResponse
// @Router /matches/{matchID} [get]
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "matchID")
	if !ok {
		return
	}
	m, err := match.Get(r.Context(), h.pool, id)
	if err != nil {
		h.writeMatchError(w, err, "load match")
		return
	}
	roster, err := match.Roster(r.Context(), h.pool, id)
	if err != nil {
		h.logger.Error("load roster", "match_id", id, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to load roster")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, matchDetail{Match: m, Roster: roster})
}

// DeleteMatch removes a match and its roster rows.
// @Summary Delete a match
// @Tags matches
// @Produce json
// @Param matchID path string true "Match UUID"
// @Success 204
// @Failure 404 {object} respond.ErrorResponse
// @Router /matches/{matchID} [delete]
func (h *Handler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "matchID")
	if !ok {
		return
	}
	if err := match.Delete(r.Context(), h.pool, id); err != nil {
		h.writeMatchError(w, err, "delete match")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setTeamRequest struct {
	OurTeamSlot *int `json:"our_team_slot"`
}

// SetMatchTeam records which side the logging user's team played.
// @Summary Set our team for a match
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path string true "Match UUID"
// @Param request body setTeamRequest true "Team slot (1 or 2, null to clear)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /matches/{matchID}/team [put]
func (h *Handler) SetMatchTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "matchID")
	if !ok {
		return
	}
	var req setTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with an our_team_slot field")
		return
	}
	if req.OurTeamSlot != nil && *req.OurTeamSlot != 1 && *req.OurTeamSlot != 2 {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_TEAM", "our_team_slot must be 1, 2, or null")
		return
	}
	if err := match.SetOurTeam(r.Context(), h.pool, id, req.OurTeamSlot); err != nil {
		h.writeMatchError(w, err, "set our team")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"status": "updated"})
}

type reassignTeamRequest struct {
	Team int `json:"team"`
}

// ReassignPlayerTeam corrects the team of one roster row.
// @Summary Reassign a roster player's team
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path string true "Match UUID"
// @Param playerID path string true "Player UUID"
// @Param request body reassignTeamRequest true "Team (1 or 2)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /matches/{matchID}/players/{playerID}/team [put]
func (h *Handler) ReassignPlayerTeam(w http.ResponseWriter, r *http.Request) {
	matchID, ok := h.pathUUID(w, r, "matchID")
	if !ok {
		return
	}
	playerID, ok := h.pathUUID(w, r, "playerID")
	if !ok {
		return
	}
	var req reassignTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a team field")
		return
	}
	if req.Team != 1 && req.Team != 2 {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_TEAM", "team must be 1 or 2")
		return
	}
	if err := match.ReassignPlayerTeam(r.Context(), h.pool, matchID, playerID, req.Team); err != nil {
		h.writeMatchError(w, err, "reassign player team")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"status": "updated"})
}

type fetchOpenDotaRequest struct {
	RequestParse bool `json:"request_parse,omitempty"`
}

// FetchOpenDota pulls match data from OpenDota and reconciles it onto the
// roster, optionally requesting a replay parse and polling it first.
// @Summary Fetch and reconcile OpenDota data
// @Description Fetches the match from OpenDota and merges per-player stats onto roster rows, matching by name first and falling back to slot. With request_parse set, a replay parse is requested and polled to completion before fetching.
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path string true "Match UUID"
// @Param request body fetchOpenDotaRequest false "Fetch options"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Failure 504 {object} respond.ErrorResponse
// @Router /matches/{matchID}/opendota [post]
func (h *Handler) FetchOpenDota(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "matchID")
	if !ok {
		return
	}
	var req fetchOpenDotaRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
			return
		}
	}

	updated, total, err := h.runner.FetchAndReconcile(r.Context(), h.pool, id, req.RequestParse)
	if err != nil {
		switch {
		case errors.Is(err, match.ErrNotFound):
			respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "match not found")
		case errors.Is(err, fetch.ErrNoDotaMatchID):
			respond.WriteError(w, http.StatusBadRequest, "NO_DOTA_MATCH_ID", "match has no dota match id to fetch")
		case errors.Is(err, fetch.ErrPollTimeout):
			respond.WriteError(w, http.StatusGatewayTimeout, "PARSE_TIMEOUT", "replay parse did not complete in time; the backfill job will retry")
		case errors.Is(err, context.Canceled):
			// client went away mid-poll; nothing to write
		default:
			h.logger.Error("fetch opendota", "match_id", id, "error", err)
			respond.WriteError(w, http.StatusBadGateway, "OPENDOTA_ERROR", "failed to fetch match data from OpenDota")
		}
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":        "reconciled",
		"rows_updated":  updated,
		"roster_size":   total,
		"request_parse": req.RequestParse,
	})
}

// pathUUID parses a UUID route parameter, writing a 400 when it is invalid.
func (h *Handler) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_ID", name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeMatchError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, match.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "match not found")
		return
	}
	h.logger.Error(op, "error", err)
	respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to "+op)
}

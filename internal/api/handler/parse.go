package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/avelins/dotalog/internal/api/respond"
	"github.com/avelins/dotalog/internal/player"
	"github.com/avelins/dotalog/internal/statustext"
)

type parsePreviewRequest struct {
	StatusText string `json:"status_text"`
}

type previewEntry struct {
	Slot      int        `json:"slot"`
	Name      string     `json:"name"`
	Team      int        `json:"team"`
	PlayerID  *uuid.UUID `json:"player_id,omitempty"`
	ProfileID *uuid.UUID `json:"profile_id,omitempty"`
}

type parsePreviewResponse struct {
	DotaMatchID string         `json:"dota_match_id,omitempty"`
	Roster      []previewEntry `json:"roster"`
}

// ParsePreview parses pasted status text without persisting anything.
// @Summary Preview a status text paste
// @Description Parses a console status dump into a roster, marking entries that match known players or user profiles. Nothing is written; safe to call on every edit.
// @Tags parse
// @Accept json
// @Produce json
// @Param request body parsePreviewRequest true "Raw status text"
// @Success 200 {object} parsePreviewResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 422 {object} respond.ErrorResponse
// @Router /parse-preview [post]
func (h *Handler) ParsePreview(w http.ResponseWriter, r *http.Request) {
	var req parsePreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a status_text field")
		return
	}

	parsed, err := statustext.Parse(req.StatusText)
	if err != nil {
		var dup *statustext.DuplicateSlotError
		if errors.As(err, &dup) {
			respond.WriteError(w, http.StatusUnprocessableEntity, "DUPLICATE_SLOT", err.Error())
			return
		}
		respond.WriteError(w, http.StatusBadRequest, "PARSE_FAILED", err.Error())
		return
	}

	nameIndex, err := player.NameIndex(r.Context(), h.pool)
	if err != nil {
		h.logger.Error("load profile name index", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to load profile names")
		return
	}
	profiles := statustext.IdentifyKnown(parsed.Roster, nameIndex)

	resp := parsePreviewResponse{
		DotaMatchID: parsed.MatchID,
		Roster:      make([]previewEntry, 0, len(parsed.Roster)),
	}
	for _, entry := range parsed.Roster {
		e := previewEntry{Slot: entry.Slot, Name: entry.Name, Team: entry.Team}
		if id, ok := profiles[entry.Slot]; ok {
			pid := id
			e.ProfileID = &pid
		}
		if id, ok := h.lookupKnownPlayer(r, entry.Name); ok {
			e.PlayerID = &id
		}
		resp.Roster = append(resp.Roster, e)
	}

	respond.WriteJSONObject(w, http.StatusOK, resp)
}

// lookupKnownPlayer resolves a parsed display name against players'
// known_names, preferring the most recently active on a shared name.
// Lookup failures degrade to "unknown" — the preview stays usable.
func (h *Handler) lookupKnownPlayer(r *http.Request, name string) (uuid.UUID, bool) {
	var id uuid.UUID
	var knownNames []string
	err := h.pool.QueryRow(r.Context(), "player_by_known_name", strings.TrimSpace(name)).Scan(&id, &knownNames)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

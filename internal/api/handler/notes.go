package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/avelins/dotalog/internal/api/respond"
	"github.com/avelins/dotalog/internal/player"
)

// ListNotes returns all notes on a player, newest first.
// @Summary List notes for a player
// @Tags notes
// @Produce json
// @Param playerID path string true "Player UUID"
// @Success 200 {array} player.Note
// @Router /players/{playerID}/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.pathUUID(w, r, "playerID")
	if !ok {
		return
	}
	notes, err := player.NotesFor(r.Context(), h.pool, playerID)
	if err != nil {
		h.logger.Error("list notes", "player_id", playerID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to list notes")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, notes)
}

type createNoteRequest struct {
	Content  string     `json:"content"`
	AuthorID *uuid.UUID `json:"author_id,omitempty"`
	MatchID  *uuid.UUID `json:"match_id,omitempty"`
}

// CreateNote adds a note to a player, optionally tied to a match.
// @Summary Create a note
// @Tags notes
// @Accept json
// @Produce json
// @Param playerID path string true "Player UUID"
// @Param request body createNoteRequest true "Note content"
// @Success 201 {object} player.Note
// @Failure 400 {object} respond.ErrorResponse
// @Router /players/{playerID}/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.pathUUID(w, r, "playerID")
	if !ok {
		return
	}
	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a content field")
		return
	}
	note, err := player.CreateNote(r.Context(), h.pool, playerID, req.AuthorID, req.MatchID, req.Content)
	if err != nil {
		h.logger.Error("create note", "player_id", playerID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to create note")
		return
	}
	respond.WriteJSONObject(w, http.StatusCreated, note)
}

type updateNoteRequest struct {
	Content string `json:"content"`
}

// UpdateNote replaces a note's content.
// @Summary Update a note
// @Tags notes
// @Accept json
// @Produce json
// @Param noteID path string true "Note UUID"
// @Param request body updateNoteRequest true "New content"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /notes/{noteID} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "noteID")
	if !ok {
		return
	}
	var req updateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a content field")
		return
	}
	if err := player.UpdateNote(r.Context(), h.pool, id, req.Content); err != nil {
		h.writeNoteError(w, err, "update note")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"status": "updated"})
}

// DeleteNote removes a note.
// @Summary Delete a note
// @Tags notes
// @Produce json
// @Param noteID path string true "Note UUID"
// @Success 204
// @Failure 404 {object} respond.ErrorResponse
// @Router /notes/{noteID} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "noteID")
	if !ok {
		return
	}
	if err := player.DeleteNote(r.Context(), h.pool, id); err != nil {
		h.writeNoteError(w, err, "delete note")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeNoteError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, player.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "note not found")
		return
	}
	h.logger.Error(op, "error", err)
	respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to "+op)
}

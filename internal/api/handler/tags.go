package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/avelins/dotalog/internal/api/respond"
	"github.com/avelins/dotalog/internal/player"
)

type tagRequest struct {
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
}

// ListTags returns all tags.
// @Summary List tags
// @Tags tags
// @Produce json
// @Success 200 {array} player.Tag
// @Router /tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := player.ListTags(r.Context(), h.pool)
	if err != nil {
		h.logger.Error("list tags", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to list tags")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, tags)
}

// CreateTag creates a new tag.
// @Summary Create a tag
// @Tags tags
// @Accept json
// @Produce json
// @Param request body tagRequest true "Tag name and color"
// @Success 201 {object} player.Tag
// @Failure 400 {object} respond.ErrorResponse
// @Router /tags [post]
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a name field")
		return
	}
	tag, err := player.CreateTag(r.Context(), h.pool, req.Name, req.Color, req.CreatedBy)
	if err != nil {
		h.logger.Error("create tag", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to create tag")
		return
	}
	respond.WriteJSONObject(w, http.StatusCreated, tag)
}

// UpdateTag renames or recolors a tag.
// @Summary Update a tag
// @Tags tags
// @Accept json
// @Produce json
// @Param tagID path string true "Tag UUID"
// @Param request body tagRequest true "New name and color"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /tags/{tagID} [put]
func (h *Handler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "tagID")
	if !ok {
		return
	}
	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a name field")
		return
	}
	if err := player.UpdateTag(r.Context(), h.pool, id, req.Name, req.Color); err != nil {
		h.writeTagError(w, err, "update tag")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"status": "updated"})
}

// DeleteTag removes a tag and all its attachments.
// @Summary Delete a tag
// @Tags tags
// @Produce json
// @Param tagID path string true "Tag UUID"
// @Success 204
// @Failure 404 {object} respond.ErrorResponse
// @Router /tags/{tagID} [delete]
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "tagID")
	if !ok {
		return
	}
	if err := player.DeleteTag(r.Context(), h.pool, id); err != nil {
		h.writeTagError(w, err, "delete tag")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type attachTagRequest struct {
	TaggedBy *uuid.UUID `json:"tagged_by,omitempty"`
}

// AttachTag applies a tag to a player. Attaching an already-attached tag is
// a no-op.
// @Summary Attach a tag to a player
// @Tags tags
// @Accept json
// @Produce json
// @Param playerID path string true "Player UUID"
// @Param tagID path string true "Tag UUID"
// @Param request body attachTagRequest false "Attribution"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /players/{playerID}/tags/{tagID} [post]
func (h *Handler) AttachTag(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.pathUUID(w, r, "playerID")
	if !ok {
		return
	}
	tagID, ok := h.pathUUID(w, r, "tagID")
	if !ok {
		return
	}
	var req attachTagRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
			return
		}
	}
	if err := player.AttachTag(r.Context(), h.pool, playerID, tagID, req.TaggedBy); err != nil {
		h.logger.Error("attach tag", "player_id", playerID, "tag_id", tagID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to attach tag")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"status": "attached"})
}

// DetachTag removes a tag from a player.
// @Summary Detach a tag from a player
// @Tags tags
// @Produce json
// @Param playerID path string true "Player UUID"
// @Param tagID path string true "Tag UUID"
// @Success 204
// @Failure 404 {object} respond.ErrorResponse
// @Router /players/{playerID}/tags/{tagID} [delete]
func (h *Handler) DetachTag(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.pathUUID(w, r, "playerID")
	if !ok {
		return
	}
	tagID, ok := h.pathUUID(w, r, "tagID")
	if !ok {
		return
	}
	if err := player.DetachTag(r.Context(), h.pool, playerID, tagID); err != nil {
		h.writeTagError(w, err, "detach tag")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeTagError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, player.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "tag not found")
		return
	}
	h.logger.Error(op, "error", err)
	respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to "+op)
}

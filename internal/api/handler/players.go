package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/avelins/dotalog/internal/api/respond"
	"github.com/avelins/dotalog/internal/player"
)

type playerDetail struct {
	Player *player.Player `json:"player"`
	Tags   []player.Tag   `json:"tags"`
}

// ListPlayers returns every known player identity.
// @Summary List players
// @Tags players
// @Produce json
// @Success 200 {array} player.Player
// @Router /players [get]
func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := player.List(r.Context(), h.pool)
	if err != nil {
		h.logger.Error("list players", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to list players")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, players)
}

// SearchPlayers finds players whose known names match the query.
// @Summary Search players by name
// @Tags players
// @Produce json
// @Param q query string true "Name fragment, matched case-insensitively against all known names"
// @Success 200 {array} player.Player
// @Failure 400 {object} respond.ErrorResponse
// @Router /players/search [get]
func (h *Handler) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_QUERY", "q query parameter is required")
		return
	}
	players, err := player.Search(r.Context(), h.pool, q)
	if err != nil {
		h.logger.Error("search players", "query", q, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to search players")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, players)
}

// GetPlayer returns one player with their tags.
// @Summary Get a player
// @Tags players
// @Produce json
// @Param playerID path string true "Player UUID"
// @Success 200 {object} playerDetail
// @Failure 404 {object} respond.ErrorResponse
// @Router /players/{playerID} [get]
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "playerID")
	if !ok {
		return
	}
	p, err := player.Get(r.Context(), h.pool, id)
	if err != nil {
		h.writePlayerError(w, err, "load player")
		return
	}
	tags, err := player.TagsFor(r.Context(), h.pool, id)
	if err != nil {
		h.logger.Error("load player tags", "player_id", id, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to load player tags")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, playerDetail{Player: p, Tags: tags})
}

// DeletePlayer removes a player identity and its roster rows.
// @Summary Delete a player
// @Tags players
// @Produce json
// @Param playerID path string true "Player UUID"
// @Success 204
// @Failure 404 {object} respond.ErrorResponse
// @Router /players/{playerID} [delete]
func (h *Handler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "playerID")
	if !ok {
		return
	}
	if err := player.Delete(r.Context(), h.pool, id); err != nil {
		h.writePlayerError(w, err, "delete player")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mergeRequest struct {
	DuplicateID uuid.UUID `json:"duplicate_id"`
}

// MergePlayers folds a duplicate identity into the target player.
// @Summary Merge two players
// @Description Moves the duplicate's known names, roster rows, notes, and tags onto the target player, then deletes the duplicate. The target keeps its steam account id unless it has none.
// @Tags players
// @Accept json
// @Produce json
// @Param playerID path string true "Target player UUID"
// @Param request body mergeRequest true "Duplicate player to absorb"
// @Success 200 {object} player.Player
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /players/{playerID}/merge [post]
func (h *Handler) MergePlayers(w http.ResponseWriter, r *http.Request) {
	targetID, ok := h.pathUUID(w, r, "playerID")
	if !ok {
		return
	}
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DuplicateID == uuid.Nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a duplicate_id field")
		return
	}
	if req.DuplicateID == targetID {
		respond.WriteError(w, http.StatusBadRequest, "SELF_MERGE", "cannot merge a player into itself")
		return
	}
	if err := player.Merge(r.Context(), h.pool, targetID, req.DuplicateID); err != nil {
		h.writePlayerError(w, err, "merge players")
		return
	}
	merged, err := player.Get(r.Context(), h.pool, targetID)
	if err != nil {
		h.writePlayerError(w, err, "load merged player")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, merged)
}

// RefreshPlayerHeroes pulls fresh turbo hero stats from OpenDota.
// @Summary Refresh a player's top heroes
// @Tags players
// @Produce json
// @Param playerID path string true "Player UUID"
// @Success 200 {array} player.HeroStat
// @Failure 404 {object} respond.ErrorResponse
// @Failure 422 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /players/{playerID}/refresh-heroes [post]
func (h *Handler) RefreshPlayerHeroes(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r, "playerID")
	if !ok {
		return
	}
	heroes, err := player.RefreshTopHeroes(r.Context(), h.pool, h.od, id)
	if err != nil {
		switch {
		case errors.Is(err, player.ErrNotFound):
			respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "player not found")
		case errors.Is(err, player.ErrNoSteamAccount):
			respond.WriteError(w, http.StatusUnprocessableEntity, "NO_STEAM_ACCOUNT", "player has no steam account id; it gets backfilled once a parsed match includes them")
		default:
			h.logger.Error("refresh top heroes", "player_id", id, "error", err)
			respond.WriteError(w, http.StatusBadGateway, "OPENDOTA_ERROR", "failed to fetch hero stats from OpenDota")
		}
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, heroes)
}

// ListProfiles returns all app-user profiles.
// @Summary List profiles
// @Tags profiles
// @Produce json
// @Success 200 {array} player.Profile
// @Router /profiles [get]
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := player.ListProfiles(r.Context(), h.pool)
	if err != nil {
		h.logger.Error("list profiles", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to list profiles")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, profiles)
}

func (h *Handler) writePlayerError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, player.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "player not found")
		return
	}
	h.logger.Error(op, "error", err)
	respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR", "failed to "+op)
}

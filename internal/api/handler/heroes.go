package handler

import (
	"encoding/json"
	"net/http"

	"github.com/avelins/dotalog/internal/api/respond"
	"github.com/avelins/dotalog/internal/cache"
)

// GetHeroes returns the OpenDota hero catalog.
// @Summary Get hero catalog
// @Description Returns the full hero list from OpenDota. Cached for a day; the catalog only changes with game patches.
// @Tags heroes
// @Produce json
// @Success 200 {array} opendota.Hero
// @Failure 502 {object} respond.ErrorResponse
// @Router /heroes [get]
func (h *Handler) GetHeroes(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "heroes:catalog"
	ttl := cache.TTLHeroes

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	heroes, err := h.od.Heroes(r.Context())
	if err != nil {
		h.logger.Error("fetch hero catalog", "error", err)
		respond.WriteError(w, http.StatusBadGateway, "OPENDOTA_ERROR", "failed to fetch hero catalog from OpenDota")
		return
	}
	raw, err := json.Marshal(heroes)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "failed to encode hero catalog")
		return
	}

	etag := h.cache.Set(cacheKey, raw, ttl)
	respond.WriteJSON(w, raw, etag, ttl, false)
}

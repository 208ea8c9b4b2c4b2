package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/aninfo/internal/contract"
	"github.com/example/aninfo/internal/platform/analytics"
	"github.com/example/aninfo/internal/platform/api"
	"github.com/example/aninfo/internal/platform/httpserver"
	"github.com/example/aninfo/services/aninfo-server/internal/store"
)

// AddAnime handles POST /api/v1/users/add_anime.
func AddAnime(users store.Users, favs store.Favourites, pub *analytics.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, _, ok := callerID(w, r, rid)
		if !ok {
			return
		}

		var req contract.UserAnimeSubmission
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if req.UUID != uid {
			api.Forbidden(w, "FORBIDDEN", "cannot edit another user's favourites", rid)
			return
		}
		if req.AnimeID <= 0 {
			api.BadRequest(w, "INVALID_ANIME_ID", "anime_id must be positive", rid, nil)
			return
		}
		if strings.TrimSpace(req.AnimeTtlEn) == "" {
			api.BadRequest(w, "MISSING_TITLE", "anime_ttl_en is required", rid, nil)
			return
		}

		if err := favs.AddFavourite(r.Context(), uid, req.Anime()); err != nil {
			switch {
			case errors.Is(err, store.ErrConflict):
				api.Conflict(w, "ALREADY_FAVOURITE", "anime is already a favourite", rid, nil)
			case errors.Is(err, store.ErrNotFound):
				api.Unauthorized(w, "AUTH_INVALID", "user no longer exists", rid)
			default:
				httpserver.Logger(r.Context(), log).Error("add favourite", zap.Error(err))
				api.Internal(w, rid)
			}
			return
		}

		pub.Publish(analytics.SubjectFavouriteAdded, "favourite_added", strconv.Itoa(int(uid)), map[string]any{"anime_id": req.AnimeID})
		writeUser(w, r, rid, users, favs, uid, log)
	}
}

// RemoveAnime handles POST /api/v1/users/remove_anime/{mal_id}.
func RemoveAnime(users store.Users, favs store.Favourites, pub *analytics.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, _, ok := callerID(w, r, rid)
		if !ok {
			return
		}

		malID, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "mal_id")), 10, 32)
		if err != nil || malID <= 0 {
			api.BadRequest(w, "INVALID_ANIME_ID", "mal_id must be a positive integer", rid, nil)
			return
		}

		if err := favs.RemoveFavourite(r.Context(), uid, int32(malID)); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FAVOURITE", "anime is not a favourite", rid)
				return
			}
			httpserver.Logger(r.Context(), log).Error("remove favourite", zap.Error(err))
			api.Internal(w, rid)
			return
		}

		pub.Publish(analytics.SubjectFavouriteRemoved, "favourite_removed", strconv.Itoa(int(uid)), map[string]any{"anime_id": malID})
		writeUser(w, r, rid, users, favs, uid, log)
	}
}

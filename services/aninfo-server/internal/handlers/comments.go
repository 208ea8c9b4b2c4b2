package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/example/aninfo/internal/contract"
	"github.com/example/aninfo/internal/platform/analytics"
	"github.com/example/aninfo/internal/platform/api"
	"github.com/example/aninfo/internal/platform/httpserver"
	"github.com/example/aninfo/services/aninfo-server/internal/store"
)

// sanitizer strips every tag from comment bodies.
var sanitizer = bluemonday.StrictPolicy()

func animeIDParam(w http.ResponseWriter, r *http.Request, rid string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(chi.URLParam(r, "id")), 10, 64)
	if err != nil || id == 0 {
		api.BadRequest(w, "INVALID_ANIME_ID", "id must be a positive integer", rid, nil)
		return 0, false
	}
	return id, true
}

// GetComments handles GET /api/v1/anime/{id}/comment, oldest first.
func GetComments(cs store.Comments, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		animeID, ok := animeIDParam(w, r, rid)
		if !ok {
			return
		}

		list, err := cs.ListComments(r.Context(), animeID)
		if err != nil {
			httpserver.Logger(r.Context(), log).Error("list comments", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		out := make([]contract.CommentGet, 0, len(list))
		for _, c := range list {
			out = append(out, c.Get())
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// PostComment handles POST /api/v1/anime/{id}/comment.
func PostComment(cs store.Comments, pub *analytics.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, _, ok := callerID(w, r, rid)
		if !ok {
			return
		}
		animeID, ok := animeIDParam(w, r, rid)
		if !ok {
			return
		}

		var req contract.CommentPost
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		body := strings.TrimSpace(sanitizer.Sanitize(req.Comment))
		if body == "" {
			api.BadRequest(w, "EMPTY_BODY", "comment must not be empty", rid, nil)
			return
		}
		if n := utf8.RuneCountInString(body); n > contract.MaxCommentLen {
			api.BadRequest(w, "COMMENT_TOO_LONG", "comment is too long", rid, map[string]any{"max": contract.MaxCommentLen, "length": n})
			return
		}

		created, err := cs.AddComment(r.Context(), store.Comment{AnimeID: animeID, UserID: uid, Body: body})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.Unauthorized(w, "AUTH_INVALID", "user no longer exists", rid)
				return
			}
			httpserver.Logger(r.Context(), log).Error("add comment", zap.Error(err))
			api.Internal(w, rid)
			return
		}

		pub.Publish(analytics.SubjectCommentPosted, "comment_posted", strconv.Itoa(int(uid)), map[string]any{"anime_id": animeID})
		api.WriteJSON(w, http.StatusCreated, created.Get())
	}
}

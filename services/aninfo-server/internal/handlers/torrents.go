package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/example/aninfo/internal/contract"
	"github.com/example/aninfo/internal/platform/analytics"
	"github.com/example/aninfo/internal/platform/api"
	"github.com/example/aninfo/internal/platform/httpserver"
)

// TorrentFinder is satisfied by *torrents.Service.
type TorrentFinder interface {
	Find(ctx context.Context, req contract.TorrentRequest) ([]contract.Torrent, error)
}

// GetTorrents handles POST /api/v1/get_torrent and, with full set,
// /api/v1/get_torrent_full, which always searches the whole series.
func GetTorrents(finder TorrentFinder, full bool, pub *analytics.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req contract.TorrentRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if strings.TrimSpace(req.TtlDef) == "" && strings.TrimSpace(req.TtlEn) == "" {
			api.BadRequest(w, "MISSING_TITLE", "ttl_def or ttl_en is required", rid, nil)
			return
		}
		if strings.TrimSpace(req.TtlDef) == "" {
			req.TtlDef = req.TtlEn
		}
		if full && !slices.Contains(req.Filter, contract.FilterAllEpisodes) {
			req.Filter = append(req.Filter, contract.FilterAllEpisodes)
		}

		list, err := finder.Find(r.Context(), req)
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				api.Unavailable(w, "INDEX_UNAVAILABLE", "torrent index temporarily unavailable", rid)
				return
			}
			httpserver.Logger(r.Context(), log).Warn("torrent lookup", zap.String("title", req.TtlDef), zap.Error(err))
			api.Unavailable(w, "INDEX_ERROR", "torrent index lookup failed", rid)
			return
		}

		pub.Publish(analytics.SubjectTorrentsSearched, "torrents_searched", "", map[string]any{
			"title":   req.TtlDef,
			"eps":     req.Eps,
			"full":    req.WantsFull(),
			"results": len(list),
		})
		if list == nil {
			list = []contract.Torrent{}
		}
		api.WriteJSON(w, http.StatusOK, list)
	}
}

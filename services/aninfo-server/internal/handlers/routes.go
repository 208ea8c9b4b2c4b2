package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/aninfo/internal/contract"
	"github.com/example/aninfo/internal/platform/analytics"
	"github.com/example/aninfo/internal/platform/auth"
	"github.com/example/aninfo/services/aninfo-server/internal/store"
	"github.com/example/aninfo/services/aninfo-server/internal/tokens"
)

type Deps struct {
	Store     store.Store
	Tokens    tokens.Service
	Torrents  TorrentFinder
	Publisher *analytics.Publisher
	Log       *zap.Logger
	// RateLimit guards the torrent routes when non-nil.
	RateLimit func(http.Handler) http.Handler
}

// Mount registers every /api/v1 route on r.
func Mount(r chi.Router, d Deps) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	st := d.Store
	verifier := d.Tokens.Verifier(st)

	r.Route(contract.APIPrefix, func(r chi.Router) {
		r.Post(contract.RouteRegister, Register(st, d.Publisher, log))
		r.Post(contract.RouteLogin, Login(st, st, d.Tokens, d.Publisher, log))
		r.Get(contract.RouteComments, GetComments(st, log))

		r.Group(func(r chi.Router) {
			if d.RateLimit != nil {
				r.Use(d.RateLimit)
			}
			r.Post(contract.RouteTorrent, GetTorrents(d.Torrents, false, d.Publisher, log))
			r.Post(contract.RouteTorrentFull, GetTorrents(d.Torrents, true, d.Publisher, log))
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(verifier))
			r.Post(contract.RouteLogout, Logout(st, d.Publisher, log))
			r.Post(contract.RouteLoginCheck, LoginCheck(st, st, log))
			r.Post(contract.RouteAddAnime, AddAnime(st, st, d.Publisher, log))
			r.Post(contract.RouteRemoveAnime, RemoveAnime(st, st, d.Publisher, log))
			r.Post(contract.RouteComments, PostComment(st, d.Publisher, log))
		})
	})
}

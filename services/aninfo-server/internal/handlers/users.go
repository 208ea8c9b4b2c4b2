package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/aninfo/internal/contract"
	"github.com/example/aninfo/internal/platform/analytics"
	"github.com/example/aninfo/internal/platform/api"
	"github.com/example/aninfo/internal/platform/httpserver"
	"github.com/example/aninfo/services/aninfo-server/internal/store"
	"github.com/example/aninfo/services/aninfo-server/internal/tokens"
)

// bcryptCost is lowered by tests.
var bcryptCost = bcrypt.DefaultCost

// dummyHash keeps unknown-user logins as slow as wrong-password ones.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("aninfo"), bcrypt.MinCost)

// Register handles POST /api/v1/users/register.
// The client sends a sha256 digest of the password; the server stores a
// bcrypt hash of that digest.
func Register(users store.Users, pub *analytics.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req contract.UserRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		if !usernamePattern.MatchString(req.Username) {
			api.BadRequest(w, "INVALID_USERNAME", "username must be 3-32 letters, digits, '_', '.' or '-'", rid, nil)
			return
		}
		if !digestPattern.MatchString(req.PasswordHash) {
			api.BadRequest(w, "INVALID_PASSWORD_HASH", "password_hash must be a sha256 hex digest", rid, nil)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.PasswordHash), bcryptCost)
		if err != nil {
			httpserver.Logger(r.Context(), log).Error("bcrypt", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		u, err := users.CreateUser(r.Context(), req.Username, string(hash))
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				api.Conflict(w, "USERNAME_TAKEN", "username is already taken", rid, nil)
				return
			}
			httpserver.Logger(r.Context(), log).Error("create user", zap.Error(err))
			api.Internal(w, rid)
			return
		}

		pub.Publish(analytics.SubjectAuthRegistered, "user_registered", strconv.Itoa(int(u.ID)), nil)
		api.WriteJSON(w, http.StatusCreated, contract.UserResponse{Username: u.Username, UUID: u.ID, FavAnime: []contract.UserAnime{}})
	}
}

// Login handles POST /api/v1/users/login. A successful login returns the
// session token in the Authorization header; a failed one omits it.
func Login(users store.Users, favs store.Favourites, tok tokens.Service, pub *analytics.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req contract.UserRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}

		u, err := users.FindUserByName(r.Context(), req.Username)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				httpserver.Logger(r.Context(), log).Error("find user", zap.Error(err))
				api.Internal(w, rid)
				return
			}
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.PasswordHash))
			api.Unauthorized(w, "INVALID_CREDENTIALS", "invalid username or password", rid)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.PasswordHash)); err != nil {
			api.Unauthorized(w, "INVALID_CREDENTIALS", "invalid username or password", rid)
			return
		}

		list, err := favs.ListFavourites(r.Context(), u.ID)
		if err != nil {
			httpserver.Logger(r.Context(), log).Error("list favourites", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		issued, err := tok.NewSessionToken(u.ID, u.Username, timeNow())
		if err != nil {
			httpserver.Logger(r.Context(), log).Error("sign token", zap.Error(err))
			api.Internal(w, rid)
			return
		}

		pub.Publish(analytics.SubjectAuthLoggedIn, "user_logged_in", strconv.Itoa(int(u.ID)), nil)
		w.Header().Set("Authorization", "Bearer "+issued.Token)
		api.WriteJSON(w, http.StatusOK, contract.UserResponse{Username: u.Username, UUID: u.ID, FavAnime: list})
	}
}

// Logout handles POST /api/v1/users/logout by revoking the caller's token.
func Logout(rev store.Revocations, pub *analytics.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		_, claims, ok := callerID(w, r, rid)
		if !ok {
			return
		}
		if claims.ID != "" {
			if err := rev.Revoke(r.Context(), claims.ID, claims.ExpiresAtTime()); err != nil {
				httpserver.Logger(r.Context(), log).Error("revoke token", zap.Error(err))
				api.Internal(w, rid)
				return
			}
		}
		pub.Publish(analytics.SubjectAuthLoggedOut, "user_logged_out", claims.Subject, nil)
		api.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
	}
}

// LoginCheck handles POST /api/v1/login_check, returning the session's user.
func LoginCheck(users store.Users, favs store.Favourites, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, _, ok := callerID(w, r, rid)
		if !ok {
			return
		}
		writeUser(w, r, rid, users, favs, uid, log)
	}
}

func writeUser(w http.ResponseWriter, r *http.Request, rid string, users store.Users, favs store.Favourites, uid int32, log *zap.Logger) {
	u, err := users.GetUser(r.Context(), uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			api.Unauthorized(w, "AUTH_INVALID", "user no longer exists", rid)
			return
		}
		httpserver.Logger(r.Context(), log).Error("get user", zap.Error(err))
		api.Internal(w, rid)
		return
	}
	list, err := favs.ListFavourites(r.Context(), uid)
	if err != nil {
		httpserver.Logger(r.Context(), log).Error("list favourites", zap.Error(err))
		api.Internal(w, rid)
		return
	}
	api.WriteJSON(w, http.StatusOK, contract.UserResponse{Username: u.Username, UUID: u.ID, FavAnime: list})
}

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/aninfo/internal/contract"
	"github.com/example/aninfo/internal/fetch"
	"github.com/example/aninfo/internal/password"
	"github.com/example/aninfo/internal/platform/api"
)

func newClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithFetcher(fetch.New(fetch.WithPolicy(fetch.Policy{Attempts: 3}))))
}

func writeError(w http.ResponseWriter, status int, code string) {
	api.WriteJSON(w, status, api.ErrorResponse{Error: api.APIError{Code: code, Message: code}})
}

func TestLogin_ReadsBearerToken(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, contract.APIPrefix+contract.RouteLogin, r.URL.Path)
		var req contract.UserRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.Username)
		assert.Equal(t, password.Digest("Secret#123"), req.PasswordHash)

		w.Header().Set("Authorization", "Bearer tok-1")
		api.WriteJSON(w, http.StatusOK, contract.UserResponse{Username: "alice", UUID: 4, FavAnime: []contract.UserAnime{}})
	}))

	res, err := c.Login(context.Background(), "alice", "Secret#123")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)
	assert.Equal(t, int32(4), res.User.UUID)
}

func TestLogin_InvalidCredentialsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS")
	}))

	_, err := c.Login(context.Background(), "alice", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLogin_MissingToken(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, contract.UserResponse{Username: "alice"})
	}))
	_, err := c.Login(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestRegister_Conflict(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusConflict, "USERNAME_TAKEN")
	}))
	_, err := c.Register(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestAuthenticatedCalls_RequireToken(t *testing.T) {
	c := New("http://127.0.0.1:1")
	ctx := context.Background()

	assert.ErrorIs(t, c.Logout(ctx, ""), ErrNotLoggedIn)
	_, err := c.LoginCheck(ctx, "")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = c.AddFavourite(ctx, "", contract.UserAnimeSubmission{})
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = c.RemoveFavourite(ctx, "", 1)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = c.PostComment(ctx, "", 1, "hi")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestFavourites_StatusMapping(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if s := int(status.Load()); s != http.StatusOK {
			writeError(w, s, "X")
			return
		}
		api.WriteJSON(w, http.StatusOK, contract.UserResponse{Username: "alice", UUID: 1,
			FavAnime: []contract.UserAnime{{AnimeID: 5, AnimeTtlEn: "Show"}}})
	}))
	ctx := context.Background()

	u, err := c.AddFavourite(ctx, "tok", contract.UserAnimeSubmission{UUID: 1, AnimeID: 5, AnimeTtlEn: "Show"})
	require.NoError(t, err)
	assert.Len(t, u.FavAnime, 1)

	cases := []struct {
		status int
		add    error
		remove error
	}{
		{http.StatusUnauthorized, ErrSessionExpired, ErrSessionExpired},
		{http.StatusForbidden, ErrForbidden, nil},
		{http.StatusConflict, ErrAlreadyFavourite, nil},
		{http.StatusNotFound, nil, ErrNotFavourite},
	}
	for _, tc := range cases {
		status.Store(int32(tc.status))
		_, err := c.AddFavourite(ctx, "tok", contract.UserAnimeSubmission{UUID: 1, AnimeID: 5})
		if tc.add != nil {
			assert.ErrorIs(t, err, tc.add, "add status %d", tc.status)
		} else {
			assert.Error(t, err)
		}
		_, err = c.RemoveFavourite(ctx, "tok", 5)
		if tc.remove != nil {
			assert.ErrorIs(t, err, tc.remove, "remove status %d", tc.status)
		} else {
			assert.Error(t, err)
		}
	}
}

func TestRemoveFavourite_Path(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, contract.APIPrefix+"/users/remove_anime/52991", r.URL.Path)
		api.WriteJSON(w, http.StatusOK, contract.UserResponse{Username: "alice", FavAnime: []contract.UserAnime{}})
	}))
	_, err := c.RemoveFavourite(context.Background(), "tok", 52991)
	require.NoError(t, err)
}

func TestComments_RetriesAndDefaultsEmpty(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("null"))
	}))
	out, err := c.Comments(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPostComment(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, contract.APIPrefix+"/anime/21/comment", r.URL.Path)
		var body contract.CommentPost
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		api.WriteJSON(w, http.StatusCreated, contract.CommentGet{Username: "alice", Comment: body.Comment, Date: "2024-01-01 00:00:00"})
	}))
	got, err := c.PostComment(context.Background(), "tok", 21, "great")
	require.NoError(t, err)
	assert.Equal(t, "great", got.Comment)
}

func TestTorrents_RouteSelection(t *testing.T) {
	var path atomic.Value
	var filters atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		filters.Store(int32(len(req["filter"].([]any))))
		api.WriteJSON(w, http.StatusOK, []contract.Torrent{{Title: "x"}})
	}))
	ctx := context.Background()

	_, err := c.Torrents(ctx, contract.TorrentRequest{TtlEn: "Show", Eps: 1}, false)
	require.NoError(t, err)
	assert.Equal(t, contract.APIPrefix+contract.RouteTorrent, path.Load())
	assert.Equal(t, int32(0), filters.Load())

	_, err = c.Torrents(ctx, contract.TorrentRequest{TtlEn: "Show"}, true)
	require.NoError(t, err)
	assert.Equal(t, contract.APIPrefix+contract.RouteTorrentFull, path.Load())

	_, err = c.Torrents(ctx, contract.TorrentRequest{TtlEn: "Show", Filter: []contract.Filter{contract.FilterAllEpisodes}}, false)
	require.NoError(t, err)
	assert.Equal(t, contract.APIPrefix+contract.RouteTorrentFull, path.Load())
	assert.Equal(t, int32(1), filters.Load())
}

func TestErrorCode(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusConflict, "USERNAME_TAKEN")
	}))
	_, err := fetch.OncePostJSON[contract.UserResponse](context.Background(), c.Fetch, c.url(contract.RouteRegister), nil, nil)
	require.Error(t, err)
	assert.Equal(t, "USERNAME_TAKEN", ErrorCode(err))
	assert.Equal(t, "", ErrorCode(nil))
}

func TestErrorCode_LongEnvelope(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.BadRequest(w, "INVALID_COMMENT", strings.Repeat("too long ", 60), "req-1",
			map[string]any{"max": 1000})
	}))
	_, err := fetch.OncePostJSON[contract.UserResponse](context.Background(), c.Fetch, c.url(contract.RouteRegister), nil, nil)
	require.Error(t, err)
	assert.Equal(t, "INVALID_COMMENT", ErrorCode(err))
}

func TestTokenFromHeader(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "bearer abc")
	assert.Equal(t, "abc", TokenFromHeader(h))
	h.Set("Authorization", "raw")
	assert.Equal(t, "raw", TokenFromHeader(h))
	assert.Equal(t, "", TokenFromHeader(http.Header{}))
}

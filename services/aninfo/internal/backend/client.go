// Package backend is the client for the aninfo-server REST API.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/example/aninfo/internal/contract"
	"github.com/example/aninfo/internal/fetch"
	"github.com/example/aninfo/internal/password"
	"github.com/example/aninfo/internal/platform/api"
)

const DefaultBaseURL = "http://localhost:8080"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrSessionExpired     = errors.New("session expired, please log in again")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrForbidden          = errors.New("cannot edit another user's favourites")
	ErrAlreadyFavourite   = errors.New("anime is already a favourite")
	ErrNotFavourite       = errors.New("anime is not a favourite")
	ErrMissingToken       = errors.New("login response carried no token")
)

// LoginResult is a successful login: the profile plus the bearer token the
// server sent in the Authorization header.
type LoginResult struct {
	User  contract.UserResponse
	Token string
}

type Client struct {
	BaseURL string
	Fetch   *fetch.Client
	Log     *zap.Logger
}

// Option configures the Client.
type Option func(*Client)

func WithFetcher(f *fetch.Client) Option {
	return func(c *Client) { c.Fetch = f }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.Log = log }
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.Fetch == nil {
		c.Fetch = fetch.New(fetch.WithLogger(c.Log))
	}
	return c
}

func (c *Client) url(route string) string {
	return c.BaseURL + contract.APIPrefix + route
}

func bearer(token string) (http.Header, error) {
	if token == "" {
		return nil, ErrNotLoggedIn
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h, nil
}

// TokenFromHeader strips the Bearer scheme from an Authorization value.
func TokenFromHeader(h http.Header) string {
	v := strings.TrimSpace(h.Get("Authorization"))
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return v
}

// ErrorCode extracts the error envelope code from a failed call, if the
// server sent one.
func ErrorCode(err error) string {
	var fe *fetch.Error
	if !errors.As(err, &fe) || len(fe.Body) == 0 {
		return ""
	}
	var env api.ErrorResponse
	if json.Unmarshal(fe.Body, &env) != nil {
		return ""
	}
	return env.Error.Code
}

// Login hashes pw and exchanges it for a session token. Login is never
// retried.
func (c *Client) Login(ctx context.Context, username, pw string) (LoginResult, error) {
	body := contract.UserRequest{Username: username, PasswordHash: password.Digest(pw)}
	resp, err := fetch.Once[contract.UserResponse](ctx, c.Fetch, fetch.Request{
		Method: http.MethodPost, URL: c.url(contract.RouteLogin), Body: body,
	})
	if err != nil {
		if fetch.StatusOf(err) == http.StatusUnauthorized {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	tok := TokenFromHeader(resp.Header)
	if tok == "" {
		return LoginResult{}, ErrMissingToken
	}
	c.Log.Debug("logged in", zap.String("username", resp.Value.Username))
	return LoginResult{User: resp.Value, Token: tok}, nil
}

func (c *Client) Register(ctx context.Context, username, pw string) (contract.UserResponse, error) {
	body := contract.UserRequest{Username: username, PasswordHash: password.Digest(pw)}
	u, err := fetch.OncePostJSON[contract.UserResponse](ctx, c.Fetch, c.url(contract.RouteRegister), body, nil)
	if err != nil {
		if fetch.StatusOf(err) == http.StatusConflict {
			return contract.UserResponse{}, ErrUsernameTaken
		}
		return contract.UserResponse{}, err
	}
	return u, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	h, err := bearer(token)
	if err != nil {
		return err
	}
	_, err = fetch.OncePostJSON[map[string]string](ctx, c.Fetch, c.url(contract.RouteLogout), nil, h)
	if fetch.StatusOf(err) == http.StatusUnauthorized {
		return ErrSessionExpired
	}
	return err
}

// LoginCheck returns the profile behind token.
func (c *Client) LoginCheck(ctx context.Context, token string) (contract.UserResponse, error) {
	h, err := bearer(token)
	if err != nil {
		return contract.UserResponse{}, err
	}
	u, err := fetch.OncePostJSON[contract.UserResponse](ctx, c.Fetch, c.url(contract.RouteLoginCheck), nil, h)
	if err != nil {
		if fetch.StatusOf(err) == http.StatusUnauthorized {
			return contract.UserResponse{}, ErrSessionExpired
		}
		return contract.UserResponse{}, err
	}
	return u, nil
}

func (c *Client) AddFavourite(ctx context.Context, token string, sub contract.UserAnimeSubmission) (contract.UserResponse, error) {
	h, err := bearer(token)
	if err != nil {
		return contract.UserResponse{}, err
	}
	u, err := fetch.OncePostJSON[contract.UserResponse](ctx, c.Fetch, c.url(contract.RouteAddAnime), sub, h)
	if err != nil {
		switch fetch.StatusOf(err) {
		case http.StatusUnauthorized:
			return contract.UserResponse{}, ErrSessionExpired
		case http.StatusForbidden:
			return contract.UserResponse{}, ErrForbidden
		case http.StatusConflict:
			return contract.UserResponse{}, ErrAlreadyFavourite
		}
		return contract.UserResponse{}, err
	}
	return u, nil
}

func (c *Client) RemoveFavourite(ctx context.Context, token string, malID int32) (contract.UserResponse, error) {
	h, err := bearer(token)
	if err != nil {
		return contract.UserResponse{}, err
	}
	u, err := fetch.OncePostJSON[contract.UserResponse](ctx, c.Fetch, c.url(contract.RemoveAnimePath(malID)), nil, h)
	if err != nil {
		switch fetch.StatusOf(err) {
		case http.StatusUnauthorized:
			return contract.UserResponse{}, ErrSessionExpired
		case http.StatusNotFound:
			return contract.UserResponse{}, ErrNotFavourite
		}
		return contract.UserResponse{}, err
	}
	return u, nil
}

// Comments lists the comments on an anime, oldest first.
func (c *Client) Comments(ctx context.Context, malID uint64) ([]contract.CommentGet, error) {
	out, err := fetch.GetJSON[[]contract.CommentGet](ctx, c.Fetch, c.url(contract.CommentsPath(malID)), nil)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []contract.CommentGet{}
	}
	return out, nil
}

func (c *Client) PostComment(ctx context.Context, token string, malID uint64, body string) (contract.CommentGet, error) {
	h, err := bearer(token)
	if err != nil {
		return contract.CommentGet{}, err
	}
	out, err := fetch.OncePostJSON[contract.CommentGet](ctx, c.Fetch, c.url(contract.CommentsPath(malID)),
		contract.CommentPost{Comment: body}, h)
	if fetch.StatusOf(err) == http.StatusUnauthorized {
		return contract.CommentGet{}, ErrSessionExpired
	}
	return out, err
}

// Torrents searches the torrent index. The full-series route is used when
// full is set or the request filters on AllEpisodes.
func (c *Client) Torrents(ctx context.Context, req contract.TorrentRequest, full bool) ([]contract.Torrent, error) {
	route := contract.RouteTorrent
	if full || req.WantsFull() {
		route = contract.RouteTorrentFull
	}
	if req.Filter == nil {
		req.Filter = []contract.Filter{}
	}
	out, err := fetch.PostJSON[[]contract.Torrent](ctx, c.Fetch, c.url(route), req, nil)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []contract.Torrent{}
	}
	return out, nil
}

// Package browse drives the application state: it answers every view from
// the cache when it can and from Jikan or the backend when it must.
package browse

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/example/aninfo/internal/appstate"
	"github.com/example/aninfo/internal/contract"
	"github.com/example/aninfo/internal/jikan"
	"github.com/example/aninfo/internal/password"
	"github.com/example/aninfo/internal/present"
	"github.com/example/aninfo/internal/query"
	"github.com/example/aninfo/services/aninfo/internal/backend"
)

var ErrEmptyQuery = errors.New("search query must not be empty")

// Backend is the subset of the companion backend the controller calls.
type Backend interface {
	Login(ctx context.Context, username, pw string) (backend.LoginResult, error)
	Register(ctx context.Context, username, pw string) (contract.UserResponse, error)
	Logout(ctx context.Context, token string) error
	LoginCheck(ctx context.Context, token string) (contract.UserResponse, error)
	AddFavourite(ctx context.Context, token string, sub contract.UserAnimeSubmission) (contract.UserResponse, error)
	RemoveFavourite(ctx context.Context, token string, malID int32) (contract.UserResponse, error)
	Comments(ctx context.Context, malID uint64) ([]contract.CommentGet, error)
	PostComment(ctx context.Context, token string, malID uint64, body string) (contract.CommentGet, error)
	Torrents(ctx context.Context, req contract.TorrentRequest, full bool) ([]contract.Torrent, error)
}

var _ Backend = (*backend.Client)(nil)

type Controller struct {
	Store   *appstate.Store
	Jikan   jikan.Provider
	Backend Backend
	Log     *zap.Logger
}

func New(store *appstate.Store, provider jikan.Provider, be Backend, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{Store: store, Jikan: provider, Backend: be, Log: log}
}

func (c *Controller) State() appstate.State {
	return c.Store.Get()
}

// storeSlot installs a cache slot without re-stamping the change hash, which
// only guards the search slot.
func (c *Controller) storeSlot(fn func(appstate.Cache) appstate.Cache) {
	c.Store.Dispatch(func(s appstate.State) appstate.State {
		return s.WithCache(fn(s.Cache)).WithHash(s.Hash())
	})
}

func (c *Controller) setLoading(loading bool) {
	c.Store.Dispatch(func(s appstate.State) appstate.State { return s.WithLoadingPage(loading) })
}

// Home returns the seasonal and top lists, reusing the cached pair unless
// refresh is set.
func (c *Controller) Home(ctx context.Context, refresh bool) (jikan.Home, error) {
	st := c.Store.Get()
	if !refresh && st.Cache.HomePage != nil {
		c.Log.Debug("home served from cache")
		return *st.Cache.HomePage, nil
	}
	home, err := c.Jikan.Home(ctx, st.Prefs.NSFW)
	if err != nil {
		return jikan.Home{}, err
	}
	c.storeSlot(func(cache appstate.Cache) appstate.Cache { return cache.WithHomePage(&home) })
	return home, nil
}

// Search runs q at page. The cached result is reused while the page, nsfw
// and query digest is unchanged.
func (c *Controller) Search(ctx context.Context, q string, page int) (jikan.QueryResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return jikan.QueryResult{}, ErrEmptyQuery
	}
	page = max(page, 1)
	st := c.Store.Dispatch(func(s appstate.State) appstate.State {
		return s.WithQuery(q).WithPage(page)
	})

	changed, _ := st.HasChanged()
	if !changed && st.Cache.SearchResult != nil {
		c.Log.Debug("search served from cache", zap.String("query", q), zap.Int("page", page))
		return *st.Cache.SearchResult, nil
	}

	c.setLoading(true)
	defer c.setLoading(false)
	res, err := c.Jikan.Search(ctx, q, page, st.Prefs.NSFW)
	if err != nil {
		return jikan.QueryResult{}, err
	}
	c.Store.Dispatch(func(s appstate.State) appstate.State {
		return s.WithCache(s.Cache.WithSearchResult(&res))
	})
	return res, nil
}

// ByKind always fetches; the result replaces the anime-result slot.
func (c *Controller) ByKind(ctx context.Context, kind query.ResultKind, page int) (jikan.QueryResult, error) {
	if kind.IsZero() {
		return jikan.QueryResult{}, query.ErrInvalidKind
	}
	res, err := c.Jikan.ByKind(ctx, kind, max(page, 1), c.Store.Get().Prefs.NSFW)
	if err != nil {
		return jikan.QueryResult{}, err
	}
	c.storeSlot(func(cache appstate.Cache) appstate.Cache { return cache.WithAnimeResult(&res) })
	return res, nil
}

func (c *Controller) Explore(ctx context.Context, f query.Filter, s query.Sort, page int) (jikan.QueryResult, error) {
	res, err := c.Jikan.Explore(ctx, f, s, max(page, 1), c.Store.Get().Prefs.NSFW)
	if err != nil {
		return jikan.QueryResult{}, err
	}
	c.storeSlot(func(cache appstate.Cache) appstate.Cache { return cache.WithAnimeResult(&res) })
	return res, nil
}

// Details reuses the cached detail view when it is for the same anime.
func (c *Controller) Details(ctx context.Context, malID uint64, refresh bool) (jikan.Details, error) {
	st := c.Store.Get()
	if d := st.Cache.AnimeDetails; !refresh && d != nil && d.Anime.MalID == malID {
		c.Log.Debug("details served from cache", zap.Uint64("mal_id", malID))
		return *d, nil
	}
	d, err := c.Jikan.Details(ctx, malID)
	if err != nil {
		return jikan.Details{}, err
	}
	c.storeSlot(func(cache appstate.Cache) appstate.Cache { return cache.WithAnimeDetails(&d) })
	return d, nil
}

func (c *Controller) Episodes(ctx context.Context, malID uint64, page int) (jikan.EpisodePage, error) {
	return c.Jikan.Episodes(ctx, malID, max(page, 1))
}

// SetNSFW changes the content filter. The home pair was fetched under the
// old setting and is dropped.
func (c *Controller) SetNSFW(nsfw bool) {
	c.Store.Dispatch(func(s appstate.State) appstate.State {
		if s.Prefs.NSFW == nsfw {
			return s
		}
		out := s.WithNSFW(nsfw)
		return out.WithCache(out.Cache.WithHomePage(nil)).WithHash(s.Hash())
	})
}

func (c *Controller) token() (string, error) {
	st := c.Store.Get()
	if !st.Session.LoggedIn() {
		return "", backend.ErrNotLoggedIn
	}
	return *st.Session.JWT, nil
}

func applyUser(s appstate.State, u contract.UserResponse) appstate.State {
	name, id := u.Username, u.UUID
	favs := u.FavAnime
	if favs == nil {
		favs = []contract.UserAnime{}
	}
	return s.WithUsername(&name).WithUserID(&id).WithFavourites(favs)
}

// Login authenticates and installs the session. The returned token is what
// the caller persists as the session cookie.
func (c *Controller) Login(ctx context.Context, username, pw string) (string, error) {
	res, err := c.Backend.Login(ctx, strings.TrimSpace(username), pw)
	if err != nil {
		return "", err
	}
	tok := res.Token
	c.Store.Dispatch(func(s appstate.State) appstate.State {
		return applyUser(s.WithJWT(&tok), res.User)
	})
	c.Log.Info("logged in", zap.String("username", res.User.Username))
	return tok, nil
}

// Register validates the password pair locally before creating the account.
func (c *Controller) Register(ctx context.Context, username, pw, confirm string) (contract.UserResponse, error) {
	if err := password.Check(pw, confirm); err != nil {
		return contract.UserResponse{}, err
	}
	return c.Backend.Register(ctx, strings.TrimSpace(username), pw)
}

// Logout revokes the token server-side and always clears the local session.
func (c *Controller) Logout(ctx context.Context) error {
	tok, err := c.token()
	if err != nil {
		return err
	}
	err = c.Backend.Logout(ctx, tok)
	c.Store.Dispatch(func(s appstate.State) appstate.State { return s.WithoutSession() })
	if errors.Is(err, backend.ErrSessionExpired) {
		return nil
	}
	return err
}

// Refresh re-reads the profile behind the stored token. An expired session
// is dropped.
func (c *Controller) Refresh(ctx context.Context) (contract.UserResponse, error) {
	tok, err := c.token()
	if err != nil {
		return contract.UserResponse{}, err
	}
	u, err := c.Backend.LoginCheck(ctx, tok)
	if err != nil {
		if errors.Is(err, backend.ErrSessionExpired) {
			c.Store.Dispatch(func(s appstate.State) appstate.State { return s.WithoutSession() })
		}
		return contract.UserResponse{}, err
	}
	c.Store.Dispatch(func(s appstate.State) appstate.State { return applyUser(s, u) })
	return u, nil
}

// Submission builds the favourite entry for a on behalf of userID.
func Submission(userID int32, a jikan.Anime) contract.UserAnimeSubmission {
	sub := contract.UserAnimeSubmission{
		UUID:       userID,
		AnimeID:    int32(a.MalID),
		AnimeTtlEn: present.Title(a, appstate.EN),
		AnimeTtlJp: a.TitleJapanese,
	}
	if img := present.Image(a); img != "" {
		sub.AnimeImg = &img
	}
	return sub
}

func (c *Controller) AddFavourite(ctx context.Context, a jikan.Anime) ([]contract.UserAnime, error) {
	tok, err := c.token()
	if err != nil {
		return nil, err
	}
	st := c.Store.Get()
	if st.Session.UserID == nil {
		if _, err := c.Refresh(ctx); err != nil {
			return nil, err
		}
		st = c.Store.Get()
	}
	u, err := c.Backend.AddFavourite(ctx, tok, Submission(*st.Session.UserID, a))
	return c.afterFavourites(u, err)
}

func (c *Controller) RemoveFavourite(ctx context.Context, malID int32) ([]contract.UserAnime, error) {
	tok, err := c.token()
	if err != nil {
		return nil, err
	}
	u, err := c.Backend.RemoveFavourite(ctx, tok, malID)
	return c.afterFavourites(u, err)
}

func (c *Controller) afterFavourites(u contract.UserResponse, err error) ([]contract.UserAnime, error) {
	if err != nil {
		if errors.Is(err, backend.ErrSessionExpired) {
			c.Store.Dispatch(func(s appstate.State) appstate.State { return s.WithoutSession() })
		}
		return nil, err
	}
	st := c.Store.Dispatch(func(s appstate.State) appstate.State { return applyUser(s, u) })
	return st.Session.Favourites, nil
}

func (c *Controller) Favourites() []contract.UserAnime {
	return c.Store.Get().Session.Favourites
}

func (c *Controller) IsFavourite(malID int32) bool {
	return c.Store.Get().IsFavourite(malID)
}

func (c *Controller) Comments(ctx context.Context, malID uint64) ([]contract.CommentGet, error) {
	return c.Backend.Comments(ctx, malID)
}

func (c *Controller) PostComment(ctx context.Context, malID uint64, body string) (contract.CommentGet, error) {
	tok, err := c.token()
	if err != nil {
		return contract.CommentGet{}, err
	}
	return c.Backend.PostComment(ctx, tok, malID, body)
}

// TorrentRequest names a torrent search for episode ep of a. ep 0 asks for
// the whole series.
func TorrentRequest(a jikan.Anime, ep uint16, filters []contract.Filter) contract.TorrentRequest {
	req := contract.TorrentRequest{
		TtlDef: a.DefaultTitle(),
		Eps:    ep,
		Filter: filters,
	}
	if a.TitleEnglish != nil {
		req.TtlEn = *a.TitleEnglish
	}
	if req.Filter == nil {
		req.Filter = []contract.Filter{}
	}
	return req
}

// Torrents looks up releases for a. The anime is read from the detail cache
// when it matches malID.
func (c *Controller) Torrents(ctx context.Context, malID uint64, ep uint16, filters []contract.Filter) ([]contract.Torrent, error) {
	d, err := c.Details(ctx, malID, false)
	if err != nil {
		return nil, err
	}
	req := TorrentRequest(d.Anime.Anime, ep, filters)
	return c.Backend.Torrents(ctx, req, ep == 0)
}

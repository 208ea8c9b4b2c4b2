package jikan

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/aninfo/internal/fetch"
	"github.com/example/aninfo/internal/query"
)

const DefaultBaseURL = "https://api.jikan.moe/v4"

// episodesPerPage is the fixed page size of /anime/{id}/episodes.
const episodesPerPage = 100

type Client struct {
	BaseURL string
	Fetch   *fetch.Client
	Limiter *Limiter
	Log     *zap.Logger
}

// Option configures the Client.
type Option func(*Client)

func WithFetcher(f *fetch.Client) Option {
	return func(c *Client) { c.Fetch = f }
}

func WithLimiter(l *Limiter) Option {
	return func(c *Client) { c.Limiter = l }
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
	if c.Limiter != nil {
		// Throttle every attempt, retries included, on a private copy so
		// other users of the fetcher are not slowed down.
		c.Fetch = c.Fetch.With(fetch.WithBeforeAttempt(throttle(c.Limiter, c.Fetch.BeforeAttempt)))
	}
	return c
}

func throttle(l *Limiter, next func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := l.Wait(ctx); err != nil {
			return err
		}
		if next != nil {
			return next(ctx)
		}
		return nil
	}
}

func get[T any](ctx context.Context, c *Client, u string) (T, error) {
	c.Log.Debug("jikan request", zap.String("url", u))
	return fetch.GetJSON[T](ctx, c.Fetch, u, nil)
}

func normPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// sfw renders Jikan's sfw flag, the negation of the nsfw preference.
func sfw(nsfw bool) string {
	if nsfw {
		return "false"
	}
	return "true"
}

// SearchURL builds anime?q=Q&page=P&sfw=...
func (c *Client) SearchURL(q string, page int, nsfw bool) string {
	return fmt.Sprintf("%s/anime?q=%s&page=%d%s", c.BaseURL, url.QueryEscape(q), normPage(page), query.SFWParam(nsfw))
}

func (c *Client) KindURL(kind query.ResultKind, page int, nsfw bool) string {
	return fmt.Sprintf("%s/%s&page=%d&sfw=%s", c.BaseURL, kind.Link(), normPage(page), sfw(nsfw))
}

// ExploreURL builds anime?sfw=S&page=P followed by the filter and sort params.
func (c *Client) ExploreURL(f query.Filter, s query.Sort, page int, nsfw bool) string {
	return fmt.Sprintf("%s/anime?sfw=%s&page=%d%s%s", c.BaseURL, sfw(nsfw), normPage(page), f.Params(), s.Params())
}

func (c *Client) Search(ctx context.Context, q string, page int, nsfw bool) (QueryResult, error) {
	if strings.TrimSpace(q) == "" {
		return QueryResult{}, errors.New("jikan: search query required")
	}
	return get[QueryResult](ctx, c, c.SearchURL(q, page, nsfw))
}

func (c *Client) ByKind(ctx context.Context, kind query.ResultKind, page int, nsfw bool) (QueryResult, error) {
	if kind.IsZero() {
		return QueryResult{}, query.ErrInvalidKind
	}
	return get[QueryResult](ctx, c, c.KindURL(kind, page, nsfw))
}

func (c *Client) Top(ctx context.Context, page int, nsfw bool) (QueryResult, error) {
	return c.ByKind(ctx, query.Top, page, nsfw)
}

func (c *Client) Seasonal(ctx context.Context, page int, nsfw bool) (QueryResult, error) {
	return c.ByKind(ctx, query.Seasonal, page, nsfw)
}

func (c *Client) Explore(ctx context.Context, f query.Filter, s query.Sort, page int, nsfw bool) (QueryResult, error) {
	return get[QueryResult](ctx, c, c.ExploreURL(f, s, page, nsfw))
}

// Home fetches the current season and the top list concurrently.
func (c *Client) Home(ctx context.Context, nsfw bool) (Home, error) {
	var out Home
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := get[QueryResult](gctx, c, fmt.Sprintf("%s/seasons/now?sfw=%s", c.BaseURL, sfw(nsfw)))
		out.Seasonal = r
		return err
	})
	g.Go(func() error {
		r, err := get[QueryResult](gctx, c, fmt.Sprintf("%s/top/anime?sfw=%s", c.BaseURL, sfw(nsfw)))
		out.Top = r
		return err
	})
	if err := g.Wait(); err != nil {
		return Home{}, err
	}
	return out, nil
}

func (c *Client) Anime(ctx context.Context, malID uint64) (AnimeFull, error) {
	env, err := get[dataEnvelope[AnimeFull]](ctx, c, fmt.Sprintf("%s/anime/%d/full", c.BaseURL, malID))
	return env.Data, err
}

func (c *Client) Characters(ctx context.Context, malID uint64) ([]CharacterRole, error) {
	env, err := get[dataEnvelope[[]CharacterRole]](ctx, c, fmt.Sprintf("%s/anime/%d/characters", c.BaseURL, malID))
	return env.Data, err
}

func (c *Client) Episodes(ctx context.Context, malID uint64, page int) (EpisodePage, error) {
	return get[EpisodePage](ctx, c, fmt.Sprintf("%s/anime/%d/episodes?page=%d", c.BaseURL, malID, normPage(page)))
}

func (c *Client) Recommendations(ctx context.Context, malID uint64) ([]Recommendation, error) {
	env, err := get[dataEnvelope[[]Recommendation]](ctx, c, fmt.Sprintf("%s/anime/%d/recommendations", c.BaseURL, malID))
	return env.Data, err
}

// Details issues the four detail requests concurrently and joins them.
// When Jikan does not announce an episode count, the last episode page is
// fetched to derive it.
func (c *Client) Details(ctx context.Context, malID uint64) (Details, error) {
	if malID == 0 {
		return Details{}, errors.New("jikan: malID required")
	}

	var d Details
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := c.Anime(gctx, malID)
		d.Anime = a
		return err
	})
	g.Go(func() error {
		cs, err := c.Characters(gctx, malID)
		d.Characters = cs
		return err
	})
	g.Go(func() error {
		eps, err := c.Episodes(gctx, malID, 1)
		d.Episodes = eps
		return err
	})
	g.Go(func() error {
		recs, err := c.Recommendations(gctx, malID)
		d.Recommendations = recs
		return err
	})
	if err := g.Wait(); err != nil {
		return Details{}, err
	}

	lastLen := 0
	last := d.Episodes.Pagination.LastVisiblePage
	if announced(d.Anime.Anime) == 0 && last > 1 {
		page, err := c.Episodes(ctx, malID, last)
		if err != nil {
			return Details{}, err
		}
		lastLen = len(page.Data)
	}
	d.TotalEpisodes = TotalEpisodes(d.Anime.Anime, d.Episodes, lastLen)
	return d, nil
}

func announced(a Anime) int {
	if a.Episodes == nil {
		return 0
	}
	return int(*a.Episodes)
}

// TotalEpisodes derives the episode count shown for a. lastPageLen is the
// number of entries on the last episode page and only matters when Jikan did
// not announce a count and there is more than one page.
func TotalEpisodes(a Anime, first EpisodePage, lastPageLen int) int {
	n := announced(a)
	last := first.Pagination.LastVisiblePage
	switch {
	case n == 0 && last > 1:
		return (last-1)*episodesPerPage + lastPageLen
	case n == 0:
		return len(first.Data)
	case a.Type != nil && *a.Type == "Movie":
		return 0
	default:
		return n
	}
}

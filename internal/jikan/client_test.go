package jikan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/aninfo/internal/fetch"
	"github.com/example/aninfo/internal/query"
)

type recorder struct {
	mu   sync.Mutex
	urls []string
}

func (r *recorder) add(u string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, u)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.urls...)
}

func newTestClient(t *testing.T, h http.Handler) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.URL.RequestURI())
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	hc := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
	f := fetch.New(fetch.WithHTTPClient(hc), fetch.WithPolicy(fetch.Policy{Attempts: 3, Spacing: time.Millisecond}))
	return New(srv.URL+"/v4", WithFetcher(f)), rec
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func emptyResult(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"data": []any{}, "pagination": map[string]any{"last_visible_page": 1}})
}

// ─── URL construction tests ──────────────────────────────────────────────────

func TestURLs(t *testing.T) {
	c := New("https://api.jikan.moe/v4/")

	assert.Equal(t, "https://api.jikan.moe/v4/anime?q=one+piece&page=2&sfw=true", c.SearchURL("one piece", 2, false))
	assert.Equal(t, "https://api.jikan.moe/v4/top/anime?&page=1&sfw=false", c.KindURL(query.Top, 0, true))
	assert.Equal(t, "https://api.jikan.moe/v4/seasons/now?&page=3&sfw=true", c.KindURL(query.Seasonal, 3, false))
	assert.Equal(t,
		"https://api.jikan.moe/v4/anime?genres=1&order_by=score&sort=desc&page=1&sfw=true",
		c.KindURL(query.GenreKind(1), 1, false))

	f := query.Filter{}.WithStartYear(2010).AddGenre(query.Genre{MalID: 1}).AddGenre(query.Genre{MalID: 4})
	s := query.Sort{}.WithOrderBy(query.OrderByRank).WithDirection(query.Asc)
	assert.Equal(t,
		"https://api.jikan.moe/v4/anime?sfw=true&page=4&start_date=2010-01-01&genres=1,4&sort=asc&order_by=rank",
		c.ExploreURL(f, s, 4, false))
}

func TestNew_DefaultBaseURL(t *testing.T) {
	c := New("")
	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.NotNil(t, c.Fetch)
}

// ─── Listing tests ───────────────────────────────────────────────────────────

func TestSearch(t *testing.T) {
	c, rec := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"data":       []any{map[string]any{"mal_id": 21, "titles": []any{map[string]any{"type": "Default", "title": "One Piece"}}}},
			"pagination": map[string]any{"last_visible_page": 7, "has_next_page": true, "current_page": 1},
		})
	}))

	res, err := c.Search(context.Background(), "one piece", 1, false)
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "One Piece", res.Data[0].DefaultTitle())
	assert.Equal(t, 7, res.Pagination.LastVisiblePage)
	assert.Equal(t, []string{"/v4/anime?q=one+piece&page=1&sfw=true"}, rec.all())
}

func TestSearch_EmptyQuery(t *testing.T) {
	c, rec := newTestClient(t, http.HandlerFunc(emptyResult))
	_, err := c.Search(context.Background(), "  ", 1, false)
	assert.Error(t, err)
	assert.Empty(t, rec.all())
}

func TestByKind_Invalid(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(emptyResult))
	_, err := c.ByKind(context.Background(), query.ResultKind{}, 1, false)
	assert.ErrorIs(t, err, query.ErrInvalidKind)
}

func TestTopAndSeasonal(t *testing.T) {
	c, rec := newTestClient(t, http.HandlerFunc(emptyResult))
	_, err := c.Top(context.Background(), 2, false)
	require.NoError(t, err)
	_, err = c.Seasonal(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"/v4/top/anime?&page=2&sfw=true", "/v4/seasons/now?&page=1&sfw=false"}, rec.all())
}

func TestHome_FetchesBothLists(t *testing.T) {
	c, rec := newTestClient(t, http.HandlerFunc(emptyResult))
	_, err := c.Home(context.Background(), false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/v4/seasons/now?sfw=true", "/v4/top/anime?sfw=true"}, rec.all())
}

func TestHome_PropagatesFailure(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v4/top") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		emptyResult(w, r)
	}))
	_, err := c.Home(context.Background(), false)
	assert.True(t, errors.Is(err, fetch.ErrServiceUnavailable))
}

// ─── Details tests ───────────────────────────────────────────────────────────

// detailsServer answers the four detail endpoints. Episode pages hold
// perPage entries except the last one, which holds lastLen.
func detailsServer(episodes any, typ string, lastPage, lastLen int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/full"):
			writeJSON(w, map[string]any{"data": map[string]any{
				"mal_id": 5, "titles": []any{map[string]any{"type": "Default", "title": "T"}},
				"episodes": episodes, "type": typ, "theme": map[string]any{"openings": []string{}, "endings": []string{}},
			}})
		case strings.HasSuffix(r.URL.Path, "/characters"):
			writeJSON(w, map[string]any{"data": []any{map[string]any{"character": map[string]any{"mal_id": 1, "name": "Frieren"}, "role": "Main"}}})
		case strings.HasSuffix(r.URL.Path, "/recommendations"):
			writeJSON(w, map[string]any{"data": []any{}})
		case strings.HasSuffix(r.URL.Path, "/episodes"):
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			n := episodesPerPage
			if page == lastPage {
				n = lastLen
			}
			eps := make([]map[string]any, n)
			for i := range eps {
				eps[i] = map[string]any{"mal_id": i + 1, "title": fmt.Sprintf("Episode %d", i+1)}
			}
			writeJSON(w, map[string]any{"data": eps, "pagination": map[string]any{"last_visible_page": lastPage, "has_next_page": page < lastPage}})
		default:
			http.NotFound(w, r)
		}
	}
}

func TestDetails_AnnouncedCount(t *testing.T) {
	c, rec := newTestClient(t, detailsServer(12, "TV", 1, 12))
	d, err := c.Details(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 12, d.TotalEpisodes)
	assert.Len(t, d.Characters, 1)
	assert.Len(t, rec.all(), 4)
}

func TestDetails_UnannouncedMultiPage(t *testing.T) {
	c, rec := newTestClient(t, detailsServer(nil, "TV", 11, 42))
	d, err := c.Details(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1042, d.TotalEpisodes)
	assert.Contains(t, rec.all(), "/v4/anime/5/episodes?page=11")
	assert.Len(t, rec.all(), 5)
}

func TestDetails_UnannouncedSinglePage(t *testing.T) {
	c, _ := newTestClient(t, detailsServer(nil, "TV", 1, 7))
	d, err := c.Details(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 7, d.TotalEpisodes)
}

func TestDetails_MovieHasNoEpisodeCount(t *testing.T) {
	c, _ := newTestClient(t, detailsServer(1, "Movie", 1, 1))
	d, err := c.Details(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 0, d.TotalEpisodes)
}

func TestDetails_NotFound(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())
	_, err := c.Details(context.Background(), 404)
	assert.Equal(t, fetch.KindNotFound, fetch.KindOf(err))
}

func TestDetails_RequiresID(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())
	_, err := c.Details(context.Background(), 0)
	assert.Error(t, err)
}

func TestTotalEpisodes(t *testing.T) {
	u := func(n uint16) *uint16 { return &n }
	s := func(v string) *string { return &v }
	page := func(n, last int) EpisodePage {
		return EpisodePage{Data: make([]Episode, n), Pagination: EpisodePagination{LastVisiblePage: last}}
	}

	assert.Equal(t, 24, TotalEpisodes(Anime{Episodes: u(24), Type: s("TV")}, page(24, 1), 0))
	assert.Equal(t, 0, TotalEpisodes(Anime{Episodes: u(1), Type: s("Movie")}, page(1, 1), 0))
	assert.Equal(t, 3, TotalEpisodes(Anime{}, page(3, 1), 0))
	assert.Equal(t, 0, TotalEpisodes(Anime{}, page(0, 0), 0))
	assert.Equal(t, 250, TotalEpisodes(Anime{Episodes: u(0)}, page(100, 3), 50))
	assert.Equal(t, 13, TotalEpisodes(Anime{Episodes: u(13)}, page(13, 1), 0))
}

// ─── Limiter tests ───────────────────────────────────────────────────────────

func TestLimiter_NilNeverBlocks(t *testing.T) {
	var l *Limiter
	assert.NoError(t, l.Wait(context.Background()))
	l.Stop()
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := NewRPS(1)
	defer l.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestLimiter_Spacing(t *testing.T) {
	l := NewRPS(50)
	defer l.Stop()
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestLimiter_ThrottlesRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	const interval = 50 * time.Millisecond
	l := NewRPS(int(time.Second / interval))
	defer l.Stop()
	hc := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
	f := fetch.New(fetch.WithHTTPClient(hc), fetch.WithPolicy(fetch.Policy{Attempts: 4, Spacing: 0}))
	c := New(srv.URL, WithFetcher(f), WithLimiter(l))

	start := time.Now()
	_, err := c.Top(context.Background(), 1, false)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, fetch.ErrServiceUnavailable)
	assert.EqualValues(t, 4, hits.Load())
	assert.GreaterOrEqual(t, elapsed, 3*interval)
	assert.LessOrEqual(t, int64(hits.Load()), int64(elapsed/interval)+1)
	assert.Nil(t, f.BeforeAttempt, "shared fetcher must not inherit the limiter")
}

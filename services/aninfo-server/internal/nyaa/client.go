// Package nyaa searches the nyaa.si torrent index for anime releases.
package nyaa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/example/aninfo/internal/contract"
)

const DefaultBaseURL = "https://nyaa.si"

// CategoryAnimeEnglish is "Anime - English-translated".
const CategoryAnimeEnglish = "1_2"

var ErrEmptyTitle = errors.New("nyaa: title is required")

type ClientConfig struct {
	UserAgent      string
	MaxRetries     int
	RetryBaseDelay time.Duration
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Config     ClientConfig
	CB         *gobreaker.CircuitBreaker
	Log        *zap.Logger
}

type Option func(*Client)

func WithCircuitBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.CB = cb }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.Log = log }
}

func New(baseURL string, cfg ClientConfig, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "aninfo-server/1.0"
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Config:     cfg,
		Log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewBreaker trips after failures consecutive errors.
func NewBreaker(name string, maxRequests uint32, interval, timeout time.Duration, failures uint32, log *zap.Logger) *gobreaker.CircuitBreaker {
	if log == nil {
		log = zap.NewNop()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit-breaker state change", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
}

// Search looks up releases for req, retrying with the English title when
// the default title finds nothing.
func (c *Client) Search(ctx context.Context, req contract.TorrentRequest) ([]contract.Torrent, error) {
	q := Query(req.TtlDef, req)
	if q == "" {
		return nil, ErrEmptyTitle
	}
	out, err := c.search(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		return out, nil
	}
	en := strings.TrimSpace(req.TtlEn)
	if en == "" || strings.EqualFold(en, strings.TrimSpace(req.TtlDef)) {
		return out, nil
	}
	c.Log.Debug("nyaa: falling back to english title", zap.String("title", en))
	return c.search(ctx, Query(en, req))
}

// Query builds the search terms: title, episode marker unless the whole
// series is wanted, then filter keywords.
func Query(title string, req contract.TorrentRequest) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(title)
	if !req.WantsFull() && req.Eps > 0 {
		fmt.Fprintf(&b, " - %02d", req.Eps)
	}
	for _, f := range req.Filter {
		if kw := keyword(f); kw != "" {
			b.WriteByte(' ')
			b.WriteString(kw)
		}
	}
	return b.String()
}

func keyword(f contract.Filter) string {
	switch f {
	case contract.FilterBDRip:
		return "BDRip"
	case contract.FilterHEVC:
		return "HEVC"
	case contract.FilterDDP:
		return "DDP|AC3|E-AC3"
	case contract.FilterAMZN:
		return "AMZN"
	case contract.FilterFLAC:
		return "FLAC"
	default:
		return ""
	}
}

// SearchURL is the listing URL for q, sorted by seeders.
func (c *Client) SearchURL(q string) string {
	v := url.Values{}
	v.Set("f", "0")
	v.Set("c", CategoryAnimeEnglish)
	v.Set("q", q)
	v.Set("s", "seeders")
	v.Set("o", "desc")
	return c.BaseURL + "/?" + v.Encode()
}

func (c *Client) search(ctx context.Context, q string) ([]contract.Torrent, error) {
	u := c.SearchURL(q)
	if c.CB == nil {
		return c.fetchWithRetry(ctx, u)
	}
	result, err := c.CB.Execute(func() (interface{}, error) {
		return c.fetchWithRetry(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return result.([]contract.Torrent), nil
}

func (c *Client) fetchWithRetry(ctx context.Context, u string) ([]contract.Torrent, error) {
	var lastErr error
	for attempt := 0; attempt <= c.Config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.Config.RetryBaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			c.Log.Debug("retrying request", zap.String("url", u), zap.Int("attempt", attempt), zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		out, err := c.fetch(ctx, u)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		c.Log.Warn("request failed", zap.String("url", u), zap.Int("attempt", attempt), zap.Error(err))
	}
	return nil, lastErr
}

func (c *Client) fetch(ctx context.Context, u string) ([]contract.Torrent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("User-Agent", c.Config.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("nyaa: status %d body=%q", resp.StatusCode, string(b))
	}
	return ParseResults(io.LimitReader(resp.Body, 4<<20), c.BaseURL)
}

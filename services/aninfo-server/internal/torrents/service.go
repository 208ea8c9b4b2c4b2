// Package torrents answers torrent lookups through a cache in front of the
// nyaa index.
package torrents

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/aninfo/internal/contract"
)

// InvalidateSubject carries a cache key to drop, or "ALL".
const InvalidateSubject = "aninfo.torrents.invalidate"

// Searcher is satisfied by *nyaa.Client.
type Searcher interface {
	Search(ctx context.Context, req contract.TorrentRequest) ([]contract.Torrent, error)
}

type Service struct {
	Index Searcher
	Cache Cache
	Log   *zap.Logger
}

func NewService(index Searcher, cache Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Index: index, Cache: cache, Log: log}
}

// Key normalizes a request so equivalent lookups share a cache entry.
// Episode is dropped for whole-series lookups and filters are order-free.
func Key(req contract.TorrentRequest) string {
	eps := strconv.Itoa(int(req.Eps))
	if req.WantsFull() {
		eps = "all"
	}
	filters := make([]string, 0, len(req.Filter))
	for _, f := range req.Filter {
		filters = append(filters, string(f))
	}
	slices.Sort(filters)
	filters = slices.Compact(filters)

	return strings.Join([]string{
		strings.ToLower(strings.Join(strings.Fields(req.TtlDef), " ")),
		strings.ToLower(strings.Join(strings.Fields(req.TtlEn), " ")),
		eps,
		strings.Join(filters, ","),
	}, "|")
}

// Find serves req from cache or the index. Cache failures are logged and
// bypassed.
func (s *Service) Find(ctx context.Context, req contract.TorrentRequest) ([]contract.Torrent, error) {
	key := Key(req)
	if s.Cache != nil {
		list, ok, err := s.Cache.Get(ctx, key)
		if err != nil {
			s.Log.Warn("torrent cache get", zap.String("key", key), zap.Error(err))
		} else if ok {
			return list, nil
		}
	}

	start := time.Now()
	list, err := s.Index.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	s.Log.Debug("torrent index searched", zap.String("key", key), zap.Int("results", len(list)), zap.Duration("latency", time.Since(start)))

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, key, list); err != nil {
			s.Log.Warn("torrent cache set", zap.String("key", key), zap.Error(err))
		}
	}
	return list, nil
}

// Invalidate drops key, or every entry when key is empty or "ALL".
func (s *Service) Invalidate(ctx context.Context, key string) error {
	if s.Cache == nil {
		return nil
	}
	if isFlushAll(key) {
		return s.Cache.Flush(ctx)
	}
	return s.Cache.Delete(ctx, strings.TrimSpace(key))
}

// SubscribeInvalidation wires InvalidateSubject to Invalidate.
func (s *Service) SubscribeInvalidation(nc *nats.Conn) (*nats.Subscription, error) {
	return nc.Subscribe(InvalidateSubject, func(m *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Invalidate(ctx, string(m.Data)); err != nil {
			s.Log.Warn("torrent cache invalidate", zap.String("key", string(m.Data)), zap.Error(err))
		}
	})
}

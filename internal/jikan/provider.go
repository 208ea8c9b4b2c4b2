package jikan

import (
	"context"

	"github.com/example/aninfo/internal/query"
)

// Provider is the port for fetching anime data from the Jikan/MAL API.
type Provider interface {
	Home(ctx context.Context, nsfw bool) (Home, error)
	Search(ctx context.Context, q string, page int, nsfw bool) (QueryResult, error)
	ByKind(ctx context.Context, kind query.ResultKind, page int, nsfw bool) (QueryResult, error)
	Explore(ctx context.Context, f query.Filter, s query.Sort, page int, nsfw bool) (QueryResult, error)
	Details(ctx context.Context, malID uint64) (Details, error)
	Episodes(ctx context.Context, malID uint64, page int) (EpisodePage, error)
}

var _ Provider = (*Client)(nil)

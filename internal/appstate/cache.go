package appstate

import "github.com/example/aninfo/internal/jikan"

// Cache keeps the last response of each view. Slots are replaced, never
// edited in place.
type Cache struct {
	AnimeDetails *jikan.Details     `json:"anime_details,omitempty"`
	SearchResult *jikan.QueryResult `json:"search_result,omitempty"`
	AnimeResult  *jikan.QueryResult `json:"anime_result,omitempty"`
	HomePage     *jikan.Home        `json:"home_page,omitempty"`
}

func (c Cache) WithAnimeDetails(d *jikan.Details) Cache {
	c.AnimeDetails = d
	return c
}

func (c Cache) WithSearchResult(r *jikan.QueryResult) Cache {
	c.SearchResult = r
	return c
}

func (c Cache) WithAnimeResult(r *jikan.QueryResult) Cache {
	c.AnimeResult = r
	return c
}

func (c Cache) WithHomePage(h *jikan.Home) Cache {
	c.HomePage = h
	return c
}

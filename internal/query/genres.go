package query

import (
	_ "embed"
	"encoding/json"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Genre is a MyAnimeList genre, theme or demographic.
type Genre struct {
	MalID uint32 `json:"mal_id"`
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
	Count int    `json:"count,omitempty"`
}

//go:embed genres.json
var genresJSON []byte

var catalogue = mustLoadGenres(genresJSON)

func mustLoadGenres(raw []byte) []Genre {
	var out []Genre
	if err := json.Unmarshal(raw, &out); err != nil {
		panic("query: invalid embedded genre catalogue: " + err.Error())
	}
	return out
}

// Genres returns a copy of the embedded catalogue in display order.
func Genres() []Genre {
	out := make([]Genre, len(catalogue))
	copy(out, catalogue)
	return out
}

func GenreByID(id uint32) (Genre, bool) {
	for _, g := range catalogue {
		if g.MalID == id {
			return g, true
		}
	}
	return Genre{}, false
}

// FindGenres ranks catalogue entries by fuzzy match against term.
// An exact (case-insensitive) name match is always first.
func FindGenres(term string) []Genre {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	names := make([]string, len(catalogue))
	for i, g := range catalogue {
		names[i] = g.Name
	}
	ranks := fuzzy.RankFindFold(term, names)
	sort.SliceStable(ranks, func(i, j int) bool {
		ei := strings.EqualFold(ranks[i].Target, term)
		ej := strings.EqualFold(ranks[j].Target, term)
		if ei != ej {
			return ei
		}
		return ranks[i].Distance < ranks[j].Distance
	})
	out := make([]Genre, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, catalogue[r.OriginalIndex])
	}
	return out
}

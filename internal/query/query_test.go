package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	action  = Genre{MalID: 1, Name: "Action"}
	comedy  = Genre{MalID: 4, Name: "Comedy"}
	drama   = Genre{MalID: 8, Name: "Drama"}
	horror  = Genre{MalID: 14, Name: "Horror"}
	romance = Genre{MalID: 22, Name: "Romance"}
)

// ─── Genre catalogue tests ───────────────────────────────────────────────────

func TestGenres_CatalogueLoaded(t *testing.T) {
	gs := Genres()
	require.Len(t, gs, 76)
	assert.Equal(t, "Action", gs[0].Name)

	seen := map[uint32]bool{}
	for _, g := range gs {
		assert.False(t, seen[g.MalID], "duplicate id %d", g.MalID)
		seen[g.MalID] = true
	}
}

func TestGenres_ReturnsCopy(t *testing.T) {
	gs := Genres()
	gs[0].Name = "mutated"
	assert.Equal(t, "Action", Genres()[0].Name)
}

func TestGenreByID(t *testing.T) {
	g, ok := GenreByID(27)
	require.True(t, ok)
	assert.Equal(t, "Shounen", g.Name)

	_, ok = GenreByID(99999)
	assert.False(t, ok)
}

func TestFindGenres(t *testing.T) {
	got := FindGenres("shounen")
	require.NotEmpty(t, got)
	assert.Equal(t, "Shounen", got[0].Name)

	got = FindGenres("scifi")
	require.NotEmpty(t, got)
	assert.Equal(t, "Sci-Fi", got[0].Name)

	assert.Empty(t, FindGenres("   "))
	assert.Empty(t, FindGenres("zzzzqqq"))
}

// ─── Filter tests ────────────────────────────────────────────────────────────

func TestFilter_EmptyParams(t *testing.T) {
	assert.Equal(t, "", Filter{}.Params())
}

func TestFilter_Years(t *testing.T) {
	f := Filter{}.WithStartYear(2009).WithEndYear(2013)
	assert.Equal(t, "&start_date=2009-01-01&end_date=2013-12-31", f.Params())

	f = f.WithoutStartYear()
	assert.Equal(t, "&end_date=2013-12-31", f.Params())
	assert.Equal(t, "", f.WithoutEndYear().Params())
}

func TestFilter_GenreLists(t *testing.T) {
	f := Filter{}.AddGenre(action).AddGenre(comedy).
		AddExcludedGenre(horror).AddExcludedGenre(drama).AddExcludedGenre(romance)
	assert.Equal(t, "&genres=1,4&genres_exclude=14,8,22", f.Params())
}

func TestFilter_ExcludedListIndependentOfIncluded(t *testing.T) {
	f := Filter{}.AddGenre(action).AddExcludedGenre(horror).AddExcludedGenre(drama)
	assert.Equal(t, "&genres=1&genres_exclude=14,8", f.Params())
}

func TestFilter_RemoveAndReset(t *testing.T) {
	f := Filter{}.AddGenre(action).AddGenre(comedy).AddExcludedGenre(horror)
	assert.Equal(t, []Genre{comedy}, f.RemoveGenre(action).Genres)
	assert.Empty(t, f.ResetGenres().Genres)
	assert.Empty(t, f.RemoveExcludedGenre(horror).GenresExclude)
	assert.Empty(t, f.ResetExcludedGenres().GenresExclude)
}

func TestFilter_CopyOnWrite(t *testing.T) {
	base := Filter{}.AddGenre(action)
	derived := base.AddGenre(comedy).WithStartYear(2020)

	assert.Len(t, base.Genres, 1)
	assert.Nil(t, base.StartDate)
	assert.Len(t, derived.Genres, 2)

	removed := derived.RemoveGenre(action)
	assert.Equal(t, []Genre{action, comedy}, derived.Genres)
	assert.Equal(t, []Genre{comedy}, removed.Genres)
}

// ─── Sort tests ──────────────────────────────────────────────────────────────

func TestSort_Defaults(t *testing.T) {
	assert.Equal(t, "&sort=desc&order_by=score", Sort{}.Params())
}

func TestSort_With(t *testing.T) {
	s := Sort{}.WithDirection(Asc).WithOrderBy(OrderByStartDate)
	assert.Equal(t, "&sort=asc&order_by=start_date", s.Params())
	assert.Equal(t, "&sort=desc&order_by=rank", s.WithDirection(Desc).WithOrderBy(OrderByRank).Params())
}

func TestParseSortParts(t *testing.T) {
	d, err := ParseDirection("ASC")
	require.NoError(t, err)
	assert.Equal(t, Asc, d)

	o, err := ParseOrderBy("rank")
	require.NoError(t, err)
	assert.Equal(t, OrderByRank, o)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
	_, err = ParseOrderBy("popularity")
	assert.Error(t, err)
}

func TestSFWParam(t *testing.T) {
	assert.Equal(t, "&sfw=true", SFWParam(false))
	assert.Equal(t, "&sfw=false", SFWParam(true))
}

// ─── ResultKind tests ────────────────────────────────────────────────────────

func TestResultKind_RoundTrip(t *testing.T) {
	for _, raw := range []string{"top", "seasonal", "genre/10", "producer/569"} {
		k, err := ParseResultKind(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, raw, k.String())
	}
}

func TestResultKind_Invalid(t *testing.T) {
	for _, raw := range []string{"", "bottom", "genre/", "genre/x", "studio/3", "producer/-1"} {
		_, err := ParseResultKind(raw)
		assert.ErrorIs(t, err, ErrInvalidKind, raw)
	}
}

func TestResultKind_Link(t *testing.T) {
	assert.Equal(t, "top/anime?", Top.Link())
	assert.Equal(t, "seasons/now?", Seasonal.Link())
	assert.Equal(t, "anime?genres=10&order_by=score&sort=desc", GenreKind(10).Link())
	assert.Equal(t, "anime?producers=569&order_by=score&sort=desc", ProducerKind(569).Link())
	assert.Equal(t, "", ResultKind{}.Link())
}

func TestResultKind_Text(t *testing.T) {
	var k ResultKind
	require.NoError(t, k.UnmarshalText([]byte("genre/1")))
	assert.Equal(t, GenreKind(1), k)

	b, err := k.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "genre/1", string(b))

	_, err = ResultKind{}.MarshalText()
	assert.Error(t, err)
}

package query

import (
	"slices"
	"strconv"
	"strings"
)

// Filter narrows an explore query. Every With*/Add*/Remove* method returns a
// new value; the receiver is never modified.
type Filter struct {
	StartDate     *string `json:"start_date,omitempty"`
	EndDate       *string `json:"end_date,omitempty"`
	Genres        []Genre `json:"genres,omitempty"`
	GenresExclude []Genre `json:"genres_exclude,omitempty"`
}

func (f Filter) clone() Filter {
	return Filter{
		StartDate:     f.StartDate,
		EndDate:       f.EndDate,
		Genres:        slices.Clone(f.Genres),
		GenresExclude: slices.Clone(f.GenresExclude),
	}
}

func (f Filter) WithStartYear(year int) Filter {
	out := f.clone()
	d := strconv.Itoa(year) + "-01-01"
	out.StartDate = &d
	return out
}

func (f Filter) WithoutStartYear() Filter {
	out := f.clone()
	out.StartDate = nil
	return out
}

func (f Filter) WithEndYear(year int) Filter {
	out := f.clone()
	d := strconv.Itoa(year) + "-12-31"
	out.EndDate = &d
	return out
}

func (f Filter) WithoutEndYear() Filter {
	out := f.clone()
	out.EndDate = nil
	return out
}

func (f Filter) AddGenre(g Genre) Filter {
	out := f.clone()
	out.Genres = append(out.Genres, g)
	return out
}

func (f Filter) RemoveGenre(g Genre) Filter {
	out := f.clone()
	out.Genres = slices.DeleteFunc(out.Genres, func(v Genre) bool { return v.MalID == g.MalID })
	return out
}

func (f Filter) ResetGenres() Filter {
	out := f.clone()
	out.Genres = nil
	return out
}

func (f Filter) AddExcludedGenre(g Genre) Filter {
	out := f.clone()
	out.GenresExclude = append(out.GenresExclude, g)
	return out
}

func (f Filter) RemoveExcludedGenre(g Genre) Filter {
	out := f.clone()
	out.GenresExclude = slices.DeleteFunc(out.GenresExclude, func(v Genre) bool { return v.MalID == g.MalID })
	return out
}

func (f Filter) ResetExcludedGenres() Filter {
	out := f.clone()
	out.GenresExclude = nil
	return out
}

// Params renders the filter as a query-string suffix, each pair prefixed by '&'.
func (f Filter) Params() string {
	var b strings.Builder
	if f.StartDate != nil {
		b.WriteString("&start_date=" + *f.StartDate)
	}
	if f.EndDate != nil {
		b.WriteString("&end_date=" + *f.EndDate)
	}
	if len(f.Genres) > 0 {
		b.WriteString("&genres=" + joinIDs(f.Genres))
	}
	if len(f.GenresExclude) > 0 {
		b.WriteString("&genres_exclude=" + joinIDs(f.GenresExclude))
	}
	return b.String()
}

func joinIDs(gs []Genre) string {
	ids := make([]string, len(gs))
	for i, g := range gs {
		ids[i] = strconv.FormatUint(uint64(g.MalID), 10)
	}
	return strings.Join(ids, ",")
}

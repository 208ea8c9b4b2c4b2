// Package present holds the display rules shared by every renderer: which
// title to show, how to abbreviate counts, how to read theme songs.
package present

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/aninfo/internal/appstate"
	"github.com/example/aninfo/internal/jikan"
)

// Title picks the display title for lang. English prefers title_english;
// Japanese prefers title_japanese, then title_english. Both fall back to the
// default title.
func Title(a jikan.Anime, lang appstate.Language) string {
	if lang == appstate.JP && a.TitleJapanese != nil {
		return *a.TitleJapanese
	}
	if a.TitleEnglish != nil {
		return *a.TitleEnglish
	}
	return a.DefaultTitle()
}

func EpisodeTitle(ep jikan.Episode, lang appstate.Language) string {
	if lang == appstate.JP && ep.TitleJapanese != nil {
		return *ep.TitleJapanese
	}
	return ep.Title
}

// RatingSuffix abbreviates the number of scorers: " (2m)", " (15k)", " (830)".
func RatingSuffix(scoredBy *uint64) string {
	if scoredBy == nil {
		return ""
	}
	n := *scoredBy
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf(" (%dm)", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf(" (%dk)", n/1_000)
	default:
		return fmt.Sprintf(" (%d)", n)
	}
}

// SeasonFromMonth maps a two-digit month ("01".."12") to its anime season.
func SeasonFromMonth(m string) string {
	switch m {
	case "01", "02", "03":
		return "Winter"
	case "04", "05", "06":
		return "Spring"
	case "07", "08", "09":
		return "Summer"
	case "10", "11", "12":
		return "Fall"
	default:
		return "Invalid Season"
	}
}

// SeasonLabel renders "Fall 2024" for t.
func SeasonLabel(t time.Time) string {
	return fmt.Sprintf("%s %d", SeasonFromMonth(t.Format("01")), t.Year())
}

// Image prefers the webp cover and falls back to jpg.
func Image(a jikan.Anime) string {
	if u := a.Images.WebP.ImageURL; u != nil && *u != "" {
		return *u
	}
	if u := a.Images.JPG.ImageURL; u != nil {
		return *u
	}
	return ""
}

// Condensation tiers for long titles.
const (
	Normal        = ""
	Condensed     = "condensed"
	CondensedMore = "condensed-more"
)

type thresholds struct{ more, condensed int }

var titleTiers = map[bool]map[appstate.Language]thresholds{
	false: {appstate.EN: {65, 50}, appstate.JP: {40, 30}},
	true:  {appstate.EN: {50, 35}, appstate.JP: {30, 20}},
}

// Condense returns the tier a title of this byte length falls into.
// compact selects the tighter card layout.
func Condense(title string, lang appstate.Language, compact bool) string {
	t, ok := titleTiers[compact][lang]
	if !ok {
		t = titleTiers[compact][appstate.EN]
	}
	switch n := len(title); {
	case n >= t.more:
		return CondensedMore
	case n >= t.condensed:
		return Condensed
	default:
		return Normal
	}
}

// CondenseName tiers character names by rune count.
func CondenseName(name string) string {
	switch n := utf8.RuneCountInString(name); {
	case n > 24:
		return CondensedMore
	case n > 18:
		return Condensed
	default:
		return Normal
	}
}

var ErrThemeSong = errors.New("present: unrecognised theme song")

type ThemeSong struct {
	Title  string
	Artist string
	Eps    *string
}

// ParseThemeSong reads Jikan's `1: "Title" by Artist (eps 1-12)` form.
// The episode range is optional.
func ParseThemeSong(s string) (ThemeSong, error) {
	open := strings.IndexByte(s, '"')
	if open < 0 {
		return ThemeSong{}, ErrThemeSong
	}
	rest := s[open+1:]
	by := strings.Index(rest, "\" by ")
	if by < 0 {
		return ThemeSong{}, ErrThemeSong
	}
	song := ThemeSong{Title: rest[:by]}
	artist := rest[by+len("\" by "):]
	if i := strings.LastIndex(artist, "(eps"); i >= 0 {
		eps := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(artist[i+len("(eps"):]), ")"))
		song.Eps = &eps
		artist = artist[:i]
	}
	song.Artist = strings.TrimSpace(artist)
	return song, nil
}

// SearchLinks returns YouTube and Spotify search URLs for the song.
func (t ThemeSong) SearchLinks() (youtube, spotify string) {
	q := strings.TrimSpace(t.Title + " " + t.Artist)
	return "https://www.youtube.com/results?search_query=" + url.QueryEscape(q),
		"https://open.spotify.com/search/" + url.PathEscape(q)
}

package jikan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type Image struct {
	ImageURL      *string `json:"image_url"`
	SmallImageURL *string `json:"small_image_url"`
	LargeImageURL *string `json:"large_image_url"`
}

type Images struct {
	JPG  Image `json:"jpg"`
	WebP Image `json:"webp"`
}

type Title struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

// MALObject is a reference to a studio, genre, theme or producer.
type MALObject struct {
	MalID uint32 `json:"mal_id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

type Aired struct {
	From *string `json:"from"`
}

// Status is the airing state reported by Jikan.
type Status int

const (
	FinishedAiring Status = iota + 1
	CurrentlyAiring
	NotYetAired
)

var statusNames = map[Status]string{
	FinishedAiring:  "Finished Airing",
	CurrentlyAiring: "Currently Airing",
	NotYetAired:     "Not yet aired",
}

func (s Status) String() string {
	return statusNames[s]
}

func (s Status) MarshalJSON() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("jikan: invalid status %d", int(s))
	}
	return json.Marshal(name)
}

// UnmarshalJSON accepts only the three Jikan status strings.
func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("jikan: status: %w", err)
	}
	for k, v := range statusNames {
		if v == raw {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("jikan: unknown status %q", raw)
}

// Score is a rating Jikan sends either as a number or as a string.
// It is kept in its textual form.
type Score string

func (s *Score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = Score(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("jikan: score: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*s = Score(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("jikan: score: %w", err)
	}
	*s = Score(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

type Anime struct {
	MalID         uint64      `json:"mal_id"`
	URL           string      `json:"url"`
	Images        Images      `json:"images"`
	Approved      bool        `json:"approved"`
	Titles        []Title     `json:"titles"`
	TitleEnglish  *string     `json:"title_english"`
	TitleJapanese *string     `json:"title_japanese"`
	Source        *string     `json:"source"`
	Episodes      *uint16     `json:"episodes"`
	Status        *Status     `json:"status"`
	Airing        bool        `json:"airing"`
	Score         *Score      `json:"score"`
	ScoredBy      *uint64     `json:"scored_by"`
	Rank          *uint32     `json:"rank"`
	Popularity    *uint32     `json:"popularity"`
	Year          *uint32     `json:"year"`
	Type          *string     `json:"type"`
	Synopsis      *string     `json:"synopsis"`
	Background    *string     `json:"background"`
	Studios       []MALObject `json:"studios"`
	Genres        []MALObject `json:"genres"`
	Season        *string     `json:"season"`
	Themes        []MALObject `json:"themes"`
	Aired         Aired       `json:"aired"`
}

// DefaultTitle is the first listed title, or "" when Jikan sent none.
func (a Anime) DefaultTitle() string {
	if len(a.Titles) == 0 {
		return ""
	}
	return a.Titles[0].Title
}

type ThemeSongs struct {
	Openings []string `json:"openings"`
	Endings  []string `json:"endings"`
}

// AnimeFull is the /anime/{id}/full payload.
type AnimeFull struct {
	Anime
	Theme ThemeSongs `json:"theme"`
}

type PaginationItems struct {
	Count   int `json:"count"`
	Total   int `json:"total"`
	PerPage int `json:"per_page"`
}

type Pagination struct {
	LastVisiblePage int             `json:"last_visible_page"`
	HasNextPage     bool            `json:"has_next_page"`
	CurrentPage     int             `json:"current_page"`
	Items           PaginationItems `json:"items"`
}

// QueryResult is a page of anime from any listing endpoint.
type QueryResult struct {
	Data       []Anime    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type CharacterImages struct {
	JPG  Image `json:"jpg"`
	WebP Image `json:"webp"`
}

type Character struct {
	MalID  uint32          `json:"mal_id"`
	URL    string          `json:"url"`
	Images CharacterImages `json:"images"`
	Name   string          `json:"name"`
}

type CharacterRole struct {
	Character Character `json:"character"`
	Role      string    `json:"role"`
}

type Episode struct {
	MalID         uint32  `json:"mal_id"`
	URL           *string `json:"url"`
	Title         string  `json:"title"`
	TitleJapanese *string `json:"title_japanese"`
	TitleRomanji  *string `json:"title_romanji"`
	Aired         *string `json:"aired"`
	ForumURL      *string `json:"forum_url"`
}

type EpisodePagination struct {
	LastVisiblePage int  `json:"last_visible_page"`
	HasNextPage     bool `json:"has_next_page"`
}

type EpisodePage struct {
	Data       []Episode         `json:"data"`
	Pagination EpisodePagination `json:"pagination"`
}

type RecommendationEntry struct {
	MalID  uint32 `json:"mal_id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Images Images `json:"images"`
}

type Recommendation struct {
	Entry RecommendationEntry `json:"entry"`
}

// Details joins everything the detail view shows for one anime.
type Details struct {
	Anime           AnimeFull        `json:"anime"`
	Characters      []CharacterRole  `json:"characters"`
	Episodes        EpisodePage      `json:"episodes"`
	Recommendations []Recommendation `json:"recommendations"`
	TotalEpisodes   int              `json:"total_episodes"`
}

// Home is the landing page pair: current season and all-time top.
type Home struct {
	Seasonal QueryResult `json:"seasonal"`
	Top      QueryResult `json:"top"`
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

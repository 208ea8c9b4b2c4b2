// Package contract holds the JSON types and routes shared by the aninfo
// client and the aninfo-server backend.
package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const APIPrefix = "/api/v1"

// Routes relative to APIPrefix.
const (
	RouteRegister    = "/users/register"
	RouteLogin       = "/users/login"
	RouteLogout      = "/users/logout"
	RouteLoginCheck  = "/login_check"
	RouteAddAnime    = "/users/add_anime"
	RouteRemoveAnime = "/users/remove_anime/{mal_id}"
	RouteComments    = "/anime/{id}/comment"
	RouteTorrent     = "/get_torrent"
	RouteTorrentFull = "/get_torrent_full"
)

// Session cookie the client persists after login.
const (
	CookieName   = "userdata"
	CookiePath   = "/"
	CookieMaxAge = 7 * 24 * time.Hour
)

// CommentDateLayout is the UTC layout of CommentGet.Date.
const CommentDateLayout = "2006-01-02 15:04:05"

// MaxCommentLen bounds a comment body in runes.
const MaxCommentLen = 1000

// RemoveAnimePath renders RouteRemoveAnime for malID.
func RemoveAnimePath(malID int32) string {
	return strings.Replace(RouteRemoveAnime, "{mal_id}", strconv.Itoa(int(malID)), 1)
}

// CommentsPath renders RouteComments for malID.
func CommentsPath(malID uint64) string {
	return strings.Replace(RouteComments, "{id}", strconv.FormatUint(malID, 10), 1)
}

type UserRequest struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

// UserAnime is one favourite as the backend stores it.
type UserAnime struct {
	AnimeID    int32   `json:"anime_id"`
	AnimeImg   *string `json:"anime_img"`
	AnimeTtlEn string  `json:"anime_ttl_en"`
	AnimeTtlJp *string `json:"anime_ttl_jp"`
}

type UserResponse struct {
	Username string      `json:"username"`
	UUID     int32       `json:"uuid"`
	FavAnime []UserAnime `json:"fav_anime"`
}

// UserAnimeSubmission adds a favourite; UUID must be the caller's own id.
type UserAnimeSubmission struct {
	UUID       int32   `json:"uuid"`
	AnimeID    int32   `json:"anime_id"`
	AnimeImg   *string `json:"anime_img"`
	AnimeTtlEn string  `json:"anime_ttl_en"`
	AnimeTtlJp *string `json:"anime_ttl_jp"`
}

func (s UserAnimeSubmission) Anime() UserAnime {
	return UserAnime{AnimeID: s.AnimeID, AnimeImg: s.AnimeImg, AnimeTtlEn: s.AnimeTtlEn, AnimeTtlJp: s.AnimeTtlJp}
}

type CommentGet struct {
	Username string `json:"username"`
	Comment  string `json:"comment"`
	Date     string `json:"date"`
}

type CommentPost struct {
	Comment string `json:"comment"`
}

// Filter narrows a torrent search. On the wire it is {"type":"BDRip"}.
type Filter string

const (
	FilterBDRip       Filter = "BDRip"
	FilterHEVC        Filter = "HEVC"
	FilterDDP         Filter = "DDP"
	FilterAMZN        Filter = "AMZN"
	FilterFLAC        Filter = "FLAC"
	FilterAllEpisodes Filter = "AllEpisodes"
)

var filterLabels = map[Filter]string{
	FilterBDRip:       "BDRip",
	FilterHEVC:        "HEVC",
	FilterDDP:         "DDP / AC3 / E-AC3",
	FilterAMZN:        "AMZN",
	FilterFLAC:        "FLAC",
	FilterAllEpisodes: "All Episodes",
}

// Filters lists every filter in menu order.
func Filters() []Filter {
	return []Filter{FilterBDRip, FilterHEVC, FilterDDP, FilterAMZN, FilterFLAC, FilterAllEpisodes}
}

func (f Filter) Valid() bool {
	_, ok := filterLabels[f]
	return ok
}

// Label is the human readable name shown in filter menus.
func (f Filter) Label() string {
	return filterLabels[f]
}

// ParseFilter accepts the wire name case-insensitively.
func ParseFilter(raw string) (Filter, error) {
	raw = strings.TrimSpace(raw)
	for _, f := range Filters() {
		if strings.EqualFold(string(f), raw) {
			return f, nil
		}
	}
	return "", fmt.Errorf("contract: unknown torrent filter %q", raw)
}

type filterWire struct {
	Type string `json:"type"`
}

func (f Filter) MarshalJSON() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("contract: unknown torrent filter %q", string(f))
	}
	return json.Marshal(filterWire{Type: string(f)})
}

func (f *Filter) UnmarshalJSON(b []byte) error {
	var w filterWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	v := Filter(w.Type)
	if !v.Valid() {
		return fmt.Errorf("contract: unknown torrent filter %q", w.Type)
	}
	*f = v
	return nil
}

type TorrentRequest struct {
	TtlDef string   `json:"ttl_def"`
	TtlEn  string   `json:"ttl_en"`
	Eps    uint16   `json:"eps"`
	Filter []Filter `json:"filter"`
}

// WantsFull reports whether the whole series, not a single episode, is wanted.
func (r TorrentRequest) WantsFull() bool {
	for _, f := range r.Filter {
		if f == FilterAllEpisodes {
			return true
		}
	}
	return false
}

type Torrent struct {
	Title       string `json:"title"`
	SizeMB      string `json:"size_mb"`
	LinkMagnet  string `json:"link_magnet"`
	LinkTorrent string `json:"link_torrent"`
	LinkView    string `json:"link_view"`
	Download    string `json:"download"`
}

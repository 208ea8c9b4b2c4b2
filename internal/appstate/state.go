// Package appstate holds the client's application context as immutable
// snapshots. Every With* method returns a new State; the receiver is left as
// it was.
package appstate

import (
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/example/aninfo/internal/contract"
)

type Session struct {
	JWT          *string              `json:"jwt,omitempty"`
	Username     *string              `json:"username,omitempty"`
	UserID       *int32               `json:"uuid,omitempty"`
	Favourites   []contract.UserAnime `json:"fav_anime,omitempty"`
	FavouriteIDs []int32              `json:"fav_anime_id,omitempty"`
}

func (s Session) LoggedIn() bool {
	return s.JWT != nil && *s.JWT != ""
}

type State struct {
	Session     Session
	Prefs       Preferences
	Page        int
	LoadingPage bool
	Query       string
	Cache       Cache

	hash uint64
}

// New returns the initial state: dark theme, English titles, page 1, safe
// search, empty query and cache.
func New() State {
	s := State{
		Prefs: Preferences{Theme: Dark, Language: EN},
		Page:  1,
	}
	s.hash = ChangeHash(s)
	return s
}

// ChangeHash digests the fields that select which listing is shown: page,
// nsfw and query. Theme, language, session and cache do not contribute.
func ChangeHash(s State) uint64 {
	d := xxhash.New()
	var buf [9]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(int64(s.Page)))
	if s.Prefs.NSFW {
		buf[8] = 1
	}
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(s.Query)
	return d.Sum64()
}

// Hash is the digest stored with this snapshot.
func (s State) Hash() uint64 {
	return s.hash
}

// HasChanged compares the stored digest with a fresh one. When they differ
// it returns true and a copy carrying the fresh digest; otherwise false and
// the receiver unchanged.
func (s State) HasChanged() (bool, State) {
	cur := ChangeHash(s)
	if cur == s.hash {
		return false, s
	}
	return true, s.WithHash(cur)
}

func (s State) clone() State {
	s.Session.Favourites = slices.Clone(s.Session.Favourites)
	s.Session.FavouriteIDs = slices.Clone(s.Session.FavouriteIDs)
	return s
}

func (s State) WithTheme(t Theme) State {
	out := s.clone()
	out.Prefs.Theme = t
	return out
}

func (s State) WithLanguage(l Language) State {
	out := s.clone()
	out.Prefs.Language = l
	return out
}

func (s State) WithPage(page int) State {
	out := s.clone()
	out.Page = page
	return out
}

func (s State) WithLoadingPage(loading bool) State {
	out := s.clone()
	out.LoadingPage = loading
	return out
}

func (s State) WithNSFW(nsfw bool) State {
	out := s.clone()
	out.Prefs.NSFW = nsfw
	return out
}

func (s State) WithQuery(q string) State {
	out := s.clone()
	out.Query = q
	return out
}

func (s State) WithHash(h uint64) State {
	out := s.clone()
	out.hash = h
	return out
}

// WithCache replaces the cache and re-stamps the digest, so a response cached
// for the current page/nsfw/query counts as up to date.
func (s State) WithCache(c Cache) State {
	out := s.clone()
	out.Cache = c
	out.hash = ChangeHash(out)
	return out
}

func (s State) WithJWT(jwt *string) State {
	out := s.clone()
	out.Session.JWT = jwt
	return out
}

func (s State) WithUsername(name *string) State {
	out := s.clone()
	out.Session.Username = name
	return out
}

func (s State) WithUserID(id *int32) State {
	out := s.clone()
	out.Session.UserID = id
	return out
}

// WithFavourites replaces the favourites and derives the sorted id index.
func (s State) WithFavourites(favs []contract.UserAnime) State {
	out := s.clone()
	if favs == nil {
		out.Session.Favourites = nil
		out.Session.FavouriteIDs = nil
		return out
	}
	out.Session.Favourites = slices.Clone(favs)
	ids := make([]int32, len(favs))
	for i, f := range favs {
		ids[i] = f.AnimeID
	}
	slices.Sort(ids)
	out.Session.FavouriteIDs = slices.Compact(ids)
	return out
}

// WithFavouriteIDs replaces only the id index; ids are sorted on the way in.
func (s State) WithFavouriteIDs(ids []int32) State {
	out := s.clone()
	if ids == nil {
		out.Session.FavouriteIDs = nil
		return out
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	out.Session.FavouriteIDs = slices.Compact(sorted)
	return out
}

// WithoutSession drops every session field.
func (s State) WithoutSession() State {
	out := s.clone()
	out.Session = Session{}
	return out
}

// IsFavourite binary-searches the sorted favourite ids.
func (s State) IsFavourite(malID int32) bool {
	_, ok := slices.BinarySearch(s.Session.FavouriteIDs, malID)
	return ok
}

// Snapshot is the persisted form of a State.
type Snapshot struct {
	Session Session     `json:"session"`
	Prefs   Preferences `json:"prefs"`
	Page    int         `json:"page"`
	Query   string      `json:"query"`
	Cache   Cache       `json:"cache"`
	Hash    uint64      `json:"hash"`
}

func (s State) Snapshot() Snapshot {
	c := s.clone()
	return Snapshot{Session: c.Session, Prefs: c.Prefs, Page: c.Page, Query: c.Query, Cache: c.Cache, Hash: c.hash}
}

// FromSnapshot restores a State including its stored digest. Missing
// preferences fall back to the initial defaults and the favourite index is
// re-sorted, since snapshots on disk may have been edited.
func FromSnapshot(snap Snapshot) State {
	s := New()
	if snap.Prefs.Theme != 0 {
		s.Prefs.Theme = snap.Prefs.Theme
	}
	if snap.Prefs.Language != 0 {
		s.Prefs.Language = snap.Prefs.Language
	}
	s.Prefs.NSFW = snap.Prefs.NSFW
	if snap.Page > 0 {
		s.Page = snap.Page
	}
	s.Query = snap.Query
	s.Session = snap.Session
	s.Cache = snap.Cache
	s.hash = snap.Hash
	return s.WithFavouriteIDs(snap.Session.FavouriteIDs)
}

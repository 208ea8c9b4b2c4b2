// Package session persists the login cookie and the application state
// snapshot between aninfo invocations.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/example/aninfo/internal/appstate"
	"github.com/example/aninfo/internal/contract"
)

var (
	bucketCookies = []byte("cookies")
	bucketState   = []byte("state")

	keySnapshot = []byte("snapshot")
)

// Cookie mirrors the browser cookie the session token used to live in.
type Cookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path"`
	Expires time.Time `json:"expires"`
}

func (c Cookie) Expired(now time.Time) bool {
	return !now.Before(c.Expires)
}

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketCookies, bucketState} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) get(bucket, key []byte, dest any) (bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get(key); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil || data == nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) put(bucket, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, data)
	})
}

func (s *Store) delete(bucket, key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete(key)
	})
}

// SaveToken stores jwt as the "userdata" cookie, valid for seven days.
func (s *Store) SaveToken(jwt string, now time.Time) error {
	c := Cookie{
		Name:    contract.CookieName,
		Value:   jwt,
		Path:    contract.CookiePath,
		Expires: now.Add(contract.CookieMaxAge),
	}
	return s.put(bucketCookies, []byte(c.Name), c)
}

// Token returns the stored session token. An expired cookie is removed and
// reported as absent.
func (s *Store) Token(now time.Time) (string, bool, error) {
	var c Cookie
	ok, err := s.get(bucketCookies, []byte(contract.CookieName), &c)
	if err != nil || !ok {
		return "", false, err
	}
	if c.Expired(now) || c.Value == "" {
		return "", false, s.ClearToken()
	}
	return c.Value, true, nil
}

func (s *Store) ClearToken() error {
	return s.delete(bucketCookies, []byte(contract.CookieName))
}

func (s *Store) SaveSnapshot(snap appstate.Snapshot) error {
	return s.put(bucketState, keySnapshot, snap)
}

// LoadSnapshot returns the last saved snapshot. A snapshot that no longer
// decodes is discarded.
func (s *Store) LoadSnapshot() (appstate.Snapshot, bool, error) {
	var snap appstate.Snapshot
	ok, err := s.get(bucketState, keySnapshot, &snap)
	if err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return appstate.Snapshot{}, false, s.delete(bucketState, keySnapshot)
		}
		return appstate.Snapshot{}, false, err
	}
	return snap, ok, nil
}

// Restore rebuilds the application state: the saved snapshot, the token
// from the cookie, and prefs applied over both. A home page cached under a
// different nsfw setting is dropped.
func (s *Store) Restore(prefs appstate.Preferences, now time.Time) (appstate.State, error) {
	st := appstate.New()
	snap, ok, err := s.LoadSnapshot()
	if err != nil {
		return st, err
	}
	if ok {
		st = appstate.FromSnapshot(snap)
		if snap.Prefs.NSFW != prefs.NSFW {
			st = st.WithCache(st.Cache.WithHomePage(nil)).WithHash(st.Hash())
		}
	}

	tok, ok, err := s.Token(now)
	if err != nil {
		return st, err
	}
	if ok {
		st = st.WithJWT(&tok)
	} else {
		st = st.WithoutSession()
	}
	return st.WithTheme(prefs.Theme).WithLanguage(prefs.Language).WithNSFW(prefs.NSFW), nil
}

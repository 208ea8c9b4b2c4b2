package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/aninfo/internal/contract"
)

// Memory is a development-only in-memory Store.
type Memory struct {
	mu      sync.RWMutex
	nextID  int32
	users   map[int32]User
	byName  map[string]int32 // lower(username) -> id
	favs    map[int32][]contract.UserAnime
	comment map[uint64][]Comment
	revoked map[string]time.Time

	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:   make(map[int32]User),
		byName:  make(map[string]int32),
		favs:    make(map[int32][]contract.UserAnime),
		comment: make(map[uint64][]Comment),
		revoked: make(map[string]time.Time),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) CreateUser(_ context.Context, username, passwordHash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(username))
	if _, ok := m.byName[key]; ok {
		return User{}, ErrConflict
	}
	m.nextID++
	u := User{ID: m.nextID, Username: strings.TrimSpace(username), PasswordHash: passwordHash, CreatedAt: m.now()}
	m.users[u.ID] = u
	m.byName[key] = u.ID
	return u, nil
}

func (m *Memory) FindUserByName(_ context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byName[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *Memory) GetUser(_ context.Context, id int32) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) AddFavourite(_ context.Context, userID int32, a contract.UserAnime) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return ErrNotFound
	}
	for _, f := range m.favs[userID] {
		if f.AnimeID == a.AnimeID {
			return ErrConflict
		}
	}
	m.favs[userID] = append(m.favs[userID], a)
	return nil
}

func (m *Memory) RemoveFavourite(_ context.Context, userID, animeID int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.favs[userID]
	for i, f := range list {
		if f.AnimeID == animeID {
			m.favs[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) ListFavourites(_ context.Context, userID int32) ([]contract.UserAnime, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]contract.UserAnime, len(m.favs[userID]))
	copy(out, m.favs[userID])
	return out, nil
}

func (m *Memory) AddComment(_ context.Context, c Comment) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[c.UserID]
	if !ok {
		return Comment{}, ErrNotFound
	}
	c.ID = uuid.New().String()
	c.Username = u.Username
	c.CreatedAt = m.now()
	m.comment[c.AnimeID] = append(m.comment[c.AnimeID], c)
	return c, nil
}

func (m *Memory) ListComments(_ context.Context, animeID uint64) ([]Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Comment, len(m.comment[animeID]))
	copy(out, m.comment[animeID])
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, exp := range m.revoked {
		if now.After(exp) {
			delete(m.revoked, id)
		}
	}
	m.revoked[tokenID] = expiresAt
	return nil
}

func (m *Memory) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.revoked[tokenID]
	return ok, nil
}

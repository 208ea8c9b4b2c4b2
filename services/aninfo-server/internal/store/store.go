package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/example/aninfo/internal/contract"
)

var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
)

//go:embed schema.sql
var Schema string

type User struct {
	ID           int32
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Comment struct {
	ID        string
	AnimeID   uint64
	UserID    int32
	Username  string
	Body      string
	CreatedAt time.Time
}

// Get renders the comment the way clients read it.
func (c Comment) Get() contract.CommentGet {
	return contract.CommentGet{
		Username: c.Username,
		Comment:  c.Body,
		Date:     c.CreatedAt.UTC().Format(contract.CommentDateLayout),
	}
}

// Users looks up accounts. Usernames are unique case-insensitively.
type Users interface {
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	FindUserByName(ctx context.Context, username string) (User, error)
	GetUser(ctx context.Context, id int32) (User, error)
}

// Favourites are listed in the order they were added.
type Favourites interface {
	AddFavourite(ctx context.Context, userID int32, a contract.UserAnime) error
	RemoveFavourite(ctx context.Context, userID, animeID int32) error
	ListFavourites(ctx context.Context, userID int32) ([]contract.UserAnime, error)
}

// Comments are listed oldest first.
type Comments interface {
	AddComment(ctx context.Context, c Comment) (Comment, error)
	ListComments(ctx context.Context, animeID uint64) ([]Comment, error)
}

// Revocations remember logged-out token ids until they expire.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Store interface {
	Users
	Favourites
	Comments
	Revocations
}

package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/aninfo/internal/contract"
)

type Postgres struct {
	DB *pgxpool.Pool
}

var _ Store = Postgres{}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s Postgres) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	q := `
INSERT INTO users (username, password_hash)
VALUES ($1, $2)
RETURNING id, username, password_hash, created_at;
`
	var u User
	err := s.DB.QueryRow(ctx, q, strings.TrimSpace(username), passwordHash).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrConflict
		}
		return User{}, err
	}
	return u, nil
}

func (s Postgres) FindUserByName(ctx context.Context, username string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, ErrNotFound
	}
	q := `
SELECT id, username, password_hash, created_at
FROM users
WHERE lower(username) = lower($1)
LIMIT 1;
`
	var u User
	err := s.DB.QueryRow(ctx, q, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s Postgres) GetUser(ctx context.Context, id int32) (User, error) {
	q := `SELECT id, username, password_hash, created_at FROM users WHERE id = $1;`
	var u User
	err := s.DB.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s Postgres) AddFavourite(ctx context.Context, userID int32, a contract.UserAnime) error {
	q := `
INSERT INTO favourites (user_id, anime_id, anime_img, anime_ttl_en, anime_ttl_jp)
VALUES ($1, $2, $3, $4, $5);
`
	_, err := s.DB.Exec(ctx, q, userID, a.AnimeID, a.AnimeImg, a.AnimeTtlEn, a.AnimeTtlJp)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s Postgres) RemoveFavourite(ctx context.Context, userID, animeID int32) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM favourites WHERE user_id = $1 AND anime_id = $2;`, userID, animeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s Postgres) ListFavourites(ctx context.Context, userID int32) ([]contract.UserAnime, error) {
	q := `
SELECT anime_id, anime_img, anime_ttl_en, anime_ttl_jp
FROM favourites
WHERE user_id = $1
ORDER BY created_at, anime_id;
`
	rows, err := s.DB.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []contract.UserAnime{}
	for rows.Next() {
		var a contract.UserAnime
		if err := rows.Scan(&a.AnimeID, &a.AnimeImg, &a.AnimeTtlEn, &a.AnimeTtlJp); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s Postgres) AddComment(ctx context.Context, c Comment) (Comment, error) {
	q := `
WITH ins AS (
    INSERT INTO comments (id, anime_id, user_id, body)
    VALUES ($1, $2, $3, $4)
    RETURNING id::text, anime_id, user_id, body, created_at
)
SELECT ins.id, ins.anime_id, ins.user_id, u.username, ins.body, ins.created_at
FROM ins JOIN users u ON u.id = ins.user_id;
`
	var out Comment
	err := s.DB.QueryRow(ctx, q, uuid.New(), int64(c.AnimeID), c.UserID, c.Body).
		Scan(&out.ID, &out.AnimeID, &out.UserID, &out.Username, &out.Body, &out.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Comment{}, ErrNotFound
		}
		return Comment{}, err
	}
	return out, nil
}

func (s Postgres) ListComments(ctx context.Context, animeID uint64) ([]Comment, error) {
	q := `
SELECT c.id::text, c.anime_id, c.user_id, u.username, c.body, c.created_at
FROM comments c
JOIN users u ON u.id = c.user_id
WHERE c.anime_id = $1
ORDER BY c.created_at, c.id;
`
	rows, err := s.DB.Query(ctx, q, int64(animeID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.AnimeID, &c.UserID, &c.Username, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s Postgres) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	q := `
INSERT INTO revoked_tokens (token_id, expires_at)
VALUES ($1, $2)
ON CONFLICT (token_id) DO NOTHING;
`
	if _, err := s.DB.Exec(ctx, q, tokenID, expiresAt); err != nil {
		return err
	}
	_, err := s.DB.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < now();`)
	return err
}

func (s Postgres) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1);`, tokenID).Scan(&exists)
	return exists, err
}

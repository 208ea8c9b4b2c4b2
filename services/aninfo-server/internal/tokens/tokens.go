package tokens

import (
	"errors"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/example/aninfo/internal/platform/auth"
)

type Service struct {
	Secret   []byte
	TokenTTL time.Duration
}

// Issued is a freshly signed session token.
type Issued struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// NewSessionToken signs a token whose subject is the numeric user id.
// The token id lets logout revoke it before it expires.
func (s Service) NewSessionToken(userID int32, username string, now time.Time) (Issued, error) {
	if len(s.Secret) == 0 {
		return Issued{}, errors.New("missing jwt secret")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	exp := now.Add(ttl)
	id := uuid.NewString()

	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   strconv.Itoa(int(userID)),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: username,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.Secret)
	if err != nil {
		return Issued{}, err
	}
	return Issued{Token: signed, ID: id, ExpiresAt: exp}, nil
}

// Verifier returns the middleware verifier sharing this service's secret.
func (s Service) Verifier(revoked auth.RevocationChecker) auth.JWTVerifier {
	return auth.JWTVerifier{Secret: s.Secret, Revoked: revoked}
}

// UserID parses the numeric subject of verified claims.
func UserID(c *auth.Claims) (int32, error) {
	if c == nil {
		return 0, errors.New("missing claims")
	}
	id, err := strconv.ParseInt(c.Subject, 10, 32)
	if err != nil {
		return 0, errors.New("invalid subject")
	}
	return int32(id), nil
}

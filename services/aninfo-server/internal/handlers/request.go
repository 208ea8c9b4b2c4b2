package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"github.com/example/aninfo/internal/platform/api"
	"github.com/example/aninfo/internal/platform/auth"
	"github.com/example/aninfo/services/aninfo-server/internal/tokens"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

var timeNow = func() time.Time { return time.Now().UTC() }

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)
	digestPattern   = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
)

// decodeJSON reads up to maxRequestBodyBytes from r.Body and decodes JSON into dst.
// On failure it writes a 400 response and returns false.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, rid string, dst *T) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(dst); err != nil {
		api.BadRequest(w, "INVALID_JSON", "Invalid JSON", rid, nil)
		return false
	}
	return true
}

// callerID resolves the numeric user id of the authenticated caller.
// On failure it writes a 401 response and returns false.
func callerID(w http.ResponseWriter, r *http.Request, rid string) (int32, *auth.Claims, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		api.Unauthorized(w, "UNAUTHORIZED", "authentication required", rid)
		return 0, nil, false
	}
	id, err := tokens.UserID(claims)
	if err != nil {
		api.Unauthorized(w, "AUTH_INVALID", "Invalid token", rid)
		return 0, nil, false
	}
	return id, claims, true
}

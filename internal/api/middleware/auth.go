package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/minhtien379/Loto/internal/api/apierr"
	"github.com/minhtien379/Loto/internal/model"
	"github.com/minhtien379/Loto/internal/services/room"
)

type contextKey string

const (
	roomContextKey  contextKey = "room"
	tokenContextKey contextKey = "host_token"
)

// hostTokenCookie is read when no Authorization header is sent
const hostTokenCookie = "host_token"

// Authorizer resolves a room from its code and host token
type Authorizer interface {
	Authorize(code model.RoomCode, token string) (*room.Room, error)
}

// HostAuth requires the host token of the room named by the {code} path variable
func HostAuth(rooms Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := HostToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			code := model.NormalizeRoomCode(mux.Vars(r)["code"])
			rm, err := rooms.Authorize(code, token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, roomContextKey, rm)
			ctx = context.WithValue(ctx, tokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireToken requires a host token without resolving a live room.
// Used by routes that work on saved state.
func RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := HostToken(r)
		if token == "" {
			apierr.WriteError(w, apierr.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tokenContextKey, token)))
	})
}

// HostToken extracts the host token from the request
func HostToken(r *http.Request) string {
	// Check Authorization header first
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Fall back to cookie
	cookie, err := r.Cookie(hostTokenCookie)
	if err == nil {
		return cookie.Value
	}

	return ""
}

// GetRoom returns the authorized room from the request context
func GetRoom(ctx context.Context) *room.Room {
	rm, _ := ctx.Value(roomContextKey).(*room.Room)
	return rm
}

// GetToken returns the host token from the request context
func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// MustGetRoom returns the authorized room or panics
func MustGetRoom(ctx context.Context) *room.Room {
	rm := GetRoom(ctx)
	if rm == nil {
		panic("no room in context - host auth middleware not applied?")
	}
	return rm
}

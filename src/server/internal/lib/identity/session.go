package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"net/http"
	"strings"
	"time"
)

const (
	SessionCookieName = "session_id"
	contextKey        = "identity"
	sessionMaxAge     = 365 * 24 * time.Hour
)

// Resolver derives the Identity of every request and hands out signed
// session cookies. With an empty secret sessions are off and identities are
// address only.
type Resolver struct {
	secret []byte
}

func NewResolver(secret string) Resolver {
	return Resolver{secret: []byte(secret)}
}

func (r Resolver) sessionsEnabled() bool {
	return len(r.secret) > 0
}

func (r Resolver) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(contextKey, r.Resolve(c))
			return next(c)
		}
	}
}

// Resolve reads the session cookie, issuing a fresh one when it is missing
// or its signature does not check out.
func (r Resolver) Resolve(c echo.Context) Identity {
	id := Identity{Address: ClientAddress(c.Request())}
	if !r.sessionsEnabled() {
		return id
	}

	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		if token, ok := r.verify(cookie.Value); ok {
			id.SessionToken = token
			return id
		}
	}

	id.SessionToken = uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    r.sign(id.SessionToken),
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func (r Resolver) sign(token string) string {
	return token + "." + r.mac(token)
}

func (r Resolver) verify(value string) (string, bool) {
	token, signature, found := strings.Cut(value, ".")
	if !found || token == "" {
		return "", false
	}

	if !hmac.Equal([]byte(signature), []byte(r.mac(token))) {
		return "", false
	}

	return token, true
}

func (r Resolver) mac(token string) string {
	h := hmac.New(sha256.New, r.secret)
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

// FromContext returns the identity set by the middleware, resolving an
// address only identity when the middleware did not run.
func FromContext(c echo.Context) Identity {
	if id, ok := c.Get(contextKey).(Identity); ok {
		return id
	}

	return Identity{Address: ClientAddress(c.Request())}
}

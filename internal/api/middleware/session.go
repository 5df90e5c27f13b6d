package middleware

import (
	"context"
	"net/http"

	"github.com/Rrens/groqchat/internal/security"
	"github.com/rs/zerolog/log"
)

type contextKey string

const ClientKeyKey contextKey = "clientKey"

// SessionMiddleware binds every request to a client key carried in a signed cookie
type SessionMiddleware struct {
	tokens     *security.SessionTokenManager
	cookieName string
	secure     bool
}

// NewSessionMiddleware creates a new client session middleware
func NewSessionMiddleware(tokens *security.SessionTokenManager, cookieName string, secure bool) *SessionMiddleware {
	return &SessionMiddleware{
		tokens:     tokens,
		cookieName: cookieName,
		secure:     secure,
	}
}

// Identify resolves the client key, issuing a new cookie when it is missing or invalid
func (m *SessionMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientKey := ""
		if c, err := r.Cookie(m.cookieName); err == nil {
			if key, err := m.tokens.Validate(c.Value); err == nil {
				clientKey = key
			} else {
				log.Debug().Err(err).Msg("discarding invalid session cookie")
			}
		}

		if clientKey == "" {
			clientKey = security.NewClientKey()
			token, err := m.tokens.Issue(clientKey)
			if err != nil {
				log.Error().Err(err).Msg("failed to issue session token")
				http.Error(w, "failed to start session", http.StatusInternalServerError)
				return
			}

			cookie := &http.Cookie{
				Name:     m.cookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
			}
			if ttl := m.tokens.TTL(); ttl > 0 {
				cookie.MaxAge = int(ttl.Seconds())
			}
			http.SetCookie(w, cookie)
		}

		ctx := context.WithValue(r.Context(), ClientKeyKey, clientKey)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientKey gets the client key from context
func GetClientKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(ClientKeyKey).(string)
	return key, ok && key != ""
}

// WithClientKey returns a context carrying clientKey
func WithClientKey(ctx context.Context, clientKey string) context.Context {
	return context.WithValue(ctx, ClientKeyKey, clientKey)
}

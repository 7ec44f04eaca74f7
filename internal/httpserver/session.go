// internal/httpserver/session.go
//
// Browser-scoped sessions. A session is a random ID carried in an HS256 JWT
// (cookie or bearer header). It keys one engine and one persisted snapshot,
// which is what local storage would hold for a browser-only client.

package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/buttonwang/wordly/internal/engine"
)

const (
	sessionCookieName = "wordly_session"
	sessionTTL        = 180 * 24 * time.Hour
)

// ctxSessionKey is the context key type for the resolved session.
type ctxSessionKey struct{}

// session is what withSession places into the request context.
type session struct {
	id     string
	engine *engine.Engine
}

// withSession resolves (or mints) the session and injects its engine.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := s.sessionID(w, r)
		e, err := s.engineFor(r.Context(), sid)
		if err != nil {
			log.Error().Err(err).Str("session", sid).Msg("load engine")
			http.Error(w, `{"error":"load_failed"}`, http.StatusInternalServerError)
			return
		}
		ctx := context.WithValue(r.Context(), ctxSessionKey{}, &session{id: sid, engine: e})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the session placed by withSession.
func sessionFrom(r *http.Request) *session {
	s, _ := r.Context().Value(ctxSessionKey{}).(*session)
	return s
}

// engineFrom returns the session engine placed by withSession.
func engineFrom(r *http.Request) *engine.Engine {
	return sessionFrom(r).engine
}

// sessionID returns the verified session ID, or mints a new one and sets the cookie.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if tok := bearerOrCookie(r); tok != "" {
		if sid, ok := s.parseSession(tok); ok {
			return sid
		}
	}
	sid := genID()
	tok, exp, err := s.signSession(sid)
	if err != nil {
		log.Warn().Err(err).Msg("sign session")
		return sid
	}
	s.setSessionCookie(w, tok, exp)
	return sid
}

// signSession creates an HS256 JWT carrying the session ID.
func (s *Server) signSession(sid string) (string, time.Time, error) {
	exp := time.Now().Add(sessionTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sid,
		"exp": exp.Unix(),
		"iat": time.Now().Unix(),
	})
	ss, err := t.SignedString([]byte(s.opts.SessionSecret))
	return ss, exp, err
}

// parseSession verifies tok and extracts the session ID.
func (s *Server) parseSession(tok string) (string, bool) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.opts.SessionSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return "", false
	}
	sid, _ := claims["sid"].(string)
	return sid, sid != ""
}

// setSessionCookie writes the session cookie with appropriate security attributes.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, exp time.Time) {
	sameSite := http.SameSiteLaxMode
	if s.opts.SecureCookies {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// bearerOrCookie extracts a token from the Authorization header or session cookie.
func bearerOrCookie(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// genID creates a 22-char URL-safe, crypto-random identifier (no padding).
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	s := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b[:])
	if len(s) > 22 {
		return s[:22]
	}
	return s
}

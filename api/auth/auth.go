// Package auth guards operator endpoints with a static bearer token or an
// HS256 JWT.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kilianp07/eta/config"
)

// QueryParam carries the token for clients that cannot set headers, such as
// browser websockets.
const QueryParam = "access_token"

var errUnauthorized = errors.New("unauthorized")

// Verifier checks bearer tokens.
type Verifier struct {
	token  string
	secret []byte
}

// NewVerifier returns nil when cfg enables no authentication.
func NewVerifier(cfg config.APIConfig) *Verifier {
	if !cfg.AuthEnabled() {
		return nil
	}
	v := &Verifier{token: cfg.Token}
	if cfg.JWTSecret != "" {
		v.secret = []byte(cfg.JWTSecret)
	}
	return v
}

// Verify accepts the static token or a valid, unexpired HS256 JWT.
func (v *Verifier) Verify(tok string) error {
	if tok == "" {
		return errUnauthorized
	}
	if v.token != "" && subtle.ConstantTimeCompare([]byte(tok), []byte(v.token)) == 1 {
		return nil
	}
	if v.secret == nil {
		return errUnauthorized
	}
	_, err := jwt.ParseWithClaims(tok, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return errUnauthorized
	}
	return nil
}

// Middleware rejects requests without a valid token with 401. A nil Verifier
// lets every request through.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	if v == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := v.Verify(tokenFrom(r)); err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="eta"`)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	return r.URL.Query().Get(QueryParam)
}

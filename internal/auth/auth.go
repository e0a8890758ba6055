// Package auth implements HTTP basic authentication for administrative
// endpoints such as book upload.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
)

// Credentials is the expected admin username and password pair.
type Credentials struct {
	Username string
	Password string
}

// Check reports whether the request carries valid basic auth credentials.
// Comparison is constant-time over credential digests. An empty expected
// password never matches: the default config resolves the password from
// an environment variable, and an unset variable must not open admin
// access to blank logins.
func (c Credentials) Check(r *http.Request) bool {
	if c.Password == "" {
		return false
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}

	userHash := sha256.Sum256([]byte(user))
	passHash := sha256.Sum256([]byte(pass))
	wantUserHash := sha256.Sum256([]byte(c.Username))
	wantPassHash := sha256.Sum256([]byte(c.Password))

	userMatch := subtle.ConstantTimeCompare(userHash[:], wantUserHash[:]) == 1
	passMatch := subtle.ConstantTimeCompare(passHash[:], wantPassHash[:]) == 1
	return userMatch && passMatch
}

// Require wraps a handler, rejecting requests without valid credentials.
func (c Credentials) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.Check(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="biblio", charset="UTF-8"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

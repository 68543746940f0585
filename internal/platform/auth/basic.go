// Package auth gates the admin console behind HTTP Basic credentials.
// The password is never stored in clear: ADMIN_PASSWORD_HASH holds a
// bcrypt hash produced out of band.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Admin holds the configured administrator credentials.
type Admin struct {
	User         string
	PasswordHash []byte
}

// AdminFromEnv reads ADMIN_USER and ADMIN_PASSWORD_HASH.
// Both must be set for the admin surface to be mounted at all.
func AdminFromEnv() (Admin, error) {
	user := strings.TrimSpace(os.Getenv("ADMIN_USER"))
	hash := strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH"))
	if user == "" || hash == "" {
		return Admin{}, errors.New("ADMIN_USER and ADMIN_PASSWORD_HASH are required")
	}
	return Admin{User: user, PasswordHash: []byte(hash)}, nil
}

// Require rejects requests whose Basic credentials do not match.
func (a Admin) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !a.check(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="admin", charset="UTF-8"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a Admin) check(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.User)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pass)) == nil
	return userOK && passOK
}

package auth

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// Credentials is a username/password pair taken from a Basic Authorization
// header. Username is passed through verbatim; normalization is up to the
// authenticator.
type Credentials struct {
	Username string
	Password string
}

// ParseBasic parses an Authorization header value of the form
// "Basic base64(username:password)". The scheme is matched
// case-insensitively and the decoded pair is split at the first colon, so
// passwords may contain colons. It reports false for an empty header, a
// different scheme, a missing token, undecodable base64, or a decoded value
// without a colon. Callers treat false as "no credentials".
func ParseBasic(header string) (Credentials, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "basic") {
		return Credentials{}, false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Credentials{}, false
	}

	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(token)
		if err != nil {
			return Credentials{}, false
		}
	}

	username, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return Credentials{}, false
	}
	return Credentials{Username: username, Password: password}, true
}

// CredentialsFromRequest extracts Basic credentials from r.
func CredentialsFromRequest(r *http.Request) (Credentials, bool) {
	return ParseBasic(r.Header.Get("Authorization"))
}

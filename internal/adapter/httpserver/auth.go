package httpserver

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
)

// Argon2Params defines parameters for Argon2id password hashing.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

var defaultArgon2Params = Argon2Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 2,
	SaltLen:     16,
	KeyLen:      32,
}

// Argon2Hasher implements usecase.PasswordHasher with Argon2id.
type Argon2Hasher struct{ Params Argon2Params }

func NewArgon2Hasher() Argon2Hasher { return Argon2Hasher{Params: defaultArgon2Params} }

// Hash creates an Argon2id hash of the password.
// Format: argon2id$iterations$memory$parallelism$salt$hash (base64 raw std).
func (h Argon2Hasher) Hash(password string) (string, error) {
	p := h.Params
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("argon2id$%d$%d$%d$%s$%s",
		p.Iterations, p.Memory, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks a password against its encoded Argon2id hash in constant time.
func (h Argon2Hasher) Verify(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "argon2id" {
		return false
	}
	iters, err1 := parseUint32(parts[1])
	mem, err2 := parseUint32(parts[2])
	par64, err3 := parseUint32(parts[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	var par uint8
	if par64 > math.MaxUint8 {
		par = math.MaxUint8
	} else {
		par = uint8(par64)
	}
	actual := argon2.IDKey([]byte(password), salt, iters, mem, par, h.Params.KeyLen)
	return hmac.Equal(actual, expected)
}

// SessionData is the decoded content of a session cookie.
type SessionData struct {
	Subject   string
	LoginTime time.Time
	ExpiresAt time.Time
}

// SessionManager issues and validates HMAC-signed cookie sessions. One
// instance serves the student API (cookie "session"), a second one with its
// own secret serves the admin dashboard (cookie "admin_session").
type SessionManager struct {
	secret     []byte
	cookieName string
	secure     bool
	ttl        time.Duration
}

func NewSessionManager(secret, cookieName string, secure bool) *SessionManager {
	return &SessionManager{
		secret:     []byte(secret),
		cookieName: cookieName,
		secure:     secure,
		ttl:        24 * time.Hour,
	}
}

// CreateSession returns a signed cookie value for the subject.
func (sm *SessionManager) CreateSession(subject string) (string, error) {
	if strings.Contains(subject, ":") {
		return "", fmt.Errorf("subject must not contain ':'")
	}
	now := time.Now()
	payload := fmt.Sprintf("%s:%d:%d", subject, now.Unix(), now.Add(sm.ttl).Unix())
	mac := hmac.New(sha256.New, sm.secret)
	mac.Write([]byte(payload))
	return payload + "." + base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// ValidateSession verifies the signature and expiry of a cookie value.
func (sm *SessionManager) ValidateSession(value string) (*SessionData, error) {
	if value == "" {
		return nil, fmt.Errorf("empty session value")
	}
	parts := strings.Split(value, ".")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid session format")
	}
	payload, sigB64 := parts[0], parts[1]

	mac := hmac.New(sha256.New, sm.secret)
	mac.Write([]byte(payload))
	sig, err := base64.URLEncoding.DecodeString(sigB64)
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding")
	}
	if !hmac.Equal(mac.Sum(nil), sig) {
		return nil, fmt.Errorf("invalid session signature")
	}

	fields := strings.Split(payload, ":")
	if len(fields) != 3 {
		return nil, fmt.Errorf("invalid payload format")
	}
	expiresAt := time.Unix(parseInt64(fields[2]), 0)
	if time.Now().After(expiresAt) {
		return nil, fmt.Errorf("session expired")
	}
	return &SessionData{
		Subject:   fields[0],
		LoginTime: time.Unix(parseInt64(fields[1]), 0),
		ExpiresAt: expiresAt,
	}, nil
}

// SetSessionCookie sets the session cookie on the response.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(sm.ttl.Seconds()),
	})
}

// ClearSessionCookie clears the session cookie.
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

// sessionKey is an unexported context key type for session data.
type sessionKey struct{}

// RequireAuth guards JSON API routes. Missing or invalid sessions get a
// 401 envelope, never a redirect.
func (sm *SessionManager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sm.cookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, r, errUnauthorizedSession, nil)
			return
		}
		data, err := sm.ValidateSession(cookie.Value)
		if err != nil {
			sm.ClearSessionCookie(w)
			writeError(w, r, errUnauthorizedSession, nil)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, data)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SubjectFrom returns the authenticated subject from the request context.
func SubjectFrom(r *http.Request) string {
	if v := r.Context().Value(sessionKey{}); v != nil {
		if d, ok := v.(*SessionData); ok {
			return d.Subject
		}
	}
	return ""
}

func parseInt64(s string) int64 {
	x, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return x
}

func parseUint32(s string) (uint32, error) {
	x, err := strconv.ParseUint(s, 10, 32)
	if err != nil || x > math.MaxUint32 {
		return 0, fmt.Errorf("parse")
	}
	return uint32(x), nil
}

package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgon2Hasher_HashAndVerify(t *testing.T) {
	t.Parallel()
	h := NewArgon2Hasher()

	enc, err := h.Hash("correct horse battery")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(enc, "argon2id$"))

	assert.True(t, h.Verify("correct horse battery", enc))
	assert.False(t, h.Verify("wrong password", enc))
}

func TestArgon2Hasher_SaltsAreRandom(t *testing.T) {
	t.Parallel()
	h := NewArgon2Hasher()
	a, err := h.Hash("same password")
	require.NoError(t, err)
	b, err := h.Hash("same password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestArgon2Hasher_MalformedHash(t *testing.T) {
	t.Parallel()
	h := NewArgon2Hasher()
	for _, enc := range []string{"", "bcrypt$whatever", "argon2id$3$65536$2$notb64!!$x", "argon2id$3$65536"} {
		assert.False(t, h.Verify("pw", enc), "encoded=%q", enc)
	}
}

func TestSessionManager_RoundTrip(t *testing.T) {
	t.Parallel()
	sm := NewSessionManager("test-secret", "session", false)

	token, err := sm.CreateSession("student-123")
	require.NoError(t, err)

	data, err := sm.ValidateSession(token)
	require.NoError(t, err)
	assert.Equal(t, "student-123", data.Subject)
	assert.True(t, data.ExpiresAt.After(time.Now()))
}

func TestSessionManager_RejectsColonSubject(t *testing.T) {
	t.Parallel()
	sm := NewSessionManager("test-secret", "session", false)
	_, err := sm.CreateSession("a:b")
	require.Error(t, err)
}

func TestSessionManager_TamperedToken(t *testing.T) {
	t.Parallel()
	sm := NewSessionManager("test-secret", "session", false)
	token, err := sm.CreateSession("student-123")
	require.NoError(t, err)

	tampered := strings.Replace(token, "student-123", "student-999", 1)
	_, err = sm.ValidateSession(tampered)
	require.Error(t, err)
}

func TestSessionManager_WrongSecret(t *testing.T) {
	t.Parallel()
	issuer := NewSessionManager("secret-a", "session", false)
	verifier := NewSessionManager("secret-b", "session", false)
	token, err := issuer.CreateSession("student-123")
	require.NoError(t, err)
	_, err = verifier.ValidateSession(token)
	require.Error(t, err)
}

func TestSessionManager_Expired(t *testing.T) {
	t.Parallel()
	sm := NewSessionManager("test-secret", "session", false)
	sm.ttl = -time.Minute
	token, err := sm.CreateSession("student-123")
	require.NoError(t, err)
	_, err = sm.ValidateSession(token)
	require.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()
	sm := NewSessionManager("test-secret", "session", false)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(SubjectFrom(r)))
	})
	h := sm.RequireAuth(next)

	t.Run("missing cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	})

	t.Run("garbage cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: "garbage.garbage"})
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid cookie passes subject through", func(t *testing.T) {
		token, err := sm.CreateSession("student-7")
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: token})
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "student-7", rec.Body.String())
	})
}

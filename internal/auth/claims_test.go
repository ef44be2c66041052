package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "worklog"}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)
	return signed
}

func TestParseClaims(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":    "user-1",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": []string{ScopeWorklogRead, ScopeWorklogWrite},
	})

	claims, err := ParseClaims(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.True(t, claims.HasScope(ScopeWorklogRead))
	require.True(t, claims.HasScope(ScopeWorklogWrite))
	require.False(t, claims.HasScope("worklog:admin"))
}

func TestParseClaimsRejectsBadTokens(t *testing.T) {
	_, err := ParseClaims("", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = ParseClaims("not-a-token", testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	// Missing subject.
	token := signToken(t, jwt.MapClaims{
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = ParseClaims(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	// Wrong issuer.
	token = signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = ParseClaims(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	// Expired.
	token = signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	_, err = ParseClaims(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseClaimsScopeFormats(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":    "user-1",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": "worklog:read worklog:write",
	})

	claims, err := ParseClaims(token, testConfig)
	require.NoError(t, err)
	require.True(t, claims.HasScope(ScopeWorklogRead))
	require.True(t, claims.HasScope(ScopeWorklogWrite))
}

func TestMiddleware(t *testing.T) {
	middleware := NewMiddleware(testConfig)

	var seen *Claims
	handler := middleware.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"iss": testConfig.Issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	req = httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, "user-1", seen.Subject)

	// Health endpoint bypasses authentication entirely.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mockme/mockme/internal/rbac"
)

func login(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))
	return rec
}

func TestLoginHandler(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	a := NewAuthService("test-secret")
	h := LoginHandler(a, Credentials{AdminUser: "admin", AdminPassHash: string(hash), DevStudents: true})

	tests := []struct {
		name string
		body string
		code int
		role string
	}{
		{name: "admin", body: `{"username":"admin","password":"s3cret"}`, code: http.StatusOK, role: RoleAdmin},
		{name: "admin wrong password", body: `{"username":"admin","password":"admin"}`, code: http.StatusUnauthorized},
		{name: "dev student", body: `{"username":"asha","password":"asha"}`, code: http.StatusOK, role: RoleStudent},
		{name: "student mismatch", body: `{"username":"asha","password":"nope"}`, code: http.StatusUnauthorized},
		{name: "bad json", body: `{`, code: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := login(t, h, tc.body)
			require.Equal(t, tc.code, rec.Code)
			if tc.code != http.StatusOK {
				return
			}
			var out map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			c, err := a.Parse(out["access_token"])
			require.NoError(t, err)
			assert.Equal(t, tc.role, c.Role)
		})
	}
}

func TestLoginWithoutDevStudents(t *testing.T) {
	h := LoginHandler(NewAuthService("k"), Credentials{AdminUser: "admin"})
	assert.Equal(t, http.StatusUnauthorized, login(t, h, `{"username":"asha","password":"asha"}`).Code)
	// no hash configured means nobody is admin
	assert.Equal(t, http.StatusUnauthorized, login(t, h, `{"username":"admin","password":"admin"}`).Code)
}

func TestJWTMiddlewareSetsContext(t *testing.T) {
	a := NewAuthService("test-secret")
	tok, err := a.IssueJWT("u1", RoleStudent)
	require.NoError(t, err)

	var sub, role string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub = SubjectFromContext(r.Context())
		role = rbac.RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", sub)
	assert.Equal(t, RoleStudent, role)
	_, ok := ClaimsFromContext(req.Context())
	assert.False(t, ok)

	for _, header := range []string{"", "Bearer garbage", "Token " + tok} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestParseRejectsForeignKeyAndAlg(t *testing.T) {
	tok, err := NewAuthService("other").IssueJWT("u1", RoleAdmin)
	require.NoError(t, err)
	_, err = NewAuthService("mine").Parse(tok)
	assert.Error(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Sub: "u1", Role: RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewAuthService("mine").Parse(unsigned)
	assert.Error(t, err)
}

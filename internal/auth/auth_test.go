package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("campusvote", "secret")

	tok, err := iss.Issue("student-1", RoleStudent, time.Hour)
	require.NoError(t, err)

	claims, err := iss.Parse(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, "student-1", claims.Subject)
	assert.Equal(t, RoleStudent, claims.Role)

	_, err = iss.ParseRole(tok.Value, RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidToken)

	t.Run("wrong key", func(t *testing.T) {
		_, err := NewIssuer("campusvote", "other").Parse(tok.Value)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("wrong issuer", func(t *testing.T) {
		_, err := NewIssuer("elsewhere", "secret").Parse(tok.Value)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("expired", func(t *testing.T) {
		old := NewIssuer("campusvote", "secret")
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		expired, err := old.Issue("student-1", RoleStudent, time.Hour)
		require.NoError(t, err)
		_, err = iss.Parse(expired.Value)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	ok, err := CheckPassword(hash, "hunter22")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "x")
	assert.Error(t, err)
}

func TestRequire(t *testing.T) {
	gin.SetMode(gin.TestMode)
	iss := NewIssuer("campusvote", "secret")
	r := gin.New()
	r.GET("/admin", Require(iss, RoleAdmin), func(c *gin.Context) {
		claims, ok := FromContext(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Subject)
	})

	admin, err := iss.Issue("admin-1", RoleAdmin, time.Hour)
	require.NoError(t, err)
	student, err := iss.Issue("student-1", RoleStudent, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer " + student.Value, http.StatusForbidden},
		{"admin", "Bearer " + admin.Value, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"marketchat/internal/auth"
)

func newAuthRouter(a *auth.Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", Auth(a), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": AuthedUserID(c)})
	})
	return r
}

func TestAuthRejectsMissingToken(t *testing.T) {
	a := auth.NewAuthenticator("secret", "marketchat", time.Hour)
	r := newAuthRouter(a)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	a := auth.NewAuthenticator("secret", "marketchat", time.Hour)
	r := newAuthRouter(a)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthAcceptsBearerHeader(t *testing.T) {
	a := auth.NewAuthenticator("secret", "marketchat", time.Hour)
	token, err := a.GenerateToken("user-1", "Alice")
	require.NoError(t, err)

	r := newAuthRouter(a)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"user_id":"user-1"`)
}

func TestAuthAcceptsQueryToken(t *testing.T) {
	a := auth.NewAuthenticator("secret", "marketchat", time.Hour)
	token, err := a.GenerateToken("user-2", "Bob")
	require.NoError(t, err)

	r := newAuthRouter(a)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami?token="+token, nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"user_id":"user-2"`)
}

func TestAuthDisabledWithNilAuthenticator(t *testing.T) {
	r := newAuthRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"user_id":""`)
}

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator() *TokenValidator {
	return NewTokenValidator("liquidity",
		[]byte("applicant-secret-for-tests"),
		[]byte("administrator-secret-for-tests"))
}

func TestTokenRoundTrip(t *testing.T) {
	v := newTestValidator()

	for _, role := range []types.Role{types.RoleApplicant, types.RoleAdministrator} {
		token, err := v.IssueToken("user-1", role, time.Hour)
		require.NoError(t, err)

		actor, err := v.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", actor.ID)
		assert.Equal(t, role, actor.Role)
	}
}

func TestTokenCredentialDomainsAreIsolated(t *testing.T) {
	v := newTestValidator()

	// 用申请人密钥签发但声明管理员角色的令牌必须被拒:
	// 角色声明决定验签密钥,签名域不匹配即失败
	forged := NewTokenValidator("liquidity",
		[]byte("applicant-secret-for-tests"),
		[]byte("applicant-secret-for-tests"))
	token, err := forged.IssueToken("user-1", types.RoleAdministrator, time.Hour)
	require.NoError(t, err)

	_, err = v.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	v := newTestValidator()
	token, err := v.IssueToken("user-1", types.RoleApplicant, -time.Minute)
	require.NoError(t, err)

	_, err = v.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenWrongIssuer(t *testing.T) {
	other := NewTokenValidator("another-service",
		[]byte("applicant-secret-for-tests"),
		[]byte("administrator-secret-for-tests"))
	token, err := other.IssueToken("user-1", types.RoleApplicant, time.Hour)
	require.NoError(t, err)

	_, err = newTestValidator().ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenUnknownRole(t *testing.T) {
	v := newTestValidator()
	token, err := v.IssueToken("user-1", types.Role("auditor"), time.Hour)
	require.NoError(t, err)

	_, err = v.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	_, err := newTestValidator().ValidateToken("not-a-jwt")
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := newTestValidator()

	router := gin.New()
	router.Use(AuthMiddleware(v))
	router.GET("/whoami", func(c *gin.Context) {
		actor, _ := ActorFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": string(actor.Role)})
	})

	// 无令牌
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 坏令牌
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 有效令牌
	token, err := v.IssueToken("user-1", types.RoleApplicant, time.Hour)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := newTestValidator()

	router := gin.New()
	router.Use(AuthMiddleware(v), RequireRole(types.RoleAdministrator))
	router.GET("/admin", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	applicantToken, err := v.IssueToken("user-1", types.RoleApplicant, time.Hour)
	require.NoError(t, err)
	adminToken, err := v.IssueToken("admin-1", types.RoleAdministrator, time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+applicantToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

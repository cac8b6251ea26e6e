package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims 会话令牌声明
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenValidator 会话令牌验证器
// 申请人与管理员是两个独立的凭证域,各自使用独立密钥签名,
// 令牌里的角色声明必须与签名域一致
type TokenValidator struct {
	applicantSecret     []byte
	administratorSecret []byte
	issuer              string
}

// NewTokenValidator 创建令牌验证器
func NewTokenValidator(issuer string, applicantSecret, administratorSecret []byte) *TokenValidator {
	return &TokenValidator{
		applicantSecret:     applicantSecret,
		administratorSecret: administratorSecret,
		issuer:              issuer,
	}
}

// ValidateToken 验证令牌并返回操作者
func (v *TokenValidator) ValidateToken(tokenString string) (*Actor, error) {
	// 先读取未验证的角色声明,决定使用哪个凭证域的密钥
	parser := jwt.NewParser()
	unverified := &SessionClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, unverified); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	role := types.Role(unverified.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role claim: %q", unverified.Role)
	}

	secret := v.applicantSecret
	if role == types.RoleAdministrator {
		secret = v.administratorSecret
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, errors.New("invalid issuer")
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, errors.New("token expired")
	}
	if claims.Subject == "" {
		return nil, errors.New("missing subject")
	}

	return &Actor{ID: claims.Subject, Role: role}, nil
}

// IssueToken 签发会话令牌(测试与运维工具用)
func (v *TokenValidator) IssueToken(subject string, role types.Role, ttl time.Duration) (string, error) {
	secret := v.applicantSecret
	if role == types.RoleAdministrator {
		secret = v.administratorSecret
	}

	claims := &SessionClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// AuthMiddleware 会话认证中间件
// 解析 Bearer 令牌,把操作者注入 gin 上下文与请求 context
func AuthMiddleware(validator *TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "missing authorization header",
			})
			c.Abort()
			return
		}

		// 移除 "Bearer " 前缀
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		actor, err := validator.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "invalid token",
				"detail":  err.Error(),
			})
			c.Abort()
			return
		}

		c.Set("actor_id", actor.ID)
		c.Set("actor_role", string(actor.Role))
		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), *actor))

		c.Next()
	}
}

// RequireRole 角色门禁中间件,必须位于 AuthMiddleware 之后
func RequireRole(role types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c.Request.Context())
		if !ok || actor.Role != role {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "insufficient role",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

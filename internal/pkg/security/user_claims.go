package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	JWTSecret         string = "Lighthouse"
	JWTExpirationTime        = time.Hour * 24
)

// SessionClaims 定义了 Token 中需要包含的业务信息
// Role 为 OPERATOR 或 CUSTOMER，决定实时推送的订阅范围
type SessionClaims struct {
	ActorID uint64 `json:"actor_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

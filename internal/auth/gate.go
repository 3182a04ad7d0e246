package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GateTokenTTL 是门禁令牌的有效期。令牌只为一次渲染会话服务，
// 够用即可，不做续期。
const GateTokenTTL = 10 * time.Minute

const gatePurpose = "site-gate"

// GateClaims 是站点门禁令牌的声明。
type GateClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// MintGateToken 用共享密钥签发 HS256 门禁令牌。
func MintGateToken(secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("site secret is empty")
	}
	now := time.Now()
	claims := GateClaims{
		Purpose: gatePurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign gate token: %w", err)
	}
	return signed, nil
}

// ValidateGateToken 校验门禁令牌的签名、有效期与用途。
func ValidateGateToken(secret, tokenString string) error {
	claims := &GateClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("parse gate token: %w", err)
	}
	if !token.Valid {
		return errors.New("invalid gate token")
	}
	if claims.Purpose != gatePurpose {
		return errors.New("unexpected token purpose")
	}
	return nil
}

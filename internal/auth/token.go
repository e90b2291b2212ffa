// Package auth 連線邊界的身份驗證。
//
// 客戶端在 WebSocket 握手時帶上短效的 HS256 JWT（query 參數 token），
// 服務端驗章並取出使用者名。進到大廳之後的所有事件都信任這個身份，
// 不再逐事件驗證。
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoUsername   = errors.New("token has no username claim")
)

// Identity 通過驗證的連線身份
type Identity struct {
	Username string
}

// Verifier 簽發與驗證連線 token
type Verifier struct {
	secret []byte
	ttl    time.Duration
}

// NewVerifier 建立驗證器。ttl 是簽發 token 的有效期。
func NewVerifier(secret string, ttl time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), ttl: ttl}
}

// Generate 為指定使用者簽發 token
func (v *Verifier) Generate(username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("username is required")
	}

	claims := jwt.MapClaims{
		"sub": username,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(v.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify 驗章並取出身份。過期、簽章不符、缺 sub 都是失敗。
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	username, ok := claims["sub"].(string)
	if !ok || username == "" {
		return Identity{}, ErrNoUsername
	}
	return Identity{Username: username}, nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier maps a bearer credential to a stable user id, or rejects it.
// The session gateway runs it before touching any connection state.
type Verifier interface {
	Verify(ctx context.Context, credential string) (uint64, error)
}

// SignJWT issues an HS256 token carrying the user id in the "uid" claim.
func SignJWT(userID uint64, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"uid": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT validates the token signature and expiry and returns the user id.
func ParseJWT(tokenStr, secret string) (uint64, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	uid, ok := claims["uid"].(float64)
	if !ok || uid <= 0 {
		return 0, ErrInvalidToken
	}
	return uint64(uid), nil
}

// JWTVerifier is the production Verifier backed by a shared HMAC secret.
type JWTVerifier struct {
	Secret string
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{Secret: secret}
}

func (v *JWTVerifier) Verify(_ context.Context, credential string) (uint64, error) {
	if credential == "" {
		return 0, ErrInvalidToken
	}
	return ParseJWT(credential, v.Secret)
}

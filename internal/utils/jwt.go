package utils

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token scopes. User and admin tokens are signed with different secrets.
const (
	ScopeUser  = "user"
	ScopeAdmin = "admin"
)

type jwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Scope  string `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed JWT for the provided user ID and scope.
func GenerateToken(secret string, userID uint, scope string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &jwtCustomClaims{
		UserID: userID,
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token and returns the embedded user ID. The token must carry the given scope.
func ParseToken(secret, tokenString, scope string) (uint, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid || claims.UserID == 0 || claims.Scope != scope {
		return 0, jwt.ErrTokenInvalidClaims
	}

	return claims.UserID, nil
}

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the fixed lifetime of an issued token. There is no revocation:
// a token stays valid until expiry even if the user's password changes.
const TokenTTL = 5 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

type TokenUser struct {
	ID string `json:"id"`
}

type Claims struct {
	User TokenUser `json:"user"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 identity tokens. The signing secret
// is injected at construction and must be identical across all processes of
// a deployment for verification to succeed.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret []byte) *TokenService {
	return &TokenService{secret: secret}
}

func (s *TokenService) Issue(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		User: TokenUser{ID: userID},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify returns the user id embedded in the token. A bad signature, a
// malformed token and an expired token all fail with ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.User.ID == "" {
		return "", ErrInvalidToken
	}

	return claims.User.ID, nil
}

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pricewatch/internal/storage"
)

// ErrInvalidToken indicates the bearer token failed verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims carries the identity embedded in an issued token.
type Claims struct {
	UserID string
	Email  string
	Role   string
}

// IssueToken signs an HS256 token for the authenticated account.
func (s *Service) IssueToken(user storage.User) (string, error) {
	if user.ID == "" {
		return "", errors.New("cannot issue token without user id")
	}

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  user.Role,
		"exp":   time.Now().Add(s.tokenTTL).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyToken parses and validates a bearer token.
func (s *Service) VerifyToken(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	userID, _ := mapClaims["sub"].(string)
	email, _ := mapClaims["email"].(string)
	role, _ := mapClaims["role"].(string)
	if userID == "" {
		return Claims{}, ErrInvalidToken
	}

	return Claims{UserID: userID, Email: email, Role: role}, nil
}

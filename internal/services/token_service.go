package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/KMohnishM/SIH-25/internal/config"
	"github.com/KMohnishM/SIH-25/internal/db/models"
)

// TokenService issues and verifies the bearer tokens carried on every
// authenticated request.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
}

func NewTokenService(cfg *config.Configuration, logger *zap.Logger) *TokenService {
	return &TokenService{
		secret: []byte(cfg.Security.JWTSecret),
		ttl:    cfg.Security.TokenTTL,
		logger: logger.With(zap.String("service", "token_service")),
	}
}

func (ts *TokenService) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (ts *TokenService) CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

func (ts *TokenService) Issue(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", user.ID),
		"role": string(user.Role),
		"exp":  time.Now().Add(ts.ttl).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.secret)
}

// Verify parses the token and returns the user id it was issued to. The
// caller still loads the user row: role and department are never trusted
// from the claims.
func (ts *TokenService) Verify(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ts.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("token missing subject: %w", err)
	}

	var userID uint
	if _, err := fmt.Sscanf(sub, "%d", &userID); err != nil {
		return 0, fmt.Errorf("malformed subject %q: %w", sub, err)
	}
	return userID, nil
}

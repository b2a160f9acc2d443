package services

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminCredentials identify the single catalog administrator.
type AdminCredentials struct {
	Username     string
	PasswordHash string // bcrypt
}

// AuthService issues and validates the tokens that guard catalog writes.
type AuthService struct {
	admin      AdminCredentials
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(admin AdminCredentials, jwtSecret string, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		admin:      admin,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
		logger:     logger,
	}
}

// Login checks the administrator credentials and returns a signed JWT.
func (s *AuthService) Login(username, password string) (string, error) {
	// Unknown usernames and wrong passwords get the same answer.
	if subtle.ConstantTimeCompare([]byte(username), []byte(s.admin.Username)) != 1 {
		return "", fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.admin.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      s.admin.Username,
		"username": s.admin.Username,
		"exp":      now.Add(s.tokenDurat).Unix(),
		"iat":      now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		s.logger.Debug("Token validation error", zap.Error(err))
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

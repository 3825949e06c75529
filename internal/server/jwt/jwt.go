// jwt реализует выпуск и проверку подписанных токенов с claims
// sub (username), type ("access" | "refresh") и exp.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds carried in the "type" claim. A token of one kind is never
// accepted where the other is required.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// refreshTokenTTL — фиксированное время жизни refresh token
const refreshTokenTTL = 7 * 24 * time.Hour

// Token verification errors
var (
	// ErrUnauthenticated covers bad signatures and malformed tokens
	ErrUnauthenticated = errors.New("invalid authentication credentials")

	// ErrTokenExpired indicates a valid signature with an elapsed exp claim
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidTokenType indicates a kind mismatch (access vs refresh)
	ErrInvalidTokenType = errors.New("invalid token type")

	// ErrMissingClaim indicates an absent sub claim
	ErrMissingClaim = errors.New("missing sub claim")
)

// Claims представляет JWT claims сервиса
type Claims struct {
	TokenType string `json:"type"` // "access" или "refresh"
	jwt.RegisteredClaims
}

// Service issues and verifies tokens with a single process-wide secret and
// signing algorithm (HS256), configured once at construction.
type Service struct {
	secret    []byte
	accessTTL time.Duration
}

// NewService creates a new token service.
// secret should be a cryptographically secure random string.
func NewService(secret string, accessTTL time.Duration) *Service {
	return &Service{
		secret:    []byte(secret),
		accessTTL: accessTTL,
	}
}

// IssueAccess создает access token для пользователя
func (s *Service) IssueAccess(username string) (string, error) {
	return s.issue(username, TokenTypeAccess, s.accessTTL)
}

// IssueRefresh создает refresh token. Тип "refresh" выставляется сервисом
// и не может быть переопределен вызывающим кодом.
func (s *Service) IssueRefresh(username string) (string, error) {
	return s.issue(username, TokenTypeRefresh, refreshTokenTTL)
}

func (s *Service) issue(username, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// VerifyAccess validates an access token and returns its subject (username).
// Expiry is enforced by claim validation during parsing; there is no
// separate expiry sweep.
func (s *Service) VerifyAccess(tokenString string) (string, error) {
	claims, err := s.verify(tokenString, TokenTypeAccess)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// VerifyRefresh validates a refresh token and returns its claims.
func (s *Service) VerifyRefresh(tokenString string) (*Claims, error) {
	return s.verify(tokenString, TokenTypeRefresh)
}

func (s *Service) verify(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrUnauthenticated
	}

	// Тип проверяется явно на каждом пути верификации
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("%w: expected %q", ErrInvalidTokenType, wantType)
	}
	if claims.Subject == "" {
		return nil, ErrMissingClaim
	}

	return claims, nil
}

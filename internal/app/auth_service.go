package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"letsquiz-service/internal/domain"
)

// UserRepository abstracts account storage.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id int64) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
}

// AuthService handles signup, login and bearer-token validation. Tokens are
// HS256 JWTs; refresh tokens only differ in lifetime and a type claim.
type AuthService struct {
	users      UserRepository
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(users UserRepository, secret string, accessTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Signup registers a new, active account. The email must be unused and the
// password at least 4 characters (the original platform's floor).
func (s *AuthService) Signup(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.NewValidationError("A valid email is required.")
	}
	if len(password) < 4 {
		return domain.User{}, domain.NewValidationError("Password must be at least 4 characters long.")
	}
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, domain.NewValidationError("A user with this email already exists.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		JoinedAt:     s.now(),
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// TokenPair is what a successful login hands back.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	UserID  int64  `json:"user_id"`
}

// Login checks credentials and issues a token pair. Unknown emails and wrong
// passwords share one generic failure; disabled accounts get their own
// message but the same code.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return TokenPair{}, domain.NewValidationError(`Must include "email" and "password".`)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, domain.ErrAuthenticationFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, domain.ErrAuthenticationFailed
	}
	if !user.IsActive {
		return TokenPair{}, domain.NewAuthError("User account is disabled.")
	}

	access, err := s.signToken(user.ID, "access", s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.signToken(user.ID, "refresh", s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh, UserID: user.ID}, nil
}

func (s *AuthService) signToken(userID int64, kind string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"type":    kind,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Authenticate validates an access token and resolves it to a caller. The
// account must still exist and be active.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Caller, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.Caller{}, domain.NewAuthError("Invalid or expired token.")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Caller{}, domain.NewAuthError("Invalid token claims.")
	}
	if kind, _ := claims["type"].(string); kind != "access" {
		return domain.Caller{}, domain.NewAuthError("Not an access token.")
	}
	idFloat, ok := claims["user_id"].(float64)
	if !ok {
		return domain.Caller{}, domain.NewAuthError("Invalid token claims.")
	}

	user, err := s.users.GetUser(ctx, int64(idFloat))
	if err != nil {
		return domain.Caller{}, domain.NewAuthError("Invalid or expired token.")
	}
	if !user.IsActive {
		return domain.Caller{}, domain.NewAuthError("User account is disabled.")
	}
	return domain.AsUser(user.ID), nil
}

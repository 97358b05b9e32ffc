package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/crediflow/crm-backend/internal/models"
	"github.com/crediflow/crm-backend/internal/repositories"
	"github.com/crediflow/crm-backend/pkg/apperrors"
)

// AuthService handles operator login and token issuance
type AuthService struct {
	userRepo  repositories.UserRepository
	jwtSecret string
	expiresIn time.Duration
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, expiresIn time.Duration) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		expiresIn: expiresIn,
	}
}

// Claims are the JWT claims embedded in operator tokens
type Claims struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Login verifies credentials and returns a signed token with the user.
// Inactive users cannot log in.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	if email == "" || password == "" {
		return "", nil, apperrors.NewValidation("credentials", "email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", nil, apperrors.NewNotFound("user", email)
		}
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return "", nil, apperrors.NewPrecondition("user account is deactivated")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperrors.NewValidation("credentials", "invalid email or password")
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}

	user.LastLoginAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		// Login still succeeds; the timestamp is best effort
		return token, user, nil
	}
	return token, user, nil
}

// GenerateToken signs a JWT for the given user
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	if s.jwtSecret == "" {
		return "", apperrors.NewConfiguration("auth", "JWT secret is not set")
	}

	now := time.Now()
	claims := Claims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token, returning its claims
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// CreateUser registers a new operator with a bcrypt password hash
func (s *AuthService) CreateUser(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	if email == "" {
		return nil, apperrors.NewValidation("email", "email is required")
	}
	if len(password) < 8 {
		return nil, apperrors.NewValidation("password", "password must be at least 8 characters")
	}
	switch role {
	case models.RoleAdmin, models.RoleManager, models.RoleAgent:
	default:
		return nil, apperrors.NewValidation("role", fmt.Sprintf("unknown role %q", role))
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.NewValidation("email", "email is already registered")
	} else if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUser loads one operator
func (s *AuthService) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.NewNotFound("user", id.Hex())
		}
		return nil, err
	}
	return user, nil
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"linkup-backend/internal/apperr"
	"linkup-backend/internal/models"
	"linkup-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserService handles user-related business logic
type UserService struct {
	userRepo  repository.UserStore
	jwtSecret string
	jwtTTL    time.Duration
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserStore, jwtSecret string, ttlDays int) *UserService {
	if ttlDays <= 0 {
		ttlDays = 7
	}
	return &UserService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		jwtTTL:    time.Duration(ttlDays) * 24 * time.Hour,
	}
}

// Registration is a newly created user with its access token
type Registration struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(s.jwtTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user_id not found in token")
	}

	return userID, nil
}

// Register creates a new, not yet onboarded user and issues its token
func (s *UserService) Register(ctx context.Context, fullName string) (*Registration, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "full name is required")
	}

	userID := uuid.New().String()

	token, err := s.GenerateJWT(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	user := &models.User{
		ID:        userID,
		FullName:  fullName,
		Friends:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &Registration{User: user, Token: token}, nil
}

// GetUser returns a user by ID
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// CompleteOnboarding stores the profile and marks the user onboarded
func (s *UserService) CompleteOnboarding(ctx context.Context, userID string, profile models.Profile) (*models.User, error) {
	profile.FullName = strings.TrimSpace(profile.FullName)
	profile.NativeLanguage = strings.ToLower(strings.TrimSpace(profile.NativeLanguage))
	profile.LearningLanguage = strings.ToLower(strings.TrimSpace(profile.LearningLanguage))

	if profile.FullName == "" || profile.NativeLanguage == "" || profile.LearningLanguage == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "full name, native language and learning language are required")
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to complete onboarding: %w", err)
	}
	return user, nil
}

// UpdatePushToken registers or clears the APNs device token of a user
func (s *UserService) UpdatePushToken(ctx context.Context, userID, pushToken string) error {
	var tokenPtr *string
	if pushToken = strings.TrimSpace(pushToken); pushToken != "" {
		tokenPtr = &pushToken
	}
	if err := s.userRepo.UpdatePushToken(ctx, userID, tokenPtr); err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}

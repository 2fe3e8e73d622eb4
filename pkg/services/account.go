package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bestcars/dealership-engine/pkg/apperrors"
	"github.com/bestcars/dealership-engine/pkg/auth"
	"github.com/bestcars/dealership-engine/pkg/models"
	"github.com/bestcars/dealership-engine/pkg/repositories"
)

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
}

// AccountService handles registration and credential checks.
type AccountService interface {
	// Register creates an account. Returns apperrors.ErrUsernameTaken or
	// apperrors.ErrEmailTaken when either is already registered, checked in that order.
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	// Authenticate returns the user for valid credentials, or
	// apperrors.ErrInvalidCredentials.
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

type accountService struct {
	userRepo     repositories.UserRepository
	passwordCost int
	logger       *zap.Logger
}

// NewAccountService creates a new account service. passwordCost is the bcrypt
// cost for new hashes (auth.DefaultPasswordCost in production).
func NewAccountService(userRepo repositories.UserRepository, passwordCost int, logger *zap.Logger) AccountService {
	return &accountService{
		userRepo:     userRepo,
		passwordCost: passwordCost,
		logger:       logger.Named("accounts"),
	}
}

func (s *accountService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	taken, err := s.userRepo.UsernameExists(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.ErrUsernameTaken
	}

	taken, err = s.userRepo.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.ErrEmailTaken
	}

	hash, err := auth.HashPassword(input.Password, s.passwordCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     input.Username,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hash,
	}

	// The unique indexes still catch a concurrent registration of the same name.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Registered user", zap.String("username", user.Username))
	return user, nil
}

func (s *accountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		// Login still succeeds; the timestamp is informational.
		s.logger.Warn("Failed to record last login",
			zap.String("username", user.Username),
			zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	return user, nil
}

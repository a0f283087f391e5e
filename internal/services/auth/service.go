package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	domainerrors "geopickup/internal/errors"
	"geopickup/internal/models"
	"geopickup/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	// Verify parses a bearer token and checks it has not been revoked. Tokens
	// are revoked by bumping the user's token version.
	Verify(ctx context.Context, bearer string) (*models.UserClaims, error)
}

type service struct {
	userRepo repositories.UserRepository
	issuer   *TokenIssuer
}

func NewService(userRepo repositories.UserRepository, issuer *TokenIssuer) Service {
	return &service{
		userRepo: userRepo,
		issuer:   issuer,
	}
}

func (s *service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		log.Printf("Login failed: user not found for %s", email)
		return nil, "", domainerrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Printf("Login failed: incorrect password for user %s", user.ID)
		return nil, "", domainerrors.ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(&models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		Permissions:  models.GetDefaultPermissions(user.Role),
	})
	if err != nil {
		return nil, "", fmt.Errorf("error generating token: %w", err)
	}
	return user, token, nil
}

func (s *service) Verify(ctx context.Context, bearer string) (*models.UserClaims, error) {
	claims, err := s.issuer.Parse(bearer)
	if err != nil {
		return nil, domainerrors.ErrNotAuthenticated
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrUserNotFound) {
			return nil, domainerrors.ErrNotAuthenticated
		}
		return nil, err
	}
	if user.TokenVersion != claims.TokenVersion {
		log.Printf("Token version mismatch for user %s. Token: %d, DB: %d", user.ID, claims.TokenVersion, user.TokenVersion)
		return nil, domainerrors.ErrNotAuthenticated.WithMessage("session expired")
	}
	return claims, nil
}

// HashPassword is used by the seeder and tests.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

const defaultAccessTTL = 12 * time.Hour

package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/sheetalMehta7/chillTube-backend/internal/repository"
	apperrors "github.com/sheetalMehta7/chillTube-backend/pkg/errors"
	"github.com/sheetalMehta7/chillTube-backend/pkg/logger"
)

const bcryptCost = 12

// PasswordService hashes, verifies, and changes user passwords.
type PasswordService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

// NewPasswordService creates a new password service.
func NewPasswordService(repo repository.UserRepository, log *slog.Logger) *PasswordService {
	return &PasswordService{repo: repo, logger: log}
}

// Hash produces a salted adaptive-cost hash of the plaintext.
func (s *PasswordService) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether the plaintext matches the stored hash.
func (s *PasswordService) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Change replaces the user's password after re-authenticating with the old
// one. It does not rotate tokens; existing sessions remain valid.
func (s *PasswordService) Change(ctx context.Context, userID, oldPassword, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return apperrors.InvalidInput("new password and confirmation do not match")
	}
	if newPassword == oldPassword {
		return apperrors.InvalidInput("new password must differ from the old password")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	if !s.Verify(oldPassword, user.PasswordHash) {
		return apperrors.Unauthorized("Invalid old password")
	}

	hash, err := s.Hash(newPassword)
	if err != nil {
		return apperrors.Internal(err)
	}

	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("store password hash: %w", err)
	}

	logger.WithContext(ctx, s.logger).InfoContext(ctx, "password changed",
		slog.String("user_id", userID),
	)
	return nil
}

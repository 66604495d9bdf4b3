package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sheetalMehta7/chillTube-backend/internal/auth"
	"github.com/sheetalMehta7/chillTube-backend/internal/domain"
	"github.com/sheetalMehta7/chillTube-backend/internal/event"
	"github.com/sheetalMehta7/chillTube-backend/internal/repository"
	"github.com/sheetalMehta7/chillTube-backend/internal/storage"
	apperrors "github.com/sheetalMehta7/chillTube-backend/pkg/errors"
	"github.com/sheetalMehta7/chillTube-backend/pkg/logger"
)

// TokenManager is the token surface the session service needs. Satisfied by
// auth.JWTManager.
type TokenManager interface {
	GenerateAccessToken(userID, username string) (string, error)
	GenerateRefreshToken(userID string) (string, error)
	ValidateRefreshToken(token string) (*auth.RefreshClaims, error)
}

// MediaUpload describes a staged local file to push to blob storage. The
// caller owns the staged file and removes it on every exit path.
type MediaUpload struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64
}

// RegisterInput carries the registration form fields and staged media.
type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string
	Avatar   *MediaUpload
	Cover    *MediaUpload
}

// LoginInput identifies a user by username or email plus password.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// SessionService owns the login/refresh/logout lifecycle. Each user has a
// single refresh-token slot: a new login or rotation overwrites it, and the
// presented refresh token must byte-equal the stored one to be redeemed.
type SessionService struct {
	repo      repository.UserRepository
	tokens    TokenManager
	passwords *PasswordService
	blobs     storage.Storage
	cache     ProfileCache
	events    event.Publisher
	logger    *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(
	repo repository.UserRepository,
	tokens TokenManager,
	passwords *PasswordService,
	blobs storage.Storage,
	cache ProfileCache,
	events event.Publisher,
	log *slog.Logger,
) *SessionService {
	return &SessionService{
		repo:      repo,
		tokens:    tokens,
		passwords: passwords,
		blobs:     blobs,
		cache:     cache,
		events:    events,
		logger:    log,
	}
}

// Register creates a new account. The avatar is mandatory; a failed cover
// upload is tolerated and leaves the cover URL empty.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)

	if in.Username == "" || in.Email == "" || in.FullName == "" || strings.TrimSpace(in.Password) == "" {
		return nil, apperrors.InvalidInput("All fields are required")
	}

	// Pre-check for a friendly conflict message. The UNIQUE constraints in
	// the store remain the authority under concurrent inserts. A taken
	// identity wins over a missing avatar.
	if _, err := s.repo.GetByIdentity(ctx, in.Username, in.Email); err == nil {
		return nil, apperrors.AlreadyExists("User with email or username already exists")
	} else if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing identity: %w", err)
	}

	if in.Avatar == nil {
		return nil, apperrors.InvalidInput("Avatar file is required")
	}

	userID := uuid.New().String()
	log := logger.WithContext(ctx, s.logger)

	avatarURL, err := s.uploadMedia(ctx, "avatars", userID, in.Avatar)
	if err != nil {
		return nil, apperrors.Upstream("failed to upload avatar", err)
	}

	var coverURL string
	if in.Cover != nil {
		coverURL, err = s.uploadMedia(ctx, "covers", userID, in.Cover)
		if err != nil {
			log.WarnContext(ctx, "cover upload failed, continuing without cover",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			coverURL = ""
		}
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           userID,
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		AvatarURL:    avatarURL,
		CoverURL:     coverURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	// Create-then-read must observe the write.
	created, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("read back created user %s: %w", userID, err))
	}

	if err := s.events.UserRegistered(ctx, event.UserRegisteredData{
		UserID:   created.ID,
		Username: created.Username,
		Email:    created.Email,
	}); err != nil {
		log.WarnContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", created.ID),
			slog.String("error", err.Error()),
		)
	}

	log.InfoContext(ctx, "user registered",
		slog.String("user_id", created.ID),
		slog.String("username", created.Username),
	)
	return created, nil
}

// Login verifies credentials, mints a token pair, and stores the refresh
// token. Any previously stored refresh token for the user is overwritten.
func (s *SessionService) Login(ctx context.Context, in LoginInput) (*domain.User, *domain.TokenPair, error) {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if in.Username == "" && in.Email == "" {
		return nil, nil, apperrors.InvalidInput("username or email is required")
	}

	user, err := s.repo.GetByIdentity(ctx, in.Username, in.Email)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.NotFound("User does not exist")
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	if !s.passwords.Verify(in.Password, user.PasswordHash) {
		return nil, nil, apperrors.Unauthorized("Invalid user credentials")
	}

	pair, err := s.issueAndStore(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	logger.WithContext(ctx, s.logger).InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
	)
	return user, pair, nil
}

// Refresh exchanges a refresh token for a new pair. A token can be redeemed
// exactly once: presenting one that no longer matches the stored slot is
// treated as reuse and rejected.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*domain.TokenPair, error) {
	if presented == "" {
		return nil, apperrors.Unauthorized("unauthorized request")
	}

	claims, err := s.tokens.ValidateRefreshToken(presented)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid refresh token")
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid refresh token")
	}

	if user.RefreshToken == nil || *user.RefreshToken != presented {
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "refresh token reuse detected",
			slog.String("user_id", user.ID),
		)
		return nil, apperrors.Unauthorized("refresh token expired or used")
	}

	pair, err := s.issueAndStore(ctx, user)
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.logger).InfoContext(ctx, "refresh token rotated",
		slog.String("user_id", user.ID),
	)
	return pair, nil
}

// Logout clears the refresh-token slot. Idempotent.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.repo.UpdateRefreshToken(ctx, userID, nil); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	logger.WithContext(ctx, s.logger).InfoContext(ctx, "user logged out",
		slog.String("user_id", userID),
	)
	return nil
}

// GetCurrentUser returns the public view of the authenticated user, served
// from the profile cache when possible.
func (s *SessionService) GetCurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	if cached, err := s.cache.Get(ctx, userID); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "profile cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, user); err != nil {
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "profile cache write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return user, nil
}

// ChangePassword delegates to the password service and publishes the
// lifecycle event on success.
func (s *SessionService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirmPassword string) error {
	if err := s.passwords.Change(ctx, userID, oldPassword, newPassword, confirmPassword); err != nil {
		return err
	}

	if err := s.events.UserPasswordChanged(ctx, event.UserPasswordChangedData{UserID: userID}); err != nil {
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "failed to publish user.password_changed event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// issueAndStore mints a fresh token pair and overwrites the refresh slot.
func (s *SessionService) issueAndStore(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("generate access token: %w", err))
	}

	refresh, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("generate refresh token: %w", err))
	}

	if err := s.repo.UpdateRefreshToken(ctx, user.ID, &refresh); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// uploadMedia pushes a staged local file to blob storage under
// <prefix>/<userID><ext> and returns the public URL.
func (s *SessionService) uploadMedia(ctx context.Context, prefix, userID string, m *MediaUpload) (string, error) {
	f, err := os.Open(m.Path)
	if err != nil {
		return "", fmt.Errorf("open staged file %s: %w", m.Path, err)
	}
	defer f.Close()

	key := prefix + "/" + userID + strings.ToLower(filepath.Ext(m.Filename))
	res, err := s.blobs.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: m.ContentType,
		Size:        m.Size,
		Data:        f,
	})
	if err != nil {
		return "", err
	}

	return res.URL, nil
}

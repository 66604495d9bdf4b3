package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sheetalMehta7/chillTube-backend/internal/service"
	apperrors "github.com/sheetalMehta7/chillTube-backend/pkg/errors"
	"github.com/sheetalMehta7/chillTube-backend/pkg/middleware"
	"github.com/sheetalMehta7/chillTube-backend/pkg/validator"
)

const (
	// RefreshTokenCookie is the cookie carrying the refresh token.
	RefreshTokenCookie = "refreshToken"

	maxUploadBytes = 32 << 20
)

// AuthHandler handles HTTP requests for the account and session endpoints.
type AuthHandler struct {
	sessions *service.SessionService
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(sessions *service.SessionService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, logger: logger}
}

// --- Request DTOs ---

// LoginRequest is the JSON request body for login. Either username or email
// identifies the account.
type LoginRequest struct {
	Username string `json:"username" validate:"omitempty,max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the optional JSON request body for token refresh; the
// cookie takes precedence.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest is the JSON request body for updating the password.
type ChangePasswordRequest struct {
	OldPassword     string `json:"oldPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=1"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// --- Handlers ---

// Register handles POST /api/v1/users/register (multipart).
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperrors.InvalidInput("invalid multipart form"))
		return
	}
	defer func() {
		// Drop form temp files regardless of outcome.
		_ = r.MultipartForm.RemoveAll()
	}()

	// A missing avatar is judged by the service, after the duplicate check.
	avatar, cleanupAvatar, err := h.stageUpload(r, "avatar")
	defer cleanupAvatar()
	if err != nil {
		writeError(w, apperrors.InvalidInput("could not read avatar upload"))
		return
	}

	cover, cleanupCover, err := h.stageUpload(r, "coverImage")
	defer cleanupCover()
	if err != nil {
		writeError(w, apperrors.InvalidInput("could not read cover upload"))
		return
	}

	user, err := h.sessions.Register(r.Context(), service.RegisterInput{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		FullName: r.FormValue("fullName"),
		Password: r.FormValue("password"),
		Avatar:   avatar,
		Cover:    cover,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user, "User registered successfully")
}

// Login handles POST /api/v1/users/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("invalid request body"))
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	user, pair, err := h.sessions.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	setAuthCookies(w, pair.AccessToken, pair.RefreshToken)
	writeSuccess(w, http.StatusOK, map[string]any{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "User logged in successfully")
}

// Logout handles POST /api/v1/users/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, apperrors.Unauthorized("user not authenticated"))
		return
	}

	if err := h.sessions.Logout(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	clearAuthCookies(w)
	writeSuccess(w, http.StatusOK, nil, "User logged out successfully")
}

// RefreshToken handles POST /api/v1/users/refresh-token. The refresh token
// is read from the cookie, falling back to the JSON body.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		presented = c.Value
	}
	if presented == "" && r.Body != nil {
		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			presented = req.RefreshToken
		}
	}

	pair, err := h.sessions.Refresh(r.Context(), presented)
	if err != nil {
		writeError(w, err)
		return
	}

	setAuthCookies(w, pair.AccessToken, pair.RefreshToken)
	writeSuccess(w, http.StatusOK, pair, "Access token refreshed")
}

// ChangePassword handles POST /api/v1/users/update-password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, apperrors.Unauthorized("user not authenticated"))
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("invalid request body"))
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.sessions.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil, "Password changed successfully")
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, apperrors.Unauthorized("user not authenticated"))
		return
	}

	user, err := h.sessions.GetCurrentUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, "Current user fetched successfully")
}

// --- Upload staging ---

// stageUpload copies a multipart file into a local temp file so the upload
// stream can be retried and sized. The returned cleanup removes the staged
// file and must run on every exit path.
func (h *AuthHandler) stageUpload(r *http.Request, field string) (*service.MediaUpload, func(), error) {
	noop := func() {}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, nil
		}
		return nil, noop, err
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "chilltube-upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return nil, noop, err
	}

	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			h.logger.Warn("failed to remove staged upload",
				slog.String("path", tmp.Name()),
				slog.String("error", err.Error()),
			)
		}
	}

	size, err := io.Copy(tmp, file)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return nil, noop, err
	}

	return &service.MediaUpload{
		Path:        tmp.Name(),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        size,
	}, cleanup, nil
}

// --- Cookies ---

func setAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    refreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

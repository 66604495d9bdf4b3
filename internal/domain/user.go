package domain

import (
	"time"
)

// User represents a registered account. PasswordHash and RefreshToken are
// secrets: they never appear in any outward-facing representation, which is
// enforced at the serialization boundary via `json:"-"`.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"-"`
	AvatarURL    string    `json:"avatar"`
	CoverURL     string    `json:"coverImage,omitempty"`
	RefreshToken *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TokenPair holds an access and refresh token pair. The refresh token is also
// mirrored onto the user record: it is valid for exactly one exchange cycle,
// and a presented refresh token must equal the stored one byte for byte.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

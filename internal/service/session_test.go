package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sheetalMehta7/chillTube-backend/internal/auth"
	"github.com/sheetalMehta7/chillTube-backend/internal/domain"
	"github.com/sheetalMehta7/chillTube-backend/internal/event"
	memstorage "github.com/sheetalMehta7/chillTube-backend/internal/storage/memory"
	apperrors "github.com/sheetalMehta7/chillTube-backend/pkg/errors"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByIdentity(ctx context.Context, username, email string) (*domain.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) UpdateRefreshToken(ctx context.Context, id string, token *string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *mockUserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

// --- In-memory fake repository for stateful lifecycle tests ---

type fakeUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.RefreshToken != nil {
		t := *u.RefreshToken
		c.RefreshToken = &t
	}
	return &c
}

func (r *fakeUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return apperrors.AlreadyExists("username or email already exists")
		}
	}
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *fakeUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *fakeUserRepository) GetByIdentity(_ context.Context, username, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return cloneUser(u), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeUserRepository) UpdateRefreshToken(_ context.Context, id string, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return apperrors.NotFound("user not found")
	}
	if token == nil {
		u.RefreshToken = nil
	} else {
		t := *token
		u.RefreshToken = &t
	}
	return nil
}

func (r *fakeUserRepository) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return apperrors.NotFound("user not found")
	}
	u.PasswordHash = hash
	return nil
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("access-secret-for-tests", "refresh-secret-for-tests", 15*time.Minute, 7*24*time.Hour)
}

type sessionFixture struct {
	svc   *SessionService
	repo  *fakeUserRepository
	blobs *memstorage.Storage
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	log := newTestLogger()
	repo := newFakeUserRepository()
	blobs := memstorage.New("http://blobs.local")
	svc := NewSessionService(
		repo,
		newTestJWTManager(),
		NewPasswordService(repo, log),
		blobs,
		NoopProfileCache{},
		event.NoopPublisher{},
		log,
	)
	return &sessionFixture{svc: svc, repo: repo, blobs: blobs}
}

func newSessionServiceWithMock(repo *mockUserRepository) *SessionService {
	log := newTestLogger()
	return NewSessionService(
		repo,
		newTestJWTManager(),
		NewPasswordService(repo, log),
		memstorage.New("http://blobs.local"),
		NoopProfileCache{},
		event.NoopPublisher{},
		log,
	)
}

// stageFile writes a temp file and returns a MediaUpload pointing at it.
func stageFile(t *testing.T, name, content string) *MediaUpload {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return &MediaUpload{
		Path:        path,
		Filename:    name,
		ContentType: "image/png",
		Size:        int64(len(content)),
	}
}

func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func registerAlice(t *testing.T, f *sessionFixture) *domain.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "a@x.com",
		FullName: "Alice Smith",
		Password: "p1",
		Avatar:   stageFile(t, "avatar.png", "avatar-bytes"),
	})
	require.NoError(t, err)
	return user
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	f := newSessionFixture(t)

	user, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "Alice",
		Email:    "A@X.com",
		FullName: "Alice Smith",
		Password: "p1",
		Avatar:   stageFile(t, "avatar.PNG", "avatar-bytes"),
		Cover:    stageFile(t, "cover.jpg", "cover-bytes"),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "http://blobs.local/avatars/"+user.ID+".png", user.AvatarURL)
	assert.Equal(t, "http://blobs.local/covers/"+user.ID+".jpg", user.CoverURL)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "p1", user.PasswordHash)
	assert.Nil(t, user.RefreshToken)
	assert.Equal(t, 2, f.blobs.Len())
}

func TestRegister_MissingFields(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "  ",
		Email:    "a@x.com",
		FullName: "Alice",
		Password: "p1",
		Avatar:   stageFile(t, "avatar.png", "x"),
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRegister_MissingAvatar(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "a@x.com",
		FullName: "Alice",
		Password: "p1",
	})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRegister_DuplicateIdentity(t *testing.T) {
	f := newSessionFixture(t)
	registerAlice(t, f)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "other@x.com",
		FullName: "Other Alice",
		Password: "p2",
		Avatar:   stageFile(t, "avatar.png", "x"),
	})

	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestRegister_DuplicateWinsOverMissingAvatar(t *testing.T) {
	f := newSessionFixture(t)
	registerAlice(t, f)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "a@x.com",
		FullName: "Alice Smith",
		Password: "p1",
	})

	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestRegister_AvatarUploadFailure(t *testing.T) {
	f := newSessionFixture(t)
	f.blobs.FailPrefixes = []string{"avatars/"}

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "a@x.com",
		FullName: "Alice",
		Password: "p1",
		Avatar:   stageFile(t, "avatar.png", "x"),
	})

	assert.ErrorIs(t, err, apperrors.ErrUpstream)
}

func TestRegister_CoverUploadFailureTolerated(t *testing.T) {
	f := newSessionFixture(t)

	// Make only the cover staged file unreadable so its upload fails.
	cover := stageFile(t, "cover.jpg", "cover-bytes")
	require.NoError(t, os.Remove(cover.Path))

	user, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "a@x.com",
		FullName: "Alice",
		Password: "p1",
		Avatar:   stageFile(t, "avatar.png", "avatar-bytes"),
		Cover:    cover,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, user.AvatarURL)
	assert.Empty(t, user.CoverURL)
}

func TestRegister_ReadbackFailure(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newSessionServiceWithMock(repo)
	ctx := context.Background()

	repo.On("GetByIdentity", ctx, "alice", "a@x.com").Return(nil, apperrors.ErrNotFound)
	repo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	repo.On("GetByID", ctx, mock.AnythingOfType("string")).Return(nil, apperrors.ErrNotFound)

	_, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "a@x.com",
		FullName: "Alice",
		Password: "p1",
		Avatar:   stageFile(t, "avatar.png", "x"),
	})

	require.Error(t, err)
	assert.Equal(t, 500, apperrors.HTTPStatus(err))
	repo.AssertExpectations(t)
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	f := newSessionFixture(t)
	registered := registerAlice(t, f)

	user, pair, err := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})

	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	stored, err := f.repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, pair.RefreshToken, *stored.RefreshToken)
}

func TestLogin_ByEmail(t *testing.T) {
	f := newSessionFixture(t)
	registerAlice(t, f)

	user, _, err := f.svc.Login(context.Background(), LoginInput{Email: "a@x.com", Password: "p1"})

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestLogin_MissingIdentity(t *testing.T) {
	f := newSessionFixture(t)

	_, _, err := f.svc.Login(context.Background(), LoginInput{Password: "p1"})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestLogin_UnknownUser(t *testing.T) {
	f := newSessionFixture(t)

	_, _, err := f.svc.Login(context.Background(), LoginInput{Username: "ghost", Password: "p1"})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newSessionFixture(t)
	registerAlice(t, f)

	_, _, err := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "wrong"})

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestLogin_OverwritesPriorRefreshToken(t *testing.T) {
	f := newSessionFixture(t)
	user := registerAlice(t, f)

	_, first, err := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)
	_, second, err := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The first session's refresh token is dead immediately.
	_, err = f.svc.Refresh(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	stored, err := f.repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, second.RefreshToken, *stored.RefreshToken)
}

// --- Refresh Tests ---

func TestRefresh_RotatesTokenPair(t *testing.T) {
	f := newSessionFixture(t)
	registerAlice(t, f)

	_, pair, err := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)

	rotated, err := f.svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
}

func TestRefresh_SecondRedemptionRejected(t *testing.T) {
	f := newSessionFixture(t)
	registerAlice(t, f)

	_, pair, err := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), pair.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Contains(t, err.Error(), "expired or used")
}

func TestRefresh_MissingToken(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.Refresh(context.Background(), "")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefresh_GarbageToken(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.Refresh(context.Background(), "not-a-jwt")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefresh_UnknownUser(t *testing.T) {
	f := newSessionFixture(t)

	token, err := newTestJWTManager().GenerateRefreshToken("ghost")
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefresh_AfterLogoutRejected(t *testing.T) {
	f := newSessionFixture(t)
	user := registerAlice(t, f)

	_, pair, err := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(context.Background(), user.ID))

	_, err = f.svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

// --- Logout Tests ---

func TestLogout_Idempotent(t *testing.T) {
	f := newSessionFixture(t)
	user := registerAlice(t, f)

	_, _, err := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), user.ID))
	require.NoError(t, f.svc.Logout(context.Background(), user.ID))

	stored, err := f.repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RefreshToken)
}

// --- GetCurrentUser Tests ---

func TestGetCurrentUser_FallsThroughToStore(t *testing.T) {
	f := newSessionFixture(t)
	user := registerAlice(t, f)

	got, err := f.svc.GetCurrentUser(context.Background(), user.ID)

	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestGetCurrentUser_Unknown(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.GetCurrentUser(context.Background(), "ghost")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- Full lifecycle scenario ---

func TestSessionLifecycle(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "a@x.com",
		FullName: "Alice Smith",
		Password: "p1",
		Avatar:   stageFile(t, "avatar.png", "avatar-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, pair, err := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "p1"})
	require.NoError(t, err)

	rotated, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	require.NoError(t, f.svc.Logout(ctx, user.ID))
}

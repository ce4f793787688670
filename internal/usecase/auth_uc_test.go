package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/auth"
	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	users  *MockUserRepository
	store  *MockTokenStore
	mailer *MockEmailSender
	tokens *auth.TokenManager
	uc     *AuthUsecase
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:  new(MockUserRepository),
		store:  new(MockTokenStore),
		mailer: new(MockEmailSender),
		tokens: auth.NewTokenManager("test-secret-that-is-long-enough-123", "verbfy", 15*time.Minute, time.Hour),
	}
	f.uc = NewAuthUsecase(f.users, f.tokens, f.store, f.mailer, nil, "https://app.verbfy.test", 30*time.Minute, logger.NewNop())
	f.uc.hashCost = bcrypt.MinCost
	return f
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthUsecase_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("teacher starts unapproved", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("Create", ctx, mock.AnythingOfType("*domain.User")).
			Run(func(args mock.Arguments) { args.Get(1).(*domain.User).ID = "u1" }).
			Return(nil)
		f.store.On("SaveRefresh", ctx, mock.AnythingOfType("string"), "u1", time.Hour).Return(nil)

		result, err := f.uc.Register(ctx, domain.Actor{}, RegisterInput{
			Name: "Tina", Email: " Tina@Example.com ", Password: "secret123", Role: domain.RoleTeacher,
		})
		require.NoError(t, err)
		assert.Equal(t, "tina@example.com", result.User.Email)
		assert.False(t, result.User.IsApproved)
		assert.NotEmpty(t, result.Tokens.AccessToken)

		claims, err := f.tokens.ParseAccess(result.Tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.UserID)
		assert.Equal(t, "teacher", claims.Role)
	})

	t.Run("admin role rejected", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.uc.Register(ctx, domain.Actor{}, RegisterInput{Name: "A", Email: "a@b.co", Password: "secret123", Role: domain.RoleAdmin})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("short password rejected", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.uc.Register(ctx, domain.Actor{}, RegisterInput{Name: "A", Email: "a@b.co", Password: "short", Role: domain.RoleStudent})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("Create", ctx, mock.Anything).Return(domain.ErrConflict)
		_, err := f.uc.Register(ctx, domain.Actor{}, RegisterInput{Name: "A", Email: "a@b.co", Password: "secret123", Role: domain.RoleStudent})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestAuthUsecase_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong password", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("GetByEmail", ctx, "s@verbfy.test").Return(&domain.User{ID: "s1", PasswordHash: hashed(t, "right-pass"), IsActive: true}, nil)
		_, err := f.uc.Login(ctx, "S@verbfy.test", "wrong-pass")
		assert.ErrorIs(t, err, domain.ErrInvalidCredential)
	})

	t.Run("unknown email looks like wrong password", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("GetByEmail", ctx, "nobody@verbfy.test").Return(nil, domain.ErrNotFound)
		_, err := f.uc.Login(ctx, "nobody@verbfy.test", "whatever1")
		assert.ErrorIs(t, err, domain.ErrInvalidCredential)
	})

	t.Run("deactivated account", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("GetByEmail", ctx, "s@verbfy.test").Return(&domain.User{ID: "s1", PasswordHash: hashed(t, "right-pass")}, nil)
		_, err := f.uc.Login(ctx, "s@verbfy.test", "right-pass")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("success touches last login", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("GetByEmail", ctx, "s@verbfy.test").Return(&domain.User{ID: "s1", Role: domain.RoleStudent, PasswordHash: hashed(t, "right-pass"), IsActive: true}, nil)
		f.users.On("TouchLogin", ctx, "s1", mock.AnythingOfType("time.Time")).Return(nil)
		f.store.On("SaveRefresh", ctx, mock.Anything, "s1", time.Hour).Return(nil)

		result, err := f.uc.Login(ctx, "s@verbfy.test", "right-pass")
		require.NoError(t, err)
		assert.NotNil(t, result.User.LastLoginAt)
		f.users.AssertExpectations(t)
	})
}

func TestAuthUsecase_RefreshRotates(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	user := &domain.User{ID: "s1", Role: domain.RoleStudent, IsActive: true}
	pair, err := f.tokens.Issue(user)
	require.NoError(t, err)

	f.store.On("ConsumeRefresh", ctx, pair.RefreshID).Return("s1", nil).Once()
	f.users.On("GetByID", ctx, "s1").Return(user, nil)
	f.store.On("SaveRefresh", ctx, mock.Anything, "s1", time.Hour).Return(nil)

	result, err := f.uc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshID, result.Tokens.RefreshID)

	f.store.On("ConsumeRefresh", ctx, pair.RefreshID).Return("", domain.ErrUnauthorized).Once()
	_, err = f.uc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthUsecase_RefreshRejectsAccessToken(t *testing.T) {
	f := newAuthFixture()
	pair, err := f.tokens.Issue(&domain.User{ID: "s1", Role: domain.RoleStudent})
	require.NoError(t, err)

	_, err = f.uc.Refresh(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	f.store.AssertNotCalled(t, "ConsumeRefresh", mock.Anything, mock.Anything)
}

func TestAuthUsecase_ForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email succeeds silently", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("GetByEmail", ctx, "ghost@verbfy.test").Return(nil, domain.ErrNotFound)
		assert.NoError(t, f.uc.ForgotPassword(ctx, "ghost@verbfy.test"))
		f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("sends reset link", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("GetByEmail", ctx, "s@verbfy.test").Return(&domain.User{ID: "s1", Name: "Sam", Email: "s@verbfy.test", IsActive: true}, nil)
		f.store.On("SaveReset", ctx, mock.AnythingOfType("string"), "s1", 30*time.Minute).Return(nil)
		f.mailer.On("Send", ctx, "s@verbfy.test", "Reset your Verbfy password",
			mock.MatchedBy(func(html string) bool {
				return strings.Contains(html, "https://app.verbfy.test/reset-password?token=")
			}), mock.Anything).Return(nil)

		require.NoError(t, f.uc.ForgotPassword(ctx, "s@verbfy.test"))
		f.mailer.AssertExpectations(t)
	})

	t.Run("escapes the user name in html", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("GetByEmail", ctx, "s@verbfy.test").Return(&domain.User{ID: "s1", Name: `<b>Sam</b>`, Email: "s@verbfy.test", IsActive: true}, nil)
		f.store.On("SaveReset", ctx, mock.AnythingOfType("string"), "s1", 30*time.Minute).Return(nil)
		f.mailer.On("Send", ctx, "s@verbfy.test", "Reset your Verbfy password",
			mock.MatchedBy(func(body string) bool {
				return strings.Contains(body, "Hello &lt;b&gt;Sam&lt;/b&gt;,") && !strings.Contains(body, "<b>Sam")
			}), mock.Anything).Return(nil)

		require.NoError(t, f.uc.ForgotPassword(ctx, "s@verbfy.test"))
		f.mailer.AssertExpectations(t)
	})
}

func TestAuthUsecase_ResetPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.store.On("ConsumeReset", ctx, "tok").Return("s1", nil)
	f.users.On("UpdatePassword", ctx, "s1", mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-password")) == nil
	})).Return(nil)

	require.NoError(t, f.uc.ResetPassword(ctx, "tok", "new-password"))
	f.users.AssertExpectations(t)

	assert.ErrorIs(t, f.uc.ResetPassword(ctx, "tok", "short"), domain.ErrInvalidInput)
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/auth"
	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthUsecase struct {
	users       domain.UserRepository
	tokens      *auth.TokenManager
	store       TokenStore
	mailer      EmailSender
	auditor     Auditor
	logger      *logger.Logger
	frontendURL string
	resetTTL    time.Duration
	hashCost    int
	now         func() time.Time
}

func NewAuthUsecase(
	users domain.UserRepository,
	tokens *auth.TokenManager,
	store TokenStore,
	mailer EmailSender,
	auditor Auditor,
	frontendURL string,
	resetTTL time.Duration,
	log *logger.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:       users,
		tokens:      tokens,
		store:       store,
		mailer:      mailer,
		auditor:     auditorOrNop(auditor),
		logger:      log.Named("AuthUsecase"),
		frontendURL: frontendURL,
		resetTTL:    resetTTL,
		hashCost:    bcrypt.DefaultCost,
		now:         time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	Level    domain.CEFRLevel
}

// AuthResult is returned by every operation that signs the user in.
type AuthResult struct {
	User   *domain.User    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

func (uc *AuthUsecase) hash(password string) (string, error) {
	if len(password) < domain.MinPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, domain.MinPasswordLength)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), uc.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Register creates a student or teacher account and signs it in.
func (uc *AuthUsecase) Register(ctx context.Context, actor domain.Actor, in RegisterInput) (*AuthResult, error) {
	uc.logger.Info("Registering user", zap.String("email", domain.NormalizeEmail(in.Email)), zap.String("role", string(in.Role)))

	if in.Role != domain.RoleStudent && in.Role != domain.RoleTeacher {
		return nil, fmt.Errorf("%w: role must be student or teacher", domain.ErrInvalidInput)
	}
	hash, err := uc.hash(in.Password)
	if err != nil {
		return nil, err
	}
	user, err := domain.NewUser(in.Name, in.Email, hash, in.Role, in.Level)
	if err != nil {
		return nil, err
	}

	if err := uc.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: email is already registered", domain.ErrConflict)
		}
		uc.logger.Error("Failed to create user", zap.Error(err))
		return nil, err
	}

	actor.UserID, actor.Role = user.ID, user.Role
	uc.auditor.Record(ctx, actor, domain.AuditUserRegistered, domain.EntityUser, user.ID, map[string]interface{}{"role": user.Role})

	pair, err := uc.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("User registered", zap.String("user_id", user.ID))
	return &AuthResult{User: user, Tokens: pair}, nil
}

func (uc *AuthUsecase) issue(ctx context.Context, user *domain.User) (*auth.TokenPair, error) {
	pair, err := uc.tokens.Issue(user)
	if err != nil {
		uc.logger.Error("Failed to issue tokens", zap.Error(err), zap.String("user_id", user.ID))
		return nil, err
	}
	if err := uc.store.SaveRefresh(ctx, pair.RefreshID, user.ID, uc.tokens.RefreshTTL()); err != nil {
		uc.logger.Error("Failed to store refresh token", zap.Error(err), zap.String("user_id", user.ID))
		return nil, err
	}
	return pair, nil
}

func (uc *AuthUsecase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = domain.NormalizeEmail(email)
	uc.logger.Info("Login attempt", zap.String("email", email))

	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredential
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		uc.logger.Warn("Login failed: wrong password", zap.String("user_id", user.ID))
		return nil, domain.ErrInvalidCredential
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", domain.ErrForbidden)
	}

	now := uc.now().UTC()
	if err := uc.users.TouchLogin(ctx, user.ID, now); err != nil {
		uc.logger.Warn("Failed to update last login", zap.Error(err), zap.String("user_id", user.ID))
	} else {
		user.LastLoginAt = &now
	}

	pair, err := uc.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Refresh rotates a refresh token. Each refresh token can be used once.
func (uc *AuthUsecase) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := uc.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	ownerID, err := uc.store.ConsumeRefresh(ctx, claims.ID)
	if err != nil {
		uc.logger.Warn("Refresh token rejected", zap.Error(err), zap.String("user_id", claims.UserID))
		return nil, err
	}
	if ownerID != claims.UserID {
		return nil, fmt.Errorf("%w: refresh token owner mismatch", domain.ErrUnauthorized)
	}

	user, err := uc.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", domain.ErrForbidden)
	}
	pair, err := uc.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (uc *AuthUsecase) Logout(ctx context.Context, refreshToken string) error {
	claims, err := uc.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil
	}
	if _, err := uc.store.ConsumeRefresh(ctx, claims.ID); err != nil && !errors.Is(err, domain.ErrUnauthorized) {
		uc.logger.Error("Failed to revoke refresh token", zap.Error(err))
		return err
	}
	uc.logger.Info("User logged out", zap.String("user_id", claims.UserID))
	return nil
}

func (uc *AuthUsecase) ChangePassword(ctx context.Context, actor domain.Actor, oldPassword, newPassword string) error {
	user, err := uc.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return domain.ErrInvalidCredential
	}
	hash, err := uc.hash(newPassword)
	if err != nil {
		return err
	}
	if err := uc.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		uc.logger.Error("Failed to update password", zap.Error(err), zap.String("user_id", user.ID))
		return err
	}
	uc.auditor.Record(ctx, actor, domain.AuditUserPasswordChanged, domain.EntityUser, user.ID, nil)
	return nil
}

// ForgotPassword emails a reset link. It reports success for unknown
// addresses so callers cannot learn which emails are registered.
func (uc *AuthUsecase) ForgotPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.logger.Info("Password reset requested for unknown email")
			return nil
		}
		return err
	}
	if !user.IsActive {
		return nil
	}

	token := uuid.NewString()
	if err := uc.store.SaveReset(ctx, token, user.ID, uc.resetTTL); err != nil {
		uc.logger.Error("Failed to store reset token", zap.Error(err), zap.String("user_id", user.ID))
		return err
	}

	link := uc.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
	bodyHTML := fmt.Sprintf(`<p>Hello %s,</p><p>Reset your Verbfy password by following <a href="%s">this link</a>. It expires in %s.</p>`,
		html.EscapeString(user.Name), html.EscapeString(link), uc.resetTTL)
	text := fmt.Sprintf("Hello %s,\n\nReset your Verbfy password: %s\nThe link expires in %s.\n", user.Name, link, uc.resetTTL)
	if err := uc.mailer.Send(ctx, user.Email, "Reset your Verbfy password", bodyHTML, text); err != nil {
		uc.logger.Error("Failed to send reset email", zap.Error(err), zap.String("user_id", user.ID))
	}
	return nil
}

func (uc *AuthUsecase) ResetPassword(ctx context.Context, token, newPassword string) error {
	hash, err := uc.hash(newPassword)
	if err != nil {
		return err
	}
	userID, err := uc.store.ConsumeReset(ctx, token)
	if err != nil {
		return err
	}
	if err := uc.users.UpdatePassword(ctx, userID, hash); err != nil {
		uc.logger.Error("Failed to reset password", zap.Error(err), zap.String("user_id", userID))
		return err
	}
	uc.auditor.Record(ctx, domain.Actor{UserID: userID}, domain.AuditUserPasswordChanged, domain.EntityUser, userID, map[string]interface{}{"via": "reset"})
	uc.logger.Info("Password reset", zap.String("user_id", userID))
	return nil
}

package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/example/contacts-api/config"
	repo "github.com/example/contacts-api/internal/adapters/postgres"
	mail "github.com/example/contacts-api/internal/adapters/smtp"
	"github.com/example/contacts-api/internal/domain"
	"github.com/example/contacts-api/internal/hash"
	"github.com/example/contacts-api/internal/token"
	pkglog "github.com/example/contacts-api/pkg/log"
)

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// RevocationStore is the process-external cache consulted before trusting a
// credential: denylisted access tokens, consumed reset tokens and a short
// lived copy of the user record. A nil store degrades to signature+expiry
// validation only.
type RevocationStore interface {
	Deny(ctx context.Context, jti string, ttl time.Duration) error
	IsDenied(ctx context.Context, jti string) (bool, error)
	ConsumeOnce(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	CacheUser(ctx context.Context, user *domain.User, ttl time.Duration) error
	CachedUser(ctx context.Context, email string) (*domain.User, error)
	DropUser(ctx context.Context, email string) error
}

type AuthService interface {
	Register(ctx context.Context, traceID, email, username, password string) (*domain.User, error)
	Login(ctx context.Context, traceID, email, password string) (*Tokens, error)
	Refresh(ctx context.Context, traceID, refreshToken string) (*Tokens, error)
	CurrentUser(ctx context.Context, accessToken string) (*domain.User, error)
	Logout(ctx context.Context, traceID, accessToken string) error
	ConfirmEmail(ctx context.Context, traceID, tokenStr string) (alreadyConfirmed bool, err error)
	ResendConfirmation(ctx context.Context, traceID, email string) (alreadyConfirmed bool, err error)
	ForgotPassword(ctx context.Context, traceID, email string) error
	ValidateResetToken(ctx context.Context, tokenStr string) error
	ResetPassword(ctx context.Context, traceID, tokenStr, newPassword, confirmPassword string) error
}

type authService struct {
	cfg    *config.Config
	logger pkglog.Logger
	users  repo.UserRepository
	codec  *token.Codec
	store  RevocationStore
	mailer mail.Mailer
}

func NewAuthService(cfg *config.Config, logger pkglog.Logger, users repo.UserRepository, codec *token.Codec, store RevocationStore, mailer mail.Mailer) AuthService {
	return &authService{cfg: cfg, logger: logger, users: users, codec: codec, store: store, mailer: mailer}
}

func (s *authService) Register(ctx context.Context, traceID, email, username, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return nil, domain.ErrDuplicateUsername
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	digest, err := hash.Hash(password)
	if err != nil {
		return nil, err
	}
	avatar := gravatarURL(email)
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		Avatar:       &avatar,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// The unique constraints are the authority on duplicates; a racing
		// registration loses here even when the pre-checks passed. Both email
		// and username are unique, so look up which one collided.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if _, lookupErr := s.users.FindByEmail(ctx, email); lookupErr == nil {
				return nil, domain.ErrDuplicateEmail
			}
			return nil, domain.ErrDuplicateUsername
		}
		return nil, err
	}

	s.dispatchConfirmation(user.Email, user.Username)
	s.logger.Info().Str("trace_id", traceID).Str("email", user.Email).Msg("user registered")
	return user, nil
}

func (s *authService) Login(ctx context.Context, traceID, email, password string) (*Tokens, error) {
	email = normalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, domain.ErrUnknownUser
	}
	if !user.Confirmed {
		return nil, domain.ErrEmailNotConfirmed
	}
	if !hash.Verify(password, user.PasswordHash) {
		return nil, domain.ErrBadPassword
	}
	tokens, err := s.issuePair(user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, user.Email, &tokens.RefreshToken); err != nil {
		return nil, err
	}
	s.dropCachedUser(ctx, user.Email)
	s.logger.Info().Str("trace_id", traceID).Str("email", user.Email).Msg("login")
	return tokens, nil
}

func (s *authService) Refresh(ctx context.Context, traceID, refreshToken string) (*Tokens, error) {
	claims, err := s.codec.Parse(refreshToken, token.PurposeRefresh)
	if err != nil {
		return nil, domain.ErrInvalidRefreshToken
	}
	if _, err := s.users.FindByEmail(ctx, claims.Email); err != nil {
		return nil, domain.ErrInvalidRefreshToken
	}
	tokens, err := s.issuePair(claims.Email)
	if err != nil {
		return nil, err
	}
	// Byte-for-byte equality against the stored token is the revocation
	// mechanism: rotation under a row lock leaves at most one winner, and a
	// mismatch clears the stored token so the holder must log in again.
	matched, err := s.users.RotateRefreshToken(ctx, claims.Email, refreshToken, tokens.RefreshToken)
	if err != nil {
		return nil, err
	}
	if !matched {
		s.logger.Warn().Str("trace_id", traceID).Str("email", claims.Email).Msg("refresh token reuse detected")
		return nil, domain.ErrInvalidRefreshToken
	}
	s.logger.Info().Str("trace_id", traceID).Str("email", claims.Email).Msg("tokens refreshed")
	return tokens, nil
}

func (s *authService) CurrentUser(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.codec.Parse(accessToken, token.PurposeAccess)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	if s.store != nil {
		denied, err := s.store.IsDenied(ctx, claims.JTI)
		if err == nil && denied {
			return nil, domain.ErrUnauthorized
		}
		if cached, err := s.store.CachedUser(ctx, claims.Email); err == nil && cached != nil {
			return cached, nil
		}
	}
	user, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	if s.store != nil {
		if err := s.store.CacheUser(ctx, user, s.cfg.UserCacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("user cache write failed")
		}
	}
	return user, nil
}

func (s *authService) Logout(ctx context.Context, traceID, accessToken string) error {
	claims, err := s.codec.Parse(accessToken, token.PurposeAccess)
	if err != nil {
		return domain.ErrUnauthorized
	}
	if s.store != nil {
		if err := s.store.Deny(ctx, claims.JTI, time.Until(claims.ExpiresAt)); err != nil {
			s.logger.Warn().Err(err).Msg("access token denylist write failed")
		}
	}
	if err := s.users.SetRefreshToken(ctx, claims.Email, nil); err != nil {
		return err
	}
	s.dropCachedUser(ctx, claims.Email)
	s.logger.Info().Str("trace_id", traceID).Str("email", claims.Email).Msg("logout")
	return nil
}

func (s *authService) ConfirmEmail(ctx context.Context, traceID, tokenStr string) (bool, error) {
	claims, err := s.codec.Parse(tokenStr, token.PurposeEmailConfirm)
	if err != nil {
		return false, domain.ErrVerification
	}
	user, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		return false, domain.ErrVerification
	}
	if user.Confirmed {
		return true, nil
	}
	if err := s.users.ConfirmEmail(ctx, user.Email); err != nil {
		return false, err
	}
	s.dropCachedUser(ctx, user.Email)
	s.logger.Info().Str("trace_id", traceID).Str("email", user.Email).Msg("email confirmed")
	return false, nil
}

func (s *authService) ResendConfirmation(ctx context.Context, traceID, email string) (bool, error) {
	email = normalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		// Same acknowledgment as the happy path so the endpoint cannot be
		// used to probe which emails are registered.
		return false, nil
	}
	if user.Confirmed {
		return true, nil
	}
	s.dispatchConfirmation(user.Email, user.Username)
	return false, nil
}

func (s *authService) ForgotPassword(ctx context.Context, traceID, email string) error {
	email = normalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil
	}
	go func() {
		resetToken, err := s.codec.Issue(user.Email, token.PurposePasswordReset, s.cfg.EmailTTL)
		if err != nil {
			s.logger.Error().Err(err).Msg("issue reset token failed")
			return
		}
		if err := s.mailer.SendReset(user.Email, user.Username, resetToken); err != nil {
			s.logger.Error().Err(err).Str("email", user.Email).Msg("reset mail failed")
		}
	}()
	s.logger.Info().Str("trace_id", traceID).Str("email", email).Msg("password reset requested")
	return nil
}

// ValidateResetToken checks a reset token without consuming it, so the reset
// form can reject a dead link before the user types a new password.
func (s *authService) ValidateResetToken(ctx context.Context, tokenStr string) error {
	claims, err := s.codec.Parse(tokenStr, token.PurposePasswordReset)
	if err != nil {
		return domain.ErrVerification
	}
	if _, err := s.users.FindByEmail(ctx, claims.Email); err != nil {
		return domain.ErrVerification
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, traceID, tokenStr, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return domain.ErrPasswordMismatch
	}
	claims, err := s.codec.Parse(tokenStr, token.PurposePasswordReset)
	if err != nil {
		return domain.ErrVerification
	}
	if s.store != nil {
		ok, err := s.store.ConsumeOnce(ctx, claims.JTI, time.Until(claims.ExpiresAt))
		if err == nil && !ok {
			return domain.ErrVerification
		}
	}
	user, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		return domain.ErrVerification
	}
	digest, err := hash.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.Email, digest); err != nil {
		return err
	}
	// A changed password invalidates the standing refresh token as well.
	if err := s.users.SetRefreshToken(ctx, user.Email, nil); err != nil {
		return err
	}
	s.dropCachedUser(ctx, user.Email)
	s.logger.Info().Str("trace_id", traceID).Str("email", user.Email).Msg("password reset")
	return nil
}

func (s *authService) issuePair(email string) (*Tokens, error) {
	access, err := s.codec.Issue(email, token.PurposeAccess, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.Issue(email, token.PurposeRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// dispatchConfirmation is fire and forget: a completed registration is not
// undone when the notification fails.
func (s *authService) dispatchConfirmation(email, username string) {
	go func() {
		confirmToken, err := s.codec.Issue(email, token.PurposeEmailConfirm, s.cfg.EmailTTL)
		if err != nil {
			s.logger.Error().Err(err).Msg("issue confirmation token failed")
			return
		}
		if err := s.mailer.SendConfirmation(email, username, confirmToken); err != nil {
			s.logger.Error().Err(err).Str("email", email).Msg("confirmation mail failed")
		}
	}()
}

func (s *authService) dropCachedUser(ctx context.Context, email string) {
	if s.store == nil {
		return
	}
	if err := s.store.DropUser(ctx, email); err != nil {
		s.logger.Warn().Err(err).Msg("user cache drop failed")
	}
}

func normalizeEmail(email string) string { return strings.TrimSpace(email) }

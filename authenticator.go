package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// LoginResult is the outcome of a successful credential check. Suspended
// logins produce a result with no token pair: the caller renders the
// suspended notice instead of a session.
type LoginResult struct {
	User      *User
	Pair      *TokenPair
	Suspended bool
}

// Auther holds the credential and token flows behind login
type Auther struct {
	provider *UserProvider
	users    Users
	tokens   TokenService
	logger   Logger
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(provider *UserProvider, users Users, tokens TokenService) *Auther {
	return &Auther{
		provider: provider,
		users:    users,
		tokens:   tokens,
		logger:   defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// TokenService returns the TokenService instance used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies credentials and issues the token pair. The password check
// runs before any state gate so a wrong password on a suspended account is
// still just a credential failure.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	user, err := s.provider.VerifyUser(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		return nil, err
	}

	if err := EnsureAuthenticatable(user); err != nil {
		if goerrors.Is(err, ErrUserSuspended) {
			s.logger.Warn("Login for suspended account", "user", user.UUID)
			return &LoginResult{User: user, Suspended: true}, nil
		}
		return nil, err
	}

	pair, err := s.tokens.GeneratePair(NewIdentity(user))
	if err != nil {
		s.logger.Error("Login token generation failed", "error", err)
		return nil, err
	}

	if err := s.users.RecordLogin(ctx, user); err != nil {
		s.logger.Error("failed to record login timestamp", "error", err)
	}

	return &LoginResult{User: user, Pair: pair}, nil
}

// Refresh exchanges a refresh token for a fresh pair. The subject must
// still resolve to an account that is allowed to hold a session.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrTokenMalformed
	}

	user, err := s.users.GetByUUID(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrTokenMalformed
		}
		return nil, err
	}

	if err := EnsureAuthenticatable(user); err != nil {
		return nil, err
	}

	return s.tokens.GeneratePair(NewIdentity(user))
}

// FederatedLogin routes an externally verified email into the same token
// issuance path as an ordinary login, creating the account when absent.
func (s *Auther) FederatedLogin(ctx context.Context, email, firstname, lastname string) (*LoginResult, bool, error) {
	user, created, err := s.users.FindOrCreate(ctx, NewFederatedUser(email, firstname, lastname))
	if err != nil {
		return nil, false, err
	}

	if err := EnsureAuthenticatable(user); err != nil {
		if goerrors.Is(err, ErrUserSuspended) {
			return &LoginResult{User: user, Suspended: true}, created, nil
		}
		return nil, created, err
	}

	pair, err := s.tokens.GeneratePair(NewIdentity(user))
	if err != nil {
		return nil, created, err
	}

	if err := s.users.RecordLogin(ctx, user); err != nil {
		s.logger.Error("failed to record login timestamp", "error", err)
	}

	return &LoginResult{User: user, Pair: pair}, created, nil
}

// IdentityFromClaims resolves the acting user behind validated claims
func (s *Auther) IdentityFromClaims(ctx context.Context, claims AuthClaims) (Identity, error) {
	return s.provider.FindIdentityByIdentifier(ctx, claims.UserID())
}

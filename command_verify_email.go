package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type VerifyEmailMessage struct {
	UID        string `json:"uid"`
	Token      string `json:"token"`
	OnResponse func(user *User)
}

func (e VerifyEmailMessage) Type() string { return "user.verify_email" }

// VerifyEmailHandler consumes an activation link. Every failure mode,
// undecodable uid, unknown user, already active account, stale or tampered
// token, collapses into ErrInvalidActionLink.
type VerifyEmailHandler struct {
	repo   RepositoryManager
	tokens *ActionTokenService
	logger Logger
}

func NewVerifyEmailHandler(repo RepositoryManager, tokens *ActionTokenService) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
	}
}

func (h *VerifyEmailHandler) WithLogger(logger Logger) *VerifyEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email verification")
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	var activated *User

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		id, err := DecodeUID(event.UID)
		if err != nil {
			return ErrInvalidActionLink
		}

		user, err := h.repo.Users().GetByUUIDTx(ctx, tx, id)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrInvalidActionLink
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for email verification")
		}

		if err := CanActivate(user); err != nil {
			return err
		}

		if !h.tokens.CheckToken(user, PurposeActivation, event.Token) {
			return ErrInvalidActionLink
		}

		if err := h.repo.Users().ActivateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate user")
		}

		activated = user
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email verification transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(activated)
	}

	return nil
}

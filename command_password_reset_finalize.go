package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type VerifyPasswordResetMessage struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

func (p VerifyPasswordResetMessage) Type() string { return "user.password_reset_verify" }

type FinalizePasswordResetMessage struct {
	UID               string `json:"uid"`
	Token             string `json:"token"`
	NewPassword       string `json:"new_password"`
	RepeatNewPassword string `json:"repeat_new_password"`
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

// FinalizePasswordResetHandler verifies and consumes reset links. The hash
// replacement changes the token fingerprint, so a consumed link fails the
// recomputation on the next attempt.
type FinalizePasswordResetHandler struct {
	repo   RepositoryManager
	tokens *ActionTokenService
	logger Logger
}

func NewFinalizePasswordResetHandler(repo RepositoryManager, tokens *ActionTokenService) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
	}
}

func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Verify is the probe behind the GET link: it checks the token without
// consuming it.
func (h *FinalizePasswordResetHandler) Verify(ctx context.Context, event VerifyPasswordResetMessage) error {
	user, err := h.resolveUser(ctx, h.repo.Users(), event.UID)
	if err != nil {
		return err
	}

	if !h.tokens.CheckToken(user, PurposePasswordReset, event.Token) {
		return ErrInvalidActionLink
	}

	return nil
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// the confirmation check runs before any hash is computed
	if event.NewPassword == "" || event.NewPassword != event.RepeatNewPassword {
		return ErrPasswordMismatch
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.resolveUserTx(ctx, tx, event.UID)
		if err != nil {
			return err
		}

		if !h.tokens.CheckToken(user, PurposePasswordReset, event.Token) {
			return ErrInvalidActionLink
		}

		hash, err := HashPassword(event.NewPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
		}

		if err := h.repo.Users().SetPasswordHashTx(ctx, tx, user, hash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	return nil
}

func (h *FinalizePasswordResetHandler) resolveUser(ctx context.Context, users Users, uid string) (*User, error) {
	id, err := DecodeUID(uid)
	if err != nil {
		return nil, ErrInvalidActionLink
	}

	user, err := users.GetByUUID(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidActionLink
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	return user, nil
}

func (h *FinalizePasswordResetHandler) resolveUserTx(ctx context.Context, tx bun.Tx, uid string) (*User, error) {
	id, err := DecodeUID(uid)
	if err != nil {
		return nil, ErrInvalidActionLink
	}

	user, err := h.repo.Users().GetByUUIDTx(ctx, tx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidActionLink
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	return user, nil
}

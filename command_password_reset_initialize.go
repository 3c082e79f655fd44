package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

type InitializePasswordResetResponse struct {
	User  *User
	UID   string
	Token string
}

// InitializePasswordResetHandler mints a reset link for an active account
// and hands it to the mailer.
type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	tokens   *ActionTokenService
	notifier *Notifier
	logger   Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, tokens *ActionTokenService, notifier *Notifier) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		logger:   defLogger{},
	}
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return goerrors.New("user does not exist", goerrors.CategoryValidation)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}

		if !user.IsActive {
			return goerrors.New("account is not activated", goerrors.CategoryValidation)
		}

		resp.User = user
		resp.UID = EncodeUID(user.UUID)
		resp.Token = h.tokens.MakeToken(user, PurposePasswordReset)

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	if err := h.notifier.SendPasswordResetEmail(ctx, resp.User, resp.UID, resp.Token); err != nil {
		h.logger.Error("failed to send password reset email", "error", err)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type SuspendUserMessage struct {
	Actor Identity `json:"-"`
	Email string   `json:"email"`
}

func (p SuspendUserMessage) Type() string { return "user.suspend" }

// SuspendUserHandler flips a user into the suspended state. Only staff
// actors may run it.
type SuspendUserHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewSuspendUserHandler(repo RepositoryManager) *SuspendUserHandler {
	return &SuspendUserHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *SuspendUserHandler) WithLogger(logger Logger) *SuspendUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SuspendUserHandler) Execute(ctx context.Context, event SuspendUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user suspension",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SuspendUserHandler) execute(ctx context.Context, event SuspendUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := CanSuspend(event.Actor); err != nil {
		return err
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return goerrors.New("user does not exist", goerrors.CategoryNotFound).
					WithTextCode("USER_NOT_FOUND").
					WithCode(goerrors.CodeNotFound)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for suspension")
		}

		if !user.IsActive {
			return goerrors.New("user account is not activated", goerrors.CategoryValidation).
				WithTextCode(TextCodeNotActivated).
				WithCode(goerrors.CodeBadRequest)
		}

		if err := h.repo.Users().SuspendTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to suspend user")
		}

		h.logger.Info("user suspended by staff", "email", user.Email, "staff", event.Actor.Username())

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to suspend user")
	}

	return nil
}

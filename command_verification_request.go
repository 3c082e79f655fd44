package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RequestVerificationMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *RequestVerificationResponse)
}

func (e RequestVerificationMessage) Type() string { return "user.verification_request" }

type RequestVerificationResponse struct {
	User  *User
	UID   string
	Token string
}

// RequestVerificationHandler resends the activation link to an account
// that has not verified its email yet.
type RequestVerificationHandler struct {
	repo     RepositoryManager
	tokens   *ActionTokenService
	notifier *Notifier
	logger   Logger
}

func NewRequestVerificationHandler(repo RepositoryManager, tokens *ActionTokenService, notifier *Notifier) *RequestVerificationHandler {
	return &RequestVerificationHandler{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		logger:   defLogger{},
	}
}

func (h *RequestVerificationHandler) WithLogger(logger Logger) *RequestVerificationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestVerificationHandler) Execute(ctx context.Context, event RequestVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during verification request")
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestVerificationHandler) execute(ctx context.Context, event RequestVerificationMessage) error {
	resp := &RequestVerificationResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return goerrors.New("user does not exist", goerrors.CategoryValidation)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for verification request")
		}

		if user.IsActive {
			return goerrors.New("account is already activated", goerrors.CategoryValidation)
		}

		resp.User = user
		resp.UID = EncodeUID(user.UUID)
		resp.Token = h.tokens.MakeToken(user, PurposeActivation)

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to process verification request")
	}

	if err := h.notifier.SendVerificationEmail(ctx, resp.User, resp.UID, resp.Token); err != nil {
		h.logger.Error("failed to send verification email", "error", err)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

package accounts_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	accounts "github.com/loopscentral/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestVerifyEmailHandler(t *testing.T) {
	actionTokens := accounts.NewActionTokenService([]byte("secret"), 24)

	pending := &accounts.User{
		ID:           9,
		UUID:         uuid.New(),
		Email:        "ada@example.com",
		PasswordHash: "$2a$12$hash",
	}

	t.Run("valid link activates the account", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByUUIDTx", mock.Anything, mock.Anything, pending.UUID).
			Return(pending, nil).Once()
		store.On("ActivateTx", mock.Anything, mock.Anything, pending).
			Return(nil).Once()

		var activated *accounts.User
		handler := accounts.NewVerifyEmailHandler(stubRepoManager{users: store}, actionTokens).
			WithLogger(testLogger{})

		err := handler.Execute(context.Background(), accounts.VerifyEmailMessage{
			UID:   accounts.EncodeUID(pending.UUID),
			Token: actionTokens.MakeToken(pending, accounts.PurposeActivation),
			OnResponse: func(user *accounts.User) {
				activated = user
			},
		})

		require.NoError(t, err)
		require.NotNil(t, activated)
		store.AssertExpectations(t)
	})

	t.Run("garbage uid", func(t *testing.T) {
		handler := accounts.NewVerifyEmailHandler(stubRepoManager{users: &MockUsers{}}, actionTokens).
			WithLogger(testLogger{})

		err := handler.Execute(context.Background(), accounts.VerifyEmailMessage{
			UID:   "!!not-base64!!",
			Token: "whatever",
		})

		assert.ErrorIs(t, err, accounts.ErrInvalidActionLink)
	})

	t.Run("unknown uuid", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByUUIDTx", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, notFoundErr()).Once()

		handler := accounts.NewVerifyEmailHandler(stubRepoManager{users: store}, actionTokens).
			WithLogger(testLogger{})

		err := handler.Execute(context.Background(), accounts.VerifyEmailMessage{
			UID:   accounts.EncodeUID(uuid.New()),
			Token: "whatever",
		})

		assert.ErrorIs(t, err, accounts.ErrInvalidActionLink)
	})

	t.Run("already active account", func(t *testing.T) {
		active := &accounts.User{ID: 3, UUID: uuid.New(), IsActive: true}
		store := &MockUsers{}
		store.On("GetByUUIDTx", mock.Anything, mock.Anything, active.UUID).
			Return(active, nil).Once()

		handler := accounts.NewVerifyEmailHandler(stubRepoManager{users: store}, actionTokens).
			WithLogger(testLogger{})

		err := handler.Execute(context.Background(), accounts.VerifyEmailMessage{
			UID:   accounts.EncodeUID(active.UUID),
			Token: actionTokens.MakeToken(active, accounts.PurposeActivation),
		})

		assert.ErrorIs(t, err, accounts.ErrInvalidActionLink)
	})

	t.Run("token minted for another purpose", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByUUIDTx", mock.Anything, mock.Anything, pending.UUID).
			Return(pending, nil).Once()

		handler := accounts.NewVerifyEmailHandler(stubRepoManager{users: store}, actionTokens).
			WithLogger(testLogger{})

		err := handler.Execute(context.Background(), accounts.VerifyEmailMessage{
			UID:   accounts.EncodeUID(pending.UUID),
			Token: actionTokens.MakeToken(pending, accounts.PurposePasswordReset),
		})

		assert.ErrorIs(t, err, accounts.ErrInvalidActionLink)
	})
}

func TestRequestVerificationHandler(t *testing.T) {
	actionTokens := accounts.NewActionTokenService([]byte("secret"), 24)

	t.Run("re-mints and mails a new link", func(t *testing.T) {
		pending := &accounts.User{
			ID:    5,
			UUID:  uuid.New(),
			Email: "ada@example.com",
		}

		store := &MockUsers{}
		mailer := &MockMailer{}
		store.On("GetByEmailTx", mock.Anything, mock.Anything, pending.Email).
			Return(pending, nil).Once()
		mailer.On("Send", mock.Anything, mock.Anything).Return(nil).Once()

		handler := accounts.NewRequestVerificationHandler(
			stubRepoManager{users: store}, actionTokens, newTestNotifier(t, mailer),
		).WithLogger(testLogger{})

		err := handler.Execute(context.Background(), accounts.RequestVerificationMessage{
			Email: pending.Email,
		})

		require.NoError(t, err)
		mailer.AssertExpectations(t)
	})

	t.Run("unknown email", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByEmailTx", mock.Anything, mock.Anything, "ghost@example.com").
			Return(nil, notFoundErr()).Once()

		handler := accounts.NewRequestVerificationHandler(
			stubRepoManager{users: store}, actionTokens, newTestNotifier(t, &MockMailer{}),
		).WithLogger(testLogger{})

		err := handler.Execute(context.Background(), accounts.RequestVerificationMessage{
			Email: "ghost@example.com",
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "user does not exist")
	})

	t.Run("already activated account", func(t *testing.T) {
		active := &accounts.User{ID: 5, UUID: uuid.New(), Email: "ada@example.com", IsActive: true}
		store := &MockUsers{}
		store.On("GetByEmailTx", mock.Anything, mock.Anything, active.Email).
			Return(active, nil).Once()

		handler := accounts.NewRequestVerificationHandler(
			stubRepoManager{users: store}, actionTokens, newTestNotifier(t, &MockMailer{}),
		).WithLogger(testLogger{})

		err := handler.Execute(context.Background(), accounts.RequestVerificationMessage{
			Email: active.Email,
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already activated")
	})
}

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

func TestInitializePasswordResetHandler(t *testing.T) {
	actionTokens := accounts.NewActionTokenService([]byte("secret"), 24)

	active := &accounts.User{
		ID:           2,
		UUID:         uuid.New(),
		Email:        "ada@example.com",
		PasswordHash: "$2a$12$hash",
		IsActive:     true,
	}

	t.Run("mails a reset link for an active user", func(t *testing.T) {
		store := &MockUsers{}
		mailer := &MockMailer{}
		store.On("GetByEmailTx", mock.Anything, mock.Anything, active.Email).
			Return(active, nil).Once()

		var sent accounts.Email
		mailer.On("Send", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				sent = args.Get(1).(accounts.Email)
			}).Return(nil).Once()

		var res *accounts.InitializePasswordResetResponse
		handler := accounts.NewInitializePasswordResetHandler(
			stubRepoManager{users: store}, actionTokens, newTestNotifier(t, mailer),
		).WithLogger(testLogger{})

		err := handler.Execute(context.Background(), accounts.InitializePasswordResetMessage{
			Email: active.Email,
			OnResponse: func(resp *accounts.InitializePasswordResetResponse) {
				res = resp
			},
		})

		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Contains(t, sent.Subject, "Reset Your Password")
		assert.Contains(t, sent.HTML, res.UID)
		assert.Contains(t, sent.HTML, res.Token)
		assert.True(t, actionTokens.CheckToken(active, accounts.PurposePasswordReset, res.Token))
	})

	t.Run("unknown email", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByEmailTx", mock.Anything, mock.Anything, "ghost@example.com").
			Return(nil, notFoundErr()).Once()

		handler := accounts.NewInitializePasswordResetHandler(
			stubRepoManager{users: store}, actionTokens, newTestNotifier(t, &MockMailer{}),
		).WithLogger(testLogger{})

		err := handler.Execute(context.Background(), accounts.InitializePasswordResetMessage{
			Email: "ghost@example.com",
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "user does not exist")
	})

	t.Run("inactive account cannot reset", func(t *testing.T) {
		inactive := &accounts.User{ID: 4, UUID: uuid.New(), Email: "new@example.com"}
		store := &MockUsers{}
		store.On("GetByEmailTx", mock.Anything, mock.Anything, inactive.Email).
			Return(inactive, nil).Once()

		handler := accounts.NewInitializePasswordResetHandler(
			stubRepoManager{users: store}, actionTokens, newTestNotifier(t, &MockMailer{}),
		).WithLogger(testLogger{})

		err := handler.Execute(context.Background(), accounts.InitializePasswordResetMessage{
			Email: inactive.Email,
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not activated")
	})
}

func TestFinalizePasswordResetHandler(t *testing.T) {
	actionTokens := accounts.NewActionTokenService([]byte("secret"), 24)

	active := &accounts.User{
		ID:           2,
		UUID:         uuid.New(),
		Email:        "ada@example.com",
		PasswordHash: "$2a$12$oldhash",
		IsActive:     true,
	}

	t.Run("valid link replaces the hash", func(t *testing.T) {
		token := actionTokens.MakeToken(active, accounts.PurposePasswordReset)

		store := &MockUsers{}
		store.On("GetByUUIDTx", mock.Anything, mock.Anything, active.UUID).
			Return(active, nil).Once()
		store.On("SetPasswordHashTx", mock.Anything, mock.Anything, active, mock.MatchedBy(func(hash string) bool {
			return hash != "" && hash != active.PasswordHash &&
				accounts.ComparePasswordAndHash("newPassword123", hash) == nil
		})).Return(nil).Once()

		handler := accounts.NewFinalizePasswordResetHandler(stubRepoManager{users: store}, actionTokens).
			WithLogger(testLogger{})

		err := handler.Execute(context.Background(), accounts.FinalizePasswordResetMessage{
			UID:               accounts.EncodeUID(active.UUID),
			Token:             token,
			NewPassword:       "newPassword123",
			RepeatNewPassword: "newPassword123",
		})

		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("password mismatch is checked before anything else", func(t *testing.T) {
		handler := accounts.NewFinalizePasswordResetHandler(
			stubRepoManager{users: &MockUsers{}}, actionTokens,
		).WithLogger(testLogger{})

		err := handler.Execute(context.Background(), accounts.FinalizePasswordResetMessage{
			UID:               accounts.EncodeUID(active.UUID),
			Token:             "irrelevant",
			NewPassword:       "one-password",
			RepeatNewPassword: "another-password",
		})

		assert.ErrorIs(t, err, accounts.ErrPasswordMismatch)
	})

	t.Run("consumed link fails the recheck", func(t *testing.T) {
		token := actionTokens.MakeToken(active, accounts.PurposePasswordReset)

		// the stored hash changed since the link was minted
		rotated := &accounts.User{
			ID:           active.ID,
			UUID:         active.UUID,
			Email:        active.Email,
			PasswordHash: "$2a$12$replacedhash",
			IsActive:     true,
		}

		store := &MockUsers{}
		store.On("GetByUUIDTx", mock.Anything, mock.Anything, active.UUID).
			Return(rotated, nil).Once()

		handler := accounts.NewFinalizePasswordResetHandler(stubRepoManager{users: store}, actionTokens).
			WithLogger(testLogger{})

		err := handler.Execute(context.Background(), accounts.FinalizePasswordResetMessage{
			UID:               accounts.EncodeUID(active.UUID),
			Token:             token,
			NewPassword:       "newPassword123",
			RepeatNewPassword: "newPassword123",
		})

		assert.ErrorIs(t, err, accounts.ErrInvalidActionLink)
	})

	t.Run("verify probe does not consume", func(t *testing.T) {
		token := actionTokens.MakeToken(active, accounts.PurposePasswordReset)

		store := &MockUsers{}
		store.On("GetByUUID", mock.Anything, active.UUID).
			Return(active, nil).Twice()

		handler := accounts.NewFinalizePasswordResetHandler(stubRepoManager{users: store}, actionTokens).
			WithLogger(testLogger{})

		for i := 0; i < 2; i++ {
			err := handler.Verify(context.Background(), accounts.VerifyPasswordResetMessage{
				UID:   accounts.EncodeUID(active.UUID),
				Token: token,
			})
			require.NoError(t, err)
		}
	})

	t.Run("verify rejects a bad token", func(t *testing.T) {
		store := &MockUsers{}
		store.On("GetByUUID", mock.Anything, active.UUID).
			Return(active, nil).Once()

		handler := accounts.NewFinalizePasswordResetHandler(stubRepoManager{users: store}, actionTokens).
			WithLogger(testLogger{})

		err := handler.Verify(context.Background(), accounts.VerifyPasswordResetMessage{
			UID:   accounts.EncodeUID(active.UUID),
			Token: "bad-token",
		})

		assert.ErrorIs(t, err, accounts.ErrInvalidActionLink)
	})
}

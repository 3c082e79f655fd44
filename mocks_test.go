package accounts_test

import (
	"context"
	"database/sql"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	accounts "github.com/loopscentral/go-accounts"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockUsers stubs the account store. The embedded interface covers the
// generic repository methods nothing in these tests touches.
type MockUsers struct {
	mock.Mock
	accounts.Users
}

func usersReturn(args mock.Arguments) (*accounts.User, error) {
	var user *accounts.User
	if u := args.Get(0); u != nil {
		user = u.(*accounts.User)
	}
	return user, args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*accounts.User, error) {
	return usersReturn(m.Called(ctx, email))
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*accounts.User, error) {
	return usersReturn(m.Called(ctx, tx, email))
}

func (m *MockUsers) GetByUUID(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	return usersReturn(m.Called(ctx, id))
}

func (m *MockUsers) GetByUUIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*accounts.User, error) {
	return usersReturn(m.Called(ctx, tx, id))
}

func (m *MockUsers) GetByUsername(ctx context.Context, username string) (*accounts.User, error) {
	return usersReturn(m.Called(ctx, username))
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*accounts.User, error) {
	return usersReturn(m.Called(ctx, identifier))
}

func (m *MockUsers) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	args := m.Called(ctx, email, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, record *accounts.User, criteria ...repository.InsertCriteria) (*accounts.User, error) {
	return usersReturn(m.Called(ctx, record))
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.User, criteria ...repository.InsertCriteria) (*accounts.User, error) {
	return usersReturn(m.Called(ctx, tx, record))
}

func (m *MockUsers) FindOrCreate(ctx context.Context, record *accounts.User) (*accounts.User, bool, error) {
	args := m.Called(ctx, record)
	var user *accounts.User
	if u := args.Get(0); u != nil {
		user = u.(*accounts.User)
	}
	return user, args.Bool(1), args.Error(2)
}

func (m *MockUsers) FindOrCreateTx(ctx context.Context, tx bun.IDB, record *accounts.User) (*accounts.User, bool, error) {
	args := m.Called(ctx, tx, record)
	var user *accounts.User
	if u := args.Get(0); u != nil {
		user = u.(*accounts.User)
	}
	return user, args.Bool(1), args.Error(2)
}

func (m *MockUsers) Activate(ctx context.Context, user *accounts.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUsers) ActivateTx(ctx context.Context, tx bun.IDB, user *accounts.User) error {
	return m.Called(ctx, tx, user).Error(0)
}

func (m *MockUsers) Suspend(ctx context.Context, user *accounts.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUsers) SuspendTx(ctx context.Context, tx bun.IDB, user *accounts.User) error {
	return m.Called(ctx, tx, user).Error(0)
}

func (m *MockUsers) SetPasswordHash(ctx context.Context, user *accounts.User, hash string) error {
	return m.Called(ctx, user, hash).Error(0)
}

func (m *MockUsers) SetPasswordHashTx(ctx context.Context, tx bun.IDB, user *accounts.User, hash string) error {
	return m.Called(ctx, tx, user, hash).Error(0)
}

func (m *MockUsers) RecordLogin(ctx context.Context, user *accounts.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUsers) RecordLoginTx(ctx context.Context, tx bun.IDB, user *accounts.User) error {
	return m.Called(ctx, tx, user).Error(0)
}

// stubRepoManager runs the transactional closure against a zero tx so the
// per-method mocks above see the calls.
type stubRepoManager struct {
	users accounts.Users
}

func (s stubRepoManager) Validate() error { return nil }
func (s stubRepoManager) MustValidate()   {}

func (s stubRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (s stubRepoManager) Users() accounts.Users { return s.users }

// MockMailer records outgoing mail
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg accounts.Email) error {
	return m.Called(ctx, msg).Error(0)
}

func notFoundErr() error {
	return repository.NewRecordNotFound()
}

func testConfig() *accounts.SimpleConfig {
	return &accounts.SimpleConfig{
		SigningKey:   "test-signing-key",
		Issuer:       "accounts-test",
		SiteName:     "Loopscentral",
		ContactEmail: "support@loopscentral.test",
	}
}

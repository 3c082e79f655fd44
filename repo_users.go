package accounts

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the account store: the only mutator of persisted user state
type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUUIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
	FindOrCreate(ctx context.Context, record *User) (*User, bool, error)
	FindOrCreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, bool, error)

	Activate(ctx context.Context, user *User) error
	ActivateTx(ctx context.Context, tx bun.IDB, user *User) error
	Suspend(ctx context.Context, user *User) error
	SuspendTx(ctx context.Context, tx bun.IDB, user *User) error
	SetPasswordHash(ctx context.Context, user *User, hash string) error
	SetPasswordHashTx(ctx context.Context, tx bun.IDB, user *User, hash string) error
	RecordLogin(ctx context.Context, user *User) error
	RecordLoginTx(ctx context.Context, tx bun.IDB, user *User) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository builds the bun-backed user store
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.UUID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.UUID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().Model(record).
		Where("LOWER(?TableAlias.email) = LOWER(?)", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, recordNotFound("email", email)
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByUUID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.GetByUUIDTx(ctx, a.db, id)
}

func (a *users) GetByUUIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.uuid = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, recordNotFound("uuid", id.String())
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().Model(record).
		Where("?TableAlias.username = ?", strings.TrimSpace(username)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, recordNotFound("username", username)
		}
		return nil, err
	}

	return record, nil
}

// GetByIdentifier accepts a uuid, email, or username and tries the matching
// columns in that order.
func (a *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	trimmed := strings.TrimSpace(identifier)

	if id, err := uuid.Parse(trimmed); err == nil {
		if record, err := a.GetByUUID(ctx, id); err == nil {
			return record, nil
		} else if !repository.IsRecordNotFound(err) {
			return nil, err
		}
	}

	if isEmail(trimmed) {
		if record, err := a.GetByEmail(ctx, trimmed); err == nil {
			return record, nil
		} else if !repository.IsRecordNotFound(err) {
			return nil, err
		}
	}

	if record, err := a.GetByUsername(ctx, trimmed); err == nil {
		return record, nil
	} else if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return nil, recordNotFound("identifier", identifier)
}

func (a *users) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	return a.db.NewSelect().Model((*User)(nil)).
		Where("LOWER(?TableAlias.email) = LOWER(?)", strings.TrimSpace(email)).
		WhereOr("?TableAlias.username = ?", strings.TrimSpace(username)).
		Exists(ctx)
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)

	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}

	return created, nil
}

func (a *users) FindOrCreate(ctx context.Context, record *User) (*User, bool, error) {
	return a.FindOrCreateTx(ctx, a.db, record)
}

// FindOrCreateTx is keyed by email; the bool reports whether a new record
// was created.
func (a *users) FindOrCreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, bool, error) {
	user, err := a.GetByEmailTx(ctx, tx, record.Email)
	if err == nil {
		return user, false, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, false, err
	}

	created, err := a.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, false, err
	}

	return created, true, nil
}

func (a *users) Activate(ctx context.Context, user *User) error {
	return a.ActivateTx(ctx, a.db, user)
}

func (a *users) ActivateTx(ctx context.Context, tx bun.IDB, user *User) error {
	if err := a.setFlags(ctx, tx, user, map[string]any{
		"is_active":       true,
		"is_email_active": true,
	}); err != nil {
		return err
	}

	user.IsActive = true
	user.IsEmailActive = true
	return nil
}

func (a *users) Suspend(ctx context.Context, user *User) error {
	return a.SuspendTx(ctx, a.db, user)
}

func (a *users) SuspendTx(ctx context.Context, tx bun.IDB, user *User) error {
	if err := a.setFlags(ctx, tx, user, map[string]any{
		"is_suspended": true,
	}); err != nil {
		return err
	}

	user.IsSuspended = true
	return nil
}

func (a *users) SetPasswordHash(ctx context.Context, user *User, hash string) error {
	return a.SetPasswordHashTx(ctx, a.db, user, hash)
}

func (a *users) SetPasswordHashTx(ctx context.Context, tx bun.IDB, user *User, hash string) error {
	if err := a.setFlags(ctx, tx, user, map[string]any{
		"password_hash": hash,
	}); err != nil {
		return err
	}

	user.PasswordHash = hash
	return nil
}

func (a *users) RecordLogin(ctx context.Context, user *User) error {
	return a.RecordLoginTx(ctx, a.db, user)
}

func (a *users) RecordLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	now := time.Now()
	if err := a.setFlags(ctx, tx, user, map[string]any{
		"last_login_at": now,
	}); err != nil {
		return err
	}

	user.LastLoginAt = &now
	return nil
}

// setFlags is a single-record atomic field update keyed by the internal id,
// always touching updated_at.
func (a *users) setFlags(ctx context.Context, tx bun.IDB, user *User, fields map[string]any) error {
	q := tx.NewUpdate().Model((*User)(nil)).
		Where("?TableAlias.id = ?", user.ID)

	for column, value := range fields {
		q = q.Set("? = ?", bun.Ident(column), value)
	}
	q = q.Set("updated_at = ?", time.Now())

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return recordNotFound("id", user.UUID.String())
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.NormalizeEmail()

	if record.Username == "" && strings.Contains(record.Email, "@") {
		record.Username = strings.Split(record.Email, "@")[0]
	}

	if record.UUID == uuid.Nil {
		record.UUID = uuid.New()
	}
}

func recordNotFound(field, value string) error {
	return repository.NewRecordNotFound().WithMetadata(map[string]any{
		field: value,
	})
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

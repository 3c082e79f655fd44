package accounts

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the canonical account record. The numeric ID is internal and
// stable; UUID is the opaque identifier exposed in links and tokens.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID   int64     `bun:"id,pk,autoincrement" json:"id,omitempty"`
	UUID uuid.UUID `bun:"uuid,notnull,unique,type:uuid" json:"uuid,omitempty"`

	FirstName string `bun:"firstname" json:"firstname,omitempty"`
	LastName  string `bun:"lastname" json:"lastname,omitempty"`
	Username  string `bun:"username,notnull,unique" json:"username,omitempty"`
	Email     string `bun:"email,notnull,unique" json:"email,omitempty"`

	PasswordHash string `bun:"password_hash" json:"-"`

	IsActive      bool `bun:"is_active,notnull,default:false" json:"is_active"`
	IsEmailActive bool `bun:"is_email_active,notnull,default:false" json:"is_email_active"`
	IsSuspended   bool `bun:"is_suspended,notnull,default:false" json:"is_suspended"`
	IsStaff       bool `bun:"is_staff,notnull,default:false" json:"is_staff"`
	IsSuperuser   bool `bun:"is_superuser,notnull,default:false" json:"is_superuser"`

	LastLoginAt *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt   *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// FullName joins first and last name for display and email templates
func (u *User) FullName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", u.FirstName, u.LastName))
}

// NormalizeEmail lowercases the email so the unique constraint is
// effectively case-insensitive.
func (u *User) NormalizeEmail() {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
}

// authIdentity adapts a User to the Identity interface
type authIdentity struct {
	id       string
	username string
	email    string
	staff    bool
}

var _ Identity = authIdentity{}

func (a authIdentity) ID() string       { return a.id }
func (a authIdentity) Username() string { return a.username }
func (a authIdentity) Email() string    { return a.email }
func (a authIdentity) IsStaff() bool    { return a.staff }

// NewIdentity exposes a user as an Identity keyed by its public uuid
func NewIdentity(user *User) Identity {
	return authIdentity{
		id:       user.UUID.String(),
		username: user.Username,
		email:    user.Email,
		staff:    user.IsStaff,
	}
}

package accounts

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActionPurpose binds a one-time token to the operation it proves. The
// purpose participates in the token hash so an activation link can never be
// replayed as a reset link for the same user.
type ActionPurpose string

const (
	// PurposeActivation is the email verification link
	PurposeActivation ActionPurpose = "activation"
	// PurposePasswordReset is the password reset link
	PurposePasswordReset ActionPurpose = "password-reset"
)

// ActionTokenService mints and checks one-time action tokens. A token is a
// base36 timestamp plus an HMAC over the user's id, uuid, purpose, and the
// mutable state fields that flip when the token is consumed: is_active,
// password hash, last login.
type ActionTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// ActionTokenOption customizes the token service
type ActionTokenOption func(*ActionTokenService)

// WithActionTokenClock injects a custom clock (useful for tests)
func WithActionTokenClock(clock func() time.Time) ActionTokenOption {
	return func(s *ActionTokenService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewActionTokenService creates a token service with the given secret and
// expiry window in hours.
func NewActionTokenService(secret []byte, expirationHours int, opts ...ActionTokenOption) *ActionTokenService {
	if expirationHours <= 0 {
		expirationHours = 24
	}

	s := &ActionTokenService{
		secret: secret,
		ttl:    time.Duration(expirationHours) * time.Hour,
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// MakeToken mints a token for the user and purpose, valid until the expiry
// window elapses or the user's state fingerprint changes.
func (s *ActionTokenService) MakeToken(user *User, purpose ActionPurpose) string {
	ts := s.now().Unix()
	return strconv.FormatInt(ts, 36) + "-" + s.signature(user, purpose, ts)
}

// CheckToken recomputes the expected token and compares in constant time.
// Malformed input, an expired window, and a stale state fingerprint all
// report false; callers collapse them into one user-facing error.
func (s *ActionTokenService) CheckToken(user *User, purpose ActionPurpose, token string) bool {
	if user == nil || token == "" {
		return false
	}

	tsPart, macPart, ok := strings.Cut(token, "-")
	if !ok {
		return false
	}

	ts, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil {
		return false
	}

	if s.now().Sub(time.Unix(ts, 0)) > s.ttl {
		return false
	}

	return hmac.Equal([]byte(macPart), []byte(s.signature(user, purpose, ts)))
}

func (s *ActionTokenService) signature(user *User, purpose ActionPurpose, ts int64) string {
	var lastLogin int64
	if user.LastLoginAt != nil {
		lastLogin = user.LastLoginAt.Unix()
	}

	fingerprint := fmt.Sprintf(
		"%d|%s|%s|%t|%s|%d|%d",
		user.ID, user.UUID, purpose, user.IsActive, user.PasswordHash, lastLogin, ts,
	)

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(fingerprint))
	return hex.EncodeToString(mac.Sum(nil))
}

// EncodeUID produces the URL-safe encoding of a user's public uuid used in
// email links.
func EncodeUID(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.String()))
}

// DecodeUID reverses EncodeUID
func DecodeUID(s string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(string(raw))
}

package accounts

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeInvalidCreds signals a failed credential check
	TextCodeInvalidCreds = "INVALID_CREDENTIALS"
	// TextCodeInvalidLink signals a rejected action link, regardless of cause
	TextCodeInvalidLink = "INVALID_OR_EXPIRED_LINK"
	// TextCodeNotActivated signals a login against an unverified account
	TextCodeNotActivated = "ACCOUNT_NOT_ACTIVATED"
	// TextCodeSuspended signals a login against a suspended account
	TextCodeSuspended = "ACCOUNT_SUSPENDED"
	// TextCodeTokenExpired signals an expired JWT
	TextCodeTokenExpired = "TOKEN_EXPIRED"
	// TextCodeEmptyPassword signals an empty password input
	TextCodeEmptyPassword = "EMPTY_PASSWORD"
	// TextCodeDuplicateUser signals a username/email uniqueness violation
	TextCodeDuplicateUser = "DUPLICATE_USER"
	// TextCodePasswordMismatch signals new/repeat password disagreement
	TextCodePasswordMismatch = "PASSWORD_MISMATCH"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound)

// ErrMismatchedHashAndPassword is returned when a password check fails
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before they reach the hasher
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrInvalidActionLink is the single user-facing error for every action-token
// failure: unknown uid, tampered token, or expired window. The causes are
// deliberately not distinguishable by the caller.
var ErrInvalidActionLink = goerrors.New("link is invalid or has expired, request a new one", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidLink).
	WithCode(goerrors.CodeBadRequest)

// ErrUserNotActivated blocks logins until the email is verified
var ErrUserNotActivated = goerrors.New("account not activated, request an activation link", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotActivated).
	WithCode(goerrors.CodeUnauthorized)

// ErrUserSuspended marks the suspended-notice branch of a login
var ErrUserSuspended = goerrors.New("account suspended, reach out to the support team", goerrors.CategoryAuth).
	WithTextCode(TextCodeSuspended)

// ErrTokenExpired is returned for structurally valid but expired JWTs
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers everything else that can go wrong parsing a JWT
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateUser is surfaced when the store rejects a second writer on the
// username/email unique constraints
var ErrDuplicateUser = goerrors.New("user exists, please try again", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateUser).
	WithCode(goerrors.CodeConflict)

// ErrPasswordMismatch rejects change/reset payloads before any hashing happens
var ErrPasswordMismatch = goerrors.New("passwords do not match, please try again", goerrors.CategoryValidation).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(goerrors.CodeBadRequest)

// ErrUnableToFindSession means no claims were stored in the request context
var ErrUnableToFindSession = goerrors.New("unable to find session in context", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToDecodeSession means the stored value was not claims
var ErrUnableToDecodeSession = goerrors.New("unable to decode session claims", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrNotStaff is the permission failure for the suspend operation
var ErrNotStaff = goerrors.New("you can not suspend a user if you are not our staff", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// HTTPStatusFor maps an error category to the status code used by the
// response envelope. Unknown errors are treated as internal.
func HTTPStatusFor(err error) int {
	if err == nil {
		return 200
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return 500
	}

	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict:
		return 400
	case goerrors.CategoryAuth:
		return 401
	case goerrors.CategoryAuthz:
		return 403
	case goerrors.CategoryNotFound:
		return 404
	default:
		return 500
	}
}

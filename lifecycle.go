package accounts

// Lifecycle rules: the decision logic for which account state transitions
// are legal. Persistence happens in the Users repository; these helpers only
// decide and stamp flags.

// NewRegisteredUser builds the record for a self-service registration:
// unverified and unusable until the activation link is consumed.
func NewRegisteredUser(firstname, lastname, username, email, passwordHash string) *User {
	return &User{
		FirstName:    firstname,
		LastName:     lastname,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}
}

// NewFederatedUser builds the record for an OAuth get-or-create: the
// provider already proved email ownership, so the account is born active.
// No local password exists; an unusable hash fills the slot.
func NewFederatedUser(email, firstname, lastname string) *User {
	return &User{
		FirstName:     firstname,
		LastName:      lastname,
		Email:         email,
		PasswordHash:  RandomPasswordHash(),
		IsActive:      true,
		IsEmailActive: true,
	}
}

// NewSuperUser builds an elevated, pre-activated record for provisioning
func NewSuperUser(firstname, lastname, username, email, passwordHash string) *User {
	return &User{
		FirstName:     firstname,
		LastName:      lastname,
		Username:      username,
		Email:         email,
		PasswordHash:  passwordHash,
		IsActive:      true,
		IsEmailActive: true,
		IsStaff:       true,
		IsSuperuser:   true,
	}
}

// CanActivate guards the Unverified -> Active transition: only an inactive
// user may be activated. Re-activation fails the same way an invalid link
// does, so a consumed activation token is not distinguishable from a
// tampered one.
func CanActivate(user *User) error {
	if user == nil || user.IsActive {
		return ErrInvalidActionLink
	}
	return nil
}

// EnsureAuthenticatable gates token issuance. Suspension is reported as
// ErrUserSuspended so the caller can produce the suspended-notice response
// instead of a hard failure.
func EnsureAuthenticatable(user *User) error {
	if user == nil {
		return ErrMismatchedHashAndPassword
	}

	if !user.IsActive {
		return ErrUserNotActivated
	}

	if user.IsSuspended {
		return ErrUserSuspended
	}

	return nil
}

// CanSuspend guards the admin suspension path: the actor must be staff.
func CanSuspend(actor Identity) error {
	if actor == nil || !actor.IsStaff() {
		return ErrNotStaff
	}
	return nil
}

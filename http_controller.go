package accounts

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/loopscentral/go-accounts/social/google"
)

// AccountController serves the JSON account API
type AccountController struct {
	Logger   Logger
	Config   Config
	Repo     RepositoryManager
	Auther   *Auther
	Tokens   *ActionTokenService
	Notifier *Notifier
	Google   *google.Verifier
}

type AccountControllerOption func(*AccountController) *AccountController

func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Logger = logger
		return c
	}
}

func WithGoogleVerifier(verifier *google.Verifier) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Google = verifier
		return c
	}
}

func NewAccountController(cfg Config, repo RepositoryManager, auther *Auther, tokens *ActionTokenService, notifier *Notifier, opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger:   defLogger{},
		Config:   cfg,
		Repo:     repo,
		Auther:   auther,
		Tokens:   tokens,
		Notifier: notifier,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in account controller...")
	}

	if c.Auther == nil {
		panic("Missing Auther in account controller...")
	}

	return c
}

// RegisterPayload is the registration body
type RegisterPayload struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Username, validation.Length(3, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AccountController) Register(c *fiber.Ctx) error {
	payload := new(RegisterPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return errorResponse(c, fiber.StatusBadRequest, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register validate payload", "error", err)
		return errorResponse(c, fiber.StatusBadRequest, err)
	}

	var res *RegisterUserResponse

	handler := NewRegisterUserHandler(a.Repo, a.Tokens, a.Notifier).WithLogger(a.Logger)
	err := handler.Execute(c.Context(), RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Password:  payload.Password,
		OnResponse: func(resp *RegisterUserResponse) {
			res = resp
		},
	})
	if err != nil {
		a.Logger.Error("register user", "error", err)
		return renderError(c, err)
	}

	return successResponse(c, fiber.StatusCreated, "User created!", fiber.Map{
		"firstname": res.User.FirstName,
		"lastname":  res.User.LastName,
		"username":  res.User.Username,
		"email":     res.User.Email,
	})
}

// LoginPayload is the credential body
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AccountController) Login(c *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return errorResponse(c, fiber.StatusBadRequest, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err)
	}

	result, err := a.Auther.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		// credential and activation failures render as bad request, the
		// message alone says what went wrong
		if goerrors.Is(err, ErrMismatchedHashAndPassword) || goerrors.Is(err, ErrUserNotActivated) {
			var richErr *goerrors.Error
			goerrors.As(err, &richErr)
			return errorResponse(c, fiber.StatusBadRequest, richErr.Message)
		}
		return renderError(c, err)
	}

	if result.Suspended {
		return successResponse(c, fiber.StatusOK,
			"Account suspended. Kindly reach out to the support team.", fiber.Map{})
	}

	return successResponse(c, fiber.StatusOK, "Login successful", fiber.Map{
		"access":    result.Pair.Access,
		"refresh":   result.Pair.Refresh,
		"id":        result.User.UUID,
		"firstname": result.User.FirstName,
		"lastname":  result.User.LastName,
		"username":  result.User.Username,
		"email":     result.User.Email,
	})
}

// RefreshPayload carries the refresh token
type RefreshPayload struct {
	Refresh string `json:"refresh"`
}

// Validate will run validation rules
func (r RefreshPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Refresh, validation.Required),
	)
}

func (a *AccountController) RefreshLogin(c *fiber.Ctx) error {
	payload := new(RefreshPayload)

	if err := c.BodyParser(payload); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err)
	}

	pair, err := a.Auther.Refresh(c.Context(), payload.Refresh)
	if err != nil {
		a.Logger.Error("refresh login", "error", err)
		return renderError(c, err)
	}

	return successResponse(c, fiber.StatusOK, "Login refreshed", fiber.Map{
		"access":  pair.Access,
		"refresh": pair.Refresh,
	})
}

// Logout acknowledges the end of a session. Access tokens are stateless, so
// the client discards its pair; nothing is revoked server side.
func (a *AccountController) Logout(c *fiber.Ctx) error {
	return successResponse(c, fiber.StatusOK, "Logged out successful!", fiber.Map{})
}

// EmailPayload carries a lone email address
type EmailPayload struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r EmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AccountController) RequestEmailUIDToken(c *fiber.Ctx) error {
	payload := new(EmailPayload)

	if err := c.BodyParser(payload); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err)
	}

	handler := NewRequestVerificationHandler(a.Repo, a.Tokens, a.Notifier).WithLogger(a.Logger)
	err := handler.Execute(c.Context(), RequestVerificationMessage{Email: payload.Email})
	if err != nil {
		a.Logger.Error("request verification", "error", err)
		return renderError(c, err)
	}

	return successResponse(c, fiber.StatusAccepted,
		"An email activation link has been sent to your mail inbox!", fiber.Map{})
}

func (a *AccountController) VerifyEmail(c *fiber.Ctx) error {
	handler := NewVerifyEmailHandler(a.Repo, a.Tokens).WithLogger(a.Logger)
	err := handler.Execute(c.Context(), VerifyEmailMessage{
		UID:   c.Params("uid"),
		Token: c.Params("token"),
	})
	if err != nil {
		a.Logger.Error("verify email", "error", err)
		if goerrors.Is(err, ErrInvalidActionLink) {
			return errorResponse(c, fiber.StatusBadRequest,
				"Email activation link is invalid. Request again!")
		}
		return renderError(c, err)
	}

	return successResponse(c, fiber.StatusAccepted, "Email activated!", fiber.Map{})
}

func (a *AccountController) ResetPassword(c *fiber.Ctx) error {
	payload := new(EmailPayload)

	if err := c.BodyParser(payload); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err)
	}

	handler := NewInitializePasswordResetHandler(a.Repo, a.Tokens, a.Notifier).WithLogger(a.Logger)
	err := handler.Execute(c.Context(), InitializePasswordResetMessage{Email: payload.Email})
	if err != nil {
		a.Logger.Error("initialize password reset", "error", err)
		return renderError(c, err)
	}

	return successResponse(c, fiber.StatusAccepted,
		"Password reset link has been sent to your mail inbox!", fiber.Map{})
}

func (a *AccountController) VerifyResetPassword(c *fiber.Ctx) error {
	handler := NewFinalizePasswordResetHandler(a.Repo, a.Tokens).WithLogger(a.Logger)
	err := handler.Verify(c.Context(), VerifyPasswordResetMessage{
		UID:   c.Params("uid"),
		Token: c.Params("token"),
	})
	if err != nil {
		return renderError(c, err)
	}

	return successResponse(c, fiber.StatusOK, "Password reset link verified!", fiber.Map{})
}

// NewPasswordPayload is the reset confirmation body
type NewPasswordPayload struct {
	NewPassword       string `json:"new_password"`
	RepeatNewPassword string `json:"repeat_new_password"`
}

// Validate will run validation rules
func (r NewPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.RepeatNewPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.NewPassword)),
		),
	)
}

func (a *AccountController) FinalizeResetPassword(c *fiber.Ctx) error {
	payload := new(NewPasswordPayload)

	if err := c.BodyParser(payload); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Password incorrect. Please try again!")
	}

	handler := NewFinalizePasswordResetHandler(a.Repo, a.Tokens).WithLogger(a.Logger)
	err := handler.Execute(c.Context(), FinalizePasswordResetMessage{
		UID:               c.Params("uid"),
		Token:             c.Params("token"),
		NewPassword:       payload.NewPassword,
		RepeatNewPassword: payload.RepeatNewPassword,
	})
	if err != nil {
		a.Logger.Error("finalize password reset", "error", err)
		return renderError(c, err)
	}

	return successResponse(c, fiber.StatusAccepted, "Password successfully changed!", fiber.Map{})
}

// ChangePasswordPayload is the authenticated rotation body
type ChangePasswordPayload struct {
	CurrentPassword   string `json:"current_password"`
	NewPassword       string `json:"new_password"`
	RepeatNewPassword string `json:"repeat_new_password"`
}

// Validate will run validation rules
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.RepeatNewPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.NewPassword)),
		),
	)
}

func (a *AccountController) ChangePassword(c *fiber.Ctx) error {
	claims, err := GetSession(c, a.Config.GetContextKey())
	if err != nil {
		return renderError(c, err)
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return renderError(c, ErrTokenMalformed)
	}

	payload := new(ChangePasswordPayload)

	if err := c.BodyParser(payload); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err)
	}

	handler := NewChangePasswordHandler(a.Repo).WithLogger(a.Logger)
	err = handler.Execute(c.Context(), ChangePasswordMessage{
		UserUUID:          id,
		CurrentPassword:   payload.CurrentPassword,
		NewPassword:       payload.NewPassword,
		RepeatNewPassword: payload.RepeatNewPassword,
	})
	if err != nil {
		a.Logger.Error("change password", "error", err)
		if goerrors.Is(err, ErrMismatchedHashAndPassword) {
			return errorResponse(c, fiber.StatusBadRequest, "Password incorrect. Please try again!")
		}
		return renderError(c, err)
	}

	return successResponse(c, fiber.StatusAccepted, "Password changed successfully!", fiber.Map{})
}

func (a *AccountController) SuspendUser(c *fiber.Ctx) error {
	claims, err := GetSession(c, a.Config.GetContextKey())
	if err != nil {
		return renderError(c, err)
	}

	actor, err := a.Auther.IdentityFromClaims(c.Context(), claims)
	if err != nil {
		return renderError(c, err)
	}

	handler := NewSuspendUserHandler(a.Repo).WithLogger(a.Logger)
	err = handler.Execute(c.Context(), SuspendUserMessage{
		Actor: actor,
		Email: c.Params("email"),
	})
	if err != nil {
		a.Logger.Error("suspend user", "error", err)
		return renderError(c, err)
	}

	return successResponse(c, fiber.StatusAccepted, "User has been suspended!", fiber.Map{})
}

// GoogleProfilePayload mirrors the body the frontend relays from Google
type GoogleProfilePayload struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Validate will run validation rules
func (r GoogleProfilePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.FirstName, validation.Required),
		validation.Field(&r.LastName, validation.Required),
	)
}

func (a *AccountController) GoogleOAuth2Login(c *fiber.Ctx) error {
	if a.Google == nil {
		return errorResponse(c, fiber.StatusNotImplemented, "google login is not configured")
	}

	idToken := c.Get("id_token")

	profile, err := a.Google.Verify(c.Context(), idToken)
	if err != nil {
		a.Logger.Error("google id_token validation", "error", err)
		return renderError(c, err)
	}

	payload := new(GoogleProfilePayload)

	if err := c.BodyParser(payload); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "failed to parse body")
	}

	if err := payload.Validate(); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err)
	}

	// the verified token is the source of truth for the address
	if profile.Email != "" && profile.Email != payload.Email {
		return renderError(c, ErrMismatchedHashAndPassword)
	}

	result, created, err := a.Auther.FederatedLogin(c.Context(), payload.Email, payload.FirstName, payload.LastName)
	if err != nil {
		a.Logger.Error("google federated login", "error", err)
		return renderError(c, err)
	}

	if result.Suspended {
		return successResponse(c, fiber.StatusOK,
			"Account suspended. Kindly reach out to the support team.", fiber.Map{})
	}

	message := "Login successful"
	if created {
		message = "User created!"
	}

	return successResponse(c, fiber.StatusOK, message, fiber.Map{
		"access":    result.Pair.Access,
		"refresh":   result.Pair.Refresh,
		"id":        result.User.UUID,
		"firstname": result.User.FirstName,
		"lastname":  result.User.LastName,
		"username":  result.User.Username,
		"email":     result.User.Email,
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

package accounts

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// APIResponse is the uniform envelope every endpoint answers with
type APIResponse struct {
	Status  bool `json:"status"`
	Message any  `json:"message"`
	Data    any  `json:"data"`
}

func successResponse(c *fiber.Ctx, code int, message string, data any) error {
	return c.Status(code).JSON(APIResponse{
		Status:  true,
		Message: message,
		Data:    data,
	})
}

func errorResponse(c *fiber.Ctx, code int, message any) error {
	return c.Status(code).JSON(APIResponse{
		Status:  false,
		Message: message,
	})
}

// renderError maps a command or service error onto the envelope, picking
// the status code from the error category.
func renderError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "an unexpected server error occurred")
	}
	return errorResponse(c, HTTPStatusFor(richErr), richErr.Message)
}

// GetSession returns the validated claims stashed by RequireAuth
func GetSession(c *fiber.Ctx, key string) (AuthClaims, error) {
	session := c.Locals(key)
	if session == nil {
		return nil, ErrUnableToFindSession
	}

	claims, ok := session.(AuthClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToDecodeSession
	}

	return claims, nil
}

// RequireAuth guards a route behind a bearer access token. Validated claims
// are stored under cfg.GetContextKey() for the handler to pick up.
func RequireAuth(cfg Config, tokens TokenService) fiber.Handler {
	scheme := cfg.GetAuthScheme()
	if scheme == "" {
		scheme = "Bearer"
	}

	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return errorResponse(c, fiber.StatusUnauthorized, "missing or malformed JWT")
		}

		raw, found := strings.CutPrefix(header, scheme+" ")
		if !found || raw == "" {
			return errorResponse(c, fiber.StatusUnauthorized, "missing or malformed JWT")
		}

		claims, err := tokens.Validate(raw)
		if err != nil {
			return renderError(c, err)
		}

		// refresh tokens only buy new pairs, never route access
		if claims.TokenUse() != TokenUseAccess {
			return renderError(c, ErrTokenMalformed)
		}

		c.Locals(cfg.GetContextKey(), claims)

		return c.Next()
	}
}

// RequireStaff sits behind RequireAuth and rejects non-staff sessions
func RequireStaff(cfg Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := GetSession(c, cfg.GetContextKey())
		if err != nil {
			return renderError(c, err)
		}

		if !claims.IsStaff() {
			return renderError(c, ErrNotStaff)
		}

		return c.Next()
	}
}

// RegisterAccountRoutes mounts the account endpoints on the given router
func RegisterAccountRoutes(app fiber.Router, controller *AccountController) {
	protected := RequireAuth(controller.Config, controller.Auther.TokenService())
	staffOnly := RequireStaff(controller.Config)

	app.Post("/register", controller.Register)
	app.Post("/login", controller.Login)
	app.Post("/login/refresh", controller.RefreshLogin)
	app.Post("/google_oauth2_login", controller.GoogleOAuth2Login)
	app.Post("/logout", protected, controller.Logout)

	app.Post("/request_email_uid_token", controller.RequestEmailUIDToken)
	app.Post("/verify_email/:uid/:token", controller.VerifyEmail)

	app.Post("/reset_password", controller.ResetPassword)
	app.Get("/reset_password/:uid/:token", controller.VerifyResetPassword)
	app.Post("/reset_password/:uid/:token", controller.FinalizeResetPassword)

	app.Put("/change_password", protected, controller.ChangePassword)

	app.Put("/suspend_user/:email", protected, staffOnly, controller.SuspendUser)
}

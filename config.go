package accounts

import (
	"os"
	"strconv"
	"strings"
)

// SimpleConfig is an explicit configuration struct, passed to each
// component at construction instead of read from package globals.
type SimpleConfig struct {
	SigningKey             string
	Issuer                 string
	Audience               []string
	AccessTokenExpiration  int // minutes
	RefreshTokenExpiration int // hours
	ActionTokenSecret      string
	ActionTokenExpiration  int // hours
	ContextKey             string
	AuthScheme             string
	GoogleClientID         string
	SiteName               string
	Domain                 string
	ContactEmail           string
}

var _ Config = (*SimpleConfig)(nil)

func (c *SimpleConfig) GetSigningKey() string { return c.SigningKey }
func (c *SimpleConfig) GetIssuer() string     { return c.Issuer }
func (c *SimpleConfig) GetAudience() []string { return c.Audience }

func (c *SimpleConfig) GetAccessTokenExpiration() int {
	if c.AccessTokenExpiration <= 0 {
		return 15
	}
	return c.AccessTokenExpiration
}

func (c *SimpleConfig) GetRefreshTokenExpiration() int {
	if c.RefreshTokenExpiration <= 0 {
		return 24 * 7
	}
	return c.RefreshTokenExpiration
}

func (c *SimpleConfig) GetActionTokenSecret() string {
	if c.ActionTokenSecret == "" {
		return c.SigningKey
	}
	return c.ActionTokenSecret
}

func (c *SimpleConfig) GetActionTokenExpiration() int {
	if c.ActionTokenExpiration <= 0 {
		return 24
	}
	return c.ActionTokenExpiration
}

func (c *SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "session"
	}
	return c.ContextKey
}

func (c *SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c *SimpleConfig) GetGoogleClientID() string { return c.GoogleClientID }
func (c *SimpleConfig) GetSiteName() string       { return c.SiteName }
func (c *SimpleConfig) GetContactEmail() string   { return c.ContactEmail }

func (c *SimpleConfig) GetDomain() string {
	if c.Domain == "" {
		return "http://localhost:3000"
	}
	return c.Domain
}

// ConfigFromEnv builds a SimpleConfig from ACCOUNTS_* environment
// variables. Call godotenv.Load first if a .env file is in play.
func ConfigFromEnv() *SimpleConfig {
	return &SimpleConfig{
		SigningKey:             os.Getenv("ACCOUNTS_SIGNING_KEY"),
		Issuer:                 os.Getenv("ACCOUNTS_ISSUER"),
		Audience:               envList("ACCOUNTS_AUDIENCE"),
		AccessTokenExpiration:  envInt("ACCOUNTS_ACCESS_TOKEN_EXPIRATION"),
		RefreshTokenExpiration: envInt("ACCOUNTS_REFRESH_TOKEN_EXPIRATION"),
		ActionTokenSecret:      os.Getenv("ACCOUNTS_ACTION_TOKEN_SECRET"),
		ActionTokenExpiration:  envInt("ACCOUNTS_ACTION_TOKEN_EXPIRATION"),
		ContextKey:             os.Getenv("ACCOUNTS_CONTEXT_KEY"),
		AuthScheme:             os.Getenv("ACCOUNTS_AUTH_SCHEME"),
		GoogleClientID:         os.Getenv("ACCOUNTS_GOOGLE_CLIENT_ID"),
		SiteName:               os.Getenv("ACCOUNTS_SITE_NAME"),
		Domain:                 os.Getenv("ACCOUNTS_DOMAIN"),
		ContactEmail:           os.Getenv("ACCOUNTS_CONTACT_EMAIL"),
	}
}

func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

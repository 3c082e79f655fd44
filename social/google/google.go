package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const defaultTokenInfoURL = "https://www.googleapis.com/oauth2/v3/tokeninfo"

// Config holds the Google ID token verification settings.
type Config struct {
	ClientID string

	TokenInfoURL string

	HTTPClient *http.Client
}

// Profile is the subset of the tokeninfo claims the account service uses.
type Profile struct {
	Audience      string `json:"aud"`
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verifier validates Google-issued ID tokens against the tokeninfo endpoint
// and checks the audience matches the configured OAuth2 client.
type Verifier struct {
	config     Config
	httpClient *http.Client
}

// New creates a new Google ID token verifier.
func New(cfg Config) *Verifier {
	if cfg.TokenInfoURL == "" {
		cfg.TokenInfoURL = defaultTokenInfoURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Verifier{
		config:     cfg,
		httpClient: client,
	}
}

// Name returns the provider identifier.
func (v *Verifier) Name() string {
	return "google"
}

// Verify checks the ID token with Google and returns the embedded profile.
func (v *Verifier) Verify(ctx context.Context, idToken string) (*Profile, error) {
	if idToken == "" {
		return nil, goerrors.New("id_token is required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	params := url.Values{"id_token": {idToken}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.TokenInfoURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build tokeninfo request")
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "tokeninfo request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read tokeninfo response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, goerrors.New("id_token is invalid", goerrors.CategoryAuth).
			WithTextCode("INVALID_ID_TOKEN").
			WithCode(goerrors.CodeUnauthorized).
			WithMetadata(map[string]any{"status": resp.StatusCode})
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode tokeninfo response")
	}

	if profile.Audience != v.config.ClientID {
		return nil, goerrors.New("invalid audience", goerrors.CategoryAuth).
			WithTextCode("INVALID_AUDIENCE").
			WithCode(goerrors.CodeUnauthorized)
	}

	return &profile, nil
}

package usecase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/interfaces"
	"github.com/stridelog/stridelog/pkg/domain/model"
	"github.com/stridelog/stridelog/pkg/domain/model/auth"
	"github.com/stridelog/stridelog/pkg/utils/logging"
	"github.com/stridelog/stridelog/pkg/utils/safe"
)

const (
	googleAuthEndpoint  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenEndpoint = "https://oauth2.googleapis.com/token"
	googleDiscoveryURL  = "https://accounts.google.com/.well-known/openid-configuration"
)

// AuthUseCaseInterface is the sign-in surface the HTTP layer depends on.
type AuthUseCaseInterface interface {
	GetAuthURL(state string) string
	HandleCallback(ctx context.Context, code string) (*auth.Token, error)
	ValidateToken(ctx context.Context, tokenID auth.TokenID, tokenSecret auth.TokenSecret) (*auth.Token, error)
	Logout(ctx context.Context, tokenID auth.TokenID) error
	IsNoAuthn() bool
}

// AuthUseCase signs users in with Google OpenID Connect. The ID token is
// verified against Google's published JWK set; the user document is
// created or updated from the verified claims on every sign-in.
type AuthUseCase struct {
	repo         interfaces.Repository
	clientID     string
	clientSecret string
	callbackURL  string
	authURL      string
	tokenURL     string
	discoveryURL string
	httpClient   *http.Client
	cache        *authCache
}

func NewAuthUseCase(repo interfaces.Repository, clientID, clientSecret, callbackURL string, options ...AuthOption) *AuthUseCase {
	uc := &AuthUseCase{
		repo:         repo,
		clientID:     clientID,
		clientSecret: clientSecret,
		callbackURL:  callbackURL,
		authURL:      googleAuthEndpoint,
		tokenURL:     googleTokenEndpoint,
		discoveryURL: googleDiscoveryURL,
		httpClient:   http.DefaultClient,
		cache:        newAuthCache(),
	}

	for _, opt := range options {
		opt(uc)
	}

	return uc
}

// AuthOption is a functional option for AuthUseCase
type AuthOption func(*AuthUseCase)

// WithIdentityEndpoints overrides the provider endpoints, mainly for tests.
func WithIdentityEndpoints(authURL, tokenURL, discoveryURL string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.authURL = authURL
		uc.tokenURL = tokenURL
		uc.discoveryURL = discoveryURL
	}
}

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(client *http.Client) AuthOption {
	return func(uc *AuthUseCase) {
		uc.httpClient = client
	}
}

// OpenIDConfiguration is the subset of the provider's discovery document
// the sign-in flow needs.
type OpenIDConfiguration struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

// GetAuthURL returns the URL for Google sign-in
func (uc *AuthUseCase) GetAuthURL(state string) string {
	params := url.Values{}
	params.Set("client_id", uc.clientID)
	params.Set("redirect_uri", uc.callbackURL)
	params.Set("response_type", "code")
	params.Set("scope", "openid email profile")
	params.Set("state", state)

	return uc.authURL + "?" + params.Encode()
}

// IsNoAuthn returns false for regular AuthUseCase
func (uc *AuthUseCase) IsNoAuthn() bool {
	return false
}

// googleTokenResponse is the response from the code exchange
type googleTokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	IDToken          string `json:"id_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// idTokenClaims is the decoded identity from the verified ID token
type idTokenClaims struct {
	Sub     string
	Email   string
	Name    string
	Picture string
}

// HandleCallback processes the sign-in callback: exchanges the code,
// verifies the ID token, upserts the user document and issues a session.
func (uc *AuthUseCase) HandleCallback(ctx context.Context, code string) (*auth.Token, error) {
	tokenResp, err := uc.exchangeCodeForToken(ctx, code)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to exchange code for token")
	}

	if tokenResp.Error != "" {
		return nil, goerr.New("sign-in provider error",
			goerr.V("error", tokenResp.Error),
			goerr.V("description", tokenResp.ErrorDescription))
	}

	claims, err := uc.decodeIDToken(ctx, tokenResp.IDToken)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode ID token")
	}

	user, err := uc.upsertUser(ctx, claims)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to upsert user")
	}

	token := auth.NewToken(user.ID, claims.Sub, claims.Email, claims.Name)
	if err := uc.repo.PutToken(ctx, token); err != nil {
		logging.From(ctx).Error("failed to save session token", "error", err, "user_id", user.ID)
		return nil, goerr.Wrap(err, "failed to store token", goerr.V(UserIDKey, user.ID))
	}

	return token, nil
}

// upsertUser finds the user by the stable provider subject and refreshes
// the profile fields, or creates the document on first sign-in.
func (uc *AuthUseCase) upsertUser(ctx context.Context, claims *idTokenClaims) (*model.User, error) {
	existing, err := uc.repo.User().GetByGoogleID(ctx, claims.Sub)
	if err != nil {
		if !isNotFound(err) {
			return nil, goerr.Wrap(err, "failed to look up user", goerr.V("sub", claims.Sub))
		}

		user := model.NewUser(claims.Sub, claims.Name, claims.Email, claims.Picture)
		if err := uc.repo.User().Put(ctx, user); err != nil {
			return nil, goerr.Wrap(err, "failed to create user", goerr.V("sub", claims.Sub))
		}
		return user, nil
	}

	existing.DisplayName = claims.Name
	existing.Email = claims.Email
	if claims.Picture != "" {
		existing.Photo = claims.Picture
	}
	if err := uc.repo.User().Put(ctx, existing); err != nil {
		return nil, goerr.Wrap(err, "failed to update user profile", goerr.V(UserIDKey, existing.ID))
	}

	return existing, nil
}

// exchangeCodeForToken exchanges the authorization code for an access token
func (uc *AuthUseCase) exchangeCodeForToken(ctx context.Context, code string) (*googleTokenResponse, error) {
	data := url.Values{}
	data.Set("client_id", uc.clientID)
	data.Set("client_secret", uc.clientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", uc.callbackURL)

	encodedData := data.Encode()
	req, err := http.NewRequestWithContext(ctx, "POST", uc.tokenURL, strings.NewReader(encodedData))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.ContentLength = int64(len(encodedData))

	resp, err := uc.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to make token request")
	}
	defer safe.Close(ctx, resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read response body")
	}

	var tokenResp googleTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, goerr.Wrap(err, "failed to parse token response")
	}

	return &tokenResp, nil
}

// getOpenIDConfiguration fetches the provider's OpenID Connect configuration
func (uc *AuthUseCase) getOpenIDConfiguration(ctx context.Context) (*OpenIDConfiguration, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", uc.discoveryURL, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request")
	}

	resp, err := uc.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch OpenID configuration")
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("failed to fetch OpenID configuration", goerr.V("status", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read OpenID configuration response")
	}

	var config OpenIDConfiguration
	if err := json.Unmarshal(body, &config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse OpenID configuration")
	}

	return &config, nil
}

// decodeIDToken verifies the ID token against the provider's public keys
// and extracts the identity claims.
func (uc *AuthUseCase) decodeIDToken(ctx context.Context, idToken string) (*idTokenClaims, error) {
	config, err := uc.getOpenIDConfiguration(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get OpenID configuration")
	}

	keySet, err := jwk.Fetch(ctx, config.JWKSURI, jwk.WithHTTPClient(uc.httpClient))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch provider public keys", goerr.V("jwks_uri", config.JWKSURI))
	}

	// Allow 10 seconds of clock skew to handle time synchronization differences
	token, err := jwt.Parse([]byte(idToken),
		jwt.WithKeySet(keySet),
		jwt.WithValidate(true),
		jwt.WithAudience(uc.clientID),
		jwt.WithAcceptableSkew(10*time.Second),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse or verify JWT token")
	}

	claims := &idTokenClaims{Sub: token.Subject()}
	if claims.Sub == "" {
		return nil, goerr.New("sub claim not found in token")
	}

	if email, ok := token.Get("email"); ok {
		claims.Email, _ = email.(string)
	}
	if claims.Email == "" {
		return nil, goerr.New("email claim not found in token")
	}

	if name, ok := token.Get("name"); ok {
		claims.Name, _ = name.(string)
	}
	if claims.Name == "" {
		// Some accounts report no display name; fall back to the email
		// local part so the user document validates.
		claims.Name = strings.SplitN(claims.Email, "@", 2)[0]
	}

	if picture, ok := token.Get("picture"); ok {
		claims.Picture, _ = picture.(string)
	}

	return claims, nil
}

// ValidateToken validates the session cookie pair and returns the session
func (uc *AuthUseCase) ValidateToken(ctx context.Context, tokenID auth.TokenID, tokenSecret auth.TokenSecret) (*auth.Token, error) {
	return uc.validateTokenWithCache(ctx, tokenID, tokenSecret)
}

// Logout deletes the session token
func (uc *AuthUseCase) Logout(ctx context.Context, tokenID auth.TokenID) error {
	// Remove from cache first
	uc.cache.remove(tokenID)

	// Then remove from repository
	return uc.repo.DeleteToken(ctx, tokenID)
}

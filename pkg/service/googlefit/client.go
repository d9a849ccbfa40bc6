package googlefit

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/interfaces"
	"github.com/stridelog/stridelog/pkg/domain/model"
	"github.com/stridelog/stridelog/pkg/domain/types"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/fitness/v1"
	"google.golang.org/api/option"
)

const defaultCallTimeout = 30 * time.Second

// Client wraps the Google Fit OAuth and aggregation surface. It holds only
// application credentials; user credentials are passed explicitly per call
// and a fresh API client is constructed for each request.
type Client struct {
	clientID     string
	clientSecret string
	redirectURL  string
	endpoint     oauth2.Endpoint
	fitnessOpts  []option.ClientOption
	callTimeout  time.Duration
	now          func() time.Time
}

var _ interfaces.FitnessProvider = &Client{}

type Option func(*Client)

// WithEndpoint overrides the OAuth endpoint, mainly for tests.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(c *Client) {
		c.endpoint = ep
	}
}

// WithFitnessOptions appends options to the fitness API client, mainly for
// pointing tests at a local server.
func WithFitnessOptions(opts ...option.ClientOption) Option {
	return func(c *Client) {
		c.fitnessOpts = append(c.fitnessOpts, opts...)
	}
}

// WithCallTimeout bounds each outbound provider call.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.callTimeout = d
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func New(clientID, clientSecret, redirectURL string, opts ...Option) *Client {
	c := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		endpoint:     google.Endpoint,
		callTimeout:  defaultCallTimeout,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// config builds a per-call oauth2 config. No client state is shared across
// users or requests.
func (c *Client) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		RedirectURL:  c.redirectURL,
		Endpoint:     c.endpoint,
		Scopes: []string{
			fitness.FitnessActivityReadScope,
			fitness.FitnessLocationReadScope,
			"profile",
			"email",
		},
	}
}

// AuthCodeURL returns the authorization URL. Offline access and a forced
// consent prompt are required on every call: the provider only issues a
// refresh token when consent is freshly granted, and a sign-in without a
// refresh token breaks long-term sync.
func (c *Client) AuthCodeURL(state string) string {
	return c.config().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Exchange trades an authorization code for a token bundle.
func (c *Client) Exchange(ctx context.Context, code string) (*model.TokenBundle, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	tok, err := c.config().Exchange(ctx, code)
	if err != nil {
		opts := []goerr.Option{goerr.T(types.TagTokenExchange)}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode == "access_denied" {
			opts = append(opts, goerr.T(types.TagConsentDeclined))
		}
		return nil, goerr.Wrap(err, "failed to exchange authorization code", opts...)
	}

	return model.BundleFromToken(tok), nil
}

// EnsureFresh returns a possibly-refreshed bundle. A refresh exchange is
// performed only when the access token expires within five minutes and a
// refresh token is stored; otherwise the bundle is returned unchanged.
func (c *Client) EnsureFresh(ctx context.Context, bundle *model.TokenBundle) (*model.TokenBundle, bool, error) {
	if err := bundle.Validate(); err != nil {
		return nil, false, err
	}

	if !bundle.NeedsRefresh(c.now()) {
		return bundle, false, nil
	}

	if bundle.RefreshToken == "" {
		return nil, false, goerr.New("access token is expiring and no refresh token is stored",
			goerr.T(types.TagTokenRefresh))
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	src := c.config().TokenSource(ctx, &oauth2.Token{RefreshToken: bundle.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to refresh access token",
			goerr.T(types.TagTokenRefresh))
	}

	fresh := model.BundleFromToken(tok)
	// The provider may omit the refresh token and scope on a refresh
	// response; carry the stored values forward.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = bundle.RefreshToken
	}
	if fresh.Scope == "" {
		fresh.Scope = bundle.Scope
	}

	return fresh, true, nil
}

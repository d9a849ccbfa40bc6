package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/interfaces"
	"github.com/stridelog/stridelog/pkg/service/googlefit"
	"github.com/stridelog/stridelog/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Google holds CLI flags for the Google OAuth client used for both sign-in
// and the fitness API connection.
type Google struct {
	clientID     string
	clientSecret string
	noAuthSub    string
	noAuthEmail  string
}

func (x *Google) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "google-client-id",
			Usage:       "Google OAuth client ID",
			Category:    "Google",
			Sources:     cli.EnvVars("STRIDELOG_GOOGLE_CLIENT_ID"),
			Destination: &x.clientID,
		},
		&cli.StringFlag{
			Name:        "google-client-secret",
			Usage:       "Google OAuth client secret",
			Category:    "Google",
			Sources:     cli.EnvVars("STRIDELOG_GOOGLE_CLIENT_SECRET"),
			Destination: &x.clientSecret,
		},
	}
}

func (x Google) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("client-id.len", len(x.clientID)),
		slog.Int("client-secret.len", len(x.clientSecret)),
	)
}

// SetNoAuth enables the development-only no-auth mode, running every request
// as a fixed local user.
func (x *Google) SetNoAuth(sub, email string) {
	x.noAuthSub = sub
	x.noAuthEmail = email
}

// IsNoAuthMode returns true if no-auth mode is enabled
func (x *Google) IsNoAuthMode() bool {
	return x.noAuthSub != ""
}

// IsConfigured checks if the OAuth client configuration is complete
func (x *Google) IsConfigured() bool {
	return x.clientID != "" && x.clientSecret != ""
}

// ConfigureAuth creates the sign-in use case. No-auth mode takes precedence
// over OAuth credentials.
func (x *Google) ConfigureAuth(repo interfaces.Repository, baseURL string) (usecase.AuthUseCaseInterface, error) {
	if x.noAuthSub != "" {
		if x.clientID != "" || x.clientSecret != "" {
			slog.Warn("--no-auth is set, ignoring --google-client-id/--google-client-secret for sign-in")
		}
		name := "Local Developer"
		email := x.noAuthEmail
		if email == "" {
			email = "dev@localhost"
		}
		return usecase.NewNoAuthnUseCase(repo, x.noAuthSub, email, name), nil
	}

	if x.clientID == "" || x.clientSecret == "" || baseURL == "" {
		return nil, goerr.New("Google OAuth configuration is required: set --google-client-id, --google-client-secret, and --base-url, or use --no-auth")
	}

	callbackURL := baseURL + "/auth/callback"
	return usecase.NewAuthUseCase(repo, x.clientID, x.clientSecret, callbackURL), nil
}

// ConfigureFitness creates the fitness provider client. The fitness callback
// route differs from the sign-in callback so the two consent flows stay
// separate.
func (x *Google) ConfigureFitness(baseURL string) (*googlefit.Client, error) {
	if x.clientID == "" || x.clientSecret == "" {
		return nil, goerr.New("Google OAuth configuration is required for the fitness connection: set --google-client-id and --google-client-secret")
	}
	if baseURL == "" {
		return nil, goerr.New("--base-url is required for the fitness OAuth callback")
	}

	return googlefit.New(x.clientID, x.clientSecret, baseURL+"/fitness/callback"), nil
}

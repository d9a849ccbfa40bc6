package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/stridelog/stridelog/pkg/cli/config"
	httpctrl "github.com/stridelog/stridelog/pkg/controller/http"
	"github.com/stridelog/stridelog/pkg/usecase"
	"github.com/stridelog/stridelog/pkg/utils/logging"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var baseURL string
	var noAuthSub string
	var noAuthEmail string
	var tuningPath string
	var repoCfg config.Repository
	var googleCfg config.Google
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("STRIDELOG_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Base URL for OAuth callbacks (e.g. https://your-domain.com)",
			Sources:     cli.EnvVars("STRIDELOG_BASE_URL"),
			Destination: &baseURL,
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Usage:       "Skip sign-in and run as a fixed local user with the given Google subject (development only). Example: --no-auth=dev-sub-1",
			Category:    "Authentication",
			Sources:     cli.EnvVars("STRIDELOG_NO_AUTH"),
			Destination: &noAuthSub,
		},
		&cli.StringFlag{
			Name:        "no-auth-email",
			Usage:       "Email address for the no-auth development user",
			Category:    "Authentication",
			Sources:     cli.EnvVars("STRIDELOG_NO_AUTH_EMAIL"),
			Destination: &noAuthEmail,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to TOML tuning file (force-sync delay, history window bounds, app name)",
			Sources:     cli.EnvVars("STRIDELOG_CONFIG"),
			Destination: &tuningPath,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, googleCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			tuning, err := config.LoadTuning(tuningPath)
			if err != nil {
				return goerr.Wrap(err, "failed to load tuning configuration")
			}

			sentryCloser, err := sentryCfg.Configure(version)
			if err != nil {
				return goerr.Wrap(err, "failed to configure sentry")
			}
			defer sentryCloser()

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			if noAuthSub != "" {
				googleCfg.SetNoAuth(noAuthSub, noAuthEmail)
			}

			authUC, err := googleCfg.ConfigureAuth(repo, baseURL)
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}

			if googleCfg.IsNoAuthMode() {
				logging.Default().Warn("Running in no-auth mode (development only)", "sub", noAuthSub)
			} else {
				logging.Default().Info("Google sign-in enabled")
			}

			provider, err := googleCfg.ConfigureFitness(baseURL)
			if err != nil {
				return goerr.Wrap(err, "failed to configure fitness provider")
			}

			uc := usecase.New(repo, provider,
				usecase.WithAuth(authUC),
				usecase.WithTuning(tuning),
			)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpctrl.WithTuning(tuning)),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "base_url", baseURL)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/stridelog/stridelog/pkg/cli/config"
	"github.com/stridelog/stridelog/pkg/domain/types"
	"github.com/stridelog/stridelog/pkg/utils/logging"
)

func cmdDebug() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Inspection helpers for operators",
		Commands: []*cli.Command{
			cmdDebugToken(),
		},
	}
}

// tokenPrefix returns a safe display form of a credential. Full secrets are
// never printed.
func tokenPrefix(s string) string {
	const n = 8
	if len(s) <= n {
		return "(short)"
	}
	return s[:n] + "..."
}

func cmdDebugToken() *cli.Command {
	var userID string
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user-id",
			Usage:       "User ID to inspect",
			Required:    true,
			Destination: &userID,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:  "token",
		Usage: "Show the state of a user's stored fitness credentials",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			user, err := repo.User().Get(ctx, types.UserID(userID))
			if err != nil {
				return goerr.Wrap(err, "failed to load user", goerr.V("user_id", userID))
			}

			title := color.New(color.Bold)
			ok := color.New(color.FgGreen)
			warn := color.New(color.FgYellow)
			bad := color.New(color.FgRed)

			title.Printf("User %s (%s)\n", user.ID, user.Email)

			bundle := user.FitTokens
			if !bundle.Valid() {
				bad.Println("  no fitness credentials stored")
				return nil
			}

			ok.Println("  fitness credentials present")
			fmt.Printf("  access token:  %s\n", tokenPrefix(bundle.AccessToken))
			if bundle.RefreshToken != "" {
				ok.Printf("  refresh token: %s\n", tokenPrefix(bundle.RefreshToken))
			} else {
				warn.Println("  refresh token: absent (sync breaks once the access token expires)")
			}
			if bundle.TokenType != "" {
				fmt.Printf("  token type:    %s\n", bundle.TokenType)
			}
			if bundle.Scope != "" {
				fmt.Printf("  scope:         %s\n", bundle.Scope)
			}

			switch {
			case bundle.ExpiryDate == 0:
				warn.Println("  expiry:        not reported by provider")
			case bundle.ExpiryDate <= time.Now().UnixMilli():
				bad.Printf("  expiry:        expired %s ago\n",
					time.Since(time.UnixMilli(bundle.ExpiryDate)).Round(time.Second))
			default:
				ok.Printf("  expiry:        in %s\n",
					time.Until(time.UnixMilli(bundle.ExpiryDate)).Round(time.Second))
			}

			if user.Metrics != nil {
				fmt.Printf("  last snapshot: %d steps at %s\n",
					user.Metrics.Steps, user.Metrics.LastUpdated.Format(time.RFC3339))
			}

			return nil
		},
	}
}

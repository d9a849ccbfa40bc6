package cli

import (
	"context"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/stridelog/stridelog/pkg/cli/config"
	"github.com/stridelog/stridelog/pkg/domain/model"
	"github.com/stridelog/stridelog/pkg/utils/logging"
)

// migrateConcurrency bounds parallel per-user document writes.
const migrateConcurrency = 8

func cmdMigrate() *cli.Command {
	var dryRun bool
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Preview changes without applying",
			Destination: &dryRun,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Copy legacy step counts into metrics snapshots for users that predate the metrics model",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			users, err := repo.User().List(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list users")
			}

			var migrated, skipped atomic.Int64
			eg, egCtx := errgroup.WithContext(ctx)
			eg.SetLimit(migrateConcurrency)

			for _, user := range users {
				if user.Metrics != nil || user.StepCount == nil {
					skipped.Add(1)
					continue
				}

				eg.Go(func() error {
					snapshot := &model.MetricsSnapshot{
						Steps:       user.StepCount.Count,
						LastUpdated: user.StepCount.LastUpdated,
					}

					if dryRun {
						logger.Info("Would migrate user",
							"user_id", user.ID,
							"steps", snapshot.Steps,
							"last_updated", snapshot.LastUpdated)
						migrated.Add(1)
						return nil
					}

					if err := repo.User().UpdateMetrics(egCtx, user.ID, snapshot); err != nil {
						return goerr.Wrap(err, "failed to migrate user", goerr.V("user_id", user.ID))
					}
					migrated.Add(1)
					return nil
				})
			}

			if err := eg.Wait(); err != nil {
				return err
			}

			logger.Info("Migration completed",
				"dry_run", dryRun,
				"migrated", migrated.Load(),
				"skipped", skipped.Load(),
				"total", len(users))
			return nil
		},
	}
}

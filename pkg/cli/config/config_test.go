package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/stridelog/stridelog/pkg/cli/config"
	"github.com/stridelog/stridelog/pkg/repository/memory"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600)).Required()
	return path
}

func TestLoadTuning(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		tuning := gt.R1(config.LoadTuning("")).NoError(t)
		gt.Value(t, tuning.ForceSyncDelay).Equal(5 * time.Second)
		gt.Value(t, tuning.HistoryDefaultDays).Equal(7)
		gt.Value(t, tuning.HistoryMaxDays).Equal(30)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeTempFile(t, `
app_name = "Stridelog Dev"
force_sync_delay_seconds = 10
history_default_days = 14
`)
		tuning := gt.R1(config.LoadTuning(path)).NoError(t)
		gt.Value(t, tuning.AppName).Equal("Stridelog Dev")
		gt.Value(t, tuning.ForceSyncDelay).Equal(10 * time.Second)
		gt.Value(t, tuning.HistoryDefaultDays).Equal(14)
		gt.Value(t, tuning.HistoryMaxDays).Equal(30)
	})

	t.Run("default exceeding max is rejected", func(t *testing.T) {
		path := writeTempFile(t, `
history_default_days = 20
history_max_days = 10
`)
		_, err := config.LoadTuning(path)
		gt.Error(t, err)
	})

	t.Run("negative delay is rejected", func(t *testing.T) {
		path := writeTempFile(t, `force_sync_delay_seconds = -1`)
		_, err := config.LoadTuning(path)
		gt.Error(t, err)
	})

	t.Run("malformed TOML is rejected", func(t *testing.T) {
		path := writeTempFile(t, `app_name = [`)
		_, err := config.LoadTuning(path)
		gt.Error(t, err)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := config.LoadTuning("/no/such/tuning.toml")
		gt.Error(t, err)
	})
}

func TestRepositoryConfigure(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		repo := config.NewRepositoryConfig("memory", "", "")
		r := gt.R1(repo.Configure(context.Background())).NoError(t)
		gt.NoError(t, r.Close())
	})

	t.Run("firestore backend requires project ID", func(t *testing.T) {
		repo := config.NewRepositoryConfig("firestore", "", "")
		_, err := repo.Configure(context.Background())
		gt.Error(t, err)
	})

	t.Run("unknown backend is rejected", func(t *testing.T) {
		repo := config.NewRepositoryConfig("redis", "", "")
		_, err := repo.Configure(context.Background())
		gt.Error(t, err)
	})
}

func TestGoogleConfigure(t *testing.T) {
	t.Run("no-auth mode works without OAuth credentials", func(t *testing.T) {
		var g config.Google
		g.SetNoAuth("dev-sub-1", "dev@example.com")

		authUC := gt.R1(g.ConfigureAuth(memory.New(), "")).NoError(t)
		gt.Value(t, authUC.IsNoAuthn()).Equal(true)
	})

	t.Run("sign-in requires credentials and base URL", func(t *testing.T) {
		var g config.Google
		_, err := g.ConfigureAuth(memory.New(), "https://app.example")
		gt.Error(t, err)
	})

	t.Run("fitness client requires base URL", func(t *testing.T) {
		g := config.NewGoogleConfig("cid", "secret")
		_, err := g.ConfigureFitness("")
		gt.Error(t, err)

		client := gt.R1(g.ConfigureFitness("https://app.example")).NoError(t)
		gt.Value(t, client != nil).Equal(true)
	})
}

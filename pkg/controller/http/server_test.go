package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	controller "github.com/stridelog/stridelog/pkg/controller/http"
	"github.com/stridelog/stridelog/pkg/domain/interfaces"
	"github.com/stridelog/stridelog/pkg/domain/model"
	"github.com/stridelog/stridelog/pkg/domain/model/auth"
	"github.com/stridelog/stridelog/pkg/domain/model/config"
	"github.com/stridelog/stridelog/pkg/domain/types"
	"github.com/stridelog/stridelog/pkg/repository/memory"
	"github.com/stridelog/stridelog/pkg/usecase"
)

// stubProvider scripts fitness provider behavior for handler tests.
type stubProvider struct {
	authURL     string
	bundle      *model.TokenBundle
	exchangeErr error
	metrics     *model.MetricsSnapshot
	fetchErr    error
	refreshErr  error
	history     []model.DailySteps
	breakdown   *model.SourceBreakdown
}

var _ interfaces.FitnessProvider = &stubProvider{}

func (p *stubProvider) AuthCodeURL(state string) string {
	return p.authURL + "?state=" + state
}

func (p *stubProvider) Exchange(ctx context.Context, code string) (*model.TokenBundle, error) {
	return p.bundle, p.exchangeErr
}

func (p *stubProvider) EnsureFresh(ctx context.Context, bundle *model.TokenBundle) (*model.TokenBundle, bool, error) {
	if p.refreshErr != nil {
		return nil, false, p.refreshErr
	}
	return bundle, false, nil
}

func (p *stubProvider) FetchTodayMetrics(ctx context.Context, bundle *model.TokenBundle) (*model.MetricsSnapshot, error) {
	return p.metrics, p.fetchErr
}

func (p *stubProvider) FetchHistory(ctx context.Context, bundle *model.TokenBundle, days int) ([]model.DailySteps, error) {
	return p.history, nil
}

func (p *stubProvider) FetchSourceBreakdown(ctx context.Context, bundle *model.TokenBundle) (*model.SourceBreakdown, error) {
	return p.breakdown, nil
}

func goerrTagged(tag goerr.Option, msg string) error {
	return goerr.New(msg, tag)
}

type testEnv struct {
	server  *controller.Server
	repo    *memory.Memory
	user    *model.User
	session *auth.Token
}

func newTestEnv(t *testing.T, provider *stubProvider) *testEnv {
	t.Helper()

	repo := memory.New()
	authUC := usecase.NewAuthUseCase(repo, "client-id", "client-secret", "http://app.example/auth/callback")

	tuning := config.DefaultTuning()
	tuning.ForceSyncDelay = 0

	uc := usecase.New(repo, provider,
		usecase.WithAuth(authUC),
		usecase.WithTuning(tuning),
	)

	user := model.NewUser("google-sub-1", "Test User", "test@example.com", "")
	gt.NoError(t, repo.User().Put(context.Background(), user)).Required()

	session := auth.NewToken(user.ID, "google-sub-1", user.Email, user.DisplayName)
	gt.NoError(t, repo.PutToken(context.Background(), session)).Required()

	return &testEnv{
		server:  controller.New(uc, controller.WithTuning(tuning)),
		repo:    repo,
		user:    user,
		session: session,
	}
}

func (e *testEnv) request(method, target string, body *strings.Reader) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, body)
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.AddCookie(&http.Cookie{Name: "session_id", Value: e.session.ID.String()})
	r.AddCookie(&http.Cookie{Name: "session_secret", Value: e.session.Secret.String()})
	return r
}

func (e *testEnv) connect(t *testing.T) {
	t.Helper()
	bundle := &model.TokenBundle{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiryDate:   time.Now().Add(time.Hour).UnixMilli(),
	}
	gt.NoError(t, e.repo.User().UpdateFitTokens(context.Background(), e.user.ID, bundle)).Required()
}

func TestAuthGuards(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})

	t.Run("HTML page without session redirects home", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, httptest.NewRequest("GET", "/success", nil))
		gt.Value(t, rec.Code).Equal(http.StatusTemporaryRedirect)
		gt.Value(t, rec.Header().Get("Location")).Equal("/")
	})

	t.Run("API without session returns 401 JSON", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, httptest.NewRequest("GET", "/api/steps/history", nil))
		gt.Value(t, rec.Code).Equal(http.StatusUnauthorized)
		gt.Value(t, strings.Contains(rec.Header().Get("Content-Type"), "application/json")).Equal(true)
	})

	t.Run("home page is public", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, strings.Contains(rec.Body.String(), "/auth/login")).Equal(true)
	})

	t.Run("help pages are public", func(t *testing.T) {
		for _, path := range []string{"/step-sync-help", "/api-setup", "/oauth-error"} {
			rec := httptest.NewRecorder()
			env.server.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
			gt.Value(t, rec.Code).Equal(http.StatusOK)
		}
	})
}

func TestProfilePage(t *testing.T) {
	t.Run("without connection shows connect CTA", func(t *testing.T) {
		env := newTestEnv(t, &stubProvider{})
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, env.request("GET", "/success", nil))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, strings.Contains(rec.Body.String(), "/connect/fitness")).Equal(true)
	})

	t.Run("with snapshot shows metrics and relative time", func(t *testing.T) {
		env := newTestEnv(t, &stubProvider{})
		env.connect(t)
		metrics := &model.MetricsSnapshot{
			Steps: 8421, Calories: 1850.3, ActiveMinutes: 62,
			LastUpdated: time.Now().Add(-10 * time.Minute),
		}
		gt.NoError(t, env.repo.User().UpdateMetrics(context.Background(), env.user.ID, metrics)).Required()

		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, env.request("GET", "/success", nil))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		body := rec.Body.String()
		gt.Value(t, strings.Contains(body, "8421")).Equal(true)
		gt.Value(t, strings.Contains(body, "10 minutes ago")).Equal(true)
	})
}

func TestConnectFlow(t *testing.T) {
	t.Run("connect redirects to provider with state cookie", func(t *testing.T) {
		env := newTestEnv(t, &stubProvider{authURL: "https://provider.example/auth"})
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, env.request("GET", "/connect/fitness", nil))

		gt.Value(t, rec.Code).Equal(http.StatusTemporaryRedirect)
		loc := rec.Header().Get("Location")
		gt.Value(t, strings.HasPrefix(loc, "https://provider.example/auth?state=")).Equal(true)

		var state string
		for _, c := range rec.Result().Cookies() {
			if c.Name == "fitness_oauth_state" {
				state = c.Value
			}
		}
		gt.Value(t, state != "").Equal(true)
		gt.Value(t, strings.HasSuffix(loc, state)).Equal(true)
	})

	t.Run("callback persists bundle and redirects to refresh", func(t *testing.T) {
		env := newTestEnv(t, &stubProvider{
			bundle: &model.TokenBundle{AccessToken: "at-1", RefreshToken: "rt-1"},
		})

		req := env.request("GET", "/fitness/callback?state=state-1&code=auth-code", nil)
		req.AddCookie(&http.Cookie{Name: "fitness_oauth_state", Value: "state-1"})
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)

		gt.Value(t, rec.Code).Equal(http.StatusTemporaryRedirect)
		gt.Value(t, rec.Header().Get("Location")).Equal("/refresh/fitness")

		user := gt.R1(env.repo.User().Get(context.Background(), env.user.ID)).NoError(t)
		gt.Value(t, user.HasFitnessConnection()).Equal(true)
	})

	t.Run("provider error parameter routes to oauth-error", func(t *testing.T) {
		env := newTestEnv(t, &stubProvider{})
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, env.request("GET", "/fitness/callback?error=access_denied", nil))
		gt.Value(t, rec.Code).Equal(http.StatusTemporaryRedirect)
		gt.Value(t, rec.Header().Get("Location")).Equal("/oauth-error")
	})

	t.Run("state mismatch is rejected", func(t *testing.T) {
		env := newTestEnv(t, &stubProvider{})
		req := env.request("GET", "/fitness/callback?state=evil&code=auth-code", nil)
		req.AddCookie(&http.Cookie{Name: "fitness_oauth_state", Value: "state-1"})
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestRefreshRouting(t *testing.T) {
	t.Run("no credentials goes to connect", func(t *testing.T) {
		env := newTestEnv(t, &stubProvider{})
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, env.request("GET", "/refresh/fitness", nil))
		gt.Value(t, rec.Header().Get("Location")).Equal("/connect/fitness")
	})

	t.Run("synced goes back to dashboard", func(t *testing.T) {
		env := newTestEnv(t, &stubProvider{
			metrics: &model.MetricsSnapshot{Steps: 100, LastUpdated: time.Now()},
		})
		env.connect(t)
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, env.request("GET", "/refresh/fitness", nil))
		gt.Value(t, rec.Header().Get("Location")).Equal("/success")
	})

	t.Run("rejected credentials go to reconnect", func(t *testing.T) {
		env := newTestEnv(t, &stubProvider{
			refreshErr: goerrTagged(goerr.T(types.TagTokenRefresh), "refresh rejected"),
		})
		env.connect(t)
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, env.request("GET", "/refresh/fitness", nil))
		gt.Value(t, rec.Header().Get("Location")).Equal("/reconnect/fitness")
	})

	t.Run("fetch failure renders the error page", func(t *testing.T) {
		env := newTestEnv(t, &stubProvider{
			fetchErr: goerrTagged(goerr.T(types.TagFetch), "aggregate timeout"),
		})
		env.connect(t)
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, env.request("GET", "/refresh/fitness", nil))
		gt.Value(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, strings.Contains(rec.Body.String(), "Sync failed")).Equal(true)
	})
}

func TestReconnectClearsState(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	env.connect(t)
	gt.NoError(t, env.repo.User().UpdateMetrics(context.Background(), env.user.ID,
		&model.MetricsSnapshot{Steps: 100, LastUpdated: time.Now()})).Required()

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, env.request("GET", "/reconnect/fitness", nil))
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	user := gt.R1(env.repo.User().Get(context.Background(), env.user.ID)).NoError(t)
	gt.Value(t, user.HasFitnessConnection()).Equal(false)
	gt.Value(t, user.Metrics == nil).Equal(true)
}

func TestForceSyncPage(t *testing.T) {
	env := newTestEnv(t, &stubProvider{
		metrics: &model.MetricsSnapshot{Steps: 100, LastUpdated: time.Now()},
	})
	env.connect(t)

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, env.request("GET", "/force-sync/fitness", nil))
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Value(t, strings.Contains(rec.Body.String(), "/api/sync/status?id=")).Equal(true)
}

func TestHistoryAPI(t *testing.T) {
	t.Run("returns newest first", func(t *testing.T) {
		env := newTestEnv(t, &stubProvider{
			history: []model.DailySteps{
				{Date: "2026-08-30", Steps: 4000},
				{Date: "2026-08-31", Steps: 5000},
				{Date: "2026-09-01", Steps: 6000},
			},
		})
		env.connect(t)

		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, env.request("GET", "/api/steps/history?days=3", nil))
		gt.Value(t, rec.Code).Equal(http.StatusOK)

		var entries []model.DailySteps
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries)).Required()
		gt.Array(t, entries).Length(3)
		gt.Value(t, entries[0].Date).Equal("2026-09-01")
		gt.Value(t, entries[2].Date).Equal("2026-08-30")
	})

	t.Run("400 without stored bundle", func(t *testing.T) {
		env := newTestEnv(t, &stubProvider{})
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, env.request("GET", "/api/steps/history", nil))
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("non-integer days is rejected", func(t *testing.T) {
		env := newTestEnv(t, &stubProvider{})
		env.connect(t)
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, env.request("GET", "/api/steps/history?days=week", nil))
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestSyncStatusAPI(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})

	job := model.NewSyncJob(env.user.ID)
	gt.NoError(t, env.repo.SyncJob().Put(context.Background(), job)).Required()

	t.Run("own job", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, env.request("GET", "/api/sync/status?id="+job.ID.String(), nil))
		gt.Value(t, rec.Code).Equal(http.StatusOK)

		var resp map[string]string
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
		gt.Value(t, resp["status"]).Equal("RUNNING")
	})

	t.Run("unknown job is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, env.request("GET", "/api/sync/status?id="+types.NewSyncJobID().String(), nil))
		gt.Value(t, rec.Code).Equal(http.StatusNotFound)
	})

	t.Run("another user's job is 404", func(t *testing.T) {
		other := model.NewSyncJob(types.NewUserID())
		gt.NoError(t, env.repo.SyncJob().Put(context.Background(), other)).Required()

		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, env.request("GET", "/api/sync/status?id="+other.ID.String(), nil))
		gt.Value(t, rec.Code).Equal(http.StatusNotFound)
	})
}

func TestIngestAPI(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})

	body := strings.NewReader(`{"todaySteps": 9000, "stepHistory": [{"date": "2026-08-31", "steps": 9000}]}`)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, env.request("POST", "/api/sync", body))
	gt.Value(t, rec.Code).Equal(http.StatusOK)
	gt.Value(t, strings.Contains(rec.Body.String(), `"success":true`)).Equal(true)

	user := gt.R1(env.repo.User().Get(context.Background(), env.user.ID)).NoError(t)
	gt.Value(t, user.StepCount.Count).Equal(9000)
	gt.Array(t, user.StepHistory).Length(1)

	t.Run("malformed body is 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, env.request("POST", "/api/sync", strings.NewReader("{not json")))
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestFitnessDataAPI(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	gt.NoError(t, env.repo.User().UpdateStepData(context.Background(), env.user.ID,
		&model.LegacyStepCount{Count: 4200, LastUpdated: time.Now()},
		[]model.DailySteps{{Date: "2026-08-31", Steps: 4200}})).Required()

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, env.request("GET", "/api/fitness/data", nil))
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var resp struct {
		Connected bool `json:"connected"`
		StepCount struct {
			Count int64 `json:"count"`
		} `json:"stepCount"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
	gt.Value(t, resp.Connected).Equal(false)
	gt.Value(t, resp.StepCount.Count).Equal(4200)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, env.request("GET", "/logout", nil))
	gt.Value(t, rec.Code).Equal(http.StatusTemporaryRedirect)
	gt.Value(t, rec.Header().Get("Location")).Equal("/")

	_, err := env.repo.GetToken(context.Background(), env.session.ID)
	gt.Error(t, err)
}

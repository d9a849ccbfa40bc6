package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/interfaces"
	"github.com/stridelog/stridelog/pkg/domain/model"
	"github.com/stridelog/stridelog/pkg/domain/model/config"
	"github.com/stridelog/stridelog/pkg/domain/types"
	"github.com/stridelog/stridelog/pkg/utils/async"
	"github.com/stridelog/stridelog/pkg/utils/logging"
)

// FitnessUseCase orchestrates the provider connection and sync flows. It
// holds no per-user state: every operation re-reads the user document,
// acts, and writes back.
type FitnessUseCase struct {
	repo     interfaces.Repository
	provider interfaces.FitnessProvider
	tuning   *config.Tuning

	// Replaced in tests for deterministic background syncs.
	dispatch func(ctx context.Context, handler func(ctx context.Context) error)
	sleep    func(ctx context.Context, d time.Duration)
}

func NewFitnessUseCase(repo interfaces.Repository, provider interfaces.FitnessProvider, tuning *config.Tuning) *FitnessUseCase {
	if tuning == nil {
		tuning = config.DefaultTuning()
	}
	return &FitnessUseCase{
		repo:     repo,
		provider: provider,
		tuning:   tuning,
		dispatch: async.Dispatch,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// SyncResult is the outcome of one sync attempt. Err carries the cause for
// FAILED and NEEDS_RECONNECT outcomes; it is diagnostic, not a control
// signal.
type SyncResult struct {
	Outcome types.SyncOutcome
	Metrics *model.MetricsSnapshot
	Err     error
}

// ConnectURL returns the provider authorization URL for the given state
func (uc *FitnessUseCase) ConnectURL(state string) string {
	return uc.provider.AuthCodeURL(state)
}

// CompleteConnect exchanges the callback code and stores the bundle. The
// first sync happens on the follow-up refresh request, not here.
func (uc *FitnessUseCase) CompleteConnect(ctx context.Context, userID types.UserID, code string) error {
	bundle, err := uc.provider.Exchange(ctx, code)
	if err != nil {
		return err
	}

	// A re-consent without a new refresh token keeps the stored one; the
	// provider only reissues it on fresh consent.
	if bundle.RefreshToken == "" {
		if user, err := uc.repo.User().Get(ctx, userID); err == nil && user.FitTokens.Valid() {
			bundle.RefreshToken = user.FitTokens.RefreshToken
		}
	}

	if err := uc.repo.User().UpdateFitTokens(ctx, userID, bundle); err != nil {
		return goerr.Wrap(err, "failed to store token bundle",
			goerr.T(types.TagPersistence), goerr.V(UserIDKey, userID))
	}

	return nil
}

// GetUser loads the user document for rendering
func (uc *FitnessUseCase) GetUser(ctx context.Context, userID types.UserID) (*model.User, error) {
	user, err := uc.repo.User().Get(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrUserNotFound, "user not found", goerr.V(UserIDKey, userID))
		}
		return nil, goerr.Wrap(err, "failed to load user", goerr.V(UserIDKey, userID))
	}
	return user, nil
}

// SyncNow runs one full sync pass for the user: refresh credentials if
// near expiry, fetch today's totals, persist the snapshot. The returned
// error is reserved for failures to load the user; everything downstream
// is reported through the result outcome so callers can route each state
// to its own page.
func (uc *FitnessUseCase) SyncNow(ctx context.Context, userID types.UserID) (*SyncResult, error) {
	logger := logging.From(ctx)

	user, err := uc.repo.User().Get(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrUserNotFound, "user not found", goerr.V(UserIDKey, userID))
		}
		return nil, goerr.Wrap(err, "failed to load user", goerr.V(UserIDKey, userID))
	}

	if !user.HasFitnessConnection() {
		return &SyncResult{Outcome: types.SyncOutcomeNoCredentials}, nil
	}

	bundle, refreshed, err := uc.provider.EnsureFresh(ctx, user.FitTokens)
	if err != nil {
		logger.Warn("credential refresh failed", "error", err, "user_id", userID)
		return &SyncResult{Outcome: types.SyncOutcomeNeedsReconnect, Err: err}, nil
	}

	metrics, err := uc.provider.FetchTodayMetrics(ctx, bundle)
	if err != nil {
		if goerr.HasTag(err, types.TagFetchAuth) {
			logger.Warn("provider rejected credentials", "error", err, "user_id", userID)
			return &SyncResult{Outcome: types.SyncOutcomeNeedsReconnect, Err: err}, nil
		}
		logger.Error("metrics fetch failed", "error", err, "user_id", userID)
		return &SyncResult{Outcome: types.SyncOutcomeFailed, Err: err}, nil
	}

	// Snapshot first, refreshed bundle second: writing the bundle first
	// would risk losing the freshly fetched metrics if the metrics write
	// fails. Not an atomicity guarantee, just the less harmful ordering.
	if err := uc.repo.User().UpdateMetrics(ctx, userID, metrics); err != nil {
		err = goerr.Wrap(err, "failed to persist metrics",
			goerr.T(types.TagPersistence), goerr.V(UserIDKey, userID))
		logger.Error("metrics persistence failed", "error", err)
		return &SyncResult{Outcome: types.SyncOutcomeFailed, Err: err}, nil
	}

	if refreshed {
		if err := uc.repo.User().UpdateFitTokens(ctx, userID, bundle); err != nil {
			logger.Error("failed to persist refreshed tokens", "error", err, "user_id", userID)
		}
	}

	logger.Info("sync completed",
		"user_id", userID,
		"steps", metrics.Steps,
		"calories", metrics.Calories,
		"active_minutes", metrics.ActiveMinutes)

	return &SyncResult{Outcome: types.SyncOutcomeSynced, Metrics: metrics}, nil
}

// ensureFreshStored refreshes the bundle when needed and persists the
// replacement before it is used. A persistence failure after a successful
// refresh is tolerated: the fetch still works, and the next sync will
// refresh again.
func (uc *FitnessUseCase) ensureFreshStored(ctx context.Context, userID types.UserID, bundle *model.TokenBundle) (*model.TokenBundle, error) {
	fresh, refreshed, err := uc.provider.EnsureFresh(ctx, bundle)
	if err != nil {
		return nil, err
	}

	if refreshed {
		if err := uc.repo.User().UpdateFitTokens(ctx, userID, fresh); err != nil {
			logging.From(ctx).Error("failed to persist refreshed tokens", "error", err, "user_id", userID)
		}
	}

	return fresh, nil
}

// StartForceSync creates a RUNNING job handle, kicks off the delayed sync
// in the background and returns the handle immediately. The client polls
// JobStatus instead of guessing when the fetch finished.
func (uc *FitnessUseCase) StartForceSync(ctx context.Context, userID types.UserID) (*model.SyncJob, error) {
	job := model.NewSyncJob(userID)
	if err := uc.repo.SyncJob().Put(ctx, job); err != nil {
		return nil, goerr.Wrap(err, "failed to create sync job",
			goerr.T(types.TagPersistence), goerr.V(UserIDKey, userID))
	}

	uc.dispatch(ctx, func(ctx context.Context) error {
		// Give the provider's ingestion pipeline a moment to absorb
		// recently-synced device data before reading it back.
		uc.sleep(ctx, uc.tuning.ForceSyncDelay)

		result, err := uc.SyncNow(ctx, userID)

		job.FinishedAt = time.Now()
		switch {
		case err != nil:
			job.Status = types.SyncStatusFailed
			job.Outcome = types.SyncOutcomeFailed
			job.Error = err.Error()
		case result.Outcome == types.SyncOutcomeFailed:
			job.Status = types.SyncStatusFailed
			job.Outcome = result.Outcome
			if result.Err != nil {
				job.Error = result.Err.Error()
			}
		default:
			job.Status = types.SyncStatusCompleted
			job.Outcome = result.Outcome
		}

		if putErr := uc.repo.SyncJob().Put(ctx, job); putErr != nil {
			return goerr.Wrap(putErr, "failed to finalize sync job", goerr.V(JobIDKey, job.ID))
		}
		return err
	})

	return job, nil
}

// JobStatus returns the job handle, scoped to its owner. A job belonging
// to another user is indistinguishable from a missing one.
func (uc *FitnessUseCase) JobStatus(ctx context.Context, userID types.UserID, jobID types.SyncJobID) (*model.SyncJob, error) {
	job, err := uc.repo.SyncJob().Get(ctx, jobID)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrJobNotFound, "sync job not found", goerr.V(JobIDKey, jobID))
		}
		return nil, goerr.Wrap(err, "failed to load sync job", goerr.V(JobIDKey, jobID))
	}

	if job.UserID != userID {
		return nil, goerr.Wrap(ErrJobNotFound, "sync job not found", goerr.V(JobIDKey, jobID))
	}

	return job, nil
}

// History fetches daily step totals for the trailing window, oldest first.
// Days out of range are clamped, not rejected.
func (uc *FitnessUseCase) History(ctx context.Context, userID types.UserID, days int) ([]model.DailySteps, error) {
	if days <= 0 {
		days = uc.tuning.HistoryDefaultDays
	}
	if days > uc.tuning.HistoryMaxDays {
		days = uc.tuning.HistoryMaxDays
	}

	user, err := uc.repo.User().Get(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrUserNotFound, "user not found", goerr.V(UserIDKey, userID))
		}
		return nil, goerr.Wrap(err, "failed to load user", goerr.V(UserIDKey, userID))
	}

	if !user.HasFitnessConnection() {
		return nil, goerr.Wrap(ErrNoCredentials, "fitness provider not connected", goerr.V(UserIDKey, userID))
	}

	bundle, err := uc.ensureFreshStored(ctx, userID, user.FitTokens)
	if err != nil {
		return nil, err
	}

	return uc.provider.FetchHistory(ctx, bundle, days)
}

// SourceBreakdown returns the raw per-source step detail for today
func (uc *FitnessUseCase) SourceBreakdown(ctx context.Context, userID types.UserID) (*model.SourceBreakdown, error) {
	user, err := uc.repo.User().Get(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrUserNotFound, "user not found", goerr.V(UserIDKey, userID))
		}
		return nil, goerr.Wrap(err, "failed to load user", goerr.V(UserIDKey, userID))
	}

	if !user.HasFitnessConnection() {
		return nil, goerr.Wrap(ErrNoCredentials, "fitness provider not connected", goerr.V(UserIDKey, userID))
	}

	bundle, err := uc.ensureFreshStored(ctx, userID, user.FitTokens)
	if err != nil {
		return nil, err
	}

	return uc.provider.FetchSourceBreakdown(ctx, bundle)
}

// IngestMobile stores a step payload pushed by a mobile client. The last
// writer wins against provider syncs touching the same fields; both paths
// overwrite, neither merges.
func (uc *FitnessUseCase) IngestMobile(ctx context.Context, userID types.UserID, steps int64, history []model.DailySteps) error {
	count := &model.LegacyStepCount{
		Count:       steps,
		LastUpdated: time.Now(),
	}
	if err := uc.repo.User().UpdateStepData(ctx, userID, count, history); err != nil {
		return goerr.Wrap(err, "failed to store step data",
			goerr.T(types.TagPersistence), goerr.V(UserIDKey, userID))
	}
	return nil
}

// Disconnect removes the stored bundle, snapshot and legacy count, so the
// next connect starts from a clean slate.
func (uc *FitnessUseCase) Disconnect(ctx context.Context, userID types.UserID) error {
	if err := uc.repo.User().ClearFitness(ctx, userID); err != nil {
		return goerr.Wrap(err, "failed to clear fitness data",
			goerr.T(types.TagPersistence), goerr.V(UserIDKey, userID))
	}
	return nil
}

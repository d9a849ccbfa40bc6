package interfaces

import (
	"context"

	"github.com/stridelog/stridelog/pkg/domain/model"
	"github.com/stridelog/stridelog/pkg/domain/model/auth"
	"github.com/stridelog/stridelog/pkg/domain/types"
)

// Repository defines the interface for data persistence
type Repository interface {
	User() UserRepository
	SyncJob() SyncJobRepository

	// Auth methods
	PutToken(ctx context.Context, token *auth.Token) error
	GetToken(ctx context.Context, tokenID auth.TokenID) (*auth.Token, error)
	DeleteToken(ctx context.Context, tokenID auth.TokenID) error

	Close() error
}

// UserRepository persists per-user documents. Field-level updates are
// atomic per document; no multi-document consistency is provided or
// required.
type UserRepository interface {
	Get(ctx context.Context, id types.UserID) (*model.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	Put(ctx context.Context, user *model.User) error
	List(ctx context.Context) ([]*model.User, error)

	// UpdateFitTokens replaces the stored bundle wholesale. A nil bundle
	// clears it.
	UpdateFitTokens(ctx context.Context, id types.UserID, bundle *model.TokenBundle) error

	// UpdateMetrics overwrites the metrics snapshot and the legacy
	// step-count field in one document write.
	UpdateMetrics(ctx context.Context, id types.UserID, metrics *model.MetricsSnapshot) error

	// UpdateStepData overwrites the legacy step count and the daily
	// history (mobile ingestion path).
	UpdateStepData(ctx context.Context, id types.UserID, count *model.LegacyStepCount, history []model.DailySteps) error

	// ClearFitness removes the bundle, the snapshot and the legacy count
	// (reconnect-reset).
	ClearFitness(ctx context.Context, id types.UserID) error
}

// SyncJobRepository persists force-sync job handles
type SyncJobRepository interface {
	Put(ctx context.Context, job *model.SyncJob) error
	Get(ctx context.Context, id types.SyncJobID) (*model.SyncJob, error)
}

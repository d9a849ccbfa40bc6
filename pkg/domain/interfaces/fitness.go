package interfaces

import (
	"context"

	"github.com/stridelog/stridelog/pkg/domain/model"
)

// FitnessProvider wraps the fitness provider's OAuth and aggregation
// surface. Implementations construct a client per call with explicit
// credentials; no shared provider state.
type FitnessProvider interface {
	// AuthCodeURL returns the authorization URL. It always requests
	// offline access and forces the consent prompt: a refresh token is
	// only issued when consent is freshly granted.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for a token bundle.
	Exchange(ctx context.Context, code string) (*model.TokenBundle, error)

	// EnsureFresh refreshes the bundle when it expires within five
	// minutes and a refresh token is present. The second return value
	// reports whether a refresh happened.
	EnsureFresh(ctx context.Context, bundle *model.TokenBundle) (*model.TokenBundle, bool, error)

	// FetchTodayMetrics aggregates steps, calories and active minutes
	// over [local midnight, now) in a single bucket across all data
	// sources.
	FetchTodayMetrics(ctx context.Context, bundle *model.TokenBundle) (*model.MetricsSnapshot, error)

	// FetchHistory returns one entry per calendar day, oldest first,
	// covering days (clamped to [1,30]) ending now.
	FetchHistory(ctx context.Context, bundle *model.TokenBundle, days int) ([]model.DailySteps, error)

	// FetchSourceBreakdown returns the per-source step detail for the
	// debug view.
	FetchSourceBreakdown(ctx context.Context, bundle *model.TokenBundle) (*model.SourceBreakdown, error)
}

package googlefit

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/model"
	"github.com/stridelog/stridelog/pkg/domain/types"
	"golang.org/x/oauth2"
	"google.golang.org/api/fitness/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	dataTypeSteps         = "com.google.step_count.delta"
	dataTypeCalories      = "com.google.calories.expended"
	dataTypeActiveMinutes = "com.google.active_minutes"

	dayMillis = int64(24 * time.Hour / time.Millisecond)

	minHistoryDays = 1
	maxHistoryDays = 30
)

// service builds a fitness API client bound to the user's credentials.
func (c *Client) service(ctx context.Context, bundle *model.TokenBundle) (*fitness.Service, error) {
	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(bundle.Token())),
	}, c.fitnessOpts...)

	svc, err := fitness.NewService(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create fitness client", goerr.T(types.TagFetch))
	}
	return svc, nil
}

// wrapFetchErr tags a failed aggregation request. Credential problems get
// an extra tag so the caller can route to the reconnect flow without
// inspecting upstream error messages.
func wrapFetchErr(err error) error {
	opts := []goerr.Option{goerr.T(types.TagFetch)}
	var ge *googleapi.Error
	if errors.As(err, &ge) &&
		(ge.Code == http.StatusUnauthorized || ge.Code == http.StatusForbidden) {
		opts = append(opts, goerr.T(types.TagFetchAuth))
	}
	return goerr.Wrap(err, "fitness aggregation request failed", opts...)
}

// FetchTodayMetrics aggregates steps, calories and active minutes over
// [local midnight, now). The window is a single bucket, and no data source
// filter is applied: a single-source query under-counts when the user's
// data is split across phone, watch and manual entry.
func (c *Client) FetchTodayMetrics(ctx context.Context, bundle *model.TokenBundle) (*model.MetricsSnapshot, error) {
	if err := bundle.Validate(); err != nil {
		return nil, err
	}

	now := c.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := midnight.UnixMilli()
	end := now.UnixMilli()

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	svc, err := c.service(ctx, bundle)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Users.Dataset.Aggregate("me", &fitness.AggregateRequest{
		AggregateBy: []*fitness.AggregateBy{
			{DataTypeName: dataTypeSteps},
			{DataTypeName: dataTypeCalories},
			{DataTypeName: dataTypeActiveMinutes},
		},
		BucketByTime:    &fitness.BucketByTime{DurationMillis: end - start},
		StartTimeMillis: start,
		EndTimeMillis:   end,
	}).Context(ctx).Do()
	if err != nil {
		return nil, wrapFetchErr(err)
	}

	metrics := reduceMetrics(resp)
	metrics.LastUpdated = now
	return metrics, nil
}

// ClampHistoryDays bounds a requested history window to [1, 30].
func ClampHistoryDays(days int) int {
	if days < minHistoryDays {
		return minHistoryDays
	}
	if days > maxHistoryDays {
		return maxHistoryDays
	}
	return days
}

// FetchHistory returns daily step totals, one entry per calendar day,
// oldest first. The bucket width is exactly one day, so the provider
// returns one bucket per day regardless of the window's alignment with
// midnight.
func (c *Client) FetchHistory(ctx context.Context, bundle *model.TokenBundle, days int) ([]model.DailySteps, error) {
	if err := bundle.Validate(); err != nil {
		return nil, err
	}

	days = ClampHistoryDays(days)

	now := c.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := midnight.AddDate(0, 0, -(days - 1)).UnixMilli()
	end := now.UnixMilli()

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	svc, err := c.service(ctx, bundle)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Users.Dataset.Aggregate("me", &fitness.AggregateRequest{
		AggregateBy: []*fitness.AggregateBy{
			{DataTypeName: dataTypeSteps},
		},
		BucketByTime:    &fitness.BucketByTime{DurationMillis: dayMillis},
		StartTimeMillis: start,
		EndTimeMillis:   end,
	}).Context(ctx).Do()
	if err != nil {
		return nil, wrapFetchErr(err)
	}

	return reduceHistory(resp), nil
}

// FetchSourceBreakdown returns per-source step detail for today's window,
// for diagnosing under-counting.
func (c *Client) FetchSourceBreakdown(ctx context.Context, bundle *model.TokenBundle) (*model.SourceBreakdown, error) {
	if err := bundle.Validate(); err != nil {
		return nil, err
	}

	now := c.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := midnight.UnixMilli()
	end := now.UnixMilli()

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	svc, err := c.service(ctx, bundle)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Users.Dataset.Aggregate("me", &fitness.AggregateRequest{
		AggregateBy: []*fitness.AggregateBy{
			{DataTypeName: dataTypeSteps},
		},
		BucketByTime:    &fitness.BucketByTime{DurationMillis: end - start},
		StartTimeMillis: start,
		EndTimeMillis:   end,
	}).Context(ctx).Do()
	if err != nil {
		return nil, wrapFetchErr(err)
	}

	breakdown := reduceBreakdown(resp)
	breakdown.WindowStart = midnight
	breakdown.WindowEnd = now
	return breakdown, nil
}

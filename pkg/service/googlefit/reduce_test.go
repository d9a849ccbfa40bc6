package googlefit_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/stridelog/stridelog/pkg/service/googlefit"
	"google.golang.org/api/fitness/v1"
)

func intPoint(vals ...int64) *fitness.DataPoint {
	p := &fitness.DataPoint{}
	for _, v := range vals {
		p.Value = append(p.Value, &fitness.Value{IntVal: v})
	}
	return p
}

func fpPoint(vals ...float64) *fitness.DataPoint {
	p := &fitness.DataPoint{}
	for _, v := range vals {
		p.Value = append(p.Value, &fitness.Value{FpVal: v})
	}
	return p
}

func TestReduceMetrics(t *testing.T) {
	t.Run("sums across sources", func(t *testing.T) {
		resp := &fitness.AggregateResponse{
			Bucket: []*fitness.AggregateBucket{
				{
					Dataset: []*fitness.Dataset{
						{
							DataSourceId: "derived:com.google.step_count.delta:com.google.android.gms:aggregated",
							Point:        []*fitness.DataPoint{intPoint(100), intPoint(250)},
						},
						{
							DataSourceId: "derived:com.google.step_count.delta:phone:estimated_steps",
							Point:        []*fitness.DataPoint{intPoint(0)},
						},
						{
							DataSourceId: "derived:com.google.active_minutes:com.google.android.gms:aggregated",
							Point:        []*fitness.DataPoint{intPoint(12, 30)},
						},
					},
				},
			},
		}

		m := googlefit.ReduceMetrics(resp)
		gt.Value(t, m.Steps).Equal(350)
		gt.Value(t, m.ActiveMinutes).Equal(42)
		gt.Value(t, m.Calories).Equal(0)
	})

	t.Run("rounds calories once after summing", func(t *testing.T) {
		resp := &fitness.AggregateResponse{
			Bucket: []*fitness.AggregateBucket{
				{
					Dataset: []*fitness.Dataset{
						{
							DataSourceId: "derived:com.google.calories.expended:com.google.android.gms:aggregated",
							Point:        []*fitness.DataPoint{fpPoint(1.04), fpPoint(1.04, 1.04)},
						},
					},
				},
			},
		}

		// 3.12 rounds to 3.1; per-point rounding would have given 3.0.
		m := googlefit.ReduceMetrics(resp)
		gt.Value(t, m.Calories).Equal(3.1)
	})

	t.Run("empty response yields zero snapshot", func(t *testing.T) {
		m := googlefit.ReduceMetrics(&fitness.AggregateResponse{})
		gt.Value(t, m.Steps).Equal(0)
		gt.Value(t, m.Calories).Equal(0)
		gt.Value(t, m.ActiveMinutes).Equal(0)
	})

	t.Run("unrelated sources are ignored", func(t *testing.T) {
		resp := &fitness.AggregateResponse{
			Bucket: []*fitness.AggregateBucket{
				{
					Dataset: []*fitness.Dataset{
						{
							DataSourceId: "derived:com.google.heart_minutes:com.google.android.gms:merge",
							Point:        []*fitness.DataPoint{intPoint(999)},
						},
					},
				},
			},
		}

		m := googlefit.ReduceMetrics(resp)
		gt.Value(t, m.Steps).Equal(0)
		gt.Value(t, m.ActiveMinutes).Equal(0)
	})
}

func TestReduceHistory(t *testing.T) {
	day := func(date string, steps ...int64) *fitness.AggregateBucket {
		start, err := time.Parse("2006-01-02", date)
		gt.NoError(t, err).Required()
		ds := &fitness.Dataset{
			DataSourceId: "derived:com.google.step_count.delta:com.google.android.gms:aggregated",
		}
		for _, s := range steps {
			ds.Point = append(ds.Point, intPoint(s))
		}
		return &fitness.AggregateBucket{
			StartTimeMillis: start.UnixMilli(),
			Dataset:         []*fitness.Dataset{ds},
		}
	}

	t.Run("one entry per bucket, empty days zero filled", func(t *testing.T) {
		resp := &fitness.AggregateResponse{
			Bucket: []*fitness.AggregateBucket{
				day("2026-08-29", 4000, 120),
				day("2026-08-30"),
				day("2026-08-31", 7500),
			},
		}

		history := googlefit.ReduceHistory(resp)
		gt.Array(t, history).Length(3)
		gt.Value(t, history[0].Date).Equal("2026-08-29")
		gt.Value(t, history[0].Steps).Equal(4120)
		gt.Value(t, history[1].Date).Equal("2026-08-30")
		gt.Value(t, history[1].Steps).Equal(0)
		gt.Value(t, history[2].Steps).Equal(7500)
	})

	t.Run("no buckets yields empty history", func(t *testing.T) {
		gt.Array(t, googlefit.ReduceHistory(&fitness.AggregateResponse{})).Length(0)
	})
}

func TestReduceBreakdown(t *testing.T) {
	resp := &fitness.AggregateResponse{
		Bucket: []*fitness.AggregateBucket{
			{
				Dataset: []*fitness.Dataset{
					{
						DataSourceId: "derived:com.google.step_count.delta:phone:estimated_steps",
						Point:        []*fitness.DataPoint{intPoint(1200), intPoint(300)},
					},
					{
						DataSourceId: "derived:com.google.calories.expended:com.google.android.gms:aggregated",
						Point:        []*fitness.DataPoint{fpPoint(88.2)},
					},
					{
						DataSourceId: "raw:com.google.step_count.delta:watch",
						Point:        []*fitness.DataPoint{intPoint(500)},
					},
				},
			},
		},
	}

	b := googlefit.ReduceBreakdown(resp)
	gt.Array(t, b.Sources).Length(2)
	gt.Value(t, b.Sources[0].Steps).Equal(1500)
	gt.Array(t, b.Sources[0].Points).Length(2)
	gt.Value(t, b.Sources[1].Steps).Equal(500)
	gt.Value(t, b.TotalSteps).Equal(2000)
}

func TestClampHistoryDays(t *testing.T) {
	gt.Value(t, googlefit.ClampHistoryDays(0)).Equal(1)
	gt.Value(t, googlefit.ClampHistoryDays(-5)).Equal(1)
	gt.Value(t, googlefit.ClampHistoryDays(7)).Equal(7)
	gt.Value(t, googlefit.ClampHistoryDays(30)).Equal(30)
	gt.Value(t, googlefit.ClampHistoryDays(100)).Equal(30)
}

package googlefit

import (
	"strings"
	"time"

	"github.com/stridelog/stridelog/pkg/domain/model"
	"google.golang.org/api/fitness/v1"
)

// reduceMetrics folds an aggregation response into a snapshot. Datasets are
// dispatched by data source ID substring: the aggregate endpoint reports
// derived source IDs, not the requested data type names. Integer values are
// summed as-is; calories are summed first and rounded once at the end.
func reduceMetrics(resp *fitness.AggregateResponse) *model.MetricsSnapshot {
	snapshot := &model.MetricsSnapshot{}
	var calories float64

	for _, bucket := range resp.Bucket {
		for _, ds := range bucket.Dataset {
			switch {
			case isStepSource(ds.DataSourceId):
				snapshot.Steps += sumIntValues(ds)
			case strings.Contains(ds.DataSourceId, "calories"):
				calories += sumFloatValues(ds)
			case strings.Contains(ds.DataSourceId, "active_minutes"):
				snapshot.ActiveMinutes += sumIntValues(ds)
			}
		}
	}

	snapshot.Calories = model.RoundCalories(calories)
	return snapshot
}

// reduceHistory maps each daily bucket to a step entry keyed by the UTC
// date of the bucket start. Buckets without points still produce an entry,
// so gaps in the provider's data show as zero days rather than missing
// days.
func reduceHistory(resp *fitness.AggregateResponse) []model.DailySteps {
	history := make([]model.DailySteps, 0, len(resp.Bucket))

	for _, bucket := range resp.Bucket {
		day := model.DailySteps{
			Date: time.UnixMilli(bucket.StartTimeMillis).UTC().Format("2006-01-02"),
		}
		for _, ds := range bucket.Dataset {
			if isStepSource(ds.DataSourceId) {
				day.Steps += sumIntValues(ds)
			}
		}
		history = append(history, day)
	}

	return history
}

// reduceBreakdown keeps the per-source, per-point detail that the snapshot
// reduction discards.
func reduceBreakdown(resp *fitness.AggregateResponse) *model.SourceBreakdown {
	breakdown := &model.SourceBreakdown{}

	for _, bucket := range resp.Bucket {
		for _, ds := range bucket.Dataset {
			if !isStepSource(ds.DataSourceId) {
				continue
			}
			source := model.SourceSteps{DataSourceID: ds.DataSourceId}
			for _, p := range ds.Point {
				point := model.SourcePoint{
					Start: time.Unix(0, p.StartTimeNanos),
					End:   time.Unix(0, p.EndTimeNanos),
				}
				for _, v := range p.Value {
					point.Steps += v.IntVal
				}
				source.Steps += point.Steps
				source.Points = append(source.Points, point)
			}
			breakdown.TotalSteps += source.Steps
			breakdown.Sources = append(breakdown.Sources, source)
		}
	}

	return breakdown
}

func isStepSource(id string) bool {
	return strings.Contains(id, "step_count") || strings.Contains(id, "estimated_steps")
}

func sumIntValues(ds *fitness.Dataset) int64 {
	var total int64
	for _, p := range ds.Point {
		for _, v := range p.Value {
			total += v.IntVal
		}
	}
	return total
}

func sumFloatValues(ds *fitness.Dataset) float64 {
	var total float64
	for _, p := range ds.Point {
		for _, v := range p.Value {
			total += v.FpVal
		}
	}
	return total
}

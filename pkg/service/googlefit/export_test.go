package googlefit

var (
	ReduceMetrics   = reduceMetrics
	ReduceHistory   = reduceHistory
	ReduceBreakdown = reduceBreakdown
)

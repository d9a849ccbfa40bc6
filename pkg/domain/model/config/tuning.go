package config

import "time"

// Tuning holds operational knobs for the sync flow. Loaded from an optional
// TOML file; defaults reproduce the original behavior.
type Tuning struct {
	// AppName is the display name used on rendered pages.
	AppName string
	// ForceSyncDelay is the fixed wait before a force-sync fetch, giving
	// the provider's ingestion pipeline time to catch up with
	// recently-synced device data. A heuristic, not a guarantee: provider
	// ingestion latency is unbounded in the worst case.
	ForceSyncDelay time.Duration
	// HistoryDefaultDays is used when the history API omits the days
	// parameter.
	HistoryDefaultDays int
	// HistoryMaxDays bounds the history window.
	HistoryMaxDays int
}

// DefaultTuning returns the default sync tuning
func DefaultTuning() *Tuning {
	return &Tuning{
		AppName:            "Stridelog",
		ForceSyncDelay:     5 * time.Second,
		HistoryDefaultDays: 7,
		HistoryMaxDays:     30,
	}
}

package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	domainConfig "github.com/stridelog/stridelog/pkg/domain/model/config"
)

// TuningFile is the optional TOML tuning file. Absent fields keep their
// defaults.
type TuningFile struct {
	AppName            string `toml:"app_name"`
	ForceSyncDelaySec  int    `toml:"force_sync_delay_seconds"`
	HistoryDefaultDays int    `toml:"history_default_days"`
	HistoryMaxDays     int    `toml:"history_max_days"`
}

// Validate checks if the tuning file is valid
func (t *TuningFile) Validate() error {
	if t.ForceSyncDelaySec < 0 {
		return goerr.New("force_sync_delay_seconds must not be negative", goerr.V("value", t.ForceSyncDelaySec))
	}
	if t.HistoryDefaultDays < 0 {
		return goerr.New("history_default_days must not be negative", goerr.V("value", t.HistoryDefaultDays))
	}
	if t.HistoryMaxDays < 0 {
		return goerr.New("history_max_days must not be negative", goerr.V("value", t.HistoryMaxDays))
	}
	if t.HistoryDefaultDays > 0 && t.HistoryMaxDays > 0 && t.HistoryDefaultDays > t.HistoryMaxDays {
		return goerr.New("history_default_days must not exceed history_max_days",
			goerr.V("default", t.HistoryDefaultDays),
			goerr.V("max", t.HistoryMaxDays))
	}
	return nil
}

// ToTuning merges the file over the defaults
func (t *TuningFile) ToTuning() *domainConfig.Tuning {
	tuning := domainConfig.DefaultTuning()
	if t.AppName != "" {
		tuning.AppName = t.AppName
	}
	if t.ForceSyncDelaySec > 0 {
		tuning.ForceSyncDelay = time.Duration(t.ForceSyncDelaySec) * time.Second
	}
	if t.HistoryDefaultDays > 0 {
		tuning.HistoryDefaultDays = t.HistoryDefaultDays
	}
	if t.HistoryMaxDays > 0 {
		tuning.HistoryMaxDays = t.HistoryMaxDays
	}
	return tuning
}

// LoadTuning loads sync tuning from a TOML file. An empty path returns the
// defaults.
func LoadTuning(path string) (*domainConfig.Tuning, error) {
	if path == "" {
		return domainConfig.DefaultTuning(), nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read tuning file", goerr.V("path", path))
	}

	var file TuningFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML tuning file", goerr.V("path", path))
	}

	if err := file.Validate(); err != nil {
		return nil, goerr.Wrap(err, "tuning validation failed", goerr.V("path", path))
	}

	return file.ToTuning(), nil
}

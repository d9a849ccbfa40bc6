package types

import "fmt"

// SyncOutcome is the terminal state of one sync run against the fitness
// provider. It decides the recovery routing: NeedsReconnect sends the user
// back through the authorization flow, Failed surfaces the error as-is.
type SyncOutcome string

const (
	// SyncOutcomeNoCredentials means no token bundle is stored for the user.
	SyncOutcomeNoCredentials SyncOutcome = "NO_CREDENTIALS"
	// SyncOutcomeNeedsReconnect means the stored bundle is unusable and a
	// fresh authorization is required. Never retried automatically.
	SyncOutcomeNeedsReconnect SyncOutcome = "NEEDS_RECONNECT"
	// SyncOutcomeFailed means the fetch or persistence failed for a reason
	// unrelated to credentials.
	SyncOutcomeFailed SyncOutcome = "FAILED"
	// SyncOutcomeSynced means the snapshot was refreshed and persisted.
	SyncOutcomeSynced SyncOutcome = "SYNCED"
)

// AllSyncOutcomes returns all valid sync outcomes
func AllSyncOutcomes() []SyncOutcome {
	return []SyncOutcome{
		SyncOutcomeNoCredentials,
		SyncOutcomeNeedsReconnect,
		SyncOutcomeFailed,
		SyncOutcomeSynced,
	}
}

// IsValid checks if the sync outcome is valid
func (o SyncOutcome) IsValid() bool {
	switch o {
	case SyncOutcomeNoCredentials,
		SyncOutcomeNeedsReconnect,
		SyncOutcomeFailed,
		SyncOutcomeSynced:
		return true
	default:
		return false
	}
}

// String returns the string representation of the sync outcome
func (o SyncOutcome) String() string {
	return string(o)
}

// ParseSyncOutcome parses a string into a SyncOutcome
func ParseSyncOutcome(s string) (SyncOutcome, error) {
	outcome := SyncOutcome(s)
	if !outcome.IsValid() {
		return "", fmt.Errorf("invalid sync outcome: %s", s)
	}
	return outcome, nil
}

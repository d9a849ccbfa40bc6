package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/types"
)

// User is the per-user document: identity fields from the sign-in provider,
// the fitness OAuth bundle, the current metrics snapshot, and the daily
// step history. The service holds no copy across requests; every operation
// re-reads before acting.
type User struct {
	ID          types.UserID     `firestore:"id"`
	GoogleID    string           `firestore:"google_id"`
	DisplayName string           `firestore:"display_name"`
	Email       string           `firestore:"email"`
	Photo       string           `firestore:"photo,omitempty"`
	FitTokens   *TokenBundle     `firestore:"fitness_tokens,omitempty"`
	Metrics     *MetricsSnapshot `firestore:"fitness_metrics,omitempty"`
	StepCount   *LegacyStepCount `firestore:"step_count,omitempty"`
	StepHistory []DailySteps     `firestore:"step_history,omitempty"`
	CreatedAt   time.Time        `firestore:"created_at"`
}

// NewUser creates a user from the sign-in provider profile
func NewUser(googleID, displayName, email, photo string) *User {
	return &User{
		ID:          types.NewUserID(),
		GoogleID:    googleID,
		DisplayName: displayName,
		Email:       email,
		Photo:       photo,
		CreatedAt:   time.Now(),
	}
}

// Validate checks if the user is valid
func (u *User) Validate() error {
	if err := u.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid user ID")
	}
	if u.GoogleID == "" {
		return goerr.New("google ID is required", goerr.V("user_id", u.ID))
	}
	if u.DisplayName == "" {
		return goerr.New("display name is required", goerr.V("user_id", u.ID))
	}
	if u.Email == "" {
		return goerr.New("email is required", goerr.V("user_id", u.ID))
	}
	return nil
}

// HasFitnessConnection reports whether a usable token bundle is stored
func (u *User) HasFitnessConnection() bool {
	return u.FitTokens.Valid()
}

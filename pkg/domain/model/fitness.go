package model

import (
	"math"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/types"
	"golang.org/x/oauth2"
)

// refreshWindow is how close to expiry an access token may get before a
// refresh exchange is attempted.
const refreshWindow = 5 * time.Minute

// TokenBundle is the set of OAuth credentials for one user's fitness
// provider connection. It is replaced wholesale on every refresh and
// cleared on reconnect-reset.
type TokenBundle struct {
	AccessToken  string `firestore:"access_token" masq:"secret"`
	RefreshToken string `firestore:"refresh_token,omitempty" masq:"secret"`
	TokenType    string `firestore:"token_type,omitempty"`
	Scope        string `firestore:"scope,omitempty"`
	// ExpiryDate is milliseconds since epoch. Zero means the provider did
	// not report an expiry and the token is treated as never-expiring.
	ExpiryDate int64 `firestore:"expiry_date,omitempty"`
}

// Valid reports whether the bundle may be used to call the provider.
func (b *TokenBundle) Valid() bool {
	return b != nil && b.AccessToken != ""
}

// Validate checks if the bundle is usable
func (b *TokenBundle) Validate() error {
	if b == nil || b.AccessToken == "" {
		return goerr.New("token bundle has no access token", goerr.T(types.TagTokenRefresh))
	}
	return nil
}

// NeedsRefresh reports whether the access token expires within the refresh
// window. A bundle without an expiry never needs a refresh (best-effort,
// provider-dependent).
func (b *TokenBundle) NeedsRefresh(now time.Time) bool {
	if b.ExpiryDate == 0 {
		return false
	}
	return b.ExpiryDate <= now.Add(refreshWindow).UnixMilli()
}

// Token converts the bundle into an oauth2 token.
func (b *TokenBundle) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		TokenType:    b.TokenType,
	}
	if b.ExpiryDate != 0 {
		tok.Expiry = time.UnixMilli(b.ExpiryDate)
	}
	return tok
}

// BundleFromToken converts an oauth2 token into a stored bundle. The scope
// extra is preserved when the provider reports it.
func BundleFromToken(tok *oauth2.Token) *TokenBundle {
	b := &TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		b.ExpiryDate = tok.Expiry.UnixMilli()
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		b.Scope = scope
	}
	return b
}

// MetricsSnapshot is the current best-known totals for the active day.
// It is computed fresh from a bounded window on every sync, never merged
// with a prior snapshot.
type MetricsSnapshot struct {
	Steps         int64     `firestore:"steps" json:"steps"`
	Calories      float64   `firestore:"calories" json:"calories"`
	ActiveMinutes int64     `firestore:"active_minutes" json:"activeMinutes"`
	LastUpdated   time.Time `firestore:"last_updated" json:"lastUpdated"`
}

// RoundCalories rounds a calorie total to one decimal place. Applied once
// to the final sum, not per data point, to avoid compounding rounding
// error.
func RoundCalories(v float64) float64 {
	return math.Round(v*10) / 10
}

// DailySteps is the step total for one bucketed calendar day. A day with
// no provider data yields a zero count, not an absent entry.
type DailySteps struct {
	Date  string `firestore:"date" json:"date"`
	Steps int64  `firestore:"steps" json:"steps"`
}

// LegacyStepCount is the original single-field step counter, retained for
// backward compatibility with older clients and the mobile ingestion path.
type LegacyStepCount struct {
	Count       int64     `firestore:"count" json:"count"`
	LastUpdated time.Time `firestore:"last_updated" json:"lastUpdated"`
}

// SyncJob is the handle for one background force-sync run. The client polls
// the job status instead of guessing when the detached fetch finished.
type SyncJob struct {
	ID         types.SyncJobID   `firestore:"id"`
	UserID     types.UserID      `firestore:"user_id"`
	Status     types.SyncStatus  `firestore:"status"`
	Outcome    types.SyncOutcome `firestore:"outcome,omitempty"`
	Error      string            `firestore:"error,omitempty"`
	CreatedAt  time.Time         `firestore:"created_at"`
	FinishedAt time.Time         `firestore:"finished_at,omitempty"`
}

// NewSyncJob creates a running sync job for the given user
func NewSyncJob(userID types.UserID) *SyncJob {
	return &SyncJob{
		ID:        types.NewSyncJobID(),
		UserID:    userID,
		Status:    types.SyncStatusRunning,
		CreatedAt: time.Now(),
	}
}

// Validate checks if the sync job is valid
func (j *SyncJob) Validate() error {
	if err := j.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid sync job ID")
	}
	if err := j.UserID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid user ID")
	}
	if !j.Status.IsValid() {
		return goerr.New("invalid sync job status", goerr.V("status", j.Status))
	}
	return nil
}

// SourceBreakdown is a per-data-source view of the raw step aggregation,
// used to diagnose under-counting when a user's data is split across
// devices.
type SourceBreakdown struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Sources     []SourceSteps
	TotalSteps  int64
}

// SourceSteps is the contribution of one data source.
type SourceSteps struct {
	DataSourceID string
	Steps        int64
	Points       []SourcePoint
}

// SourcePoint is one raw data point within a source.
type SourcePoint struct {
	Steps int64
	Start time.Time
	End   time.Time
}

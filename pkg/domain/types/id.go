package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// UserID identifies one user document in the store
type UserID string

// NewUserID generates a new random user ID
func NewUserID() UserID {
	return UserID(uuid.New().String())
}

// String returns the string representation of the user ID
func (id UserID) String() string {
	return string(id)
}

// Validate checks if the user ID is valid
func (id UserID) Validate() error {
	if id == "" {
		return goerr.New("user ID is empty")
	}
	return nil
}

// SyncJobID identifies one background sync job
type SyncJobID string

// NewSyncJobID generates a new random sync job ID
func NewSyncJobID() SyncJobID {
	return SyncJobID(uuid.New().String())
}

// String returns the string representation of the sync job ID
func (id SyncJobID) String() string {
	return string(id)
}

// Validate checks if the sync job ID is valid
func (id SyncJobID) Validate() error {
	if id == "" {
		return goerr.New("sync job ID is empty")
	}
	return nil
}

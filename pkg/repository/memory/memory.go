package memory

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/interfaces"
)

// ErrNotFound is returned when the requested record does not exist
var ErrNotFound = goerr.New("record not found")

// Repository is an alias so the auth methods read the same as the
// firestore implementation.
type Repository = Memory

type Memory struct {
	user    *userRepository
	syncJob *syncJobRepository
	tokens  *tokenStore
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		user:    newUserRepository(),
		syncJob: newSyncJobRepository(),
		tokens:  newTokenStore(),
	}
}

func (m *Memory) User() interfaces.UserRepository {
	return m.user
}

func (m *Memory) SyncJob() interfaces.SyncJobRepository {
	return m.syncJob
}

func (m *Memory) Close() error {
	return nil
}

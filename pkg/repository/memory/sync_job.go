package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/model"
	"github.com/stridelog/stridelog/pkg/domain/types"
)

type syncJobRepository struct {
	mu   sync.RWMutex
	jobs map[types.SyncJobID]*model.SyncJob
}

func newSyncJobRepository() *syncJobRepository {
	return &syncJobRepository{
		jobs: make(map[types.SyncJobID]*model.SyncJob),
	}
}

func (r *syncJobRepository) Put(ctx context.Context, job *model.SyncJob) error {
	if err := job.Validate(); err != nil {
		return goerr.Wrap(err, "invalid sync job")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *syncJobRepository) Get(ctx context.Context, id types.SyncJobID) (*model.SyncJob, error) {
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid sync job ID")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *job
	return &copied, nil
}

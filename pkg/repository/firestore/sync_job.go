package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/model"
	"github.com/stridelog/stridelog/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type syncJobDocument struct {
	ID         string    `firestore:"id"`
	UserID     string    `firestore:"user_id"`
	Status     string    `firestore:"status"`
	Outcome    string    `firestore:"outcome,omitempty"`
	Error      string    `firestore:"error,omitempty"`
	CreatedAt  time.Time `firestore:"created_at"`
	FinishedAt time.Time `firestore:"finished_at,omitempty"`
}

type syncJobRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newSyncJobRepository(client *firestore.Client) *syncJobRepository {
	return &syncJobRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *syncJobRepository) jobsCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_sync_jobs"
	}
	return "sync_jobs"
}

func syncJobToDocument(job *model.SyncJob) *syncJobDocument {
	return &syncJobDocument{
		ID:         string(job.ID),
		UserID:     string(job.UserID),
		Status:     string(job.Status),
		Outcome:    string(job.Outcome),
		Error:      job.Error,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.FinishedAt,
	}
}

func syncJobToModel(doc *syncJobDocument) *model.SyncJob {
	return &model.SyncJob{
		ID:         types.SyncJobID(doc.ID),
		UserID:     types.UserID(doc.UserID),
		Status:     types.SyncStatus(doc.Status),
		Outcome:    types.SyncOutcome(doc.Outcome),
		Error:      doc.Error,
		CreatedAt:  doc.CreatedAt,
		FinishedAt: doc.FinishedAt,
	}
}

func (r *syncJobRepository) Put(ctx context.Context, job *model.SyncJob) error {
	if err := job.Validate(); err != nil {
		return goerr.Wrap(err, "invalid sync job")
	}

	docRef := r.client.Collection(r.jobsCollection()).Doc(job.ID.String())
	if _, err := docRef.Set(ctx, syncJobToDocument(job)); err != nil {
		return goerr.Wrap(err, "failed to put sync job to firestore", goerr.V("job_id", job.ID))
	}

	return nil
}

func (r *syncJobRepository) Get(ctx context.Context, id types.SyncJobID) (*model.SyncJob, error) {
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid sync job ID")
	}

	doc, err := r.client.Collection(r.jobsCollection()).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, goerr.Wrap(err, "failed to get sync job from firestore", goerr.V("job_id", id))
	}

	var data syncJobDocument
	if err := doc.DataTo(&data); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal sync job document")
	}

	return syncJobToModel(&data), nil
}

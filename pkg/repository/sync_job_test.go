package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stridelog/stridelog/pkg/domain/interfaces"
	"github.com/stridelog/stridelog/pkg/domain/model"
	"github.com/stridelog/stridelog/pkg/domain/types"
)

func runSyncJobRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Run("Put and Get", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		job := model.NewSyncJob(types.NewUserID())

		if err := repo.SyncJob().Put(ctx, job); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		retrieved, err := repo.SyncJob().Get(ctx, job.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if retrieved.ID != job.ID {
			t.Errorf("ID mismatch: got %v, want %v", retrieved.ID, job.ID)
		}
		if retrieved.UserID != job.UserID {
			t.Errorf("UserID mismatch: got %v, want %v", retrieved.UserID, job.UserID)
		}
		if retrieved.Status != types.SyncStatusRunning {
			t.Errorf("Status mismatch: got %v, want RUNNING", retrieved.Status)
		}
	})

	t.Run("Get not found", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.SyncJob().Get(ctx, types.NewSyncJobID())
		if err == nil {
			t.Fatal("Expected error for non-existent job, got nil")
		}
		if !isNotFoundErr(err) {
			t.Errorf("Expected NotFound error, got: %v", err)
		}
	})

	t.Run("Put overwrites for completion", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		job := model.NewSyncJob(types.NewUserID())
		if err := repo.SyncJob().Put(ctx, job); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		job.Status = types.SyncStatusCompleted
		job.Outcome = types.SyncOutcomeSynced
		job.FinishedAt = time.Now()
		if err := repo.SyncJob().Put(ctx, job); err != nil {
			t.Fatalf("Put (update) failed: %v", err)
		}

		retrieved, err := repo.SyncJob().Get(ctx, job.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if retrieved.Status != types.SyncStatusCompleted {
			t.Errorf("Status mismatch after update: got %v", retrieved.Status)
		}
		if retrieved.Outcome != types.SyncOutcomeSynced {
			t.Errorf("Outcome mismatch after update: got %v", retrieved.Outcome)
		}
		if retrieved.FinishedAt.IsZero() {
			t.Error("FinishedAt not stored")
		}
	})

	t.Run("Put validation", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		invalid := &model.SyncJob{
			ID:        types.NewSyncJobID(),
			Status:    types.SyncStatusRunning,
			CreatedAt: time.Now(),
		}
		if err := repo.SyncJob().Put(ctx, invalid); err == nil {
			t.Fatal("Expected validation error for job without user ID, got nil")
		}
	})
}

func TestMemorySyncJobRepository(t *testing.T) {
	runSyncJobRepositoryTest(t, newMemoryRepo)
}

func TestFirestoreSyncJobRepository(t *testing.T) {
	runSyncJobRepositoryTest(t, newFirestoreRepo)
}

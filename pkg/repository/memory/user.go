package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/model"
	"github.com/stridelog/stridelog/pkg/domain/types"
)

type userRepository struct {
	mu    sync.RWMutex
	users map[types.UserID]*model.User
}

func newUserRepository() *userRepository {
	return &userRepository{
		users: make(map[types.UserID]*model.User),
	}
}

func copyUser(u *model.User) *model.User {
	copied := &model.User{
		ID:          u.ID,
		GoogleID:    u.GoogleID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Photo:       u.Photo,
		CreatedAt:   u.CreatedAt,
	}
	if u.FitTokens != nil {
		bundle := *u.FitTokens
		copied.FitTokens = &bundle
	}
	if u.Metrics != nil {
		metrics := *u.Metrics
		copied.Metrics = &metrics
	}
	if u.StepCount != nil {
		count := *u.StepCount
		copied.StepCount = &count
	}
	if u.StepHistory != nil {
		copied.StepHistory = make([]model.DailySteps, len(u.StepHistory))
		copy(copied.StepHistory, u.StepHistory)
	}
	return copied
}

func (r *userRepository) Get(ctx context.Context, id types.UserID) (*model.User, error) {
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid user ID")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	return copyUser(user), nil
}

func (r *userRepository) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	if googleID == "" {
		return nil, goerr.New("google ID is empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.GoogleID == googleID {
			return copyUser(user), nil
		}
	}

	return nil, ErrNotFound
}

func (r *userRepository) Put(ctx context.Context, user *model.User) error {
	if err := user.Validate(); err != nil {
		return goerr.Wrap(err, "invalid user")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*model.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, copyUser(user))
	}

	return users, nil
}

func (r *userRepository) UpdateFitTokens(ctx context.Context, id types.UserID, bundle *model.TokenBundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}

	if bundle == nil {
		user.FitTokens = nil
		return nil
	}
	copied := *bundle
	user.FitTokens = &copied
	return nil
}

func (r *userRepository) UpdateMetrics(ctx context.Context, id types.UserID, metrics *model.MetricsSnapshot) error {
	if metrics == nil {
		return goerr.New("metrics snapshot is nil", goerr.V("user_id", id))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}

	copied := *metrics
	user.Metrics = &copied
	user.StepCount = &model.LegacyStepCount{
		Count:       metrics.Steps,
		LastUpdated: metrics.LastUpdated,
	}
	return nil
}

func (r *userRepository) UpdateStepData(ctx context.Context, id types.UserID, count *model.LegacyStepCount, history []model.DailySteps) error {
	if count == nil {
		return goerr.New("step count is nil", goerr.V("user_id", id))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}

	copied := *count
	user.StepCount = &copied
	if len(history) > 0 {
		user.StepHistory = make([]model.DailySteps, len(history))
		copy(user.StepHistory, history)
	} else {
		user.StepHistory = nil
	}
	return nil
}

func (r *userRepository) ClearFitness(ctx context.Context, id types.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}

	user.FitTokens = nil
	user.Metrics = nil
	user.StepCount = nil
	return nil
}

package usecase

import "context"

// SetSyncDispatcher replaces the background dispatcher for testing, so a
// force-sync runs synchronously before StartForceSync returns.
func (uc *FitnessUseCase) SetSyncDispatcher(dispatch func(ctx context.Context, handler func(ctx context.Context) error)) {
	uc.dispatch = dispatch
}

// IsNotFound is exported for testing
var IsNotFound = isNotFound

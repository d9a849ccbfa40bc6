package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/interfaces"
	"github.com/stridelog/stridelog/pkg/domain/model"
	"github.com/stridelog/stridelog/pkg/domain/model/auth"
)

// NoAuthnUseCase provides authentication using a specified user (for development/testing)
type NoAuthnUseCase struct {
	repo     interfaces.Repository
	googleID string
	email    string
	name     string
}

// NewNoAuthnUseCase creates a new NoAuthnUseCase instance with specified user info
func NewNoAuthnUseCase(repo interfaces.Repository, googleID, email, name string) *NoAuthnUseCase {
	return &NoAuthnUseCase{
		repo:     repo,
		googleID: googleID,
		email:    email,
		name:     name,
	}
}

// ensureUser makes sure the fixed development user has a backing document,
// so the fitness flows have somewhere to store tokens and metrics.
func (uc *NoAuthnUseCase) ensureUser(ctx context.Context) (*model.User, error) {
	user, err := uc.repo.User().GetByGoogleID(ctx, uc.googleID)
	if err == nil {
		return user, nil
	}
	if !isNotFound(err) {
		return nil, goerr.Wrap(err, "failed to look up no-auth user")
	}

	user = model.NewUser(uc.googleID, uc.name, uc.email, "")
	if err := uc.repo.User().Put(ctx, user); err != nil {
		return nil, goerr.Wrap(err, "failed to create no-auth user")
	}
	return user, nil
}

// GetAuthURL returns a dummy URL (should not be called in no-auth mode)
func (uc *NoAuthnUseCase) GetAuthURL(state string) string {
	return "/"
}

// HandleCallback issues a session for the fixed user without any exchange
func (uc *NoAuthnUseCase) HandleCallback(ctx context.Context, code string) (*auth.Token, error) {
	user, err := uc.ensureUser(ctx)
	if err != nil {
		return nil, err
	}
	return auth.NewToken(user.ID, uc.googleID, uc.email, uc.name), nil
}

// ValidateToken always returns a session for the fixed user
func (uc *NoAuthnUseCase) ValidateToken(ctx context.Context, tokenID auth.TokenID, tokenSecret auth.TokenSecret) (*auth.Token, error) {
	user, err := uc.ensureUser(ctx)
	if err != nil {
		return nil, err
	}
	return auth.NewToken(user.ID, uc.googleID, uc.email, uc.name), nil
}

// Logout does nothing in no-auth mode
func (uc *NoAuthnUseCase) Logout(ctx context.Context, tokenID auth.TokenID) error {
	// No-op in no-auth mode
	return nil
}

// IsNoAuthn returns true for NoAuthnUseCase
func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}

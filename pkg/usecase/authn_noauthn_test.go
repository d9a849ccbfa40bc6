package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/stridelog/stridelog/pkg/repository/memory"
	"github.com/stridelog/stridelog/pkg/usecase"
)

func TestNoAuthnUseCase(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	uc := usecase.NewNoAuthnUseCase(repo, "dev-google-id", "dev@example.com", "Dev User")

	var _ usecase.AuthUseCaseInterface = uc
	gt.Value(t, uc.IsNoAuthn()).Equal(true)

	t.Run("validate issues a session backed by a real user document", func(t *testing.T) {
		token := gt.R1(uc.ValidateToken(ctx, "any-id", "any-secret")).NoError(t)
		gt.Value(t, token.Email).Equal("dev@example.com")

		user := gt.R1(repo.User().GetByGoogleID(ctx, "dev-google-id")).NoError(t)
		gt.Value(t, user.ID).Equal(token.UserID)
	})

	t.Run("repeated validation reuses the same user", func(t *testing.T) {
		first := gt.R1(uc.ValidateToken(ctx, "a", "b")).NoError(t)
		second := gt.R1(uc.ValidateToken(ctx, "a", "b")).NoError(t)
		gt.Value(t, first.UserID).Equal(second.UserID)

		users := gt.R1(repo.User().List(ctx)).NoError(t)
		gt.Array(t, users).Length(1)
	})

	t.Run("logout is a no-op", func(t *testing.T) {
		gt.NoError(t, uc.Logout(ctx, "any-id"))
	})
}

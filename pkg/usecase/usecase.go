package usecase

import (
	"github.com/stridelog/stridelog/pkg/domain/interfaces"
	"github.com/stridelog/stridelog/pkg/domain/model/config"
)

type UseCases struct {
	repo     interfaces.Repository
	provider interfaces.FitnessProvider
	tuning   *config.Tuning
	Fitness  *FitnessUseCase
	Auth     AuthUseCaseInterface
}

type Option func(*UseCases)

func WithAuth(auth AuthUseCaseInterface) Option {
	return func(uc *UseCases) {
		uc.Auth = auth
	}
}

func WithTuning(tuning *config.Tuning) Option {
	return func(uc *UseCases) {
		uc.tuning = tuning
	}
}

func New(repo interfaces.Repository, provider interfaces.FitnessProvider, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:     repo,
		provider: provider,
		tuning:   config.DefaultTuning(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Fitness = NewFitnessUseCase(repo, provider, uc.tuning)

	return uc
}

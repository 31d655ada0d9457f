package app

import (
	"context"
	"fmt"

	"github.com/saayr-labs/progression-layer/internal/app/events"
	"github.com/saayr-labs/progression-layer/internal/app/services/accounts"
	authsvc "github.com/saayr-labs/progression-layer/internal/app/services/auth"
	challengesvc "github.com/saayr-labs/progression-layer/internal/app/services/challenges"
	progressionsvc "github.com/saayr-labs/progression-layer/internal/app/services/progression"
	rewardsvc "github.com/saayr-labs/progression-layer/internal/app/services/rewards"
	"github.com/saayr-labs/progression-layer/internal/app/storage"
	"github.com/saayr-labs/progression-layer/internal/app/storage/memory"
	"github.com/saayr-labs/progression-layer/internal/app/system"
	"github.com/saayr-labs/progression-layer/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Accounts   storage.AccountStore
	Ledger     storage.LedgerStore
	Challenges storage.ChallengeStore
	Rewards    storage.RewardStore
}

// Options carries optional cross-cutting dependencies.
type Options struct {
	OTPStore OTPStore
	Auth     authsvc.Config
}

// OTPStore aliases the auth package's store so callers can wire Redis
// without importing the service package directly.
type OTPStore = authsvc.OTPStore

// Application ties the domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Accounts   *accounts.Service
	Auth       *authsvc.Service
	Ledger     *progressionsvc.Service
	Challenges *challengesvc.Service
	Rewards    *rewardsvc.Service
	Events     *events.Hub
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Accounts == nil {
		stores.Accounts = mem
	}
	if stores.Ledger == nil {
		stores.Ledger = mem
	}
	if stores.Challenges == nil {
		stores.Challenges = mem
	}
	if stores.Rewards == nil {
		stores.Rewards = mem
	}

	manager := system.NewManager()
	hub := events.NewHub()

	ledgerService := progressionsvc.New(stores.Ledger, hub, log)
	acctService := accounts.New(stores.Accounts, stores.Ledger, log)
	authService := authsvc.New(stores.Accounts, opts.OTPStore, opts.Auth, log)
	challengeService := challengesvc.New(stores.Challenges, ledgerService, log)
	rewardService := rewardsvc.New(stores.Rewards, ledgerService, log)

	for _, name := range []string{"accounts", "auth", "ledger", "rewards"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	rotator := challengesvc.NewRotator(challengeService, log)
	if err := manager.Register(rotator); err != nil {
		return nil, fmt.Errorf("register %s: %w", rotator.Name(), err)
	}

	return &Application{
		manager:    manager,
		log:        log,
		Accounts:   acctService,
		Auth:       authService,
		Ledger:     ledgerService,
		Challenges: challengeService,
		Rewards:    rewardService,
		Events:     hub,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// Package app assembles the CRM from configuration: storage, credentials,
// revocation list, guard and entity services. Both binaries start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redisinfra "github.com/aryan0dhankhar/eventcrm/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/eventcrm/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/eventcrm/internal/repository"
	"github.com/aryan0dhankhar/eventcrm/internal/security"
	"github.com/aryan0dhankhar/eventcrm/internal/security/audit"
	"github.com/aryan0dhankhar/eventcrm/internal/security/auth"
	"github.com/aryan0dhankhar/eventcrm/internal/service"
	"github.com/aryan0dhankhar/eventcrm/internal/telemetry"
	"github.com/aryan0dhankhar/eventcrm/pkg/config"
	"github.com/aryan0dhankhar/eventcrm/pkg/database"
)

// App holds the wired services and the resources they depend on.
type App struct {
	Auth      *service.AuthService
	Users     *service.UserService
	Clients   *service.ClientService
	Contracts *service.ContractService
	Events    *service.EventService

	Pool   *database.ConnectionPool
	Redis  *redisinfra.Client
	Tokens *auth.TokenManager

	// Revocations is set only when the list is held in process.
	Revocations *auth.MemoryRevocationList
}

// Open connects the store, creates the schema if needed and builds the services.
// The revocation list lives in Redis when REDIS_URL is set and in memory otherwise.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	tokens, err := newTokenManager(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := database.NewConnectionPool(ctx, &database.Config{URL: cfg.DatabaseURL}, log)
	if err != nil {
		return nil, err
	}
	db := pool.GetDB()
	if err := repository.EnsureSchema(ctx, db, pool.Dialect()); err != nil {
		pool.Close()
		return nil, err
	}

	a := &App{Pool: pool, Tokens: tokens}

	var revocations auth.RevocationStore
	if cfg.RedisURL == "" {
		a.Revocations = auth.NewMemoryRevocationList()
		revocations = a.Revocations
	} else {
		client, err := redisinfra.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		breaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
		breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
			log.Warn("revocation list circuit breaker changed state",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		})
		a.Redis = client
		revocations = auth.NewRedisRevocationList(client, breaker)
	}

	users := repository.NewUserRepository(db, log)
	departments := repository.NewDepartmentRepository(db, log)
	clients := repository.NewClientRepository(db, log)
	contracts := repository.NewContractRepository(db, log)
	events := repository.NewEventRepository(db, log)

	auditLog := audit.NewLogger(log)
	deps := service.Deps{
		Guard:  security.NewGuard(tokens, revocations, auditLog, log),
		Audit:  auditLog,
		Sink:   telemetry.NewSlogSink(log),
		Logger: log,
	}

	a.Auth = service.NewAuthService(users, departments, tokens, revocations, deps)
	a.Users = service.NewUserService(users, departments, deps)
	a.Clients = service.NewClientService(clients, deps)
	a.Contracts = service.NewContractService(contracts, clients, deps)
	a.Events = service.NewEventService(events, contracts, clients, users, deps)
	return a, nil
}

func newTokenManager(cfg *config.Config) (*auth.TokenManager, error) {
	private, public, err := cfg.ReadKeys()
	if err != nil {
		return nil, err
	}
	tm, err := auth.NewTokenManager(auth.Options{
		Algorithm:     cfg.JWTAlgorithm,
		Secret:        cfg.JWTSecret,
		PrivateKeyPEM: private,
		PublicKeyPEM:  public,
		TTL:           cfg.TokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token configuration: %w", err)
	}
	return tm, nil
}

// Close releases the store and the Redis connection.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Pool != nil {
		errs = append(errs, a.Pool.Close())
	}
	return errors.Join(errs...)
}

package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/housepoints/house-points-hub/config"
	"github.com/housepoints/house-points-hub/internal/domain/house"
	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/domain/student"
	"github.com/housepoints/house-points-hub/internal/infrastructure/health"
	"github.com/housepoints/house-points-hub/internal/infrastructure/persistence/postgres"
	"github.com/housepoints/house-points-hub/internal/infrastructure/persistence/redis"
	"github.com/housepoints/house-points-hub/internal/infrastructure/persistence/sqlite"
	"github.com/housepoints/house-points-hub/pkg/logger"
	"github.com/housepoints/house-points-hub/pkg/timeutil"
)

// app holds the wired dependencies for one command invocation.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	store   ledger.Store
	pg      *postgres.Connection // nil on SQLite
	locker  shared.Locker
	clock   timeutil.Clock
	advisor *student.Advisor
	health  *health.Checker

	closers []func()
}

// Close releases everything bootstrap opened, in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// withApp wraps a command body with bootstrap and teardown.
func withApp(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, args)
	}
}

func bootstrap(ctx context.Context) (*app, error) {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	applyFlagOverrides()
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output: os.Stderr,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
		Format: logger.ParseFormat(cfg.Observability.LogFormat),
	})
	logger.SetDefault(log)
	log.Debug("configuration loaded",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("driver", cfg.Database.Driver),
		logger.String("timezone", cfg.App.Timezone),
	)

	a := &app{
		cfg:     cfg,
		log:     log,
		clock:   timeutil.NewSystemClock(cfg.App.Location),
		advisor: student.NewAdvisor(cfg.Competition.EntryGrade, cfg.Competition.HomeroomHouses),
		health:  health.NewChecker(cfg.Observability.HealthCheckTimeout),
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. LEDGER
	// ─────────────────────────────────────────────────────────────────────────
	if err := a.openLedger(ctx); err != nil {
		a.Close()
		return nil, err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. LOCKER (Redis when enabled, otherwise process-local)
	// ─────────────────────────────────────────────────────────────────────────
	if err := a.openLocker(ctx); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func applyFlagOverrides() {
	if sqlitePath != "" {
		os.Setenv("SQLITE_PATH", sqlitePath)
		if databaseURL == "" {
			os.Setenv("LEDGER_DRIVER", config.DriverSQLite)
		}
	}
	if databaseURL != "" {
		os.Setenv("DATABASE_URL", databaseURL)
		os.Setenv("LEDGER_DRIVER", config.DriverPostgres)
	}
	if verbose {
		os.Setenv("LOG_LEVEL", "debug")
	} else if logLevel != "" {
		os.Setenv("LOG_LEVEL", logLevel)
	}
}

func (a *app) openLedger(ctx context.Context) error {
	switch a.cfg.Database.Driver {
	case config.DriverPostgres:
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = a.cfg.Database.URL
		pgCfg.MaxConns = a.cfg.Database.MaxConns
		pgCfg.MinConns = a.cfg.Database.MinConns
		pgCfg.MaxConnLifetime = a.cfg.Database.ConnMaxLifetime
		pgCfg.MaxConnIdleTime = a.cfg.Database.ConnMaxIdleTime
		pgCfg.ConnectAttempts = a.cfg.Database.ConnectAttempts

		conn, err := postgres.NewConnection(ctx, pgCfg, a.log)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, conn.Close)

		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		if applied > 0 {
			a.log.Info("migrations applied", logger.Int("count", applied))
		}

		a.pg = conn
		a.store = postgres.NewLedger(conn)
		a.health.Add("ledger (postgres)", health.PingCheck(conn))

	default:
		l, err := sqlite.Open(ctx, a.cfg.Database.SQLitePath, a.log)
		if err != nil {
			return fmt.Errorf("failed to open ledger %s: %w", a.cfg.Database.SQLitePath, err)
		}
		a.closers = append(a.closers, func() {
			if err := l.Close(); err != nil {
				a.log.Warn("close ledger", logger.Err(err))
			}
		})
		a.store = l
		a.health.Add("ledger (sqlite)", health.PingCheck(l))
	}
	a.health.Add("competition", health.SeededCheck(a.store))
	return nil
}

func (a *app) openLocker(ctx context.Context) error {
	if a.cfg.Redis.Disabled {
		a.locker = shared.NewLocalLocker()
		return nil
	}

	rc := redis.DefaultConfig()
	rc.URL = a.cfg.Redis.URL
	rc.Addr = a.cfg.Redis.Addr()
	rc.Password = a.cfg.Redis.Password
	rc.DB = a.cfg.Redis.DB
	rc.PoolSize = a.cfg.Redis.PoolSize
	rc.DialTimeout = a.cfg.Redis.DialTimeout
	rc.ReadTimeout = a.cfg.Redis.ReadTimeout
	rc.WriteTimeout = a.cfg.Redis.WriteTimeout

	client, err := redis.NewClient(ctx, rc)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.locker = redis.NewLocker(client)
	a.health.Add("redis", health.PingCheck(client))
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ARGUMENT RESOLUTION
// ══════════════════════════════════════════════════════════════════════════════

// resolveHouse accepts a numeric ID or a case-insensitive house name.
func resolveHouse(ctx context.Context, r ledger.Reader, arg string) (house.House, error) {
	arg = strings.TrimSpace(arg)
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return r.FindHouse(ctx, id)
	}
	houses, err := r.ListHouses(ctx)
	if err != nil {
		return house.House{}, err
	}
	if h, ok := house.FindByName(houses, arg); ok {
		return h, nil
	}
	return house.House{}, shared.NotFoundf("house", "Resolve", "no house named %q", arg)
}

// resolveClassYear accepts a numeric ID or a case-insensitive class name.
func resolveClassYear(ctx context.Context, r ledger.Reader, arg string) (student.ClassYear, error) {
	arg = strings.TrimSpace(arg)
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return r.FindClassYear(ctx, id)
	}
	years, err := r.ListClassYears(ctx)
	if err != nil {
		return student.ClassYear{}, err
	}
	for _, y := range years {
		if strings.EqualFold(y.ClassName, arg) {
			return y, nil
		}
	}
	return student.ClassYear{}, shared.NotFoundf("class_year", "Resolve", "no class year named %q", arg)
}

func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf(kind, "ParseID", "%q is not a valid %s id", arg, kind)
	}
	return id, nil
}

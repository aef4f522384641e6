// permtools inspects and edits the officer/permission model from the
// command line. Records go to stdout, one per line with ':'-separated
// fields; logs and errors go to stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fernandezvara/dbkit"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/UniversityRadioYork/permtools"
	"github.com/UniversityRadioYork/permtools/internal/config"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	logger := config.NewLogger(cfg, stderr)

	a := &app{
		cfg:    cfg,
		logger: logger,
		stdout: stdout,
		stderr: stderr,
		open:   openStore,
	}
	return a.execute(ctx, args)
}

// session adapts the service and its extensions to the store interface the
// commands use.
type session struct {
	*permtools.Service
	migrations *permtools.MigrationService
	health     *permtools.HealthService
}

func (s *session) RunMigrations(ctx context.Context) (*permtools.MigrationStatus, error) {
	return s.migrations.RunMigrations(ctx)
}

func (s *session) Ping(ctx context.Context) error {
	return s.health.Ping(ctx)
}

func (s *session) PoolStats() dbkit.PoolStats {
	return s.health.GetPoolStats()
}

// openStore connects to the database described by cfg. The returned close
// function writes transaction metrics, when configured, and closes the pool.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, func() error, error) {
	dsn, err := cfg.ResolveDSN()
	if err != nil {
		return nil, nil, err
	}

	db, err := dbkit.New(dbkit.Config{URL: dsn})
	if err != nil {
		return nil, nil, permtools.NewError(permtools.ErrConnectivity, "open database").WithCause(err)
	}

	service := permtools.NewService(db, permtools.WithLogger(logger))
	pool := permtools.NewPoolService(service)
	if err := pool.ConfigureConnectionPool(permtools.PoolConfig{
		MaxOpenConnections:    cfg.MaxOpenConns,
		MaxIdleConnections:    cfg.MaxIdleConns,
		ConnectionMaxLifetime: cfg.ConnMaxLifetime,
		ConnectionMaxIdleTime: cfg.ConnMaxIdleTime,
	}); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	s := &session{
		Service:    service,
		migrations: permtools.NewMigrationService(service),
		health:     permtools.NewHealthService(service),
	}

	closeFn := func() error {
		var errs []error
		if cfg.MetricsTextfile != "" {
			errs = append(errs, writeMetrics(cfg.MetricsTextfile, service))
		}
		errs = append(errs, db.Close())
		return errors.Join(errs...)
	}
	return s, closeFn, nil
}

func writeMetrics(path string, service *permtools.Service) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(service.MetricsCollector()); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, reg)
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alexanderramin/timekeeper/internal/access"
	"github.com/alexanderramin/timekeeper/internal/cli"
	"github.com/alexanderramin/timekeeper/internal/config"
	"github.com/alexanderramin/timekeeper/internal/db"
	"github.com/alexanderramin/timekeeper/internal/repository"
	"github.com/alexanderramin/timekeeper/internal/service"
	"github.com/alexanderramin/timekeeper/internal/telemetry"
	"github.com/mattn/go-isatty"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		return cli.ExitCode(err)
	}
	return 0
}

func execute() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}

	shutdown, err := telemetry.Setup(context.Background(), cfg.OTel)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire repositories and the unit of work for transactional operations
	sessions := repository.NewSQLiteSessionRepo(database)
	workLogs := repository.NewSQLiteWorkLogRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)

	authz := access.NewStaticAuthorizer(cfg.Grants)
	projects := access.NewProjectRegistry(cfg.Projects)

	var observers []service.UseCaseObserver
	if cfg.Log.Calls {
		observers = append(observers, service.NewLogUseCaseObserver(os.Stderr, level))
	}
	opts := service.Options{
		StartPolicy:   cfg.StartPolicy,
		ActionTimeout: cfg.ActionTimeout,
	}

	app := &cli.App{
		Timer:     service.NewTimerService(sessions, uow, authz, projects, opts, observers...),
		Converter: service.NewConverterService(workLogs, uow, authz, opts, observers...),
		Config:    cfg,
	}
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	return cli.NewRootCmd(app).Execute()
}

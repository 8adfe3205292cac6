package main

import (
	"context"
	"database/sql"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/fieldline/actionbox"
	"github.com/fieldline/actionbox/internal/conf"
	"github.com/fieldline/actionbox/metrics"
	"github.com/fieldline/actionbox/probe"
	"github.com/fieldline/actionbox/remote"
	sqsremote "github.com/fieldline/actionbox/remote/sqs"
	"github.com/fieldline/actionbox/stores"
	"github.com/fieldline/actionbox/zaplog"
)

var rootCmd = &cobra.Command{
	Use:   "actionboxd",
	Short: "Durable action outbox agent",
	Long:  `actionboxd drains locally queued job actions to the remote job service.`,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to config file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(enqueueCmd)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the outbox agent until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, closeStore, err := buildStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer closeStore()

		client, err := buildClient(ctx, cfg.Remote)
		if err != nil {
			return err
		}

		monitor := probe.New(cfg.Probe.URL, probe.WithInterval(cfg.Probe.Interval()))
		monitor.Start(ctx)
		defer monitor.Close()

		hooks := metrics.NewStatsHook("actionbox")
		startMetricsServer(cfg.Metrics, logger)

		engine, err := actionbox.New(ctx, store, client, monitor, actionbox.Options{
			MaxAttempts:    cfg.Engine.MaxAttempts,
			PassInterval:   cfg.Engine.PassInterval(),
			RequestTimeout: cfg.Engine.RequestTimeout(),
			Logger:         zaplog.New(logger),
			Hooks:          hooks,
		})
		if err != nil {
			return err
		}
		defer engine.Close()

		logger.Info("outbox agent started",
			zap.String("store", cfg.Store.Backend),
			zap.String("transport", cfg.Remote.Transport),
		)
		if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue one action locally without attempting delivery",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		store, closeStore, err := buildStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer closeStore()

		payload, err := payloadFromFlags(cmd)
		if err != nil {
			return err
		}

		// Offline monitor and unreachable client: the action only lands in
		// the store; the running agent picks it up on its next pass.
		engine, err := actionbox.New(ctx, store, remote.NewClient("http://127.0.0.1:0"), actionbox.NewManualMonitor(false), actionbox.Options{})
		if err != nil {
			return err
		}
		defer engine.Close()

		id, err := engine.Enqueue(ctx, payload)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

func init() {
	enqueueCmd.Flags().String("kind", "comment", "action kind: submission, comment, start")
	enqueueCmd.Flags().String("job", "", "job id")
	enqueueCmd.Flags().String("text", "", "comment text")
	enqueueCmd.Flags().Float64("footage", 0, "total footage for a submission")
	enqueueCmd.Flags().Int("anchors", 0, "anchor count for a submission")
	enqueueCmd.Flags().Int("coils", 0, "coil count for a submission")
	enqueueCmd.Flags().String("notes", "", "notes for a submission")
	enqueueCmd.Flags().String("completed-on", "", "completion date for a submission (YYYY-MM-DD)")
}

func loadConfig(cmd *cobra.Command) (*conf.Config, error) {
	confFile, _ := cmd.Flags().GetString("config")
	cfg, err := conf.NewConfig(confFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func payloadFromFlags(cmd *cobra.Command) (actionbox.Payload, error) {
	kind, _ := cmd.Flags().GetString("kind")
	job, _ := cmd.Flags().GetString("job")
	switch kind {
	case "submission":
		footage, _ := cmd.Flags().GetFloat64("footage")
		anchors, _ := cmd.Flags().GetInt("anchors")
		coils, _ := cmd.Flags().GetInt("coils")
		notes, _ := cmd.Flags().GetString("notes")
		completedOn, _ := cmd.Flags().GetString("completed-on")
		return actionbox.SubmissionPayload{
			Job:         job,
			Footage:     footage,
			AnchorCount: anchors,
			CoilCount:   coils,
			Notes:       notes,
			CompletedOn: completedOn,
		}, nil
	case "comment":
		text, _ := cmd.Flags().GetString("text")
		return actionbox.CommentPayload{Job: job, Text: text}, nil
	case "start":
		return actionbox.StartJobPayload{Job: job}, nil
	default:
		return nil, fmt.Errorf("unknown action kind %q", kind)
	}
}

func buildStore(ctx context.Context, cfg conf.StoreConfig) (actionbox.Store, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case "file", "":
		return stores.NewFileStore(cfg.Path), noop, nil
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		store := stores.NewSQLiteStore(db, stores.WithSQLiteTable(cfg.Table))
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure sqlite schema: %w", err)
		}
		return store, func() { _ = db.Close() }, nil
	case "postgres":
		db, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		store := stores.NewPostgresStore(db, stores.WithPostgresTable(cfg.Table))
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		return store, func() { _ = db.Close() }, nil
	case "mysql":
		db, err := sql.Open("mysql", cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		store := stores.NewMySQLStore(db, stores.WithMySQLTable(cfg.Table))
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure mysql schema: %w", err)
		}
		return store, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func buildClient(ctx context.Context, cfg conf.RemoteConfig) (actionbox.Client, error) {
	switch cfg.Transport {
	case "http", "":
		return remote.NewClient(cfg.BaseURL, remote.WithToken(cfg.Token)), nil
	case "sqs":
		return sqsremote.NewClient(ctx, cfg.Region, cfg.Endpoint, cfg.QueueURL)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func newLogger(cfg conf.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	return zcfg.Build()
}

func startMetricsServer(cfg conf.MetricsConfig, logger *zap.Logger) {
	if cfg.Addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", cfg.Addr))
		if err := http.ListenAndServe(cfg.Addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/menu_recon/alert"
	"bitbucket.org/mmdatafocus/menu_recon/appctx"
	"bitbucket.org/mmdatafocus/menu_recon/config"
	"bitbucket.org/mmdatafocus/menu_recon/models"
	"bitbucket.org/mmdatafocus/menu_recon/recon"
	"bitbucket.org/mmdatafocus/menu_recon/report"
	"bitbucket.org/mmdatafocus/menu_recon/utils"
)

const (
	exitOK = iota
	exitFailed
	exitUsage
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run wires the real databases, stores and sinks. The mock alert goes to stdout.
func run(args []string, stdout io.Writer) int {
	cfg, err := loadConfig(args)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	logg := config.NewLogger(cfg.LogLevel)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	runId := uuid.NewString()
	ctx := appctx.SetRunId(sigCtx, runId)
	logg = withRunId(logg, runId)

	logg.WithFields(logrus.Fields{
		"outlets":     cfg.Outlets,
		"format":      cfg.OutputFormat,
		"output_dir":  cfg.OutputDir,
		"dry_run":     cfg.DryRun,
		"fail_fast":   cfg.FailFast,
		"concurrency": cfg.Concurrency,
	}).Info("starting menu reconciliation")

	release, err := lockRun(ctx, cfg.Redis, logg)
	if err != nil {
		config.LogError(logg, "main", "lockRun", "redis", cfg.Redis.Address, err)
		return exitFailed
	}
	defer release()

	sourceDB, err := config.OpenSourceDB(ctx, cfg.Source, cfg.Pool, logg)
	if err != nil {
		config.LogError(logg, "main", "OpenSourceDB", "connect", cfg.Source.Host, err)
		return exitFailed
	}
	defer config.CloseDB(sourceDB)

	targetDB, err := config.OpenTargetDB(ctx, cfg.Target, cfg.Pool, logg)
	if err != nil {
		config.LogError(logg, "main", "OpenTargetDB", "connect", cfg.Target.Host, err)
		return exitFailed
	}
	defer config.CloseDB(targetDB)

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		config.LogError(logg, "main", "buildStore", "storage", cfg.Storage.Bucket, err)
		return exitFailed
	}
	defer closeStore()

	sink, closeSink, err := buildSink(ctx, cfg, logg, stdout)
	if err != nil {
		config.LogError(logg, "main", "buildSink", "alert", cfg.Alert.Topic, err)
		return exitFailed
	}
	defer closeSink()

	return execute(ctx, cfg, runDeps{
		source: models.NewSourceMenuRepo(sourceDB, cfg.QueryTimeout),
		target: models.NewTargetMenuRepo(targetDB, cfg.QueryTimeout),
		store:  store,
		sink:   sink,
	}, logg)
}

// loadConfig applies flags over the environment and validates the result.
func loadConfig(args []string) (*config.Config, error) {
	fs := flag.NewFlagSet("menu-recon", flag.ContinueOnError)
	outlets := fs.String("outlets", "", "Comma-separated outlet codes. Overrides RECON_OUTLETS.")
	outDir := fs.String("out-dir", "", "Directory for the per-outlet reports. Overrides RECON_OUTPUT_DIR.")
	format := fs.String("format", "", "Report format: csv or xlsx. Overrides RECON_OUTPUT_FORMAT.")
	dryRun := fs.Bool("dry-run", false, "Reconcile and alert without writing any report.")
	failFast := fs.Bool("fail-fast", false, "Stop at the first failed outlet.")
	concurrency := fs.Int("concurrency", 0, "Outlets reconciled at once. Overrides RECON_CONCURRENCY.")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := config.Load()
	if list := utils.SplitAndTrim(*outlets); len(list) > 0 {
		cfg.Outlets = list
	}
	if strings.TrimSpace(*outDir) != "" {
		cfg.OutputDir = strings.TrimSpace(*outDir)
	}
	if strings.TrimSpace(*format) != "" {
		cfg.OutputFormat = strings.ToLower(strings.TrimSpace(*format))
	}
	if *concurrency > 0 {
		cfg.Concurrency = *concurrency
	}
	cfg.DryRun = cfg.DryRun || *dryRun
	cfg.FailFast = cfg.FailFast || *failFast
	cfg.Outlets = utils.UniqueSlice(cfg.Outlets)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type runDeps struct {
	source recon.SourceFetcher
	target recon.TargetFetcher
	store  recon.Store
	sink   alert.Sink
}

// execute reconciles every outlet and sends the summary exactly once.
func execute(ctx context.Context, cfg *config.Config, d runDeps, logg *logrus.Logger) int {
	reconciler := recon.NewReconciler(d.source, d.target, d.store, logg, recon.Options{
		Concurrency: cfg.Concurrency,
		FailFast:    cfg.FailFast,
		DryRun:      cfg.DryRun,
	})

	rep, runErr := reconciler.Run(ctx, cfg.Outlets)

	// The alert goes out even when the run was cut short, so nobody waits
	// on a summary that never comes.
	if err := d.sink.Send(context.WithoutCancel(ctx), rep.Summary()); err != nil {
		config.LogError(logg, "main", "Send", "alert", nil, err)
		return exitFailed
	}

	if runErr != nil || len(rep.Failed()) > 0 {
		logg.WithField("failed", len(rep.Failed())).Warn("menu reconciliation finished with failures")
		return exitFailed
	}
	logg.Info("menu reconciliation finished")
	return exitOK
}

// withRunId makes every log line of the run carry run_id, including gorm's.
func withRunId(logg *logrus.Logger, runId string) *logrus.Logger {
	logg.AddHook(runIdHook(runId))
	return logg
}

type runIdHook string

func (h runIdHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h runIdHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["run_id"]; !ok {
		e.Data["run_id"] = string(h)
	}
	return nil
}

func lockRun(ctx context.Context, c config.RedisConfig, logg *logrus.Logger) (func(), error) {
	rdb, err := config.ConnectRedis(ctx, c)
	if err != nil {
		return nil, err
	}
	if rdb == nil {
		return func() {}, nil
	}
	lock, err := config.ObtainRunLock(ctx, rdb, c.LockKey, c.LockTTL)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	logg.WithField("lock_key", c.LockKey).Info("run lock obtained")
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logg.WithField("lock_key", c.LockKey).Warnf("release run lock: %v", err)
		}
		_ = rdb.Close()
	}, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (recon.Store, func(), error) {
	enc, err := report.NewEncoder(cfg.OutputFormat)
	if err != nil {
		return nil, nil, err
	}
	files := report.NewFileStore(cfg.OutputDir, enc)
	if cfg.Storage.Bucket == "" {
		return files, func() {}, nil
	}

	client, err := report.NewGCSClient(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: gcs client: %w", utils.ErrorConnection, err)
	}
	gcs := report.NewGCSStore(client, cfg.Storage.Bucket, cfg.Storage.Prefix, enc)
	if !cfg.DryRun {
		if err := gcs.CheckBucket(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
	}
	return report.NewTee(files, gcs), func() { _ = client.Close() }, nil
}

func buildSink(ctx context.Context, cfg *config.Config, logg *logrus.Logger, stdout io.Writer) (alert.Sink, func(), error) {
	sinks := alert.NewFanout(alert.NewStdoutSink(stdout), alert.NewLogSink(logg))
	if cfg.Alert.Topic == "" {
		return sinks, func() {}, nil
	}

	client, err := config.NewPubSubClient(ctx, cfg.Alert)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: pubsub client: %w", utils.ErrorAlert, err)
	}
	topic := client.Topic(cfg.Alert.Topic)
	if cfg.Alert.CreateTopic {
		topic, err = config.CreateTopicIfNotExists(ctx, client, cfg.Alert.Topic)
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("%w: %w", utils.ErrorAlert, err)
		}
	}
	pub := alert.NewPubSubSink(topic)
	sinks = append(sinks, pub)
	return sinks, func() {
		pub.Close()
		_ = client.Close()
	}, nil
}

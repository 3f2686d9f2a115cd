package recon

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"bitbucket.org/mmdatafocus/menu_recon/appctx"
	"bitbucket.org/mmdatafocus/menu_recon/config"
	"bitbucket.org/mmdatafocus/menu_recon/models"
)

var tracer = otel.Tracer("bitbucket.org/mmdatafocus/menu_recon/recon")

type SourceFetcher interface {
	FetchSourceMenus(ctx context.Context, outletCode string) ([]models.SourceMenu, error)
}

type TargetFetcher interface {
	FetchTargetMenus(ctx context.Context, outletCode string) ([]models.TargetMenu, error)
}

// Store persists the rows of one outlet and returns where they went.
type Store interface {
	Save(ctx context.Context, outletCode string, rows []models.ReconciliationRow) (string, error)
}

type Options struct {
	// Concurrency bounds how many outlets run at once. Values below 2 keep
	// the run strictly sequential in list order.
	Concurrency int
	// FailFast aborts the run at the first failed outlet. By default the
	// remaining outlets still run and failures are reported in the summary.
	FailFast bool
	// DryRun reconciles and counts but persists nothing.
	DryRun bool
}

type Reconciler struct {
	source SourceFetcher
	target TargetFetcher
	store  Store
	logg   *logrus.Logger
	opts   Options
	now    func() time.Time
}

func NewReconciler(source SourceFetcher, target TargetFetcher, store Store, logg *logrus.Logger, opts Options) *Reconciler {
	return &Reconciler{
		source: source,
		target: target,
		store:  store,
		logg:   logg,
		opts:   opts,
		now:    time.Now,
	}
}

type OutletResult struct {
	Summary    models.OutletSummary
	Rows       []models.ReconciliationRow
	Collisions []Collision
}

// ReconcileOutlet fetches both sides of one outlet, joins them and persists
// the rows. Nothing is persisted unless both fetches succeed.
func (r *Reconciler) ReconcileOutlet(ctx context.Context, outletCode string) (*OutletResult, error) {
	ctx = appctx.SetOutletCode(ctx, outletCode)
	ctx, span := tracer.Start(ctx, "recon.ReconcileOutlet", trace.WithAttributes(attribute.String("outlet.code", outletCode)))
	defer span.End()

	entry := r.entry(ctx)
	entry.Info("checking outlet")

	source, err := r.source.FetchSourceMenus(ctx, outletCode)
	if err != nil {
		return nil, r.fail(span, outletCode, StageFetchSource, err)
	}
	target, err := r.target.FetchTargetMenus(ctx, outletCode)
	if err != nil {
		return nil, r.fail(span, outletCode, StageFetchTarget, err)
	}

	joined := OuterJoin(source, target)
	for _, c := range joined.Collisions {
		entry.WithFields(logrus.Fields{
			"side":    c.Side,
			"key":     c.Key,
			"raw_ids": c.RawIds,
			"names":   c.Names,
		}).Warn("distinct menu rows collapsed into one key")
	}

	summary := models.OutletSummary{OutletCode: outletCode, Collisions: len(joined.Collisions)}
	summary.SourceOnly, summary.TargetOnly, summary.Matched = Count(joined.Rows)

	if !r.opts.DryRun && r.store != nil {
		path, err := r.store.Save(ctx, outletCode, joined.Rows)
		if err != nil {
			return nil, r.fail(span, outletCode, StagePersist, err)
		}
		summary.OutputPath = path
	}

	span.SetAttributes(
		attribute.Int("recon.source_only", summary.SourceOnly),
		attribute.Int("recon.target_only", summary.TargetOnly),
		attribute.Int("recon.matched", summary.Matched),
	)
	entry.WithFields(logrus.Fields{
		"source_rows": len(source),
		"target_rows": len(target),
		"source_only": summary.SourceOnly,
		"target_only": summary.TargetOnly,
		"matched":     summary.Matched,
		"collisions":  summary.Collisions,
		"output":      summary.OutputPath,
	}).Info("outlet reconciled")

	return &OutletResult{Summary: summary, Rows: joined.Rows, Collisions: joined.Collisions}, nil
}

type RunReport struct {
	RunId      string
	StartedAt  time.Time
	FinishedAt time.Time
	// Outlets is in the order the outlet codes were given.
	Outlets []models.OutletSummary
}

func (rr *RunReport) Failed() []models.OutletSummary {
	var out []models.OutletSummary
	for _, s := range rr.Outlets {
		if s.Failed() {
			out = append(out, s)
		}
	}
	return out
}

func (rr *RunReport) Summary() string {
	return FormatSummary(rr.Outlets)
}

// Run reconciles every outlet and returns the report in outlet order. The
// returned error is non-nil only when FailFast stopped the run; otherwise
// per-outlet failures live in the report.
func (r *Reconciler) Run(ctx context.Context, outletCodes []string) (*RunReport, error) {
	runId, _ := appctx.GetRunId(ctx)
	report := &RunReport{
		RunId:     runId,
		StartedAt: r.now(),
		Outlets:   make([]models.OutletSummary, len(outletCodes)),
	}

	limit := r.opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, code := range outletCodes {
		i, code := i, code
		if gctx.Err() != nil {
			report.Outlets[i] = skipped(code)
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				report.Outlets[i] = skipped(code)
				return nil
			}
			res, err := r.ReconcileOutlet(gctx, code)
			if err != nil {
				report.Outlets[i] = models.OutletSummary{OutletCode: code, Err: err}
				if r.opts.FailFast {
					return err
				}
				return nil
			}
			report.Outlets[i] = res.Summary
			return nil
		})
	}

	err := g.Wait()
	report.FinishedAt = r.now()
	r.entry(ctx).WithFields(logrus.Fields{
		"outlets":  len(outletCodes),
		"failed":   len(report.Failed()),
		"duration": report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("reconciliation run finished")
	return report, err
}

func skipped(outletCode string) models.OutletSummary {
	return models.OutletSummary{
		OutletCode: outletCode,
		Err:        &OutletError{Outlet: outletCode, Stage: StageStart, Err: ErrSkipped},
	}
}

func (r *Reconciler) fail(span trace.Span, outletCode, stage string, err error) error {
	oe := &OutletError{Outlet: outletCode, Stage: stage, Err: err}
	span.RecordError(oe)
	span.SetStatus(codes.Error, stage)
	config.LogError(r.logg, "recon", "ReconcileOutlet", stage, outletCode, err)
	return oe
}

func (r *Reconciler) entry(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{}
	if runId, ok := appctx.GetRunId(ctx); ok {
		fields["run_id"] = runId
	}
	if outlet, ok := appctx.GetOutletCode(ctx); ok {
		fields["outlet"] = outlet
	}
	return r.logg.WithFields(fields)
}

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/mmdatafocus/menu_recon/alert"
	"bitbucket.org/mmdatafocus/menu_recon/config"
	"bitbucket.org/mmdatafocus/menu_recon/models"
	"bitbucket.org/mmdatafocus/menu_recon/utils"
)

func ptr(s string) *string { return &s }

type catalog struct {
	source map[string][]models.SourceMenu
	target map[string][]models.TargetMenu
	errs   map[string]error
}

func (c *catalog) FetchSourceMenus(ctx context.Context, outletCode string) ([]models.SourceMenu, error) {
	if err := c.errs[outletCode]; err != nil {
		return nil, err
	}
	return c.source[outletCode], nil
}

func (c *catalog) FetchTargetMenus(ctx context.Context, outletCode string) ([]models.TargetMenu, error) {
	return c.target[outletCode], nil
}

func newCatalog() *catalog {
	return &catalog{
		source: map[string][]models.SourceMenu{
			"OUTLET_01": {{MenuId: "1", MenuName: ptr("Burger"), IsActive: true}, {MenuId: "2", MenuName: ptr("Fries"), IsActive: true}},
		},
		target: map[string][]models.TargetMenu{
			"OUTLET_01": {{MenuId: "1", MenuName: ptr("Hamburger")}, {MenuId: "3", MenuName: ptr("Soda")}},
		},
		errs: map[string]error{},
	}
}

type discardStore struct{}

func (discardStore) Save(ctx context.Context, outletCode string, rows []models.ReconciliationRow) (string, error) {
	return "mem://" + outletCode, nil
}

// countingSink records every Send and the state of the context it got.
type countingSink struct {
	mu       sync.Mutex
	next     alert.Sink
	err      error
	messages []string
	ctxErrs  []error
}

func (s *countingSink) Send(ctx context.Context, message string) error {
	s.mu.Lock()
	s.messages = append(s.messages, message)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.next != nil {
		return s.next.Send(ctx, message)
	}
	return nil
}

func quietLogger() *logrus.Logger {
	logg := logrus.New()
	logg.SetOutput(io.Discard)
	return logg
}

func testConfig(outlets ...string) *config.Config {
	return &config.Config{Outlets: outlets, Concurrency: 1}
}

func TestLoadConfig_InvalidIsUsageError(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"zero concurrency", map[string]string{"RECON_CONCURRENCY": "0"}, nil},
		{"malformed port", map[string]string{"TGT_DB_PORT": "54x2"}, nil},
		{"unknown format flag", nil, []string{"-format", "json"}},
		{"unknown flag", nil, []string{"-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			var stdout bytes.Buffer
			assert.Equal(t, exitUsage, run(tt.args, &stdout))
			assert.Empty(t, stdout.String(), "no alert without a run")
		})
	}
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("RECON_OUTLETS", "OUTLET_09")
	t.Setenv("RECON_CONCURRENCY", "")

	cfg, err := loadConfig([]string{"-outlets", "A1, B2,A1", "-format", "XLSX", "-fail-fast", "-concurrency", "3", "-out-dir", "/tmp/recon"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2"}, cfg.Outlets)
	assert.Equal(t, config.FormatXLSX, cfg.OutputFormat)
	assert.True(t, cfg.FailFast)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, "/tmp/recon", cfg.OutputDir)
}

func TestExecute_SuccessSendsOneAlert(t *testing.T) {
	var stdout bytes.Buffer
	sink := &countingSink{next: alert.NewStdoutSink(&stdout)}

	code := execute(context.Background(), testConfig("OUTLET_01"), runDeps{
		source: newCatalog(), target: newCatalog(), store: discardStore{}, sink: sink,
	}, quietLogger())

	assert.Equal(t, exitOK, code)
	require.Len(t, sink.messages, 1)
	assert.Equal(t,
		"\n=== MOCK ALERT ===\n"+
			"📊 MENU RECONCILIATION SUMMARY\n\n📍 OUTLET_01\n- Source only: 1\n- Target only: 1\n"+
			"\n==================\n\n",
		stdout.String())
}

func TestExecute_FailFastStillAlertsOnce(t *testing.T) {
	c := newCatalog()
	c.errs["OUTLET_02"] = fmt.Errorf("%w: table missing", utils.ErrorQuery)
	cfg := testConfig("OUTLET_01", "OUTLET_02", "OUTLET_03")
	cfg.FailFast = true

	var stdout bytes.Buffer
	sink := &countingSink{next: alert.NewStdoutSink(&stdout)}
	code := execute(context.Background(), cfg, runDeps{source: c, target: c, store: discardStore{}, sink: sink}, quietLogger())

	assert.Equal(t, exitFailed, code)
	require.Len(t, sink.messages, 1)
	out := stdout.String()
	assert.Equal(t, 1, strings.Count(out, "=== MOCK ALERT ==="))
	assert.Contains(t, out, "- Failed (fetch source): query error: table missing\n")
	assert.Contains(t, out, "\n📍 OUTLET_03\n- Failed (start): skipped\n")
	assert.Contains(t, out, "⚠️ 2 of 3 outlets failed")
}

func TestExecute_ContinuesAndFailsExit(t *testing.T) {
	c := newCatalog()
	c.errs["OUTLET_02"] = fmt.Errorf("%w: dial tcp: i/o timeout", utils.ErrorConnection)
	sink := &countingSink{}

	code := execute(context.Background(), testConfig("OUTLET_01", "OUTLET_02"), runDeps{
		source: c, target: c, store: discardStore{}, sink: sink,
	}, quietLogger())

	assert.Equal(t, exitFailed, code)
	require.Len(t, sink.messages, 1)
	assert.Contains(t, sink.messages[0], "\n📍 OUTLET_01\n- Source only: 1\n")
}

func TestExecute_CanceledRunStillAlerts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &countingSink{}

	code := execute(ctx, testConfig("OUTLET_01"), runDeps{
		source: newCatalog(), target: newCatalog(), store: discardStore{}, sink: sink,
	}, quietLogger())

	assert.Equal(t, exitFailed, code)
	require.Len(t, sink.messages, 1)
	assert.NoError(t, sink.ctxErrs[0], "alert context is detached from cancellation")
	assert.Contains(t, sink.messages[0], "- Failed (start): skipped\n")
}

func TestExecute_AlertFailureFailsExit(t *testing.T) {
	sink := &countingSink{err: fmt.Errorf("%w: %w", utils.ErrorAlert, errors.New("topic gone"))}

	code := execute(context.Background(), testConfig("OUTLET_01"), runDeps{
		source: newCatalog(), target: newCatalog(), store: discardStore{}, sink: sink,
	}, quietLogger())

	assert.Equal(t, exitFailed, code)
	assert.Len(t, sink.messages, 1)
}

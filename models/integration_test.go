package models

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"bitbucket.org/mmdatafocus/menu_recon/config"
)

// Runs against the databases named in the environment (.env included).
// INTEGRATION_TESTS=1 go test ./models -run Integration
func TestIntegration_FetchBothCatalogs(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires both databases)")
	}
	ctx := context.Background()
	cfg := config.Load()
	logg := logrus.New()

	src, err := config.OpenSourceDB(ctx, cfg.Source, cfg.Pool, logg)
	require.NoError(t, err)
	defer config.CloseDB(src)
	tgt, err := config.OpenTargetDB(ctx, cfg.Target, cfg.Pool, logg)
	require.NoError(t, err)
	defer config.CloseDB(tgt)

	outlet := cfg.Outlets[0]
	sourceRows, err := NewSourceMenuRepo(src, cfg.QueryTimeout).FetchSourceMenus(ctx, outlet)
	require.NoError(t, err)
	targetRows, err := NewTargetMenuRepo(tgt, cfg.QueryTimeout).FetchTargetMenus(ctx, outlet)
	require.NoError(t, err)
	t.Logf("outlet %s: %d source rows, %d target rows", outlet, len(sourceRows), len(targetRows))
}

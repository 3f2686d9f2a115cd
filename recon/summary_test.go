package recon

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"bitbucket.org/mmdatafocus/menu_recon/models"
)

func TestFormatSummary(t *testing.T) {
	got := FormatSummary([]models.OutletSummary{
		{OutletCode: "OUTLET_01", SourceOnly: 1, TargetOnly: 1, Matched: 1},
		{OutletCode: "OUTLET_02", Err: &OutletError{Outlet: "OUTLET_02", Stage: StageFetchSource, Err: errors.New("boom")}},
		{OutletCode: "OUTLET_03", Collisions: 2},
	})

	want := "📊 MENU RECONCILIATION SUMMARY\n" +
		"\n📍 OUTLET_01\n- Source only: 1\n- Target only: 1\n" +
		"\n📍 OUTLET_02\n- Failed (fetch source): boom\n" +
		"\n📍 OUTLET_03\n- Source only: 0\n- Target only: 0\n- Key collisions: 2\n" +
		"\n⚠️ 1 of 3 outlets failed\n"
	assert.Equal(t, want, got)
}

func TestFormatSummary_NoOutlets(t *testing.T) {
	assert.Equal(t, "📊 MENU RECONCILIATION SUMMARY\n", FormatSummary(nil))
}

func TestFormatSummary_PlainError(t *testing.T) {
	got := FormatSummary([]models.OutletSummary{{OutletCode: "OUTLET_09", Err: errors.New("lost")}})
	assert.Contains(t, got, "\n📍 OUTLET_09\n- Failed: lost\n")
}

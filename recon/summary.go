package recon

import (
	"errors"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/menu_recon/models"
)

const summaryTitle = "📊 MENU RECONCILIATION SUMMARY\n"

// FormatSummary renders the alert text. Sections follow the order of summaries.
func FormatSummary(summaries []models.OutletSummary) string {
	var b strings.Builder
	b.WriteString(summaryTitle)
	for _, s := range summaries {
		fmt.Fprintf(&b, "\n📍 %s\n", s.OutletCode)
		if s.Failed() {
			var oe *OutletError
			if errors.As(s.Err, &oe) {
				fmt.Fprintf(&b, "- Failed (%s): %v\n", oe.Stage, oe.Err)
			} else {
				fmt.Fprintf(&b, "- Failed: %v\n", s.Err)
			}
			continue
		}
		fmt.Fprintf(&b, "- Source only: %d\n", s.SourceOnly)
		fmt.Fprintf(&b, "- Target only: %d\n", s.TargetOnly)
		if s.Collisions > 0 {
			fmt.Fprintf(&b, "- Key collisions: %d\n", s.Collisions)
		}
	}

	if failed := countFailed(summaries); failed > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d of %d outlets failed\n", failed, len(summaries))
	}
	return b.String()
}

func countFailed(summaries []models.OutletSummary) int {
	n := 0
	for _, s := range summaries {
		if s.Failed() {
			n++
		}
	}
	return n
}

package models

// SourceMenu is one active menu row of an outlet in the source catalog.
type SourceMenu struct {
	MenuId   string  `gorm:"column:menu_id" json:"menu_id"`
	MenuName *string `gorm:"column:menu_name" json:"menu_name"`
	IsActive bool    `gorm:"column:is_active" json:"is_active"`
}

// TargetMenu is one active menu row of an outlet in the target catalog.
// The target schema calls these columns menu_item_id / menu_item_name.
type TargetMenu struct {
	MenuId   string  `gorm:"column:menu_id" json:"menu_id"`
	MenuName *string `gorm:"column:menu_name" json:"menu_name"`
}

type ReconciliationStatus string

const (
	ReconciliationStatusMatched    ReconciliationStatus = "matched"
	ReconciliationStatusSourceOnly ReconciliationStatus = "source_only"
	ReconciliationStatusTargetOnly ReconciliationStatus = "target_only"
)

func (s ReconciliationStatus) IsValid() bool {
	switch s {
	case ReconciliationStatusMatched, ReconciliationStatusSourceOnly, ReconciliationStatusTargetOnly:
		return true
	}
	return false
}

// ReconciliationRow is the outcome for one normalized menu id.
type ReconciliationRow struct {
	MenuId         string               `json:"menu_id"`
	SourceMenuName *string              `json:"source_menu_name"`
	TargetMenuName *string              `json:"target_menu_name"`
	Status         ReconciliationStatus `json:"status"`
}

// OutletSummary holds the counts of one outlet. Err is set when the outlet
// could not be reconciled; the counts are then zero.
type OutletSummary struct {
	OutletCode string `json:"outlet_code"`
	SourceOnly int    `json:"source_only_count"`
	TargetOnly int    `json:"target_only_count"`
	Matched    int    `json:"matched_count"`
	Collisions int    `json:"collision_count"`
	OutputPath string `json:"output_path,omitempty"`
	Err        error  `json:"-"`
}

func (s OutletSummary) Failed() bool {
	return s.Err != nil
}

// Total is the number of distinct normalized keys of the outlet.
func (s OutletSummary) Total() int {
	return s.SourceOnly + s.TargetOnly + s.Matched
}

package recon

import (
	"slices"

	"bitbucket.org/mmdatafocus/menu_recon/models"
)

type Side string

const (
	SideSource Side = "source"
	SideTarget Side = "target"
)

// Collision reports a normalized key that more than one distinct row of one
// side collapsed into. The first row in fetch order supplies the name.
type Collision struct {
	Side   Side     `json:"side"`
	Key    string   `json:"key"`
	RawIds []string `json:"raw_ids"`
	Names  []string `json:"names"`
}

type JoinResult struct {
	Rows       []models.ReconciliationRow
	Collisions []Collision
}

type keyEntry struct {
	name     *string
	rawIds   []string
	names    []string
	variants map[variant]struct{}
}

type variant struct {
	rawId string
	name  string
	null  bool
}

type keyIndex struct {
	side    Side
	entries map[string]*keyEntry
	order   []string
}

func newKeyIndex(side Side, size int) *keyIndex {
	return &keyIndex{side: side, entries: make(map[string]*keyEntry, size)}
}

func (ix *keyIndex) add(rawId string, name *string) {
	key := NormalizeKey(rawId)
	v := variant{rawId: rawId, null: name == nil}
	if name != nil {
		v.name = *name
	}

	e, ok := ix.entries[key]
	if !ok {
		e = &keyEntry{name: name, variants: map[variant]struct{}{}}
		ix.entries[key] = e
		ix.order = append(ix.order, key)
	}
	if _, seen := e.variants[v]; seen {
		return
	}
	e.variants[v] = struct{}{}
	if !slices.Contains(e.rawIds, rawId) {
		e.rawIds = append(e.rawIds, rawId)
	}
	if name != nil && !slices.Contains(e.names, *name) {
		e.names = append(e.names, *name)
	}
}

func (ix *keyIndex) collisions() []Collision {
	var out []Collision
	for _, key := range ix.order {
		e := ix.entries[key]
		if len(e.variants) < 2 {
			continue
		}
		out = append(out, Collision{Side: ix.side, Key: key, RawIds: e.rawIds, Names: e.names})
	}
	return out
}

// OuterJoin matches source and target menus on their normalized id. Every
// normalized key of either side yields exactly one row, sorted by CompareKeys.
func OuterJoin(source []models.SourceMenu, target []models.TargetMenu) JoinResult {
	src := newKeyIndex(SideSource, len(source))
	for _, m := range source {
		src.add(m.MenuId, m.MenuName)
	}
	tgt := newKeyIndex(SideTarget, len(target))
	for _, m := range target {
		tgt.add(m.MenuId, m.MenuName)
	}

	keys := make([]string, 0, len(src.entries)+len(tgt.entries))
	keys = append(keys, src.order...)
	for _, key := range tgt.order {
		if _, ok := src.entries[key]; !ok {
			keys = append(keys, key)
		}
	}
	slices.SortFunc(keys, CompareKeys)

	rows := make([]models.ReconciliationRow, 0, len(keys))
	for _, key := range keys {
		s, inSource := src.entries[key]
		t, inTarget := tgt.entries[key]
		row := models.ReconciliationRow{MenuId: key}
		switch {
		case inSource && inTarget:
			row.SourceMenuName = s.name
			row.TargetMenuName = t.name
			row.Status = models.ReconciliationStatusMatched
		case inSource:
			row.SourceMenuName = s.name
			row.Status = models.ReconciliationStatusSourceOnly
		default:
			row.TargetMenuName = t.name
			row.Status = models.ReconciliationStatusTargetOnly
		}
		rows = append(rows, row)
	}

	return JoinResult{
		Rows:       rows,
		Collisions: append(src.collisions(), tgt.collisions()...),
	}
}

// Count tallies the statuses of rows.
func Count(rows []models.ReconciliationRow) (sourceOnly, targetOnly, matched int) {
	for _, r := range rows {
		switch r.Status {
		case models.ReconciliationStatusSourceOnly:
			sourceOnly++
		case models.ReconciliationStatusTargetOnly:
			targetOnly++
		case models.ReconciliationStatusMatched:
			matched++
		}
	}
	return sourceOnly, targetOnly, matched
}

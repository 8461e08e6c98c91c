package tables

import (
	"fmt"
	"log"

	"modernc.org/sqlite/vtab"
)

// plan numbers handed to Filter
const (
	idxUnplanned = 0
	idxParentKey = 2
)

const (
	planCost = 100000
	// unusableCost steers the engine to a join order where the parent key is known
	unusableCost = 1e99
)

// planner accepts only scans keyed by an equality constraint on the hidden parent column.
type planner struct {
	table  string
	parent int
}

func (p planner) bestIndex(info *vtab.IndexInfo) error {
	key, seen := -1, false
	other, otherOp := false, vtab.OpUnknown
	for i, c := range info.Constraints {
		if c.Column != p.parent {
			continue
		}
		seen = true
		switch {
		case !c.Usable:
		case c.Op != vtab.OpEQ:
			other, otherOp = true, c.Op
		case key < 0:
			key = i
		}
	}

	switch {
	case key >= 0:
		info.Constraints[key].Omit = true
		info.Constraints[key].ArgIndex = 0
		info.EstimatedCost = planCost
		info.EstimatedRows = planCost
		info.IdxNum = idxParentKey
		log.Printf("[DEBUG] %s: planned on constraint %d", p.table, key)
		return nil
	case other:
		return fmt.Errorf("%s: operator %d on parent column: %w", p.table, otherOp, ErrPlan)
	case seen:
		// parent key comes from a table the engine has not placed before this one yet
		info.EstimatedCost = unusableCost
		info.EstimatedRows = planCost
		info.IdxNum = idxUnplanned
		return nil
	default:
		return fmt.Errorf("%s: %w", p.table, ErrPlan)
	}
}

// checkPlan validates Filter input against the plan bestIndex produced
func checkPlan(table string, idxNum int, vals []vtab.Value) error {
	if idxNum != idxParentKey || len(vals) != 1 {
		return fmt.Errorf("%s: plan %d with %d args: %w", table, idxNum, len(vals), ErrPlan)
	}
	return nil
}

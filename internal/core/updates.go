package core

import (
	"strconv"

	"github.com/flotilla-dev/flotilla/internal/metrics"
	"github.com/flotilla-dev/flotilla/internal/types"
)

// newUpdate starts an in-progress update record for an action.
func newUpdate(target types.UpdateTarget, op types.Operation, operator string) types.Update {
	return types.Update{
		Target:    target,
		Operation: op,
		Status:    types.UpdateInProgress,
		Operator:  operator,
		StartTs:   types.Now(),
	}
}

// finalizeUpdate closes the record and persists its final form. The
// action already happened; a persistence failure here is logged, not
// surfaced to the caller.
func (s *State) finalizeUpdate(u *types.Update) {
	u.Finalize()
	metrics.UpdatesTotal.WithLabelValues(string(u.Operation), strconv.FormatBool(u.Success)).Inc()
	if err := s.Store.ReplaceUpdate(u); err != nil {
		s.Log.Error("persist finalized update", "update", u.ID, "operation", u.Operation, "err", err)
	}
}

// recordWrite persists a single-log, already-complete update for a
// CRUD operation.
func (s *State) recordWrite(target types.UpdateTarget, op types.Operation, operator, detail string) {
	u := newUpdate(target, op, operator)
	u.PushSimpleLog(string(op), detail)
	u.Finalize()
	metrics.UpdatesTotal.WithLabelValues(string(u.Operation), strconv.FormatBool(u.Success)).Inc()
	if err := s.Store.CreateUpdate(&u); err != nil {
		s.Log.Error("persist write update", "operation", op, "err", err)
	}
}

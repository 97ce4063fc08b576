package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/database"
	"github.com/dhwanijain-dev/cataclysmicAnomalies198/pkg/models"
)

var errNoScope = errors.New("no database scope in context")

func scopeFrom(ctx context.Context) (*database.Scope, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, errNoScope
	}
	return scope, nil
}

// where accumulates SQL conditions with positional arguments.
type where struct {
	conditions []string
	args       []any
}

// add appends a condition; each "?" in cond is replaced by the next $n placeholder.
func (w *where) add(cond string, args ...any) {
	for _, a := range args {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conditions = append(w.conditions, cond)
}

// devices restricts column to the scope's devices. An unscoped DeviceScope adds nothing.
func (w *where) devices(column string, scope models.DeviceScope) {
	if scope.All {
		return
	}
	w.add(column+" = ANY(?)", scope.IDs)
}

// dateRange restricts column to the filter's date range.
func (w *where) dateRange(column string, filters *models.Filters) {
	if filters == nil {
		return
	}
	if filters.StartDate != nil {
		w.add(column+" >= ?", *filters.StartDate)
	}
	if filters.EndDate != nil {
		w.add(column+" <= ?", *filters.EndDate)
	}
}

// limit appends a LIMIT placeholder and returns it.
func (w *where) limit(n int) string {
	w.args = append(w.args, n)
	return fmt.Sprintf("LIMIT $%d", len(w.args))
}

func (w *where) String() string {
	if len(w.conditions) == 0 {
		return "TRUE"
	}
	return strings.Join(w.conditions, " AND ")
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

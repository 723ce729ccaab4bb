package vectorstore

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hrygo/curio/store"
)

// whereBuilder accumulates WHERE clauses with positional arguments.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(clause string, args ...any) {
	n := len(w.args)
	for i := range args {
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", n+i+1), 1)
	}
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *whereBuilder) where() string {
	if len(w.clauses) == 0 {
		return "TRUE"
	}
	return strings.Join(w.clauses, " AND ")
}

// buildSearchWhere composes the WHERE clause for a collection search.
//
// The visibility clause is appended after all caller filters with a logical
// AND, so caller-supplied filters can narrow but never widen past it. This
// holds even when filters is nil.
func buildSearchWhere(collection store.ContentType, filters *SearchFilters, enforceVisibility bool) *whereBuilder {
	w := &whereBuilder{}
	w.add("i.type = ?", string(collection))

	if filters != nil {
		if filters.OwnerID != "" {
			w.add("i.owner_id = ?", filters.OwnerID)
		}
		if len(filters.ExcludeItemIDs) > 0 {
			w.add("NOT (i.id = ANY(?))", pq.Array(filters.ExcludeItemIDs))
		}
		if len(filters.Tags) > 0 {
			w.add("i.tags && ?", pq.Array(filters.Tags))
		}
		if filters.CreatedAfter != nil {
			w.add("i.created_ts > ?", *filters.CreatedAfter)
		}
	}

	if enforceVisibility && collection.UserGenerated() {
		w.add("NOT i.is_private AND NOT i.is_archived")
	}

	return w
}

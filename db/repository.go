package db

import (
	"context"

	"github.com/world-in-progress/docrepo/db/query"
)

// SoftDeleteField holds the deletion time of a soft-deleted record.
const SoftDeleteField = "deleted_at"

// Repository is the CRUD contract shared by every storage driver.
// Records whose SoftDeleteField holds a date are hidden from reads unless
// includeDeleted is set, and are never removed physically.
type Repository[T any] interface {
	Create(ctx context.Context, data map[string]any) (string, error)
	Get(ctx context.Context, id string, includeDeleted bool) (*T, error)
	Query(ctx context.Context, opts query.Options, includeDeleted bool) ([]*T, error)
	Update(ctx context.Context, id string, partial map[string]any) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// SoftDeletePredicate matches live records: SoftDeleteField is missing, null
// or anything but a date or timestamp.
func SoftDeletePredicate() map[string]any {
	return map[string]any{
		SoftDeleteField: map[string]any{
			"$not": map[string]any{"$type": []any{"date", "timestamp"}},
		},
	}
}

// Scope returns a copy of filter restricted to live records unless includeDeleted is set.
func Scope(filter map[string]any, includeDeleted bool) map[string]any {
	scoped := make(map[string]any, len(filter)+1)
	for k, v := range filter {
		scoped[k] = v
	}
	if includeDeleted {
		return scoped
	}

	live := SoftDeletePredicate()
	if _, constrained := scoped[SoftDeleteField]; constrained {
		return map[string]any{"$and": []any{scoped, live}}
	}
	scoped[SoftDeleteField] = live[SoftDeleteField]
	return scoped
}

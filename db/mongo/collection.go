package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/world-in-progress/docrepo/core/logger"
	"github.com/world-in-progress/docrepo/db"
	"github.com/world-in-progress/docrepo/db/query"
	"github.com/world-in-progress/docrepo/db/schema"
	"github.com/world-in-progress/docrepo/db/value"
	repoerrors "github.com/world-in-progress/docrepo/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CollectionRepository works on raw documents: reads are normalized with
// value.TransformRecord and handed to the schema, writes go through the
// schema's Dump when it has one.
type CollectionRepository[T any] struct {
	base
	schema schema.Loader[T]
}

var _ db.Repository[struct{}] = (*CollectionRepository[struct{}])(nil)

func NewCollectionRepository[T any](cfg Config[T]) (*CollectionRepository[T], error) {
	b, err := newBase(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Schema == nil {
		return nil, repoerrors.NewConfigError("Schema", "the collection driver needs a schema")
	}
	return &CollectionRepository[T]{base: b, schema: cfg.Schema}, nil
}

func (r *CollectionRepository[T]) Create(ctx context.Context, data map[string]any) (string, error) {
	record := data
	if dumper, ok := r.schema.(schema.Dumper); ok {
		dumped, err := dumper.Dump(data)
		if err != nil {
			return "", err
		}
		record = dumped
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.writes.InsertOne(ctx, bson.M(record))
	if err != nil {
		logger.Error("Insert into %s failed: %v", r.name, err)
		return "", err
	}
	id := insertedID(res.InsertedID)
	logger.Debug("Inserted %s into %s", id, r.name)
	return id, nil
}

func (r *CollectionRepository[T]) Get(ctx context.Context, id string, includeDeleted bool) (*T, error) {
	filter, err := r.idFilter(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var record bson.M
	err = r.coll.FindOne(ctx, db.Scope(filter, includeDeleted)).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.notFound(id)
	}
	if err != nil {
		logger.Error("Query on %s failed: %v", r.name, err)
		return nil, err
	}
	return r.schema.Load(value.TransformRecord(record))
}

func (r *CollectionRepository[T]) Query(ctx context.Context, opts query.Options, includeDeleted bool) ([]*T, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	filter := db.Scope(opts.Filter, includeDeleted)
	logger.Debug("Query on %s with filter %v", r.name, filter)

	cursor, err := r.coll.Find(ctx, filter, r.findOptions(opts))
	if err != nil {
		logger.Error("Query on %s failed: %v", r.name, err)
		return nil, err
	}
	defer cursor.Close(ctx)

	results := make([]*T, 0)
	for cursor.Next(ctx) {
		var record bson.M
		if err := cursor.Decode(&record); err != nil {
			logger.Error("Failed to decode %s record: %v", r.name, err)
			return nil, err
		}
		obj, err := r.schema.Load(value.TransformRecord(record))
		if err != nil {
			return nil, err
		}
		results = append(results, obj)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Update sets the given fields on the record, deleted or not, and bumps
// updated_at. Setting deleted_at to nil restores a deleted record.
func (r *CollectionRepository[T]) Update(ctx context.Context, id string, partial map[string]any) (bool, error) {
	set := r.setFields(partial)
	stampUpdated(set, time.Now())
	if dumper, ok := r.schema.(schema.PartialDumper); ok && len(set) > 0 {
		dumped, err := dumper.DumpPartial(set)
		if err != nil {
			return false, err
		}
		set = dumped
	}
	return r.setOne(ctx, id, set, false)
}

// Delete marks the record deleted. Deleting twice reports false the second time.
func (r *CollectionRepository[T]) Delete(ctx context.Context, id string) (bool, error) {
	now := primitive.Timestamp{T: uint32(time.Now().UTC().Unix())}
	return r.setOne(ctx, id, bson.M{db.SoftDeleteField: now, "updated_at": now}, true)
}

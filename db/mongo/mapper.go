package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/world-in-progress/docrepo/core/logger"
	"github.com/world-in-progress/docrepo/db"
	"github.com/world-in-progress/docrepo/db/query"
	"github.com/world-in-progress/docrepo/db/schema"
	"github.com/world-in-progress/docrepo/db/value"
	repoerrors "github.com/world-in-progress/docrepo/errors"
	"github.com/world-in-progress/docrepo/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MapperRepository stores T itself through the bson struct codec. *T must
// implement model.Document. Dates are stored as BSON dates. Reads are
// normalized with value.TransformRecord and built by the schema, like the
// collection driver's.
type MapperRepository[T any] struct {
	base
	loader schema.Loader[T]
}

var _ db.Repository[struct{ model.Base }] = (*MapperRepository[struct{ model.Base }])(nil)

func NewMapperRepository[T any](cfg Config[T]) (*MapperRepository[T], error) {
	if _, ok := any(new(T)).(model.Document); !ok {
		return nil, repoerrors.NewConfigError("Model", fmt.Sprintf("%T does not implement model.Document", new(T)))
	}
	b, err := newBase(cfg)
	if err != nil {
		return nil, err
	}

	loader := cfg.Schema
	if loader == nil {
		loader = schema.New[T]()
	}
	return &MapperRepository[T]{base: b, loader: loader}, nil
}

func document[T any](m *T) model.Document {
	return any(m).(model.Document)
}

// Create builds a T from data, saves it and returns its id.
func (r *MapperRepository[T]) Create(ctx context.Context, data map[string]any) (string, error) {
	m, err := r.CreateDocument(ctx, data)
	if err != nil {
		return "", err
	}
	return document(m).GetID(), nil
}

// CreateDocument builds a T from data and saves it.
func (r *MapperRepository[T]) CreateDocument(ctx context.Context, data map[string]any) (*T, error) {
	m, err := r.loader.Load(data)
	if err != nil {
		return nil, err
	}
	return r.Save(ctx, m)
}

// Save stamps m and writes it. updated_at is always set to now and created_at
// only when it is zero. Documents without an id are inserted and get one
// assigned; the others replace the stored version or are inserted.
func (r *MapperRepository[T]) Save(ctx context.Context, m *T) (*T, error) {
	doc := document(m)
	doc.Touch(time.Now())

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if doc.GetID() == "" {
		res, err := r.writes.InsertOne(ctx, m)
		if err != nil {
			logger.Error("Insert into %s failed: %v", r.name, err)
			return nil, err
		}
		doc.SetID(insertedID(res.InsertedID))
		logger.Debug("Inserted %s into %s", doc.GetID(), r.name)
		return m, nil
	}

	filter := bson.M{value.NativeIDField: model.ID(doc.GetID())}
	if _, err := r.writes.ReplaceOne(ctx, filter, m, options.Replace().SetUpsert(true)); err != nil {
		logger.Error("Save of %s %s failed: %v", r.name, doc.GetID(), err)
		return nil, err
	}
	return m, nil
}

func (r *MapperRepository[T]) Get(ctx context.Context, id string, includeDeleted bool) (*T, error) {
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
	return r.loader.Load(value.TransformRecord(record))
}

func (r *MapperRepository[T]) Query(ctx context.Context, opts query.Options, includeDeleted bool) ([]*T, error) {
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
			logger.Error("Failed to decode %s document: %v", r.name, err)
			return nil, err
		}
		m, err := r.loader.Load(value.TransformRecord(record))
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Update sets the given fields on the document, deleted or not, and bumps
// updated_at. Setting deleted_at to nil restores a deleted document.
func (r *MapperRepository[T]) Update(ctx context.Context, id string, partial map[string]any) (bool, error) {
	set := r.setFields(partial)
	stampUpdated(set, time.Now())
	return r.setOne(ctx, id, set, false)
}

func (r *MapperRepository[T]) Delete(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC()
	return r.setOne(ctx, id, bson.M{db.SoftDeleteField: now, "updated_at": now}, true)
}

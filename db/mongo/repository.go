package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/world-in-progress/docrepo/config"
	"github.com/world-in-progress/docrepo/core/logger"
	"github.com/world-in-progress/docrepo/db"
	"github.com/world-in-progress/docrepo/db/query"
	"github.com/world-in-progress/docrepo/db/schema"
	"github.com/world-in-progress/docrepo/db/value"
	"github.com/world-in-progress/docrepo/errors"
	"github.com/world-in-progress/docrepo/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// Database is the connection handle repositories borrow. *mongo.Database satisfies it.
type Database interface {
	Collection(name string, opts ...*options.CollectionOptions) *mongo.Collection
}

// Config describes a repository. Model and Database are always required;
// Schema is required by the collection driver.
type Config[T any] struct {
	Model    model.Descriptor
	Database Database
	Schema   schema.Loader[T]

	// IDAttr is the field ids are matched against. "_id" (the default) expects hex object ids.
	IDAttr string
	// Driver is config.DriverCollection (the default) or config.DriverMapper.
	// Both bump updated_at on Update and Delete unless the caller sets it. The
	// mapper also stamps created_at and updated_at when a document is saved;
	// the collection driver stores those fields as given on Create.
	Driver string
	// Timeout bounds every call when positive.
	Timeout time.Duration
	// WriteConcern applies to inserts. Defaults to majority with journaling.
	WriteConcern *writeconcern.WriteConcern
}

// WithSettings fills the unset optional fields from loaded configuration.
func (c Config[T]) WithSettings(repo config.RepositoryConfig, mc config.MongoConfig) Config[T] {
	if c.IDAttr == "" {
		c.IDAttr = repo.IDAttr
	}
	if c.Driver == "" {
		c.Driver = repo.Driver
	}
	if c.Timeout == 0 {
		c.Timeout = mc.Timeout
	}
	if c.WriteConcern == nil {
		c.WriteConcern = WriteConcern(mc.WriteConcern, mc.Journal)
	}
	return c
}

// New returns the repository variant named by cfg.Driver.
func New[T any](cfg Config[T]) (db.Repository[T], error) {
	switch cfg.Driver {
	case "", config.DriverCollection:
		return NewCollectionRepository(cfg)
	case config.DriverMapper:
		return NewMapperRepository(cfg)
	default:
		return nil, errors.NewConfigError("Driver", fmt.Sprintf("unknown driver %q", cfg.Driver))
	}
}

// base holds what both variants share. Nothing in it changes after construction.
type base struct {
	coll    *mongo.Collection
	writes  *mongo.Collection
	name    string
	idAttr  string
	timeout time.Duration
}

func newBase[T any](cfg Config[T]) (base, error) {
	if cfg.Model == nil {
		return base{}, errors.NewConfigError("Model", "a model descriptor is required")
	}
	if cfg.Database == nil {
		return base{}, errors.NewConfigError("Database", "a database handle is required")
	}
	name := cfg.Model.CollectionName()
	if name == "" {
		return base{}, errors.NewConfigError("Model", "the collection name is empty")
	}
	if cfg.Timeout < 0 {
		return base{}, errors.NewConfigError("Timeout", "must not be negative")
	}

	idAttr := cfg.IDAttr
	if idAttr == "" {
		idAttr = value.NativeIDField
	}
	wc := cfg.WriteConcern
	if wc == nil {
		wc = WriteConcern("majority", true)
	}

	coll := cfg.Database.Collection(name, options.Collection().SetRegistry(NewRegistry()))
	if coll == nil {
		return base{}, errors.NewConfigError("Database", fmt.Sprintf("no collection handle for %s", name))
	}
	writes, err := coll.Clone(options.Collection().SetWriteConcern(wc))
	if err != nil {
		return base{}, err
	}

	return base{
		coll:    coll,
		writes:  writes,
		name:    name,
		idAttr:  idAttr,
		timeout: cfg.Timeout,
	}, nil
}

func (b *base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

// idFilter matches one record by the configured id attribute.
func (b *base) idFilter(id string) (map[string]any, error) {
	if b.idAttr != value.NativeIDField {
		return map[string]any{b.idAttr: id}, nil
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.NewInvalidValueKindError(value.KindIdentifier.String(), id, err.Error())
	}
	return map[string]any{value.NativeIDField: oid}, nil
}

func (b *base) notFound(id string) error {
	return errors.NewObjectNotFoundError(b.name, b.idAttr, id)
}

// setFields is the $set document for a partial update. Identifier keys are dropped.
func (b *base) setFields(partial map[string]any) bson.M {
	set := make(bson.M, len(partial))
	for k, v := range partial {
		switch k {
		case value.NativeIDField, value.PublicIDField, b.idAttr:
			continue
		}
		set[k] = v
	}
	return set
}

func (b *base) findOptions(opts query.Options) *options.FindOptions {
	fo := options.Find()
	if proj := opts.ProjectionDocument(); proj != nil {
		fo.SetProjection(proj)
	}
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	if len(opts.Sort) > 0 {
		sort := make(bson.D, 0, len(opts.Sort))
		for _, s := range opts.Sort {
			sort = append(sort, bson.E{Key: s.Field, Value: int(s.Direction)})
		}
		fo.SetSort(sort)
	}
	return fo
}

// setOne applies $set to the single record matching id. With liveOnly set,
// soft-deleted records do not match.
func (b *base) setOne(ctx context.Context, id string, set bson.M, liveOnly bool) (bool, error) {
	filter, err := b.idFilter(id)
	if err != nil {
		return false, err
	}
	if len(set) == 0 {
		return false, nil
	}

	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	res, err := b.coll.UpdateOne(ctx, db.Scope(filter, !liveOnly), bson.M{"$set": set})
	if err != nil {
		logger.Error("Update of %s %s failed: %v", b.name, id, err)
		return false, err
	}
	return res.MatchedCount == 1 && res.ModifiedCount == 1, nil
}

// stampUpdated sets updated_at to now on a non-empty update that does not set it.
func stampUpdated(set bson.M, now time.Time) {
	if len(set) == 0 {
		return
	}
	if _, ok := set["updated_at"]; !ok {
		set["updated_at"] = now.UTC()
	}
}

// EnsureIndexes creates the given indexes on the repository's collection.
func (b *base) EnsureIndexes(ctx context.Context, indexes []mongo.IndexModel) error {
	if len(indexes) == 0 {
		return nil
	}
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	if _, err := b.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Error("Index creation failed: %v", err)
		return err
	}
	logger.Info("Index created successfully for collection %s", b.name)
	return nil
}

// IDIndex is a unique index on a custom id attribute. It is nil for "_id",
// which the server always indexes.
func (b *base) IDIndex() []mongo.IndexModel {
	if b.idAttr == value.NativeIDField {
		return nil
	}
	return []mongo.IndexModel{{
		Keys:    bson.D{{Key: b.idAttr, Value: 1}},
		Options: options.Index().SetUnique(true),
	}}
}

func insertedID(id any) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

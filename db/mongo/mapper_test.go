package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/world-in-progress/docrepo/config"
	"github.com/world-in-progress/docrepo/db/query"
	"github.com/world-in-progress/docrepo/db/schema"
	repoerrors "github.com/world-in-progress/docrepo/errors"
	"github.com/world-in-progress/docrepo/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMapperRepo(mt *mtest.T) *MapperRepository[character] {
	repo, err := NewMapperRepository(Config[character]{
		Model:    character{},
		Database: mt.DB,
		Driver:   config.DriverMapper,
	})
	require.NoError(mt, err)
	return repo
}

func storedDoc(id primitive.ObjectID, deletedAt *time.Time) bson.D {
	doc := bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: "Aria"},
		{Key: "created_at", Value: primitive.NewDateTimeFromTime(aria)},
		{Key: "updated_at", Value: primitive.NewDateTimeFromTime(aria)},
	}
	if deletedAt != nil {
		doc = append(doc, bson.E{Key: "deleted_at", Value: primitive.NewDateTimeFromTime(*deletedAt)})
	}
	return doc
}

func TestMapperRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create document", func(mt *mtest.T) {
		repo := newMapperRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		c, err := repo.CreateDocument(ctx, map[string]any{"name": "Aria", "level": 2, "created_at": "2024-01-01T00:00:00Z"})
		require.NoError(mt, err)
		require.NotEmpty(mt, c.GetID())
		assert.Equal(mt, "Aria", c.Name)
		assert.Equal(mt, aria, c.CreatedAt, "a given created_at is kept")
		assert.False(mt, c.UpdatedAt.IsZero())

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		doc := evt.Command.Lookup("documents", "0").Document()
		assert.Equal(mt, c.GetID(), doc.Lookup("_id").ObjectID().Hex())
		assert.Equal(mt, bsontype.DateTime, doc.Lookup("created_at").Type)
		_, err = doc.LookupErr("deleted_at")
		assert.Error(mt, err, "live documents carry no deletion marker")
	})

	mt.Run("create through the interface", func(mt *mtest.T) {
		repo, err := New(Config[character]{Model: character{}, Database: mt.DB, Driver: config.DriverMapper})
		require.NoError(mt, err)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		id, err := repo.Create(ctx, map[string]any{"name": "Brom"})
		require.NoError(mt, err)
		_, err = primitive.ObjectIDFromHex(id)
		assert.NoError(mt, err)
	})

	mt.Run("save existing document", func(mt *mtest.T) {
		repo := newMapperRepo(mt)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(updated(1, 1))

		c := &character{Name: "Aria"}
		c.SetID(oid.Hex())
		saved, err := repo.Save(ctx, c)
		require.NoError(mt, err)
		assert.Same(mt, c, saved)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, oid, cmd.Lookup("updates", "0", "q", "_id").ObjectID())
		assert.True(mt, cmd.Lookup("updates", "0", "upsert").Boolean())
		assert.Equal(mt, "Aria", cmd.Lookup("updates", "0", "u", "name").StringValue())
	})

	mt.Run("get", func(mt *mtest.T) {
		repo := newMapperRepo(mt)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, storedDoc(oid, nil)))

		c, err := repo.Get(ctx, oid.Hex(), false)
		require.NoError(mt, err)
		assert.Equal(mt, model.ID(oid.Hex()), c.ID)
		assert.Equal(mt, "Aria", c.Name)
		assert.Equal(mt, aria, c.CreatedAt)
		assert.Nil(mt, c.DeletedAt)

		_, err = mt.GetStartedEvent().Command.LookupErr("filter", "deleted_at", "$not")
		assert.NoError(mt, err)
	})

	mt.Run("get deleted", func(mt *mtest.T) {
		repo := newMapperRepo(mt)
		oid := primitive.NewObjectID()

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		_, err := repo.Get(ctx, oid.Hex(), false)
		assert.True(mt, repoerrors.IsObjectNotFound(err))

		deletedAt := aria.Add(24 * time.Hour)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, storedDoc(oid, &deletedAt)))
		c, err := repo.Get(ctx, oid.Hex(), true)
		require.NoError(mt, err)
		assert.True(mt, c.IsDeleted())
	})

	mt.Run("reads go through the configured schema", func(mt *mtest.T) {
		var seen []map[string]any
		hook := func(data map[string]any) (map[string]any, error) {
			seen = append(seen, data)
			data["name"] = "Lady " + data["name"].(string)
			return data, nil
		}
		repo, err := NewMapperRepository(Config[character]{
			Model:    character{},
			Database: mt.DB,
			Schema:   schema.New[character](schema.WithHooks(hook)),
		})
		require.NoError(mt, err)

		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, storedDoc(oid, nil)))
		c, err := repo.Get(ctx, oid.Hex(), false)
		require.NoError(mt, err)
		assert.Equal(mt, "Lady Aria", c.Name)
		assert.Equal(mt, oid.Hex(), c.GetID())
		assert.Equal(mt, aria, c.CreatedAt)

		require.Len(mt, seen, 1)
		assert.Equal(mt, oid.Hex(), seen[0]["id"])
		assert.NotContains(mt, seen[0], "_id", "records are transformed before loading")
		assert.Equal(mt, "2024-01-01T00:00:00.000", seen[0]["created_at"])

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, storedDoc(oid, nil)))
		results, err := repo.Query(ctx, query.New(), false)
		require.NoError(mt, err)
		require.Len(mt, results, 1)
		assert.Equal(mt, "Lady Aria", results[0].Name)
		assert.Len(mt, seen, 2)
	})

	mt.Run("reads are validated by the definition", func(mt *mtest.T) {
		def := &schema.Definition{
			Name:   "Character",
			Fields: map[string]*schema.FieldDefinition{"title": {Type: schema.TypeString, Required: true}},
		}
		repo, err := NewMapperRepository(Config[character]{
			Model:    character{},
			Database: mt.DB,
			Schema:   schema.New[character](schema.WithDefinition(def)),
		})
		require.NoError(mt, err)

		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, storedDoc(oid, nil)))
		_, err = repo.Get(ctx, oid.Hex(), false)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "field title is required")
	})

	mt.Run("query", func(mt *mtest.T) {
		repo := newMapperRepo(mt)
		first, second := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, storedDoc(first, nil), storedDoc(second, nil)))

		results, err := repo.Query(ctx, query.New().WithPage(0, 10), false)
		require.NoError(mt, err)
		require.Len(mt, results, 2)
		assert.Equal(mt, first.Hex(), results[0].GetID())
		assert.Equal(mt, second.Hex(), results[1].GetID())
	})

	mt.Run("update bumps updated_at", func(mt *mtest.T) {
		repo := newMapperRepo(mt)
		mt.AddMockResponses(updated(1, 1))

		ok, err := repo.Update(ctx, primitive.NewObjectID().Hex(), map[string]any{"level": 5})
		require.NoError(mt, err)
		assert.True(mt, ok)

		set := mt.GetStartedEvent().Command.Lookup("updates", "0", "u", "$set").Document()
		assert.Equal(mt, bsontype.DateTime, set.Lookup("updated_at").Type)
	})

	mt.Run("update restores a deleted document", func(mt *mtest.T) {
		repo := newMapperRepo(mt)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(updated(1, 1))

		ok, err := repo.Update(ctx, oid.Hex(), map[string]any{"deleted_at": nil})
		require.NoError(mt, err)
		assert.True(mt, ok)

		cmd := mt.GetStartedEvent().Command
		_, err = cmd.LookupErr("updates", "0", "q", "deleted_at")
		assert.Error(mt, err, "updates match deleted documents too")
		set := cmd.Lookup("updates", "0", "u", "$set").Document()
		assert.Equal(mt, bsontype.Null, set.Lookup("deleted_at").Type)
		assert.Equal(mt, bsontype.DateTime, set.Lookup("updated_at").Type)
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := newMapperRepo(mt)
		oid := primitive.NewObjectID()

		mt.AddMockResponses(updated(1, 1), updated(0, 0))
		ok, err := repo.Delete(ctx, oid.Hex())
		require.NoError(mt, err)
		assert.True(mt, ok)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, bsontype.DateTime, cmd.Lookup("updates", "0", "u", "$set", "deleted_at").Type)
		_, err = cmd.LookupErr("updates", "0", "q", "deleted_at", "$not")
		assert.NoError(mt, err, "only live documents are deleted")

		ok, err = repo.Delete(ctx, oid.Hex())
		require.NoError(mt, err)
		assert.False(mt, ok)
	})
}

type plain struct {
	Name string
}

func (plain) CollectionName() string { return "plain" }

func TestNewRepositoryConfig(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("validation", func(mt *mtest.T) {
		_, err := New(Config[character]{Database: mt.DB, Schema: nil})
		assert.True(mt, repoerrors.IsInvalidConfig(err), "model is required")

		_, err = New(Config[character]{Model: character{}})
		assert.True(mt, repoerrors.IsInvalidConfig(err), "database is required")

		_, err = New(Config[character]{Model: character{}, Database: mt.DB})
		assert.True(mt, repoerrors.IsInvalidConfig(err), "collection driver needs a schema")

		_, err = New(Config[character]{Model: character{}, Database: mt.DB, Driver: "sql"})
		assert.True(mt, repoerrors.IsInvalidConfig(err))

		_, err = New(Config[character]{Model: model.Collection(""), Database: mt.DB, Driver: config.DriverMapper})
		assert.True(mt, repoerrors.IsInvalidConfig(err))

		_, err = New(Config[plain]{Model: plain{}, Database: mt.DB, Driver: config.DriverMapper})
		assert.True(mt, repoerrors.IsInvalidConfig(err), "mapper models must be documents")
	})

	mt.Run("variant selection", func(mt *mtest.T) {
		repo, err := New(Config[character]{Model: character{}, Database: mt.DB, Driver: config.DriverMapper})
		require.NoError(mt, err)
		assert.IsType(mt, &MapperRepository[character]{}, repo)
	})

	mt.Run("settings from configuration", func(mt *mtest.T) {
		cfg := Config[character]{Model: character{}, Database: mt.DB, IDAttr: "slug"}.WithSettings(
			config.RepositoryConfig{Driver: config.DriverMapper, IDAttr: "_id"},
			config.MongoConfig{Timeout: 3 * time.Second, WriteConcern: "2", Journal: false},
		)
		assert.Equal(mt, "slug", cfg.IDAttr)
		assert.Equal(mt, config.DriverMapper, cfg.Driver)
		assert.Equal(mt, 3*time.Second, cfg.Timeout)
		assert.Equal(mt, 2, cfg.WriteConcern.W)
	})
}

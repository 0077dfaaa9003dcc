package mongo

import (
	"fmt"
	"reflect"

	"github.com/spf13/cast"
	"github.com/world-in-progress/docrepo/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

var idType = reflect.TypeOf(model.ID(""))

// NewRegistry returns the default bson registry extended so that model.ID
// values holding a hex object id are stored as ObjectIDs.
func NewRegistry() *bsoncodec.Registry {
	reg := bson.NewRegistry()
	reg.RegisterTypeEncoder(idType, bsoncodec.ValueEncoderFunc(encodeID))
	reg.RegisterTypeDecoder(idType, bsoncodec.ValueDecoderFunc(decodeID))
	return reg
}

func encodeID(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != idType {
		return bsoncodec.ValueEncoderError{Name: "encodeID", Types: []reflect.Type{idType}, Received: val}
	}

	id := val.String()
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return vw.WriteObjectID(oid)
	}
	return vw.WriteString(id)
}

func decodeID(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != idType {
		return bsoncodec.ValueDecoderError{Name: "decodeID", Types: []reflect.Type{idType}, Received: val}
	}

	switch vr.Type() {
	case bsontype.ObjectID:
		oid, err := vr.ReadObjectID()
		if err != nil {
			return err
		}
		val.SetString(oid.Hex())
	case bsontype.String:
		s, err := vr.ReadString()
		if err != nil {
			return err
		}
		val.SetString(s)
	case bsontype.Null:
		if err := vr.ReadNull(); err != nil {
			return err
		}
		val.SetString("")
	case bsontype.Undefined:
		if err := vr.ReadUndefined(); err != nil {
			return err
		}
		val.SetString("")
	default:
		return fmt.Errorf("cannot decode %v into a model.ID", vr.Type())
	}
	return nil
}

// WriteConcern builds a write concern from its configured form: "majority",
// a node count such as "2", or a tag set name.
func WriteConcern(w string, journal bool) *writeconcern.WriteConcern {
	wc := &writeconcern.WriteConcern{W: "majority", Journal: &journal}
	if w == "" {
		return wc
	}
	if n, err := cast.ToIntE(w); err == nil {
		wc.W = n
		return wc
	}
	wc.W = w
	return wc
}

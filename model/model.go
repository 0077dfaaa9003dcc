package model

import (
	"time"
)

type (
	// Descriptor names the physical collection a model is stored in.
	Descriptor interface {
		CollectionName() string
	}

	// Document is implemented by models handled by the mapper repository.
	Document interface {
		GetID() string
		SetID(id string)
		Touch(now time.Time)
		IsDeleted() bool
	}

	// ID is a document identifier in its portable (hex string) form.
	ID string

	// Base carries the fields every stored document has. Embed it with
	// `bson:",inline" mapstructure:",squash"`.
	Base struct {
		ID        ID         `bson:"_id,omitempty" json:"id" mapstructure:"id"`
		CreatedAt time.Time  `bson:"created_at" json:"created_at" mapstructure:"created_at"`
		UpdatedAt time.Time  `bson:"updated_at" json:"updated_at" mapstructure:"updated_at"`
		DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty" mapstructure:"deleted_at"`
	}

	collection string
)

// Collection returns a Descriptor for a fixed collection name.
func Collection(name string) Descriptor {
	return collection(name)
}

func (c collection) CollectionName() string {
	return string(c)
}

func (id ID) String() string {
	return string(id)
}

func (b *Base) GetID() string {
	return string(b.ID)
}

func (b *Base) SetID(id string) {
	b.ID = ID(id)
}

// Touch stamps the document as written at now. CreatedAt is only set once.
func (b *Base) Touch(now time.Time) {
	now = now.UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func (b *Base) IsDeleted() bool {
	return b.DeletedAt != nil && !b.DeletedAt.IsZero()
}

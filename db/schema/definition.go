package schema

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/spf13/afero"
)

// Field types a Definition understands.
const (
	TypeString   = "string"
	TypeInt      = "int"
	TypeFloat    = "float64"
	TypeBool     = "bool"
	TypeDateTime = "datetime"
	TypeArray    = "array"
	TypeMap      = "map"
	TypeObject   = "object"
)

var basicTypes = map[string]bool{
	TypeString:   true,
	TypeInt:      true,
	TypeFloat:    true,
	TypeBool:     true,
	TypeDateTime: true,
	TypeArray:    true,
	TypeMap:      true,
}

type (
	FieldDefinition struct {
		Type     string
		Required bool
		Nullable bool
		Fields   map[string]*FieldDefinition
		Item     *FieldDefinition
	}

	// Definition describes the fields a stored record of one model may carry.
	Definition struct {
		Name    string
		Extends string
		Fields  map[string]*FieldDefinition
	}

	rawField struct {
		Type     string                     `json:"type"`
		Required bool                       `json:"required"`
		Nullable bool                       `json:"nullable"`
		Fields   map[string]json.RawMessage `json:"fields,omitempty"`
		Item     json.RawMessage            `json:"item,omitempty"`
		Ref      string                     `json:"ref,omitempty"`
	}

	rawModel struct {
		Name    string                     `json:"name"`
		Extends string                     `json:"extends,omitempty"`
		Fields  map[string]json.RawMessage `json:"fields"`
	}
)

// BaseDefinition covers the fields every stored document has.
func BaseDefinition() *Definition {
	return &Definition{
		Name: "Base",
		Fields: map[string]*FieldDefinition{
			"id":         {Type: TypeString},
			"created_at": {Type: TypeDateTime, Required: true},
			"updated_at": {Type: TypeDateTime, Required: true},
			"deleted_at": {Type: TypeDateTime, Nullable: true},
		},
	}
}

// ParseDefinitions reads a document of the form
//
//	{"models": [{"name": "Character", "extends": "Base", "fields": {"name": {"type": "string", "required": true}}}]}
//
// Models may extend one another and use other models as field types.
// "Base" is always available as a parent.
func ParseDefinitions(data []byte) (map[string]*Definition, error) {
	var doc struct {
		Models []rawModel `json:"models"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model definitions: %w", err)
	}

	// first pass: plain fields, so references can be resolved
	known := map[string]*Definition{"Base": BaseDefinition()}
	for _, m := range doc.Models {
		if m.Name == "" {
			return nil, fmt.Errorf("model definition without a name")
		}
		fields := make(map[string]*FieldDefinition)
		if err := parseFields(m.Name, m.Fields, fields, nil); err != nil {
			return nil, err
		}
		known[m.Name] = &Definition{Name: m.Name, Extends: m.Extends, Fields: fields}
	}

	// second pass: resolve model references and inheritance
	defs := make(map[string]*Definition, len(doc.Models))
	for _, m := range doc.Models {
		fields := make(map[string]*FieldDefinition)
		if err := parseFields(m.Name, m.Fields, fields, known); err != nil {
			return nil, err
		}
		def := &Definition{Name: m.Name, Extends: m.Extends, Fields: fields}
		if err := inherit(def, known, map[string]bool{m.Name: true}); err != nil {
			return nil, err
		}
		defs[m.Name] = def
	}
	return defs, nil
}

// ParseDefinition parses data and returns the model called name.
func ParseDefinition(data []byte, name string) (*Definition, error) {
	defs, err := ParseDefinitions(data)
	if err != nil {
		return nil, err
	}
	def, ok := defs[name]
	if !ok {
		return nil, fmt.Errorf("model %s not found", name)
	}
	return def, nil
}

// LoadDefinitions reads model definitions from a file on fs.
func LoadDefinitions(fs afero.Fs, path string) (map[string]*Definition, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model definitions: %w", err)
	}
	return ParseDefinitions(data)
}

func inherit(def *Definition, known map[string]*Definition, seen map[string]bool) error {
	parentName := def.Extends
	for parentName != "" {
		if seen[parentName] {
			return fmt.Errorf("model %s: inheritance cycle through %s", def.Name, parentName)
		}
		seen[parentName] = true

		parent, ok := known[parentName]
		if !ok {
			return fmt.Errorf("base model %s not found for %s", parentName, def.Name)
		}
		for k, v := range parent.Fields {
			if _, exists := def.Fields[k]; !exists {
				def.Fields[k] = v
			}
		}
		parentName = parent.Extends
	}
	return nil
}

func parseFields(model string, raw map[string]json.RawMessage, fields map[string]*FieldDefinition, models map[string]*Definition) error {
	for name, msg := range raw {
		var rf rawField
		if err := json.Unmarshal(msg, &rf); err != nil {
			return fmt.Errorf("model %s: failed to unmarshal field %s: %w", model, name, err)
		}
		fd, err := buildField(model, name, rf, models)
		if err != nil {
			return err
		}
		fields[name] = fd
	}
	return nil
}

func buildField(model, name string, rf rawField, models map[string]*Definition) (*FieldDefinition, error) {
	if rf.Type == "" && rf.Ref == "" {
		return nil, fmt.Errorf("model %s: field %s missing type", model, name)
	}
	fd := &FieldDefinition{Type: rf.Type, Required: rf.Required, Nullable: rf.Nullable}

	if rf.Fields != nil {
		if rf.Type != TypeObject {
			return nil, fmt.Errorf("model %s: field %s: fields only allowed with type 'object'", model, name)
		}
		fd.Fields = make(map[string]*FieldDefinition)
		if err := parseFields(model, rf.Fields, fd.Fields, models); err != nil {
			return nil, err
		}
	}

	if rf.Item != nil {
		if rf.Type != TypeArray && rf.Type != TypeMap {
			return nil, fmt.Errorf("model %s: field %s: item only allowed with type 'array' or 'map'", model, name)
		}
		var item rawField
		if err := json.Unmarshal(rf.Item, &item); err != nil {
			return nil, fmt.Errorf("model %s: failed to unmarshal item of %s: %w", model, name, err)
		}
		itemDef, err := buildField(model, name+"[]", item, models)
		if err != nil {
			return nil, err
		}
		fd.Item = itemDef
	}

	// references to other models become nested objects
	if rf.Ref != "" || (fd.Type != TypeObject && !basicTypes[fd.Type]) {
		if models == nil {
			fd.Type = TypeObject
			return fd, nil
		}
		refName := rf.Ref
		if refName == "" {
			refName = fd.Type
		}
		ref, ok := models[refName]
		if !ok {
			return nil, fmt.Errorf("model %s: field %s: type %s is not a basic type or defined model", model, name, refName)
		}
		fd.Type = TypeObject
		fd.Fields = maps.Clone(ref.Fields)
	}
	return fd, nil
}

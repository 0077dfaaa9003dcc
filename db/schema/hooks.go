package schema

import (
	"github.com/world-in-progress/docrepo/db/value"
)

// Hook rewrites a record before it is validated and decoded. Hooks receive
// their own copy of the record and may modify it in place.
type Hook func(data map[string]any) (map[string]any, error)

// DefaultDateFields are the timestamps every stored document carries.
var DefaultDateFields = []string{"created_at", "updated_at", "deleted_at"}

// HandleID exposes the identifier under value.PublicIDField whichever key it was stored under.
func HandleID(data map[string]any) (map[string]any, error) {
	id, ok := data[value.NativeIDField]
	if !ok || id == nil {
		id = data[value.PublicIDField]
	}
	if id != nil {
		data[value.PublicIDField] = value.Normalize(id)
	}
	return data, nil
}

// HandleDates formats raw time values held by the given fields as ISO strings.
func HandleDates(fields ...string) Hook {
	if len(fields) == 0 {
		fields = DefaultDateFields
	}
	return func(data map[string]any) (map[string]any, error) {
		for _, f := range fields {
			v, ok := data[f]
			if !ok {
				continue
			}
			switch value.Classify(v) {
			case value.KindTimestamp, value.KindBinaryTimestamp:
				data[f] = value.Normalize(v)
			}
		}
		return data, nil
	}
}

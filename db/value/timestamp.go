package value

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/world-in-progress/docrepo/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const timestampKind = "timestamp"

// ToTime interprets v as a point in time. A nil v yields a nil time and no error.
func ToTime(v any) (*time.Time, error) {
	var t time.Time

	switch val := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t = val
	case *time.Time:
		if val == nil {
			return nil, nil
		}
		t = *val
	case primitive.DateTime:
		t = val.Time()
	case primitive.Timestamp:
		t = time.Unix(int64(val.T), 0)
	case string:
		parsed, err := ParseTime(val)
		if err != nil {
			return nil, err
		}
		t = parsed
	case int:
		t = time.Unix(int64(val), 0)
	case int32:
		t = time.Unix(int64(val), 0)
	case int64:
		t = time.Unix(val, 0)
	case uint32:
		t = time.Unix(int64(val), 0)
	case float32:
		t = fromEpochFloat(float64(val))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, errors.NewInvalidValueKindError(timestampKind, v, "not a finite number")
		}
		t = fromEpochFloat(val)
	case map[string]any:
		return fromExtendedJSON(v, val)
	case primitive.M:
		return fromExtendedJSON(v, val)
	default:
		return nil, errors.NewInvalidValueKindError(timestampKind, v, "")
	}

	t = t.UTC()
	return &t, nil
}

// ToTimestamp is the inverse of Normalize for timestamps: it turns any value
// ToTime accepts into a BSON timestamp with second precision.
func ToTimestamp(v any) (*primitive.Timestamp, error) {
	t, err := ToTime(v)
	if err != nil || t == nil {
		return nil, err
	}

	secs := t.Unix()
	if secs < 0 || secs > math.MaxUint32 {
		return nil, errors.NewInvalidValueKindError(timestampKind, v, "out of the binary timestamp range")
	}
	return &primitive.Timestamp{T: uint32(secs), I: 0}, nil
}

// ParseTime reads RFC 3339 and ISO-8601 strings. Strings without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.NewInvalidValueKindError(timestampKind, s, "empty string")
	}

	t, err := cast.StringToDate(s)
	if err != nil {
		return time.Time{}, errors.NewInvalidValueKindError(timestampKind, s, err.Error())
	}
	return t.UTC(), nil
}

func fromEpochFloat(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}

// fromExtendedJSON accepts {"$date": millis} and {"$date": "ISO"}.
func fromExtendedJSON(orig any, m map[string]any) (*time.Time, error) {
	raw, ok := m["$date"]
	if !ok || len(m) != 1 {
		return nil, errors.NewInvalidValueKindError(timestampKind, orig, "expected a single $date key")
	}

	switch d := raw.(type) {
	case string:
		t, err := ParseTime(d)
		if err != nil {
			return nil, err
		}
		return &t, nil
	case nil, bool, map[string]any, primitive.M:
		return nil, errors.NewInvalidValueKindError(timestampKind, orig, "unsupported $date value")
	}

	millis, err := cast.ToInt64E(raw)
	if err != nil {
		return nil, errors.NewInvalidValueKindError(timestampKind, orig, err.Error())
	}
	t := time.UnixMilli(millis).UTC()
	return &t, nil
}

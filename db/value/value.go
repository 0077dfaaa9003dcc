package value

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// NativeIDField is the identifier key used by the store.
	NativeIDField = "_id"
	// PublicIDField is the identifier key handed to callers.
	PublicIDField = "id"
	// ISOLayout is the wire form of every timestamp leaving the repository. Always UTC.
	ISOLayout = "2006-01-02T15:04:05.000"
)

// Kind tags the shapes Normalize knows how to rewrite.
type Kind int

const (
	KindOther Kind = iota
	KindIdentifier
	KindTimestamp
	KindBinaryTimestamp
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindIdentifier:
		return "identifier"
	case KindTimestamp:
		return "timestamp"
	case KindBinaryTimestamp:
		return "binary timestamp"
	case KindSequence:
		return "sequence"
	default:
		return "other"
	}
}

// Classify reports the kind of v.
func Classify(v any) Kind {
	switch t := v.(type) {
	case primitive.ObjectID:
		return KindIdentifier
	case time.Time, primitive.DateTime:
		return KindTimestamp
	case *time.Time:
		if t == nil {
			return KindOther
		}
		return KindTimestamp
	case primitive.Timestamp:
		return KindBinaryTimestamp
	case []any, primitive.A:
		return KindSequence
	default:
		return KindOther
	}
}

// Normalize converts store-native values into their portable form.
// Sequences are rewritten element-wise one level deep; maps are left as they are.
func Normalize(v any) any {
	switch Classify(v) {
	case KindIdentifier:
		return v.(primitive.ObjectID).Hex()
	case KindTimestamp:
		return FormatTime(asTime(v))
	case KindBinaryTimestamp:
		ts := v.(primitive.Timestamp)
		return FormatTime(time.Unix(int64(ts.T), 0))
	case KindSequence:
		return normalizeSequence(v)
	default:
		return v
	}
}

// FormatTime renders t in UTC using ISOLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		return *t
	case primitive.DateTime:
		return t.Time()
	}
	return time.Time{}
}

func normalizeSequence(v any) []any {
	var items []any
	switch s := v.(type) {
	case primitive.A:
		items = s
	case []any:
		items = s
	}

	out := make([]any, len(items))
	for i, item := range items {
		if Classify(item) == KindSequence {
			out[i] = item
			continue
		}
		out[i] = Normalize(item)
	}
	return out
}

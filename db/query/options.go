package query

// Direction orders a sort field. The values are the ones the store expects in a sort document.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

type SortField struct {
	Field     string
	Direction Direction
}

// Filter is a raw filter as sent by clients: {"name": "level", "op": "ge", "val": 3}.
type Filter struct {
	Name string `json:"name"`
	Op   string `json:"op"`
	Val  any    `json:"val"`
}

// Sort is a raw sort item: {"field": "name", "order": "dsc"}.
type Sort struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// Options carries the filtering, projection, paging and ordering of a query.
// It is a value type; every With* method returns a modified copy.
// A zero Limit means no limit.
type Options struct {
	Filter     map[string]any
	Projection []string
	Skip       int64
	Limit      int64
	Sort       []SortField
}

func New() Options {
	return Options{}
}

// WithFilter replaces the filter document with a copy of filter.
func (o Options) WithFilter(filter map[string]any) Options {
	if filter == nil {
		o.Filter = nil
		return o
	}
	o.Filter = make(map[string]any, len(filter))
	for k, v := range filter {
		o.Filter[k] = v
	}
	return o
}

// WithFilters replaces the filter document with one built from raw filters.
// Filters naming the same field are merged into a single operator document.
func (o Options) WithFilters(filters []Filter) Options {
	o.Filter = make(map[string]any, len(filters))
	for _, f := range filters {
		ops, ok := o.Filter[f.Name].(map[string]any)
		if !ok {
			ops = map[string]any{}
			o.Filter[f.Name] = ops
		}
		ops[Operator(f.Op)] = f.Val
	}
	return o
}

func (o Options) WithProjection(fields ...string) Options {
	if len(fields) == 0 {
		o.Projection = nil
		return o
	}
	o.Projection = append([]string(nil), fields...)
	return o
}

// WithSort replaces the ordering with one built from raw sort items.
func (o Options) WithSort(items []Sort) Options {
	fields := make([]SortField, 0, len(items))
	for _, s := range items {
		fields = append(fields, SortField{Field: s.Field, Direction: SortDirection(s.Order)})
	}
	return o.WithOrder(fields...)
}

func (o Options) WithOrder(fields ...SortField) Options {
	if len(fields) == 0 {
		o.Sort = nil
		return o
	}
	o.Sort = append([]SortField(nil), fields...)
	return o
}

// WithPage sets skip and limit. Negative values are clamped to zero.
func (o Options) WithPage(skip, limit int64) Options {
	o.Skip = max(skip, 0)
	o.Limit = max(limit, 0)
	return o
}

// ProjectionDocument returns the projection in the store's {field: 1} form, or nil.
func (o Options) ProjectionDocument() map[string]any {
	if len(o.Projection) == 0 {
		return nil
	}
	doc := make(map[string]any, len(o.Projection))
	for _, f := range o.Projection {
		doc[f] = 1
	}
	return doc
}

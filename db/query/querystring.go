package query

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cast"
)

// Query string parameters understood by FromQueryString.
const (
	FilterParam     = "filter"
	FieldsParam     = "fields"
	SortParam       = "sort"
	PageStartOption = "start"
	PageLimitOption = "limit"

	MaxPageSize = 50
)

// FromQueryString builds Options from request parameters such as
//
//	?filter=[{"name":"level","op":"ge","val":3}]&fields=name,level&sort=level:dsc,name&start=20&limit=10
//
// The limit defaults to maxPageSize and is capped by it; a non-positive
// maxPageSize means MaxPageSize.
func FromQueryString(values url.Values, maxPageSize int64) (Options, error) {
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	opts := New()

	if raw := strings.TrimSpace(values.Get(FilterParam)); raw != "" {
		var filters []Filter
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			return Options{}, fmt.Errorf("invalid %s parameter: %w", FilterParam, err)
		}
		for i, f := range filters {
			if f.Name == "" {
				return Options{}, fmt.Errorf("invalid %s parameter: filter %d has no name", FilterParam, i)
			}
		}
		opts = opts.WithFilters(filters)
	}

	if raw := values.Get(FieldsParam); raw != "" {
		opts = opts.WithProjection(splitList(raw)...)
	}

	if raw := values.Get(SortParam); raw != "" {
		var items []Sort
		for _, item := range splitList(raw) {
			field, order, _ := strings.Cut(item, ":")
			items = append(items, Sort{Field: field, Order: order})
		}
		opts = opts.WithSort(items)
	}

	skip, err := intParam(values, PageStartOption, 0)
	if err != nil {
		return Options{}, err
	}
	limit, err := intParam(values, PageLimitOption, maxPageSize)
	if err != nil {
		return Options{}, err
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	return opts.WithPage(skip, limit), nil
}

func intParam(values url.Values, name string, def int64) (int64, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := cast.ToInt64E(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: %w", name, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

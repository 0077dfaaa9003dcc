package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperator(t *testing.T) {
	cases := map[string]string{
		"eq": "$eq", "gt": "$gt", "ge": "$gte", "in": "$in", "lt": "$lt", "le": "$lte",
		"ne": "$ne", "notin": "$nin", "exists": "$exists", "not": "$not",
		"in_": "$in", "notin_": "$nin", "is_": "$exists", "isnot": "$not",
		"GE": "$gte", "like": "$eq", "": "$eq",
	}
	for token, want := range cases {
		assert.Equal(t, want, Operator(token), "token %q", token)
	}
}

func TestSortDirection(t *testing.T) {
	assert.Equal(t, Ascending, SortDirection("asc"))
	assert.Equal(t, Descending, SortDirection("dsc"))
	assert.Equal(t, Descending, SortDirection("desc"))
	assert.Equal(t, Ascending, SortDirection("sideways"))
	assert.Equal(t, Ascending, SortDirection(""))
}

func TestWithFiltersMergesByField(t *testing.T) {
	opts := New().WithFilters([]Filter{
		{Name: "level", Op: "ge", Val: 3},
		{Name: "level", Op: "lt", Val: 10},
		{Name: "class", Op: "in", Val: []any{"bard", "rogue"}},
		{Name: "name", Op: "mystery", Val: "Aria"},
	})

	assert.Equal(t, map[string]any{
		"level": map[string]any{"$gte": 3, "$lt": 10},
		"class": map[string]any{"$in": []any{"bard", "rogue"}},
		"name":  map[string]any{"$eq": "Aria"},
	}, opts.Filter)
}

func TestBuildersReturnCopies(t *testing.T) {
	base := New().WithFilter(map[string]any{"name": "Aria"}).WithPage(5, 10)
	filter := map[string]any{"level": 1}
	changed := base.WithFilter(filter).WithPage(0, 2).WithProjection("name")

	assert.Equal(t, map[string]any{"name": "Aria"}, base.Filter)
	assert.Equal(t, int64(5), base.Skip)
	assert.Equal(t, int64(10), base.Limit)
	assert.Nil(t, base.Projection)

	filter["level"] = 2
	assert.Equal(t, 1, changed.Filter["level"])
}

func TestBuildersAreIdempotent(t *testing.T) {
	sort := []Sort{{Field: "name", Order: "asc"}, {Field: "level", Order: "dsc"}}

	once := New().WithSort(sort).WithProjection("a", "b")
	twice := once.WithSort(sort).WithProjection("a", "b")
	assert.Equal(t, once, twice)
	assert.Equal(t, []SortField{{"name", Ascending}, {"level", Descending}}, twice.Sort)
}

func TestWithPageClamps(t *testing.T) {
	opts := New().WithPage(-3, -1)
	assert.Zero(t, opts.Skip)
	assert.Zero(t, opts.Limit)
}

func TestProjectionDocument(t *testing.T) {
	assert.Nil(t, New().ProjectionDocument())
	assert.Equal(t, map[string]any{"name": 1, "level": 1}, New().WithProjection("name", "level").ProjectionDocument())
}

func TestFromQueryString(t *testing.T) {
	values := url.Values{}
	values.Set(FilterParam, `[{"name":"level","op":"ge","val":3},{"name":"class","op":"in_","val":["bard"]}]`)
	values.Set(FieldsParam, "name, level,")
	values.Set(SortParam, "level:dsc,name")
	values.Set(PageStartOption, "20")
	values.Set(PageLimitOption, "10")

	opts, err := FromQueryString(values, 0)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"level": map[string]any{"$gte": float64(3)},
		"class": map[string]any{"$in": []any{"bard"}},
	}, opts.Filter)
	assert.Equal(t, []string{"name", "level"}, opts.Projection)
	assert.Equal(t, []SortField{{"level", Descending}, {"name", Ascending}}, opts.Sort)
	assert.Equal(t, int64(20), opts.Skip)
	assert.Equal(t, int64(10), opts.Limit)
}

func TestFromQueryStringLimits(t *testing.T) {
	opts, err := FromQueryString(url.Values{}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(MaxPageSize), opts.Limit)
	assert.Zero(t, opts.Skip)
	assert.Nil(t, opts.Filter)

	opts, err = FromQueryString(url.Values{PageLimitOption: {"500"}}, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(25), opts.Limit)
}

func TestFromQueryStringErrors(t *testing.T) {
	bad := []url.Values{
		{FilterParam: {`{"name":"level"}`}},
		{FilterParam: {`[{"op":"eq","val":1}]`}},
		{PageStartOption: {"first"}},
		{PageLimitOption: {"ten"}},
	}
	for _, values := range bad {
		_, err := FromQueryString(values, 0)
		assert.Error(t, err, "values %v", values)
	}
}

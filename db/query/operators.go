package query

import "strings"

var filterOperators = map[string]string{
	"eq":     "$eq",
	"gt":     "$gt",
	"ge":     "$gte",
	"in":     "$in",
	"lt":     "$lt",
	"le":     "$lte",
	"ne":     "$ne",
	"notin":  "$nin",
	"exists": "$exists",
	"not":    "$not",

	// older client spellings
	"in_":    "$in",
	"notin_": "$nin",
	"is_":    "$exists",
	"isnot":  "$not",
}

var sortDirections = map[string]Direction{
	"asc":  Ascending,
	"dsc":  Descending,
	"desc": Descending,
}

// Operator maps a filter token to its store operator. Unknown tokens mean equality.
func Operator(token string) string {
	if op, ok := filterOperators[strings.ToLower(strings.TrimSpace(token))]; ok {
		return op
	}
	return "$eq"
}

// SortDirection maps a sort token to a direction. Unknown tokens sort ascending.
func SortDirection(token string) Direction {
	if d, ok := sortDirections[strings.ToLower(strings.TrimSpace(token))]; ok {
		return d
	}
	return Ascending
}

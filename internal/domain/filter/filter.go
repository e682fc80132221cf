// Package filter describes metadata pre-filters applied by vector index backends.
package filter

import (
	"fmt"
	"strings"
)

// Index metadata keys shared by every VenueIndex backend.
const (
	KeyRegion        = "region"
	KeyCategoryCode  = "category_code"
	KeyBusinessHours = "business_hours"
)

// MaxConditions is the maximum number of equality conditions in one expression.
const MaxConditions = 8

// Expression is a conjunction of exact-match conditions on index metadata.
type Expression struct {
	must []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must ...Condition) (Expression, error) {
	if len(must) > MaxConditions {
		return Expression{}, fmt.Errorf("too many conditions (max %d)", MaxConditions)
	}
	seen := make(map[string]struct{}, len(must))
	for _, c := range must {
		if _, dup := seen[c.key]; dup {
			return Expression{}, fmt.Errorf("duplicate condition on %q", c.key)
		}
		seen[c.key] = struct{}{}
	}
	return Expression{must: must}, nil
}

// ForVenue builds the region/category conjunction used by retrieval.
// Empty values are skipped, so both empty yields an empty expression.
func ForVenue(region, categoryCode string) Expression {
	var must []Condition
	if region = strings.TrimSpace(region); region != "" {
		must = append(must, Condition{key: KeyRegion, value: region})
	}
	if categoryCode = strings.TrimSpace(categoryCode); categoryCode != "" {
		must = append(must, Condition{key: KeyCategoryCode, value: categoryCode})
	}
	return Expression{must: must}
}

// Must returns the conditions.
func (e Expression) Must() []Condition { return e.must }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// Matches evaluates the expression against a metadata map. Used by in-process backends.
func (e Expression) Matches(meta map[string]string) bool {
	for _, c := range e.must {
		if meta[c.key] != c.value {
			return false
		}
	}
	return true
}

// String renders the expression for logs.
func (e Expression) String() string {
	if e.IsEmpty() {
		return "*"
	}
	parts := make([]string, len(e.must))
	for i, c := range e.must {
		parts[i] = c.key + "=" + c.value
	}
	return strings.Join(parts, " AND ")
}

// Condition is a single exact-match clause.
type Condition struct {
	key   string
	value string
}

// NewMatch creates an exact match condition.
func NewMatch(key, value string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if value == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, value: value}, nil
}

// Key returns the metadata field name.
func (c Condition) Key() string { return c.key }

// Value returns the exact match value.
func (c Condition) Value() string { return c.value }

package filter

import "fmt"

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 16

// Expression is a structured tag filter with must/must_not semantics.
type Expression struct {
	must    []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, mustNot: mustNot}, nil
}

// Equals builds a single-condition expression key == value.
func Equals(key, value string) (Expression, error) {
	cond, err := NewMatch(key, value)
	if err != nil {
		return Expression{}, err
	}
	return Expression{must: []Condition{cond}}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.mustNot) == 0
}

// MustValue returns the required value for key, if a must condition pins it.
func (e Expression) MustValue(key string) (string, bool) {
	for _, c := range e.must {
		if c.key == key {
			return c.match, true
		}
	}
	return "", false
}

// String renders the expression deterministically, for cache keys and logs.
func (e Expression) String() string {
	s := ""
	for _, c := range e.must {
		s += "+" + c.key + "=" + c.match + ";"
	}
	for _, c := range e.mustNot {
		s += "-" + c.key + "=" + c.match + ";"
	}
	return s
}

// Condition is a single exact tag match clause.
type Condition struct {
	key   string
	match string
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// DefaultColor is applied when a region has no data source or no rule matches.
const DefaultColor = "#3B82F6"

// EqualTolerance is the absolute difference under which "=" rules match.
const EqualTolerance = 0.1

// Operator is a threshold comparison.
type Operator string

const (
	OpEqual        Operator = "="
	OpLess         Operator = "<"
	OpGreater      Operator = ">"
	OpLessEqual    Operator = "<="
	OpGreaterEqual Operator = ">="
)

// ParseOperator validates s as one of the five comparison operators.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(s); op {
	case OpEqual, OpLess, OpGreater, OpLessEqual, OpGreaterEqual:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operator %q: %w", s, ErrInvalidRule)
	}
}

// Eval reports whether value satisfies "value <op> threshold".
func (op Operator) Eval(value, threshold float64) bool {
	switch op {
	case OpLess:
		return value < threshold
	case OpGreater:
		return value > threshold
	case OpLessEqual:
		return value <= threshold
	case OpGreaterEqual:
		return value >= threshold
	case OpEqual:
		return math.Abs(value-threshold) < EqualTolerance
	default:
		return false
	}
}

// ColorRule maps a threshold test over one data source's values to a color.
type ColorRule struct {
	ID           string   `json:"id"`
	DataSourceID string   `json:"dataSourceId"`
	Operator     Operator `json:"operator"`
	Threshold    float64  `json:"value"`
	Color        string   `json:"color"`
	Label        string   `json:"label,omitempty"`
}

// Validate checks the operator and color.
func (r *ColorRule) Validate() error {
	if _, err := ParseOperator(string(r.Operator)); err != nil {
		return err
	}
	if err := ValidateColor(r.Color); err != nil {
		return fmt.Errorf("rule color: %w", ErrInvalidRule)
	}
	return nil
}

// DefaultLabel renders the rule as "<op> <threshold>", e.g. ">= 25".
func (r *ColorRule) DefaultLabel() string {
	return string(r.Operator) + " " + strconv.FormatFloat(r.Threshold, 'f', -1, 64)
}

// RulePatch is a partial update to a ColorRule; nil fields are left unchanged.
type RulePatch struct {
	DataSourceID *string   `json:"dataSourceId,omitempty"`
	Operator     *Operator `json:"operator,omitempty"`
	Threshold    *float64  `json:"value,omitempty"`
	Color        *string   `json:"color,omitempty"`
	Label        *string   `json:"label,omitempty"`
}

// Apply returns a copy of r with the patch applied.
func (p RulePatch) Apply(r ColorRule) ColorRule {
	if p.DataSourceID != nil {
		r.DataSourceID = *p.DataSourceID
	}
	if p.Operator != nil {
		r.Operator = *p.Operator
	}
	if p.Threshold != nil {
		r.Threshold = *p.Threshold
	}
	if p.Color != nil {
		r.Color = *p.Color
	}
	if p.Label != nil {
		r.Label = *p.Label
	}
	return r
}

// Classify picks the color for value among the rules owned by dataSourceID.
//
// Candidates are ordered by threshold descending and the first satisfied rule
// wins, so when several rules match (">= 10" and ">= 25" for 30) the larger
// threshold takes precedence. Rules sharing a threshold keep their input order.
// With no match it returns DefaultColor and a nil rule.
func Classify(value float64, dataSourceID string, rules []ColorRule) (string, *ColorRule) {
	candidates := make([]ColorRule, 0, len(rules))
	for _, r := range rules {
		if r.DataSourceID == dataSourceID {
			candidates = append(candidates, r)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Threshold > candidates[j].Threshold
	})

	for i := range candidates {
		if candidates[i].Operator.Eval(value, candidates[i].Threshold) {
			matched := candidates[i]
			return matched.Color, &matched
		}
	}
	return DefaultColor, nil
}

package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RuleKind selects how a matching rule changes the base rate.
type RuleKind string

const (
	RuleKindExemption    RuleKind = "EXEMPTION"
	RuleKindRateOverride RuleKind = "RATE_OVERRIDE"
	RuleKindThreshold    RuleKind = "THRESHOLD"
)

// TransformKind is the rate transformation a rule applies.
type TransformKind string

const (
	TransformKeep  TransformKind = "KEEP"
	TransformZero  TransformKind = "ZERO"
	TransformScale TransformKind = "SCALE"
	TransformSet   TransformKind = "SET"
)

// Field names a LineItem attribute a condition inspects.
type Field string

const (
	FieldName        Field = "name"
	FieldProductType Field = "product_type"
	FieldUnitPrice   Field = "unit_price"
	FieldQuantity    Field = "quantity"
	FieldSubtotal    Field = "subtotal"
)

// Operator compares a field with the condition value.
type Operator string

const (
	OpEq          Operator = "eq"
	OpNeq         Operator = "neq"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpGt          Operator = "gt"
	OpGte         Operator = "gte"
	OpLt          Operator = "lt"
	OpLte         Operator = "lte"
)

// Condition is one predicate over a line item. String equality is exact,
// substring operators are case-insensitive, ordering operators are numeric.
type Condition struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value,omitempty"`
	Values   []string `json:"values,omitempty"`
}

// Transform describes the new rate. Value is the factor for SCALE and the rate for SET.
type Transform struct {
	Kind  TransformKind   `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

// Rule is a jurisdiction-scoped, data-only tax rule. All conditions must hold.
type Rule struct {
	ID              string          `json:"id,omitempty"`
	JurisdictionKey string          `json:"jurisdiction_key"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Kind            RuleKind        `json:"kind"`
	Position        int             `json:"position"`
	Conditions      []Condition     `json:"conditions"`
	Transform       Transform       `json:"transform"`
	Threshold       decimal.Decimal `json:"threshold"`
}

// Matches reports whether the rule applies to the item.
func (r Rule) Matches(item LineItem) bool {
	if r.Kind == RuleKindThreshold && !item.Subtotal().LessThan(r.Threshold) {
		return false
	}
	for _, c := range r.Conditions {
		if !c.matches(item) {
			return false
		}
	}
	return true
}

// Apply returns the rate after the rule's transformation of base.
func (r Rule) Apply(base decimal.Decimal) decimal.Decimal {
	switch r.Kind {
	case RuleKindExemption:
		return decimal.Zero
	case RuleKindThreshold:
		if r.Transform.Kind == "" {
			return decimal.Zero
		}
		return r.Transform.apply(base)
	default:
		return r.Transform.apply(base)
	}
}

// evaluate is the single dispatch point: it returns the effective rate and whether the rule matched.
func evaluate(rule Rule, item LineItem, base decimal.Decimal) (decimal.Decimal, bool) {
	if !rule.Matches(item) {
		return base, false
	}
	return rule.Apply(base), true
}

func (t Transform) apply(base decimal.Decimal) decimal.Decimal {
	switch t.Kind {
	case TransformZero:
		return decimal.Zero
	case TransformScale:
		return base.Mul(t.Value)
	case TransformSet:
		return t.Value
	default:
		return base
	}
}

// Validate checks that the rule only uses known kinds, fields and operators.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name", "rule name is required")
	}
	if strings.TrimSpace(r.JurisdictionKey) == "" {
		return NewValidationError("jurisdiction_key", "jurisdiction key is required")
	}
	switch r.Kind {
	case RuleKindExemption:
	case RuleKindRateOverride:
		if r.Transform.Kind == "" {
			return NewValidationError("transform.kind", "rate override requires a transform")
		}
	case RuleKindThreshold:
		if !r.Threshold.IsPositive() {
			return NewValidationError("threshold", "threshold rule requires a positive threshold")
		}
	default:
		return NewValidationError("kind", fmt.Sprintf("unknown rule kind %q", r.Kind))
	}
	switch r.Transform.Kind {
	case "", TransformKeep, TransformZero:
	case TransformScale, TransformSet:
		if r.Transform.Value.IsNegative() {
			return NewValidationError("transform.value", "must not be negative")
		}
	default:
		return NewValidationError("transform.kind", fmt.Sprintf("unknown transform %q", r.Transform.Kind))
	}
	for i, c := range r.Conditions {
		if err := c.validate(); err != nil {
			return NewValidationError(fmt.Sprintf("conditions[%d]", i), err.Error())
		}
	}
	return nil
}

func (c Condition) validate() error {
	numeric := c.Field.numeric()
	switch c.Field {
	case FieldName, FieldProductType, FieldUnitPrice, FieldQuantity, FieldSubtotal:
	default:
		return fmt.Errorf("unknown field %q", c.Field)
	}
	switch c.Operator {
	case OpEq, OpNeq:
		if numeric {
			if _, err := decimal.NewFromString(c.Value); err != nil {
				return fmt.Errorf("value %q is not numeric", c.Value)
			}
		}
	case OpIn, OpNotIn:
		if numeric {
			return fmt.Errorf("operator %q is not supported on %q", c.Operator, c.Field)
		}
		if len(c.Values) == 0 {
			return fmt.Errorf("operator %q requires values", c.Operator)
		}
	case OpContains, OpNotContains:
		if numeric {
			return fmt.Errorf("operator %q is not supported on %q", c.Operator, c.Field)
		}
	case OpGt, OpGte, OpLt, OpLte:
		if !numeric {
			return fmt.Errorf("operator %q requires a numeric field", c.Operator)
		}
		if _, err := decimal.NewFromString(c.Value); err != nil {
			return fmt.Errorf("value %q is not numeric", c.Value)
		}
	default:
		return fmt.Errorf("unknown operator %q", c.Operator)
	}
	return nil
}

func (f Field) numeric() bool {
	return f == FieldUnitPrice || f == FieldQuantity || f == FieldSubtotal
}

func (c Condition) matches(item LineItem) bool {
	if c.Field.numeric() {
		return c.matchesNumber(numericField(c.Field, item))
	}
	return c.matchesString(stringField(c.Field, item))
}

func (c Condition) matchesString(actual string) bool {
	switch c.Operator {
	case OpEq:
		return actual == c.Value
	case OpNeq:
		return actual != c.Value
	case OpIn:
		return containsExact(c.Values, actual)
	case OpNotIn:
		return !containsExact(c.Values, actual)
	case OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(c.Value))
	case OpNotContains:
		return !strings.Contains(strings.ToLower(actual), strings.ToLower(c.Value))
	}
	return false
}

func (c Condition) matchesNumber(actual decimal.Decimal) bool {
	want, err := decimal.NewFromString(c.Value)
	if err != nil {
		return false
	}
	switch c.Operator {
	case OpEq:
		return actual.Equal(want)
	case OpNeq:
		return !actual.Equal(want)
	case OpGt:
		return actual.GreaterThan(want)
	case OpGte:
		return actual.GreaterThanOrEqual(want)
	case OpLt:
		return actual.LessThan(want)
	case OpLte:
		return actual.LessThanOrEqual(want)
	}
	return false
}

func stringField(f Field, item LineItem) string {
	if f == FieldName {
		return item.Name
	}
	return item.ProductType
}

func numericField(f Field, item LineItem) decimal.Decimal {
	switch f {
	case FieldUnitPrice:
		return item.UnitPrice
	case FieldQuantity:
		return decimal.NewFromInt(int64(item.Quantity))
	default:
		return item.Subtotal()
	}
}

func containsExact(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// RuleSet holds rules per jurisdiction key, each list in declaration order.
type RuleSet map[string][]Rule

// NewRuleSet groups rules by key, keeping their relative order.
func NewRuleSet(rules []Rule) RuleSet {
	set := make(RuleSet)
	for _, r := range rules {
		set[r.JurisdictionKey] = append(set[r.JurisdictionKey], r)
	}
	return set
}

// ApplicableRule returns the first rule for key matching item, or nil.
// Later matching rules are skipped so exemptions never stack.
func (s RuleSet) ApplicableRule(key string, item LineItem) *Rule {
	return firstMatch(s[key], item)
}

func firstMatch(rules []Rule, item LineItem) *Rule {
	for i := range rules {
		if rules[i].Matches(item) {
			r := rules[i]
			return &r
		}
	}
	return nil
}

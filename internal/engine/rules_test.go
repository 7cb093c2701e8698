package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionMatching(t *testing.T) {
	ebook := item("Education Guide E-BOOK", "E-book", "12.50", 4)

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"eq exact", Condition{Field: FieldProductType, Operator: OpEq, Value: "E-book"}, true},
		{"eq is case sensitive", Condition{Field: FieldProductType, Operator: OpEq, Value: "e-book"}, false},
		{"neq", Condition{Field: FieldProductType, Operator: OpNeq, Value: "Digital Media"}, true},
		{"in", Condition{Field: FieldProductType, Operator: OpIn, Values: []string{"Digital Media", "E-book"}}, true},
		{"not in", Condition{Field: FieldProductType, Operator: OpNotIn, Values: []string{"E-book"}}, false},
		{"contains ignores case", Condition{Field: FieldName, Operator: OpContains, Value: "education"}, true},
		{"not contains ignores case", Condition{Field: FieldName, Operator: OpNotContains, Value: "GUIDE"}, false},
		{"unit price gt", Condition{Field: FieldUnitPrice, Operator: OpGt, Value: "12"}, true},
		{"unit price lte", Condition{Field: FieldUnitPrice, Operator: OpLte, Value: "12.5"}, true},
		{"quantity gte", Condition{Field: FieldQuantity, Operator: OpGte, Value: "5"}, false},
		{"subtotal eq", Condition{Field: FieldSubtotal, Operator: OpEq, Value: "50.00"}, true},
		{"subtotal lt", Condition{Field: FieldSubtotal, Operator: OpLt, Value: "50"}, false},
		{"unparseable number never matches", Condition{Field: FieldSubtotal, Operator: OpGt, Value: "abc"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.matches(ebook))
		})
	}
}

func TestRuleApply(t *testing.T) {
	base := dec("8")

	tests := []struct {
		name string
		rule Rule
		want string
	}{
		{"exemption ignores transform", Rule{Kind: RuleKindExemption, Transform: Transform{Kind: TransformSet, Value: dec("3")}}, "0"},
		{"override keep", Rule{Kind: RuleKindRateOverride, Transform: Transform{Kind: TransformKeep}}, "8"},
		{"override zero", Rule{Kind: RuleKindRateOverride, Transform: Transform{Kind: TransformZero}}, "0"},
		{"override scale", Rule{Kind: RuleKindRateOverride, Transform: Transform{Kind: TransformScale, Value: dec("0.25")}}, "2"},
		{"override set", Rule{Kind: RuleKindRateOverride, Transform: Transform{Kind: TransformSet, Value: dec("4.5")}}, "4.5"},
		{"threshold defaults to zero", Rule{Kind: RuleKindThreshold, Threshold: dec("100")}, "0"},
		{"threshold with set", Rule{Kind: RuleKindThreshold, Threshold: dec("100"), Transform: Transform{Kind: TransformSet, Value: dec("1")}}, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.rule.Apply(base).Equal(dec(tt.want)), "got %s", tt.rule.Apply(base))
		})
	}
}

func TestThresholdRuleMatchesBelowThreshold(t *testing.T) {
	rule := Rule{
		JurisdictionKey: "US-WA",
		Name:            "Small Purchase",
		Kind:            RuleKindThreshold,
		Threshold:       dec("100"),
		Conditions:      []Condition{{Field: FieldProductType, Operator: OpEq, Value: "Digital Software"}},
	}

	assert.True(t, rule.Matches(item("Plugin", "Digital Software", "40", 2)))
	assert.False(t, rule.Matches(item("Plugin", "Digital Software", "50", 2)))
	assert.False(t, rule.Matches(item("Album", "Digital Media", "10", 1)))
}

func TestRuleWithoutConditionsMatchesEverything(t *testing.T) {
	rule := Rule{Kind: RuleKindExemption}
	assert.True(t, rule.Matches(item("Anything", "Whatever", "1", 1)))
}

func TestRuleSetFirstMatchWins(t *testing.T) {
	set := NewRuleSet([]Rule{
		{JurisdictionKey: "US-CA", Name: "first", Kind: RuleKindExemption,
			Conditions: []Condition{{Field: FieldProductType, Operator: OpEq, Value: "E-book"}}},
		{JurisdictionKey: "US-NY", Name: "other jurisdiction", Kind: RuleKindExemption},
		{JurisdictionKey: "US-CA", Name: "second", Kind: RuleKindExemption},
	})

	got := set.ApplicableRule("US-CA", item("Novel", "E-book", "10", 1))
	require.NotNil(t, got)
	assert.Equal(t, "first", got.Name)

	got = set.ApplicableRule("US-CA", item("App", "Digital Software", "10", 1))
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Name)

	assert.Nil(t, set.ApplicableRule("US-TX", item("App", "Digital Software", "10", 1)))

	for i := 0; i < 10; i++ {
		again := set.ApplicableRule("US-CA", item("Novel", "E-book", "10", 1))
		assert.Equal(t, "first", again.Name)
	}
}

func TestRuleValidate(t *testing.T) {
	valid := Rule{
		JurisdictionKey: "US-CA",
		Name:            "Digital Products Exemption",
		Kind:            RuleKindExemption,
		Conditions:      []Condition{{Field: FieldProductType, Operator: OpIn, Values: []string{"E-book"}}},
	}
	require.NoError(t, valid.Validate())
	for _, r := range DefaultRules() {
		require.NoError(t, r.Validate(), r.Name)
	}

	tests := []struct {
		name   string
		mutate func(r *Rule)
		field  string
	}{
		{"missing name", func(r *Rule) { r.Name = " " }, "name"},
		{"missing key", func(r *Rule) { r.JurisdictionKey = "" }, "jurisdiction_key"},
		{"unknown kind", func(r *Rule) { r.Kind = "BONUS" }, "kind"},
		{"override without transform", func(r *Rule) { r.Kind = RuleKindRateOverride }, "transform.kind"},
		{"threshold without amount", func(r *Rule) { r.Kind = RuleKindThreshold }, "threshold"},
		{"unknown transform", func(r *Rule) { r.Transform.Kind = "DOUBLE" }, "transform.kind"},
		{"negative scale", func(r *Rule) {
			r.Kind = RuleKindRateOverride
			r.Transform = Transform{Kind: TransformScale, Value: dec("-1")}
		}, "transform.value"},
		{"unknown field", func(r *Rule) { r.Conditions[0].Field = "sku" }, "conditions[0]"},
		{"unknown operator", func(r *Rule) { r.Conditions[0].Operator = "like" }, "conditions[0]"},
		{"in without values", func(r *Rule) { r.Conditions[0].Values = nil }, "conditions[0]"},
		{"numeric op on string", func(r *Rule) { r.Conditions[0] = Condition{Field: FieldName, Operator: OpGt, Value: "1"} }, "conditions[0]"},
		{"non numeric value", func(r *Rule) { r.Conditions[0] = Condition{Field: FieldQuantity, Operator: OpGte, Value: "many"} }, "conditions[0]"},
		{"contains on number", func(r *Rule) { r.Conditions[0] = Condition{Field: FieldSubtotal, Operator: OpContains, Value: "1"} }, "conditions[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			r.Conditions = append([]Condition(nil), valid.Conditions...)
			tt.mutate(&r)
			err := r.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

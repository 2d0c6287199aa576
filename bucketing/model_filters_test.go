package bucketing

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flagdecide/go-server-sdk/api"
)

type fixedCondition Tristate

func (c fixedCondition) Evaluate(api.UserAttributes) Tristate {
	return Tristate(c)
}

type panicCondition struct{}

func (panicCondition) Evaluate(api.UserAttributes) Tristate {
	panic("condition should not have been evaluated")
}

func TestTristate_KleeneLogic(t *testing.T) {
	require.Equal(t, Unknown, Unknown.Not())
	require.Equal(t, False, True.Not())
	require.Equal(t, True, False.Not())

	require.Equal(t, False, Unknown.And(False))
	require.Equal(t, Unknown, Unknown.And(True))
	require.Equal(t, Unknown, Unknown.And(Unknown))
	require.Equal(t, True, True.And(True))

	require.Equal(t, True, Unknown.Or(True))
	require.Equal(t, Unknown, Unknown.Or(False))
	require.Equal(t, Unknown, Unknown.Or(Unknown))
	require.Equal(t, False, False.Or(False))

	require.Equal(t, "unknown", Unknown.String())
	require.Equal(t, "true", True.String())
}

func TestAudienceOperator_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		operator   string
		conditions []Condition
		expected   Tristate
	}{
		{"empty and", OperatorAnd, nil, True},
		{"empty or", OperatorOr, nil, False},
		{"empty not", OperatorNot, nil, Unknown},
		{"not unknown", OperatorNot, []Condition{fixedCondition(Unknown)}, Unknown},
		{"not true", OperatorNot, []Condition{fixedCondition(True)}, False},
		{"not uses first child", OperatorNot, []Condition{fixedCondition(False), fixedCondition(False)}, True},
		{"unknown and false", OperatorAnd, []Condition{fixedCondition(Unknown), fixedCondition(False)}, False},
		{"unknown and true", OperatorAnd, []Condition{fixedCondition(Unknown), fixedCondition(True)}, Unknown},
		{"unknown or true", OperatorOr, []Condition{fixedCondition(Unknown), fixedCondition(True)}, True},
		{"unknown or false", OperatorOr, []Condition{fixedCondition(Unknown), fixedCondition(False)}, Unknown},
		{"and short circuits", OperatorAnd, []Condition{fixedCondition(False), panicCondition{}}, False},
		{"or short circuits", OperatorOr, []Condition{fixedCondition(True), panicCondition{}}, True},
		{"unsupported operator", "xor", []Condition{fixedCondition(True)}, Unknown},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			operator := &AudienceOperator{Operator: test.operator, Conditions: test.conditions}
			require.Equal(t, test.expected, operator.Evaluate(api.UserAttributes{}))
		})
	}
}

func TestAttributeConditions_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		attributes api.UserAttributes
		expected   Tristate
	}{
		{"array", `["and", {"name": "a", "type": "custom_attribute", "match": "exact", "value": "x"}]`, api.UserAttributes{"a": "x"}, True},
		{"encoded string", `"[\"or\", {\"name\": \"a\", \"type\": \"custom_attribute\", \"match\": \"exact\", \"value\": \"x\"}]"`, api.UserAttributes{"a": "y"}, False},
		{"implicit or", `[{"name": "a", "type": "custom_attribute", "match": "exists"}, {"name": "b", "type": "custom_attribute", "match": "exists"}]`, api.UserAttributes{"b": 1}, True},
		{"empty array is empty and", `[]`, api.UserAttributes{}, True},
		{"explicit empty or", `["or"]`, api.UserAttributes{}, False},
		{"nested not", `["not", ["or", {"name": "a", "type": "custom_attribute", "match": "gt", "value": 3}]]`, api.UserAttributes{}, Unknown},
		{"single leaf", `{"name": "a", "type": "custom_attribute", "match": "lt", "value": 3}`, api.UserAttributes{"a": 2}, True},
		{"missing match is exact", `["and", {"name": "a", "type": "custom_attribute", "value": true}]`, api.UserAttributes{"a": true}, True},
		{"unsupported type", `["and", {"name": "a", "type": "third_party_dimension", "match": "exact", "value": "x"}]`, api.UserAttributes{"a": "x"}, Unknown},
		{"unsupported match", `["and", {"name": "a", "type": "custom_attribute", "match": "regex", "value": "x"}]`, api.UserAttributes{"a": "x"}, Unknown},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var conditions AttributeConditions
			require.NoError(t, json.Unmarshal([]byte(test.input), &conditions))
			require.NotNil(t, conditions.Condition)
			require.Equal(t, test.expected, conditions.Evaluate(test.attributes))
		})
	}
}

func TestAttributeConditions_UnmarshalJSON_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"gt with string", `["and", {"name": "a", "type": "custom_attribute", "match": "gt", "value": "3"}]`},
		{"substring with number", `["and", {"name": "a", "type": "custom_attribute", "match": "substring", "value": 3}]`},
		{"exact with list", `["and", {"name": "a", "type": "custom_attribute", "match": "exact", "value": [1]}]`},
		{"in with scalar", `["and", {"name": "a", "type": "custom_attribute", "match": "in", "value": "x"}]`},
		{"in with nested list", `["and", {"name": "a", "type": "custom_attribute", "match": "in", "value": [["x"]]}]`},
		{"semver with bad version", `["and", {"name": "a", "type": "custom_attribute", "match": "semver_gt", "value": "abc"}]`},
		{"missing name", `["and", {"type": "custom_attribute", "match": "exists"}]`},
		{"bad encoded string", `"[\"and\""`},
		{"not json", `["and", {]`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var conditions AttributeConditions
			require.Error(t, json.Unmarshal([]byte(test.input), &conditions))
		})
	}
}

func TestAudienceConditions_UnmarshalJSON(t *testing.T) {
	var conditions AudienceConditions
	require.NoError(t, json.Unmarshal([]byte(`["and", "1", ["not", "2"]]`), &conditions))

	root, ok := conditions.Condition.(*AudienceOperator)
	require.True(t, ok)
	require.Equal(t, OperatorAnd, root.Operator)
	require.Len(t, root.Conditions, 2)
	require.Equal(t, "1", root.Conditions[0].(*AudienceMatch).AudienceId)

	// Unresolved audience references are unknown.
	require.Equal(t, Unknown, root.Evaluate(api.UserAttributes{}))

	require.Error(t, json.Unmarshal([]byte(`["and", {"name": "a"}]`), &conditions))
}

func TestAttributeCondition_Evaluate(t *testing.T) {
	tests := []struct {
		name     string
		match    string
		value    interface{}
		attr     interface{}
		missing  bool
		expected Tristate
	}{
		{"exact string", MatchExact, "ios", "ios", false, True},
		{"exact string mismatch", MatchExact, "ios", "android", false, False},
		{"exact string vs number", MatchExact, "1", 1, false, Unknown},
		{"exact bool", MatchExact, true, true, false, True},
		{"exact bool vs string", MatchExact, true, "true", false, Unknown},
		{"exact number int attr", MatchExact, 3.0, 3, false, True},
		{"exact number uint8 attr", MatchExact, 3.0, uint8(3), false, True},
		{"exact number float32 attr", MatchExact, 0.5, float32(0.5), false, True},
		{"exact number NaN", MatchExact, 3.0, math.NaN(), false, Unknown},
		{"missing attribute", MatchExact, "ios", nil, true, Unknown},
		{"nil attribute", MatchExact, "ios", nil, false, Unknown},
		{"exists present", MatchExists, nil, "", false, True},
		{"exists missing", MatchExists, nil, nil, true, False},
		{"exists nil", MatchExists, nil, nil, false, False},
		{"gt", MatchGreater, 18.0, 19, false, True},
		{"gt equal", MatchGreater, 18.0, int64(18), false, False},
		{"ge equal", MatchGreaterEq, 18.0, int32(18), false, True},
		{"lt", MatchLess, 18.0, 17.5, false, True},
		{"le", MatchLessEq, 18.0, uint64(19), false, False},
		{"gt string attr", MatchGreater, 18.0, "19", false, Unknown},
		{"gt infinity", MatchGreater, 18.0, math.Inf(1), false, Unknown},
		{"gt json number", MatchGreater, 18.0, json.Number("20"), false, True},
		{"substring", MatchSubstring, "ell", "hello", false, True},
		{"substring mismatch", MatchSubstring, "xyz", "hello", false, False},
		{"substring number attr", MatchSubstring, "1", 10, false, Unknown},
		{"in strings", MatchIn, []interface{}{"gold", "platinum"}, "gold", false, True},
		{"in strings mismatch", MatchIn, []interface{}{"gold", "platinum"}, "silver", false, False},
		{"in numbers", MatchIn, []interface{}{1.0, 2.0}, 2, false, True},
		{"in incomparable", MatchIn, []interface{}{"gold"}, 2, false, Unknown},
		{"semver eq", MatchSemverEq, "2.0.0", "2.0", false, True},
		{"semver gt", MatchSemverGt, "2.0.0", "2.0.1", false, True},
		{"semver ge", MatchSemverGe, "2.0.0", "1.10.0", false, False},
		{"semver lt", MatchSemverLt, "2.0.0", "1.10.0", false, True},
		{"semver le prerelease", MatchSemverLe, "2.0.0", "2.0.0-beta", false, True},
		{"semver invalid attr", MatchSemverEq, "2.0.0", "latest", false, Unknown},
		{"semver number attr", MatchSemverEq, "2.0.0", 2, false, Unknown},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			condition := &AttributeCondition{
				Name:  "attr",
				Type:  TypeCustomAttribute,
				Match: test.match,
				Value: test.value,
			}
			require.NoError(t, condition.Initialize())

			attributes := api.UserAttributes{}
			if !test.missing {
				attributes["attr"] = test.attr
			}
			require.Equal(t, test.expected, condition.Evaluate(attributes))
		})
	}
}

func TestPassCondition(t *testing.T) {
	require.Equal(t, True, PassCondition{}.Evaluate(nil))
}

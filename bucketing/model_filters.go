package bucketing

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/flagdecide/go-server-sdk/api"
	"github.com/flagdecide/go-server-sdk/util"
)

// Condition is a node of an audience condition tree.
type Condition interface {
	Evaluate(attributes api.UserAttributes) Tristate
}

// PassCondition is used for rules without an audience.
type PassCondition struct{}

func (PassCondition) Evaluate(api.UserAttributes) Tristate {
	return True
}

// AttributeConditions is a condition tree over user attributes as found in an
// audience. The datafile may carry it either as a JSON array or as a string
// containing the encoded array.
type AttributeConditions struct {
	Condition
}

func (c *AttributeConditions) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		c.Condition = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return err
		}
		trimmed = bytes.TrimSpace([]byte(encoded))
	}
	condition, err := parseConditionTree(trimmed, parseAttributeCondition)
	if err != nil {
		return err
	}
	c.Condition = condition
	return nil
}

// AudienceConditions is a condition tree whose leaves are audience ids.
type AudienceConditions struct {
	Condition
}

func (c *AudienceConditions) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		c.Condition = nil
		return nil
	}
	condition, err := parseConditionTree(trimmed, parseAudienceMatch)
	if err != nil {
		return err
	}
	c.Condition = condition
	return nil
}

// parseConditionTree reads ["and"|"or"|"not", child...]. Arrays without a
// leading operator are an implicit "or", and an empty array is an empty "and".
func parseConditionTree(data []byte, parseLeaf func([]byte) (Condition, error)) (Condition, error) {
	if len(data) == 0 || data[0] != '[' {
		return parseLeaf(data)
	}

	var rawItems []json.RawMessage
	if err := json.Unmarshal(data, &rawItems); err != nil {
		return nil, err
	}
	if len(rawItems) == 0 {
		return &AudienceOperator{Operator: OperatorAnd}, nil
	}

	operator := OperatorOr
	var first string
	if err := json.Unmarshal(rawItems[0], &first); err == nil {
		switch first {
		case OperatorAnd, OperatorOr, OperatorNot:
			operator = first
			rawItems = rawItems[1:]
		}
	}
	if operator == OperatorNot && len(rawItems) > 1 {
		rawItems = rawItems[:1]
	}

	conditions := make([]Condition, 0, len(rawItems))
	for _, rawItem := range rawItems {
		condition, err := parseConditionTree(bytes.TrimSpace(rawItem), parseLeaf)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, condition)
	}
	return &AudienceOperator{Operator: operator, Conditions: conditions}, nil
}

func parseAttributeCondition(data []byte) (Condition, error) {
	var condition AttributeCondition
	if err := json.Unmarshal(data, &condition); err != nil {
		return nil, fmt.Errorf("error unmarshalling condition: %w", err)
	}
	if err := validate.Struct(condition); err != nil {
		return nil, fmt.Errorf("condition validation failed: %w", err)
	}
	if err := condition.Initialize(); err != nil {
		return nil, fmt.Errorf("error initializing condition %q: %w", condition.Name, err)
	}
	return &condition, nil
}

func parseAudienceMatch(data []byte) (Condition, error) {
	var audienceId string
	if err := json.Unmarshal(data, &audienceId); err != nil {
		return nil, fmt.Errorf("audience condition leaves must be audience ids: %w", err)
	}
	return &AudienceMatch{AudienceId: audienceId}, nil
}

// AttributeCondition compares one user attribute against a literal value.
type AttributeCondition struct {
	Name  string      `json:"name" validate:"required"`
	Type  string      `json:"type"`
	Match string      `json:"match"`
	Value interface{} `json:"value"`

	unsupported    bool
	compiledString string
	compiledNumber float64
	compiledBool   bool
	compiledSet    []interface{}
}

func (c *AttributeCondition) Evaluate(attributes api.UserAttributes) Tristate {
	if c.unsupported {
		return Unknown
	}
	return evaluateAttributeCondition(c, attributes)
}

func (c *AttributeCondition) Initialize() error {
	if c.Type != TypeCustomAttribute {
		util.Warnf("Unsupported condition type %q for attribute %q, it will evaluate to unknown", c.Type, c.Name)
		c.unsupported = true
		return nil
	}
	if c.Match == "" {
		c.Match = MatchExact
	}
	return c.compileValue()
}

func (c *AttributeCondition) compileValue() error {
	switch c.Match {
	case MatchExists:
		return nil
	case MatchExact:
		switch v := c.Value.(type) {
		case string:
			c.compiledString = v
		case bool:
			c.compiledBool = v
		case float64:
			c.compiledNumber = v
		default:
			return fmt.Errorf("exact match value must be a string, number or bool. Got: %T %#v", c.Value, c.Value)
		}
	case MatchGreater, MatchGreaterEq, MatchLess, MatchLessEq:
		v, ok := asFiniteFloat(c.Value)
		if !ok {
			return fmt.Errorf("%s match value must be a finite number. Got: %T %#v", c.Match, c.Value, c.Value)
		}
		c.compiledNumber = v
	case MatchSubstring:
		v, ok := c.Value.(string)
		if !ok {
			return fmt.Errorf("substring match value must be a string. Got: %T %#v", c.Value, c.Value)
		}
		c.compiledString = v
	case MatchSemverEq, MatchSemverGt, MatchSemverGe, MatchSemverLt, MatchSemverLe:
		v, ok := c.Value.(string)
		if !ok || !isValidSemver(v) {
			return fmt.Errorf("%s match value must be a version string. Got: %T %#v", c.Match, c.Value, c.Value)
		}
		c.compiledString = v
	case MatchIn:
		values, ok := c.Value.([]interface{})
		if !ok {
			return fmt.Errorf("in match value must be a list. Got: %T %#v", c.Value, c.Value)
		}
		for _, value := range values {
			switch value.(type) {
			case string, bool, float64:
			default:
				return fmt.Errorf("in match values must be strings, numbers or bools. Got: %T %#v", value, value)
			}
		}
		c.compiledSet = values
	default:
		util.Warnf("Unsupported match type %q for attribute %q, it will evaluate to unknown", c.Match, c.Name)
		c.unsupported = true
	}
	return nil
}

// AudienceMatch evaluates the condition tree of a referenced audience. The
// reference is resolved when the config is compiled.
type AudienceMatch struct {
	AudienceId string

	audience *Audience
}

func (m *AudienceMatch) Evaluate(attributes api.UserAttributes) Tristate {
	if m.audience == nil || m.audience.Conditions.Condition == nil {
		return Unknown
	}
	return m.audience.Conditions.Evaluate(attributes)
}

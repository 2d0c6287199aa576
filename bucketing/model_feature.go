package bucketing

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type Flag struct {
	Id                  string      `json:"id" validate:"required"`
	Key                 string      `json:"key" validate:"required"`
	RolloutId           string      `json:"rolloutId"`
	ExperimentIds       []string    `json:"experimentIds"`
	DefaultVariationKey string      `json:"defaultVariationKey"`
	Variables           []*Variable `json:"variables" validate:"dive,required"`

	rules              []*Rule
	defaultVariation   *Variation
	defaultVariables   map[string]interface{}
	variationVariables map[*Variation]map[string]interface{}
	variablesById      map[string]*Variable
	variablesByKey     map[string]*Variable
}

// Rules returns the rules of the flag in evaluation order.
func (f *Flag) Rules() []*Rule {
	return f.rules
}

func (f *Flag) DefaultVariation() *Variation {
	return f.defaultVariation
}

// GetVariableForKey returns the variable declaration with the given key, or nil.
func (f *Flag) GetVariableForKey(key string) *Variable {
	return f.variablesByKey[key]
}

// VariablesFor returns a fresh map of variable values served with the given
// variation. Overrides only apply when the variation is enabled.
func (f *Flag) VariablesFor(variation *Variation) map[string]interface{} {
	values := f.defaultVariables
	if overridden, ok := f.variationVariables[variation]; ok {
		values = overridden
	}
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

type Variable struct {
	Id           string `json:"id" validate:"required"`
	Key          string `json:"key" validate:"required"`
	Type         string `json:"type" validate:"oneof=string integer double boolean json"`
	DefaultValue string `json:"defaultValue"`

	defaultValue interface{}
}

// Value returns the typed default value of the variable.
func (v *Variable) Value() interface{} {
	return v.defaultValue
}

// parseVariableValue converts the datafile string encoding into a typed value:
// string, int64, float64, bool, or the decoded JSON document.
func parseVariableValue(variableType, raw string) (interface{}, error) {
	switch variableType {
	case VariableTypeString:
		return raw, nil
	case VariableTypeInteger:
		return strconv.ParseInt(raw, 10, 64)
	case VariableTypeDouble:
		return strconv.ParseFloat(raw, 64)
	case VariableTypeBoolean:
		return strconv.ParseBool(raw)
	case VariableTypeJSON:
		var value interface{}
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, err
		}
		return value, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidVariableType, variableType)
}

type Variation struct {
	Id             string              `json:"id" validate:"required"`
	Key            string              `json:"key" validate:"required"`
	FeatureEnabled bool                `json:"featureEnabled"`
	Variables      []VariationVariable `json:"variables" validate:"dive"`
}

type VariationVariable struct {
	Id    string `json:"id" validate:"required"`
	Value string `json:"value"`
}

// Event is a conversion event declared in the datafile.
type Event struct {
	Id            string   `json:"id" validate:"required"`
	Key           string   `json:"key" validate:"required"`
	ExperimentIds []string `json:"experimentIds"`
}

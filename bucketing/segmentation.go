package bucketing

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/flagdecide/go-server-sdk/api"
)

func evaluateAttributeCondition(condition *AttributeCondition, attributes api.UserAttributes) Tristate {
	value, ok := attributes[condition.Name]
	if condition.Match == MatchExists {
		return tristateOf(ok && value != nil)
	}
	if !ok || value == nil {
		return Unknown
	}

	switch condition.Match {
	case MatchExact:
		return checkExactFilter(value, condition)
	case MatchGreater, MatchGreaterEq, MatchLess, MatchLessEq:
		number, ok := asFiniteFloat(value)
		if !ok {
			return Unknown
		}
		return tristateOf(checkNumberFilter(number, condition.compiledNumber, condition.Match))
	case MatchSubstring:
		str, ok := value.(string)
		if !ok {
			return Unknown
		}
		return tristateOf(strings.Contains(str, condition.compiledString))
	case MatchIn:
		return checkSetFilter(value, condition.compiledSet)
	case MatchSemverEq, MatchSemverGt, MatchSemverGe, MatchSemverLt, MatchSemverLe:
		str, ok := value.(string)
		if !ok {
			return Unknown
		}
		return checkVersionFilter(str, condition.compiledString, condition.Match)
	}
	return Unknown
}

func checkExactFilter(value interface{}, condition *AttributeCondition) Tristate {
	switch condition.Value.(type) {
	case string:
		if str, ok := value.(string); ok {
			return tristateOf(str == condition.compiledString)
		}
	case bool:
		if b, ok := value.(bool); ok {
			return tristateOf(b == condition.compiledBool)
		}
	case float64:
		if number, ok := asFiniteFloat(value); ok {
			return tristateOf(number == condition.compiledNumber)
		}
	}
	return Unknown
}

func checkNumberFilter(number, filterNumber float64, match string) bool {
	switch match {
	case MatchGreater:
		return number > filterNumber
	case MatchGreaterEq:
		return number >= filterNumber
	case MatchLess:
		return number < filterNumber
	case MatchLessEq:
		return number <= filterNumber
	}
	return false
}

// checkSetFilter is Unknown when the attribute's type matches none of the set members.
func checkSetFilter(value interface{}, values []interface{}) Tristate {
	comparable := false
	for _, candidate := range values {
		switch c := candidate.(type) {
		case string:
			if str, ok := value.(string); ok {
				comparable = true
				if str == c {
					return True
				}
			}
		case bool:
			if b, ok := value.(bool); ok {
				comparable = true
				if b == c {
					return True
				}
			}
		case float64:
			if number, ok := asFiniteFloat(value); ok {
				comparable = true
				if number == c {
					return True
				}
			}
		}
	}
	if !comparable {
		return Unknown
	}
	return False
}

// checkVersionFilter compares release versions only. Pre-release and build
// suffixes are dropped, so 2.0.0-beta equals 2.0.0 rather than preceding it.
func checkVersionFilter(version, filterVersion, match string) Tristate {
	result := compareSemver(version, filterVersion)
	if math.IsNaN(result) {
		return Unknown
	}
	switch match {
	case MatchSemverEq:
		return tristateOf(result == 0)
	case MatchSemverGt:
		return tristateOf(result > 0)
	case MatchSemverGe:
		return tristateOf(result >= 0)
	case MatchSemverLt:
		return tristateOf(result < 0)
	case MatchSemverLe:
		return tristateOf(result <= 0)
	}
	return Unknown
}

// asFiniteFloat normalizes any Go numeric kind. NaN and infinities are rejected.
func asFiniteFloat(value interface{}) (float64, bool) {
	var number float64
	switch v := value.(type) {
	case int:
		number = float64(v)
	case int8:
		number = float64(v)
	case int16:
		number = float64(v)
	case int32:
		number = float64(v)
	case int64:
		number = float64(v)
	case uint:
		number = float64(v)
	case uint8:
		number = float64(v)
	case uint16:
		number = float64(v)
	case uint32:
		number = float64(v)
	case uint64:
		number = float64(v)
	case float32:
		number = float64(v)
	case float64:
		number = v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		number = f
	default:
		return 0, false
	}
	if math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, false
	}
	return number, true
}

package bucketing

import "github.com/flagdecide/go-server-sdk/api"

// Tristate is the result of evaluating a condition: a leaf that cannot be
// decided from the available attributes is Unknown rather than False.
type Tristate int8

const (
	False Tristate = iota
	True
	Unknown
)

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

func tristateOf(b bool) Tristate {
	if b {
		return True
	}
	return False
}

func (t Tristate) Not() Tristate {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

// And combines two values with Kleene conjunction.
func (t Tristate) And(o Tristate) Tristate {
	if t == False || o == False {
		return False
	}
	if t == Unknown || o == Unknown {
		return Unknown
	}
	return True
}

// Or combines two values with Kleene disjunction.
func (t Tristate) Or(o Tristate) Tristate {
	if t == True || o == True {
		return True
	}
	if t == Unknown || o == Unknown {
		return Unknown
	}
	return False
}

// AudienceOperator combines child conditions. "not" only looks at its first child.
type AudienceOperator struct {
	Operator   string
	Conditions []Condition
}

func (o AudienceOperator) GetOperator() string {
	return o.Operator
}

func (o AudienceOperator) GetConditions() []Condition {
	return o.Conditions
}

func (operator *AudienceOperator) Evaluate(attributes api.UserAttributes) Tristate {
	switch operator.GetOperator() {
	case OperatorAnd:
		result := True
		for _, condition := range operator.GetConditions() {
			result = result.And(condition.Evaluate(attributes))
			if result == False {
				return False
			}
		}
		return result
	case OperatorOr:
		result := False
		for _, condition := range operator.GetConditions() {
			result = result.Or(condition.Evaluate(attributes))
			if result == True {
				return True
			}
		}
		return result
	case OperatorNot:
		if len(operator.Conditions) == 0 {
			return Unknown
		}
		return operator.Conditions[0].Evaluate(attributes).Not()
	}
	return Unknown
}

func (operator *AudienceOperator) walk(fn func(Condition) error) error {
	for _, condition := range operator.Conditions {
		if err := fn(condition); err != nil {
			return err
		}
		if child, ok := condition.(*AudienceOperator); ok {
			if err := child.walk(fn); err != nil {
				return err
			}
		}
	}
	return nil
}

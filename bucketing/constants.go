package bucketing

const (
	OperatorAnd = "and"
	OperatorOr  = "or"
	OperatorNot = "not"
)

// BucketSpace is the exclusive upper bound of bucket values.
const BucketSpace = 10000

const baseSeed = 1

const (
	TypeCustomAttribute = "custom_attribute"
)

const (
	MatchExact     = "exact"
	MatchExists    = "exists"
	MatchGreater   = "gt"
	MatchGreaterEq = "ge"
	MatchLess      = "lt"
	MatchLessEq    = "le"
	MatchSubstring = "substring"
	MatchIn        = "in"
	MatchSemverEq  = "semver_eq"
	MatchSemverGt  = "semver_gt"
	MatchSemverGe  = "semver_ge"
	MatchSemverLt  = "semver_lt"
	MatchSemverLe  = "semver_le"
)

const (
	VariableTypeString  = "string"
	VariableTypeInteger = "integer"
	VariableTypeDouble  = "double"
	VariableTypeBoolean = "boolean"
	VariableTypeJSON    = "json"
)

const (
	RuleStatusRunning = "Running"
)

// offVariationKey names the variation synthesized for flags without a configured default.
const offVariationKey = "off"

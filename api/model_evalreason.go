package api

type EvaluationReason string

const (
	// EvaluationReasonTargetingMatch means the user matched a rule that serves a single variation.
	EvaluationReasonTargetingMatch EvaluationReason = "TARGETING_MATCH"
	// EvaluationReasonSplit means the user was bucketed into one of several variations.
	EvaluationReasonSplit EvaluationReason = "SPLIT"
	// EvaluationReasonForced means the rule pins this user id to a variation.
	EvaluationReasonForced EvaluationReason = "FORCED"
	// EvaluationReasonDefault means no rule matched and the default variation was served.
	EvaluationReasonDefault EvaluationReason = "DEFAULT"
	// EvaluationReasonError is only reported to hooks and metrics; decisions never carry it.
	EvaluationReasonError EvaluationReason = "ERROR"
)

type RuleType string

const (
	RuleTypeExperiment RuleType = "experiment"
	RuleTypeRollout    RuleType = "rollout"
)

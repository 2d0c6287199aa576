package api

// DecideOptions enumerates the recognized options of a decide call.
type DecideOptions struct {
	// DisableDecisionEvent suppresses the decision event for this call. The
	// decision itself is unaffected.
	DisableDecisionEvent bool `json:"disableDecisionEvent,omitempty"`
	// EnabledFlagsOnly drops disabled decisions from DecideAll and DecideForKeys.
	// Ignored by single-flag decide calls.
	EnabledFlagsOnly bool `json:"enabledFlagsOnly,omitempty"`
	// IncludeReasons fills Decision.Reasons with a log of the evaluation.
	IncludeReasons bool `json:"includeReasons,omitempty"`
	// ExcludeVariables leaves Decision.Variables empty.
	ExcludeVariables bool `json:"excludeVariables,omitempty"`
}

// Merge returns the union of both option sets.
func (o DecideOptions) Merge(other DecideOptions) DecideOptions {
	return DecideOptions{
		DisableDecisionEvent: o.DisableDecisionEvent || other.DisableDecisionEvent,
		EnabledFlagsOnly:     o.EnabledFlagsOnly || other.EnabledFlagsOnly,
		IncludeReasons:       o.IncludeReasons || other.IncludeReasons,
		ExcludeVariables:     o.ExcludeVariables || other.ExcludeVariables,
	}
}

// Decision is the result of evaluating one flag for one user. RuleId and
// RuleKey are empty when the default variation was served.
type Decision struct {
	FlagKey      string                 `json:"flagKey"`
	Enabled      bool                   `json:"enabled"`
	VariationKey string                 `json:"variationKey"`
	VariationId  string                 `json:"variationId,omitempty"`
	RuleKey      string                 `json:"ruleKey,omitempty"`
	RuleId       string                 `json:"ruleId,omitempty"`
	RuleType     RuleType               `json:"ruleType,omitempty"`
	Reason       EvaluationReason       `json:"reason"`
	Variables    map[string]interface{} `json:"variables,omitempty"`
	Reasons      []string               `json:"reasons,omitempty"`
}

// Matched reports whether a rule, rather than the default, produced the decision.
func (d Decision) Matched() bool {
	return d.RuleId != ""
}

package bucketing

import (
	"fmt"

	"github.com/flagdecide/go-server-sdk/api"
)

// Bucket maps a bucketing id into [0, BucketSpace). The value depends only on
// its arguments, so users keep their bucket across calls and restarts.
func Bucket(bucketingId, bucketingSeed string) int {
	return int(murmurhashV3(bucketingSeed+bucketingId, baseSeed) % BucketSpace)
}

// reasons collects the evaluation log of a decision when requested.
type reasons struct {
	enabled bool
	items   []string
}

func (r *reasons) addf(format string, args ...interface{}) {
	if !r.enabled {
		return
	}
	r.items = append(r.items, fmt.Sprintf(format, args...))
}

type ruleMatch struct {
	rule      *Rule
	variation *Variation
	reason    api.EvaluationReason
}

// Decide evaluates one flag for one user against config. It reads the config
// only, so any number of goroutines may call it on a shared Config.
func Decide(config *Config, flagKey string, user api.User, options api.DecideOptions) (api.Decision, error) {
	return decide(config, flagKey, user, options, nil)
}

func decide(config *Config, flagKey string, user api.User, options api.DecideOptions, cache *BucketCache) (api.Decision, error) {
	flag, ok := config.Flag(flagKey)
	if !ok {
		return api.Decision{}, &FlagNotFoundError{FlagKey: flagKey}
	}

	log := &reasons{enabled: options.IncludeReasons}
	match := evaluateRulesForFlag(flag, user, log, cache)

	decision := api.Decision{FlagKey: flag.Key}
	variation := flag.DefaultVariation()
	if match != nil {
		variation = match.variation
		decision.Enabled = variation.FeatureEnabled
		decision.RuleKey = match.rule.Key
		decision.RuleId = match.rule.Id
		decision.RuleType = match.rule.Type()
		decision.Reason = match.reason
	} else {
		log.addf("User %q did not match any rule of flag %q, serving default variation %q.", user.UserId, flag.Key, variation.Key)
		decision.Reason = api.EvaluationReasonDefault
	}
	decision.VariationKey = variation.Key
	decision.VariationId = variation.Id

	if !options.ExcludeVariables {
		served := variation
		if match == nil {
			served = nil
		}
		decision.Variables = flag.VariablesFor(served)
	}
	decision.Reasons = log.items
	return decision, nil
}

// evaluateRulesForFlag returns the first rule that yields a variation for the
// user, or nil.
func evaluateRulesForFlag(flag *Flag, user api.User, log *reasons, cache *BucketCache) *ruleMatch {
	bucketingId := user.BucketingId()
	for _, rule := range flag.Rules() {
		if !rule.IsRunning() {
			log.addf("Rule %q is not running.", rule.Key)
			continue
		}
		if forced, ok := rule.forcedVariations[user.UserId]; ok {
			log.addf("User %q is forced into variation %q of rule %q.", user.UserId, forced.Key, rule.Key)
			return &ruleMatch{rule: rule, variation: forced, reason: api.EvaluationReasonForced}
		}
		if !doesUserQualifyForRule(rule, user, log) {
			continue
		}
		variation := bucketUserForVariation(rule, bucketingId, cache)
		if variation == nil {
			log.addf("User %q is not in the traffic allocation of rule %q.", user.UserId, rule.Key)
			continue
		}
		log.addf("User %q is in variation %q of rule %q.", user.UserId, variation.Key, rule.Key)
		reason := api.EvaluationReasonTargetingMatch
		if rule.split {
			reason = api.EvaluationReasonSplit
		}
		return &ruleMatch{rule: rule, variation: variation, reason: reason}
	}
	return nil
}

// doesUserQualifyForRule enters a rule only when its audience is True.
func doesUserQualifyForRule(rule *Rule, user api.User, log *reasons) bool {
	result := rule.Audience().Evaluate(user.Attributes)
	if result != True {
		log.addf("Audiences for rule %q evaluated to %s for user %q.", rule.Key, result, user.UserId)
		return false
	}
	return true
}

func bucketUserForVariation(rule *Rule, bucketingId string, cache *BucketCache) *Variation {
	return rule.DecideTargetVariation(cache.Bucket(bucketingId, rule.Seed()))
}

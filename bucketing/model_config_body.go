package bucketing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/flagdecide/go-server-sdk/api"
	"github.com/flagdecide/go-server-sdk/util"
)

// use a single instance of Validate, it caches struct info
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// datafileBody mirrors the JSON datafile.
type datafileBody struct {
	Version        string      `json:"version"`
	AccountId      string      `json:"accountId"`
	ProjectId      string      `json:"projectId"`
	EnvironmentKey string      `json:"environmentKey"`
	Revision       string      `json:"revision" validate:"omitempty,numeric"`
	Audiences      []*Audience `json:"audiences" validate:"dive,required"`
	TypedAudiences []*Audience `json:"typedAudiences" validate:"dive,required"`
	Experiments    []*Rule     `json:"experiments" validate:"dive,required"`
	Rollouts       []*Rollout  `json:"rollouts" validate:"dive,required"`
	FeatureFlags   []*Flag     `json:"featureFlags" validate:"dive,required"`
	Events         []*Event    `json:"events" validate:"dive,required"`
}

// Config is an immutable, compiled datafile. It is safe for concurrent use.
type Config struct {
	accountId      string
	projectId      string
	environmentKey string
	revision       string
	flags          map[string]*Flag
	flagKeys       []string
	events         map[string]*Event
}

// NewConfig parses and validates a datafile. Any failure is a *ParseError and
// no Config is returned.
func NewConfig(raw []byte) (*Config, error) {
	body := datafileBody{}
	if err := util.Decode(raw, &body, util.DefaultConfig()); err != nil {
		return nil, newParseError(err, "invalid JSON")
	}
	if err := validate.Struct(body); err != nil {
		return nil, newParseError(err, "config validation failed")
	}
	config, err := body.compile()
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			return nil, parseErr
		}
		return nil, newParseError(err, "config compilation failed")
	}
	return config, nil
}

func (c *Config) Flag(key string) (*Flag, bool) {
	flag, ok := c.flags[key]
	return flag, ok
}

// FlagKeys returns every flag key in sorted order.
func (c *Config) FlagKeys() []string {
	keys := make([]string, len(c.flagKeys))
	copy(keys, c.flagKeys)
	return keys
}

func (c *Config) Event(key string) (*Event, bool) {
	event, ok := c.events[key]
	return event, ok
}

func (c *Config) Revision() string       { return c.revision }
func (c *Config) AccountID() string      { return c.accountId }
func (c *Config) ProjectID() string      { return c.projectId }
func (c *Config) EnvironmentKey() string { return c.environmentKey }

func (b *datafileBody) compile() (*Config, error) {
	audiences, err := b.compileAudiences()
	if err != nil {
		return nil, err
	}

	experiments := make(map[string]*Rule, len(b.Experiments))
	for _, rule := range b.Experiments {
		if _, ok := experiments[rule.Id]; ok {
			return nil, newParseError(ErrDuplicateKey, "experiment id %q", rule.Id)
		}
		if err := rule.compile(api.RuleTypeExperiment, audiences); err != nil {
			return nil, err
		}
		experiments[rule.Id] = rule
	}

	rollouts := make(map[string]*Rollout, len(b.Rollouts))
	for _, rollout := range b.Rollouts {
		if _, ok := rollouts[rollout.Id]; ok {
			return nil, newParseError(ErrDuplicateKey, "rollout id %q", rollout.Id)
		}
		for _, rule := range rollout.Experiments {
			if err := rule.compile(api.RuleTypeRollout, audiences); err != nil {
				return nil, err
			}
		}
		rollouts[rollout.Id] = rollout
	}

	config := &Config{
		accountId:      b.AccountId,
		projectId:      b.ProjectId,
		environmentKey: b.EnvironmentKey,
		revision:       b.Revision,
		flags:          make(map[string]*Flag, len(b.FeatureFlags)),
		flagKeys:       make([]string, 0, len(b.FeatureFlags)),
		events:         make(map[string]*Event, len(b.Events)),
	}

	for _, flag := range b.FeatureFlags {
		if _, ok := config.flags[flag.Key]; ok {
			return nil, newParseError(ErrDuplicateKey, "flag key %q", flag.Key)
		}
		if err := flag.compile(experiments, rollouts); err != nil {
			return nil, err
		}
		config.flags[flag.Key] = flag
		config.flagKeys = append(config.flagKeys, flag.Key)
	}
	sort.Strings(config.flagKeys)

	for _, event := range b.Events {
		if _, ok := config.events[event.Key]; ok {
			return nil, newParseError(ErrDuplicateKey, "event key %q", event.Key)
		}
		config.events[event.Key] = event
	}

	return config, nil
}

// compileAudiences indexes audiences by id. Typed audiences replace legacy
// audiences that share their id.
func (b *datafileBody) compileAudiences() (map[string]*Audience, error) {
	audiences := make(map[string]*Audience, len(b.Audiences)+len(b.TypedAudiences))
	for _, list := range [][]*Audience{b.Audiences, b.TypedAudiences} {
		seen := make(map[string]bool, len(list))
		for _, audience := range list {
			if seen[audience.Id] {
				return nil, newParseError(ErrDuplicateKey, "audience id %q", audience.Id)
			}
			seen[audience.Id] = true
			if audience.Conditions.Condition == nil {
				return nil, newParseError(nil, "audience %q has no conditions", audience.Id)
			}
			audiences[audience.Id] = audience
		}
	}
	return audiences, nil
}

func (r *Rule) compile(ruleType api.RuleType, audiences map[string]*Audience) error {
	if r.ruleType != "" {
		return nil
	}

	r.variationsByKey = make(map[string]*Variation, len(r.Variations))
	r.variationsById = make(map[string]*Variation, len(r.Variations))
	for _, variation := range r.Variations {
		if _, ok := r.variationsById[variation.Id]; ok {
			return newParseError(ErrDuplicateKey, "variation id %q in rule %q", variation.Id, r.Key)
		}
		if _, ok := r.variationsByKey[variation.Key]; ok {
			return newParseError(ErrDuplicateKey, "variation key %q in rule %q", variation.Key, r.Key)
		}
		r.variationsById[variation.Id] = variation
		r.variationsByKey[variation.Key] = variation
	}

	r.allocation = make([]allocationRange, 0, len(r.TrafficAllocation))
	allocated := make(map[*Variation]bool)
	previousEnd := 0
	for _, allocation := range r.TrafficAllocation {
		if allocation.EndOfRange < previousEnd || allocation.EndOfRange > BucketSpace {
			return newParseError(ErrInvalidTrafficAllocation, "rule %q: endOfRange %d must be in [%d, %d]", r.Key, allocation.EndOfRange, previousEnd, BucketSpace)
		}

		var variation *Variation
		if allocation.EntityId != "" {
			v, ok := r.variationsById[allocation.EntityId]
			if !ok {
				return newParseError(ErrMissingVariation, "rule %q allocates traffic to unknown variation %q", r.Key, allocation.EntityId)
			}
			variation = v
		}
		// zero-width ranges hold 0% traffic and are never served
		if allocation.EndOfRange == previousEnd {
			continue
		}
		previousEnd = allocation.EndOfRange
		if variation != nil {
			allocated[variation] = true
		}
		r.allocation = append(r.allocation, allocationRange{end: allocation.EndOfRange, variation: variation})
	}
	r.split = len(allocated) > 1

	r.forcedVariations = make(map[string]*Variation, len(r.ForcedVariations))
	for userId, variationKey := range r.ForcedVariations {
		v, ok := r.variationsByKey[variationKey]
		if !ok {
			return newParseError(ErrMissingVariation, "rule %q forces user %q into unknown variation %q", r.Key, userId, variationKey)
		}
		r.forcedVariations[userId] = v
	}

	audience, err := r.compileAudience(audiences)
	if err != nil {
		return err
	}
	r.audience = audience
	r.ruleType = ruleType
	return nil
}

// compileAudience prefers audienceConditions, falls back to an "or" over
// audienceIds, and passes everyone when neither is set.
func (r *Rule) compileAudience(audiences map[string]*Audience) (Condition, error) {
	var root Condition
	if r.AudienceConditions != nil && r.AudienceConditions.Condition != nil {
		root = r.AudienceConditions.Condition
	} else if len(r.AudienceIds) > 0 {
		operator := &AudienceOperator{Operator: OperatorOr}
		for _, id := range r.AudienceIds {
			operator.Conditions = append(operator.Conditions, &AudienceMatch{AudienceId: id})
		}
		root = operator
	} else {
		return PassCondition{}, nil
	}

	resolve := func(condition Condition) error {
		match, ok := condition.(*AudienceMatch)
		if !ok {
			return nil
		}
		audience, ok := audiences[match.AudienceId]
		if !ok {
			return newParseError(ErrMissingAudience, "rule %q references unknown audience %q", r.Key, match.AudienceId)
		}
		match.audience = audience
		return nil
	}
	if err := resolve(root); err != nil {
		return nil, err
	}
	if operator, ok := root.(*AudienceOperator); ok {
		if err := operator.walk(resolve); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func (f *Flag) compile(experiments map[string]*Rule, rollouts map[string]*Rollout) error {
	f.rules = make([]*Rule, 0, len(f.ExperimentIds))
	for _, id := range f.ExperimentIds {
		rule, ok := experiments[id]
		if !ok {
			return newParseError(nil, "flag %q references unknown experiment %q", f.Key, id)
		}
		f.rules = append(f.rules, rule)
	}
	if f.RolloutId != "" {
		rollout, ok := rollouts[f.RolloutId]
		if !ok {
			return newParseError(nil, "flag %q references unknown rollout %q", f.Key, f.RolloutId)
		}
		f.rules = append(f.rules, rollout.Experiments...)
	}

	f.variablesById = make(map[string]*Variable, len(f.Variables))
	f.variablesByKey = make(map[string]*Variable, len(f.Variables))
	f.defaultVariables = make(map[string]interface{}, len(f.Variables))
	for _, variable := range f.Variables {
		if _, ok := f.variablesByKey[variable.Key]; ok {
			return newParseError(ErrDuplicateKey, "variable key %q in flag %q", variable.Key, f.Key)
		}
		value, err := parseVariableValue(variable.Type, variable.DefaultValue)
		if err != nil {
			return newParseError(err, "default value of variable %q in flag %q is not a valid %s", variable.Key, f.Key, variable.Type)
		}
		variable.defaultValue = value
		f.variablesById[variable.Id] = variable
		f.variablesByKey[variable.Key] = variable
		f.defaultVariables[variable.Key] = value
	}

	f.variationVariables = make(map[*Variation]map[string]interface{})
	for _, rule := range f.rules {
		for _, variation := range rule.Variations {
			if err := f.compileVariation(variation); err != nil {
				return err
			}
		}
	}

	if f.DefaultVariationKey == "" {
		f.defaultVariation = &Variation{Key: offVariationKey}
		return nil
	}
	for _, rule := range f.rules {
		if v := rule.GetVariationForKey(f.DefaultVariationKey); v != nil {
			f.defaultVariation = v
			return nil
		}
	}
	return newParseError(ErrMissingVariation, "flag %q default variation %q", f.Key, f.DefaultVariationKey)
}

func (f *Flag) compileVariation(variation *Variation) error {
	var values map[string]interface{}
	if variation.FeatureEnabled {
		values = make(map[string]interface{}, len(f.defaultVariables))
		for k, v := range f.defaultVariables {
			values[k] = v
		}
	}
	for _, override := range variation.Variables {
		variable, ok := f.variablesById[override.Id]
		if !ok {
			util.Warnf("Variation %q of flag %q overrides unknown variable %q", variation.Key, f.Key, override.Id)
			continue
		}
		value, err := parseVariableValue(variable.Type, override.Value)
		if err != nil {
			return newParseError(err, "variation %q sets variable %q to an invalid %s", variation.Key, variable.Key, variable.Type)
		}
		if values != nil {
			values[variable.Key] = value
		}
	}
	if values != nil {
		f.variationVariables[variation] = values
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{revision: %s, flags: %d}", c.revision, len(c.flags))
}
